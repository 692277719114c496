package checker

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/language"

	"github.com/kianmeng/textLSP/internal/cache"
	"github.com/kianmeng/textLSP/internal/changes"
	"github.com/kianmeng/textLSP/internal/config"
	"github.com/kianmeng/textLSP/internal/document"
	"github.com/kianmeng/textLSP/internal/paragraph"
	"github.com/kianmeng/textLSP/internal/text"
)

// ProseName is the settings name of the prose checker.
const ProseName = "prose"

type proseSettings struct {
	repeatedWords bool
	maxSentence   int // words; 0 disables the rule
	minParagraph  int // bytes per checked unit
	onOpen        bool
	onChange      bool
	onSave        bool
}

func parseProseSettings(s config.Section) (proseSettings, error) {
	ps := proseSettings{
		repeatedWords: s.Bool("repeated_words", true),
		maxSentence:   s.Int("max_sentence_words", 40),
		minParagraph:  s.Int("min_paragraph_length", 0),
		onOpen:        s.Bool("check_text.on_open", true),
		onChange:      s.Bool("check_text.on_change", true),
		onSave:        s.Bool("check_text.on_save", true),
	}
	if ps.maxSentence < 0 {
		return proseSettings{}, fmt.Errorf("%w: max_sentence_words is %d", ErrConfiguration, ps.maxSentence)
	}
	if ps.minParagraph < 0 {
		return proseSettings{}, fmt.Errorf("%w: min_paragraph_length is %d", ErrConfiguration, ps.minParagraph)
	}
	return ps, nil
}

// fingerprint identifies the settings that change findings.
func (ps proseSettings) fingerprint() string {
	return fmt.Sprintf("repeated=%t,sentence=%d", ps.repeatedWords, ps.maxSentence)
}

// Prose checks cleaned text with built-in style rules, one paragraph at a
// time. Paragraphs no edit touched since the last check keep the findings
// they had; the others are looked up in the cache before the rules run.
type Prose struct {
	pub   Publisher
	cache cache.Cache

	mu       sync.Mutex
	settings proseSettings
	lang     language.Tag
	docs     map[string]*proseDoc
	looked   int // paragraphs looked up in the cache, for tests
	checked  int // paragraphs run through the rules, for tests
}

// proseDoc is what the checker keeps of an open document between checks.
type proseDoc struct {
	tracker *changes.Tracker
	// kept holds the findings of the last published check, one entry per
	// non-blank paragraph in order, made under the settings named by basis.
	kept  []keptParagraph
	basis string
}

type keptParagraph struct {
	body     string
	findings []Finding
}

// NewProse creates the prose checker.
func NewProse(opts Options) (Checker, error) {
	p := &Prose{
		pub:      opts.Publisher,
		cache:    opts.Cache,
		docs:     make(map[string]*proseDoc),
	}
	if err := p.UpdateSettings(opts); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Prose) UpdateSettings(opts Options) error {
	ps, err := parseProseSettings(opts.Settings)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.settings, p.lang = ps, opts.Language
	return nil
}

func (p *Prose) DidOpen(ctx context.Context, doc *document.Document) error {
	p.mu.Lock()
	p.docs[doc.URI()] = &proseDoc{tracker: doc.NewTracker(false)}
	run := p.settings.onOpen
	p.mu.Unlock()

	if !run {
		return nil
	}
	return p.check(ctx, doc, true)
}

// BeforeEdit records which raw text an edit touches.
func (p *Prose) BeforeEdit(doc *document.Document, edit text.Edit) {
	p.mu.Lock()
	st := p.docs[doc.URI()]
	p.mu.Unlock()
	if st != nil {
		st.tracker.Update(edit)
	}
}

func (p *Prose) DidChange(ctx context.Context, doc *document.Document) error {
	p.mu.Lock()
	run := p.settings.onChange
	p.mu.Unlock()
	if !run {
		return nil
	}
	return p.check(ctx, doc, false)
}

func (p *Prose) DidSave(ctx context.Context, doc *document.Document) error {
	p.mu.Lock()
	run := p.settings.onSave
	p.mu.Unlock()
	if !run {
		return nil
	}
	return p.check(ctx, doc, false)
}

// DidClose forgets the document and clears its diagnostics.
func (p *Prose) DidClose(_ context.Context, doc *document.Document) error {
	p.mu.Lock()
	delete(p.docs, doc.URI())
	p.mu.Unlock()

	p.pub.PublishDiagnostics(doc.URI(), doc.Version(), []Diagnostic{})
	return nil
}

func (p *Prose) Close() error { return nil }

// dirtyParagraphs returns the cleaned paragraphs touched by edits since the
// last check, and starts tracking afresh. The caller holds the document.
func (p *Prose) dirtyParagraphs(doc *document.Document) []text.Interval {
	p.mu.Lock()
	st := p.docs[doc.URI()]
	p.mu.Unlock()
	if st == nil {
		return nil
	}

	var dirty []text.Interval
	for _, c := range st.tracker.Drain() {
		rng, ok := doc.RangeAt(c.Start, c.Length, false)
		if !ok {
			continue
		}
		dirty = append(dirty, doc.ParagraphsIn(rng, true)...)
	}
	return dirty
}

// proseParagraph is a non-blank paragraph of the cleaned text.
type proseParagraph struct {
	text.Interval
	body    string
	touched bool
}

// check publishes diagnostics for the whole document. With all unset,
// paragraphs before the first touched one and after the last keep the
// findings of the last check; all other paragraphs go through findings.
func (p *Prose) check(ctx context.Context, doc *document.Document, all bool) error {
	release := doc.Hold()
	version := doc.Version()
	cleaned, err := doc.CleanedText()
	dirty := p.dirtyParagraphs(doc)
	release()
	if err != nil {
		// The document logged why; it has nothing to check.
		p.pub.PublishDiagnostics(doc.URI(), version, []Diagnostic{})
		return nil
	}

	p.mu.Lock()
	ps, lang := p.settings, p.lang
	basis := lang.String() + "/" + ps.fingerprint()
	var kept []keptParagraph
	if st := p.docs[doc.URI()]; st != nil && !all && st.basis == basis {
		kept = st.kept
	}
	p.mu.Unlock()

	pars := proseParagraphs(cleaned, ps.minParagraph, dirty)
	first, last := len(pars), -1
	for i, par := range pars {
		if par.touched {
			first, last = min(first, i), i
		}
	}
	shift := len(pars) - len(kept)

	diagnostics := []Diagnostic{}
	next := make([]keptParagraph, 0, len(pars))
	rechecked := 0
	for i, par := range pars {
		prev := -1
		switch {
		case par.touched:
		case i < first:
			prev = i
		case i > last:
			prev = i - shift
		}

		var findings []Finding
		if prev >= 0 && prev < len(kept) && kept[prev].body == par.body {
			findings = kept[prev].findings
		} else {
			var fresh bool
			findings, fresh, err = p.findings(ctx, ps, lang, par.body)
			if err != nil {
				return err
			}
			if fresh {
				rechecked++
			}
		}
		next = append(next, keptParagraph{body: par.body, findings: findings})

		for _, f := range findings {
			rng, ok := doc.RangeAt(par.Start+f.Offset, f.Length, true)
			if !ok {
				continue
			}
			diagnostics = append(diagnostics, Diagnostic{
				Range:    rng,
				Severity: f.Severity,
				Source:   ProseName,
				Code:     f.Code,
				Message:  f.Message,
			})
		}
	}

	if doc.Version() != version {
		log.Debugf("%s changed during the check, dropping results of version %d", doc.URI(), version)
		return nil
	}
	p.mu.Lock()
	if st := p.docs[doc.URI()]; st != nil {
		st.kept, st.basis = next, basis
	}
	p.mu.Unlock()

	log.Debugf("%s: checked %d of %d paragraphs", doc.URI(), rechecked, len(pars))
	p.pub.PublishDiagnostics(doc.URI(), version, diagnostics)
	return nil
}

// proseParagraphs splits cleaned into its non-blank paragraphs, marking
// those containing the start of a dirty interval.
func proseParagraphs(cleaned string, minLength int, dirty []text.Interval) []proseParagraph {
	var pars []proseParagraph
	for offset := 0; offset < len(cleaned); {
		par, ok := paragraph.At(cleaned, offset, minLength)
		if !ok {
			break
		}
		offset = par.End()

		body := cleaned[par.Start:par.End()]
		if strings.TrimSpace(body) == "" {
			continue
		}
		pars = append(pars, proseParagraph{
			Interval: par,
			body:     body,
			touched:  slices.ContainsFunc(dirty, func(d text.Interval) bool { return par.Contains(d.Start) }),
		})
	}
	return pars
}

// findings returns the findings for one paragraph from the cache, running
// the rules when it has none. fresh reports whether the rules ran.
func (p *Prose) findings(ctx context.Context, ps proseSettings, lang language.Tag, body string) (findings []Finding, fresh bool, err error) {
	key := cache.Key(ProseName, lang.String(), ps.fingerprint(), body)
	if p.cache != nil {
		p.mu.Lock()
		p.looked++
		p.mu.Unlock()

		data, ok, err := p.cache.Get(ctx, key)
		if err != nil {
			return nil, false, fmt.Errorf("cache: %w", err)
		}
		if ok && json.Unmarshal(data, &findings) == nil {
			return findings, false, nil
		}
	}

	findings = runRules(ps, lang, body)
	p.mu.Lock()
	p.checked++
	p.mu.Unlock()

	if p.cache != nil {
		data, err := json.Marshal(findings)
		if err != nil {
			return nil, false, err
		}
		if err := p.cache.Put(ctx, key, data); err != nil {
			return nil, false, fmt.Errorf("cache: %w", err)
		}
	}
	return findings, true, nil
}

func runRules(ps proseSettings, lang language.Tag, body string) []Finding {
	findings := []Finding{}
	if ps.repeatedWords {
		findings = append(findings, repeatedWords(body, lang)...)
	}
	if ps.maxSentence > 0 {
		findings = append(findings, longSentences(body, ps.maxSentence)...)
	}
	return findings
}
