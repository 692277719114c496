// Package document holds an open document's raw text together with the
// cleaned prose derived from it, and translates coordinates between the two.
package document

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/kianmeng/textLSP/internal/changes"
	"github.com/kianmeng/textLSP/internal/clean"
	"github.com/kianmeng/textLSP/internal/paragraph"
	"github.com/kianmeng/textLSP/internal/text"
)

var log = commonlog.GetLogger("textlsp.document")

// State tells whether the cleaned text matches the raw text.
type State int

const (
	Dirty State = iota
	Clean
)

func (s State) String() string {
	if s == Clean {
		return "clean"
	}
	return "dirty"
}

// ErrBadEdit reports an edit whose range cannot be applied.
var ErrBadEdit = errors.New("invalid edit")

// Document is safe for concurrent use. Readers of the cleaned text that
// find it dirty rebuild it once; concurrent readers wait for that result.
type Document struct {
	uri        string
	languageID string
	syntax     clean.Syntax

	// editMu is held across an edit and whatever must see it first, see
	// Hold. It is taken before cleanMu.
	editMu sync.Mutex

	// cleanMu guards the cleaned state. It is taken before mu.
	cleanMu  sync.Mutex
	state    State
	result   *clean.Result
	cleanErr error
	runs     int

	mu      sync.RWMutex
	text    string
	lines   *text.Converter
	version int32
}

// New creates a document. Its cleaned text is built on first use.
func New(uri, languageID string, version int32, content string, syntax clean.Syntax) *Document {
	return &Document{
		uri:        uri,
		languageID: languageID,
		syntax:     syntax,
		text:       content,
		lines:      text.NewConverter(content),
		version:    version,
	}
}

func (d *Document) URI() string        { return d.uri }
func (d *Document) LanguageID() string { return d.languageID }
func (d *Document) Syntax() string     { return d.syntax.Name }

// Text returns the raw text.
func (d *Document) Text() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.text
}

func (d *Document) Version() int32 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.version
}

func (d *Document) snapshot() (string, *text.Converter) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.text, d.lines
}

// State returns the state of the cleaned text without rebuilding it.
func (d *Document) State() State {
	d.cleanMu.Lock()
	defer d.cleanMu.Unlock()
	return d.state
}

// Cleanings returns how many times the cleaned text was built.
func (d *Document) Cleanings() int {
	d.cleanMu.Lock()
	defer d.cleanMu.Unlock()
	return d.runs
}

// cleaned returns the cleaned text and index, rebuilding them when dirty.
// A failed build is kept until the next edit.
func (d *Document) cleaned() (*clean.Result, error) {
	d.cleanMu.Lock()
	defer d.cleanMu.Unlock()

	if d.state == Clean {
		return d.result, d.cleanErr
	}
	src, lines := d.snapshot()
	d.result, d.cleanErr = clean.Run(context.Background(), src, lines, d.syntax)
	d.state = Clean
	d.runs++

	switch {
	case errors.Is(d.cleanErr, clean.ErrInvariant):
		log.Errorf("%s: cleaning disabled: %v", d.uri, d.cleanErr)
	case d.cleanErr != nil:
		log.Warningf("%s: no cleaned text: %v", d.uri, d.cleanErr)
	default:
		log.Debugf("%s: cleaned %d bytes into %d", d.uri, len(src), len(d.result.Text))
	}
	return d.result, d.cleanErr
}

// CleanedText returns the prose extracted from the raw text.
func (d *Document) CleanedText() (string, error) {
	res, err := d.cleaned()
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// Hold keeps edits made under Hold from being applied until release is
// called. The workspace applies each edit under it, after showing the edit
// to its observers, so a holder reads a text and tracked changes that agree.
func (d *Document) Hold() (release func()) {
	d.editMu.Lock()
	return d.editMu.Unlock
}

// ApplyEdit applies one content change and marks the cleaned text dirty.
// Out-of-range positions are clamped to the text.
func (d *Document) ApplyEdit(edit text.Edit, version int32) error {
	d.cleanMu.Lock()
	defer d.cleanMu.Unlock()
	d.mu.Lock()
	defer d.mu.Unlock()

	if edit.Whole() {
		d.text = edit.Text
	} else {
		start := d.lines.OffsetAtClamped(edit.Range.Start)
		end := d.lines.OffsetAtClamped(edit.Range.End)
		if end < start {
			return fmt.Errorf("%w: %s ends before it starts", ErrBadEdit, *edit.Range)
		}
		d.text = d.text[:start] + edit.Text + d.text[end:]
	}
	d.lines = text.NewConverter(d.text)
	d.version = version
	d.state, d.result, d.cleanErr = Dirty, nil, nil
	return nil
}

// PositionAt converts an offset of the raw or cleaned text to a position in
// the raw text. Cleaned offsets resolve through the index to the source of
// the fragment containing them.
func (d *Document) PositionAt(offset int, cleaned bool) (text.Position, bool) {
	if !cleaned {
		_, lines := d.snapshot()
		return lines.PositionAt(offset)
	}
	res, err := d.cleaned()
	if err != nil {
		return text.Position{}, false
	}
	e, ok := res.Index.AtOffset(offset)
	if !ok {
		return text.Position{}, false
	}
	p := e.Range.Start
	p.Character += uint32(text.UTF16Len(e.Value[:offset-e.Offset.Start]))
	return p, true
}

// OffsetAt converts a raw position to an offset of the raw or cleaned text.
// A position with no cleaned text at it has no cleaned offset.
func (d *Document) OffsetAt(pos text.Position, cleaned bool) (int, bool) {
	if !cleaned {
		_, lines := d.snapshot()
		return lines.OffsetAt(pos)
	}
	res, err := d.cleaned()
	if err != nil {
		return 0, false
	}
	e, ok := res.Index.AtPosition(pos, true)
	if !ok {
		return 0, false
	}
	n, ok := text.ByteOffset(e.Value, int(pos.Character-e.Range.Start.Character))
	if !ok {
		return 0, false
	}
	return e.Offset.Start + n, true
}

// NearestCleanedOffset is OffsetAt for cleaned text, except that a position
// between fragments resolves to the start of the next one and a position
// after all of them to the end of the cleaned text.
func (d *Document) NearestCleanedOffset(pos text.Position) (int, bool) {
	res, err := d.cleaned()
	if err != nil {
		return 0, false
	}
	e, ok := res.Index.AtPosition(pos, false)
	if !ok {
		return len(res.Text), true
	}
	if !e.Range.Contains(pos) {
		return e.Offset.Start, true
	}
	n, _ := text.ByteOffset(e.Value, int(pos.Character-e.Range.Start.Character))
	return e.Offset.Start + n, true
}

// RangeAt returns the raw range covering length bytes of the raw or cleaned
// text from offset. Ranges running past the end are clamped, and so are
// synthesized characters standing past the end of their line.
func (d *Document) RangeAt(offset, length int, cleaned bool) (text.Range, bool) {
	_, lines := d.snapshot()
	if !cleaned {
		return lines.RangeAt(offset, length)
	}
	if length < 0 {
		return text.Range{}, false
	}
	res, err := d.cleaned()
	if err != nil {
		return text.Range{}, false
	}
	start, ok := d.PositionAt(offset, true)
	if !ok {
		return text.Range{}, false
	}
	start = clampToLine(lines, start)
	if length == 0 {
		return text.Range{Start: start, End: start}, true
	}
	last := min(offset+length, len(res.Text)) - 1
	e, _ := res.Index.AtOffset(last)
	end := e.Range.Start
	end.Character += uint32(text.UTF16Len(e.Value[:last+1-e.Offset.Start]))
	if e.Range.End.Before(end) {
		end = e.Range.End
	}
	return text.Range{Start: start, End: clampToLine(lines, end)}, true
}

// clampToLine moves a position past the end of its line back to the end.
func clampToLine(lines *text.Converter, p text.Position) text.Position {
	if int(p.Line) >= lines.LineCount() {
		return lines.LastPosition()
	}
	q, _ := lines.PositionAt(lines.OffsetAtClamped(p))
	return q
}

// LastPosition returns the position after the last raw character.
func (d *Document) LastPosition() text.Position {
	_, lines := d.snapshot()
	return lines.LastPosition()
}

// ParagraphAt returns the paragraph of the raw or cleaned text containing
// offset, extended to at least minLength bytes where the text allows.
func (d *Document) ParagraphAt(offset, minLength int, cleaned bool) (text.Interval, bool) {
	src, err := d.source(cleaned)
	if err != nil {
		return text.Interval{}, false
	}
	return paragraph.At(src, offset, minLength)
}

// ParagraphsIn returns the paragraphs of the raw or cleaned text that the
// raw range rng overlaps.
func (d *Document) ParagraphsIn(rng text.Range, cleaned bool) []text.Interval {
	if !cleaned {
		src, lines := d.snapshot()
		return paragraph.InRange(src, lines, rng)
	}
	res, err := d.cleaned()
	if err != nil {
		return nil
	}
	start, _ := d.NearestCleanedOffset(rng.Start)
	end, _ := d.NearestCleanedOffset(rng.End)
	return paragraph.InSpan(res.Text, start, end)
}

func (d *Document) source(cleaned bool) (string, error) {
	if cleaned {
		return d.CleanedText()
	}
	return d.Text(), nil
}

// ResolveOffset maps a raw position to an offset of the raw or cleaned
// text, clamped to it.
func (d *Document) ResolveOffset(pos text.Position, cleaned bool) int {
	if !cleaned {
		_, lines := d.snapshot()
		return lines.OffsetAtClamped(pos)
	}
	n, _ := d.NearestCleanedOffset(pos)
	return n
}

// Len returns the length of the raw or cleaned text. A document without
// cleaned text has a cleaned length of zero.
func (d *Document) Len(cleaned bool) int {
	src, _ := d.source(cleaned)
	return len(src)
}

// NewTracker returns a change tracker following the raw or cleaned text.
func (d *Document) NewTracker(cleaned bool) *changes.Tracker {
	return changes.New(d, cleaned)
}
