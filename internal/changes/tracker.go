// Package changes records which parts of a document changed since a
// consumer last looked, as a run-length ledger over the document's raw or
// cleaned text.
package changes

import (
	"sync"

	"github.com/kianmeng/textLSP/internal/text"
)

// Target is the text a Tracker follows.
type Target interface {
	// ResolveOffset maps a raw position to an offset of the raw or cleaned
	// text, clamped to that text.
	ResolveOffset(pos text.Position, cleaned bool) int
	// Len is the current length of the raw or cleaned text.
	Len(cleaned bool) int
}

// Tracker is safe for concurrent use. Update must see each edit before the
// edit is applied to the target, since positions refer to the old text, and
// Drain or Reset must not run between the two: the ledger would start over
// from the length of a text the edit has not reached yet.
type Tracker struct {
	mu      sync.Mutex
	target  Target
	cleaned bool
	runs    ledger
	whole   bool
}

// New returns a Tracker with nothing changed.
func New(target Target, cleaned bool) *Tracker {
	t := &Tracker{target: target, cleaned: cleaned}
	t.Reset()
	return t
}

// Cleaned reports whether the tracker follows the cleaned text.
func (t *Tracker) Cleaned() bool { return t.cleaned }

// Update records an edit. A whole-document replacement marks everything
// changed, after which further edits are ignored until Reset.
func (t *Tracker) Update(edit text.Edit) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.whole {
		return
	}
	if edit.Whole() {
		t.whole = true
		t.runs = ledger{{Length: -1, Changed: true}}
		return
	}
	start := t.target.ResolveOffset(edit.Range.Start, t.cleaned)
	end := t.target.ResolveOffset(edit.Range.End, t.cleaned)
	if end < start {
		start, end = end, start
	}
	t.runs.apply(start, end-start, len(edit.Text))
}

// Changes returns the changed intervals against the target's current
// length, in order.
func (t *Tracker) Changes() []text.Interval {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.changes()
}

// Drain returns the changes and resets the tracker in one step, so no
// update lands between the two.
func (t *Tracker) Drain() []text.Interval {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := t.changes()
	t.reset()
	return out
}

func (t *Tracker) changes() []text.Interval {
	length := t.target.Len(t.cleaned)
	if t.whole {
		return []text.Interval{{Start: 0, Length: length}}
	}

	var out []text.Interval
	pos := 0
	for _, r := range t.runs {
		end := pos + r.Span()
		if r.Changed {
			var start int
			if r.Length < 0 {
				start = max(0, end+r.Length)
			} else {
				start = max(0, min(pos, length-1))
			}
			start = min(start, length)
			out = append(out, text.Interval{Start: start, Length: max(0, min(r.Span(), length-start))})
		}
		pos = end
	}
	return out
}

// Len returns the number of changed runs.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for _, r := range t.runs {
		if r.Changed {
			n++
		}
	}
	return n
}

// Runs returns a copy of the ledger.
func (t *Tracker) Runs() []Run {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Run(nil), t.runs...)
}

// Reset forgets all changes, starting over from the target's current text.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reset()
}

func (t *Tracker) reset() {
	t.whole = false
	t.runs = ledger{{Length: t.target.Len(t.cleaned)}}
	t.runs.merge()
}
