package clean

import (
	"sort"
	"strings"

	"github.com/kianmeng/textLSP/internal/text"
)

// joiner applies the joining policy shared by the markup emitters. Content
// is added as byte ranges of the source; the joiner decides which spaces
// and paragraph breaks to synthesize between them:
//
//   - a structure (heading title, list item, block) closing at or before the
//     next content, or a blank source line before it, yields one paragraph
//     break ("\n\n");
//   - a structure opening after content also yields a break;
//   - content separated from the previous content by whitespace on the same
//     line, or by a line end, yields a single space.
//
// Synthesized fragments are positioned right after the previous content so
// positions never go backwards. A break is emitted only once the content
// following it is known; its newlines take the columns left before that
// content and collapse to empty ranges at its start when none are left.
type joiner struct {
	src       Source
	yield     func(Fragment) bool
	separator func(byte) bool

	stopped bool
	hasLast bool
	last    Fragment
	lastEnd int  // byte offset after the last content fragment
	due     bool // a paragraph break goes before the next content
	pending []int
}

func newJoiner(src Source, yield func(Fragment) bool, separator func(byte) bool) *joiner {
	return &joiner{src: src, yield: yield, separator: separator}
}

func (j *joiner) emit(f Fragment) {
	if j.stopped {
		return
	}
	if !j.yield(f) {
		j.stopped = true
	}
}

func (j *joiner) position(offset int) text.Position {
	p, _ := j.src.Lines.PositionAt(offset)
	return p
}

// content adds the source bytes [start, end), which must lie on one line.
func (j *joiner) content(start, end int) {
	if start >= end || j.stopped {
		return
	}
	for len(j.pending) > 0 && j.pending[0] <= start {
		j.due = true
		j.pending = j.pending[1:]
	}

	startPos := j.position(start)
	if j.hasLast && j.blankLineBetween(j.last.End.Line, startPos.Line) {
		j.due = true
	}
	switch {
	case j.due:
		j.paragraphBreak(startPos)
	case j.needsSpace(start, startPos):
		j.space(startPos)
	}

	f := Fragment{Text: j.src.Text[start:end], Start: startPos, End: j.position(end)}
	j.emit(f)
	j.last, j.lastEnd, j.hasLast, j.due = f, end, true, false
}

// structure registers a node spanning up to end: a break is due before its
// content and another once content follows its end.
func (j *joiner) structure(end int) {
	i := sort.SearchInts(j.pending, end)
	j.pending = append(j.pending, 0)
	copy(j.pending[i+1:], j.pending[i:])
	j.pending[i] = end
	j.due = true
}

// paragraphBreak emits "\n\n" between the last content and content starting
// at next.
func (j *joiner) paragraphBreak(next text.Position) {
	if !j.hasLast {
		return
	}
	p := j.last.End
	for range 2 {
		end := text.Position{Line: p.Line, Character: p.Character + 1}
		if next.Before(end) {
			end = p
		}
		j.emit(Fragment{Text: "\n", Start: p, End: end})
		p = end
	}
}

func (j *joiner) needsSpace(start int, startPos text.Position) bool {
	if !j.hasLast {
		return false
	}
	if startPos.Line != j.last.End.Line {
		return true
	}
	for i := j.lastEnd; i < start; i++ {
		if j.separator(j.src.Text[i]) {
			return true
		}
	}
	return false
}

// space emits a space standing on the whitespace before startPos, or on the
// line end after the previous content when startPos begins a new line.
func (j *joiner) space(startPos text.Position) {
	if startPos.Line == j.last.End.Line {
		j.emit(Fragment{
			Text:  " ",
			Start: text.Position{Line: startPos.Line, Character: startPos.Character - 1},
			End:   startPos,
		})
		return
	}
	p := j.last.End
	j.emit(Fragment{
		Text:  " ",
		Start: p,
		End:   text.Position{Line: p.Line, Character: p.Character + 1},
	})
}

// blankLineBetween reports a whitespace-only line strictly between lines a
// and b.
func (j *joiner) blankLineBetween(a, b uint32) bool {
	for l := a + 1; l < b; l++ {
		line, _ := j.src.Lines.Line(int(l))
		if strings.TrimSpace(line) == "" {
			return true
		}
	}
	return false
}
