package text

import (
	"sort"
	"strings"
)

// Converter maps between byte offsets and positions over one immutable
// string. Line starts are kept as a prefix sum of line lengths, so line
// lookup is a binary search; the character column is then measured inside
// that single line.
type Converter struct {
	text       string
	lineStarts []int
}

// NewConverter indexes the lines of s. Lines are split on '\n' and each line
// keeps its terminator in its length; the text after the last '\n' is the
// final line, even when empty.
func NewConverter(s string) *Converter {
	starts := make([]int, 1, strings.Count(s, "\n")+1)
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &Converter{text: s, lineStarts: starts}
}

// Text returns the indexed string.
func (c *Converter) Text() string { return c.text }

// Len returns the length of the indexed string in bytes.
func (c *Converter) Len() int { return len(c.text) }

// LineCount returns the number of lines, counting the one after a trailing
// newline.
func (c *Converter) LineCount() int { return len(c.lineStarts) }

// Line returns the content of line n without its terminator.
func (c *Converter) Line(n int) (string, bool) {
	if n < 0 || n >= len(c.lineStarts) {
		return "", false
	}
	return c.text[c.lineStarts[n]:c.lineEnd(n)], true
}

// lineEnd is the offset of line n's terminator, or the text length for the
// final line.
func (c *Converter) lineEnd(n int) int {
	if n+1 < len(c.lineStarts) {
		return c.lineStarts[n+1] - 1
	}
	return len(c.text)
}

// lineOf returns the line containing offset.
func (c *Converter) lineOf(offset int) int {
	return sort.Search(len(c.lineStarts), func(i int) bool {
		return c.lineStarts[i] > offset
	}) - 1
}

// PositionAt converts an offset in [0, Len()] to a position.
func (c *Converter) PositionAt(offset int) (Position, bool) {
	if offset < 0 || offset > len(c.text) {
		return Position{}, false
	}
	line := c.lineOf(offset)
	start := c.lineStarts[line]
	return Position{
		Line:      uint32(line),
		Character: uint32(UTF16Len(c.text[start:offset])),
	}, true
}

// OffsetAt converts a position to an offset. The character may point at the
// line terminator but not past it.
func (c *Converter) OffsetAt(pos Position) (int, bool) {
	line := int(pos.Line)
	if line >= len(c.lineStarts) {
		return 0, false
	}
	start := c.lineStarts[line]
	n, ok := ByteOffset(c.text[start:c.lineEnd(line)], int(pos.Character))
	if !ok {
		return 0, false
	}
	return start + n, true
}

// OffsetAtClamped is OffsetAt with positions past the end of a line clamped
// to its terminator and positions past the last line clamped to the end of
// the text. Editors send such positions for edits at the document end.
func (c *Converter) OffsetAtClamped(pos Position) int {
	line := int(pos.Line)
	if line >= len(c.lineStarts) {
		return len(c.text)
	}
	start, end := c.lineStarts[line], c.lineEnd(line)
	n, ok := ByteOffset(c.text[start:end], int(pos.Character))
	if !ok {
		return end
	}
	return start + n
}

// RangeAt returns the range covering length bytes from offset. The end is
// clamped to the end of the text.
func (c *Converter) RangeAt(offset, length int) (Range, bool) {
	start, ok := c.PositionAt(offset)
	if !ok || length < 0 {
		return Range{}, false
	}
	end, _ := c.PositionAt(min(offset+length, len(c.text)))
	return Range{Start: start, End: end}, true
}

// LastPosition returns the position just after the last character.
func (c *Converter) LastPosition() Position {
	p, _ := c.PositionAt(len(c.text))
	return p
}
