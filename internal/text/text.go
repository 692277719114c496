// Package text holds the coordinate types shared by every layer of the
// server and the converter between linear offsets and line/character
// positions.
//
// Offsets are byte offsets into a UTF-8 string. The character axis of a
// Position counts UTF-16 code units, as the language server protocol requires.
package text

import (
	"fmt"
	"unicode/utf16"
	"unicode/utf8"
)

// Position is a zero-based line and UTF-16 character pair.
type Position struct {
	Line      uint32 `json:"line"`
	Character uint32 `json:"character"`
}

// Compare orders positions by line, then character.
func (p Position) Compare(o Position) int {
	switch {
	case p.Line < o.Line:
		return -1
	case p.Line > o.Line:
		return 1
	case p.Character < o.Character:
		return -1
	case p.Character > o.Character:
		return 1
	}
	return 0
}

func (p Position) Before(o Position) bool { return p.Compare(o) < 0 }
func (p Position) After(o Position) bool  { return p.Compare(o) > 0 }

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Character)
}

// Range is a half-open span of positions.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Contains reports whether p lies in [Start, End).
func (r Range) Contains(p Position) bool {
	return !p.Before(r.Start) && p.Before(r.End)
}

func (r Range) String() string {
	return fmt.Sprintf("%s-%s", r.Start, r.End)
}

// Interval is a (start, length) span over one coordinate space.
type Interval struct {
	Start  int
	Length int
}

func (i Interval) End() int { return i.Start + i.Length }

// Contains reports whether offset lies in [Start, End).
func (i Interval) Contains(offset int) bool {
	return offset >= i.Start && offset < i.End()
}

// Overlaps reports whether the two intervals share an offset. Empty
// intervals overlap an interval that contains their start.
func (i Interval) Overlaps(o Interval) bool {
	if i.Length == 0 {
		return o.Contains(i.Start) || i.Start == o.Start
	}
	if o.Length == 0 {
		return i.Contains(o.Start)
	}
	return i.Start < o.End() && o.Start < i.End()
}

func (i Interval) String() string {
	return fmt.Sprintf("(%d,%d)", i.Start, i.Length)
}

// Edit is one content change. A nil Range replaces the whole document.
type Edit struct {
	Range *Range
	Text  string
}

// Whole reports whether the edit replaces the whole document.
func (e Edit) Whole() bool { return e.Range == nil }

// UTF16Len returns the number of UTF-16 code units needed to encode s.
// Invalid UTF-8 bytes count as one unit each.
func UTF16Len(s string) int {
	n := 0
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		n += runeUnits(r)
		s = s[size:]
	}
	return n
}

// ByteOffset returns the byte offset in s that sits after units UTF-16 code
// units. A count that lands inside a surrogate pair rounds down to the start
// of that rune. It reports false when s is shorter than units.
func ByteOffset(s string, units int) (int, bool) {
	if units < 0 {
		return 0, false
	}
	offset, n := 0, 0
	for n < units {
		if offset >= len(s) {
			return 0, false
		}
		r, size := utf8.DecodeRuneInString(s[offset:])
		w := runeUnits(r)
		if n+w > units {
			return offset, true
		}
		n += w
		offset += size
	}
	return offset, true
}

func runeUnits(r rune) int {
	if w := utf16.RuneLen(r); w > 0 {
		return w
	}
	return 1
}
