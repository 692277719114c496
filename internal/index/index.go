// Package index maps spans of cleaned text back to the source ranges they
// were taken from.
//
// Entries are stored column by column and searched with binary search over
// their end coordinates. Queries assume the entries are sorted by offset and
// that their end positions never decrease in that order, which the cleaning
// pipeline guarantees.
package index

import (
	"fmt"
	"iter"
	"sort"
	"strings"

	"github.com/kianmeng/textLSP/internal/text"
)

// Entry binds a span of cleaned offsets to a source range and the text
// emitted for it.
type Entry struct {
	Offset text.Interval
	Range  text.Range
	Value  string
}

// Index is an append-then-sort collection of entries.
type Index struct {
	offsetStart []int
	offsetEnd   []int // exclusive
	startLine   []uint32
	startChar   []uint32
	endLine     []uint32
	endChar     []uint32 // exclusive
	values      []string
}

// New returns an empty index with room for n entries.
func New(n int) *Index {
	return &Index{
		offsetStart: make([]int, 0, n),
		offsetEnd:   make([]int, 0, n),
		startLine:   make([]uint32, 0, n),
		startChar:   make([]uint32, 0, n),
		endLine:     make([]uint32, 0, n),
		endChar:     make([]uint32, 0, n),
		values:      make([]string, 0, n),
	}
}

// Add appends an entry for the cleaned span [offsetStart, offsetEnd) taken
// from the source range [start, end). Call Sort before querying if entries
// were not added in offset order.
func (x *Index) Add(offsetStart, offsetEnd int, start, end text.Position, value string) {
	x.offsetStart = append(x.offsetStart, offsetStart)
	x.offsetEnd = append(x.offsetEnd, offsetEnd)
	x.startLine = append(x.startLine, start.Line)
	x.startChar = append(x.startChar, start.Character)
	x.endLine = append(x.endLine, end.Line)
	x.endChar = append(x.endChar, end.Character)
	x.values = append(x.values, value)
}

// Len returns the number of entries.
func (x *Index) Len() int { return len(x.offsetStart) }

// At returns entry i.
func (x *Index) At(i int) Entry {
	return Entry{
		Offset: text.Interval{
			Start:  x.offsetStart[i],
			Length: x.offsetEnd[i] - x.offsetStart[i],
		},
		Range: text.Range{
			Start: text.Position{Line: x.startLine[i], Character: x.startChar[i]},
			End:   text.Position{Line: x.endLine[i], Character: x.endChar[i]},
		},
		Value: x.values[i],
	}
}

// All yields the entries in order.
func (x *Index) All() iter.Seq2[int, Entry] {
	return func(yield func(int, Entry) bool) {
		for i := range x.offsetStart {
			if !yield(i, x.At(i)) {
				return
			}
		}
	}
}

// Sort orders the entries by start offset. Entries appended in order are
// left untouched.
func (x *Index) Sort() {
	if sort.IntsAreSorted(x.offsetStart) {
		return
	}
	perm := make([]int, len(x.offsetStart))
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(a, b int) bool {
		return x.offsetStart[perm[a]] < x.offsetStart[perm[b]]
	})
	x.offsetStart = permute(x.offsetStart, perm)
	x.offsetEnd = permute(x.offsetEnd, perm)
	x.startLine = permute(x.startLine, perm)
	x.startChar = permute(x.startChar, perm)
	x.endLine = permute(x.endLine, perm)
	x.endChar = permute(x.endChar, perm)
	x.values = permute(x.values, perm)
}

func permute[T any](s []T, perm []int) []T {
	out := make([]T, len(s))
	for i, p := range perm {
		out[i] = s[p]
	}
	return out
}

// IndexAtOffset returns the index of the entry containing offset.
func (x *Index) IndexAtOffset(offset int) (int, bool) {
	i := sort.SearchInts(x.offsetEnd, offset+1)
	if i == len(x.offsetEnd) || x.offsetStart[i] > offset {
		return 0, false
	}
	return i, true
}

// AtOffset returns the entry containing offset.
func (x *Index) AtOffset(offset int) (Entry, bool) {
	i, ok := x.IndexAtOffset(offset)
	if !ok {
		return Entry{}, false
	}
	return x.At(i), true
}

// IndexAtPosition returns the index of the entry whose source range contains
// pos. With strict unset, a position that no entry contains resolves to the
// first entry ending after it, the one that encloses or follows it.
func (x *Index) IndexAtPosition(pos text.Position, strict bool) (int, bool) {
	n := len(x.endLine)
	// Run of entries ending on pos.Line.
	lo := sort.Search(n, func(i int) bool { return x.endLine[i] >= pos.Line })
	hi := lo + sort.Search(n-lo, func(i int) bool { return x.endLine[lo+i] > pos.Line })

	i := lo + sort.Search(hi-lo, func(i int) bool { return x.endChar[lo+i] > pos.Character })
	if i == n {
		return 0, false
	}
	if x.contains(i, pos) {
		return i, true
	}
	if strict {
		return 0, false
	}
	return i, true
}

// AtPosition returns the entry at pos, see IndexAtPosition.
func (x *Index) AtPosition(pos text.Position, strict bool) (Entry, bool) {
	i, ok := x.IndexAtPosition(pos, strict)
	if !ok {
		return Entry{}, false
	}
	return x.At(i), true
}

func (x *Index) contains(i int, pos text.Position) bool {
	start := text.Position{Line: x.startLine[i], Character: x.startChar[i]}
	end := text.Position{Line: x.endLine[i], Character: x.endChar[i]}
	return !pos.Before(start) && pos.Before(end)
}

// Text concatenates the entry values.
func (x *Index) Text() string {
	var b strings.Builder
	for _, v := range x.values {
		b.WriteString(v)
	}
	return b.String()
}

// Validate checks that the entries partition [0, length) in order, that
// each value fills its span and that no source range overlaps the previous
// one.
func (x *Index) Validate(length int) error {
	next := 0
	for i := range x.offsetStart {
		if x.offsetStart[i] != next {
			return fmt.Errorf("entry %d starts at %d, want %d", i, x.offsetStart[i], next)
		}
		if got := x.offsetEnd[i] - x.offsetStart[i]; got != len(x.values[i]) || got <= 0 {
			return fmt.Errorf("entry %d spans %d bytes for a %d byte value", i, got, len(x.values[i]))
		}
		if i > 0 && x.At(i).Range.Start.Before(x.At(i-1).Range.End) {
			return fmt.Errorf("entry %d starts at %s inside entry %d", i, x.At(i).Range.Start, i-1)
		}
		next = x.offsetEnd[i]
	}
	if next != length {
		return fmt.Errorf("entries cover %d bytes of %d", next, length)
	}
	return nil
}
