package index_test

import (
	"testing"

	"github.com/kianmeng/textLSP/internal/index"
	"github.com/kianmeng/textLSP/internal/text"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pos(line, char uint32) text.Position {
	return text.Position{Line: line, Character: char}
}

// sample indexes "Intro\n\nSome text." as cleaned from
// "\section{Intro}\nSome text.".
func sample() *index.Index {
	x := index.New(0)
	x.Add(0, 5, pos(0, 9), pos(0, 14), "Intro")
	x.Add(5, 6, pos(0, 14), pos(0, 15), "\n")
	x.Add(6, 7, pos(0, 15), pos(0, 16), "\n")
	x.Add(7, 11, pos(1, 0), pos(1, 4), "Some")
	x.Add(11, 12, pos(1, 4), pos(1, 5), " ")
	x.Add(12, 17, pos(1, 5), pos(1, 10), "text.")
	return x
}

func TestAtOffset(t *testing.T) {
	x := sample()
	require.NoError(t, x.Validate(17))

	tests := []struct {
		offset int
		want   string
		ok     bool
	}{
		{0, "Intro", true},
		{4, "Intro", true},
		{5, "\n", true},
		{7, "Some", true},
		{16, "text.", true},
		{17, "", false},
		{-1, "", false},
	}
	for _, tt := range tests {
		e, ok := x.AtOffset(tt.offset)
		assert.Equal(t, tt.ok, ok, "offset %d", tt.offset)
		assert.Equal(t, tt.want, e.Value, "offset %d", tt.offset)
	}
}

func TestAtPosition(t *testing.T) {
	x := sample()

	tests := []struct {
		name   string
		pos    text.Position
		strict bool
		want   string
		ok     bool
	}{
		{"inside title", pos(0, 10), true, "Intro", true},
		{"command before title strict", pos(0, 3), true, "", false},
		{"command before title nearest", pos(0, 3), false, "Intro", true},
		{"second line first word", pos(1, 2), true, "Some", true},
		{"synthesized space", pos(1, 4), true, " ", true},
		{"after the last entry", pos(1, 10), false, "", false},
		{"line with no entries", pos(4, 0), false, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, ok := x.AtPosition(tt.pos, tt.strict)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, e.Value)
		})
	}
}

// A position in whitespace that no entry covers resolves to the following
// content only when the lookup is not strict.
func TestAtPositionGap(t *testing.T) {
	x := index.New(0)
	x.Add(0, 5, pos(0, 0), pos(0, 5), "Hello")
	x.Add(5, 6, pos(0, 7), pos(0, 8), " ")
	x.Add(6, 11, pos(0, 8), pos(0, 13), "world")

	_, ok := x.AtPosition(pos(0, 6), true)
	assert.False(t, ok)

	e, ok := x.AtPosition(pos(0, 6), false)
	require.True(t, ok)
	assert.Equal(t, " ", e.Value)

	// A gap between lines falls through to the next line's first entry.
	y := index.New(0)
	y.Add(0, 3, pos(0, 0), pos(0, 3), "one")
	y.Add(3, 6, pos(2, 4), pos(2, 7), "two")
	_, ok = y.AtPosition(pos(1, 0), true)
	assert.False(t, ok)
	e, ok = y.AtPosition(pos(1, 0), false)
	require.True(t, ok)
	assert.Equal(t, "two", e.Value)
}

func TestSortOutOfOrder(t *testing.T) {
	x := index.New(3)
	x.Add(6, 11, pos(0, 6), pos(0, 11), "world")
	x.Add(0, 5, pos(0, 0), pos(0, 5), "Hello")
	x.Add(5, 6, pos(0, 5), pos(0, 6), " ")
	x.Sort()

	require.NoError(t, x.Validate(11))
	assert.Equal(t, "Hello world", x.Text())

	e, ok := x.AtOffset(8)
	require.True(t, ok)
	assert.Equal(t, "world", e.Value)
	assert.Equal(t, pos(0, 6), e.Range.Start)
}

func TestValidateRejectsGaps(t *testing.T) {
	x := index.New(0)
	x.Add(0, 2, pos(0, 0), pos(0, 2), "ab")
	x.Add(3, 4, pos(0, 3), pos(0, 4), "c")
	assert.Error(t, x.Validate(4))

	y := index.New(0)
	y.Add(0, 2, pos(0, 0), pos(0, 2), "ab")
	assert.Error(t, y.Validate(3))
}

func TestValidateRejectsOverlap(t *testing.T) {
	x := index.New(0)
	x.Add(0, 5, pos(0, 9), pos(0, 14), "Intro")
	x.Add(5, 6, pos(0, 14), pos(0, 15), "\n")
	x.Add(6, 7, pos(0, 15), pos(0, 16), "\n")
	x.Add(7, 11, pos(0, 15), pos(0, 19), "Some")
	assert.Error(t, x.Validate(11))
}

func TestEmptyRangeEntry(t *testing.T) {
	x := index.New(0)
	x.Add(0, 5, pos(0, 9), pos(0, 14), "Intro")
	x.Add(5, 6, pos(0, 14), pos(0, 15), "\n")
	x.Add(6, 7, pos(0, 15), pos(0, 15), "\n")
	x.Add(7, 11, pos(0, 15), pos(0, 19), "Some")
	require.NoError(t, x.Validate(11))

	for _, strict := range []bool{true, false} {
		e, ok := x.AtPosition(pos(0, 15), strict)
		require.True(t, ok)
		assert.Equal(t, "Some", e.Value)
	}
	e, ok := x.AtOffset(6)
	require.True(t, ok)
	assert.Equal(t, pos(0, 15), e.Range.Start)
}

func TestAll(t *testing.T) {
	x := sample()
	var values []string
	for _, e := range x.All() {
		values = append(values, e.Value)
	}
	assert.Equal(t, []string{"Intro", "\n", "\n", "Some", " ", "text."}, values)
	assert.Equal(t, "Intro\n\nSome text.", x.Text())
}
