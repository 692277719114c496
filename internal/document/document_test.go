package document_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kianmeng/textLSP/internal/clean"
	"github.com/kianmeng/textLSP/internal/document"
	"github.com/kianmeng/textLSP/internal/syntax"
	"github.com/kianmeng/textLSP/internal/text"
)

const sectionDoc = "\\section{Intro}\nSome text."

func newDoc(t *testing.T, languageID, content string) *document.Document {
	t.Helper()
	s := clean.NewSyntaxes(1)
	t.Cleanup(func() { s.Close() })
	return document.New("file:///test", languageID, 1, content, s.ForLanguageID(languageID))
}

func pos(line, char uint32) text.Position {
	return text.Position{Line: line, Character: char}
}

func TestRawCoordinates(t *testing.T) {
	doc := newDoc(t, "plaintext", "Hello world.\n\nSecond paragraph.")

	p, ok := doc.PositionAt(14, false)
	require.True(t, ok)
	assert.Equal(t, pos(2, 0), p)

	o, ok := doc.OffsetAt(pos(2, 7), false)
	require.True(t, ok)
	assert.Equal(t, 21, o)

	_, ok = doc.PositionAt(100, false)
	assert.False(t, ok)

	par, ok := doc.ParagraphAt(0, 0, false)
	require.True(t, ok)
	assert.Equal(t, text.Interval{Start: 0, Length: 13}, par)

	assert.Equal(t, pos(2, 17), doc.LastPosition())
}

func TestCleanedCoordinates(t *testing.T) {
	doc := newDoc(t, "latex", sectionDoc)

	cleaned, err := doc.CleanedText()
	require.NoError(t, err)
	assert.Equal(t, "Intro\n\nSome text.", cleaned)

	p, ok := doc.PositionAt(7, true)
	require.True(t, ok)
	assert.Equal(t, pos(1, 0), p)

	p, ok = doc.PositionAt(2, true)
	require.True(t, ok)
	assert.Equal(t, pos(0, 11), p)

	o, ok := doc.OffsetAt(pos(1, 5), true)
	require.True(t, ok)
	assert.Equal(t, 12, o)

	// Inside the \section command: no cleaned text there.
	_, ok = doc.OffsetAt(pos(0, 3), true)
	assert.False(t, ok)
	o, ok = doc.NearestCleanedOffset(pos(0, 3))
	require.True(t, ok)
	assert.Equal(t, 0, o)

	o, ok = doc.NearestCleanedOffset(pos(5, 0))
	require.True(t, ok)
	assert.Equal(t, len(cleaned), o)

	_, ok = doc.PositionAt(len(cleaned), true)
	assert.False(t, ok)
}

func TestCleanedRangeAt(t *testing.T) {
	doc := newDoc(t, "latex", sectionDoc)

	r, ok := doc.RangeAt(7, 4, true)
	require.True(t, ok)
	assert.Equal(t, text.Range{Start: pos(1, 0), End: pos(1, 4)}, r)

	r, ok = doc.RangeAt(0, 5, true)
	require.True(t, ok)
	assert.Equal(t, text.Range{Start: pos(0, 9), End: pos(0, 14)}, r)

	r, ok = doc.RangeAt(12, 100, true)
	require.True(t, ok)
	assert.Equal(t, text.Range{Start: pos(1, 5), End: pos(1, 10)}, r)

	_, ok = doc.RangeAt(0, -1, true)
	assert.False(t, ok)
}

func TestCleanedRangeStaysOnLine(t *testing.T) {
	doc := newDoc(t, "latex", sectionDoc)

	// The paragraph break after the title stands past the end of line 0.
	r, ok := doc.RangeAt(0, 7, true)
	require.True(t, ok)
	assert.Equal(t, text.Range{Start: pos(0, 9), End: pos(0, 15)}, r)

	r, ok = doc.RangeAt(6, 1, true)
	require.True(t, ok)
	assert.Equal(t, text.Range{Start: pos(0, 15), End: pos(0, 15)}, r)

	// The space joining two lines stands on the end of the first.
	doc = newDoc(t, "latex", "one\ntwo")
	r, ok = doc.RangeAt(0, 4, true)
	require.True(t, ok)
	assert.Equal(t, text.Range{Start: pos(0, 0), End: pos(0, 3)}, r)

	glued := newDoc(t, "latex", "\\section{Intro}Some text.")
	r, ok = glued.RangeAt(5, 2, true)
	require.True(t, ok)
	assert.Equal(t, text.Range{Start: pos(0, 14), End: pos(0, 15)}, r)
}

func TestCleanedRoundTrip(t *testing.T) {
	for _, tt := range []struct{ languageID, content string }{
		{"latex", sectionDoc},
		{"latex", "Naïve café 😀 text.\n\nMore $m$ words\nhere."},
		{"plaintext", "line one\nline two 😀\n\nend"},
		{"latex", "\\section{Intro}Some text."},
		{"latex", "Intro \\begin{itemize}\\item One.\\item Two.\\end{itemize}"},
	} {
		doc := newDoc(t, tt.languageID, tt.content)
		cleaned, err := doc.CleanedText()
		require.NoError(t, err)

		for o := range len(cleaned) {
			if !isRuneStart(cleaned, o) {
				continue
			}
			p, ok := doc.PositionAt(o, true)
			require.True(t, ok, "offset %d", o)
			back, ok := doc.OffsetAt(p, true)
			if collapsed(doc, cleaned, o) {
				// A newline squeezed out of room sits on the next fragment.
				require.True(t, ok, "offset %d at %s", o, p)
				assert.Greater(t, back, o, "offset %d at %s", o, p)
				continue
			}
			require.True(t, ok, "offset %d at %s", o, p)
			assert.Equal(t, o, back, "offset %d at %s", o, p)
		}
	}
}

// collapsed reports a synthesized newline at offset that shares its
// position with the text after it.
func collapsed(doc *document.Document, cleaned string, offset int) bool {
	if cleaned[offset] != '\n' || offset+1 >= len(cleaned) {
		return false
	}
	p, _ := doc.PositionAt(offset, true)
	next, ok := doc.PositionAt(offset+1, true)
	return ok && next == p
}

func isRuneStart(s string, i int) bool {
	return s[i]&0xC0 != 0x80
}

func TestEditMarksDirty(t *testing.T) {
	doc := newDoc(t, "latex", sectionDoc)
	assert.Equal(t, document.Dirty, doc.State())

	_, err := doc.CleanedText()
	require.NoError(t, err)
	assert.Equal(t, document.Clean, doc.State())

	err = doc.ApplyEdit(text.Edit{
		Range: &text.Range{Start: pos(1, 5), End: pos(1, 9)},
		Text:  "words",
	}, 2)
	require.NoError(t, err)
	assert.Equal(t, document.Dirty, doc.State())
	assert.Equal(t, int32(2), doc.Version())
	assert.Equal(t, "\\section{Intro}\nSome words.", doc.Text())

	cleaned, err := doc.CleanedText()
	require.NoError(t, err)
	assert.Equal(t, "Intro\n\nSome words.", cleaned)
	assert.Equal(t, 2, doc.Cleanings())

	require.NoError(t, doc.ApplyEdit(text.Edit{Text: "plain"}, 3))
	cleaned, err = doc.CleanedText()
	require.NoError(t, err)
	assert.Equal(t, "plain", cleaned)
}

func TestBadEdit(t *testing.T) {
	doc := newDoc(t, "plaintext", "abc")
	err := doc.ApplyEdit(text.Edit{Range: &text.Range{Start: pos(0, 2), End: pos(0, 1)}}, 2)
	assert.ErrorIs(t, err, document.ErrBadEdit)
	assert.Equal(t, "abc", doc.Text())
}

func TestSingleRecompute(t *testing.T) {
	doc := newDoc(t, "latex", sectionDoc)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cleaned, err := doc.CleanedText()
			assert.NoError(t, err)
			assert.Equal(t, "Intro\n\nSome text.", cleaned)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, doc.Cleanings())
}

func TestParseUnavailable(t *testing.T) {
	failing := syntax.ParserFunc(func(context.Context, []byte) (syntax.Tree, error) {
		return nil, errors.New("no grammar")
	})
	doc := document.New("file:///x", "x", 1, "some text", clean.Syntax{Name: "x", Parser: failing})

	_, err := doc.CleanedText()
	assert.ErrorIs(t, err, syntax.ErrParseUnavailable)
	_, ok := doc.PositionAt(0, true)
	assert.False(t, ok)
	assert.Equal(t, 0, doc.Len(true))
	assert.Equal(t, 9, doc.Len(false))
	assert.Nil(t, doc.ParagraphsIn(text.Range{End: pos(0, 4)}, true))

	// Raw coordinates keep working.
	p, ok := doc.PositionAt(5, false)
	require.True(t, ok)
	assert.Equal(t, pos(0, 5), p)
}

func TestParagraphsIn(t *testing.T) {
	doc := newDoc(t, "latex", "\\section{Intro}\nSome text.\n\nMore text.")

	cleaned, err := doc.CleanedText()
	require.NoError(t, err)
	require.Equal(t, "Intro\n\nSome text.\n\nMore text.", cleaned)

	got := doc.ParagraphsIn(text.Range{Start: pos(1, 0), End: pos(3, 4)}, true)
	assert.Equal(t, []text.Interval{{Start: 7, Length: 11}, {Start: 18, Length: 1}, {Start: 19, Length: 10}}, got)

	got = doc.ParagraphsIn(text.Range{Start: pos(1, 0), End: pos(1, 2)}, false)
	assert.Equal(t, []text.Interval{{Start: 0, Length: 27}}, got)
}

func TestTracker(t *testing.T) {
	doc := newDoc(t, "plaintext", "Hello world.\n\nSecond paragraph.")
	tr := doc.NewTracker(false)

	edit := text.Edit{Range: &text.Range{Start: pos(2, 0), End: pos(2, 6)}, Text: "Third"}
	tr.Update(edit)
	require.NoError(t, doc.ApplyEdit(edit, 2))

	assert.Equal(t, []text.Interval{{Start: 13, Length: 6}}, tr.Changes())
	assert.Equal(t, 30, doc.Len(false))
}
