package clean

import (
	"context"
	"iter"

	"github.com/kianmeng/textLSP/internal/syntax"
	"github.com/kianmeng/textLSP/internal/text"
)

// plainParser yields a single root node over the whole source.
var plainParser = syntax.ParserFunc(func(_ context.Context, source []byte) (syntax.Tree, error) {
	return plainTree{end: len(source)}, nil
})

type plainTree struct{ end int }

func (t plainTree) Root() syntax.Node { return plainNode(t) }
func (plainTree) Close()              {}

type plainNode struct{ end int }

func (plainNode) Type() string          { return "document" }
func (plainNode) StartByte() int        { return 0 }
func (n plainNode) EndByte() int        { return n.end }
func (plainNode) ChildCount() int       { return 0 }
func (plainNode) Child(int) syntax.Node { return nil }

// plainEmitter reproduces the source unchanged: one fragment per line plus
// the line terminator itself.
type plainEmitter struct{}

func (plainEmitter) Emit(_ syntax.Tree, src Source) iter.Seq[Fragment] {
	return func(yield func(Fragment) bool) {
		n := src.Lines.LineCount()
		for i := range n {
			line, _ := src.Lines.Line(i)
			w := uint32(text.UTF16Len(line))
			l := uint32(i)
			if line != "" && !yield(Fragment{
				Text:  line,
				Start: text.Position{Line: l},
				End:   text.Position{Line: l, Character: w},
			}) {
				return
			}
			if i < n-1 && !yield(Fragment{
				Text:  "\n",
				Start: text.Position{Line: l, Character: w},
				End:   text.Position{Line: l, Character: w + 1},
			}) {
				return
			}
		}
	}
}
