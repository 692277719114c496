package clean

import (
	"iter"

	"github.com/kianmeng/textLSP/internal/latex"
	"github.com/kianmeng/textLSP/internal/syntax"
)

// Nodes whose direct text children are prose.
var latexProseRoots = map[string]bool{
	latex.SourceFile:         true,
	"part":                   true,
	"chapter":                true,
	"section":                true,
	"subsection":             true,
	"subsubsection":          true,
	"paragraph":              true,
	"subparagraph":           true,
	latex.CurlyGroup:         true,
	latex.EnumItem:           true,
	latex.GenericEnvironment: true,
}

type latexEmitter struct{}

func (latexEmitter) Emit(tree syntax.Tree, src Source) iter.Seq[Fragment] {
	return func(yield func(Fragment) bool) {
		j := newJoiner(src, yield, isLatexSeparator)
		syntax.Walk(tree.Root(), func(n syntax.Node, ancestors []syntax.Node) bool {
			switch {
			case j.stopped:
				return false
			case isLatexStructure(n, ancestors):
				j.structure(n.EndByte())
			case n.Type() == latex.Word && isLatexProse(ancestors):
				j.content(n.StartByte(), n.EndByte())
			}
			return !j.stopped
		})
	}
}

// isLatexStructure matches list items and the titles of sectioning commands.
func isLatexStructure(n syntax.Node, ancestors []syntax.Node) bool {
	switch n.Type() {
	case latex.EnumItem:
		return true
	case latex.CurlyGroup:
		p := syntax.Parent(ancestors)
		if p == nil {
			return false
		}
		_, ok := latex.SectionLevel(p.Type())
		return ok
	}
	return false
}

// isLatexProse matches words of a text node placed directly in a prose root.
func isLatexProse(ancestors []syntax.Node) bool {
	if len(ancestors) < 2 {
		return false
	}
	return ancestors[len(ancestors)-1].Type() == latex.Text &&
		latexProseRoots[ancestors[len(ancestors)-2].Type()]
}

func isLatexSeparator(c byte) bool {
	switch c {
	case ' ', '\t', '~':
		return true
	}
	return false
}
