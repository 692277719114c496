package clean

import (
	"iter"

	"github.com/kianmeng/textLSP/internal/syntax"
)

// Markdown block nodes that never hold prose.
var markdownSkipped = map[string]bool{
	"fenced_code_block":         true,
	"indented_code_block":       true,
	"html_block":                true,
	"link_reference_definition": true,
	"thematic_break":            true,
	"pipe_table":                true,
	"minus_metadata":            true,
	"plus_metadata":             true,
	"block_continuation":        true,
	"setext_h1_underline":       true,
	"setext_h2_underline":       true,
}

// Markdown blocks that end a paragraph even without a blank line after them.
var markdownStructures = map[string]bool{
	"atx_heading":    true,
	"setext_heading": true,
	"list_item":      true,
}

// markdownEmitter emits the inline content of the markdown block grammar,
// one fragment per source line with block markers trimmed. Inline markup
// such as emphasis is kept as written.
type markdownEmitter struct{}

func (markdownEmitter) Emit(tree syntax.Tree, src Source) iter.Seq[Fragment] {
	return func(yield func(Fragment) bool) {
		j := newJoiner(src, yield, isMarkdownSeparator)
		syntax.Walk(tree.Root(), func(n syntax.Node, _ []syntax.Node) bool {
			switch {
			case j.stopped || markdownSkipped[n.Type()]:
				return false
			case markdownStructures[n.Type()]:
				j.structure(n.EndByte())
			case n.Type() == "inline":
				emitInlineLines(j, n.StartByte(), n.EndByte())
				return false
			}
			return true
		})
	}
}

// emitInlineLines splits [start, end) at line breaks and adds each line
// without its leading indentation or block quote markers.
func emitInlineLines(j *joiner, start, end int) {
	s := j.src.Text
	for start < end {
		lineEnd := start
		for lineEnd < end && s[lineEnd] != '\n' {
			lineEnd++
		}
		a, b := start, lineEnd
		for a < b && (isMarkdownSeparator(s[a]) || s[a] == '>') {
			a++
		}
		for b > a && (isMarkdownSeparator(s[b-1]) || s[b-1] == '\r') {
			b--
		}
		j.content(a, b)
		start = lineEnd + 1
	}
}

func isMarkdownSeparator(c byte) bool {
	return c == ' ' || c == '\t'
}
