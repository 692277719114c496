// Package latex is a tolerant LaTeX parser producing trees shaped like
// those of the tree-sitter-latex grammar: source_file, sectioning nodes
// (part ... subparagraph) owning the content up to the next heading of the
// same or a higher level, curly_group, text/word, generic_environment with
// begin/end, enum_item, math and verbatim blocks, comments and commands.
//
// The parser never fails on malformed input; unbalanced groups and
// environments end at the end of the document.
package latex

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/kianmeng/textLSP/internal/syntax"
)

// Node types produced by the parser.
const (
	SourceFile         = "source_file"
	Text               = "text"
	Word               = "word"
	CurlyGroup         = "curly_group"
	CurlyGroupText     = "curly_group_text"
	BrackGroup         = "brack_group"
	Comment            = "comment"
	GenericCommand     = "generic_command"
	CommandName        = "command_name"
	LineBreak          = "line_break"
	GenericEnvironment = "generic_environment"
	MathEnvironment    = "math_environment"
	VerbatimEnv        = "verbatim_environment"
	Begin              = "begin"
	End                = "end"
	EnumItem           = "enum_item"
	InlineFormula      = "inline_formula"
	DisplayedEquation  = "displayed_equation"
	Verb               = "verb"
)

// Sectioning commands and their nesting level.
var sectionLevels = map[string]int{
	"part":          0,
	"chapter":       1,
	"section":       2,
	"subsection":    3,
	"subsubsection": 4,
	"paragraph":     5,
	"subparagraph":  6,
}

// SectionLevel reports the nesting level of a sectioning node type.
func SectionLevel(kind string) (int, bool) {
	l, ok := sectionLevels[kind]
	return l, ok
}

// Commands whose arguments are names, keys or paths rather than prose.
var rawArgCommands = map[string]string{
	"label":               "label_definition",
	"ref":                 "label_reference",
	"eqref":               "label_reference",
	"pageref":             "label_reference",
	"autoref":             "label_reference",
	"nameref":             "label_reference",
	"cref":                "label_reference",
	"Cref":                "label_reference",
	"cite":                "citation",
	"citep":               "citation",
	"citet":               "citation",
	"citealp":             "citation",
	"parencite":           "citation",
	"textcite":            "citation",
	"autocite":            "citation",
	"footcite":            "citation",
	"nocite":              "citation",
	"usepackage":          "package_include",
	"RequirePackage":      "package_include",
	"documentclass":       "class_include",
	"input":               "latex_include",
	"include":             "latex_include",
	"includeonly":         "latex_include",
	"subfile":             "latex_include",
	"includegraphics":     "graphics_include",
	"bibliography":        "bibtex_include",
	"addbibresource":      "bibtex_include",
	"bibliographystyle":   "bibstyle_include",
	"url":                 "hyperlink",
	"newcommand":          "new_command_definition",
	"renewcommand":        "new_command_definition",
	"providecommand":      "new_command_definition",
	"newenvironment":      "environment_definition",
	"renewenvironment":    "environment_definition",
	"DeclareMathOperator": "new_command_definition",
	"hspace":              GenericCommand,
	"vspace":              GenericCommand,
	"setlength":           GenericCommand,
	"addtolength":         GenericCommand,
	"setcounter":          GenericCommand,
	"addtocounter":        GenericCommand,
	"color":               GenericCommand,
	"pagestyle":           GenericCommand,
	"thispagestyle":       GenericCommand,
	"pagenumbering":       GenericCommand,
	"bibitem":             GenericCommand,
	"end":                 GenericCommand,
}

var mathEnvironments = map[string]bool{
	"equation": true, "equation*": true, "align": true, "align*": true,
	"gather": true, "gather*": true, "multline": true, "multline*": true,
	"eqnarray": true, "eqnarray*": true, "flalign": true, "flalign*": true,
	"alignat": true, "alignat*": true, "math": true, "displaymath": true,
}

var verbatimEnvironments = map[string]bool{
	"verbatim": true, "verbatim*": true, "Verbatim": true, "lstlisting": true,
	"minted": true, "comment": true, "tikzpicture": true, "filecontents": true,
}

// Environments whose mandatory arguments are layout specifications.
var environmentArgs = map[string]int{
	"tabular": 1, "tabular*": 2, "tabularx": 2, "array": 1, "minipage": 1,
	"multicols": 1, "thebibliography": 1, "wrapfigure": 2,
}

// Node is a parsed LaTeX node.
type Node struct {
	kind     string
	start    int
	end      int
	children []*Node
}

func (n *Node) Type() string    { return n.kind }
func (n *Node) StartByte() int  { return n.start }
func (n *Node) EndByte() int    { return n.end }
func (n *Node) ChildCount() int { return len(n.children) }

func (n *Node) Child(i int) syntax.Node {
	if i < 0 || i >= len(n.children) {
		return nil
	}
	return n.children[i]
}

func (n *Node) String() string {
	return fmt.Sprintf("%s[%d:%d]", n.kind, n.start, n.end)
}

// Tree is a parsed document.
type Tree struct {
	root *Node
}

func (t *Tree) Root() syntax.Node { return t.root }
func (t *Tree) Close()            {}

// Parser implements syntax.Parser for LaTeX.
type Parser struct{}

// Parse parses source. It fails only when ctx is done.
func (Parser) Parse(ctx context.Context, source []byte) (syntax.Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("latex: %w: %v", syntax.ErrParseUnavailable, err)
	}
	p := &parser{ctx: ctx, src: source}
	root := &Node{kind: SourceFile, end: len(source)}
	root.children = p.content(scope{level: -1})
	if p.err != nil {
		return nil, fmt.Errorf("latex: %w: %v", syntax.ErrParseUnavailable, p.err)
	}
	return &Tree{root: root}, nil
}

// scope lists the tokens that end the content being parsed without being
// consumed by it.
type scope struct {
	group bool // closing brace
	env   bool // \end
	item  bool // \item
	level int  // sectioning commands at this level or above; -1 for none
}

type parser struct {
	ctx   context.Context
	src   []byte
	pos   int
	steps int
	err   error
}

const cancelCheckInterval = 1024

func (p *parser) done() bool {
	if p.err != nil {
		return true
	}
	p.steps++
	if p.steps%cancelCheckInterval == 0 {
		p.err = p.ctx.Err()
	}
	return p.err != nil
}

func (p *parser) content(sc scope) []*Node {
	var nodes []*Node
	for p.pos < len(p.src) && !p.done() {
		c := p.src[p.pos]
		switch {
		case isSeparator(c):
			p.pos++
		case c == '%':
			nodes = append(nodes, p.comment())
		case c == '}':
			if sc.group {
				return nodes
			}
			p.pos++
		case c == '{':
			nodes = append(nodes, p.group(CurlyGroup))
		case c == '$':
			nodes = append(nodes, p.dollarMath())
		case c == '\\' && p.escapeAt(p.pos):
			nodes = append(nodes, p.text())
		case c == '\\':
			name := p.peekName()
			if stops(sc, name) {
				return nodes
			}
			nodes = append(nodes, p.command(sc))
		default:
			nodes = append(nodes, p.text())
		}
	}
	return nodes
}

func stops(sc scope, name string) bool {
	switch {
	case name == "end":
		return sc.env
	case name == "item":
		return sc.item
	}
	if l, ok := sectionLevels[trimStar(name)]; ok {
		return l <= sc.level
	}
	return false
}

func (p *parser) comment() *Node {
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] != '\n' {
		p.pos++
	}
	return &Node{kind: Comment, start: start, end: p.pos}
}

func (p *parser) group(kind string) *Node {
	n := &Node{kind: kind, start: p.pos}
	p.pos++
	n.children = p.content(scope{group: true, level: -1})
	if p.pos < len(p.src) && p.src[p.pos] == '}' {
		p.pos++
	}
	n.end = p.pos
	return n
}

// rawGroup skips a balanced {...} or [...] without parsing its content.
func (p *parser) rawGroup(kind string, open, close byte) *Node {
	n := &Node{kind: kind, start: p.pos}
	depth := 0
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == '\\':
			p.pos++
		case c == open:
			depth++
		case c == close:
			depth--
		}
		p.pos++
		if depth == 0 {
			break
		}
	}
	n.end = min(p.pos, len(p.src))
	p.pos = n.end
	return n
}

// text collects words separated only by whitespace.
func (p *parser) text() *Node {
	n := &Node{kind: Text, start: p.pos}
	for p.pos < len(p.src) {
		n.children = append(n.children, p.word())
		j := p.pos
		for j < len(p.src) && isSeparator(p.src[j]) {
			j++
		}
		if j >= len(p.src) || !p.wordStartsAt(j) {
			break
		}
		p.pos = j
	}
	n.end = n.children[len(n.children)-1].end
	return n
}

func (p *parser) word() *Node {
	n := &Node{kind: Word, start: p.pos}
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '\\' {
			if !p.escapeAt(p.pos) {
				break
			}
			p.pos += 2
			continue
		}
		if !isWordByte(c) {
			break
		}
		p.pos++
	}
	n.end = p.pos
	return n
}

func (p *parser) wordStartsAt(i int) bool {
	c := p.src[i]
	if c == '\\' {
		return p.escapeAt(i)
	}
	return isWordByte(c)
}

// escapeAt reports whether i starts an escaped special character such as
// \% or \&, which belongs to the surrounding word.
func (p *parser) escapeAt(i int) bool {
	if i+1 >= len(p.src) || p.src[i] != '\\' {
		return false
	}
	switch p.src[i+1] {
	case '%', '&', '#', '$', '_', '{', '}':
		return true
	}
	return false
}

func (p *parser) dollarMath() *Node {
	start := p.pos
	if p.pos+1 < len(p.src) && p.src[p.pos+1] == '$' {
		p.pos += 2
		p.skipTo("$$")
		return &Node{kind: DisplayedEquation, start: start, end: p.pos}
	}
	p.pos++
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '\\' {
			p.pos += 2
			continue
		}
		p.pos++
		if c == '$' {
			break
		}
	}
	p.pos = min(p.pos, len(p.src))
	return &Node{kind: InlineFormula, start: start, end: p.pos}
}

// skipTo moves past the next occurrence of delim, or to the end.
func (p *parser) skipTo(delim string) {
	for p.pos < len(p.src) {
		if p.src[p.pos] == '\\' && delim[0] != '\\' {
			p.pos += 2
			continue
		}
		if hasPrefixAt(p.src, p.pos, delim) {
			p.pos += len(delim)
			return
		}
		p.pos++
	}
	p.pos = len(p.src)
}

// peekName returns the control word at p.pos, including a trailing star.
func (p *parser) peekName() string {
	i := p.pos + 1
	for i < len(p.src) && isLetter(p.src[i]) {
		i++
	}
	if i == p.pos+1 {
		return ""
	}
	if i < len(p.src) && p.src[i] == '*' {
		i++
	}
	return string(p.src[p.pos+1 : i])
}

func (p *parser) command(sc scope) *Node {
	start := p.pos
	name := p.peekName()
	if name == "" {
		return p.controlSymbol()
	}
	p.pos += 1 + len(name)
	base := trimStar(name)

	if level, ok := sectionLevels[base]; ok {
		return p.section(start, base, level, sc)
	}
	switch base {
	case "begin":
		return p.environment(start, sc)
	case "item":
		return p.item(start, sc)
	case "verb":
		return p.verb(start)
	}

	nameNode := &Node{kind: CommandName, start: start, end: p.pos}
	if kind, ok := rawArgCommands[base]; ok {
		n := &Node{kind: kind, start: start, children: []*Node{nameNode}}
		for p.pos < len(p.src) && (p.src[p.pos] == '{' || p.src[p.pos] == '[') {
			if p.src[p.pos] == '{' {
				n.children = append(n.children, p.rawGroup(CurlyGroupText, '{', '}'))
			} else {
				n.children = append(n.children, p.rawGroup(BrackGroup, '[', ']'))
			}
		}
		n.end = p.pos
		return n
	}

	n := &Node{kind: GenericCommand, start: start, children: []*Node{nameNode}}
	for p.pos < len(p.src) && (p.src[p.pos] == '{' || p.src[p.pos] == '[') {
		if p.src[p.pos] == '{' {
			n.children = append(n.children, p.group(CurlyGroup))
		} else {
			n.children = append(n.children, p.rawGroup(BrackGroup, '[', ']'))
		}
	}
	n.end = p.pos
	return n
}

// controlSymbol handles a backslash followed by a non-letter: \\, \[ and \(.
func (p *parser) controlSymbol() *Node {
	start := p.pos
	if p.pos+1 >= len(p.src) {
		p.pos = len(p.src)
		return &Node{kind: GenericCommand, start: start, end: p.pos}
	}
	switch p.src[p.pos+1] {
	case '\\':
		p.pos += 2
		if p.pos < len(p.src) && p.src[p.pos] == '[' {
			p.rawGroup(BrackGroup, '[', ']')
		}
		return &Node{kind: LineBreak, start: start, end: p.pos}
	case '[':
		p.pos += 2
		p.skipTo(`\]`)
		return &Node{kind: DisplayedEquation, start: start, end: p.pos}
	case '(':
		p.pos += 2
		p.skipTo(`\)`)
		return &Node{kind: InlineFormula, start: start, end: p.pos}
	}
	_, size := utf8.DecodeRune(p.src[p.pos+1:])
	p.pos += 1 + size
	return &Node{kind: GenericCommand, start: start, end: p.pos}
}

func (p *parser) section(start int, kind string, level int, sc scope) *Node {
	n := &Node{kind: kind, start: start}
	end := p.pos
	if p.pos < len(p.src) && p.src[p.pos] == '[' {
		n.children = append(n.children, p.rawGroup(BrackGroup, '[', ']'))
		end = p.pos
	}
	j := p.pos
	for j < len(p.src) && (p.src[j] == ' ' || p.src[j] == '\t') {
		j++
	}
	if j < len(p.src) && p.src[j] == '{' {
		p.pos = j
		title := p.group(CurlyGroup)
		n.children = append(n.children, title)
		end = title.end
	}
	body := p.content(scope{group: sc.group, env: sc.env, item: sc.item, level: level})
	n.children = append(n.children, body...)
	n.end = lastEnd(end, body)
	return n
}

func (p *parser) item(start int, sc scope) *Node {
	n := &Node{kind: EnumItem, start: start}
	end := p.pos
	if p.pos < len(p.src) && p.src[p.pos] == '[' {
		n.children = append(n.children, p.rawGroup(BrackGroup, '[', ']'))
		end = p.pos
	}
	body := p.content(scope{group: sc.group, env: sc.env, item: true, level: sc.level})
	n.children = append(n.children, body...)
	n.end = lastEnd(end, body)
	return n
}

func (p *parser) verb(start int) *Node {
	if p.pos < len(p.src) {
		delim := p.src[p.pos]
		p.pos++
		for p.pos < len(p.src) && p.src[p.pos] != delim && p.src[p.pos] != '\n' {
			p.pos++
		}
		if p.pos < len(p.src) && p.src[p.pos] == delim {
			p.pos++
		}
	}
	return &Node{kind: Verb, start: start, end: p.pos}
}

// envName reads "{name}" at p.pos.
func (p *parser) envName() string {
	if p.pos >= len(p.src) || p.src[p.pos] != '{' {
		return ""
	}
	g := p.rawGroup(CurlyGroupText, '{', '}')
	if g.end-g.start < 2 {
		return ""
	}
	return string(p.src[g.start+1 : g.end-1])
}

func (p *parser) environment(start int, sc scope) *Node {
	name := p.envName()
	begin := &Node{kind: Begin, start: start, end: p.pos}

	if mathEnvironments[name] || verbatimEnvironments[name] {
		kind := MathEnvironment
		if verbatimEnvironments[name] {
			kind = VerbatimEnv
		}
		p.skipTo(`\end{` + name + `}`)
		return &Node{kind: kind, start: start, end: p.pos, children: []*Node{begin}}
	}

	n := &Node{kind: GenericEnvironment, start: start, children: []*Node{begin}}
	for p.pos < len(p.src) && p.src[p.pos] == '[' {
		n.children = append(n.children, p.rawGroup(BrackGroup, '[', ']'))
	}
	for range environmentArgs[name] {
		if p.pos < len(p.src) && p.src[p.pos] == '{' {
			n.children = append(n.children, p.rawGroup(CurlyGroupText, '{', '}'))
		}
	}
	n.children = append(n.children, p.content(scope{group: sc.group, env: true, level: -1})...)
	if p.pos < len(p.src) && p.src[p.pos] == '\\' && p.peekName() == "end" {
		endStart := p.pos
		p.pos += len(`\end`)
		p.envName()
		n.children = append(n.children, &Node{kind: End, start: endStart, end: p.pos})
	}
	n.end = p.pos
	return n
}

func lastEnd(end int, nodes []*Node) int {
	if len(nodes) > 0 {
		return max(end, nodes[len(nodes)-1].end)
	}
	return end
}

func hasPrefixAt(src []byte, i int, prefix string) bool {
	return len(src)-i >= len(prefix) && string(src[i:i+len(prefix)]) == prefix
}

func trimStar(name string) string {
	if n := len(name); n > 0 && name[n-1] == '*' {
		return name[:n-1]
	}
	return name
}

// isSeparator reports bytes that separate words: whitespace, the tie ~ and
// the alignment tab &.
func isSeparator(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', '\v', '~', '&':
		return true
	}
	return false
}

func isWordByte(c byte) bool {
	switch c {
	case '\\', '%', '{', '}', '$':
		return false
	}
	return !isSeparator(c)
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '@'
}
