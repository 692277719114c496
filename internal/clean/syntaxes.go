package clean

import (
	"strings"

	"github.com/kianmeng/textLSP/internal/latex"
	"github.com/kianmeng/textLSP/internal/parser"
)

// Kind names a supported markup syntax.
type Kind string

const (
	Plain    Kind = "plain"
	LaTeX    Kind = "latex"
	Markdown Kind = "markdown"
)

// Language identifiers, as sent by editors, mapped to syntaxes. Anything
// else is plain text.
var languageKinds = map[string]Kind{
	"tex":       LaTeX,
	"latex":     LaTeX,
	"plaintex":  LaTeX,
	"markdown":  Markdown,
	"md":        Markdown,
	"text":      Plain,
	"txt":       Plain,
	"plaintext": Plain,
}

// KindFor returns the syntax for an editor language identifier.
func KindFor(languageID string) Kind {
	if k, ok := languageKinds[strings.ToLower(languageID)]; ok {
		return k
	}
	return Plain
}

// Syntaxes hands out the parser and emitter for each Kind. It owns the
// tree-sitter parsers used for markdown.
type Syntaxes struct {
	markdown *parser.Pool
}

// NewSyntaxes creates the syntaxes, keeping up to parsers markdown parsers.
func NewSyntaxes(parsers int) *Syntaxes {
	return &Syntaxes{markdown: parser.NewMarkdownPool(parsers)}
}

// For returns the syntax of a Kind.
func (s *Syntaxes) For(kind Kind) Syntax {
	switch kind {
	case LaTeX:
		return Syntax{Name: string(LaTeX), Parser: latex.Parser{}, Emitter: latexEmitter{}}
	case Markdown:
		return Syntax{Name: string(Markdown), Parser: s.markdown, Emitter: markdownEmitter{}}
	}
	return Syntax{Name: string(Plain), Parser: plainParser, Emitter: plainEmitter{}}
}

// ForLanguageID is For(KindFor(languageID)).
func (s *Syntaxes) ForLanguageID(languageID string) Syntax {
	return s.For(KindFor(languageID))
}

func (s *Syntaxes) Close() error {
	return s.markdown.Close()
}
