// Package parser provides syntax.Parser implementations backed by
// tree-sitter grammars.
package parser

import (
	"context"
	"fmt"
	"sync"

	"github.com/kianmeng/textLSP/internal/sitteradapter"
	"github.com/kianmeng/textLSP/internal/syntax"

	sitter "github.com/smacker/go-tree-sitter"
	tree_sitter_markdown "github.com/smacker/go-tree-sitter/markdown/tree-sitter-markdown"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("textlsp.parser")

// Pool keeps a fixed set of tree-sitter parsers for one language. Parsing
// takes a parser out of the pool for the duration of the call, so at most
// cap(pool) documents are parsed at once.
type Pool struct {
	pool chan *sitter.Parser
	lang *sitter.Language
	name string
	once sync.Once
}

// NewPool creates a Pool with n parsers for lang. A nil lang yields a pool
// whose Parse always fails with syntax.ErrParseUnavailable.
func NewPool(name string, n int, lang *sitter.Language) *Pool {
	pp := &Pool{
		pool: make(chan *sitter.Parser, max(n, 1)),
		lang: lang,
		name: name,
	}
	if lang == nil {
		log.Warningf("no grammar for %s, parsing disabled", name)
		return pp
	}
	for range cap(pp.pool) {
		p := sitter.NewParser()
		p.SetLanguage(lang)
		pp.pool <- p
	}
	return pp
}

// NewMarkdownPool returns a pool for the tree-sitter markdown block grammar.
func NewMarkdownPool(n int) *Pool {
	return NewPool("markdown", n, tree_sitter_markdown.GetLanguage())
}

// Parse parses source with a pooled parser. The caller owns the returned
// tree and must close it.
func (pp *Pool) Parse(ctx context.Context, source []byte) (syntax.Tree, error) {
	if pp.lang == nil {
		return nil, fmt.Errorf("%s: %w", pp.name, syntax.ErrParseUnavailable)
	}

	var p *sitter.Parser
	select {
	case p = <-pp.pool:
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w: %v", pp.name, syntax.ErrParseUnavailable, ctx.Err())
	}
	defer func() { pp.pool <- p }()

	tree, err := p.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", pp.name, syntax.ErrParseUnavailable, err)
	}
	if tree == nil {
		return nil, fmt.Errorf("%s: %w", pp.name, syntax.ErrParseUnavailable)
	}
	return sitteradapter.WrapTree(tree), nil
}

// Close waits for running parses and releases the pooled parsers. Parse
// must not be called afterwards.
func (pp *Pool) Close() error {
	if pp.lang == nil {
		return nil
	}
	pp.once.Do(func() {
		for range cap(pp.pool) {
			p := <-pp.pool
			p.Close()
		}
	})
	return nil
}
