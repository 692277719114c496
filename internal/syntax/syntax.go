// Package syntax defines the parse capability the cleaning pipeline
// consumes: a parser producing a tree of typed nodes over byte ranges.
package syntax

import (
	"context"
	"errors"
)

// ErrParseUnavailable is returned when no tree can be produced for a
// document, because the grammar is missing or parsing was abandoned.
var ErrParseUnavailable = errors.New("parse unavailable")

// Node is a syntax tree node spanning [StartByte, EndByte) of the source.
type Node interface {
	Type() string
	StartByte() int
	EndByte() int
	ChildCount() int
	Child(i int) Node
}

// Tree is a parsed document. Close releases parser resources held by it.
type Tree interface {
	Root() Node
	Close()
}

// Parser turns source bytes into a Tree.
type Parser interface {
	Parse(ctx context.Context, source []byte) (Tree, error)
}

// ParserFunc adapts a function to Parser.
type ParserFunc func(ctx context.Context, source []byte) (Tree, error)

func (f ParserFunc) Parse(ctx context.Context, source []byte) (Tree, error) {
	return f(ctx, source)
}

// Walk visits n and its descendants depth first in document order. The
// visitor receives the ancestors of each node, nearest last, and returns
// false to skip the node's children.
func Walk(n Node, visit func(n Node, ancestors []Node) bool) {
	var walk func(n Node, ancestors []Node)
	walk = func(n Node, ancestors []Node) {
		if !visit(n, ancestors) {
			return
		}
		ancestors = append(ancestors, n)
		for i := range n.ChildCount() {
			if c := n.Child(i); c != nil {
				walk(c, ancestors)
			}
		}
	}
	if n != nil {
		walk(n, nil)
	}
}

// Parent returns the nearest ancestor, or nil.
func Parent(ancestors []Node) Node {
	if len(ancestors) == 0 {
		return nil
	}
	return ancestors[len(ancestors)-1]
}

// Content returns the source text a node spans.
func Content(n Node, source []byte) string {
	return string(source[n.StartByte():n.EndByte()])
}
