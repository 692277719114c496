// Package sitteradapter exposes tree-sitter trees through the syntax
// interfaces.
package sitteradapter

import (
	"github.com/kianmeng/textLSP/internal/syntax"

	sitter "github.com/smacker/go-tree-sitter"
)

// Node wraps a tree-sitter node.
type Node struct {
	n *sitter.Node
}

// WrapNode returns n as a syntax.Node, or nil for a nil node.
func WrapNode(n *sitter.Node) syntax.Node {
	if n == nil || n.IsNull() {
		return nil
	}
	return Node{n: n}
}

func (n Node) Type() string    { return n.n.Type() }
func (n Node) StartByte() int  { return int(n.n.StartByte()) }
func (n Node) EndByte() int    { return int(n.n.EndByte()) }
func (n Node) ChildCount() int { return int(n.n.ChildCount()) }

func (n Node) Child(i int) syntax.Node {
	return WrapNode(n.n.Child(i))
}

// Unwrap returns the underlying tree-sitter node.
func (n Node) Unwrap() *sitter.Node { return n.n }

// Tree wraps a tree-sitter tree.
type Tree struct {
	t *sitter.Tree
}

// WrapTree takes ownership of t; closing the returned tree closes t.
func WrapTree(t *sitter.Tree) *Tree {
	return &Tree{t: t}
}

func (t *Tree) Root() syntax.Node {
	return WrapNode(t.t.RootNode())
}

func (t *Tree) Close() {
	if t.t != nil {
		t.t.Close()
		t.t = nil
	}
}
