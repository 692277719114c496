// Package clean strips markup from a document, producing the prose a
// checker reads together with an index mapping every span of that prose
// back to the source range it came from.
package clean

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/kianmeng/textLSP/internal/index"
	"github.com/kianmeng/textLSP/internal/syntax"
	"github.com/kianmeng/textLSP/internal/text"
)

// ErrInvariant reports an emitter that produced fragments the index cannot
// represent: overlapping, spanning lines, or not matching their range.
var ErrInvariant = errors.New("cleaning invariant violated")

// Fragment is a piece of cleaned text and the source range it stands for.
// Content fragments are copied verbatim from a single source line;
// synthesized fragments (" ", "\n") carry positions chosen by the emitter.
type Fragment struct {
	Text  string
	Start text.Position
	End   text.Position
}

// Source is the raw document an emitter reads.
type Source struct {
	Text  string
	Lines *text.Converter
}

// Emitter walks a syntax tree and yields fragments in source order. The
// returned sequence is consumed once per cleaning pass.
type Emitter interface {
	Emit(tree syntax.Tree, src Source) iter.Seq[Fragment]
}

// Syntax pairs a parser with the emitter that understands its trees.
type Syntax struct {
	Name    string
	Parser  syntax.Parser
	Emitter Emitter
}

// Result is the output of one cleaning pass.
type Result struct {
	Text  string
	Index *index.Index
}

// Run parses src and builds its cleaned text and index. It fails with
// syntax.ErrParseUnavailable when no tree is produced and with ErrInvariant
// when the emitter misbehaves.
func Run(ctx context.Context, src string, lines *text.Converter, syn Syntax) (res *Result, err error) {
	tree, err := syn.Parser.Parse(ctx, []byte(src))
	if err != nil {
		if !errors.Is(err, syntax.ErrParseUnavailable) {
			err = fmt.Errorf("%w: %v", syntax.ErrParseUnavailable, err)
		}
		return nil, err
	}
	if tree == nil {
		return nil, fmt.Errorf("%s: %w", syn.Name, syntax.ErrParseUnavailable)
	}
	defer tree.Close()

	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("%w: %s emitter panicked: %v", ErrInvariant, syn.Name, r)
		}
	}()

	idx := index.New(len(src) / 4)
	var b strings.Builder
	b.Grow(len(src))
	var prevEnd text.Position
	for f := range syn.Emitter.Emit(tree, Source{Text: src, Lines: lines}) {
		if f.Text == "" {
			continue
		}
		if err := checkFragment(f, prevEnd); err != nil {
			return nil, fmt.Errorf("%w: %s emitter: %v", ErrInvariant, syn.Name, err)
		}
		start := b.Len()
		b.WriteString(f.Text)
		idx.Add(start, b.Len(), f.Start, f.End, f.Text)
		prevEnd = f.End
	}
	idx.Sort()

	cleaned := b.String()
	if err := idx.Validate(len(cleaned)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvariant, err)
	}
	return &Result{Text: cleaned, Index: idx}, nil
}

// checkFragment accepts fragments that start at or after prevEnd and fill
// their range. A synthesized newline may also stand on an empty range.
func checkFragment(f Fragment, prevEnd text.Position) error {
	width := int(f.End.Character) - int(f.Start.Character)
	switch {
	case f.Start.Before(prevEnd):
		return fmt.Errorf("fragment %q starts at %s before %s", f.Text, f.Start, prevEnd)
	case f.Start.Line != f.End.Line:
		return fmt.Errorf("fragment %q spans lines %s", f.Text, text.Range{Start: f.Start, End: f.End})
	case f.Text != "\n" && strings.ContainsRune(f.Text, '\n'):
		return fmt.Errorf("fragment %q contains a line break", f.Text)
	case f.Text == "\n" && width == 0:
		return nil
	case width != text.UTF16Len(f.Text):
		return fmt.Errorf("fragment %q does not fill %s", f.Text, text.Range{Start: f.Start, End: f.End})
	}
	return nil
}
