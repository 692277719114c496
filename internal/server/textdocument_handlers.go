package server

import (
	"context"
	"fmt"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/kianmeng/textLSP/internal/text"
)

// Document changes are applied right away, in the order the client sent
// them; the checks they trigger run on the task queue.

func (s *Server) textDocumentDidOpen(
	_ *glsp.Context,
	params *protocol.DidOpenTextDocumentParams,
) error {
	item := params.TextDocument
	doc := s.manager.Open(item.URI, item.LanguageID, item.Version, item.Text)
	log.Debugf("opened %s as %s", doc.URI(), doc.Syntax())

	s.schedule("open "+doc.URI(), func(ctx context.Context) error {
		return s.checkers.DidOpen(ctx, doc)
	})
	return nil
}

func (s *Server) textDocumentDidChange(
	_ *glsp.Context,
	params *protocol.DidChangeTextDocumentParams,
) error {
	edits, err := toEdits(params.ContentChanges)
	if err != nil {
		return err
	}
	doc, err := s.manager.ApplyEdits(params.TextDocument.URI, params.TextDocument.Version, edits)
	if err != nil {
		return err
	}

	s.schedule("change "+doc.URI(), func(ctx context.Context) error {
		return s.checkers.DidChange(ctx, doc)
	})
	return nil
}

func (s *Server) textDocumentDidSave(
	_ *glsp.Context,
	params *protocol.DidSaveTextDocumentParams,
) error {
	doc, err := s.manager.GetDocument(params.TextDocument.URI)
	if err != nil {
		return err
	}
	// Saved text that differs from ours means a change was missed.
	if params.Text != nil && *params.Text != doc.Text() {
		log.Warningf("%s: saved text differs, resynchronizing", doc.URI())
		edit := text.Edit{Text: *params.Text}
		if _, err := s.manager.ApplyEdits(doc.URI(), doc.Version(), []text.Edit{edit}); err != nil {
			return err
		}
	}

	s.schedule("save "+doc.URI(), func(ctx context.Context) error {
		return s.checkers.DidSave(ctx, doc)
	})
	return nil
}

func (s *Server) textDocumentDidClose(
	_ *glsp.Context,
	params *protocol.DidCloseTextDocumentParams,
) error {
	doc, err := s.manager.GetDocument(params.TextDocument.URI)
	if err != nil {
		return err
	}
	s.manager.Release(doc.URI())

	s.schedule("close "+doc.URI(), func(ctx context.Context) error {
		return s.checkers.DidClose(ctx, doc)
	})
	return nil
}

// toEdits converts LSP content changes, incremental or whole, to edits.
func toEdits(changes []any) ([]text.Edit, error) {
	edits := make([]text.Edit, 0, len(changes))
	for _, raw := range changes {
		switch change := raw.(type) {
		case protocol.TextDocumentContentChangeEvent:
			if change.Range == nil {
				edits = append(edits, text.Edit{Text: change.Text})
				continue
			}
			r := toRange(*change.Range)
			edits = append(edits, text.Edit{Range: &r, Text: change.Text})
		case protocol.TextDocumentContentChangeEventWhole:
			edits = append(edits, text.Edit{Text: change.Text})
		default:
			return nil, fmt.Errorf("unexpected change event type %T", raw)
		}
	}
	return edits, nil
}

func toRange(r protocol.Range) text.Range {
	return text.Range{Start: toPosition(r.Start), End: toPosition(r.End)}
}

func toPosition(p protocol.Position) text.Position {
	return text.Position{Line: uint32(p.Line), Character: uint32(p.Character)}
}
