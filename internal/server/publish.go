package server

import (
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/kianmeng/textLSP/internal/checker"
	"github.com/kianmeng/textLSP/internal/text"
)

// PublishDiagnostics sends diagnostics for one version of a document. It
// does nothing before the client initialized the session.
func (s *Server) PublishDiagnostics(uri string, version int32, diagnostics []checker.Diagnostic) {
	s.mu.Lock()
	notify := s.notify
	s.mu.Unlock()
	if notify == nil {
		return
	}

	v := protocol.UInteger(version)
	notify("textDocument/publishDiagnostics", protocol.PublishDiagnosticsParams{
		URI:         uri,
		Version:     &v,
		Diagnostics: toDiagnostics(diagnostics),
	})
}

// ShowMessage pops up a message in the client.
func (s *Server) ShowMessage(typ checker.MessageType, message string) {
	s.mu.Lock()
	notify := s.notify
	s.mu.Unlock()
	if notify == nil {
		log.Warningf("no client for message: %s", message)
		return
	}

	notify("window/showMessage", protocol.ShowMessageParams{
		Type:    protocol.MessageType(typ),
		Message: message,
	})
}

func toDiagnostics(diagnostics []checker.Diagnostic) []protocol.Diagnostic {
	out := make([]protocol.Diagnostic, 0, len(diagnostics))
	for _, d := range diagnostics {
		severity := protocol.DiagnosticSeverity(d.Severity)
		source := d.Source
		pd := protocol.Diagnostic{
			Range:    fromRange(d.Range),
			Severity: &severity,
			Source:   &source,
			Message:  d.Message,
		}
		if d.Code != "" {
			pd.Code = &protocol.IntegerOrString{Value: d.Code}
		}
		out = append(out, pd)
	}
	return out
}

func fromRange(r text.Range) protocol.Range {
	return protocol.Range{Start: fromPosition(r.Start), End: fromPosition(r.End)}
}

func fromPosition(p text.Position) protocol.Position {
	return protocol.Position{Line: protocol.UInteger(p.Line), Character: protocol.UInteger(p.Character)}
}
