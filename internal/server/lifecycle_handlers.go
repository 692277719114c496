package server

import (
	"context"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/kianmeng/textLSP/internal/checker"
	"github.com/kianmeng/textLSP/internal/config"
)

func (s *Server) initialize(
	context *glsp.Context,
	params *protocol.InitializeParams,
) (any, error) {
	s.mu.Lock()
	s.notify = context.Notify
	settings := s.settings
	s.mu.Unlock()

	if params.InitializationOptions != nil {
		cfg, err := config.Load(params.InitializationOptions)
		if err != nil {
			s.ShowMessage(checker.MessageError, err.Error())
			return nil, err
		}
		settings = cfg
	}
	s.applySettings(settings)

	syncKind := protocol.TextDocumentSyncKindIncremental
	capabilities := s.handler.CreateServerCapabilities()
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: &protocol.True,
		Change:    &syncKind,
		Save:      &protocol.SaveOptions{IncludeText: &protocol.True},
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    Name,
			Version: &s.version,
		},
	}, nil
}

func (s *Server) initialized(
	context *glsp.Context,
	params *protocol.InitializedParams,
) error {
	log.Infof("client initialized, checkers: %v", s.checkers.Names())
	return nil
}

func (s *Server) shutdown(context *glsp.Context) error {
	log.Info("shutting down")
	protocol.SetTraceValue(protocol.TraceValueOff)
	return s.Close()
}

func (s *Server) setTrace(context *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

// workspaceDidChangeConfiguration reconfigures the checkers and checks the
// open documents again with the new settings.
func (s *Server) workspaceDidChangeConfiguration(
	_ *glsp.Context,
	params *protocol.DidChangeConfigurationParams,
) error {
	cfg, err := config.Load(params.Settings)
	if err != nil {
		s.ShowMessage(checker.MessageError, err.Error())
		return err
	}
	s.applySettings(cfg)

	for _, doc := range s.manager.Documents() {
		s.schedule("recheck "+doc.URI(), func(ctx context.Context) error {
			return s.checkers.DidOpen(ctx, doc)
		})
	}
	return nil
}

// applySettings keeps cfg and passes it to the checkers. Checkers that
// fail to set up are reported to the client by the handler.
func (s *Server) applySettings(cfg config.Config) {
	s.mu.Lock()
	s.settings = cfg
	s.mu.Unlock()

	if err := s.checkers.UpdateSettings(cfg); err != nil {
		log.Warningf("settings applied with errors: %v", err)
	}
}
