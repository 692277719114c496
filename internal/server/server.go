// Package server exposes the prose checkers as a language server over
// glsp.
package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"github.com/kianmeng/textLSP/internal/cache"
	"github.com/kianmeng/textLSP/internal/checker"
	"github.com/kianmeng/textLSP/internal/clean"
	"github.com/kianmeng/textLSP/internal/config"
	"github.com/kianmeng/textLSP/internal/manager"
	"github.com/kianmeng/textLSP/internal/scheduler"
)

var log = commonlog.GetLogger("textlsp.server")

const Name = "textlsp"

// pruneInterval is how often cached results older than the TTL are dropped.
const pruneInterval = time.Hour

type Options struct {
	Env config.Env
	// Settings apply until the client sends its own.
	Settings config.Config
	Version  string
}

type Server struct {
	handler *protocol.Handler
	version string
	env     config.Env

	ctx    context.Context
	cancel context.CancelFunc

	cache     cache.Cache
	manager   *manager.DocumentManager
	checkers  *checker.Handler
	scheduler *scheduler.Scheduler

	mu       sync.Mutex
	notify   glsp.NotifyFunc
	settings config.Config
	closed   bool
}

// New creates the server and starts its task queue. The checkers are set up
// on initialize.
func New(opts Options) (*Server, error) {
	pst, err := cache.NewFilecache(opts.Env.CachePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	s := &Server{
		version:   opts.Version,
		env:       opts.Env,
		cache:     cache.NewHybridCache(pst),
		manager:   manager.NewDocumentManager(clean.NewSyntaxes(max(1, opts.Env.Parsers))),
		scheduler: scheduler.NewScheduler(max(1, opts.Env.QueueSize)),
		settings:  opts.Settings,
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.checkers = checker.NewHandler(s, s.cache)
	s.manager.Observe(s.checkers)

	s.handler = &protocol.Handler{
		Initialize:                      s.initialize,
		Initialized:                     s.initialized,
		Shutdown:                        s.shutdown,
		SetTrace:                        s.setTrace,
		TextDocumentDidOpen:             s.textDocumentDidOpen,
		TextDocumentDidChange:           s.textDocumentDidChange,
		TextDocumentDidSave:             s.textDocumentDidSave,
		TextDocumentDidClose:            s.textDocumentDidClose,
		WorkspaceDidChangeConfiguration: s.workspaceDidChangeConfiguration,
	}

	s.scheduler.RunScheduler()
	if opts.Env.CacheTTL > 0 {
		s.scheduler.SchedulePeriodicTask(pruneInterval, scheduler.NewTask("prune cache", s.pruneCache))
	}
	return s, nil
}

// RunStdio serves the protocol on stdin and stdout until the client exits.
func (s *Server) RunStdio() error {
	defer s.Close()
	return server.NewServer(s.handler, Name, false).RunStdio()
}

// Close stops the queue after the queued checks ran and releases the
// checkers, the parsers and the cache.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.scheduler.StopScheduler()
	s.cancel()

	var errs []error
	if err := s.checkers.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.manager.CloseAll(); err != nil {
		errs = append(errs, err)
	}
	if err := s.cache.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Server) pruneCache() error {
	n, err := s.cache.Prune(s.ctx, time.Now().Add(-s.env.CacheTTL))
	if err != nil {
		return err
	}
	if n > 0 {
		log.Infof("pruned %d cached results", n)
	}
	return nil
}

// schedule queues work for the checkers, one task per event.
func (s *Server) schedule(name string, fn func(ctx context.Context) error) {
	task := scheduler.NewTask(name, func() error { return fn(s.ctx) })
	if err := s.scheduler.ScheduleHighPriorityTask(task); err != nil {
		log.Warningf("dropped %s: %v", name, err)
	}
}
