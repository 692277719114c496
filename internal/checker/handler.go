package checker

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kianmeng/textLSP/internal/cache"
	"github.com/kianmeng/textLSP/internal/config"
	"github.com/kianmeng/textLSP/internal/document"
	"github.com/kianmeng/textLSP/internal/text"
)

// Handler owns the enabled checkers and fans document events out to them.
// A failing checker is reported to the client and does not keep the others
// from finishing.
type Handler struct {
	pub       Publisher
	cache     cache.Cache
	factories map[string]Factory

	mu       sync.RWMutex
	checkers map[string]Checker
}

func NewHandler(pub Publisher, c cache.Cache) *Handler {
	return &Handler{
		pub:       pub,
		cache:     c,
		factories: registry,
		checkers:  make(map[string]Checker),
	}
}

// UpdateSettings enables, reconfigures and closes checkers to match cfg.
// Checkers that cannot be set up are reported and skipped.
func (h *Handler) UpdateSettings(cfg config.Config) error {
	lang := LanguageFor(cfg.Documents.Language)

	h.mu.Lock()
	old := h.checkers
	next := make(map[string]Checker)
	var errs []error
	for _, name := range cfg.AnalyserNames() {
		section := cfg.Analyser(name)
		if !section.Enabled() {
			continue
		}
		opts := Options{Publisher: h.pub, Cache: h.cache, Settings: section, Language: lang}

		if c, ok := old[name]; ok {
			next[name] = c
			if err := c.UpdateSettings(opts); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
			}
			continue
		}
		factory, ok := h.factories[name]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrUnknownChecker, name))
			continue
		}
		c, err := factory(opts)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		log.Infof("enabled checker %s (%s)", name, lang)
		next[name] = c
	}
	for name, c := range old {
		if _, ok := next[name]; !ok {
			log.Infof("disabled checker %s", name)
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
			}
		}
	}
	h.checkers = next
	h.mu.Unlock()

	for _, err := range errs {
		h.report(err)
	}
	return errors.Join(errs...)
}

// Names returns the enabled checkers in order.
func (h *Handler) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Sorted(maps.Keys(h.checkers))
}

func (h *Handler) DidOpen(ctx context.Context, doc *document.Document) error {
	return h.fanOut(ctx, func(ctx context.Context, c Checker) error { return c.DidOpen(ctx, doc) })
}

func (h *Handler) DidChange(ctx context.Context, doc *document.Document) error {
	return h.fanOut(ctx, func(ctx context.Context, c Checker) error { return c.DidChange(ctx, doc) })
}

func (h *Handler) DidSave(ctx context.Context, doc *document.Document) error {
	return h.fanOut(ctx, func(ctx context.Context, c Checker) error { return c.DidSave(ctx, doc) })
}

func (h *Handler) DidClose(ctx context.Context, doc *document.Document) error {
	return h.fanOut(ctx, func(ctx context.Context, c Checker) error { return c.DidClose(ctx, doc) })
}

// BeforeEdit passes an edit on to the checkers that track edits.
func (h *Handler) BeforeEdit(doc *document.Document, edit text.Edit) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.checkers {
		if o, ok := c.(editObserver); ok {
			o.BeforeEdit(doc, edit)
		}
	}
}

// Close closes every checker.
func (h *Handler) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var errs []error
	for name, c := range h.checkers {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	h.checkers = make(map[string]Checker)
	return errors.Join(errs...)
}

// fanOut runs fn for every checker and waits for all of them.
func (h *Handler) fanOut(ctx context.Context, fn func(context.Context, Checker) error) error {
	h.mu.RLock()
	names := slices.Sorted(maps.Keys(h.checkers))
	checkers := make([]Checker, len(names))
	for i, name := range names {
		checkers[i] = h.checkers[name]
	}
	h.mu.RUnlock()

	errs := make([]error, len(names))
	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			errs[i] = call(ctx, name, checkers[i], fn)
			return nil
		})
	}
	_ = g.Wait()

	for _, err := range errs {
		if err != nil {
			h.report(err)
		}
	}
	return errors.Join(errs...)
}

func call(ctx context.Context, name string, c Checker, fn func(context.Context, Checker) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: %w: %v", name, ErrCheckerPanic, r)
		}
	}()
	if err := fn(ctx, c); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (h *Handler) report(err error) {
	log.Errorf("%v", err)
	if h.pub != nil {
		h.pub.ShowMessage(MessageError, err.Error())
	}
}
