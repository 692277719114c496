package checker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kianmeng/textLSP/internal/clean"
	"github.com/kianmeng/textLSP/internal/config"
	"github.com/kianmeng/textLSP/internal/document"
	"github.com/kianmeng/textLSP/internal/text"
)

// recorder is a Publisher keeping what it was sent.
type recorder struct {
	mu          sync.Mutex
	diagnostics map[string][]Diagnostic
	versions    map[string]int32
	published   int
	messages    []string
}

func newRecorder() *recorder {
	return &recorder{
		diagnostics: make(map[string][]Diagnostic),
		versions:    make(map[string]int32),
	}
}

func (r *recorder) PublishDiagnostics(uri string, version int32, diagnostics []Diagnostic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.diagnostics[uri] = diagnostics
	r.versions[uri] = version
	r.published++
}

func (r *recorder) ShowMessage(_ MessageType, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
}

func (r *recorder) last(uri string) ([]Diagnostic, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.diagnostics[uri]
	return d, ok
}

type fakeChecker struct {
	mu      sync.Mutex
	events  []string
	edits   int
	closed  bool
	fail    error
	panicky bool
}

func (f *fakeChecker) record(event string) error {
	if f.panicky {
		panic("boom")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return f.fail
}

func (f *fakeChecker) DidOpen(context.Context, *document.Document) error   { return f.record("open") }
func (f *fakeChecker) DidChange(context.Context, *document.Document) error { return f.record("change") }
func (f *fakeChecker) DidSave(context.Context, *document.Document) error   { return f.record("save") }
func (f *fakeChecker) DidClose(context.Context, *document.Document) error  { return f.record("close") }
func (f *fakeChecker) UpdateSettings(Options) error                        { return nil }

func (f *fakeChecker) BeforeEdit(*document.Document, text.Edit) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits++
}

func (f *fakeChecker) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeChecker) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

func enable(names ...string) config.Config {
	cfg := config.Config{Analysers: make(map[string]json.RawMessage)}
	for _, name := range names {
		cfg.Analysers[name] = json.RawMessage(`{"enabled": true}`)
	}
	return cfg
}

func testDoc(t *testing.T, languageID, content string) *document.Document {
	t.Helper()
	s := clean.NewSyntaxes(1)
	t.Cleanup(func() { s.Close() })
	return document.New("file:///"+t.Name(), languageID, 1, content, s.ForLanguageID(languageID))
}

func fakeHandler(pub Publisher, fakes map[string]*fakeChecker) *Handler {
	h := NewHandler(pub, nil)
	h.factories = make(map[string]Factory)
	for name, f := range fakes {
		h.factories[name] = func(Options) (Checker, error) { return f, nil }
	}
	return h
}

func TestHandlerFanOut(t *testing.T) {
	a, b := &fakeChecker{}, &fakeChecker{}
	h := fakeHandler(newRecorder(), map[string]*fakeChecker{"a": a, "b": b})
	require.NoError(t, h.UpdateSettings(enable("a", "b")))
	assert.Equal(t, []string{"a", "b"}, h.Names())

	doc := testDoc(t, "plaintext", "text")
	ctx := context.Background()
	require.NoError(t, h.DidOpen(ctx, doc))
	require.NoError(t, h.DidChange(ctx, doc))
	require.NoError(t, h.DidSave(ctx, doc))
	require.NoError(t, h.DidClose(ctx, doc))

	want := []string{"open", "change", "save", "close"}
	assert.Equal(t, want, a.seen())
	assert.Equal(t, want, b.seen())

	h.BeforeEdit(doc, text.Edit{Text: "x"})
	assert.Equal(t, 1, a.edits)
	assert.Equal(t, 1, b.edits)
}

func TestHandlerIsolatesFailures(t *testing.T) {
	errBad := errors.New("bad")
	good := &fakeChecker{}
	pub := newRecorder()
	h := fakeHandler(pub, map[string]*fakeChecker{
		"bad":   {fail: errBad},
		"good":  good,
		"panic": {panicky: true},
	})
	require.NoError(t, h.UpdateSettings(enable("bad", "good", "panic")))

	err := h.DidChange(context.Background(), testDoc(t, "plaintext", "text"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errBad)
	assert.ErrorIs(t, err, ErrCheckerPanic)
	assert.Equal(t, []string{"change"}, good.seen())
	assert.Len(t, pub.messages, 2)
}

func TestHandlerUnknownChecker(t *testing.T) {
	pub := newRecorder()
	h := fakeHandler(pub, map[string]*fakeChecker{"a": {}})

	err := h.UpdateSettings(enable("a", "nope"))
	assert.ErrorIs(t, err, ErrUnknownChecker)
	assert.Equal(t, []string{"a"}, h.Names())
	require.Len(t, pub.messages, 1)
	assert.Contains(t, pub.messages[0], "nope")
}

func TestHandlerDisableCloses(t *testing.T) {
	a := &fakeChecker{}
	h := fakeHandler(newRecorder(), map[string]*fakeChecker{"a": a})
	require.NoError(t, h.UpdateSettings(enable("a")))

	cfg := enable()
	cfg.Analysers["a"] = json.RawMessage(`{"enabled": false}`)
	require.NoError(t, h.UpdateSettings(cfg))
	assert.Empty(t, h.Names())
	assert.True(t, a.closed)
}

func TestHandlerKeepsCheckerAcrossUpdates(t *testing.T) {
	created := 0
	h := NewHandler(newRecorder(), nil)
	h.factories = map[string]Factory{"a": func(Options) (Checker, error) {
		created++
		return &fakeChecker{}, nil
	}}
	require.NoError(t, h.UpdateSettings(enable("a")))
	require.NoError(t, h.UpdateSettings(enable("a")))
	assert.Equal(t, 1, created)
	require.NoError(t, h.Close())
	assert.Empty(t, h.Names())
}

func TestHandlerInvalidProseSettings(t *testing.T) {
	pub := newRecorder()
	h := NewHandler(pub, nil)

	cfg, err := config.Load(map[string]any{
		"analysers": map[string]any{
			"prose": map[string]any{"enabled": true, "max_sentence_words": -1},
		},
	})
	require.NoError(t, err)

	err = h.UpdateSettings(cfg)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Empty(t, h.Names())
	assert.Len(t, pub.messages, 1)
}
