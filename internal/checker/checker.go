// Package checker runs prose checkers over open documents and reports
// their findings as diagnostics on the raw text.
package checker

import (
	"context"
	"errors"

	"github.com/tliron/commonlog"
	"golang.org/x/text/language"

	"github.com/kianmeng/textLSP/internal/cache"
	"github.com/kianmeng/textLSP/internal/config"
	"github.com/kianmeng/textLSP/internal/document"
	"github.com/kianmeng/textLSP/internal/text"
)

var log = commonlog.GetLogger("textlsp.checker")

var (
	// ErrUnknownChecker is returned for settings naming no known checker.
	ErrUnknownChecker = errors.New("unknown checker")
	// ErrConfiguration is returned for settings a checker cannot use.
	ErrConfiguration = errors.New("invalid checker configuration")
	// ErrCheckerPanic wraps a recovered checker panic.
	ErrCheckerPanic = errors.New("checker panicked")
)

// Severity follows the LSP DiagnosticSeverity values.
type Severity int

const (
	SeverityError Severity = iota + 1
	SeverityWarning
	SeverityInformation
	SeverityHint
)

// MessageType follows the LSP MessageType values.
type MessageType int

const (
	MessageError MessageType = iota + 1
	MessageWarning
	MessageInfo
	MessageLog
)

// Diagnostic is a finding located in the raw text.
type Diagnostic struct {
	Range    text.Range
	Severity Severity
	Source   string
	Code     string
	Message  string
}

// Publisher delivers results to the client.
type Publisher interface {
	PublishDiagnostics(uri string, version int32, diagnostics []Diagnostic)
	ShowMessage(typ MessageType, message string)
}

// Checker reacts to the lifecycle of documents. Calls for one event run
// concurrently across checkers but never concurrently for one checker and
// document.
type Checker interface {
	DidOpen(ctx context.Context, doc *document.Document) error
	DidChange(ctx context.Context, doc *document.Document) error
	DidSave(ctx context.Context, doc *document.Document) error
	DidClose(ctx context.Context, doc *document.Document) error
	UpdateSettings(opts Options) error
	Close() error
}

// Options configure a checker.
type Options struct {
	Publisher Publisher
	Cache     cache.Cache
	Settings  config.Section
	Language  language.Tag
}

// Factory creates a configured checker.
type Factory func(opts Options) (Checker, error)

// registry lists the checkers settings may enable, by name.
var registry = map[string]Factory{
	ProseName: NewProse,
}

// editObserver is implemented by checkers tracking edits as they happen.
type editObserver interface {
	BeforeEdit(doc *document.Document, edit text.Edit)
}
