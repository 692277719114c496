package manager

import (
	"errors"
	"fmt"
	"sync"

	"github.com/kianmeng/textLSP/internal/clean"
	"github.com/kianmeng/textLSP/internal/document"
	"github.com/kianmeng/textLSP/internal/text"
)

// ErrNotOpen is returned for URIs without an open document.
var ErrNotOpen = errors.New("document not open")

// EditObserver sees every edit before it is applied, while positions still
// refer to the old text.
type EditObserver interface {
	BeforeEdit(doc *document.Document, edit text.Edit)
}

// DocumentManager encapsulates the open documents of a session.
type DocumentManager struct {
	mu        sync.Mutex
	syntaxes  *clean.Syntaxes
	docs      map[string]*document.Document
	observers []EditObserver
}

// NewDocumentManager creates an initialized DocumentManager.
func NewDocumentManager(syntaxes *clean.Syntaxes) *DocumentManager {
	return &DocumentManager{
		syntaxes: syntaxes,
		docs:     make(map[string]*document.Document),
	}
}

// Observe registers o for the edits of every document.
func (dm *DocumentManager) Observe(o EditObserver) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.observers = append(dm.observers, o)
}

// Open creates the document for a URI, replacing any previous one.
func (dm *DocumentManager) Open(uri, languageID string, version int32, content string) *document.Document {
	doc := document.New(uri, languageID, version, content, dm.syntaxes.ForLanguageID(languageID))

	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.docs[uri] = doc
	return doc
}

// GetDocument returns the open document for a URI.
func (dm *DocumentManager) GetDocument(uri string) (*document.Document, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	doc, ok := dm.docs[uri]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotOpen, uri)
	}
	return doc, nil
}

// Documents returns the open documents.
func (dm *DocumentManager) Documents() []*document.Document {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	docs := make([]*document.Document, 0, len(dm.docs))
	for _, doc := range dm.docs {
		docs = append(docs, doc)
	}
	return docs
}

// ApplyEdits applies content changes in order, showing each to the
// observers first.
func (dm *DocumentManager) ApplyEdits(uri string, version int32, edits []text.Edit) (*document.Document, error) {
	doc, err := dm.GetDocument(uri)
	if err != nil {
		return nil, err
	}

	dm.mu.Lock()
	observers := append([]EditObserver(nil), dm.observers...)
	dm.mu.Unlock()

	for i, edit := range edits {
		if err := applyEdit(doc, edit, version, observers); err != nil {
			return doc, fmt.Errorf("edit %d of %s: %w", i, uri, err)
		}
	}
	return doc, nil
}

func applyEdit(doc *document.Document, edit text.Edit, version int32, observers []EditObserver) error {
	release := doc.Hold()
	defer release()

	for _, o := range observers {
		o.BeforeEdit(doc, edit)
	}
	return doc.ApplyEdit(edit, version)
}

// Release forgets the document for a URI.
func (dm *DocumentManager) Release(uri string) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	delete(dm.docs, uri)
}

// CloseAll forgets all documents and releases the parsers.
func (dm *DocumentManager) CloseAll() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	dm.docs = make(map[string]*document.Document)
	if err := dm.syntaxes.Close(); err != nil {
		return fmt.Errorf("error closing parsers: %w", err)
	}
	return nil
}
