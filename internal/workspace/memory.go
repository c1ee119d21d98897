package workspace

import (
	"context"
	"sync"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CamdenClark/zett-languageservice/internal/document"
)

// InMemory holds every document in memory. It backs tests and embedders that
// manage document content themselves.
type InMemory struct {
	mu         sync.RWMutex
	folders    []protocol.DocumentUri
	docs       map[protocol.DocumentUri]document.Document
	files      map[protocol.DocumentUri]FileStat
	containers map[protocol.DocumentUri]ContainingDocument

	createEmitter emitter[document.Document]
	changeEmitter emitter[document.Document]
	deleteEmitter emitter[protocol.DocumentUri]
	fileEmitter   emitter[FileEvent]
}

func NewInMemory(folders ...protocol.DocumentUri) *InMemory {
	if len(folders) == 0 {
		folders = []protocol.DocumentUri{"file:///"}
	}
	return &InMemory{
		folders:    folders,
		docs:       make(map[protocol.DocumentUri]document.Document),
		files:      make(map[protocol.DocumentUri]FileStat),
		containers: make(map[protocol.DocumentUri]ContainingDocument),
	}
}

// AddDocument registers a document and fires a create notification.
func (w *InMemory) AddDocument(doc document.Document) {
	w.mu.Lock()
	w.docs[doc.URI()] = doc
	w.mu.Unlock()
	w.createEmitter.fire(doc)
	w.fileEmitter.fire(FileEvent{URI: doc.URI(), Type: FileCreated})
}

// ChangeDocument replaces a document's content and fires a change
// notification.
func (w *InMemory) ChangeDocument(doc document.Document) {
	w.mu.Lock()
	w.docs[doc.URI()] = doc
	w.mu.Unlock()
	w.changeEmitter.fire(doc)
	w.fileEmitter.fire(FileEvent{URI: doc.URI(), Type: FileChanged})
}

// DeleteDocument evicts a document and fires a delete notification.
func (w *InMemory) DeleteDocument(uri protocol.DocumentUri) {
	w.mu.Lock()
	delete(w.docs, uri)
	w.mu.Unlock()
	w.deleteEmitter.fire(uri)
	w.fileEmitter.fire(FileEvent{URI: uri, Type: FileDeleted})
}

// AddFile registers a non-markdown resource so Stat can see it.
func (w *InMemory) AddFile(uri protocol.DocumentUri, stat FileStat) {
	w.mu.Lock()
	w.files[uri] = stat
	w.mu.Unlock()
	w.fileEmitter.fire(FileEvent{URI: uri, Type: FileCreated})
}

// DeleteFile removes a non-markdown resource.
func (w *InMemory) DeleteFile(uri protocol.DocumentUri) {
	w.mu.Lock()
	delete(w.files, uri)
	w.mu.Unlock()
	w.fileEmitter.fire(FileEvent{URI: uri, Type: FileDeleted})
}

// SetContainingDocument declares parent as the composite document owning the
// given children.
func (w *InMemory) SetContainingDocument(parent protocol.DocumentUri, children ...protocol.DocumentUri) {
	cells := make([]ChildDocument, len(children))
	for i, c := range children {
		cells[i] = ChildDocument{URI: c}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.containers[parent] = ContainingDocument{URI: parent, Children: cells}
	for _, c := range children {
		w.containers[c] = ContainingDocument{URI: parent, Children: cells}
	}
}

func (w *InMemory) OpenMarkdownDocument(_ context.Context, uri protocol.DocumentUri) (document.Document, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if doc, ok := w.docs[uri]; ok {
		return doc, nil
	}
	return nil, nil
}

func (w *InMemory) GetAllMarkdownDocuments(_ context.Context) ([]document.Document, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	docs := make([]document.Document, 0, len(w.docs))
	for _, doc := range w.docs {
		docs = append(docs, doc)
	}
	return docs, nil
}

func (w *InMemory) Stat(_ context.Context, uri protocol.DocumentUri) (FileStat, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if stat, ok := w.files[uri]; ok {
		return stat, true
	}
	if _, ok := w.docs[uri]; ok {
		return FileStat{}, true
	}
	return FileStat{}, false
}

func (w *InMemory) GetContainingDocument(uri protocol.DocumentUri) (ContainingDocument, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	c, ok := w.containers[uri]
	return c, ok
}

func (w *InMemory) WorkspaceFolders() []protocol.DocumentUri {
	return w.folders
}

func (w *InMemory) OnDidCreateMarkdownDocument(handler func(document.Document)) Disposable {
	return w.createEmitter.on(handler)
}

func (w *InMemory) OnDidChangeMarkdownDocument(handler func(document.Document)) Disposable {
	return w.changeEmitter.on(handler)
}

func (w *InMemory) OnDidDeleteMarkdownDocument(handler func(protocol.DocumentUri)) Disposable {
	return w.deleteEmitter.on(handler)
}

func (w *InMemory) OnDidChangeFile(handler func(FileEvent)) Disposable {
	return w.fileEmitter.on(handler)
}
