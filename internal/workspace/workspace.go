// Package workspace abstracts the document store the language service runs
// against: an editor overlay, a directory on disk, or both.
package workspace

import (
	"context"
	"sync"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CamdenClark/zett-languageservice/internal/document"
)

// FileStat is the subset of file metadata the core needs.
type FileStat struct {
	IsDirectory bool
}

// ChildDocument is one cell of a containing document.
type ChildDocument struct {
	URI protocol.DocumentUri
}

// ContainingDocument describes a composite document (e.g. a notebook) whose
// children are markdown documents sharing one logical outline.
type ContainingDocument struct {
	URI      protocol.DocumentUri
	Children []ChildDocument
}

// Disposable releases a subscription or other held resource. Dispose must be
// idempotent.
type Disposable interface {
	Dispose()
}

// DisposeFunc adapts a func to Disposable.
type DisposeFunc func()

func (f DisposeFunc) Dispose() {
	if f != nil {
		f()
	}
}

// Workspace is the collaborator the caches and providers are wired to. The
// notification streams are scoped to markdown documents; OnDidChangeFile
// additionally reports raw filesystem events for any watched path.
type Workspace interface {
	// OpenMarkdownDocument resolves a URI to a document, or (nil, nil) when
	// the resource does not exist or is not markdown.
	OpenMarkdownDocument(ctx context.Context, uri protocol.DocumentUri) (document.Document, error)

	// GetAllMarkdownDocuments enumerates every known markdown document.
	GetAllMarkdownDocuments(ctx context.Context) ([]document.Document, error)

	// Stat probes a resource. ok is false when it does not exist.
	Stat(ctx context.Context, uri protocol.DocumentUri) (FileStat, bool)

	// GetContainingDocument reports the composite parent of a cell document.
	GetContainingDocument(uri protocol.DocumentUri) (ContainingDocument, bool)

	// WorkspaceFolders returns the root URIs absolute link paths resolve
	// against.
	WorkspaceFolders() []protocol.DocumentUri

	OnDidCreateMarkdownDocument(handler func(document.Document)) Disposable
	OnDidChangeMarkdownDocument(handler func(document.Document)) Disposable
	OnDidDeleteMarkdownDocument(handler func(protocol.DocumentUri)) Disposable

	// OnDidChangeFile fires for create, change and delete of any file the
	// workspace observes, markdown or not.
	OnDidChangeFile(handler func(FileEvent)) Disposable
}

// FileChangeType discriminates raw file events.
type FileChangeType int

const (
	FileCreated FileChangeType = iota
	FileChanged
	FileDeleted
)

// FileEvent is one raw filesystem notification.
type FileEvent struct {
	URI  protocol.DocumentUri
	Type FileChangeType
}

// emitter is a minimal handler registry shared by the workspace
// implementations. Fire calls handlers synchronously in registration order.
type emitter[T any] struct {
	mu       sync.Mutex
	nextID   int
	order    []int
	handlers map[int]func(T)
}

func (e *emitter[T]) on(handler func(T)) Disposable {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handlers == nil {
		e.handlers = make(map[int]func(T))
	}
	id := e.nextID
	e.nextID++
	e.handlers[id] = handler
	e.order = append(e.order, id)
	return DisposeFunc(func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.handlers, id)
	})
}

func (e *emitter[T]) fire(value T) {
	e.mu.Lock()
	handlers := make([]func(T), 0, len(e.order))
	for _, id := range e.order {
		if h, ok := e.handlers[id]; ok {
			handlers = append(handlers, h)
		}
	}
	e.mu.Unlock()
	for _, h := range handlers {
		h(value)
	}
}
