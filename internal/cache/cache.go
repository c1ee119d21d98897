// Package cache provides the two per-resource cache variants used by the
// providers: DocCache computes lazily per document, WorkspaceCache eagerly
// seeds itself across the whole workspace. Both stay consistent by
// subscribing to workspace notifications and both must be disposed.
package cache

import (
	"context"
	"sync"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CamdenClark/zett-languageservice/internal/document"
	"github.com/CamdenClark/zett-languageservice/internal/memoize"
	"github.com/CamdenClark/zett-languageservice/internal/workspace"
)

// ComputeFunc derives the cached value from a document snapshot.
type ComputeFunc[T any] func(ctx context.Context, doc document.Document) (T, error)

type docResult[T any] struct {
	value T
	ok    bool
}

// DocCache caches one computed value per document URI. A miss loads the
// document from the workspace; overlapping misses for the same URI share a
// single load and computation.
type DocCache[T any] struct {
	ws      workspace.Workspace
	compute ComputeFunc[T]
	values  *memoize.Map[protocol.DocumentUri, docResult[T]]

	subs    []workspace.Disposable
	dispose sync.Once
}

func NewDocCache[T any](ws workspace.Workspace, compute ComputeFunc[T]) *DocCache[T] {
	c := &DocCache[T]{ws: ws, compute: compute}
	c.values = memoize.NewMap(func(uri protocol.DocumentUri) (docResult[T], error) {
		doc, err := ws.OpenMarkdownDocument(context.Background(), uri)
		if err != nil {
			return docResult[T]{}, err
		}
		if doc == nil {
			return docResult[T]{}, nil
		}
		value, err := compute(context.Background(), doc)
		if err != nil {
			return docResult[T]{}, err
		}
		return docResult[T]{value: value, ok: true}, nil
	})

	c.subs = []workspace.Disposable{
		ws.OnDidChangeMarkdownDocument(func(doc document.Document) {
			c.values.Set(doc.URI(), c.thunk(doc))
		}),
		ws.OnDidDeleteMarkdownDocument(func(uri protocol.DocumentUri) {
			c.values.Delete(uri)
		}),
	}
	return c
}

func (c *DocCache[T]) thunk(doc document.Document) func() (docResult[T], error) {
	return func() (docResult[T], error) {
		value, err := c.compute(context.Background(), doc)
		if err != nil {
			return docResult[T]{}, err
		}
		return docResult[T]{value: value, ok: true}, nil
	}
}

// Get returns the cached value for uri, loading and computing on first
// access. ok is false when the workspace cannot resolve the URI.
func (c *DocCache[T]) Get(ctx context.Context, uri protocol.DocumentUri) (T, bool, error) {
	res, err := c.values.Get(uri)
	return res.value, res.ok, err
}

// GetForDocument is Get for a caller that already holds the document,
// skipping the workspace load on a miss.
func (c *DocCache[T]) GetForDocument(ctx context.Context, doc document.Document) (T, error) {
	if !c.values.Has(doc.URI()) {
		c.values.Set(doc.URI(), c.thunk(doc))
	}
	res, err := c.values.Get(doc.URI())
	return res.value, err
}

// Dispose releases the workspace subscriptions. Idempotent.
func (c *DocCache[T]) Dispose() {
	c.dispose.Do(func() {
		for _, s := range c.subs {
			s.Dispose()
		}
	})
}

// WorkspaceCache keeps one value per known document, seeded eagerly across
// the workspace on first use and kept current through create/change/delete
// notifications.
type WorkspaceCache[T any] struct {
	ws      workspace.Workspace
	compute ComputeFunc[T]
	values  *memoize.Map[protocol.DocumentUri, T]

	populate sync.Once
	subs     []workspace.Disposable
	dispose  sync.Once
}

// Entry pairs a document URI with its cached value.
type Entry[T any] struct {
	URI   protocol.DocumentUri
	Value T
}

func NewWorkspaceCache[T any](ws workspace.Workspace, compute ComputeFunc[T]) *WorkspaceCache[T] {
	c := &WorkspaceCache[T]{ws: ws, compute: compute}
	c.values = memoize.NewMap(func(uri protocol.DocumentUri) (T, error) {
		var zero T
		doc, err := ws.OpenMarkdownDocument(context.Background(), uri)
		if err != nil || doc == nil {
			return zero, err
		}
		return compute(context.Background(), doc)
	})

	update := func(doc document.Document) {
		c.values.Set(doc.URI(), func() (T, error) {
			return c.compute(context.Background(), doc)
		})
	}
	c.subs = []workspace.Disposable{
		ws.OnDidCreateMarkdownDocument(update),
		ws.OnDidChangeMarkdownDocument(update),
		ws.OnDidDeleteMarkdownDocument(func(uri protocol.DocumentUri) {
			c.values.Delete(uri)
		}),
	}
	return c
}

func (c *WorkspaceCache[T]) ensurePopulated(ctx context.Context) error {
	var err error
	c.populate.Do(func() {
		var docs []document.Document
		docs, err = c.ws.GetAllMarkdownDocuments(ctx)
		if err != nil {
			return
		}
		for _, doc := range docs {
			d := doc
			if !c.values.Has(d.URI()) {
				c.values.Set(d.URI(), func() (T, error) {
					return c.compute(context.Background(), d)
				})
			}
		}
	})
	return err
}

// Entries returns the cached value for every known document.
func (c *WorkspaceCache[T]) Entries(ctx context.Context) ([]Entry[T], error) {
	if err := c.ensurePopulated(ctx); err != nil {
		return nil, err
	}
	keys := c.values.Keys()
	entries := make([]Entry[T], 0, len(keys))
	for _, uri := range keys {
		value, err := c.values.Get(uri)
		if err != nil {
			continue
		}
		entries = append(entries, Entry[T]{URI: uri, Value: value})
	}
	return entries, nil
}

// Values returns every cached value without its key.
func (c *WorkspaceCache[T]) Values(ctx context.Context) ([]T, error) {
	entries, err := c.Entries(ctx)
	if err != nil {
		return nil, err
	}
	values := make([]T, len(entries))
	for i, e := range entries {
		values[i] = e.Value
	}
	return values, nil
}

// GetForDocs returns values for the given documents, computing any that are
// not yet cached from the supplied snapshots.
func (c *WorkspaceCache[T]) GetForDocs(ctx context.Context, docs []document.Document) ([]T, error) {
	if err := c.ensurePopulated(ctx); err != nil {
		return nil, err
	}
	values := make([]T, 0, len(docs))
	for _, doc := range docs {
		d := doc
		if !c.values.Has(d.URI()) {
			c.values.Set(d.URI(), func() (T, error) {
				return c.compute(context.Background(), d)
			})
		}
		value, err := c.values.Get(d.URI())
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, nil
}

// Dispose releases the workspace subscriptions. Idempotent.
func (c *WorkspaceCache[T]) Dispose() {
	c.dispose.Do(func() {
		for _, s := range c.subs {
			s.Dispose()
		}
	})
}
