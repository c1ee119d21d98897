package toc

import (
	"context"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CamdenClark/zett-languageservice/internal/cache"
	"github.com/CamdenClark/zett-languageservice/internal/document"
	"github.com/CamdenClark/zett-languageservice/internal/slug"
	"github.com/CamdenClark/zett-languageservice/internal/tokenizer"
	"github.com/CamdenClark/zett-languageservice/internal/workspace"
)

// Provider serves outlines from a per-document cache.
type Provider struct {
	builder *Builder
	cache   *cache.DocCache[*TableOfContents]
}

func NewProvider(tok tokenizer.Tokenizer, slugifier slug.Slugifier, ws workspace.Workspace) *Provider {
	builder := NewBuilder(tok, slugifier, ws)
	return &Provider{
		builder: builder,
		cache:   cache.NewDocCache(ws, builder.Build),
	}
}

// Get returns the outline for uri, or Empty when the document cannot be
// loaded.
func (p *Provider) Get(ctx context.Context, uri protocol.DocumentUri) (*TableOfContents, error) {
	t, ok, err := p.cache.Get(ctx, uri)
	if err != nil {
		return nil, err
	}
	if !ok || t == nil {
		return Empty, nil
	}
	return t, nil
}

// GetForDocument returns the outline for an already loaded document.
func (p *Provider) GetForDocument(ctx context.Context, doc document.Document) (*TableOfContents, error) {
	t, err := p.cache.GetForDocument(ctx, doc)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return Empty, nil
	}
	return t, nil
}

func (p *Provider) Dispose() {
	p.cache.Dispose()
}

// WorkspaceProvider keeps outlines for every document in the workspace,
// eagerly seeded. It backs workspace-wide symbol search.
type WorkspaceProvider struct {
	cache *cache.WorkspaceCache[*TableOfContents]
}

func NewWorkspaceProvider(tok tokenizer.Tokenizer, slugifier slug.Slugifier, ws workspace.Workspace) *WorkspaceProvider {
	builder := NewBuilder(tok, slugifier, ws)
	return &WorkspaceProvider{
		cache: cache.NewWorkspaceCache(ws, builder.Build),
	}
}

// Entries returns the outline of every known document.
func (p *WorkspaceProvider) Entries(ctx context.Context) ([]cache.Entry[*TableOfContents], error) {
	return p.cache.Entries(ctx)
}

func (p *WorkspaceProvider) Dispose() {
	p.cache.Dispose()
}
