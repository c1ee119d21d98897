package cache_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CamdenClark/zett-languageservice/internal/cache"
	"github.com/CamdenClark/zett-languageservice/internal/document"
	"github.com/CamdenClark/zett-languageservice/internal/workspace"
)

func newDoc(uri string, version int32, content string) *document.InMemory {
	return document.New(uri, version, content)
}

func TestDocCacheLazyCompute(t *testing.T) {
	ws := workspace.NewInMemory()
	ws.AddDocument(newDoc("file:///a.md", 0, "one"))

	var computes atomic.Int32
	c := cache.NewDocCache(ws, func(_ context.Context, doc document.Document) (string, error) {
		computes.Add(1)
		return doc.Content(), nil
	})
	defer c.Dispose()

	require.Equal(t, int32(0), computes.Load(), "construction must not compute")

	got, ok, err := c.Get(context.Background(), "file:///a.md")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "one", got)

	_, _, err = c.Get(context.Background(), "file:///a.md")
	require.NoError(t, err)
	assert.Equal(t, int32(1), computes.Load(), "second Get must hit cache")
}

func TestDocCacheUnresolvableURI(t *testing.T) {
	ws := workspace.NewInMemory()
	c := cache.NewDocCache(ws, func(_ context.Context, doc document.Document) (string, error) {
		return doc.Content(), nil
	})
	defer c.Dispose()

	_, ok, err := c.Get(context.Background(), "file:///missing.md")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDocCacheChangeInvalidates(t *testing.T) {
	ws := workspace.NewInMemory()
	ws.AddDocument(newDoc("file:///a.md", 0, "old"))

	c := cache.NewDocCache(ws, func(_ context.Context, doc document.Document) (string, error) {
		return doc.Content(), nil
	})
	defer c.Dispose()

	got, _, err := c.Get(context.Background(), "file:///a.md")
	require.NoError(t, err)
	require.Equal(t, "old", got)

	ws.ChangeDocument(newDoc("file:///a.md", 1, "new"))

	got, _, err = c.Get(context.Background(), "file:///a.md")
	require.NoError(t, err)
	assert.Equal(t, "new", got)
}

func TestDocCacheDeleteEvicts(t *testing.T) {
	ws := workspace.NewInMemory()
	ws.AddDocument(newDoc("file:///a.md", 0, "content"))

	c := cache.NewDocCache(ws, func(_ context.Context, doc document.Document) (string, error) {
		return doc.Content(), nil
	})
	defer c.Dispose()

	_, ok, _ := c.Get(context.Background(), "file:///a.md")
	require.True(t, ok)

	ws.DeleteDocument("file:///a.md")

	_, ok, err := c.Get(context.Background(), "file:///a.md")
	require.NoError(t, err)
	assert.False(t, ok, "deleted document must behave as if it never existed")
}

func TestDocCacheGetForDocumentSkipsLoad(t *testing.T) {
	ws := workspace.NewInMemory()
	c := cache.NewDocCache(ws, func(_ context.Context, doc document.Document) (string, error) {
		return doc.Content(), nil
	})
	defer c.Dispose()

	// Document is not registered in the workspace at all.
	got, err := c.GetForDocument(context.Background(), newDoc("untitled:u1", 0, "draft"))
	require.NoError(t, err)
	assert.Equal(t, "draft", got)
}

func TestDocCacheConcurrentMissSharesLoad(t *testing.T) {
	ws := workspace.NewInMemory()
	ws.AddDocument(newDoc("file:///a.md", 0, "x"))

	var computes atomic.Int32
	c := cache.NewDocCache(ws, func(_ context.Context, doc document.Document) (string, error) {
		computes.Add(1)
		return doc.Content(), nil
	})
	defer c.Dispose()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = c.Get(context.Background(), "file:///a.md")
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), computes.Load())
}

func TestWorkspaceCacheEagerPopulation(t *testing.T) {
	ws := workspace.NewInMemory()
	ws.AddDocument(newDoc("file:///a.md", 0, "a"))
	ws.AddDocument(newDoc("file:///b.md", 0, "b"))

	c := cache.NewWorkspaceCache(ws, func(_ context.Context, doc document.Document) (string, error) {
		return doc.Content(), nil
	})
	defer c.Dispose()

	values, err := c.Values(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, values)
}

func TestWorkspaceCacheTracksCreateAndDelete(t *testing.T) {
	ws := workspace.NewInMemory()
	c := cache.NewWorkspaceCache(ws, func(_ context.Context, doc document.Document) (string, error) {
		return doc.Content(), nil
	})
	defer c.Dispose()

	_, err := c.Values(context.Background())
	require.NoError(t, err)

	ws.AddDocument(newDoc("file:///new.md", 0, "fresh"))
	values, err := c.Values(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, values)

	ws.DeleteDocument("file:///new.md")
	values, err = c.Values(context.Background())
	require.NoError(t, err)
	assert.Empty(t, values)
}
