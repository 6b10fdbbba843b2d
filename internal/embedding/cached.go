// Package embedding holds embedder decorators shared by all backends.
package embedding

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"ragchat/internal/domain"
)

// Cached memoises embeddings of recently seen texts. Conversations tend to
// repeat retrieval queries, and remote embedders are billed per call.
type Cached struct {
	inner domain.Embedder
	cache *lru.Cache[string, []float32]
}

// NewCached wraps inner with an LRU cache of the given size. size <= 0
// returns inner unchanged.
func NewCached(inner domain.Embedder, size int) (domain.Embedder, error) {
	if size <= 0 {
		return inner, nil
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, err
	}
	return &Cached{inner: inner, cache: cache}, nil
}

func (c *Cached) Name() string { return c.inner.Name() }

func (c *Cached) Dimension() int { return c.inner.Dimension() }

func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.cache.Get(text); ok {
		return v, nil
	}
	v, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(text, v)
	return v, nil
}
