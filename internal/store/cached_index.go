package store

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Aman-CERP/songbook/internal/song"
)

// DefaultQueryCacheSize is the number of distinct queries kept.
const DefaultQueryCacheSize = 256

// CachedIndex wraps a SongIndex with an LRU of search results. Any
// mutation purges the cache, so cached results never outlive the state
// they were computed from.
type CachedIndex struct {
	inner SongIndex
	cache *lru.Cache[string, []*SearchResult]
}

var _ SongIndex = (*CachedIndex)(nil)

// NewCachedIndex wraps inner. A non-positive size uses the default.
func NewCachedIndex(inner SongIndex, size int) *CachedIndex {
	if size <= 0 {
		size = DefaultQueryCacheSize
	}
	cache, _ := lru.New[string, []*SearchResult](size)
	return &CachedIndex{inner: inner, cache: cache}
}

func cacheKey(query string, limit int) string {
	return fmt.Sprintf("%d\x00%s", limit, query)
}

// Search returns a cached result when the same query and limit were seen
// since the last mutation.
func (c *CachedIndex) Search(ctx context.Context, query string, limit int) ([]*SearchResult, error) {
	key := cacheKey(query, limit)
	if hits, ok := c.cache.Get(key); ok {
		return hits, nil
	}

	hits, err := c.inner.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, hits)
	return hits, nil
}

func (c *CachedIndex) Add(ctx context.Context, v *song.View) error {
	defer c.cache.Purge()
	return c.inner.Add(ctx, v)
}

func (c *CachedIndex) AddAll(ctx context.Context, views []*song.View) error {
	defer c.cache.Purge()
	return c.inner.AddAll(ctx, views)
}

func (c *CachedIndex) Remove(ctx context.Context, v *song.View) error {
	defer c.cache.Purge()
	return c.inner.Remove(ctx, v)
}

func (c *CachedIndex) Clear(ctx context.Context) error {
	defer c.cache.Purge()
	return c.inner.Clear(ctx)
}

func (c *CachedIndex) AllIDs() ([]int64, error) { return c.inner.AllIDs() }
func (c *CachedIndex) Count() int              { return c.inner.Count() }

// CachedQueries returns the number of cached queries.
func (c *CachedIndex) CachedQueries() int { return c.cache.Len() }

// Close purges the cache and closes the wrapped index.
func (c *CachedIndex) Close() error {
	c.cache.Purge()
	return c.inner.Close()
}
