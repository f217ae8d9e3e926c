package ingest

import (
	"fmt"
	"path/filepath"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// tableCache is an LRU cache of parsed spreadsheets keyed by cleaned path.
// Report sections re-read the same dataset within a run; caching keeps each
// file parsed exactly once. Thread-safe, uses hashicorp/golang-lru under the
// hood.
type tableCache struct {
	cache *lru.Cache[string, *table]

	// Metrics
	hits   uint64
	misses uint64
}

func newTableCache(maxSize int) (*tableCache, error) {
	if maxSize <= 0 {
		maxSize = 16
	}

	cache, err := lru.New[string, *table](maxSize)
	if err != nil {
		return nil, fmt.Errorf("ingest: failed to create table cache: %w", err)
	}

	return &tableCache{cache: cache}, nil
}

func cacheKey(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

func (c *tableCache) get(path string) (*table, bool) {
	if c == nil || c.cache == nil {
		return nil, false
	}

	t, ok := c.cache.Get(cacheKey(path))
	if !ok {
		atomic.AddUint64(&c.misses, 1)
		return nil, false
	}

	atomic.AddUint64(&c.hits, 1)
	return t, true
}

func (c *tableCache) add(path string, t *table) {
	if c == nil || c.cache == nil {
		return
	}
	c.cache.Add(cacheKey(path), t)
}

// Stats returns cache hit/miss counts for end-of-run logging.
func (c *tableCache) Stats() (hits, misses uint64) {
	if c == nil {
		return 0, 0
	}
	return atomic.LoadUint64(&c.hits), atomic.LoadUint64(&c.misses)
}
