package base

import (
	"crypto/sha256"
	"sync"
	"sync/atomic"
	"time"

	"github.com/termfx/sift/providers"
	"github.com/termfx/sift/syntax"
)

const (
	DefaultCacheAge     = 5 * time.Minute
	DefaultCacheEntries = 512
)

// TreeCache keeps converted syntax trees keyed by a hash of their source.
// Watch mode re-searches unchanged files often; the cache skips those parses.
type TreeCache struct {
	cache      sync.Map // [32]byte -> *cachedTree
	size       atomic.Int64
	hits       atomic.Int64
	misses     atomic.Int64
	maxAge     time.Duration
	maxEntries int64
}

type cachedTree struct {
	tree      *syntax.Tree
	timestamp time.Time
}

// NewTreeCache returns a cache bounded by entry age and count.
func NewTreeCache(maxAge time.Duration, maxEntries int) *TreeCache {
	return &TreeCache{maxAge: maxAge, maxEntries: int64(maxEntries)}
}

// Get returns the cached tree for source when it has not expired.
func (c *TreeCache) Get(source []byte) (*syntax.Tree, bool) {
	key := sha256.Sum256(source)
	v, ok := c.cache.Load(key)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	entry := v.(*cachedTree)
	if time.Since(entry.timestamp) > c.maxAge {
		if c.cache.CompareAndDelete(key, v) {
			c.size.Add(-1)
		}
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return entry.tree, true
}

// Put stores tree for source, pruning expired entries when the cache is full.
func (c *TreeCache) Put(source []byte, tree *syntax.Tree) {
	if c.maxEntries > 0 && c.size.Load() >= c.maxEntries {
		c.prune()
		if c.size.Load() >= c.maxEntries {
			return
		}
	}
	key := sha256.Sum256(source)
	if _, loaded := c.cache.LoadOrStore(key, &cachedTree{tree: tree, timestamp: time.Now()}); !loaded {
		c.size.Add(1)
	}
}

func (c *TreeCache) prune() {
	now := time.Now()
	c.cache.Range(func(key, value any) bool {
		if now.Sub(value.(*cachedTree).timestamp) > c.maxAge {
			if c.cache.CompareAndDelete(key, value) {
				c.size.Add(-1)
			}
		}
		return true
	})
}

// Len returns the number of cached trees.
func (c *TreeCache) Len() int {
	return int(c.size.Load())
}

// Stats returns cache statistics
func (c *TreeCache) Stats() providers.Stats {
	return providers.Stats{
		Parses:    c.misses.Load(),
		CacheHits: c.hits.Load(),
	}
}
