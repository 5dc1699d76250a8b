package ir

import (
	"bytes"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of decoded expressions kept by NewCache
// when size is not positive.
const DefaultCacheSize = 1024

// Cache memoizes Unmarshal by the xxhash of the wire bytes. A planner sends
// the same serialized predicate for every partition of a query, and often
// across queries; decoding it once is enough since Node trees are immutable.
//
// Cache is safe for concurrent use.
type Cache struct {
	entries *lru.Cache[uint64, cacheEntry]
	hits    atomic.Int64
	misses  atomic.Int64
}

type cacheEntry struct {
	wire []byte
	node *Node
}

// NewCache creates a cache bounded to size entries.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[uint64, cacheEntry](size)
	if err != nil {
		return nil, err
	}
	return &Cache{entries: entries}, nil
}

// Decode returns the tree for wire, decoding it on a miss.
func (c *Cache) Decode(wire []byte) (*Node, error) {
	key := xxhash.Sum64(wire)
	if e, ok := c.entries.Get(key); ok && bytes.Equal(e.wire, wire) {
		c.hits.Add(1)
		return e.node, nil
	}
	c.misses.Add(1)
	n, err := Unmarshal(wire)
	if err != nil {
		return nil, err
	}
	c.entries.Add(key, cacheEntry{wire: bytes.Clone(wire), node: n})
	return n, nil
}

// CacheStats reports cache effectiveness.
type CacheStats struct {
	Hits   int64
	Misses int64
	Len    int
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() CacheStats {
	return CacheStats{Hits: c.hits.Load(), Misses: c.misses.Load(), Len: c.entries.Len()}
}
