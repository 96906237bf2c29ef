package client

import (
	"github.com/cespare/xxhash"
)

// StatementCache maps SQL text fingerprints to server-side sql ids with LRU
// eviction. One cache belongs to one stream: sql ids are meaningless
// outside the stream they were stored on.
type StatementCache struct {
	entries     map[uint64]int32
	accessOrder []uint64
	maxSize     int
}

// NewStatementCache creates a cache with the given maximum size.
func NewStatementCache(maxSize int) *StatementCache {
	return &StatementCache{
		entries:     make(map[uint64]int32, maxSize),
		accessOrder: make([]uint64, 0, maxSize),
		maxSize:     maxSize,
	}
}

// Fingerprint hashes a SQL text into a cache key.
func Fingerprint(sql string) uint64 {
	return xxhash.Sum64String(sql)
}

// Get retrieves the sql id for a fingerprint, marking it most recently
// used.
func (c *StatementCache) Get(key uint64) (int32, bool) {
	id, ok := c.entries[key]
	if !ok {
		return 0, false
	}
	c.touch(key)
	return id, true
}

// Put stores a fingerprint-to-id mapping, evicting the least recently used
// entry if the cache is full.
func (c *StatementCache) Put(key uint64, id int32) {
	if _, ok := c.entries[key]; ok {
		c.entries[key] = id
		c.touch(key)
		return
	}
	if len(c.accessOrder) >= c.maxSize {
		lru := c.accessOrder[0]
		c.accessOrder = c.accessOrder[1:]
		delete(c.entries, lru)
	}
	c.entries[key] = id
	c.accessOrder = append(c.accessOrder, key)
}

// Len returns the number of cached entries.
func (c *StatementCache) Len() int {
	return len(c.entries)
}

// touch moves a key to the end of the access order (most recently used).
func (c *StatementCache) touch(key uint64) {
	for i, k := range c.accessOrder {
		if k == key {
			c.accessOrder = append(c.accessOrder[:i], c.accessOrder[i+1:]...)
			break
		}
	}
	c.accessOrder = append(c.accessOrder, key)
}
