package loader

import (
	"strconv"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/elastic/go-freelru"
)

// Resource is a loaded resource resident in memory.
type Resource struct {
	Key    string
	Width  int
	Height int
	Data   []byte
}

// Cache is the resident resource cache: an LRU keyed by the digest of
// (key, width, height), matching how a view looks resources up when bound.
type Cache struct {
	lru *freelru.SyncedLRU[uint64, Resource]

	// Stats
	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

const (
	// MinCacheSize is the smallest capacity NewCache accepts: a screen of
	// items plus the preload window.
	MinCacheSize = 16
	// DefaultCacheSize is the capacity used when none is configured.
	DefaultCacheSize = 256
)

// NewCache creates a cache holding at most maxEntries resources.
func NewCache(maxEntries int) (*Cache, error) {
	maxEntries = max(maxEntries, MinCacheSize)

	lru, err := freelru.NewSynced[uint64, Resource](uint32(maxEntries), hashDigest)
	if err != nil {
		return nil, err
	}

	c := &Cache{lru: lru}
	lru.SetOnEvict(func(uint64, Resource) {
		c.evictions.Add(1)
	})
	return c, nil
}

// hashDigest folds an xxhash digest into freelru's bucket hash
func hashDigest(d uint64) uint32 {
	return uint32(d ^ d>>32)
}

// Digest returns the cache digest of a resource key at the given size.
func Digest(key string, width, height int) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(key)
	_, _ = d.WriteString("@")
	_, _ = d.WriteString(strconv.Itoa(width))
	_, _ = d.WriteString("x")
	_, _ = d.WriteString(strconv.Itoa(height))
	return d.Sum64()
}

// Put adds a resource, replacing any existing entry for the same key and size.
func (c *Cache) Put(r Resource) {
	c.lru.Add(Digest(r.Key, r.Width, r.Height), r)
}

// Get retrieves a resource.
// Returns (Resource, true) on cache hit, (Resource{}, false) on miss.
func (c *Cache) Get(key string, width, height int) (Resource, bool) {
	r, ok := c.lru.Get(Digest(key, width, height))
	if !ok {
		c.misses.Add(1)
		return Resource{}, false
	}
	c.hits.Add(1)
	return r, true
}

// Contains reports whether a resource is resident without touching recency
// or statistics.
func (c *Cache) Contains(key string, width, height int) bool {
	return c.lru.Contains(Digest(key, width, height))
}

// Delete removes a resource from the cache.
func (c *Cache) Delete(key string, width, height int) {
	c.lru.Remove(Digest(key, width, height))
}

// Size returns current number of cached entries
func (c *Cache) Size() int {
	return c.lru.Len()
}

type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// Stats returns cache statistics
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

// ClearStats resets the cache's positive incrementing statistics
func (c *Cache) ClearStats() {
	c.hits.Store(0)
	c.misses.Store(0)
	c.evictions.Store(0)
}
