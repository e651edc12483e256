// Package lru implements a bounded, time-bounded cache with a
// user-supplied compute function and reentrant lookups (spec §4.14).
//
// Grounded on spec §4.14's description and the compute-function/
// "Source" shape used by the cache abstractions in
// newbthenewbd-btrfs-rec/lib/containers (a cache miss calls a supplied
// function to produce the value), adapted into gastrolog's plain,
// non-generic-heavy-literate style: no license header, terse comments,
// and a single small file rather than a multi-type cache hierarchy.
package lru

import (
	"sync"
	"time"
)

type record[V any] struct {
	value   V
	expires time.Time
}

// Cache is a bounded mapping from K to V where each entry has a
// freshness deadline. Get calls the supplied compute function on a
// miss or stale hit; compute may itself call Get reentrantly (e.g. to
// look up a dependency), which is why the cache's own lock is never
// held while compute runs.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	entries  map[K]record[V]
}

// New returns an empty cache bounded to capacity entries (eviction
// is smallest-wall-time-first once capacity is exceeded on insert).
func New[K comparable, V any](capacity int) *Cache[K, V] {
	return &Cache[K, V]{
		capacity: capacity,
		entries:  map[K]record[V]{},
	}
}

// Get returns a cached value for key if it is still fresh as of now,
// otherwise it calls compute(key), stores the result with the
// deadline compute reports, and returns that. compute runs without
// the cache lock held, so it may call Get on the same cache
// reentrantly.
func (c *Cache[K, V]) Get(now time.Time, key K, compute func(K) (V, time.Time)) V {
	c.mu.Lock()
	if rec, ok := c.entries[key]; ok && now.Before(rec.expires) {
		c.mu.Unlock()
		return rec.value
	}
	c.mu.Unlock()

	value, expires := compute(key)

	c.mu.Lock()
	c.entries[key] = record[V]{value: value, expires: expires}
	c.evictIfOverCapacity()
	c.mu.Unlock()

	return value
}

// Invalidate removes key, if present.
func (c *Cache[K, V]) Invalidate(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len returns the current entry count.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictIfOverCapacity removes the entries with the smallest deadlines
// until the cache is back at or under capacity. Must be called with
// the lock held.
func (c *Cache[K, V]) evictIfOverCapacity() {
	for len(c.entries) > c.capacity {
		var oldestKey K
		var oldest time.Time
		first := true
		for k, rec := range c.entries {
			if first || rec.expires.Before(oldest) {
				oldestKey = k
				oldest = rec.expires
				first = false
			}
		}
		delete(c.entries, oldestKey)
	}
}
