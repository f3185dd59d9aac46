// Package cache provides the in-process TTL cache used to memoize analysis
// results and aggregate statistics.
package cache

import (
	"sync"
	"time"
)

// DefaultTTL is used when neither the caller nor the constructor provide a TTL
const DefaultTTL = time.Hour

// Entry is a stored value with its lifetime
type Entry[V any] struct {
	Value     V
	CreatedAt time.Time
	ExpiresAt time.Time
}

// active reports whether the entry is still valid at now
func (e Entry[V]) active(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// Stats is a point-in-time view of the cache
type Stats struct {
	TotalEntries   int   `json:"total_entries"`
	ActiveEntries  int   `json:"active_entries"`
	ExpiredEntries int   `json:"expired_entries"`
	Hits           int64 `json:"hits"`
	Misses         int64 `json:"misses"`
}

// Observer receives hit/miss notifications (metrics)
type Observer interface {
	CacheHit()
	CacheMiss()
}

// Option configures a Cache
type Option[V any] func(*Cache[V])

// WithClock replaces time.Now, for tests
func WithClock[V any](now func() time.Time) Option[V] {
	return func(c *Cache[V]) { c.now = now }
}

// WithObserver attaches a hit/miss observer
func WithObserver[V any](o Observer) Option[V] {
	return func(c *Cache[V]) { c.observer = o }
}

// Cache is a key/value store with per-entry expiry. There is no size based
// eviction: entries leave the cache only by expiring, Delete or Clear.
type Cache[V any] struct {
	mu         sync.Mutex
	entries    map[string]Entry[V]
	defaultTTL time.Duration
	now        func() time.Time
	observer   Observer
	hits       int64
	misses     int64
}

// New creates a cache. A non-positive defaultTTL falls back to DefaultTTL.
func New[V any](defaultTTL time.Duration, opts ...Option[V]) *Cache[V] {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	c := &Cache[V]{
		entries:    make(map[string]Entry[V]),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value for key if present and unexpired. An expired entry
// is removed as a side effect and reported as a miss.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if ok && entry.active(c.now()) {
		c.hits++
		if c.observer != nil {
			c.observer.CacheHit()
		}
		return entry.Value, true
	}
	if ok {
		delete(c.entries, key)
	}

	c.misses++
	if c.observer != nil {
		c.observer.CacheMiss()
	}
	var zero V
	return zero, false
}

// Set stores value under key, replacing any existing entry. A non-positive
// ttl uses the cache default.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.entries[key] = Entry[V]{
		Value:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// Delete removes key and reports whether it was present
func (c *Cache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		return false
	}
	delete(c.entries, key)
	return true
}

// Clear removes every entry
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Entry[V])
}

// Stats scans all entries. It never purges.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	active := 0
	for _, entry := range c.entries {
		if entry.active(now) {
			active++
		}
	}

	return Stats{
		TotalEntries:   len(c.entries),
		ActiveEntries:  active,
		ExpiredEntries: len(c.entries) - active,
		Hits:           c.hits,
		Misses:         c.misses,
	}
}

// CleanupExpired removes expired entries and returns how many were removed
func (c *Cache[V]) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, entry := range c.entries {
		if !entry.active(now) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}
