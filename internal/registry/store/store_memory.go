package store

import (
	"context"
	"sync"
	"time"
)

type cachedEntry struct {
	value      []byte
	expires    time.Time
	accessedAt time.Time
}

// InMemoryCache provides an in-memory cache with per-entry TTL expiration and
// optional least-recently-accessed eviction once a size cap is reached.
type InMemoryCache struct {
	mu      sync.RWMutex
	entries map[string]cachedEntry
	maxSize int
}

// Option configures the InMemoryCache.
type Option func(*InMemoryCache)

// WithMaxSize caps the number of entries; the least recently accessed entry
// is evicted when a save would exceed the cap. Zero means unbounded.
func WithMaxSize(n int) Option {
	return func(c *InMemoryCache) {
		c.maxSize = n
	}
}

// NewInMemoryCache creates an empty in-memory cache.
func NewInMemoryCache(opts ...Option) *InMemoryCache {
	c := &InMemoryCache{entries: make(map[string]cachedEntry)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get retrieves a cached value. Returns ErrNotFound if the entry does not
// exist or its TTL has lapsed.
func (c *InMemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok || time.Now().After(entry.expires) {
		return nil, ErrNotFound
	}
	entry.accessedAt = time.Now()
	c.entries[key] = entry
	return entry.value, nil
}

// Save stores a value under key with its own TTL, overwriting any previous
// entry and evicting the least recently accessed one when at capacity.
func (c *InMemoryCache) Save(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && c.maxSize > 0 && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}
	now := time.Now()
	c.entries[key] = cachedEntry{value: value, expires: now.Add(ttl), accessedAt: now}
	return nil
}

// evictOldest removes the least recently accessed entry. Caller holds the lock.
func (c *InMemoryCache) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for key, entry := range c.entries {
		if oldestKey == "" || entry.accessedAt.Before(oldest) {
			oldestKey = key
			oldest = entry.accessedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// CleanupExpired removes all expired entries. Intended to run on a timer so
// an idle cache does not hold dead entries until their keys are touched.
func (c *InMemoryCache) CleanupExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, entry := range c.entries {
		if now.After(entry.expires) {
			delete(c.entries, key)
		}
	}
}

// Size returns the current number of entries, expired ones included.
func (c *InMemoryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
