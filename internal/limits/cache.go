// Package limits tracks per-user, per-deck daily study quotas against a
// key-value cache. Counter keys embed the calendar date, so counts expire
// naturally when the day rolls over.
package limits

import (
	"strings"
	"sync"
	"time"
)

// Cache is the counter backend contract. An in-process implementation is
// provided; a shared store (e.g. Redis) can be swapped in behind the same
// interface for horizontal scaling.
type Cache interface {
	Get(key string) (int, bool)
	Set(key string, value int, ttl time.Duration)
	DeletePrefix(prefix string)
}

type cacheEntry struct {
	value     int
	expiresAt time.Time
}

// MemoryCache is a mutex-guarded in-process Cache with lazy expiry.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]cacheEntry)}
}

// Get returns the value for key, or false if absent or expired.
func (c *MemoryCache) Get(key string) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return 0, false
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		return 0, false
	}
	return e.value, true
}

// Set stores value under key. A non-positive ttl means no expiry.
func (c *MemoryCache) Set(key string, value int, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := cacheEntry{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	c.entries[key] = e
}

// DeletePrefix removes every key starting with prefix.
func (c *MemoryCache) DeletePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
}
