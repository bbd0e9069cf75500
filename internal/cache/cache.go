package cache

import (
	"sync"
	"time"

	"arena-ladder/internal/clock"
)

// Cache is a small TTL cache with an injected clock. It replaces the
// module-level mutable maps that otherwise grow around engine results.
type Cache[V any] struct {
	clock clock.Clock
	ttl   time.Duration

	mu      sync.RWMutex
	entries map[string]entry[V]
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

func New[V any](clk clock.Clock, ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		clock:   clk,
		ttl:     ttl,
		entries: make(map[string]entry[V]),
	}
}

func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.clock.Now().After(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, expiresAt: c.clock.Now().Add(c.ttl)}
}

// Invalidate drops every entry, used after writes that change what cached
// reads would return.
func (c *Cache[V]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[V])
}
