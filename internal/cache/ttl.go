// Package cache provides the process-local and Redis-backed caches the
// service shares between components.
package cache

import (
	"sync"
	"time"
)

// Cache is a keyed store with per-entry expiry.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V, ttl time.Duration)
	Delete(key K)
	Len() int
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache is a mutex-guarded map. Expired entries are dropped on read and
// when the size cap forces a sweep.
type TTLCache[K comparable, V any] struct {
	mu         sync.Mutex
	items      map[K]entry[V]
	maxEntries int
	now        func() time.Time
}

// NewTTLCache returns an unbounded cache.
func NewTTLCache[K comparable, V any]() *TTLCache[K, V] {
	return NewBoundedTTLCache[K, V](0)
}

// NewBoundedTTLCache keeps at most maxEntries items; zero means unbounded.
func NewBoundedTTLCache[K comparable, V any](maxEntries int) *TTLCache[K, V] {
	return &TTLCache[K, V]{
		items:      make(map[K]entry[V]),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.items[key]
	if !ok {
		return zero, false
	}
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		delete(c.items, key)
		return zero, false
	}
	return e.value, true
}

// Set stores value. A non-positive ttl keeps the entry until evicted.
func (c *TTLCache[K, V]) Set(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}
	if _, exists := c.items[key]; !exists && c.maxEntries > 0 && len(c.items) >= c.maxEntries {
		c.evictLocked()
	}
	c.items[key] = entry[V]{value: value, expiresAt: expiresAt}
}

func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

func (c *TTLCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// evictLocked drops expired entries, then the entry closest to expiry if the
// cache is still full.
func (c *TTLCache[K, V]) evictLocked() {
	now := c.now()
	var (
		victim    K
		victimAt  time.Time
		hasVictim bool
	)
	for k, e := range c.items {
		if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
			delete(c.items, k)
			continue
		}
		if !hasVictim || (!e.expiresAt.IsZero() && (victimAt.IsZero() || e.expiresAt.Before(victimAt))) {
			victim, victimAt, hasVictim = k, e.expiresAt, true
		}
	}
	if len(c.items) >= c.maxEntries && hasVictim {
		delete(c.items, victim)
	}
}
