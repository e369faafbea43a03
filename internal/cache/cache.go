package cache

import (
	"context"
	"sync"
	"time"
)

// Cache is a key/value store with per-entry TTL. Both the geocode and the
// weather caches are instances of this interface with their own value type.
type Cache[V any] interface {
	Get(ctx context.Context, key string) (V, bool, error)
	Set(ctx context.Context, key string, value V, ttl time.Duration) error
}

// Memory implements Cache with an in-process map. Expired entries are
// deleted lazily by the Get that observes them; there is no background
// sweep and no capacity bound. The clock is injectable for tests.
type Memory[V any] struct {
	mu   sync.Mutex
	now  func() time.Time
	data map[string]entry[V]
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// NewMemory creates an in-memory cache using the wall clock.
func NewMemory[V any]() *Memory[V] {
	return NewMemoryWithClock[V](time.Now)
}

// NewMemoryWithClock creates an in-memory cache with a caller-supplied time
// source, so tests can make expiry deterministic.
func NewMemoryWithClock[V any](now func() time.Time) *Memory[V] {
	return &Memory[V]{
		now:  now,
		data: make(map[string]entry[V]),
	}
}

// Get returns (value, true, nil) on a hit and (zero, false, nil) on a miss
// or when the entry has expired. An expired entry is never returned, even
// one instant past its TTL, and is removed on access.
func (c *Memory[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.data[key]
	if !ok {
		return zero, false, nil
	}
	if c.now().After(e.expiresAt) {
		delete(c.data, key)
		return zero, false, nil
	}
	return e.value, true, nil
}

// Set stores value under key, overwriting any existing entry. The entry
// expires ttl after the current time. The value is stored as-is; callers
// must not mutate it after handing it over.
func (c *Memory[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = entry[V]{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}
	return nil
}

// Len returns the number of entries currently held, including ones that
// expired but have not been read since. Used by tests.
func (c *Memory[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}
