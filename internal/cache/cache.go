// Package cache provides a generic in-process TTL cache with singleflight
// load semantics: concurrent misses for the same key collapse into one
// loader call and all callers receive its result.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kunmmi/zagama/logger"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a key→value store with per-entry expiry. Expired entries are
// evicted lazily on access; Sweep may run periodically but is optional.
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
	group   singleflight.Group

	// now is swappable for tests.
	now func() time.Time
}

// New creates an empty cache.
func New[V any]() *Cache[V] {
	return &Cache[V]{
		entries: make(map[string]entry[V]),
		now:     time.Now,
	}
}

// GetOrLoad returns the cached value for key, or runs loader and caches its
// result for ttl. At most one loader runs per key at a time; concurrent
// callers attach to the in-flight load and share the same value or error.
// Errors are never cached, so the next call retries immediately.
func (c *Cache[V]) GetOrLoad(ctx context.Context, key string, ttl time.Duration, loader func(ctx context.Context) (V, error)) (V, error) {
	if v, ok := c.get(key); ok {
		logger.RecordCacheHit()
		return v, nil
	}
	logger.RecordCacheMiss()

	res, err, _ := c.group.Do(key, func() (interface{}, error) {
		// A previous flight may have stored the value between our miss
		// and acquiring the flight.
		if v, ok := c.get(key); ok {
			return v, nil
		}
		v, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		c.set(key, v, ttl)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

// Remove drops the entry for key, if any.
func (c *Cache[V]) Remove(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len counts live (unexpired) entries.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	now := c.now()
	for _, e := range c.entries {
		if now.Before(e.expiresAt) {
			n++
		}
	}
	return n
}

// Sweep removes expired entries and returns how many were dropped.
func (c *Cache[V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	dropped := 0
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			dropped++
		}
	}
	return dropped
}

// StartSweep runs Sweep every interval until ctx is cancelled. Foreground
// lookups never wait on it.
func (c *Cache[V]) StartSweep(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.Sweep()
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (c *Cache[V]) get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		var zero V
		return zero, false
	}
	if !c.now().Before(e.expiresAt) {
		c.Remove(key)
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *Cache[V]) set(key string, v V, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = entry[V]{value: v, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
}
