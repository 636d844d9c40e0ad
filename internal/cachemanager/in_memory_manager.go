package cachemanager

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"trackreg/internal/log"
)

const (
	// DefaultExpiration is the fallback TTL for entries stored without one.
	DefaultExpiration = 10 * time.Minute
	// DefaultCleanupInterval controls how often expired entries are purged.
	DefaultCleanupInterval = 30 * time.Minute
)

// InMemoryCacheManager backs CacheManager with an in-process go-cache store.
type InMemoryCacheManager[K ~string, V any] struct {
	cache   *gocache.Cache
	useCase string
}

var _ CacheManager[string, int] = (*InMemoryCacheManager[string, int])(nil)

// NewInMemoryCacheManager creates a cache for one use case. The useCase
// label appears in log lines so overlapping caches stay distinguishable.
func NewInMemoryCacheManager[K ~string, V any](useCase string, defaultExpiration, cleanupInterval time.Duration) *InMemoryCacheManager[K, V] {
	return &InMemoryCacheManager[K, V]{
		cache:   gocache.New(defaultExpiration, cleanupInterval),
		useCase: useCase,
	}
}

// Get returns the cached value for key, if present and unexpired.
func (c *InMemoryCacheManager[K, V]) Get(_ context.Context, key K) (V, bool) {
	var zero V
	raw, found := c.cache.Get(string(key))
	if !found {
		return zero, false
	}
	value, ok := raw.(V)
	if !ok {
		log.Error(log.CatCache, "cached value has unexpected type", "cache", c.useCase, "key", string(key))
		return zero, false
	}
	log.Debug(log.CatCache, "cache hit", "cache", c.useCase, "key", string(key))
	return value, true
}

// GetWithRefresh behaves like Get but re-arms the TTL on a hit.
func (c *InMemoryCacheManager[K, V]) GetWithRefresh(ctx context.Context, key K, ttl time.Duration) (V, bool) {
	value, found := c.Get(ctx, key)
	if !found {
		var zero V
		return zero, false
	}
	c.cache.Set(string(key), value, ttl)
	return value, true
}

// Set stores value under key with the given TTL.
func (c *InMemoryCacheManager[K, V]) Set(_ context.Context, key K, value V, ttl time.Duration) {
	c.cache.Set(string(key), value, ttl)
}

// Delete removes the given keys. Missing keys are not an error.
func (c *InMemoryCacheManager[K, V]) Delete(_ context.Context, keys ...K) error {
	for _, key := range keys {
		c.cache.Delete(string(key))
	}
	return nil
}

// Flush drops every entry in the cache.
func (c *InMemoryCacheManager[K, V]) Flush(_ context.Context) error {
	c.cache.Flush()
	log.Debug(log.CatCache, "cache flushed", "cache", c.useCase)
	return nil
}
