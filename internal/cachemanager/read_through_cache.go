package cachemanager

import (
	"context"
	"time"
)

// ReadThroughCache wraps a loader function with a CacheManager. Cache
// misses call the loader and store its result; callers can bypass the
// cache entirely via shouldSkipCache (for example when caching is
// disabled in config).
type ReadThroughCache[K ~string, V any, I any] struct {
	cache           CacheManager[K, V]
	loader          func(ctx context.Context, input I) (V, error)
	keyFn           func(input I) K
	ttl             time.Duration
	shouldSkipCache func() bool
}

// NewReadThroughCache builds a read-through wrapper over cache. keyFn
// derives the cache key from the loader input.
func NewReadThroughCache[K ~string, V any, I any](
	cache CacheManager[K, V],
	loader func(ctx context.Context, input I) (V, error),
	keyFn func(input I) K,
	ttl time.Duration,
	shouldSkipCache func() bool,
) *ReadThroughCache[K, V, I] {
	return &ReadThroughCache[K, V, I]{
		cache:           cache,
		loader:          loader,
		keyFn:           keyFn,
		ttl:             ttl,
		shouldSkipCache: shouldSkipCache,
	}
}

// Get returns the cached value for input, loading and storing it on a miss.
func (r *ReadThroughCache[K, V, I]) Get(ctx context.Context, input I) (V, error) {
	if r.shouldSkipCache != nil && r.shouldSkipCache() {
		return r.loader(ctx, input)
	}
	key := r.keyFn(input)
	if value, found := r.cache.Get(ctx, key); found {
		return value, nil
	}
	value, err := r.loader(ctx, input)
	if err != nil {
		var zero V
		return zero, err
	}
	r.cache.Set(ctx, key, value, r.ttl)
	return value, nil
}

// GetWithRefresh is Get, but a cache hit also re-arms the entry's TTL.
func (r *ReadThroughCache[K, V, I]) GetWithRefresh(ctx context.Context, input I) (V, error) {
	if r.shouldSkipCache != nil && r.shouldSkipCache() {
		return r.loader(ctx, input)
	}
	key := r.keyFn(input)
	if value, found := r.cache.GetWithRefresh(ctx, key, r.ttl); found {
		return value, nil
	}
	value, err := r.loader(ctx, input)
	if err != nil {
		var zero V
		return zero, err
	}
	r.cache.Set(ctx, key, value, r.ttl)
	return value, nil
}
