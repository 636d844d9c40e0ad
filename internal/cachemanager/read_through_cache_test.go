package cachemanager

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func lineageKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestReadThroughCache_LoadsOnMiss(t *testing.T) {
	cache := NewInMemoryCacheManager[string, string]("test", DefaultExpiration, DefaultCleanupInterval)
	calls := 0
	loader := func(_ context.Context, id int64) (string, error) {
		calls++
		return "chain:" + lineageKey(id), nil
	}

	rtc := NewReadThroughCache(cache, loader, lineageKey, time.Minute, nil)

	value, err := rtc.Get(context.Background(), 4)
	require.NoError(t, err)
	require.Equal(t, "chain:4", value)
	require.Equal(t, 1, calls, "miss should hit the loader once")
}

func TestReadThroughCache_ServesFromCache(t *testing.T) {
	cache := NewInMemoryCacheManager[string, string]("test", DefaultExpiration, DefaultCleanupInterval)
	calls := 0
	loader := func(_ context.Context, id int64) (string, error) {
		calls++
		return "chain:" + lineageKey(id), nil
	}

	rtc := NewReadThroughCache(cache, loader, lineageKey, time.Minute, nil)
	ctx := context.Background()

	for range 3 {
		value, err := rtc.Get(ctx, 4)
		require.NoError(t, err)
		require.Equal(t, "chain:4", value)
	}
	require.Equal(t, 1, calls, "repeat reads should not reload")
}

func TestReadThroughCache_DistinctKeys(t *testing.T) {
	cache := NewInMemoryCacheManager[string, string]("test", DefaultExpiration, DefaultCleanupInterval)
	loader := func(_ context.Context, id int64) (string, error) {
		return "chain:" + lineageKey(id), nil
	}

	rtc := NewReadThroughCache(cache, loader, lineageKey, time.Minute, nil)
	ctx := context.Background()

	a, err := rtc.Get(ctx, 1)
	require.NoError(t, err)
	b, err := rtc.Get(ctx, 2)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestReadThroughCache_LoaderError(t *testing.T) {
	cache := NewInMemoryCacheManager[string, string]("test", DefaultExpiration, DefaultCleanupInterval)
	wantErr := errors.New("run not found")
	loader := func(_ context.Context, _ int64) (string, error) {
		return "", wantErr
	}

	rtc := NewReadThroughCache(cache, loader, lineageKey, time.Minute, nil)

	_, err := rtc.Get(context.Background(), 404)
	require.ErrorIs(t, err, wantErr)

	// An error result must not be cached.
	_, found := cache.Get(context.Background(), "404")
	require.False(t, found)
}

func TestReadThroughCache_SkipBypassesCache(t *testing.T) {
	cache := NewInMemoryCacheManager[string, string]("test", DefaultExpiration, DefaultCleanupInterval)
	calls := 0
	loader := func(_ context.Context, id int64) (string, error) {
		calls++
		return "chain:" + lineageKey(id), nil
	}
	skip := func() bool { return true }

	rtc := NewReadThroughCache(cache, loader, lineageKey, time.Minute, skip)
	ctx := context.Background()

	for range 3 {
		_, err := rtc.Get(ctx, 4)
		require.NoError(t, err)
	}
	require.Equal(t, 3, calls, "skip should force every read through the loader")

	_, found := cache.Get(ctx, "4")
	require.False(t, found, "skip must not populate the cache")
}

func TestReadThroughCache_GetWithRefresh(t *testing.T) {
	cache := NewInMemoryCacheManager[string, string]("test", DefaultExpiration, DefaultCleanupInterval)
	calls := 0
	loader := func(_ context.Context, id int64) (string, error) {
		calls++
		return "chain:" + lineageKey(id), nil
	}

	rtc := NewReadThroughCache(cache, loader, lineageKey, 40*time.Millisecond, nil)
	ctx := context.Background()

	_, err := rtc.GetWithRefresh(ctx, 4)
	require.NoError(t, err)

	// Refreshing keeps the entry alive past its original TTL.
	for range 4 {
		time.Sleep(20 * time.Millisecond)
		_, err := rtc.GetWithRefresh(ctx, 4)
		require.NoError(t, err)
	}
	require.Equal(t, 1, calls, "refreshed entry should not reload")
}
