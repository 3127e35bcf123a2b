package idempotency

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestCache() (*Cache, *manualClock) {
	clock := &manualClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	return New(WithClock(clock.Now), WithShardCount(4)), clock
}

func TestCacheStoreThenCheckReturnsValue(t *testing.T) {
	cache, _ := newTestCache()

	require.NoError(t, cache.Store("createAgenda:abc", "agenda-1", time.Minute))

	value, err := cache.Check("createAgenda:abc")
	require.NoError(t, err)
	assert.Equal(t, "agenda-1", value)
}

func TestCacheCheckDistinguishesMissingFromExpired(t *testing.T) {
	cache, clock := newTestCache()

	_, err := cache.Check("never-stored")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, cache.Store("k", 1, time.Second))
	clock.Advance(2 * time.Second)

	_, err = cache.Check("k")
	assert.ErrorIs(t, err, ErrExpired)

	// The expired check evicted the entry.
	_, err = cache.Check("k")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, cache.Len())
}

func TestCacheEntryExpiresExactlyAtTTL(t *testing.T) {
	cache, clock := newTestCache()
	require.NoError(t, cache.Store("k", 1, time.Second))

	clock.Advance(999 * time.Millisecond)
	_, err := cache.Check("k")
	require.NoError(t, err)

	clock.Advance(time.Millisecond)
	_, err = cache.Check("k")
	assert.ErrorIs(t, err, ErrExpired)
}

func TestCacheStoreRejectsNonPositiveTTL(t *testing.T) {
	cache, _ := newTestCache()
	assert.ErrorIs(t, cache.Store("k", 1, 0), ErrInvalidTTL)
	assert.ErrorIs(t, cache.Store("k", 1, -time.Second), ErrInvalidTTL)
}

func TestCacheStoreOverwritesAndRefreshesTTL(t *testing.T) {
	cache, clock := newTestCache()
	require.NoError(t, cache.Store("k", "old", time.Second))
	clock.Advance(900 * time.Millisecond)
	require.NoError(t, cache.Store("k", "new", time.Second))
	clock.Advance(900 * time.Millisecond)

	value, err := cache.Check("k")
	require.NoError(t, err)
	assert.Equal(t, "new", value)
}

func TestCacheInvalidate(t *testing.T) {
	cache, _ := newTestCache()
	require.NoError(t, cache.Store("k", 1, time.Minute))

	cache.Invalidate("k")
	cache.Invalidate("missing")

	_, err := cache.Check("k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCacheSweepRemovesOnlyExpiredEntries(t *testing.T) {
	cache, clock := newTestCache()
	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, cache.Store(key, key, time.Second))
	}
	require.NoError(t, cache.Store("long", "long", time.Hour))
	clock.Advance(2 * time.Second)

	assert.Equal(t, 3, cache.Sweep())
	assert.Equal(t, 1, cache.Len())
	assert.Equal(t, 0, cache.Sweep())

	value, err := cache.Check("long")
	require.NoError(t, err)
	assert.Equal(t, "long", value)
}

func TestCacheExecuteRunsOnceThenReplays(t *testing.T) {
	cache, _ := newTestCache()
	calls := 0
	fn := func(context.Context) (any, error) {
		calls++
		return "agenda-1", nil
	}

	first, replayed, err := cache.Execute(context.Background(), "k", time.Minute, fn)
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, "agenda-1", first)

	second, replayed, err := cache.Execute(context.Background(), "k", time.Minute, fn)
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestCacheExecuteDoesNotStoreFailures(t *testing.T) {
	cache, _ := newTestCache()
	boom := errors.New("boom")
	calls := 0

	_, _, err := cache.Execute(context.Background(), "k", time.Minute, func(context.Context) (any, error) {
		calls++
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	value, replayed, err := cache.Execute(context.Background(), "k", time.Minute, func(context.Context) (any, error) {
		calls++
		return 42, nil
	})
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, 42, value)
	assert.Equal(t, 2, calls)
}

func TestCacheExecuteReRunsAfterExpiry(t *testing.T) {
	cache, clock := newTestCache()
	calls := 0
	fn := func(context.Context) (any, error) {
		calls++
		return calls, nil
	}

	_, _, err := cache.Execute(context.Background(), "k", time.Second, fn)
	require.NoError(t, err)
	clock.Advance(2 * time.Second)

	value, replayed, err := cache.Execute(context.Background(), "k", time.Second, fn)
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, 2, value)
}

func TestCacheExecuteConcurrentCallersShareOneExecution(t *testing.T) {
	cache, _ := newTestCache()
	var calls atomic.Int32
	var fresh atomic.Int32
	release := make(chan struct{})

	group, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 32; i++ {
		group.Go(func() error {
			value, replayed, err := cache.Execute(ctx, "shared", time.Minute, func(context.Context) (any, error) {
				calls.Add(1)
				<-release
				return "result", nil
			})
			if err != nil {
				return err
			}
			if value != "result" {
				return errors.New("unexpected value")
			}
			if !replayed {
				fresh.Add(1)
			}
			return nil
		})
	}
	time.Sleep(20 * time.Millisecond)
	close(release)

	require.NoError(t, group.Wait())
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int32(1), fresh.Load())
}

func TestCacheKeysOnDifferentShardsDoNotInterfere(t *testing.T) {
	cache, _ := newTestCache()
	group := errgroup.Group{}
	for i := 0; i < 200; i++ {
		key := string(rune('a'+i%26)) + time.Duration(i).String()
		group.Go(func() error {
			return cache.Store(key, key, time.Minute)
		})
	}
	require.NoError(t, group.Wait())
	assert.Equal(t, 200, cache.Len())
}
