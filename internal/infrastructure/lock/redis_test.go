package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/riskibarqy/polla/internal/platform/keylock"
	"github.com/stretchr/testify/require"
)

func newTestRedisLocker(t *testing.T, ttl time.Duration) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client, ttl), server
}

func TestRedisLocker_TryLockIsExclusive(t *testing.T) {
	t.Parallel()

	locker, _ := newTestRedisLocker(t, time.Minute)
	ctx := context.Background()

	ok, err := locker.TryLock(ctx, "match-sync:1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = locker.TryLock(ctx, "match-sync:1")
	require.NoError(t, err)
	require.False(t, ok, "second try lock must fail while held")

	ok, err = locker.TryLock(ctx, "match-sync:2")
	require.NoError(t, err)
	require.True(t, ok, "other keys must stay independent")

	require.NoError(t, locker.Unlock(ctx, "match-sync:1"))

	ok, err = locker.TryLock(ctx, "match-sync:1")
	require.NoError(t, err)
	require.True(t, ok, "key must be free after unlock")
}

func TestRedisLocker_UnlockNotHeld(t *testing.T) {
	t.Parallel()

	locker, _ := newTestRedisLocker(t, time.Minute)

	err := locker.Unlock(context.Background(), "missing")
	require.True(t, errors.Is(err, keylock.ErrNotHeld), "got %v", err)
}

func TestRedisLocker_ExpiredLockIsNotReleasedByStaleHolder(t *testing.T) {
	t.Parallel()

	ttl := 5 * time.Second
	first, server := newTestRedisLocker(t, ttl)
	second := NewRedisLocker(redis.NewClient(&redis.Options{Addr: server.Addr()}), ttl)
	ctx := context.Background()

	ok, err := first.TryLock(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)

	server.FastForward(ttl + time.Second)

	ok, err = second.TryLock(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok, "expired lock must be acquirable")

	err = first.Unlock(ctx, "k")
	require.ErrorIs(t, err, keylock.ErrNotHeld)
	require.True(t, server.Exists(defaultRedisLockPrefix+"k"), "stale holder must not delete the new lock")

	require.NoError(t, second.Unlock(ctx, "k"))
	require.False(t, server.Exists(defaultRedisLockPrefix+"k"))
}

func TestRedisLocker_SingleWinnerAcrossGoroutines(t *testing.T) {
	t.Parallel()

	locker, _ := newTestRedisLocker(t, time.Minute)

	var (
		wg      sync.WaitGroup
		winners atomic.Int32
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := locker.TryLock(context.Background(), "hot")
			if err == nil && ok {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), winners.Load())
}

func TestRedisLocker_BackendErrorSurfaces(t *testing.T) {
	t.Parallel()

	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	locker := NewRedisLocker(client, time.Minute)

	_, err := locker.TryLock(context.Background(), "k")
	require.Error(t, err)
}
