package redisstore_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watch-rewards-system/redisstore"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

type profile struct {
	ID    string
	Coins int64
}

func TestUseCacheReadsThrough(t *testing.T) {
	ctx := context.Background()
	c := redisstore.NewCacheRedis(newRedis(t), false)

	loads := 0
	load := func() (profile, error) {
		loads++
		return profile{ID: "u1", Coins: 30}, nil
	}

	first, err := redisstore.UseCache(ctx, c, "profile:u1", time.Minute, load)
	require.NoError(t, err)
	second, err := redisstore.UseCache(ctx, c, "profile:u1", time.Minute, load)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, loads)

	require.NoError(t, c.Delete(ctx, "profile:u1"))
	require.NoError(t, c.Delete(ctx, "profile:u1"))
	_, err = redisstore.UseCache(ctx, c, "profile:u1", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, 2, loads)
}

func TestUseCacheDoesNotStoreFailures(t *testing.T) {
	ctx := context.Background()
	c := redisstore.NewCacheRedis(newRedis(t), false)
	boom := errors.New("boom")

	_, err := redisstore.UseCache(ctx, c, "k", time.Minute, func() (profile, error) { return profile{}, boom })
	assert.ErrorIs(t, err, boom)

	var p profile
	assert.ErrorIs(t, c.Get(ctx, "k", &p), redisstore.ErrCacheMiss)
}

func TestUseCacheLoadsWhenRedisIsDown(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	c := redisstore.NewCacheRedis(client, false)
	mr.Close()

	got, err := redisstore.UseCache(ctx, c, "stats", time.Minute, func() (profile, error) {
		return profile{ID: "u1", Coins: 7}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, profile{ID: "u1", Coins: 7}, got)
}

func TestNopCacheAlwaysMisses(t *testing.T) {
	ctx := context.Background()
	var c redisstore.NopCache
	require.NoError(t, c.Set(ctx, "k", 1, time.Minute))
	var v int
	assert.ErrorIs(t, c.Get(ctx, "k", &v), redisstore.ErrCacheMiss)
}

func testLockerExcludes(t *testing.T, l redisstore.Locker) {
	t.Helper()
	ctx := context.Background()
	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Obtain(ctx, "signup:ada@example.com")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(5 * time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestLocalLockerExcludes(t *testing.T) {
	testLockerExcludes(t, redisstore.NewLocalLocker())
}

func TestRedisLockerExcludes(t *testing.T) {
	testLockerExcludes(t, redisstore.NewRedisLocker(newRedis(t), 5*time.Second))
}

func TestLocalLockerHonorsContext(t *testing.T) {
	l := redisstore.NewLocalLocker()
	release, err := l.Obtain(context.Background(), "k")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Obtain(ctx, "k")
	assert.ErrorIs(t, err, redisstore.ErrLockNotObtained)
}

func TestRateLimitErrorUnwraps(t *testing.T) {
	var err error = &redisstore.RateLimitError{RetryAfter: time.Second}
	assert.ErrorIs(t, err, redisstore.ErrRateLimited)
}
