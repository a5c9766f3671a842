package redisstore

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/go-redis/cache/v9"
	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by Cache.Get when the key is absent.
var ErrCacheMiss = cache.ErrCacheMiss

type Cache interface {
	Get(ctx context.Context, key string, target any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// UseCache reads key from c, falling back to load on a miss and storing the
// result. A failing cache is treated as a miss.
func UseCache[T any](ctx context.Context, c Cache, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	var v T
	err := c.Get(ctx, key, &v)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		log.Printf("⚠️ [CACHE] get %s: %v", key, err)
		v = *new(T)
	}

	v, err = load()
	if err != nil {
		return v, err
	}

	if err := c.Set(ctx, key, v, ttl); err != nil {
		log.Printf("⚠️ [CACHE] set %s: %v", key, err)
	}
	return v, nil
}

type CacheRedis struct {
	instance *cache.Cache
}

func NewCacheRedis(client redis.UniversalClient, withLocalCache bool) *CacheRedis {
	var local cache.LocalCache
	if withLocalCache {
		local = cache.NewTinyLFU(10000, time.Minute)
	}
	return &CacheRedis{cache.New(&cache.Options{
		Redis:      client,
		LocalCache: local,
	})}
}

func (c *CacheRedis) Get(ctx context.Context, key string, target any) error {
	return c.instance.Get(ctx, key, target)
}

func (c *CacheRedis) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return c.instance.Set(&cache.Item{
		Ctx:   ctx,
		Key:   key,
		Value: value,
		TTL:   ttl,
	})
}

func (c *CacheRedis) Delete(ctx context.Context, key string) error {
	err := c.instance.Delete(ctx, key)
	if errors.Is(err, ErrCacheMiss) {
		return nil
	}
	return err
}

// NopCache never stores anything; every Get is a miss.
type NopCache struct{}

func (NopCache) Get(context.Context, string, any) error { return ErrCacheMiss }

func (NopCache) Set(context.Context, string, any, time.Duration) error { return nil }

func (NopCache) Delete(context.Context, string) error { return nil }
