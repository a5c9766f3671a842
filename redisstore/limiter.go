package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

var ErrRateLimited = errors.New("rate limited")

// RateLimitError carries how long the caller should wait.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

type Limiter interface {
	Allow(ctx context.Context, key string, limit redis_rate.Limit) error
}

type RedisLimiter struct {
	limiter *redis_rate.Limiter
}

func NewRedisLimiter(client redis.UniversalClient) *RedisLimiter {
	return &RedisLimiter{limiter: redis_rate.NewLimiter(client)}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, limit redis_rate.Limit) error {
	res, err := l.limiter.Allow(ctx, key, limit)
	if err != nil {
		return fmt.Errorf("rate limit %s: %w", key, err)
	}
	if res.Allowed == 0 {
		return &RateLimitError{RetryAfter: res.RetryAfter}
	}
	return nil
}
