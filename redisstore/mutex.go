package redisstore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

var ErrLockNotObtained = errors.New("lock not obtained")

// Locker serializes work on a key across callers. The returned release func
// must be called exactly once.
type Locker interface {
	Obtain(ctx context.Context, key string) (release func(), err error)
}

// RedisLocker spreads the lock across every replica of the service.
type RedisLocker struct {
	rs     *redsync.Redsync
	expiry time.Duration
}

func NewRedisLocker(client redis.UniversalClient, expiry time.Duration) *RedisLocker {
	return &RedisLocker{
		rs:     redsync.New(goredis.NewPool(client)),
		expiry: expiry,
	}
}

func (l *RedisLocker) Obtain(ctx context.Context, key string) (func(), error) {
	mutex := l.rs.NewMutex(key,
		redsync.WithExpiry(l.expiry),
		redsync.WithTries(40),
		redsync.WithRetryDelay(50*time.Millisecond),
	)
	if err := mutex.LockContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLockNotObtained, key, err)
	}
	return func() {
		if _, err := mutex.UnlockContext(context.WithoutCancel(ctx)); err != nil {
			log.Printf("⚠️ [LOCK] release %s: %v", key, err)
		}
	}, nil
}

// LocalLocker is a keyed mutex for single-instance deployments.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*localLock
}

type localLock struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*localLock)}
}

func (l *LocalLocker) Obtain(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	lk, ok := l.locks[key]
	if !ok {
		lk = &localLock{ch: make(chan struct{}, 1)}
		l.locks[key] = lk
	}
	lk.refs++
	l.mu.Unlock()

	select {
	case lk.ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(key, lk)
		return nil, fmt.Errorf("%w: %s: %w", ErrLockNotObtained, key, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-lk.ch
			l.unref(key, lk)
		})
	}, nil
}

func (l *LocalLocker) unref(key string, lk *localLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, key)
	}
}
