// Package lock provides Redis-backed mutual exclusion across processes.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrBusy is returned when another holder owns the lock.
var ErrBusy = errors.New("lock: held by another process")

// Locker obtains short-lived named locks.
type Locker struct {
	client *redislock.Client
	prefix string
}

// New wraps a Redis client. Keys are namespaced with prefix.
func New(rdb *redis.Client, prefix string) *Locker {
	return &Locker{client: redislock.New(rdb), prefix: prefix}
}

// WithLock runs fn while holding key. The lock is released when fn returns.
func (l *Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if l == nil || l.client == nil {
		return fn(ctx)
	}
	lk, err := l.client.Obtain(ctx, l.prefix+key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return ErrBusy
	}
	if err != nil {
		return fmt.Errorf("lock: obtain %s: %w", key, err)
	}
	defer func() {
		_ = lk.Release(context.WithoutCancel(ctx))
	}()
	return fn(ctx)
}
