package lock

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// RedisLocker serializes keys across processes via redislock. The TTL is the
// staleness recovery: if a holder dies without releasing, the key becomes
// acquirable again once the TTL lapses, so no (employee, date) is ever
// permanently stuck.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	prefix string
}

// NewRedisLocker wraps rdb. ttl must comfortably exceed the longest expected
// reconciliation; 30s matches the upstream batch sizes.
func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{
		client: redislock.New(rdb),
		ttl:    ttl,
		prefix: "upload:",
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, wait time.Duration) (*Handle, error) {
	retries := int(wait / (pollInterval * 5))
	if retries < 1 {
		retries = 1
	}
	opts := &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(pollInterval*5), retries),
	}

	held, err := l.client.Obtain(ctx, l.prefix+key, l.ttl, opts)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrTimeout
	}
	if err != nil {
		return nil, err
	}

	return &Handle{Key: key, Token: held.Token(), rel: func(ctx context.Context) error {
		if err := held.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			// The TTL will reclaim it; log so the expiry window is visible.
			log.Printf("[Lock] release of %s failed, waiting on TTL: %v", key, err)
			return err
		}
		return nil
	}}, nil
}

func (l *RedisLocker) Release(ctx context.Context, h *Handle) error {
	if h == nil || h.rel == nil {
		return nil
	}
	return h.rel(ctx)
}
