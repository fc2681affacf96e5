package cache

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache keys. Stock listings change only on uploads and transfers, so short
// TTLs plus explicit invalidation after writes keep them honest.
const (
	StockSummaryKey = "stock:summary"
	StockListKey    = "stock:list"
	SimStatusKey    = "sim:status_counts"
)

var client *redis.Client

// Init connects to Redis. A failed connection degrades to no caching; every
// accessor tolerates a nil client.
func Init(addr string, db int) error {
	client = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		client = nil
		return err
	}
	return nil
}

// GetClient exposes the raw client for the distributed lock.
func GetClient() *redis.Client {
	return client
}

func Get(ctx context.Context, key string) ([]byte, bool) {
	if client == nil {
		return nil, false
	}
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

func Set(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if client == nil {
		return
	}
	client.Set(ctx, key, data, ttl)
}

func Invalidate(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	if err := client.Del(ctx, keys...).Err(); err != nil {
		log.Printf("[Cache] invalidate failed: %v", err)
	}
}

// InvalidateStock clears every stock-derived key. Called after each committed
// batch, revert and transfer.
func InvalidateStock(ctx context.Context) {
	Invalidate(ctx, StockSummaryKey, StockListKey, SimStatusKey)
}

func IsHealthy() bool {
	if client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return client.Ping(ctx).Err() == nil
}
