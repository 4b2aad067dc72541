// Package usage tracks per-profile generation counts against daily and
// monthly quotas.
package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CounterStore is the persistence surface the limiter needs. The production
// implementation sits on Redis; tests swap in miniredis.
type CounterStore interface {
	Get(ctx context.Context, key string) (int64, error)
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

type redisCounterStore struct {
	client *redis.Client
}

func NewRedisCounterStore(client *redis.Client) CounterStore {
	return &redisCounterStore{client: client}
}

func (s *redisCounterStore) Get(ctx context.Context, key string) (int64, error) {
	val, err := s.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("usage counter read failed: %w", err)
	}
	return val, nil
}

// Increment bumps the counter and refreshes its TTL in one round trip. The
// TTL is set on every call so a counter created mid-window still expires at
// window end plus slack, never early.
func (s *redisCounterStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("usage counter increment failed: %w", err)
	}
	return incr.Val(), nil
}

// DailyKey and MonthlyKey shard counters by profile and UTC window.
func DailyKey(profileID string, now time.Time) string {
	return fmt.Sprintf("usage:%s:daily:%s", profileID, now.UTC().Format("2006-01-02"))
}

func MonthlyKey(profileID string, now time.Time) string {
	return fmt.Sprintf("usage:%s:monthly:%s", profileID, now.UTC().Format("2006-01"))
}
