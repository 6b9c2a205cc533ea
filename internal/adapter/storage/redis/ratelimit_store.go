package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const rateLimitPrefix = "ratelimit:"

// RateLimitStore counts requests per key in fixed windows, shared
// across instances.
type RateLimitStore struct {
	client *redis.Client
}

// NewRateLimitStore creates a new RateLimitStore.
func NewRateLimitStore(client *redis.Client) *RateLimitStore {
	return &RateLimitStore{client: client}
}

// Increment bumps the counter for the key and returns the new count.
// The window TTL is set on first increment only.
func (s *RateLimitStore) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	fullKey := rateLimitPrefix + key

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.ExpireNX(ctx, fullKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("rate limit increment: %w", err)
	}
	return incr.Val(), nil
}
