package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chainpay-gateway/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

const idempotencyPrefix = "idemp:"

// IdempotencyCache implements ports.IdempotencyCache on Redis. It is
// the fast path in front of the database guards, not the source of
// truth: a cold cache only costs an extra round trip.
type IdempotencyCache struct {
	client *redis.Client
}

// NewIdempotencyCache creates a new IdempotencyCache.
func NewIdempotencyCache(client *redis.Client) *IdempotencyCache {
	return &IdempotencyCache{client: client}
}

// Get returns the cached value, or nil when the key is absent.
func (c *IdempotencyCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, idempotencyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("idempotency get: %w", err)
	}
	return data, nil
}

// Set stores the value with a TTL.
func (c *IdempotencyCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, idempotencyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("idempotency set: %w", err)
	}
	return nil
}

var _ ports.IdempotencyCache = (*IdempotencyCache)(nil)
