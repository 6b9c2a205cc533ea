package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chainpay-gateway/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

const timestampPrefix = "txtime:"

// TimestampCache implements ports.TimestampCache on Redis, shared
// across instances. Times are stored as RFC3339Nano strings.
type TimestampCache struct {
	client *redis.Client
}

// NewTimestampCache creates a new TimestampCache.
func NewTimestampCache(client *redis.Client) *TimestampCache {
	return &TimestampCache{client: client}
}

// Get returns the cached transaction time, with found=false on a miss.
func (c *TimestampCache) Get(ctx context.Context, hash string) (time.Time, bool, error) {
	val, err := c.client.Get(ctx, timestampPrefix+hash).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("timestamp get: %w", err)
	}

	t, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse cached timestamp: %w", err)
	}
	return t, true, nil
}

// Set stores the transaction time with a TTL.
func (c *TimestampCache) Set(ctx context.Context, hash string, t time.Time, ttl time.Duration) error {
	if err := c.client.Set(ctx, timestampPrefix+hash, t.Format(time.RFC3339Nano), ttl).Err(); err != nil {
		return fmt.Errorf("timestamp set: %w", err)
	}
	return nil
}

var _ ports.TimestampCache = (*TimestampCache)(nil)
