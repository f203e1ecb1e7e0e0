package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// IdempotencyCache keeps serialized transfer results for replay. The
// database idempotency log stays authoritative; a miss here only costs
// one extra query.
type IdempotencyCache struct {
	client goredis.Cmdable
}

// NewIdempotencyCache creates a new Redis-backed idempotency cache.
func NewIdempotencyCache(client goredis.Cmdable) *IdempotencyCache {
	return &IdempotencyCache{client: client}
}

func idempotencyKey(key string) string {
	return keyPrefix + "idempotency:" + key
}

// Get returns the stored result, or nil when the key is unknown or expired.
func (c *IdempotencyCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, idempotencyKey(key)).Bytes()
	switch {
	case errors.Is(err, goredis.Nil):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("redis idempotency get: %w", err)
	}
	return val, nil
}

// Set stores the first result for key. A later write for the same key is
// ignored so a replay can never replace the committed outcome.
func (c *IdempotencyCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.SetNX(ctx, idempotencyKey(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis idempotency set: %w", err)
	}
	return nil
}
