package redis

import (
	"context"

	goredis "github.com/redis/go-redis/v9"
)

// HealthCheck reports Redis reachability on /health. Redis being down
// degrades rate limiting and idempotency replay, so it is reported but the
// wallet keeps serving.
type HealthCheck struct {
	client goredis.Cmdable
}

func NewHealthCheck(client goredis.Cmdable) *HealthCheck {
	return &HealthCheck{client: client}
}

func (h *HealthCheck) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, ioTimeout)
	defer cancel()
	return h.client.Ping(ctx).Err()
}

func (h *HealthCheck) Name() string { return "redis" }
