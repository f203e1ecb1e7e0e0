package postgres

import (
	"context"
	"time"
)

const healthTimeout = 2 * time.Second

// HealthCheck reports database reachability on /health.
type HealthCheck struct {
	pool Pool
}

func NewHealthCheck(pool Pool) *HealthCheck {
	return &HealthCheck{pool: pool}
}

// Ping round-trips a trivial query so a wedged pool shows up, not just a
// closed one.
func (h *HealthCheck) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	var one int
	return h.pool.QueryRow(ctx, "SELECT 1").Scan(&one)
}

func (h *HealthCheck) Name() string { return "postgresql" }
