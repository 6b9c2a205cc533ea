package postgres

import (
	"context"

	"chainpay-gateway/internal/core/ports"

	"github.com/jackc/pgx/v5/pgxpool"
)

// HealthChecker implements ports.HealthChecker for the database.
type HealthChecker struct {
	pool *pgxpool.Pool
}

// NewHealthChecker creates a new database health checker.
func NewHealthChecker(pool *pgxpool.Pool) *HealthChecker {
	return &HealthChecker{pool: pool}
}

func (h *HealthChecker) Ping(ctx context.Context) error {
	return h.pool.Ping(ctx)
}

func (h *HealthChecker) Name() string {
	return "postgres"
}

var _ ports.HealthChecker = (*HealthChecker)(nil)
