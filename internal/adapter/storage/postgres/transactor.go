package postgres

import (
	"context"

	"chainpay-gateway/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// Transactor implements ports.DBTransactor over a Pool.
type Transactor struct {
	pool Pool
}

// NewTransactor creates a new Transactor.
func NewTransactor(pool Pool) *Transactor {
	return &Transactor{pool: pool}
}

// Begin starts a database transaction.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return t.pool.Begin(ctx)
}

var _ ports.DBTransactor = (*Transactor)(nil)
