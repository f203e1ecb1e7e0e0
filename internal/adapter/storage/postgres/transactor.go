package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Transactor implements ports.DBTransactor on top of the connection pool.
type Transactor struct {
	pool Pool
}

// NewTransactor creates a new Transactor wrapping the connection pool.
func NewTransactor(pool Pool) *Transactor {
	return &Transactor{pool: pool}
}

// Begin starts a READ COMMITTED transaction. Row locks taken with
// SELECT ... FOR UPDATE serialize writers on the same wallet or card.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return tx, nil
}
