package memory

import (
	"context"
	"fmt"

	"nfc-wallet/internal/core/domain"
	"nfc-wallet/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// IdempotencyRepo implements ports.IdempotencyRepository.
type IdempotencyRepo struct {
	s *Store
}

// NewIdempotencyRepo creates an IdempotencyRepo over s.
func NewIdempotencyRepo(s *Store) *IdempotencyRepo {
	return &IdempotencyRepo{s: s}
}

// Create stores a log inside tx. Keys are unique.
func (r *IdempotencyRepo) Create(_ context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error {
	t, err := r.s.use(tx)
	if err != nil {
		return fmt.Errorf("insert idempotency log: %w", err)
	}
	if _, ok := r.s.idempotency[log.Key]; ok {
		return fmt.Errorf("insert idempotency log: %w", ports.ErrDuplicateIdempotencyKey)
	}
	putWithUndo(t, r.s.idempotency, log.Key, *log)
	return nil
}

// Get fetches a log by key, or nil.
func (r *IdempotencyRepo) Get(_ context.Context, key string) (*domain.IdempotencyLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	log, ok := r.s.idempotency[key]
	if !ok {
		return nil, nil
	}
	return &log, nil
}
