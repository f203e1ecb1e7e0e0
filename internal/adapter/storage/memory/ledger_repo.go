package memory

import (
	"context"
	"fmt"
	"sort"

	"nfc-wallet/internal/core/domain"
	"nfc-wallet/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// LedgerRepo implements ports.LedgerRepository. Entries are only ever
// appended.
type LedgerRepo struct {
	s *Store
}

// NewLedgerRepo creates a LedgerRepo over s.
func NewLedgerRepo(s *Store) *LedgerRepo {
	return &LedgerRepo{s: s}
}

// Insert appends e unless (transaction_id, direction) is already stored, in
// which case the stored entry is returned with inserted=false.
func (r *LedgerRepo) Insert(_ context.Context, tx pgx.Tx, e *domain.LedgerEntry) (*domain.LedgerEntry, bool, error) {
	t, err := r.s.use(tx)
	if err != nil {
		return nil, false, fmt.Errorf("insert ledger entry: %w", err)
	}
	for _, existing := range r.s.ledger {
		if existing.TransactionID == e.TransactionID && existing.Direction == e.Direction {
			return &existing, false, nil
		}
	}

	n := len(r.s.ledger)
	stored := *e
	r.s.ledger = append(r.s.ledger, stored)
	t.onRollback(func() { r.s.ledger = r.s.ledger[:n] })
	return &stored, true, nil
}

// ListByTransaction returns both sides of a transaction, debit first.
func (r *LedgerRepo) ListByTransaction(_ context.Context, transactionID string) ([]domain.LedgerEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []domain.LedgerEntry
	for _, e := range r.s.ledger {
		if e.TransactionID == transactionID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Direction == domain.DirectionDebit && out[j].Direction != domain.DirectionDebit
	})
	return out, nil
}

// List filters entries by counterpart and time window, oldest first.
func (r *LedgerRepo) List(_ context.Context, params ports.LedgerListParams) ([]domain.LedgerEntry, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var matched []domain.LedgerEntry
	for _, e := range r.s.ledger {
		if params.Counterpart != nil && e.Counterpart != *params.Counterpart {
			continue
		}
		if params.From != nil && e.CreatedAt.Before(*params.From) {
			continue
		}
		if params.To != nil && !e.CreatedAt.Before(*params.To) {
			continue
		}
		matched = append(matched, e)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].LedgerID.String() < matched[j].LedgerID.String()
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})
	return page(matched, params.Page, params.PageSize), int64(len(matched)), nil
}
