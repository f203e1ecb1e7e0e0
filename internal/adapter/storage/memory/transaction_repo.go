package memory

import (
	"context"
	"fmt"
	"sort"

	"nfc-wallet/internal/core/domain"
	"nfc-wallet/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	s *Store
}

// NewTransactionRepo creates a TransactionRepo over s.
func NewTransactionRepo(s *Store) *TransactionRepo {
	return &TransactionRepo{s: s}
}

// Create appends a transaction record inside tx.
func (r *TransactionRepo) Create(_ context.Context, tx pgx.Tx, txn *domain.Transaction) error {
	t, err := r.s.use(tx)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	for _, existing := range r.s.transactions {
		if existing.Reference == txn.Reference && existing.WalletID == txn.WalletID {
			return fmt.Errorf("insert transaction: reference %s already recorded for wallet %s", txn.Reference, txn.WalletID)
		}
	}
	n := len(r.s.transactions)
	r.s.transactions = append(r.s.transactions, *txn)
	t.onRollback(func() { r.s.transactions = r.s.transactions[:n] })
	return nil
}

// ListByReference returns every record sharing reference, payer first.
func (r *TransactionRepo) ListByReference(_ context.Context, reference string) ([]domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []domain.Transaction
	for _, txn := range r.s.transactions {
		if txn.Reference == reference {
			out = append(out, txn)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total.LessThan(out[j].Total) })
	return out, nil
}

// List filters an owner's records, newest first.
func (r *TransactionRepo) List(_ context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var matched []domain.Transaction
	for _, txn := range r.s.transactions {
		if txn.OwnerID != params.OwnerID {
			continue
		}
		if params.Type != nil && txn.Type != *params.Type {
			continue
		}
		if params.Currency != nil && txn.Currency != *params.Currency {
			continue
		}
		if params.From != nil && txn.CreatedAt.Before(*params.From) {
			continue
		}
		if params.To != nil && !txn.CreatedAt.Before(*params.To) {
			continue
		}
		matched = append(matched, txn)
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	return page(matched, params.Page, params.PageSize), int64(len(matched)), nil
}
