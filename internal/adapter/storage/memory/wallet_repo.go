package memory

import (
	"context"
	"fmt"
	"time"

	"nfc-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	s *Store
}

// NewWalletRepo creates a WalletRepo over s.
func NewWalletRepo(s *Store) *WalletRepo {
	return &WalletRepo{s: s}
}

// GetOrCreate returns the wallet for (owner, currency), inserting w when
// none exists.
func (r *WalletRepo) GetOrCreate(_ context.Context, w *domain.Wallet) (*domain.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if existing := r.findByOwner(w.OwnerID, w.Currency); existing != nil {
		return existing, nil
	}
	stored := *w
	r.s.wallets[stored.ID] = stored
	return &stored, nil
}

// GetByID fetches a wallet by ID.
func (r *WalletRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.get(id), nil
}

// GetByOwner fetches the wallet for (owner, currency).
func (r *WalletRepo) GetByOwner(_ context.Context, ownerID uuid.UUID, currency string) (*domain.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.findByOwner(ownerID, currency), nil
}

// GetByIDForUpdate reads a wallet inside tx.
func (r *WalletRepo) GetByIDForUpdate(_ context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	if _, err := r.s.use(tx); err != nil {
		return nil, fmt.Errorf("lock wallet: %w", err)
	}
	return r.get(id), nil
}

// UpdateBalance sets the balance inside tx. A negative balance is refused
// the same way the balance check constraint refuses it.
func (r *WalletRepo) UpdateBalance(_ context.Context, tx pgx.Tx, walletID uuid.UUID, balance decimal.Decimal) error {
	t, err := r.s.use(tx)
	if err != nil {
		return fmt.Errorf("update wallet balance: %w", err)
	}
	w, ok := r.s.wallets[walletID]
	if !ok {
		return fmt.Errorf("wallet not found: %s", walletID)
	}
	if balance.IsNegative() {
		return fmt.Errorf("update wallet balance: wallet %s would go negative", walletID)
	}
	w.Balance = balance
	w.UpdatedAt = time.Now().UTC()
	putWithUndo(t, r.s.wallets, walletID, w)
	return nil
}

func (r *WalletRepo) get(id uuid.UUID) *domain.Wallet {
	w, ok := r.s.wallets[id]
	if !ok {
		return nil
	}
	return &w
}

func (r *WalletRepo) findByOwner(ownerID uuid.UUID, currency string) *domain.Wallet {
	for _, w := range r.s.wallets {
		if w.OwnerID == ownerID && w.Currency == currency {
			return &w
		}
	}
	return nil
}
