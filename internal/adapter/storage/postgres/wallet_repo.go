package postgres

import (
	"context"
	"errors"
	"fmt"

	"nfc-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const walletColumns = `id, owner_id, currency, balance, is_active, daily_limit, monthly_limit, created_at, updated_at`

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// GetOrCreate inserts the wallet unless (owner_id, currency) exists. The
// no-op update makes RETURNING yield the existing row on conflict.
func (r *WalletRepo) GetOrCreate(ctx context.Context, w *domain.Wallet) (*domain.Wallet, error) {
	query := `INSERT INTO wallets (id, owner_id, currency, balance, is_active, daily_limit, monthly_limit, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (owner_id, currency) DO UPDATE SET owner_id = EXCLUDED.owner_id
		RETURNING ` + walletColumns

	stored, err := scanWallet(r.pool.QueryRow(ctx, query,
		w.ID, w.OwnerID, w.Currency, w.Balance, w.IsActive,
		w.DailyLimit, w.MonthlyLimit, w.CreatedAt, w.UpdatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("get or create wallet: %w", err)
	}
	return stored, nil
}

// GetByID fetches a wallet by its UUID (without locking).
func (r *WalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`

	w, err := scanWallet(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet by id: %w", err)
	}
	return w, nil
}

// GetByOwner fetches a wallet by owner and currency (non-locking read).
func (r *WalletRepo) GetByOwner(ctx context.Context, ownerID uuid.UUID, currency string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE owner_id = $1 AND currency = $2`

	w, err := scanWallet(r.pool.QueryRow(ctx, query, ownerID, currency))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet by owner: %w", err)
	}
	return w, nil
}

// GetByIDForUpdate fetches a wallet by ID with pessimistic locking.
// This MUST be called within a transaction.
func (r *WalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1 FOR UPDATE`

	w, err := scanWallet(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet for update by id: %w", err)
	}
	return w, nil
}

// UpdateBalance writes a wallet's balance within a transaction. The
// balance CHECK constraint rejects negative values.
func (r *WalletRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance decimal.Decimal) error {
	query := `UPDATE wallets SET balance = $1, updated_at = NOW() WHERE id = $2`

	tag, err := tx.Exec(ctx, query, balance, walletID)
	if err != nil {
		return fmt.Errorf("update wallet balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet not found: %s", walletID)
	}
	return nil
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	err := row.Scan(
		&w.ID, &w.OwnerID, &w.Currency, &w.Balance, &w.IsActive,
		&w.DailyLimit, &w.MonthlyLimit, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return w, nil
}
