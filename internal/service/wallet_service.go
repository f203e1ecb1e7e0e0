package service

import (
	"context"
	"fmt"
	"time"

	"nfc-wallet/internal/core/domain"
	"nfc-wallet/internal/core/ports"
	"nfc-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// WalletLimits are the limits a new wallet starts with.
type WalletLimits struct {
	Daily   decimal.Decimal
	Monthly decimal.Decimal
}

// WalletServiceImpl implements ports.WalletService. Every balance change
// happens inside a transaction holding the wallet row lock.
type WalletServiceImpl struct {
	walletRepo ports.WalletRepository
	transactor ports.DBTransactor
	limits     WalletLimits
	log        zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(
	walletRepo ports.WalletRepository,
	transactor ports.DBTransactor,
	limits WalletLimits,
	log zerolog.Logger,
) *WalletServiceImpl {
	return &WalletServiceImpl{
		walletRepo: walletRepo,
		transactor: transactor,
		limits:     limits,
		log:        log,
	}
}

// Credit adds amount to an active wallet.
func (s *WalletServiceImpl) Credit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal) (*domain.Wallet, error) {
	return s.adjust(ctx, walletID, amount, applyCredit, "wallet credited")
}

// Debit removes amount from an active wallet. The balance check and the
// decrement run under the same row lock.
func (s *WalletServiceImpl) Debit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal) (*domain.Wallet, error) {
	return s.adjust(ctx, walletID, amount, applyDebit, "wallet debited")
}

type balanceOp func(ctx context.Context, repo ports.WalletRepository, tx pgx.Tx, w *domain.Wallet, amount decimal.Decimal) error

func (s *WalletServiceImpl) adjust(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, op balanceOp, msg string) (*domain.Wallet, error) {
	if !domain.ValidAmount(amount) {
		return nil, apperror.ErrInvalidAmount()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := lockWallet(ctx, s.walletRepo, dbTx, walletID)
	if err != nil {
		return nil, err
	}
	if err := op(ctx, s.walletRepo, dbTx, wallet, amount); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("wallet_id", walletID.String()).
		Str("amount", amount.StringFixed(domain.MoneyScale)).
		Str("balance", wallet.Balance.StringFixed(domain.MoneyScale)).
		Msg(msg)

	return wallet, nil
}

// GetOrCreate returns the owner's wallet in currency, creating an empty one
// with default limits on first use.
func (s *WalletServiceImpl) GetOrCreate(ctx context.Context, ownerID uuid.UUID, currency string) (*domain.Wallet, error) {
	currency = domain.NormalizeCurrency(currency)
	if !domain.ValidCurrency(currency) {
		return nil, apperror.Validation("currency must be a 3-letter ISO 4217 code")
	}
	wallet, err := s.walletRepo.GetOrCreate(ctx, s.newWallet(ownerID, currency))
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get or create wallet: %w", err))
	}
	return wallet, nil
}

// Get fetches a wallet by ID.
func (s *WalletServiceImpl) Get(ctx context.Context, walletID uuid.UUID) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}
	return wallet, nil
}

// GetByOwner fetches the owner's wallet in currency.
func (s *WalletServiceImpl) GetByOwner(ctx context.Context, ownerID uuid.UUID, currency string) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByOwner(ctx, ownerID, domain.NormalizeCurrency(currency))
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet by owner: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}
	return wallet, nil
}

func (s *WalletServiceImpl) newWallet(ownerID uuid.UUID, currency string) *domain.Wallet {
	now := time.Now().UTC()
	daily, monthly := s.limits.Daily, s.limits.Monthly
	return &domain.Wallet{
		ID:           uuid.New(),
		OwnerID:      ownerID,
		Currency:     currency,
		Balance:      decimal.Zero,
		IsActive:     true,
		DailyLimit:   &daily,
		MonthlyLimit: &monthly,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// lockWallet reads a wallet FOR UPDATE and checks it may move money.
func lockWallet(ctx context.Context, repo ports.WalletRepository, tx pgx.Tx, walletID uuid.UUID) (*domain.Wallet, error) {
	wallet, err := repo.GetByIDForUpdate(ctx, tx, walletID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}
	if !wallet.IsActive {
		return nil, apperror.ErrWalletInactive()
	}
	return wallet, nil
}

// applyDebit decrements a wallet already locked in tx.
func applyDebit(ctx context.Context, repo ports.WalletRepository, tx pgx.Tx, w *domain.Wallet, amount decimal.Decimal) error {
	if !w.CanCover(amount) {
		return apperror.ErrInsufficientBalance()
	}
	balance := w.Balance.Sub(amount)
	if err := repo.UpdateBalance(ctx, tx, w.ID, balance); err != nil {
		return apperror.InternalError(fmt.Errorf("update balance: %w", err))
	}
	w.Balance = balance
	return nil
}

// applyCredit increments a wallet already locked in tx.
func applyCredit(ctx context.Context, repo ports.WalletRepository, tx pgx.Tx, w *domain.Wallet, amount decimal.Decimal) error {
	balance := w.Balance.Add(amount)
	if err := repo.UpdateBalance(ctx, tx, w.ID, balance); err != nil {
		return apperror.InternalError(fmt.Errorf("update balance: %w", err))
	}
	w.Balance = balance
	return nil
}
