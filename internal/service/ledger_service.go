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
)

// ledgerWriter records entries inside a transaction owned by the caller.
type ledgerWriter interface {
	RecordEntryTx(ctx context.Context, tx pgx.Tx, req ports.RecordEntryRequest) (*domain.LedgerEntry, error)
}

// LedgerServiceImpl implements ports.LedgerRecorder. Idempotency rests on
// the (transaction_id, direction) unique key in storage.
type LedgerServiceImpl struct {
	ledgerRepo ports.LedgerRepository
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(ledgerRepo ports.LedgerRepository, transactor ports.DBTransactor, log zerolog.Logger) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		ledgerRepo: ledgerRepo,
		transactor: transactor,
		log:        log,
	}
}

// RecordEntry appends one side of a movement. A replay of the same
// transaction ID and direction returns the stored entry unchanged.
func (s *LedgerServiceImpl) RecordEntry(ctx context.Context, req ports.RecordEntryRequest) (*domain.LedgerEntry, error) {
	if err := validateEntry(req); err != nil {
		return nil, err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	entry, err := s.RecordEntryTx(ctx, dbTx, req)
	if err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return entry, nil
}

// RecordPair writes the debit and credit sides of one transaction together.
func (s *LedgerServiceImpl) RecordPair(ctx context.Context, debit, credit ports.RecordEntryRequest) ([]domain.LedgerEntry, error) {
	if debit.Direction != domain.DirectionDebit || credit.Direction != domain.DirectionCredit {
		return nil, apperror.Validation("ledger pair needs one DEBIT and one CREDIT")
	}
	if debit.TransactionID != credit.TransactionID {
		return nil, apperror.Validation("ledger pair sides must share a transaction id")
	}
	for _, req := range []ports.RecordEntryRequest{debit, credit} {
		if err := validateEntry(req); err != nil {
			return nil, err
		}
	}
	if domain.NormalizeCurrency(debit.Currency) != domain.NormalizeCurrency(credit.Currency) {
		return nil, apperror.ErrCurrencyMismatch()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	entries := make([]domain.LedgerEntry, 0, 2)
	for _, req := range []ports.RecordEntryRequest{debit, credit} {
		entry, err := s.RecordEntryTx(ctx, dbTx, req)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return entries, nil
}

// RecordEntryTx is RecordEntry inside the caller's transaction.
func (s *LedgerServiceImpl) RecordEntryTx(ctx context.Context, tx pgx.Tx, req ports.RecordEntryRequest) (*domain.LedgerEntry, error) {
	if err := validateEntry(req); err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = domain.LedgerStatusCompleted
	}
	entry := &domain.LedgerEntry{
		LedgerID:          uuid.New(),
		TransactionID:     req.TransactionID,
		Direction:         req.Direction,
		Counterpart:       req.Counterpart,
		CounterpartKind:   req.CounterpartKind,
		Amount:            req.Amount,
		Currency:          domain.NormalizeCurrency(req.Currency),
		Status:            status,
		AuthCode:          req.AuthCode,
		DeviceID:          req.DeviceID,
		MerchantRequestID: req.MerchantRequestID,
		CreatedAt:         time.Now().UTC(),
	}

	stored, inserted, err := s.ledgerRepo.Insert(ctx, tx, entry)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("insert ledger entry: %w", err))
	}
	if !inserted {
		s.log.Debug().
			Str("transaction_id", req.TransactionID).
			Str("direction", string(req.Direction)).
			Msg("ledger entry already recorded")
	}
	return stored, nil
}

// ListByTransaction returns the entries of one transaction, debit first.
func (s *LedgerServiceImpl) ListByTransaction(ctx context.Context, transactionID string) ([]domain.LedgerEntry, error) {
	entries, err := s.ledgerRepo.ListByTransaction(ctx, transactionID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list ledger entries: %w", err))
	}
	return entries, nil
}

func validateEntry(req ports.RecordEntryRequest) error {
	switch {
	case req.TransactionID == "":
		return apperror.Validation("transaction id is required")
	case !req.Direction.Valid():
		return apperror.Validation("direction must be DEBIT or CREDIT")
	case req.Counterpart == "":
		return apperror.Validation("counterpart is required")
	case !domain.ValidAmount(req.Amount):
		return apperror.ErrInvalidAmount()
	case !domain.ValidCurrency(domain.NormalizeCurrency(req.Currency)):
		return apperror.Validation("currency must be a 3-letter ISO 4217 code")
	}
	return nil
}
