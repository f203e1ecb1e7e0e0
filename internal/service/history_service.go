package service

import (
	"context"

	"nfc-wallet/internal/core/domain"
	"nfc-wallet/internal/core/ports"
	"nfc-wallet/pkg/apperror"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// historyService implements ports.HistoryService.
type historyService struct {
	txnRepo    ports.TransactionRepository
	ledgerRepo ports.LedgerRepository
}

// NewHistoryService creates a new history service.
func NewHistoryService(txnRepo ports.TransactionRepository, ledgerRepo ports.LedgerRepository) ports.HistoryService {
	return &historyService{
		txnRepo:    txnRepo,
		ledgerRepo: ledgerRepo,
	}
}

// ListTransactions returns a paginated list of the owner's records.
func (s *historyService) ListTransactions(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	if err := validWindow(params.From != nil && params.To != nil && !params.From.Before(*params.To)); err != nil {
		return nil, 0, err
	}
	params.Page, params.PageSize = normalizePage(params.Page, params.PageSize)
	txns, total, err := s.txnRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(err)
	}
	return txns, total, nil
}

// ListLedger returns a paginated slice of the journal.
func (s *historyService) ListLedger(ctx context.Context, params ports.LedgerListParams) ([]domain.LedgerEntry, int64, error) {
	if err := validWindow(params.From != nil && params.To != nil && !params.From.Before(*params.To)); err != nil {
		return nil, 0, err
	}
	params.Page, params.PageSize = normalizePage(params.Page, params.PageSize)
	entries, total, err := s.ledgerRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(err)
	}
	return entries, total, nil
}

// LedgerForTransaction returns both sides of one transaction.
func (s *historyService) LedgerForTransaction(ctx context.Context, transactionID string) ([]domain.LedgerEntry, error) {
	if transactionID == "" {
		return nil, apperror.Validation("transaction id is required")
	}
	entries, err := s.ledgerRepo.ListByTransaction(ctx, transactionID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	return entries, nil
}

func validWindow(inverted bool) error {
	if inverted {
		return apperror.Validation("from must be before to")
	}
	return nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}
