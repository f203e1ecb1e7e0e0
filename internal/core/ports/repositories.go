package ports

import (
	"context"
	"errors"
	"time"

	"nfc-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Errors repositories return when a write hits a uniqueness rule.
var (
	ErrDuplicateFingerprint    = errors.New("card fingerprint already registered for owner")
	ErrDuplicateDefaultCard    = errors.New("owner already has a default card")
	ErrDuplicateOpenRequest    = errors.New("device and card already have an open merchant request")
	ErrDuplicateIdempotencyKey = errors.New("idempotency key already used")
)

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic locking.
type WalletRepository interface {
	// GetOrCreate inserts a zero-balance wallet unless one exists for
	// (owner, currency) and returns the stored row either way.
	GetOrCreate(ctx context.Context, wallet *domain.Wallet) (*domain.Wallet, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	GetByOwner(ctx context.Context, ownerID uuid.UUID, currency string) (*domain.Wallet, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error)
	UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance decimal.Decimal) error
}

// LedgerRepository is append-only: there is no update or delete.
type LedgerRepository interface {
	// Insert appends entry unless (transaction_id, direction) exists.
	// It returns the stored entry and whether this call inserted it.
	Insert(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) (*domain.LedgerEntry, bool, error)
	ListByTransaction(ctx context.Context, transactionID string) ([]domain.LedgerEntry, error)
	List(ctx context.Context, params LedgerListParams) ([]domain.LedgerEntry, int64, error)
}

// LedgerListParams holds filter + pagination for listing ledger entries.
type LedgerListParams struct {
	Counterpart *string
	From        *time.Time // inclusive
	To          *time.Time // exclusive
	Page        int
	PageSize    int
}

// TransactionRepository defines persistence operations for transactions.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error
	ListByReference(ctx context.Context, reference string) ([]domain.Transaction, error)
	List(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
}

// TransactionListParams holds filter + pagination for listing transactions.
type TransactionListParams struct {
	OwnerID  uuid.UUID
	Type     *domain.TransactionType
	Currency *string
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// CardRepository defines persistence operations for cards.
type CardRepository interface {
	Create(ctx context.Context, tx pgx.Tx, card *domain.Card) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Card, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Card, error)
	// LockByOwner locks every non-removed card of the owner, oldest first.
	LockByOwner(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID) ([]domain.Card, error)
	// FindByFingerprint returns a non-removed card of the owner with the
	// given fingerprint, or nil.
	FindByFingerprint(ctx context.Context, ownerID uuid.UUID, fingerprint string) (*domain.Card, error)
	Update(ctx context.Context, tx pgx.Tx, card *domain.Card) error
}

// MerchantRequestRepository defines persistence operations for merchant requests.
type MerchantRequestRepository interface {
	Create(ctx context.Context, tx pgx.Tx, req *domain.MerchantRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.MerchantRequest, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.MerchantRequest, error)
	// FindOpen returns the pending or approved request for a device and
	// settlement card token, or nil.
	FindOpen(ctx context.Context, tx pgx.Tx, deviceID, cardToken string) (*domain.MerchantRequest, error)
	FindApprovedByDevice(ctx context.Context, deviceID string) (*domain.MerchantRequest, error)
	ListByStatus(ctx context.Context, status domain.MerchantRequestStatus, page, pageSize int) ([]domain.MerchantRequest, int64, error)
	Update(ctx context.Context, tx pgx.Tx, req *domain.MerchantRequest) error
}

// IdempotencyRepository defines persistence for idempotency logs (DB backup).
type IdempotencyRepository interface {
	Create(ctx context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error
	Get(ctx context.Context, key string) (*domain.IdempotencyLog, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
