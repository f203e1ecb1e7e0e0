package ports

import (
	"context"
	"time"

	"nfc-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(ownerID uuid.UUID, deviceID string, role string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	OwnerID  uuid.UUID
	DeviceID string
	Role     string
}

// IdempotencyCache is the Redis-layer idempotency check (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// OtpAttemptTracker bounds how many OTP checks a card gets per window. It
// also holds the digest of codes the wallet issued itself.
type OtpAttemptTracker interface {
	Count(ctx context.Context, cardID uuid.UUID) (int64, error)
	Increment(ctx context.Context, cardID uuid.UUID, window time.Duration) (int64, error)
	// Reset clears the counter and any stored code.
	Reset(ctx context.Context, cardID uuid.UUID) error
	SaveCode(ctx context.Context, cardID uuid.UUID, digest string, ttl time.Duration) error
	// Code returns the stored digest, or "" when none is held.
	Code(ctx context.Context, cardID uuid.UUID) (string, error)
}

// EventPublisher delivers authorization events to their consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.AuthorizationEvent) error
}

// AuthorizationEventHandler consumes authorization events.
type AuthorizationEventHandler interface {
	Handle(ctx context.Context, event domain.AuthorizationEvent) error
}

// FeePolicy computes the fee charged on top of a movement.
type FeePolicy interface {
	Fee(txType domain.TransactionType, amount decimal.Decimal) decimal.Decimal
}

// LedgerArchive stores a batch of ledger entries outside the database.
type LedgerArchive interface {
	Put(ctx context.Context, day time.Time, entries []domain.LedgerEntry) (string, error)
}

// --- Service Ports (Business Logic) ---

// WalletService owns wallet balances.
type WalletService interface {
	Credit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal) (*domain.Wallet, error)
	Debit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal) (*domain.Wallet, error)
	GetOrCreate(ctx context.Context, ownerID uuid.UUID, currency string) (*domain.Wallet, error)
	Get(ctx context.Context, walletID uuid.UUID) (*domain.Wallet, error)
	GetByOwner(ctx context.Context, ownerID uuid.UUID, currency string) (*domain.Wallet, error)
}

// LedgerRecorder is the append-only, idempotent journal.
type LedgerRecorder interface {
	RecordEntry(ctx context.Context, req RecordEntryRequest) (*domain.LedgerEntry, error)
	RecordPair(ctx context.Context, debit, credit RecordEntryRequest) ([]domain.LedgerEntry, error)
	ListByTransaction(ctx context.Context, transactionID string) ([]domain.LedgerEntry, error)
}

// RecordEntryRequest is the input of RecordEntry.
type RecordEntryRequest struct {
	TransactionID     string
	Direction         domain.Direction
	Counterpart       string
	CounterpartKind   domain.CounterpartKind
	Amount            decimal.Decimal
	Currency          string
	Status            domain.LedgerStatus
	AuthCode          *string
	DeviceID          *string
	MerchantRequestID *uuid.UUID
}

// PaymentAuthorizer decides on incoming payments.
type PaymentAuthorizer interface {
	Authorize(ctx context.Context, req domain.AuthorizationRequest) (*domain.AuthorizationResult, error)
}

// TransferService moves money between wallets and pays merchants from a wallet.
type TransferService interface {
	Transfer(ctx context.Context, req TransferRequest) (*domain.TransactionPair, error)
	ProcessPayment(ctx context.Context, req PaymentRequest) (*domain.Transaction, error)
}

// TransferRequest holds validated input for a P2P transfer.
type TransferRequest struct {
	SenderOwnerID   uuid.UUID
	ReceiverOwnerID uuid.UUID
	Amount          decimal.Decimal
	Currency        string
	Description     string
	IdempotencyKey  string // optional
}

// PaymentRequest holds validated input for a wallet-funded tap-to-pay.
type PaymentRequest struct {
	OwnerID      uuid.UUID
	CardID       uuid.UUID
	Amount       decimal.Decimal
	Currency     string
	MerchantName string
	Cryptogram   string
}

// CardService governs card provisioning.
type CardService interface {
	AddCard(ctx context.Context, ownerID uuid.UUID, raw domain.RawCard) (*domain.Card, error)
	VerifyCard(ctx context.Context, ownerID, cardID uuid.UUID, otp string) (*domain.Card, error)
	RemoveCard(ctx context.Context, ownerID, cardID uuid.UUID) (*domain.Card, error)
	SetDefault(ctx context.Context, ownerID, cardID uuid.UUID) (*domain.Card, error)
	ListCards(ctx context.Context, ownerID uuid.UUID) ([]domain.Card, error)
}

// MerchantService governs merchant onboarding.
type MerchantService interface {
	Submit(ctx context.Context, req SubmitMerchantRequest) (*domain.MerchantRequest, error)
	Approve(ctx context.Context, requestID uuid.UUID, reviewer string) (*domain.MerchantRequest, error)
	Reject(ctx context.Context, requestID uuid.UUID, reviewer, reason string) (*domain.MerchantRequest, error)
	Cancel(ctx context.Context, requestID uuid.UUID, requesterID uuid.UUID) (*domain.MerchantRequest, error)
	Disable(ctx context.Context, cardID uuid.UUID) (*domain.Card, error)
	ListByStatus(ctx context.Context, status domain.MerchantRequestStatus, page, pageSize int) ([]domain.MerchantRequest, int64, error)
}

// SubmitMerchantRequest holds validated input for a merchant request.
type SubmitMerchantRequest struct {
	OwnerID          uuid.UUID
	DeviceID         string
	SettlementCardID uuid.UUID
	Business         domain.BusinessInfo
}

// AcceptanceService lets an approved merchant device take card payments.
type AcceptanceService interface {
	AcceptPayment(ctx context.Context, req AcceptPaymentRequest) (*domain.AuthorizationResult, error)
}

// AcceptPaymentRequest is a tap read by a merchant device.
type AcceptPaymentRequest struct {
	DeviceID  string
	CardToken string
	Amount    decimal.Decimal
	Currency  string
}

// HistoryService serves transaction and ledger history.
type HistoryService interface {
	ListTransactions(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
	ListLedger(ctx context.Context, params LedgerListParams) ([]domain.LedgerEntry, int64, error)
	LedgerForTransaction(ctx context.Context, transactionID string) ([]domain.LedgerEntry, error)
}
