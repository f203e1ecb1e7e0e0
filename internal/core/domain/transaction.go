package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the kind of money movement.
type TransactionType string

const (
	TransactionTypeTransfer TransactionType = "TRANSFER"
	TransactionTypePayment  TransactionType = "PAYMENT"
)

// TransactionStatus represents the lifecycle state of a transaction.
type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
)

// Transaction is the user-facing record of a completed money movement.
// Amount and Total are signed: negative on the payer's record.
type Transaction struct {
	ID          uuid.UUID         `json:"id"`
	Reference   string            `json:"reference"`
	OwnerID     uuid.UUID         `json:"owner_id"`
	WalletID    uuid.UUID         `json:"wallet_id"`
	Type        TransactionType   `json:"type"`
	Amount      decimal.Decimal   `json:"amount"`
	Fee         decimal.Decimal   `json:"fee"`
	Total       decimal.Decimal   `json:"total"`
	Currency    string            `json:"currency"`
	Status      TransactionStatus `json:"status"`
	Description string            `json:"description"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	ProcessedAt time.Time         `json:"processed_at"`
	CreatedAt   time.Time         `json:"created_at"`
}

// IsDebit reports whether the record moved money out of the wallet.
func (t *Transaction) IsDebit() bool {
	return t.Total.IsNegative()
}

// TransactionPair holds both participants' records of one transfer.
type TransactionPair struct {
	Reference string       `json:"reference"`
	Sender    *Transaction `json:"sender"`
	Receiver  *Transaction `json:"receiver"`
}
