package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Direction is the side of a ledger entry.
type Direction string

const (
	DirectionDebit  Direction = "DEBIT"
	DirectionCredit Direction = "CREDIT"
)

// Valid reports whether d is DEBIT or CREDIT.
func (d Direction) Valid() bool {
	return d == DirectionDebit || d == DirectionCredit
}

// CounterpartKind says what the counterpart reference of an entry points at.
type CounterpartKind string

const (
	CounterpartCardToken CounterpartKind = "CARD_TOKEN"
	CounterpartWallet    CounterpartKind = "WALLET"
	CounterpartMerchant  CounterpartKind = "MERCHANT"
)

// LedgerStatus is the status recorded on a ledger entry.
type LedgerStatus string

const (
	LedgerStatusApproved  LedgerStatus = "APPROVED"
	LedgerStatusCompleted LedgerStatus = "COMPLETED"
)

// LedgerEntry is an immutable journal line recording one side of a money
// movement. (TransactionID, Direction) is unique.
type LedgerEntry struct {
	LedgerID          uuid.UUID       `json:"ledger_id"`
	TransactionID     string          `json:"transaction_id"`
	Direction         Direction       `json:"direction"`
	Counterpart       string          `json:"counterpart"`
	CounterpartKind   CounterpartKind `json:"counterpart_kind"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	Status            LedgerStatus    `json:"status"`
	AuthCode          *string         `json:"auth_code,omitempty"`
	DeviceID          *string         `json:"device_id,omitempty"`
	MerchantRequestID *uuid.UUID      `json:"merchant_request_id,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}
