package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AuthorizationStatus is the decision of the payment authorizer.
type AuthorizationStatus string

const (
	AuthorizationApproved AuthorizationStatus = "APPROVED"
	AuthorizationDeclined AuthorizationStatus = "DECLINED"
)

// Decline reasons.
const (
	DeclineCardBlocked    = "Card is blocked"
	DeclineAmountTooLarge = "Transaction amount exceeds limit"
	DeclineDeviceBlocked  = "Device is blocked"
)

// MerchantContext identifies the accepting merchant of a tap-to-pay.
type MerchantContext struct {
	RequestID           uuid.UUID `json:"request_id"`
	Name                string    `json:"name"`
	DeviceID            string    `json:"device_id"`
	SettlementCardToken string    `json:"settlement_card_token"`
}

// AuthorizationRequest is an incoming payment to decide on.
type AuthorizationRequest struct {
	CardToken string           `json:"card_token"`
	Amount    decimal.Decimal  `json:"amount"`
	Currency  string           `json:"currency"`
	DeviceID  string           `json:"device_id"`
	Merchant  *MerchantContext `json:"merchant,omitempty"`
}

// AuthorizationResult is the outcome of Authorize. A decline is a normal value.
type AuthorizationResult struct {
	Status        AuthorizationStatus `json:"status"`
	TransactionID string              `json:"transaction_id"`
	AuthCode      *string             `json:"auth_code,omitempty"`
	Reason        string              `json:"reason,omitempty"`
	DecidedAt     time.Time           `json:"decided_at"`
}

// Approved reports whether the payment was approved.
func (r *AuthorizationResult) Approved() bool {
	return r.Status == AuthorizationApproved
}

// AuthorizationEventType names the event emitted after each decision.
type AuthorizationEventType string

const (
	EventAuthorized AuthorizationEventType = "AUTHORIZED"
	EventDeclined   AuthorizationEventType = "DECLINED"
)

// AuthorizationEvent carries the request and its decision to consumers.
type AuthorizationEvent struct {
	ID         uuid.UUID              `json:"id"`
	Type       AuthorizationEventType `json:"type"`
	Request    AuthorizationRequest   `json:"request"`
	Result     AuthorizationResult    `json:"result"`
	OccurredAt time.Time              `json:"occurred_at"`
}
