package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CardStatus is the provisioning state of a card.
type CardStatus string

const (
	CardStatusPending CardStatus = "pending"
	CardStatusActive  CardStatus = "active"
	CardStatusRemoved CardStatus = "removed"
)

// MerchantStatus is the per-card merchant acceptance flag.
type MerchantStatus string

const (
	MerchantStatusConsumerOnly MerchantStatus = "CONSUMER_ONLY"
	MerchantStatusPending      MerchantStatus = "MERCHANT_PENDING"
	MerchantStatusApproved     MerchantStatus = "MERCHANT_APPROVED"
	MerchantStatusDisabled     MerchantStatus = "MERCHANT_DISABLED"
)

// Card is a tokenized payment card. The real card number never reaches it.
type Card struct {
	ID                  uuid.UUID      `json:"id"`
	OwnerID             uuid.UUID      `json:"owner_id"`
	TokenReference      string         `json:"token_reference"`
	LastFour            string         `json:"last_four"`
	Scheme              string         `json:"scheme"`
	Fingerprint         string         `json:"-"`
	IssuerReference     string         `json:"-"`
	MaskedContact       string         `json:"masked_contact,omitempty"`
	Status              CardStatus     `json:"status"`
	MerchantStatus      MerchantStatus `json:"merchant_status"`
	IsDefault           bool           `json:"is_default"`
	IsSettlementDefault bool           `json:"is_settlement_default"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

// IsRemoved reports whether the card has left the wallet for good.
func (c *Card) IsRemoved() bool {
	return c.Status == CardStatusRemoved
}

// CanTransitionTo reports whether the provisioning state machine allows
// moving from the current status to next.
func (c *Card) CanTransitionTo(next CardStatus) bool {
	switch c.Status {
	case CardStatusPending:
		return next == CardStatusActive || next == CardStatusRemoved
	case CardStatusActive:
		return next == CardStatusRemoved
	default:
		return false
	}
}

// RawCard carries the sensitive card data for the duration of AddCard.
// It is never persisted and redacts itself when formatted.
type RawCard struct {
	PAN         string `json:"-"`
	CVV         string `json:"-"`
	ExpiryMonth int    `json:"-"`
	ExpiryYear  int    `json:"-"`
	HolderName  string `json:"-"`
	Scheme      string `json:"scheme"`
}

// LastFour returns the trailing four digits of the PAN.
func (r RawCard) LastFour() string {
	if len(r.PAN) < 4 {
		return r.PAN
	}
	return r.PAN[len(r.PAN)-4:]
}

// String implements fmt.Stringer without exposing PAN or CVV.
func (r RawCard) String() string {
	return fmt.Sprintf("RawCard{scheme=%s, last4=%s}", r.Scheme, r.LastFour())
}

// GoString keeps %#v from printing the PAN.
func (r RawCard) GoString() string {
	return r.String()
}

// VerificationSession is what the issuer returns when it starts an OTP check.
type VerificationSession struct {
	Reference     string
	MaskedContact string
	// Code is filled by issuers that leave OTP delivery to us. When it is
	// empty the wallet issues and checks its own code.
	Code string
}
