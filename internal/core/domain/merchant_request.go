package domain

import (
	"time"

	"github.com/google/uuid"
)

// MerchantRequestStatus is the lifecycle state of a merchant onboarding request.
type MerchantRequestStatus string

const (
	MerchantRequestPending          MerchantRequestStatus = "pending"
	MerchantRequestUnderReview      MerchantRequestStatus = "under_review"
	MerchantRequestApproved         MerchantRequestStatus = "approved"
	MerchantRequestRejected         MerchantRequestStatus = "rejected"
	MerchantRequestCancelled        MerchantRequestStatus = "cancelled"
	MerchantRequestMoreInfoRequired MerchantRequestStatus = "more_info_required"
)

// BusinessInfo is the metadata a device submits to become a merchant.
type BusinessInfo struct {
	Name               string `json:"name"`
	Type               string `json:"type"`
	RegistrationNumber string `json:"registration_number,omitempty"`
	TaxID              string `json:"tax_id,omitempty"`
	Email              string `json:"email,omitempty"`
	Phone              string `json:"phone,omitempty"`
	Address            string `json:"address,omitempty"`
}

// MerchantRequest asks for a device's settlement card to accept payments.
type MerchantRequest struct {
	ID                  uuid.UUID             `json:"id"`
	OwnerID             uuid.UUID             `json:"owner_id"`
	DeviceID            string                `json:"device_id"`
	SettlementCardID    uuid.UUID             `json:"settlement_card_id"`
	SettlementCardToken string                `json:"settlement_card_token"`
	Business            BusinessInfo          `json:"business"`
	Status              MerchantRequestStatus `json:"status"`
	RejectionReason     *string               `json:"rejection_reason,omitempty"`
	ReviewedBy          *string               `json:"reviewed_by,omitempty"`
	ReviewedAt          *time.Time            `json:"reviewed_at,omitempty"`
	CancelledAt         *time.Time            `json:"cancelled_at,omitempty"`
	CreatedAt           time.Time             `json:"created_at"`
	UpdatedAt           time.Time             `json:"updated_at"`
}

var merchantRequestTransitions = map[MerchantRequestStatus][]MerchantRequestStatus{
	MerchantRequestPending:     {MerchantRequestApproved, MerchantRequestRejected, MerchantRequestCancelled},
	MerchantRequestUnderReview: {MerchantRequestCancelled},
}

// CanTransitionTo reports whether next is reachable from the current status.
func (r *MerchantRequest) CanTransitionTo(next MerchantRequestStatus) bool {
	for _, s := range merchantRequestTransitions[r.Status] {
		if s == next {
			return true
		}
	}
	return false
}

// IsOpen reports whether the request blocks a new submission for the same
// device and card.
func (r *MerchantRequest) IsOpen() bool {
	return r.Status == MerchantRequestPending || r.Status == MerchantRequestApproved
}
