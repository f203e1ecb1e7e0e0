package dto

import (
	"time"

	"nfc-wallet/internal/core/domain"

	"github.com/shopspring/decimal"
)

// Amounts arrive as JSON strings or numbers; decimal.Decimal accepts both.
// Positivity and scale are checked by the services.

// TransferRequest is the request body for a P2P transfer. The idempotency
// key travels in the Idempotency-Key header.
type TransferRequest struct {
	ReceiverOwnerID string          `json:"receiver_owner_id" binding:"required,uuid"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency" binding:"required,currency"`
	Description     string          `json:"description" binding:"max=255"`
}

// WalletPaymentRequest is the request body for a wallet-funded tap-to-pay.
type WalletPaymentRequest struct {
	CardID       string          `json:"card_id" binding:"required,uuid"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency" binding:"required,currency"`
	MerchantName string          `json:"merchant_name" binding:"required,max=100"`
	Cryptogram   string          `json:"cryptogram" binding:"required,max=512"`
}

// AmountRequest is the body of admin wallet adjustments.
type AmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// AddCardRequest carries raw card data. It is never logged or stored.
type AddCardRequest struct {
	PAN         string `json:"pan" binding:"required,numeric,min=12,max=19"`
	CVV         string `json:"cvv" binding:"required,numeric,min=3,max=4"`
	ExpiryMonth int    `json:"expiry_month" binding:"required,min=1,max=12"`
	ExpiryYear  int    `json:"expiry_year" binding:"required,min=2000,max=2100"`
	HolderName  string `json:"holder_name" binding:"max=100"`
	Scheme      string `json:"scheme" binding:"max=20"`
}

// VerifyCardRequest is the OTP answer for a pending card.
type VerifyCardRequest struct {
	OTP string `json:"otp" binding:"required,numeric,min=4,max=8"`
}

// BusinessInfoRequest describes the business behind a merchant request.
type BusinessInfoRequest struct {
	Name               string `json:"name" binding:"required,max=100"`
	Type               string `json:"type" binding:"required,max=50"`
	RegistrationNumber string `json:"registration_number" binding:"max=50"`
	TaxID              string `json:"tax_id" binding:"max=50"`
	Email              string `json:"email" binding:"omitempty,email,max=255"`
	Phone              string `json:"phone" binding:"max=30"`
	Address            string `json:"address" binding:"max=255"`
}

// ToDomain converts the request into domain.BusinessInfo.
func (b BusinessInfoRequest) ToDomain() domain.BusinessInfo {
	return domain.BusinessInfo{
		Name:               b.Name,
		Type:               b.Type,
		RegistrationNumber: b.RegistrationNumber,
		TaxID:              b.TaxID,
		Email:              b.Email,
		Phone:              b.Phone,
		Address:            b.Address,
	}
}

// MerchantApplicationRequest asks for the caller's device to become a
// merchant terminal. The device comes from the access token.
type MerchantApplicationRequest struct {
	SettlementCardID string              `json:"settlement_card_id" binding:"required,uuid"`
	Business         BusinessInfoRequest `json:"business" binding:"required"`
}

// RejectRequest is the admin body for rejecting a merchant request.
type RejectRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// AcceptPaymentRequest is a card tap read by a merchant device.
type AcceptPaymentRequest struct {
	CardToken string          `json:"card_token" binding:"required,max=128"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency" binding:"required,currency"`
}

// DevTokenRequest asks for an access token in debug mode.
type DevTokenRequest struct {
	OwnerID  string `json:"owner_id" binding:"required,uuid"`
	DeviceID string `json:"device_id" binding:"required,safe_id,max=100"`
	Role     string `json:"role" binding:"omitempty,oneof=user admin"`
}

// TokenResponse is the response body for an issued access token.
type TokenResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// WalletResponse renders a wallet with fixed two-place amounts.
type WalletResponse struct {
	ID           string  `json:"id"`
	OwnerID      string  `json:"owner_id"`
	Currency     string  `json:"currency"`
	Balance      string  `json:"balance"`
	IsActive     bool    `json:"is_active"`
	DailyLimit   *string `json:"daily_limit,omitempty"`
	MonthlyLimit *string `json:"monthly_limit,omitempty"`
	UpdatedAt    string  `json:"updated_at"`
}

// TransactionResponse renders a transaction record.
type TransactionResponse struct {
	ID          string            `json:"id"`
	Reference   string            `json:"reference"`
	WalletID    string            `json:"wallet_id"`
	Type        string            `json:"type"`
	Amount      string            `json:"amount"`
	Fee         string            `json:"fee"`
	Total       string            `json:"total"`
	Currency    string            `json:"currency"`
	Status      string            `json:"status"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	ProcessedAt string            `json:"processed_at"`
}

// TransferResponse renders both sides of a transfer.
type TransferResponse struct {
	Reference string              `json:"reference"`
	Sender    TransactionResponse `json:"sender"`
	Receiver  TransactionResponse `json:"receiver"`
}

// LedgerEntryResponse renders one journal line.
type LedgerEntryResponse struct {
	LedgerID          string  `json:"ledger_id"`
	TransactionID     string  `json:"transaction_id"`
	Direction         string  `json:"direction"`
	Counterpart       string  `json:"counterpart"`
	CounterpartKind   string  `json:"counterpart_kind"`
	Amount            string  `json:"amount"`
	Currency          string  `json:"currency"`
	Status            string  `json:"status"`
	AuthCode          *string `json:"auth_code,omitempty"`
	DeviceID          *string `json:"device_id,omitempty"`
	MerchantRequestID *string `json:"merchant_request_id,omitempty"`
	CreatedAt         string  `json:"created_at"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(domain.MoneyScale)
}

// NewWalletResponse converts a wallet.
func NewWalletResponse(w *domain.Wallet) WalletResponse {
	resp := WalletResponse{
		ID:        w.ID.String(),
		OwnerID:   w.OwnerID.String(),
		Currency:  w.Currency,
		Balance:   money(w.Balance),
		IsActive:  w.IsActive,
		UpdatedAt: w.UpdatedAt.Format(time.RFC3339),
	}
	if w.DailyLimit != nil {
		s := money(*w.DailyLimit)
		resp.DailyLimit = &s
	}
	if w.MonthlyLimit != nil {
		s := money(*w.MonthlyLimit)
		resp.MonthlyLimit = &s
	}
	return resp
}

// NewTransactionResponse converts a transaction record.
func NewTransactionResponse(tx *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:          tx.ID.String(),
		Reference:   tx.Reference,
		WalletID:    tx.WalletID.String(),
		Type:        string(tx.Type),
		Amount:      money(tx.Amount),
		Fee:         money(tx.Fee),
		Total:       money(tx.Total),
		Currency:    tx.Currency,
		Status:      string(tx.Status),
		Description: tx.Description,
		Metadata:    tx.Metadata,
		ProcessedAt: tx.ProcessedAt.Format(time.RFC3339),
	}
}

// NewTransactionList converts a page of transactions.
func NewTransactionList(txns []domain.Transaction) []TransactionResponse {
	items := make([]TransactionResponse, 0, len(txns))
	for i := range txns {
		items = append(items, NewTransactionResponse(&txns[i]))
	}
	return items
}

// NewTransferResponse converts a transfer pair.
func NewTransferResponse(pair *domain.TransactionPair) TransferResponse {
	return TransferResponse{
		Reference: pair.Reference,
		Sender:    NewTransactionResponse(pair.Sender),
		Receiver:  NewTransactionResponse(pair.Receiver),
	}
}

// NewLedgerEntryResponse converts a ledger entry.
func NewLedgerEntryResponse(e *domain.LedgerEntry) LedgerEntryResponse {
	resp := LedgerEntryResponse{
		LedgerID:        e.LedgerID.String(),
		TransactionID:   e.TransactionID,
		Direction:       string(e.Direction),
		Counterpart:     e.Counterpart,
		CounterpartKind: string(e.CounterpartKind),
		Amount:          money(e.Amount),
		Currency:        e.Currency,
		Status:          string(e.Status),
		AuthCode:        e.AuthCode,
		DeviceID:        e.DeviceID,
		CreatedAt:       e.CreatedAt.Format(time.RFC3339),
	}
	if e.MerchantRequestID != nil {
		s := e.MerchantRequestID.String()
		resp.MerchantRequestID = &s
	}
	return resp
}

// NewLedgerList converts ledger entries.
func NewLedgerList(entries []domain.LedgerEntry) []LedgerEntryResponse {
	items := make([]LedgerEntryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, NewLedgerEntryResponse(&entries[i]))
	}
	return items
}
