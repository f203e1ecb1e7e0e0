package service

import (
	"context"
	"fmt"

	"nfc-wallet/internal/core/domain"
	"nfc-wallet/internal/core/ports"

	"github.com/rs/zerolog"
)

// LedgerListener implements ports.AuthorizationEventHandler. Approved
// merchant payments become a DEBIT on the customer's card token and a
// CREDIT on the merchant's settlement token.
type LedgerListener struct {
	ledger ports.LedgerRecorder
	log    zerolog.Logger
}

// NewLedgerListener creates a new LedgerListener.
func NewLedgerListener(ledger ports.LedgerRecorder, log zerolog.Logger) *LedgerListener {
	return &LedgerListener{ledger: ledger, log: log}
}

// Handle records the ledger side effects of one authorization event. It is
// safe to call again for the same event.
func (l *LedgerListener) Handle(ctx context.Context, event domain.AuthorizationEvent) error {
	switch event.Type {
	case domain.EventDeclined:
		l.log.Info().
			Str("transaction_id", event.Result.TransactionID).
			Str("reason", event.Result.Reason).
			Msg("authorization declined, nothing to record")
		return nil
	case domain.EventAuthorized:
	default:
		return fmt.Errorf("unknown authorization event type %q", event.Type)
	}

	merchant := event.Request.Merchant
	if merchant == nil {
		l.log.Debug().
			Str("transaction_id", event.Result.TransactionID).
			Msg("authorization without merchant context, nothing to settle")
		return nil
	}

	deviceID := merchant.DeviceID
	requestID := merchant.RequestID
	side := func(dir domain.Direction, counterpart string) ports.RecordEntryRequest {
		return ports.RecordEntryRequest{
			TransactionID:     event.Result.TransactionID,
			Direction:         dir,
			Counterpart:       counterpart,
			CounterpartKind:   domain.CounterpartCardToken,
			Amount:            event.Request.Amount,
			Currency:          event.Request.Currency,
			Status:            domain.LedgerStatusApproved,
			AuthCode:          event.Result.AuthCode,
			DeviceID:          &deviceID,
			MerchantRequestID: &requestID,
		}
	}

	entries, err := l.ledger.RecordPair(ctx,
		side(domain.DirectionDebit, event.Request.CardToken),
		side(domain.DirectionCredit, merchant.SettlementCardToken),
	)
	if err != nil {
		return fmt.Errorf("record merchant payment: %w", err)
	}

	l.log.Info().
		Str("transaction_id", event.Result.TransactionID).
		Str("device_id", deviceID).
		Int("entries", len(entries)).
		Msg("merchant payment recorded")
	return nil
}
