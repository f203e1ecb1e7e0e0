package service

import (
	"context"
	"errors"
	"testing"

	"nfc-wallet/internal/core/domain"
	"nfc-wallet/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func authorizedEvent(merchant *domain.MerchantContext) domain.AuthorizationEvent {
	code := "AUTH-ABC123"
	return domain.AuthorizationEvent{
		ID:   uuid.New(),
		Type: domain.EventAuthorized,
		Request: domain.AuthorizationRequest{
			CardToken: "tok_customer",
			Amount:    dec("18.75"),
			Currency:  "USD",
			DeviceID:  "dev_pos_1",
			Merchant:  merchant,
		},
		Result: domain.AuthorizationResult{
			Status:        domain.AuthorizationApproved,
			TransactionID: "TXN-" + uuid.NewString(),
			AuthCode:      &code,
		},
	}
}

func TestLedgerListener_RecordsMerchantPayment(t *testing.T) {
	env := newWalletEnv(t)
	listener := NewLedgerListener(env.ledger, zerolog.Nop())
	ctx := context.Background()

	requestID := uuid.New()
	event := authorizedEvent(&domain.MerchantContext{
		RequestID:           requestID,
		Name:                "Corner Cafe",
		DeviceID:            "dev_pos_1",
		SettlementCardToken: "tok_merchant",
	})

	require.NoError(t, listener.Handle(ctx, event))
	// Redelivery of the same event changes nothing.
	require.NoError(t, listener.Handle(ctx, event))

	entries, err := env.ledger.ListByTransaction(ctx, event.Result.TransactionID)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	debit, credit := entries[0], entries[1]
	assert.Equal(t, domain.DirectionDebit, debit.Direction)
	assert.Equal(t, "tok_customer", debit.Counterpart)
	assert.Equal(t, domain.DirectionCredit, credit.Direction)
	assert.Equal(t, "tok_merchant", credit.Counterpart)
	for _, e := range entries {
		assert.Equal(t, domain.LedgerStatusApproved, e.Status)
		assert.Equal(t, "18.75", e.Amount.StringFixed(2))
		require.NotNil(t, e.AuthCode)
		assert.Equal(t, "AUTH-ABC123", *e.AuthCode)
		require.NotNil(t, e.DeviceID)
		assert.Equal(t, "dev_pos_1", *e.DeviceID)
		require.NotNil(t, e.MerchantRequestID)
		assert.Equal(t, requestID, *e.MerchantRequestID)
	}
}

func TestLedgerListener_IgnoresDeclinesAndPlainAuthorizations(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ledger := mocks.NewMockLedgerRecorder(ctrl)
	listener := NewLedgerListener(ledger, zerolog.Nop())

	declined := authorizedEvent(&domain.MerchantContext{SettlementCardToken: "tok_merchant"})
	declined.Type = domain.EventDeclined
	declined.Result.Status = domain.AuthorizationDeclined

	assert.NoError(t, listener.Handle(context.Background(), declined))
	assert.NoError(t, listener.Handle(context.Background(), authorizedEvent(nil)))
}

func TestLedgerListener_UnknownEventType(t *testing.T) {
	ctrl := gomock.NewController(t)
	listener := NewLedgerListener(mocks.NewMockLedgerRecorder(ctrl), zerolog.Nop())

	event := authorizedEvent(nil)
	event.Type = "REFUNDED"
	assert.Error(t, listener.Handle(context.Background(), event))
}

func TestLedgerListener_RecorderFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockLedgerRecorder(ctrl)
	listener := NewLedgerListener(ledger, zerolog.Nop())

	ledger.EXPECT().RecordPair(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("db down"))

	err := listener.Handle(context.Background(), authorizedEvent(&domain.MerchantContext{SettlementCardToken: "tok_m"}))
	assert.Error(t, err)
}
