package service

import (
	"context"
	"sync"
	"testing"

	"nfc-wallet/internal/core/domain"
	"nfc-wallet/internal/core/ports"
	"nfc-wallet/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func debitEntry(txID string) ports.RecordEntryRequest {
	return ports.RecordEntryRequest{
		TransactionID:   txID,
		Direction:       domain.DirectionDebit,
		Counterpart:     "tok_customer",
		CounterpartKind: domain.CounterpartCardToken,
		Amount:          dec("12.50"),
		Currency:        "usd",
	}
}

func TestLedgerService_RecordEntry(t *testing.T) {
	env := newWalletEnv(t)

	entry, err := env.ledger.RecordEntry(context.Background(), debitEntry("TXN-1"))
	require.NoError(t, err)
	assert.Equal(t, "TXN-1", entry.TransactionID)
	assert.Equal(t, "USD", entry.Currency)
	assert.Equal(t, domain.LedgerStatusCompleted, entry.Status)
	assert.Equal(t, "12.50", entry.Amount.StringFixed(2))
}

func TestLedgerService_RecordEntry_Idempotent(t *testing.T) {
	env := newWalletEnv(t)
	ctx := context.Background()

	first, err := env.ledger.RecordEntry(ctx, debitEntry("TXN-2"))
	require.NoError(t, err)

	replay := debitEntry("TXN-2")
	replay.Amount = dec("99.00")
	second, err := env.ledger.RecordEntry(ctx, replay)
	require.NoError(t, err)

	assert.Equal(t, first.LedgerID, second.LedgerID)
	assert.Equal(t, "12.50", second.Amount.StringFixed(2))

	entries, err := env.ledger.ListByTransaction(ctx, "TXN-2")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLedgerService_RecordEntry_ConcurrentReplays(t *testing.T) {
	env := newWalletEnv(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.ledger.RecordEntry(ctx, debitEntry("TXN-3"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	entries, err := env.ledger.ListByTransaction(ctx, "TXN-3")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLedgerService_RecordEntry_Validation(t *testing.T) {
	env := newWalletEnv(t)

	tests := []struct {
		name   string
		mutate func(r *ports.RecordEntryRequest)
		code   string
	}{
		{"missing transaction id", func(r *ports.RecordEntryRequest) { r.TransactionID = "" }, "VAL_001"},
		{"bad direction", func(r *ports.RecordEntryRequest) { r.Direction = "UP" }, "VAL_001"},
		{"missing counterpart", func(r *ports.RecordEntryRequest) { r.Counterpart = "" }, "VAL_001"},
		{"zero amount", func(r *ports.RecordEntryRequest) { r.Amount = dec("0") }, "WAL_004"},
		{"bad currency", func(r *ports.RecordEntryRequest) { r.Currency = "dollar" }, "VAL_001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := debitEntry("TXN-V")
			tt.mutate(&req)
			_, err := env.ledger.RecordEntry(context.Background(), req)
			assert.Equal(t, tt.code, apperror.CodeOf(err))
		})
	}
}

func TestLedgerService_RecordPair(t *testing.T) {
	env := newWalletEnv(t)
	ctx := context.Background()

	credit := debitEntry("TXN-4")
	credit.Direction = domain.DirectionCredit
	credit.Counterpart = "tok_merchant"

	entries, err := env.ledger.RecordPair(ctx, debitEntry("TXN-4"), credit)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.DirectionDebit, entries[0].Direction)
	assert.Equal(t, domain.DirectionCredit, entries[1].Direction)

	again, err := env.ledger.RecordPair(ctx, debitEntry("TXN-4"), credit)
	require.NoError(t, err)
	assert.Equal(t, entries[0].LedgerID, again[0].LedgerID)
	assert.Equal(t, entries[1].LedgerID, again[1].LedgerID)
}

func TestLedgerService_RecordPair_RejectsMismatchedSides(t *testing.T) {
	env := newWalletEnv(t)
	ctx := context.Background()

	_, err := env.ledger.RecordPair(ctx, debitEntry("TXN-5"), debitEntry("TXN-5"))
	assert.Equal(t, "VAL_001", apperror.CodeOf(err))

	credit := debitEntry("TXN-6")
	credit.Direction = domain.DirectionCredit
	_, err = env.ledger.RecordPair(ctx, debitEntry("TXN-5"), credit)
	assert.Equal(t, "VAL_001", apperror.CodeOf(err))

	entries, err := env.ledger.ListByTransaction(ctx, "TXN-5")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLedgerService_RecordPair_CurrencyMismatch(t *testing.T) {
	env := newWalletEnv(t)
	ctx := context.Background()

	credit := debitEntry("TXN-8")
	credit.Direction = domain.DirectionCredit
	credit.Currency = "EUR"

	_, err := env.ledger.RecordPair(ctx, debitEntry("TXN-8"), credit)
	assert.Equal(t, "WAL_006", apperror.CodeOf(err))

	entries, err := env.ledger.ListByTransaction(ctx, "TXN-8")
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Case alone is not a mismatch.
	credit.Currency = "USD"
	entries, err = env.ledger.RecordPair(ctx, debitEntry("TXN-8"), credit)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestLedgerService_RecordPair_InvalidSideWritesNothing(t *testing.T) {
	env := newWalletEnv(t)
	ctx := context.Background()

	credit := debitEntry("TXN-7")
	credit.Direction = domain.DirectionCredit
	credit.Counterpart = ""

	_, err := env.ledger.RecordPair(ctx, debitEntry("TXN-7"), credit)
	require.Error(t, err)

	entries, err := env.ledger.ListByTransaction(ctx, "TXN-7")
	require.NoError(t, err)
	assert.Empty(t, entries)
}
