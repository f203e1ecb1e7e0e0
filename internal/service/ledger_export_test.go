package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"nfc-wallet/internal/core/domain"
	"nfc-wallet/internal/core/ports"
	"nfc-wallet/internal/core/ports/mocks"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestLedgerExporter_ExportDay(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockLedgerRepository(ctrl)
	archive := mocks.NewMockLedgerArchive(ctrl)
	exporter := NewLedgerExporter(repo, archive, zerolog.Nop())

	day := time.Date(2026, 3, 14, 17, 30, 0, 0, time.UTC)
	start := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	page1 := make([]domain.LedgerEntry, exportPageSize)
	page2 := []domain.LedgerEntry{{TransactionID: "TXN-last"}}

	repo.EXPECT().List(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, p ports.LedgerListParams) ([]domain.LedgerEntry, int64, error) {
			assert.True(t, p.From.Equal(start))
			assert.True(t, p.To.Equal(start.AddDate(0, 0, 1)))
			if p.Page == 1 {
				return page1, int64(exportPageSize + 1), nil
			}
			return page2, int64(exportPageSize + 1), nil
		}).Times(2)
	archive.EXPECT().Put(gomock.Any(), start, gomock.Len(exportPageSize+1)).Return("ledger/2026/03/14.jsonl", nil)

	key, count, err := exporter.ExportDay(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, "ledger/2026/03/14.jsonl", key)
	assert.Equal(t, exportPageSize+1, count)
}

func TestLedgerExporter_EmptyDayWritesNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockLedgerRepository(ctrl)
	archive := mocks.NewMockLedgerArchive(ctrl)
	exporter := NewLedgerExporter(repo, archive, zerolog.Nop())

	repo.EXPECT().List(gomock.Any(), gomock.Any()).Return(nil, int64(0), nil)

	key, count, err := exporter.ExportDay(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Empty(t, key)
	assert.Zero(t, count)
}

func TestLedgerExporter_ExportPreviousDay(t *testing.T) {
	env := newWalletEnv(t)
	ctrl := gomock.NewController(t)
	archive := mocks.NewMockLedgerArchive(ctrl)
	exporter := NewLedgerExporter(env.ledgerRepo, archive, zerolog.Nop())

	_, err := env.ledger.RecordEntry(context.Background(), debitEntry("TXN-today"))
	require.NoError(t, err)

	// Pretend the entry was written yesterday by moving the clock a day on.
	exporter.now = func() time.Time { return time.Now().Add(24 * time.Hour) }
	archive.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Len(1)).Return("key", nil)

	require.NoError(t, exporter.ExportPreviousDay(context.Background()))
}

func TestLedgerExporter_ArchiveFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockLedgerRepository(ctrl)
	archive := mocks.NewMockLedgerArchive(ctrl)
	exporter := NewLedgerExporter(repo, archive, zerolog.Nop())

	repo.EXPECT().List(gomock.Any(), gomock.Any()).Return([]domain.LedgerEntry{{}}, int64(1), nil)
	archive.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any()).Return("", errors.New("bucket missing"))

	_, _, err := exporter.ExportDay(context.Background(), time.Now())
	assert.Error(t, err)
}
