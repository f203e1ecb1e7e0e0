package service

import (
	"context"
	"fmt"
	"time"

	"nfc-wallet/internal/core/domain"
	"nfc-wallet/internal/core/ports"

	"github.com/rs/zerolog"
)

const exportPageSize = 500

// LedgerExporter copies one UTC day of the journal to the archive.
type LedgerExporter struct {
	ledgerRepo ports.LedgerRepository
	archive    ports.LedgerArchive
	now        func() time.Time
	log        zerolog.Logger
}

// NewLedgerExporter creates a new LedgerExporter.
func NewLedgerExporter(ledgerRepo ports.LedgerRepository, archive ports.LedgerArchive, log zerolog.Logger) *LedgerExporter {
	return &LedgerExporter{
		ledgerRepo: ledgerRepo,
		archive:    archive,
		now:        time.Now,
		log:        log,
	}
}

// ExportPreviousDay archives yesterday in UTC.
func (e *LedgerExporter) ExportPreviousDay(ctx context.Context) error {
	_, _, err := e.ExportDay(ctx, e.now().UTC().AddDate(0, 0, -1))
	return err
}

// ExportDay archives every entry created on day and returns the object key
// and entry count. An empty day writes nothing.
func (e *LedgerExporter) ExportDay(ctx context.Context, day time.Time) (string, int, error) {
	day = day.UTC()
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	var entries []domain.LedgerEntry
	for page := 1; ; page++ {
		batch, total, err := e.ledgerRepo.List(ctx, ports.LedgerListParams{
			From:     &start,
			To:       &end,
			Page:     page,
			PageSize: exportPageSize,
		})
		if err != nil {
			return "", 0, fmt.Errorf("list ledger entries: %w", err)
		}
		entries = append(entries, batch...)
		if len(batch) == 0 || int64(len(entries)) >= total {
			break
		}
	}

	if len(entries) == 0 {
		e.log.Info().Str("day", start.Format(time.DateOnly)).Msg("no ledger entries to export")
		return "", 0, nil
	}

	key, err := e.archive.Put(ctx, start, entries)
	if err != nil {
		return "", 0, fmt.Errorf("archive ledger entries: %w", err)
	}

	e.log.Info().
		Str("day", start.Format(time.DateOnly)).
		Str("key", key).
		Int("entries", len(entries)).
		Msg("ledger exported")

	return key, len(entries), nil
}
