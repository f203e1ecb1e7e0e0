package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"nfc-wallet/internal/core/domain"
	"nfc-wallet/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedgerEntry(direction domain.Direction) *domain.LedgerEntry {
	code := "AUTH-ABC123"
	return &domain.LedgerEntry{
		LedgerID:        uuid.New(),
		TransactionID:   "TXN-1",
		Direction:       direction,
		Counterpart:     "tok_customer",
		CounterpartKind: domain.CounterpartCardToken,
		Amount:          decimal.RequireFromString("25.50"),
		Currency:        "USD",
		Status:          domain.LedgerStatusApproved,
		AuthCode:        &code,
		CreatedAt:       time.Now().UTC().Truncate(time.Microsecond),
	}
}

func ledgerColumnNames() []string {
	return []string{"ledger_id", "transaction_id", "direction", "counterpart", "counterpart_kind", "amount",
		"currency", "status", "auth_code", "device_id", "merchant_request_id", "created_at"}
}

func ledgerRow(rows *pgxmock.Rows, e *domain.LedgerEntry) *pgxmock.Rows {
	return rows.AddRow(
		e.LedgerID, e.TransactionID, e.Direction, e.Counterpart, e.CounterpartKind,
		e.Amount, e.Currency, e.Status, e.AuthCode, e.DeviceID, e.MerchantRequestID, e.CreatedAt,
	)
}

func TestLedgerRepo_Insert_New(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	e := newTestLedgerEntry(domain.DirectionDebit)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO ledger_entries .+ ON CONFLICT \\(transaction_id, direction\\) DO NOTHING").
		WithArgs(e.LedgerID, e.TransactionID, e.Direction, e.Counterpart, e.CounterpartKind,
			e.Amount, e.Currency, e.Status, e.AuthCode, e.DeviceID, e.MerchantRequestID, e.CreatedAt).
		WillReturnRows(ledgerRow(pgxmock.NewRows(ledgerColumnNames()), e))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	stored, inserted, err := repo.Insert(context.Background(), tx, e)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, e.LedgerID, stored.LedgerID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_Insert_ConflictReturnsExisting(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	existing := newTestLedgerEntry(domain.DirectionDebit)
	replay := newTestLedgerEntry(domain.DirectionDebit)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO ledger_entries").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT .+ FROM ledger_entries WHERE transaction_id = .+ AND direction").
		WithArgs(replay.TransactionID, replay.Direction).
		WillReturnRows(ledgerRow(pgxmock.NewRows(ledgerColumnNames()), existing))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	stored, inserted, err := repo.Insert(context.Background(), tx, replay)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, existing.LedgerID, stored.LedgerID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_Insert_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO ledger_entries").
		WillReturnError(errors.New("connection reset"))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	_, _, err = repo.Insert(context.Background(), tx, newTestLedgerEntry(domain.DirectionCredit))
	assert.ErrorContains(t, err, "insert ledger entry")
}

func TestLedgerRepo_ListByTransaction(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	debit := newTestLedgerEntry(domain.DirectionDebit)
	credit := newTestLedgerEntry(domain.DirectionCredit)
	credit.Counterpart = "tok_settlement"

	rows := pgxmock.NewRows(ledgerColumnNames())
	ledgerRow(rows, debit)
	ledgerRow(rows, credit)

	mock.ExpectQuery("SELECT .+ FROM ledger_entries WHERE transaction_id").
		WithArgs("TXN-1").
		WillReturnRows(rows)

	entries, err := repo.ListByTransaction(context.Background(), "TXN-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.DirectionDebit, entries[0].Direction)
	assert.Equal(t, "tok_settlement", entries[1].Counterpart)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_List_WithWindow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	from := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	e := newTestLedgerEntry(domain.DirectionDebit)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM ledger_entries WHERE created_at >= .+ AND created_at <").
		WithArgs(from, to).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery("SELECT .+ FROM ledger_entries WHERE .+ ORDER BY created_at, ledger_id LIMIT").
		WithArgs(from, to, 500, 0).
		WillReturnRows(ledgerRow(pgxmock.NewRows(ledgerColumnNames()), e))

	entries, total, err := repo.List(context.Background(), ports.LedgerListParams{
		From: &from, To: &to, Page: 1, PageSize: 500,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, entries, 1)
	assert.Equal(t, e.LedgerID, entries[0].LedgerID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
