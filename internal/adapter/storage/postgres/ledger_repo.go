package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"nfc-wallet/internal/core/domain"
	"nfc-wallet/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

const ledgerColumns = `ledger_id, transaction_id, direction, counterpart, counterpart_kind, amount, currency,
	status, auth_code, device_id, merchant_request_id, created_at`

// LedgerRepo implements ports.LedgerRepository. It never updates or
// deletes rows; the table also rejects both with a trigger.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// Insert appends an entry. A concurrent or repeated insert for the same
// (transaction_id, direction) is absorbed by the unique constraint and the
// stored row is returned with inserted=false.
func (r *LedgerRepo) Insert(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) (*domain.LedgerEntry, bool, error) {
	insert := `INSERT INTO ledger_entries (` + ledgerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (transaction_id, direction) DO NOTHING
		RETURNING ` + ledgerColumns

	stored, err := scanLedgerEntry(tx.QueryRow(ctx, insert,
		e.LedgerID, e.TransactionID, e.Direction, e.Counterpart, e.CounterpartKind,
		e.Amount, e.Currency, e.Status, e.AuthCode, e.DeviceID, e.MerchantRequestID, e.CreatedAt,
	))
	if err == nil {
		return stored, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("insert ledger entry: %w", err)
	}

	existingQuery := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE transaction_id = $1 AND direction = $2`
	existing, err := scanLedgerEntry(tx.QueryRow(ctx, existingQuery, e.TransactionID, e.Direction))
	if err != nil {
		return nil, false, fmt.Errorf("get existing ledger entry: %w", err)
	}
	return existing, false, nil
}

// ListByTransaction returns both sides of a transaction, debit first.
func (r *LedgerRepo) ListByTransaction(ctx context.Context, transactionID string) ([]domain.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE transaction_id = $1
		ORDER BY CASE direction WHEN 'DEBIT' THEN 0 ELSE 1 END`

	rows, err := r.pool.Query(ctx, query, transactionID)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries by transaction: %w", err)
	}
	defer rows.Close()

	return collectLedgerEntries(rows)
}

// List retrieves ledger entries with filters and pagination, oldest first.
func (r *LedgerRepo) List(ctx context.Context, params ports.LedgerListParams) ([]domain.LedgerEntry, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	if params.Counterpart != nil {
		conditions = append(conditions, fmt.Sprintf("counterpart = $%d", argIdx))
		args = append(args, *params.Counterpart)
		argIdx++
	}
	if params.From != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argIdx))
		args = append(args, *params.From)
		argIdx++
	}
	if params.To != nil {
		conditions = append(conditions, fmt.Sprintf("created_at < $%d", argIdx))
		args = append(args, *params.To)
		argIdx++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM ledger_entries %s", where)
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count ledger entries: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(`SELECT %s FROM ledger_entries %s ORDER BY created_at, ledger_id LIMIT $%d OFFSET $%d`,
		ledgerColumns, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	entries, err := collectLedgerEntries(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func collectLedgerEntries(rows pgx.Rows) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger rows: %w", err)
	}
	return entries, nil
}

func scanLedgerEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	e := &domain.LedgerEntry{}
	err := row.Scan(
		&e.LedgerID, &e.TransactionID, &e.Direction, &e.Counterpart, &e.CounterpartKind,
		&e.Amount, &e.Currency, &e.Status, &e.AuthCode, &e.DeviceID, &e.MerchantRequestID, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}
