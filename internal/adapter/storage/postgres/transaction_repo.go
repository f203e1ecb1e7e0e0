package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"nfc-wallet/internal/core/domain"
	"nfc-wallet/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

const transactionColumns = `id, reference, owner_id, wallet_id, type, amount, fee, total, currency,
	status, description, metadata, processed_at, created_at`

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create inserts a transaction record within a database transaction.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	metadata, err := encodeMetadata(t.Metadata)
	if err != nil {
		return err
	}

	query := `INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err = tx.Exec(ctx, query,
		t.ID, t.Reference, t.OwnerID, t.WalletID, t.Type,
		t.Amount, t.Fee, t.Total, t.Currency, t.Status,
		t.Description, metadata, t.ProcessedAt, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// ListByReference returns every participant's record of one movement.
func (r *TransactionRepo) ListByReference(ctx context.Context, reference string) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE reference = $1 ORDER BY total`

	rows, err := r.pool.Query(ctx, query, reference)
	if err != nil {
		return nil, fmt.Errorf("list transactions by reference: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// List retrieves an owner's transactions with filters and pagination.
func (r *TransactionRepo) List(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, fmt.Sprintf("owner_id = $%d", argIdx))
	args = append(args, params.OwnerID)
	argIdx++

	if params.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argIdx))
		args = append(args, *params.Type)
		argIdx++
	}
	if params.Currency != nil {
		conditions = append(conditions, fmt.Sprintf("currency = $%d", argIdx))
		args = append(args, *params.Currency)
		argIdx++
	}
	if params.From != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argIdx))
		args = append(args, *params.From)
		argIdx++
	}
	if params.To != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argIdx))
		args = append(args, *params.To)
		argIdx++
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM transactions %s", where)
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(`SELECT %s FROM transactions %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		transactionColumns, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txns, err := collectTransactions(rows)
	if err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

func collectTransactions(rows pgx.Rows) ([]domain.Transaction, error) {
	var txns []domain.Transaction
	for rows.Next() {
		t := domain.Transaction{}
		var metadata []byte
		err := rows.Scan(
			&t.ID, &t.Reference, &t.OwnerID, &t.WalletID, &t.Type,
			&t.Amount, &t.Fee, &t.Total, &t.Currency, &t.Status,
			&t.Description, &metadata, &t.ProcessedAt, &t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &t.Metadata); err != nil {
				return nil, fmt.Errorf("decode transaction metadata: %w", err)
			}
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, nil
}

func encodeMetadata(m map[string]string) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode transaction metadata: %w", err)
	}
	return b, nil
}
