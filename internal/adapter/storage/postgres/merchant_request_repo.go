package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"nfc-wallet/internal/core/domain"
	"nfc-wallet/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const merchantRequestColumns = `id, owner_id, device_id, settlement_card_id, settlement_card_token, business,
	status, rejection_reason, reviewed_by, reviewed_at, cancelled_at, created_at, updated_at`

// MerchantRequestOpenConstraint guards one open request per device and card.
const MerchantRequestOpenConstraint = "merchant_requests_open_key"

// MerchantRequestRepo implements ports.MerchantRequestRepository.
type MerchantRequestRepo struct {
	pool Pool
}

// NewMerchantRequestRepo creates a new MerchantRequestRepo.
func NewMerchantRequestRepo(pool Pool) *MerchantRequestRepo {
	return &MerchantRequestRepo{pool: pool}
}

// Create inserts a merchant request within a transaction.
func (r *MerchantRequestRepo) Create(ctx context.Context, tx pgx.Tx, m *domain.MerchantRequest) error {
	business, err := json.Marshal(m.Business)
	if err != nil {
		return fmt.Errorf("encode business info: %w", err)
	}

	query := `INSERT INTO merchant_requests (` + merchantRequestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = tx.Exec(ctx, query,
		m.ID, m.OwnerID, m.DeviceID, m.SettlementCardID, m.SettlementCardToken, business,
		m.Status, m.RejectionReason, m.ReviewedBy, m.ReviewedAt, m.CancelledAt, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err, MerchantRequestOpenConstraint) {
			return fmt.Errorf("insert merchant request: %w", ports.ErrDuplicateOpenRequest)
		}
		return fmt.Errorf("insert merchant request: %w", err)
	}
	return nil
}

// GetByID fetches a merchant request by ID (non-locking read).
func (r *MerchantRequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.MerchantRequest, error) {
	query := `SELECT ` + merchantRequestColumns + ` FROM merchant_requests WHERE id = $1`
	return r.getOne(r.pool.QueryRow(ctx, query, id), "get merchant request by id")
}

// GetByIDForUpdate fetches a merchant request by ID with pessimistic locking.
func (r *MerchantRequestRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.MerchantRequest, error) {
	query := `SELECT ` + merchantRequestColumns + ` FROM merchant_requests WHERE id = $1 FOR UPDATE`
	return r.getOne(tx.QueryRow(ctx, query, id), "get merchant request for update")
}

// FindOpen returns the pending or approved request for the device and card.
func (r *MerchantRequestRepo) FindOpen(ctx context.Context, tx pgx.Tx, deviceID, cardToken string) (*domain.MerchantRequest, error) {
	query := `SELECT ` + merchantRequestColumns + ` FROM merchant_requests
		WHERE device_id = $1 AND settlement_card_token = $2 AND status IN ('pending', 'approved')
		LIMIT 1`
	return r.getOne(tx.QueryRow(ctx, query, deviceID, cardToken), "find open merchant request")
}

// FindApprovedByDevice returns the most recent approved request of a device.
func (r *MerchantRequestRepo) FindApprovedByDevice(ctx context.Context, deviceID string) (*domain.MerchantRequest, error) {
	query := `SELECT ` + merchantRequestColumns + ` FROM merchant_requests
		WHERE device_id = $1 AND status = 'approved' ORDER BY reviewed_at DESC NULLS LAST LIMIT 1`
	return r.getOne(r.pool.QueryRow(ctx, query, deviceID), "find approved merchant request")
}

// ListByStatus pages through requests in one status, oldest first.
func (r *MerchantRequestRepo) ListByStatus(ctx context.Context, status domain.MerchantRequestStatus, page, pageSize int) ([]domain.MerchantRequest, int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM merchant_requests WHERE status = $1`, status).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count merchant requests: %w", err)
	}

	query := `SELECT ` + merchantRequestColumns + ` FROM merchant_requests WHERE status = $1
		ORDER BY created_at LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, status, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list merchant requests: %w", err)
	}
	defer rows.Close()

	var out []domain.MerchantRequest
	for rows.Next() {
		m, err := scanMerchantRequest(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan merchant request row: %w", err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate merchant request rows: %w", err)
	}
	return out, total, nil
}

// Update writes the lifecycle fields of a request within a transaction.
func (r *MerchantRequestRepo) Update(ctx context.Context, tx pgx.Tx, m *domain.MerchantRequest) error {
	query := `UPDATE merchant_requests SET status = $1, rejection_reason = $2, reviewed_by = $3,
		reviewed_at = $4, cancelled_at = $5, updated_at = $6 WHERE id = $7`

	tag, err := tx.Exec(ctx, query, m.Status, m.RejectionReason, m.ReviewedBy, m.ReviewedAt, m.CancelledAt, m.UpdatedAt, m.ID)
	if err != nil {
		return fmt.Errorf("update merchant request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("merchant request not found: %s", m.ID)
	}
	return nil
}

func (r *MerchantRequestRepo) getOne(row pgx.Row, op string) (*domain.MerchantRequest, error) {
	m, err := scanMerchantRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return m, nil
}

func scanMerchantRequest(row pgx.Row) (*domain.MerchantRequest, error) {
	m := &domain.MerchantRequest{}
	var business []byte
	err := row.Scan(
		&m.ID, &m.OwnerID, &m.DeviceID, &m.SettlementCardID, &m.SettlementCardToken, &business,
		&m.Status, &m.RejectionReason, &m.ReviewedBy, &m.ReviewedAt, &m.CancelledAt, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(business) > 0 {
		if err := json.Unmarshal(business, &m.Business); err != nil {
			return nil, fmt.Errorf("decode business info: %w", err)
		}
	}
	return m, nil
}
