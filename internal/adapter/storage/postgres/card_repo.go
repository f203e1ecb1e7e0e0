package postgres

import (
	"context"
	"errors"
	"fmt"

	"nfc-wallet/internal/core/domain"
	"nfc-wallet/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const cardColumns = `id, owner_id, token_reference, last_four, scheme, fingerprint, issuer_reference,
	masked_contact, status, merchant_status, is_default, is_settlement_default, created_at, updated_at`

// Constraint names the card service maps to domain errors.
const (
	CardFingerprintConstraint = "cards_owner_fingerprint_key"
	CardDefaultConstraint     = "cards_owner_default_key"
)

// CardRepo implements ports.CardRepository.
type CardRepo struct {
	pool Pool
}

// NewCardRepo creates a new CardRepo.
func NewCardRepo(pool Pool) *CardRepo {
	return &CardRepo{pool: pool}
}

// Create inserts a card within a database transaction.
func (r *CardRepo) Create(ctx context.Context, tx pgx.Tx, c *domain.Card) error {
	query := `INSERT INTO cards (` + cardColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := tx.Exec(ctx, query,
		c.ID, c.OwnerID, c.TokenReference, c.LastFour, c.Scheme, c.Fingerprint, c.IssuerReference,
		c.MaskedContact, c.Status, c.MerchantStatus, c.IsDefault, c.IsSettlementDefault, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert card: %w", cardConstraintError(err))
	}
	return nil
}

// GetByID fetches a card by ID (non-locking read).
func (r *CardRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE id = $1`

	c, err := scanCard(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get card by id: %w", err)
	}
	return c, nil
}

// GetByIDForUpdate fetches a card by ID with pessimistic locking.
func (r *CardRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE id = $1 FOR UPDATE`

	c, err := scanCard(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get card for update: %w", err)
	}
	return c, nil
}

// ListByOwner returns the owner's non-removed cards, oldest first.
func (r *CardRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE owner_id = $1 AND status <> 'removed' ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	return collectCards(rows)
}

// LockByOwner locks the owner's non-removed cards, oldest first. A
// transaction-scoped advisory lock on the owner comes first, so an owner
// with no cards yet is serialized too.
func (r *CardRepo) LockByOwner(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID) ([]domain.Card, error) {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, ownerID.String()); err != nil {
		return nil, fmt.Errorf("lock card owner: %w", err)
	}

	query := `SELECT ` + cardColumns + ` FROM cards WHERE owner_id = $1 AND status <> 'removed'
		ORDER BY created_at, id FOR UPDATE`

	rows, err := tx.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("lock owner cards: %w", err)
	}
	defer rows.Close()

	return collectCards(rows)
}

// FindByFingerprint returns the owner's non-removed card with the fingerprint.
func (r *CardRepo) FindByFingerprint(ctx context.Context, ownerID uuid.UUID, fingerprint string) (*domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards
		WHERE owner_id = $1 AND fingerprint = $2 AND status <> 'removed' LIMIT 1`

	c, err := scanCard(r.pool.QueryRow(ctx, query, ownerID, fingerprint))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find card by fingerprint: %w", err)
	}
	return c, nil
}

// Update writes the mutable card fields within a transaction.
func (r *CardRepo) Update(ctx context.Context, tx pgx.Tx, c *domain.Card) error {
	query := `UPDATE cards SET status = $1, merchant_status = $2, is_default = $3,
		is_settlement_default = $4, updated_at = $5 WHERE id = $6`

	tag, err := tx.Exec(ctx, query, c.Status, c.MerchantStatus, c.IsDefault, c.IsSettlementDefault, c.UpdatedAt, c.ID)
	if err != nil {
		return fmt.Errorf("update card: %w", cardConstraintError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("card not found: %s", c.ID)
	}
	return nil
}

func cardConstraintError(err error) error {
	switch {
	case IsUniqueViolation(err, CardFingerprintConstraint):
		return ports.ErrDuplicateFingerprint
	case IsUniqueViolation(err, CardDefaultConstraint):
		return ports.ErrDuplicateDefaultCard
	}
	return err
}

func collectCards(rows pgx.Rows) ([]domain.Card, error) {
	var cards []domain.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan card row: %w", err)
		}
		cards = append(cards, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate card rows: %w", err)
	}
	return cards, nil
}

func scanCard(row pgx.Row) (*domain.Card, error) {
	c := &domain.Card{}
	err := row.Scan(
		&c.ID, &c.OwnerID, &c.TokenReference, &c.LastFour, &c.Scheme, &c.Fingerprint, &c.IssuerReference,
		&c.MaskedContact, &c.Status, &c.MerchantStatus, &c.IsDefault, &c.IsSettlementDefault, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}
