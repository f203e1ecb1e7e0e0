package memory

import (
	"context"
	"fmt"

	"nfc-wallet/internal/core/domain"
	"nfc-wallet/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CardRepo implements ports.CardRepository, including the per-owner
// uniqueness rules on fingerprint and default flags.
type CardRepo struct {
	s *Store
}

// NewCardRepo creates a CardRepo over s.
func NewCardRepo(s *Store) *CardRepo {
	return &CardRepo{s: s}
}

// Create inserts a card inside tx.
func (r *CardRepo) Create(_ context.Context, tx pgx.Tx, c *domain.Card) error {
	t, err := r.s.use(tx)
	if err != nil {
		return fmt.Errorf("insert card: %w", err)
	}
	if _, ok := r.s.cards[c.ID]; ok {
		return fmt.Errorf("insert card: id %s exists", c.ID)
	}
	if err := r.checkUnique(*c); err != nil {
		return fmt.Errorf("insert card: %w", err)
	}
	putWithUndo(t, r.s.cards, c.ID, *c)
	return nil
}

// GetByID fetches a card by ID.
func (r *CardRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Card, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.get(id), nil
}

// GetByIDForUpdate reads a card inside tx.
func (r *CardRepo) GetByIDForUpdate(_ context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Card, error) {
	if _, err := r.s.use(tx); err != nil {
		return nil, fmt.Errorf("lock card: %w", err)
	}
	return r.get(id), nil
}

// ListByOwner returns the owner's non-removed cards, oldest first.
func (r *CardRepo) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]domain.Card, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.byOwner(ownerID), nil
}

// LockByOwner returns the owner's non-removed cards inside tx.
func (r *CardRepo) LockByOwner(_ context.Context, tx pgx.Tx, ownerID uuid.UUID) ([]domain.Card, error) {
	if _, err := r.s.use(tx); err != nil {
		return nil, fmt.Errorf("lock owner cards: %w", err)
	}
	return r.byOwner(ownerID), nil
}

// FindByFingerprint returns a non-removed card of the owner with the given
// fingerprint, or nil.
func (r *CardRepo) FindByFingerprint(_ context.Context, ownerID uuid.UUID, fingerprint string) (*domain.Card, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.cards {
		if c.OwnerID == ownerID && c.Fingerprint == fingerprint && !c.IsRemoved() {
			return &c, nil
		}
	}
	return nil, nil
}

// Update writes the mutable card columns inside tx.
func (r *CardRepo) Update(_ context.Context, tx pgx.Tx, c *domain.Card) error {
	t, err := r.s.use(tx)
	if err != nil {
		return fmt.Errorf("update card: %w", err)
	}
	stored, ok := r.s.cards[c.ID]
	if !ok {
		return fmt.Errorf("card not found: %s", c.ID)
	}
	stored.Status = c.Status
	stored.MerchantStatus = c.MerchantStatus
	stored.IsDefault = c.IsDefault
	stored.IsSettlementDefault = c.IsSettlementDefault
	stored.UpdatedAt = c.UpdatedAt
	if err := r.checkUnique(stored); err != nil {
		return fmt.Errorf("update card: %w", err)
	}
	putWithUndo(t, r.s.cards, c.ID, stored)
	return nil
}

func (r *CardRepo) checkUnique(c domain.Card) error {
	if c.IsSettlementDefault && c.MerchantStatus != domain.MerchantStatusApproved {
		return fmt.Errorf("settlement default card %s is not merchant approved", c.ID)
	}
	for id, other := range r.s.cards {
		if id == c.ID {
			continue
		}
		if other.TokenReference == c.TokenReference {
			return fmt.Errorf("token reference already stored")
		}
		if other.OwnerID != c.OwnerID {
			continue
		}
		if !c.IsRemoved() && !other.IsRemoved() && other.Fingerprint == c.Fingerprint {
			return ports.ErrDuplicateFingerprint
		}
		if c.IsDefault && other.IsDefault {
			return ports.ErrDuplicateDefaultCard
		}
		if c.IsSettlementDefault && other.IsSettlementDefault {
			return fmt.Errorf("owner %s already has a settlement default card", c.OwnerID)
		}
	}
	return nil
}

func (r *CardRepo) get(id uuid.UUID) *domain.Card {
	c, ok := r.s.cards[id]
	if !ok {
		return nil
	}
	return &c
}

func (r *CardRepo) byOwner(ownerID uuid.UUID) []domain.Card {
	var out []domain.Card
	for _, c := range r.s.cards {
		if c.OwnerID == ownerID && !c.IsRemoved() {
			out = append(out, c)
		}
	}
	sortCardsOldestFirst(out)
	return out
}
