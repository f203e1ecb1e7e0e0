package memory

import (
	"context"
	"fmt"
	"sort"

	"nfc-wallet/internal/core/domain"
	"nfc-wallet/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// MerchantRequestRepo implements ports.MerchantRequestRepository.
type MerchantRequestRepo struct {
	s *Store
}

// NewMerchantRequestRepo creates a MerchantRequestRepo over s.
func NewMerchantRequestRepo(s *Store) *MerchantRequestRepo {
	return &MerchantRequestRepo{s: s}
}

// Create inserts a request inside tx. At most one pending or approved
// request may exist per device and settlement card.
func (r *MerchantRequestRepo) Create(_ context.Context, tx pgx.Tx, m *domain.MerchantRequest) error {
	t, err := r.s.use(tx)
	if err != nil {
		return fmt.Errorf("insert merchant request: %w", err)
	}
	if err := r.checkOpen(*m); err != nil {
		return fmt.Errorf("insert merchant request: %w", err)
	}
	putWithUndo(t, r.s.requests, m.ID, *m)
	return nil
}

// GetByID fetches a request by ID.
func (r *MerchantRequestRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.MerchantRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.get(id), nil
}

// GetByIDForUpdate reads a request inside tx.
func (r *MerchantRequestRepo) GetByIDForUpdate(_ context.Context, tx pgx.Tx, id uuid.UUID) (*domain.MerchantRequest, error) {
	if _, err := r.s.use(tx); err != nil {
		return nil, fmt.Errorf("lock merchant request: %w", err)
	}
	return r.get(id), nil
}

// FindOpen returns the pending or approved request for the pair, or nil.
func (r *MerchantRequestRepo) FindOpen(_ context.Context, tx pgx.Tx, deviceID, cardToken string) (*domain.MerchantRequest, error) {
	if _, err := r.s.use(tx); err != nil {
		return nil, fmt.Errorf("find open merchant request: %w", err)
	}
	for _, m := range r.s.requests {
		if m.DeviceID == deviceID && m.SettlementCardToken == cardToken && m.IsOpen() {
			return &m, nil
		}
	}
	return nil, nil
}

// FindApprovedByDevice returns the most recently reviewed approved request
// of a device, or nil.
func (r *MerchantRequestRepo) FindApprovedByDevice(_ context.Context, deviceID string) (*domain.MerchantRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var found *domain.MerchantRequest
	for _, m := range r.s.requests {
		if m.DeviceID != deviceID || m.Status != domain.MerchantRequestApproved {
			continue
		}
		if found == nil || reviewedAfter(m, *found) {
			m := m
			found = &m
		}
	}
	return found, nil
}

// ListByStatus returns requests in status, oldest first.
func (r *MerchantRequestRepo) ListByStatus(_ context.Context, status domain.MerchantRequestStatus, pageNum, pageSize int) ([]domain.MerchantRequest, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var matched []domain.MerchantRequest
	for _, m := range r.s.requests {
		if m.Status == status {
			matched = append(matched, m)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.Before(matched[j].CreatedAt) })
	return page(matched, pageNum, pageSize), int64(len(matched)), nil
}

// Update writes a request inside tx.
func (r *MerchantRequestRepo) Update(_ context.Context, tx pgx.Tx, m *domain.MerchantRequest) error {
	t, err := r.s.use(tx)
	if err != nil {
		return fmt.Errorf("update merchant request: %w", err)
	}
	if _, ok := r.s.requests[m.ID]; !ok {
		return fmt.Errorf("merchant request not found: %s", m.ID)
	}
	if err := r.checkOpen(*m); err != nil {
		return fmt.Errorf("update merchant request: %w", err)
	}
	putWithUndo(t, r.s.requests, m.ID, *m)
	return nil
}

func (r *MerchantRequestRepo) checkOpen(m domain.MerchantRequest) error {
	if !m.IsOpen() {
		return nil
	}
	for id, other := range r.s.requests {
		if id != m.ID && other.IsOpen() && other.DeviceID == m.DeviceID && other.SettlementCardToken == m.SettlementCardToken {
			return ports.ErrDuplicateOpenRequest
		}
	}
	return nil
}

func (r *MerchantRequestRepo) get(id uuid.UUID) *domain.MerchantRequest {
	m, ok := r.s.requests[id]
	if !ok {
		return nil
	}
	return &m
}

func reviewedAfter(a, b domain.MerchantRequest) bool {
	if a.ReviewedAt == nil {
		return false
	}
	return b.ReviewedAt == nil || a.ReviewedAt.After(*b.ReviewedAt)
}
