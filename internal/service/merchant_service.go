package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"nfc-wallet/internal/core/domain"
	"nfc-wallet/internal/core/ports"
	"nfc-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// MerchantServiceImpl implements ports.MerchantService. A request and its
// settlement card always change together in one transaction.
type MerchantServiceImpl struct {
	requestRepo ports.MerchantRequestRepository
	cardRepo    ports.CardRepository
	transactor  ports.DBTransactor
	log         zerolog.Logger
}

// NewMerchantService creates a new MerchantServiceImpl.
func NewMerchantService(
	requestRepo ports.MerchantRequestRepository,
	cardRepo ports.CardRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *MerchantServiceImpl {
	return &MerchantServiceImpl{
		requestRepo: requestRepo,
		cardRepo:    cardRepo,
		transactor:  transactor,
		log:         log,
	}
}

// Submit opens a pending request for a device and one of the owner's active
// consumer cards.
func (s *MerchantServiceImpl) Submit(ctx context.Context, req ports.SubmitMerchantRequest) (*domain.MerchantRequest, error) {
	if strings.TrimSpace(req.DeviceID) == "" {
		return nil, apperror.Validation("device id is required")
	}
	if strings.TrimSpace(req.Business.Name) == "" {
		return nil, apperror.Validation("business name is required")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	card, err := s.cardRepo.GetByIDForUpdate(ctx, dbTx, req.SettlementCardID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock card: %w", err))
	}
	if card == nil || card.OwnerID != req.OwnerID {
		return nil, apperror.ErrCardNotFound()
	}
	if card.Status != domain.CardStatusActive {
		return nil, apperror.ErrCardNotActive()
	}

	open, err := s.requestRepo.FindOpen(ctx, dbTx, req.DeviceID, card.TokenReference)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find open request: %w", err))
	}
	if open != nil {
		return nil, apperror.ErrDuplicateRequest()
	}
	if card.MerchantStatus != domain.MerchantStatusConsumerOnly {
		return nil, apperror.ErrInvalidTransition(string(card.MerchantStatus), string(domain.MerchantStatusPending))
	}

	now := time.Now().UTC()
	request := &domain.MerchantRequest{
		ID:                  uuid.New(),
		OwnerID:             req.OwnerID,
		DeviceID:            req.DeviceID,
		SettlementCardID:    card.ID,
		SettlementCardToken: card.TokenReference,
		Business:            req.Business,
		Status:              domain.MerchantRequestPending,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.requestRepo.Create(ctx, dbTx, request); err != nil {
		if errors.Is(err, ports.ErrDuplicateOpenRequest) {
			return nil, apperror.ErrDuplicateRequest()
		}
		return nil, apperror.InternalError(fmt.Errorf("create merchant request: %w", err))
	}

	card.MerchantStatus = domain.MerchantStatusPending
	card.UpdatedAt = now
	if err := s.cardRepo.Update(ctx, dbTx, card); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update card merchant status: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("request_id", request.ID.String()).
		Str("device_id", request.DeviceID).
		Str("card_id", card.ID.String()).
		Msg("merchant request submitted")

	return request, nil
}

// Approve accepts a pending request. The card becomes the owner's
// settlement default unless another card already is.
func (s *MerchantServiceImpl) Approve(ctx context.Context, requestID uuid.UUID, reviewer string) (*domain.MerchantRequest, error) {
	return s.review(ctx, requestID, domain.MerchantRequestApproved, func(tx pgx.Tx, req *domain.MerchantRequest, now time.Time) error {
		owned, err := s.cardRepo.LockByOwner(ctx, tx, req.OwnerID)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("lock owner cards: %w", err))
		}
		card, rest := splitCards(owned, req.SettlementCardID)
		if card == nil || card.Status != domain.CardStatusActive {
			return apperror.ErrCardNotActive()
		}

		hasSettlement := false
		for _, c := range rest {
			if c.IsSettlementDefault {
				hasSettlement = true
				break
			}
		}
		card.MerchantStatus = domain.MerchantStatusApproved
		card.IsSettlementDefault = !hasSettlement
		card.UpdatedAt = now
		if err := s.cardRepo.Update(ctx, tx, card); err != nil {
			return apperror.InternalError(fmt.Errorf("approve card: %w", err))
		}

		req.ReviewedBy = &reviewer
		req.ReviewedAt = &now
		return nil
	})
}

// Reject declines a pending request and returns the card to consumer use.
func (s *MerchantServiceImpl) Reject(ctx context.Context, requestID uuid.UUID, reviewer, reason string) (*domain.MerchantRequest, error) {
	return s.review(ctx, requestID, domain.MerchantRequestRejected, func(tx pgx.Tx, req *domain.MerchantRequest, now time.Time) error {
		if err := s.revertCard(ctx, tx, req.SettlementCardID, now); err != nil {
			return err
		}
		req.ReviewedBy = &reviewer
		req.ReviewedAt = &now
		req.RejectionReason = &reason
		return nil
	})
}

// Cancel withdraws a pending or under-review request on behalf of its owner.
func (s *MerchantServiceImpl) Cancel(ctx context.Context, requestID uuid.UUID, requesterID uuid.UUID) (*domain.MerchantRequest, error) {
	return s.review(ctx, requestID, domain.MerchantRequestCancelled, func(tx pgx.Tx, req *domain.MerchantRequest, now time.Time) error {
		if req.OwnerID != requesterID {
			return apperror.ErrNotRequestOwner()
		}
		if err := s.revertCard(ctx, tx, req.SettlementCardID, now); err != nil {
			return err
		}
		req.CancelledAt = &now
		return nil
	})
}

// review locks a request, checks the transition, lets apply mutate the
// request and its card, and persists the new status.
func (s *MerchantServiceImpl) review(
	ctx context.Context,
	requestID uuid.UUID,
	next domain.MerchantRequestStatus,
	apply func(tx pgx.Tx, req *domain.MerchantRequest, now time.Time) error,
) (*domain.MerchantRequest, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	req, err := s.requestRepo.GetByIDForUpdate(ctx, dbTx, requestID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock merchant request: %w", err))
	}
	if req == nil {
		return nil, apperror.ErrRequestNotFound()
	}
	if !req.CanTransitionTo(next) {
		return nil, apperror.ErrInvalidTransition(string(req.Status), string(next))
	}

	now := time.Now().UTC()
	if err := apply(dbTx, req, now); err != nil {
		return nil, err
	}
	req.Status = next
	req.UpdatedAt = now
	if err := s.requestRepo.Update(ctx, dbTx, req); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update merchant request: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("request_id", requestID.String()).
		Str("status", string(next)).
		Msg("merchant request updated")

	return req, nil
}

func (s *MerchantServiceImpl) revertCard(ctx context.Context, tx pgx.Tx, cardID uuid.UUID, now time.Time) error {
	card, err := s.cardRepo.GetByIDForUpdate(ctx, tx, cardID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("lock card: %w", err))
	}
	if card == nil || card.IsRemoved() {
		return nil
	}
	card.MerchantStatus = domain.MerchantStatusConsumerOnly
	card.IsSettlementDefault = false
	card.UpdatedAt = now
	if err := s.cardRepo.Update(ctx, tx, card); err != nil {
		return apperror.InternalError(fmt.Errorf("revert card merchant status: %w", err))
	}
	return nil
}

// Disable stops an approved card from accepting payments.
func (s *MerchantServiceImpl) Disable(ctx context.Context, cardID uuid.UUID) (*domain.Card, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	card, err := s.cardRepo.GetByIDForUpdate(ctx, dbTx, cardID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock card: %w", err))
	}
	if card == nil {
		return nil, apperror.ErrCardNotFound()
	}
	if card.MerchantStatus != domain.MerchantStatusApproved {
		return nil, apperror.ErrInvalidTransition(string(card.MerchantStatus), string(domain.MerchantStatusDisabled))
	}

	card.MerchantStatus = domain.MerchantStatusDisabled
	card.IsSettlementDefault = false
	card.UpdatedAt = time.Now().UTC()
	if err := s.cardRepo.Update(ctx, dbTx, card); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("disable card: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().Str("card_id", cardID.String()).Msg("merchant card disabled")
	return card, nil
}

// ListByStatus pages through requests in one status, oldest first.
func (s *MerchantServiceImpl) ListByStatus(ctx context.Context, status domain.MerchantRequestStatus, page, pageSize int) ([]domain.MerchantRequest, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	requests, total, err := s.requestRepo.ListByStatus(ctx, status, page, pageSize)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list merchant requests: %w", err))
	}
	return requests, total, nil
}
