package service

import (
	"context"
	"fmt"

	"nfc-wallet/internal/core/domain"
	"nfc-wallet/internal/core/ports"
	"nfc-wallet/pkg/apperror"

	"github.com/rs/zerolog"
)

// AcceptanceServiceImpl implements ports.AcceptanceService: a merchant
// device with an approved request takes a card tap and asks the authorizer.
type AcceptanceServiceImpl struct {
	requestRepo ports.MerchantRequestRepository
	cardRepo    ports.CardRepository
	authorizer  ports.PaymentAuthorizer
	log         zerolog.Logger
}

// NewAcceptanceService creates a new AcceptanceServiceImpl.
func NewAcceptanceService(
	requestRepo ports.MerchantRequestRepository,
	cardRepo ports.CardRepository,
	authorizer ports.PaymentAuthorizer,
	log zerolog.Logger,
) *AcceptanceServiceImpl {
	return &AcceptanceServiceImpl{
		requestRepo: requestRepo,
		cardRepo:    cardRepo,
		authorizer:  authorizer,
		log:         log,
	}
}

// AcceptPayment authorizes a tap with the device's merchant context.
func (s *AcceptanceServiceImpl) AcceptPayment(ctx context.Context, req ports.AcceptPaymentRequest) (*domain.AuthorizationResult, error) {
	if req.CardToken == "" {
		return nil, apperror.Validation("card token is required")
	}

	merchant, err := s.requestRepo.FindApprovedByDevice(ctx, req.DeviceID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find merchant request: %w", err))
	}
	if merchant == nil {
		return nil, apperror.ErrMerchantNotApproved()
	}

	settlement, err := s.cardRepo.GetByID(ctx, merchant.SettlementCardID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get settlement card: %w", err))
	}
	if settlement == nil || settlement.IsRemoved() || settlement.MerchantStatus != domain.MerchantStatusApproved {
		return nil, apperror.ErrMerchantNotApproved()
	}

	return s.authorizer.Authorize(ctx, domain.AuthorizationRequest{
		CardToken: req.CardToken,
		Amount:    req.Amount,
		Currency:  req.Currency,
		DeviceID:  req.DeviceID,
		Merchant: &domain.MerchantContext{
			RequestID:           merchant.ID,
			Name:                merchant.Business.Name,
			DeviceID:            merchant.DeviceID,
			SettlementCardToken: settlement.TokenReference,
		},
	})
}
