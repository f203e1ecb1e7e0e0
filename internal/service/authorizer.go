package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"nfc-wallet/internal/core/domain"
	"nfc-wallet/internal/core/ports"
	"nfc-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// AuthorizationRules configures the rule-based checks of the authorizer.
type AuthorizationRules struct {
	BlockedCardPrefixes []string
	BlockedDevices      []string
	AmountCeiling       decimal.Decimal
}

// Authorizer implements ports.PaymentAuthorizer. It never touches the
// ledger; consumers of the published event do.
type Authorizer struct {
	rules     AuthorizationRules
	publisher ports.EventPublisher
	now       func() time.Time
	log       zerolog.Logger
}

// NewAuthorizer creates a new Authorizer.
func NewAuthorizer(rules AuthorizationRules, publisher ports.EventPublisher, log zerolog.Logger) *Authorizer {
	return &Authorizer{
		rules:     rules,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
		log:       log,
	}
}

// Authorize decides on a payment and publishes exactly one event for the
// decision. A decline is returned as a result, not an error.
func (a *Authorizer) Authorize(ctx context.Context, req domain.AuthorizationRequest) (*domain.AuthorizationResult, error) {
	if !domain.ValidAmount(req.Amount) {
		return nil, apperror.ErrInvalidAmount()
	}
	req.Currency = domain.NormalizeCurrency(req.Currency)

	result, err := a.decide(req)
	if err != nil {
		return nil, err
	}

	eventType := domain.EventAuthorized
	if !result.Approved() {
		eventType = domain.EventDeclined
	}
	event := domain.AuthorizationEvent{
		ID:         uuid.New(),
		Type:       eventType,
		Request:    req,
		Result:     *result,
		OccurredAt: result.DecidedAt,
	}
	if err := a.publisher.Publish(ctx, event); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("publish authorization event: %w", err))
	}

	a.log.Info().
		Str("transaction_id", result.TransactionID).
		Str("status", string(result.Status)).
		Str("reason", result.Reason).
		Str("device_id", req.DeviceID).
		Str("amount", req.Amount.StringFixed(domain.MoneyScale)).
		Msg("payment authorization decided")

	return result, nil
}

// decide applies the rules in order; the first match wins.
func (a *Authorizer) decide(req domain.AuthorizationRequest) (*domain.AuthorizationResult, error) {
	result := &domain.AuthorizationResult{
		TransactionID: newTransactionID(),
		DecidedAt:     a.now(),
	}

	switch {
	case a.cardBlocked(req.CardToken):
		result.Status, result.Reason = domain.AuthorizationDeclined, domain.DeclineCardBlocked
	case req.Amount.GreaterThan(a.rules.AmountCeiling):
		result.Status, result.Reason = domain.AuthorizationDeclined, domain.DeclineAmountTooLarge
	case a.deviceBlocked(req.DeviceID):
		result.Status, result.Reason = domain.AuthorizationDeclined, domain.DeclineDeviceBlocked
	default:
		code, err := newAuthCode()
		if err != nil {
			return nil, apperror.InternalError(err)
		}
		result.Status = domain.AuthorizationApproved
		result.AuthCode = &code
	}
	return result, nil
}

func (a *Authorizer) cardBlocked(token string) bool {
	for _, prefix := range a.rules.BlockedCardPrefixes {
		if prefix != "" && strings.HasPrefix(token, prefix) {
			return true
		}
	}
	return false
}

func (a *Authorizer) deviceBlocked(deviceID string) bool {
	for _, blocked := range a.rules.BlockedDevices {
		if deviceID != "" && deviceID == blocked {
			return true
		}
	}
	return false
}
