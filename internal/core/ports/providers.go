package ports

import (
	"context"

	"nfc-wallet/internal/core/domain"
)

// TokenizationProvider swaps raw card data for an opaque token.
type TokenizationProvider interface {
	Tokenize(ctx context.Context, card domain.RawCard) (string, error)
	DeleteToken(ctx context.Context, token string) (bool, error)
}

// IssuerVerificationProvider runs the issuer's OTP check for a new card.
type IssuerVerificationProvider interface {
	InitiateVerification(ctx context.Context, card domain.RawCard) (*domain.VerificationSession, error)
	ValidateOtp(ctx context.Context, reference, otp string) (bool, error)
}

// NotificationProvider delivers OTP codes to the cardholder.
type NotificationProvider interface {
	SendOtp(ctx context.Context, destination, otp string) (bool, error)
}
