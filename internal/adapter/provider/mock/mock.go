// Package mock provides in-process card providers for local runs. The
// issuer always sends OTP 1234.
package mock

import (
	"context"
	"strings"

	"nfc-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OTP is the code the mock issuer accepts.
const OTP = "1234"

const maskedContact = "*******123"

// Tokenizer implements ports.TokenizationProvider.
type Tokenizer struct {
	log zerolog.Logger
}

// NewTokenizer creates a mock token vault.
func NewTokenizer(log zerolog.Logger) *Tokenizer {
	return &Tokenizer{log: log}
}

// Tokenize returns a fresh opaque token.
func (t *Tokenizer) Tokenize(_ context.Context, card domain.RawCard) (string, error) {
	token := "tok_" + uuid.NewString()
	t.log.Info().Str("last_four", card.LastFour()).Msg("mock vault: card tokenized")
	return token, nil
}

// DeleteToken accepts any token this vault could have issued.
func (t *Tokenizer) DeleteToken(_ context.Context, token string) (bool, error) {
	t.log.Info().Str("token", token).Msg("mock vault: token deleted")
	return strings.HasPrefix(token, "tok_"), nil
}

// Issuer implements ports.IssuerVerificationProvider.
type Issuer struct {
	log zerolog.Logger
}

// NewIssuer creates a mock issuer.
func NewIssuer(log zerolog.Logger) *Issuer {
	return &Issuer{log: log}
}

// InitiateVerification starts an OTP session whose code is always OTP.
func (i *Issuer) InitiateVerification(_ context.Context, card domain.RawCard) (*domain.VerificationSession, error) {
	session := &domain.VerificationSession{
		Reference:     "REQ_" + uuid.NewString(),
		MaskedContact: maskedContact,
		Code:          OTP,
	}
	i.log.Info().
		Str("last_four", card.LastFour()).
		Str("reference", session.Reference).
		Msg("mock issuer: verification initiated")
	return session, nil
}

// ValidateOtp accepts OTP for any reference it issued.
func (i *Issuer) ValidateOtp(_ context.Context, reference, otp string) (bool, error) {
	return strings.HasPrefix(reference, "REQ_") && otp == OTP, nil
}

// Notifier implements ports.NotificationProvider by logging.
type Notifier struct {
	log zerolog.Logger
}

// NewNotifier creates a logging notifier.
func NewNotifier(log zerolog.Logger) *Notifier {
	return &Notifier{log: log}
}

// SendOtp logs the destination; the code itself is not written out.
func (n *Notifier) SendOtp(_ context.Context, destination, _ string) (bool, error) {
	n.log.Info().Str("destination", destination).Msg("mock notifier: otp sent")
	return true, nil
}
