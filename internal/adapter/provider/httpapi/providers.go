package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"nfc-wallet/config"
	"nfc-wallet/internal/core/domain"

	"github.com/rs/zerolog"
)

// Vault implements ports.TokenizationProvider.
type Vault struct {
	c *client
}

// NewVault creates a vault client for cfg.VaultURL.
func NewVault(cfg config.ProviderConfig, log zerolog.Logger) *Vault {
	return &Vault{c: newClient(cfg.VaultURL, cfg, log.With().Str("provider", "vault").Logger())}
}

type tokenizeRequest struct {
	PAN         string `json:"pan"`
	CVV         string `json:"cvv"`
	ExpiryMonth int    `json:"expiry_month"`
	ExpiryYear  int    `json:"expiry_year"`
	HolderName  string `json:"holder_name,omitempty"`
}

type tokenizeResponse struct {
	Token string `json:"token"`
}

// Tokenize exchanges card data for an opaque token.
func (v *Vault) Tokenize(ctx context.Context, card domain.RawCard) (string, error) {
	var out tokenizeResponse
	err := v.c.do(ctx, http.MethodPost, "/tokens", tokenizeRequest{
		PAN:         card.PAN,
		CVV:         card.CVV,
		ExpiryMonth: card.ExpiryMonth,
		ExpiryYear:  card.ExpiryYear,
		HolderName:  card.HolderName,
	}, &out)
	if err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", errors.New("vault returned an empty token")
	}
	return out.Token, nil
}

type deleteTokenResponse struct {
	Deleted bool `json:"deleted"`
}

// DeleteToken revokes token. A 404 means the vault no longer knows it.
func (v *Vault) DeleteToken(ctx context.Context, token string) (bool, error) {
	var out deleteTokenResponse
	err := v.c.do(ctx, http.MethodDelete, "/tokens/"+url.PathEscape(token), nil, &out)
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Status == http.StatusNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return out.Deleted, nil
}

// Issuer implements ports.IssuerVerificationProvider.
type Issuer struct {
	c *client
}

// NewIssuer creates an issuer client for cfg.IssuerURL.
func NewIssuer(cfg config.ProviderConfig, log zerolog.Logger) *Issuer {
	return &Issuer{c: newClient(cfg.IssuerURL, cfg, log.With().Str("provider", "issuer").Logger())}
}

type verificationRequest struct {
	PAN         string `json:"pan"`
	ExpiryMonth int    `json:"expiry_month"`
	ExpiryYear  int    `json:"expiry_year"`
}

type verificationResponse struct {
	Reference     string `json:"reference"`
	MaskedContact string `json:"masked_contact"`
	OTP           string `json:"otp,omitempty"`
}

// InitiateVerification starts an OTP session at the issuer. The issuer may
// return the code for the wallet to deliver.
func (i *Issuer) InitiateVerification(ctx context.Context, card domain.RawCard) (*domain.VerificationSession, error) {
	var out verificationResponse
	err := i.c.do(ctx, http.MethodPost, "/verifications", verificationRequest{
		PAN:         card.PAN,
		ExpiryMonth: card.ExpiryMonth,
		ExpiryYear:  card.ExpiryYear,
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.Reference == "" {
		return nil, errors.New("issuer returned an empty reference")
	}
	return &domain.VerificationSession{
		Reference:     out.Reference,
		MaskedContact: out.MaskedContact,
		Code:          out.OTP,
	}, nil
}

type validateRequest struct {
	OTP string `json:"otp"`
}

type validateResponse struct {
	Valid bool `json:"valid"`
}

// ValidateOtp checks otp against the issuer's session.
func (i *Issuer) ValidateOtp(ctx context.Context, reference, otp string) (bool, error) {
	var out validateResponse
	path := "/verifications/" + url.PathEscape(reference) + "/validate"
	if err := i.c.do(ctx, http.MethodPost, path, validateRequest{OTP: otp}, &out); err != nil {
		return false, err
	}
	return out.Valid, nil
}

// Notifier implements ports.NotificationProvider.
type Notifier struct {
	c *client
}

// NewNotifier creates a notification client for cfg.NotificationURL.
func NewNotifier(cfg config.ProviderConfig, log zerolog.Logger) *Notifier {
	return &Notifier{c: newClient(cfg.NotificationURL, cfg, log.With().Str("provider", "notifier").Logger())}
}

type sendOtpRequest struct {
	Destination string `json:"destination"`
	OTP         string `json:"otp"`
}

type sendOtpResponse struct {
	Sent bool `json:"sent"`
}

// SendOtp delivers otp to destination.
func (n *Notifier) SendOtp(ctx context.Context, destination, otp string) (bool, error) {
	var out sendOtpResponse
	if err := n.c.do(ctx, http.MethodPost, "/otp", sendOtpRequest{Destination: destination, OTP: otp}, &out); err != nil {
		return false, err
	}
	return out.Sent, nil
}
