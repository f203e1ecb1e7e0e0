package service

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"nfc-wallet/internal/core/domain"
	"nfc-wallet/internal/core/ports"
	"nfc-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/blake2b"
)

// CardPolicy configures card provisioning.
type CardPolicy struct {
	// FingerprintKey keys the BLAKE2b fingerprint; at most 64 bytes.
	FingerprintKey []byte
	MaxOtpAttempts int64
	OtpWindow      time.Duration
}

// CardServiceImpl implements ports.CardService.
type CardServiceImpl struct {
	cardRepo    ports.CardRepository
	tokenizer   ports.TokenizationProvider
	issuer      ports.IssuerVerificationProvider
	notifier    ports.NotificationProvider
	otpAttempts ports.OtpAttemptTracker
	transactor  ports.DBTransactor
	policy      CardPolicy
	log         zerolog.Logger
}

// NewCardService creates a new CardServiceImpl.
func NewCardService(
	cardRepo ports.CardRepository,
	tokenizer ports.TokenizationProvider,
	issuer ports.IssuerVerificationProvider,
	notifier ports.NotificationProvider,
	otpAttempts ports.OtpAttemptTracker,
	transactor ports.DBTransactor,
	policy CardPolicy,
	log zerolog.Logger,
) *CardServiceImpl {
	return &CardServiceImpl{
		cardRepo:    cardRepo,
		tokenizer:   tokenizer,
		issuer:      issuer,
		notifier:    notifier,
		otpAttempts: otpAttempts,
		transactor:  transactor,
		policy:      policy,
		log:         log,
	}
}

// AddCard tokenizes a card and stores it pending OTP verification. The
// duplicate check runs before the vault sees the card.
func (s *CardServiceImpl) AddCard(ctx context.Context, ownerID uuid.UUID, raw domain.RawCard) (*domain.Card, error) {
	if err := validateRawCard(raw); err != nil {
		return nil, err
	}

	fingerprint, err := s.fingerprint(raw)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	existing, err := s.cardRepo.FindByFingerprint(ctx, ownerID, fingerprint)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find card by fingerprint: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrDuplicateCard()
	}

	token, err := s.tokenizer.Tokenize(ctx, raw)
	if err != nil {
		return nil, apperror.ErrProviderUnavailable(fmt.Errorf("tokenize card: %w", err))
	}
	session, err := s.issuer.InitiateVerification(ctx, raw)
	if err != nil {
		s.revokeQuietly(ctx, token)
		return nil, apperror.ErrProviderUnavailable(fmt.Errorf("initiate verification: %w", err))
	}

	code, err := otpCode(session)
	if err != nil {
		s.revokeQuietly(ctx, token)
		return nil, err
	}

	now := time.Now().UTC()
	card := &domain.Card{
		ID:              uuid.New(),
		OwnerID:         ownerID,
		TokenReference:  token,
		LastFour:        raw.LastFour(),
		Scheme:          raw.Scheme,
		Fingerprint:     fingerprint,
		IssuerReference: session.Reference,
		MaskedContact:   session.MaskedContact,
		Status:          domain.CardStatusPending,
		MerchantStatus:  domain.MerchantStatusConsumerOnly,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if session.Code == "" {
		digest, err := s.otpDigest(card.ID, code)
		if err == nil {
			err = s.otpAttempts.SaveCode(ctx, card.ID, digest, s.policy.OtpWindow)
		}
		if err != nil {
			s.revokeQuietly(ctx, token)
			return nil, apperror.InternalError(fmt.Errorf("save otp code: %w", err))
		}
	}
	if err := s.persistNewCard(ctx, card); err != nil {
		s.revokeQuietly(ctx, token)
		return nil, err
	}

	sent, err := s.notifier.SendOtp(ctx, session.MaskedContact, code)
	if err != nil || !sent {
		s.log.Warn().Err(err).Str("card_id", card.ID.String()).Msg("otp dispatch failed, card stays pending")
	}

	s.log.Info().
		Str("card_id", card.ID.String()).
		Str("owner_id", ownerID.String()).
		Str("last_four", card.LastFour).
		Bool("is_default", card.IsDefault).
		Msg("card added pending verification")

	return card, nil
}

func (s *CardServiceImpl) persistNewCard(ctx context.Context, card *domain.Card) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	owned, err := s.cardRepo.LockByOwner(ctx, dbTx, card.OwnerID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("lock owner cards: %w", err))
	}
	for _, c := range owned {
		if c.Fingerprint == card.Fingerprint {
			return apperror.ErrDuplicateCard()
		}
	}

	if err := s.cardRepo.Create(ctx, dbTx, card); err != nil {
		if errors.Is(err, ports.ErrDuplicateFingerprint) {
			return apperror.ErrDuplicateCard()
		}
		return apperror.InternalError(fmt.Errorf("create card: %w", err))
	}
	if len(owned) == 0 {
		if err := s.setDefault(ctx, dbTx, owned, card); err != nil {
			return err
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

// VerifyCard checks an OTP against the issuer. Failed checks count against
// a bounded number of attempts per window.
func (s *CardServiceImpl) VerifyCard(ctx context.Context, ownerID, cardID uuid.UUID, otp string) (*domain.Card, error) {
	card, err := s.ownedCard(ctx, ownerID, cardID)
	if err != nil {
		return nil, err
	}
	switch card.Status {
	case domain.CardStatusActive:
		return card, nil
	case domain.CardStatusRemoved:
		return nil, apperror.ErrInvalidTransition(string(card.Status), string(domain.CardStatusActive))
	}

	attempts, err := s.otpAttempts.Count(ctx, cardID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("count otp attempts: %w", err))
	}
	if attempts >= s.policy.MaxOtpAttempts {
		return nil, apperror.ErrOtpAttemptsExceeded()
	}

	valid, err := s.checkOtp(ctx, card, otp)
	if err != nil {
		return nil, err
	}
	if !valid {
		if _, err := s.otpAttempts.Increment(ctx, cardID, s.policy.OtpWindow); err != nil {
			s.log.Warn().Err(err).Str("card_id", cardID.String()).Msg("failed to count otp attempt")
		}
		return nil, apperror.ErrInvalidOtp()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	locked, err := s.cardRepo.GetByIDForUpdate(ctx, dbTx, cardID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock card: %w", err))
	}
	if locked == nil {
		return nil, apperror.ErrCardNotFound()
	}
	if locked.Status != domain.CardStatusActive {
		if !locked.CanTransitionTo(domain.CardStatusActive) {
			return nil, apperror.ErrInvalidTransition(string(locked.Status), string(domain.CardStatusActive))
		}
		locked.Status = domain.CardStatusActive
		locked.UpdatedAt = time.Now().UTC()
		if err := s.cardRepo.Update(ctx, dbTx, locked); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("activate card: %w", err))
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	if err := s.otpAttempts.Reset(ctx, cardID); err != nil {
		s.log.Warn().Err(err).Str("card_id", cardID.String()).Msg("failed to reset otp attempts")
	}
	s.log.Info().Str("card_id", cardID.String()).Msg("card verified")
	return locked, nil
}

// RemoveCard revokes the token and removes the card. When the default card
// goes, the oldest remaining card takes over.
func (s *CardServiceImpl) RemoveCard(ctx context.Context, ownerID, cardID uuid.UUID) (*domain.Card, error) {
	card, err := s.ownedCard(ctx, ownerID, cardID)
	if err != nil {
		return nil, err
	}
	if !card.CanTransitionTo(domain.CardStatusRemoved) {
		return nil, apperror.ErrInvalidTransition(string(card.Status), string(domain.CardStatusRemoved))
	}

	revoked, err := s.tokenizer.DeleteToken(ctx, card.TokenReference)
	if err != nil {
		return nil, apperror.ErrTokenRevocation(err)
	}
	if !revoked {
		return nil, apperror.ErrTokenRevocation(errors.New("token vault refused revocation"))
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	owned, err := s.cardRepo.LockByOwner(ctx, dbTx, ownerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock owner cards: %w", err))
	}
	target, rest := splitCards(owned, cardID)
	if target == nil {
		return nil, apperror.ErrInvalidTransition(string(domain.CardStatusRemoved), string(domain.CardStatusRemoved))
	}

	wasDefault := target.IsDefault
	target.Status = domain.CardStatusRemoved
	target.IsDefault = false
	target.IsSettlementDefault = false
	target.UpdatedAt = time.Now().UTC()
	if err := s.cardRepo.Update(ctx, dbTx, target); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("remove card: %w", err))
	}

	if wasDefault && len(rest) > 0 {
		successor := rest[0]
		if err := s.setDefault(ctx, dbTx, rest, &successor); err != nil {
			return nil, err
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().Str("card_id", cardID.String()).Bool("was_default", wasDefault).Msg("card removed")
	return target, nil
}

// SetDefault makes cardID the owner's only default card.
func (s *CardServiceImpl) SetDefault(ctx context.Context, ownerID, cardID uuid.UUID) (*domain.Card, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	owned, err := s.cardRepo.LockByOwner(ctx, dbTx, ownerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock owner cards: %w", err))
	}
	target, rest := splitCards(owned, cardID)
	if target == nil {
		return nil, apperror.ErrCardNotFound()
	}
	if err := s.setDefault(ctx, dbTx, rest, target); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return target, nil
}

// ListCards returns the owner's pending and active cards.
func (s *CardServiceImpl) ListCards(ctx context.Context, ownerID uuid.UUID) ([]domain.Card, error) {
	cards, err := s.cardRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list cards: %w", err))
	}
	return cards, nil
}

// setDefault is the only place the default flag changes. others must be
// the owner's other locked cards; the flag is cleared there before it is
// set on target.
func (s *CardServiceImpl) setDefault(ctx context.Context, tx pgx.Tx, others []domain.Card, target *domain.Card) error {
	now := time.Now().UTC()
	for i := range others {
		if others[i].ID == target.ID || !others[i].IsDefault {
			continue
		}
		others[i].IsDefault = false
		others[i].UpdatedAt = now
		if err := s.cardRepo.Update(ctx, tx, &others[i]); err != nil {
			return apperror.InternalError(fmt.Errorf("clear default card: %w", err))
		}
	}
	if target.IsDefault {
		return nil
	}
	target.IsDefault = true
	target.UpdatedAt = now
	if err := s.cardRepo.Update(ctx, tx, target); err != nil {
		return apperror.InternalError(fmt.Errorf("set default card: %w", err))
	}
	return nil
}

func (s *CardServiceImpl) ownedCard(ctx context.Context, ownerID, cardID uuid.UUID) (*domain.Card, error) {
	card, err := s.cardRepo.GetByID(ctx, cardID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get card: %w", err))
	}
	if card == nil || card.OwnerID != ownerID {
		return nil, apperror.ErrCardNotFound()
	}
	return card, nil
}

// fingerprint is a keyed BLAKE2b-256 of pan|mm|yyyy.
func (s *CardServiceImpl) fingerprint(raw domain.RawCard) (string, error) {
	h, err := blake2b.New256(s.policy.FingerprintKey)
	if err != nil {
		return "", fmt.Errorf("init fingerprint hash: %w", err)
	}
	fmt.Fprintf(h, "%s|%02d|%04d", raw.PAN, raw.ExpiryMonth, raw.ExpiryYear)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// otpCode returns the code to deliver: the issuer's when it sent one,
// otherwise a fresh wallet-issued code.
func otpCode(session *domain.VerificationSession) (string, error) {
	if session.Code != "" {
		return session.Code, nil
	}
	code, err := newOtpCode()
	if err != nil {
		return "", apperror.InternalError(err)
	}
	return code, nil
}

// checkOtp compares against a wallet-issued code when one is held and asks
// the issuer otherwise.
func (s *CardServiceImpl) checkOtp(ctx context.Context, card *domain.Card, otp string) (bool, error) {
	digest, err := s.otpAttempts.Code(ctx, card.ID)
	if err != nil {
		return false, apperror.InternalError(fmt.Errorf("load otp code: %w", err))
	}
	if digest != "" {
		given, err := s.otpDigest(card.ID, otp)
		if err != nil {
			return false, apperror.InternalError(err)
		}
		return subtle.ConstantTimeCompare([]byte(digest), []byte(given)) == 1, nil
	}

	valid, err := s.issuer.ValidateOtp(ctx, card.IssuerReference, otp)
	if err != nil {
		return false, apperror.ErrProviderUnavailable(fmt.Errorf("validate otp: %w", err))
	}
	return valid, nil
}

// otpDigest binds a wallet-issued code to its card.
func (s *CardServiceImpl) otpDigest(cardID uuid.UUID, otp string) (string, error) {
	h, err := blake2b.New256(s.policy.FingerprintKey)
	if err != nil {
		return "", fmt.Errorf("init otp hash: %w", err)
	}
	fmt.Fprintf(h, "otp|%s|%s", cardID, otp)
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (s *CardServiceImpl) revokeQuietly(ctx context.Context, token string) {
	if _, err := s.tokenizer.DeleteToken(ctx, token); err != nil {
		s.log.Warn().Err(err).Msg("failed to revoke orphaned card token")
	}
}

// splitCards separates cardID from the rest of a locked card set.
func splitCards(cards []domain.Card, cardID uuid.UUID) (*domain.Card, []domain.Card) {
	var target *domain.Card
	rest := make([]domain.Card, 0, len(cards))
	for i := range cards {
		if cards[i].ID == cardID {
			c := cards[i]
			target = &c
			continue
		}
		rest = append(rest, cards[i])
	}
	return target, rest
}

func validateRawCard(raw domain.RawCard) error {
	if len(raw.PAN) < 12 || len(raw.PAN) > 19 || !allDigits(raw.PAN) {
		return apperror.Validation("card number must be 12 to 19 digits")
	}
	if len(raw.CVV) < 3 || len(raw.CVV) > 4 || !allDigits(raw.CVV) {
		return apperror.Validation("cvv must be 3 or 4 digits")
	}
	if raw.ExpiryMonth < 1 || raw.ExpiryMonth > 12 {
		return apperror.Validation("expiry month must be between 1 and 12")
	}
	if raw.ExpiryYear < 2000 || raw.ExpiryYear > 9999 {
		return apperror.Validation("expiry year must have four digits")
	}
	return nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
