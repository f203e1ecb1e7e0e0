package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// OtpAttemptStore counts failed OTP checks per card in a sliding TTL window
// and keeps digests of wallet-issued codes. It implements
// ports.OtpAttemptTracker.
type OtpAttemptStore struct {
	client     goredis.Cmdable
	prefix     string
	codePrefix string
}

// NewOtpAttemptStore creates a new Redis-backed OTP attempt counter.
func NewOtpAttemptStore(client goredis.Cmdable) *OtpAttemptStore {
	return &OtpAttemptStore{
		client:     client,
		prefix:     keyPrefix + "otp_attempts:",
		codePrefix: keyPrefix + "otp_code:",
	}
}

// Count returns the failed attempts recorded for the card, 0 if none.
func (s *OtpAttemptStore) Count(ctx context.Context, cardID uuid.UUID) (int64, error) {
	n, err := s.client.Get(ctx, s.prefix+cardID.String()).Int64()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis otp attempts get: %w", err)
	}
	return n, nil
}

// Increment records one failed attempt. The window starts at the first
// failure and is not extended by later ones.
func (s *OtpAttemptStore) Increment(ctx context.Context, cardID uuid.UUID, window time.Duration) (int64, error) {
	key := s.prefix + cardID.String()

	var incr *goredis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, window)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis otp attempts incr: %w", err)
	}
	return incr.Val(), nil
}

// Reset clears the counter and any issued code after a successful
// verification.
func (s *OtpAttemptStore) Reset(ctx context.Context, cardID uuid.UUID) error {
	if err := s.client.Del(ctx, s.prefix+cardID.String(), s.codePrefix+cardID.String()).Err(); err != nil {
		return fmt.Errorf("redis otp attempts reset: %w", err)
	}
	return nil
}

// SaveCode stores the digest of a code issued for the card. A later save
// replaces it.
func (s *OtpAttemptStore) SaveCode(ctx context.Context, cardID uuid.UUID, digest string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.codePrefix+cardID.String(), digest, ttl).Err(); err != nil {
		return fmt.Errorf("redis otp code set: %w", err)
	}
	return nil
}

// Code returns the stored digest, "" when none is held or it expired.
func (s *OtpAttemptStore) Code(ctx context.Context, cardID uuid.UUID) (string, error) {
	digest, err := s.client.Get(ctx, s.codePrefix+cardID.String()).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("redis otp code get: %w", err)
	}
	return digest, nil
}
