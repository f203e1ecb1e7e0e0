package service

import (
	"errors"
	"fmt"
	"time"

	"nfc-wallet/internal/core/ports"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Roles carried in access tokens.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// accessClaims binds an owner to the device the token was issued for. The
// owner travels in the registered subject claim.
type accessClaims struct {
	Device string `json:"device,omitempty"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// JWTTokenService implements ports.TokenService with HS256 tokens shared
// with the identity provider.
type JWTTokenService struct {
	secret []byte
	expiry time.Duration
	issuer string
	parser *jwt.Parser
}

// NewJWTTokenService creates a new JWT token service.
func NewJWTTokenService(secret string, expiry time.Duration, issuer string) *JWTTokenService {
	return &JWTTokenService{
		secret: []byte(secret),
		expiry: expiry,
		issuer: issuer,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithExpirationRequired(),
		),
	}
}

// Generate signs a token for ownerID acting from deviceID. An empty role
// means RoleUser.
func (s *JWTTokenService) Generate(ownerID uuid.UUID, deviceID string, role string) (string, time.Time, error) {
	if role == "" {
		role = RoleUser
	}
	now := time.Now()
	expiresAt := now.Add(s.expiry)

	claims := accessClaims{
		Device: deviceID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ownerID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate checks signature, issuer and expiry and returns the caller.
func (s *JWTTokenService) Validate(tokenString string) (*ports.TokenClaims, error) {
	var claims accessClaims
	token, err := s.parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	ownerID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("invalid owner in token subject: %w", err)
	}

	role := claims.Role
	if role == "" {
		role = RoleUser
	}
	return &ports.TokenClaims{
		OwnerID:  ownerID,
		DeviceID: claims.Device,
		Role:     role,
	}, nil
}
