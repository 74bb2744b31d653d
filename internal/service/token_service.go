package service

import (
	"errors"
	"fmt"
	"time"

	"ecash-billing-engine/internal/core/ports"

	"github.com/golang-jwt/jwt/v5"
)

// clockSkew is accepted on exp and iat between replicas.
const clockSkew = 30 * time.Second

// sessionClaims binds a token to one login of an identity. The session id
// changes on every fresh login, so tokens of a closed session stay dead.
type sessionClaims struct {
	jwt.RegisteredClaims
}

// JWTTokenService implements ports.TokenService with HS256 session tokens.
type JWTTokenService struct {
	key    []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewJWTTokenService creates a session token service.
func NewJWTTokenService(secret string, ttl time.Duration, issuer string) *JWTTokenService {
	return &JWTTokenService{key: []byte(secret), ttl: ttl, issuer: issuer, now: time.Now}
}

// Generate signs a token for sessionID of identity.
func (s *JWTTokenService) Generate(identity, sessionID string) (string, time.Time, error) {
	if identity == "" || sessionID == "" {
		return "", time.Time{}, errors.New("identity and session id are required")
	}
	issued := s.now()
	expires := issued.Add(s.ttl)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   identity,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}).SignedString(s.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, expires, nil
}

// Validate checks signature, issuer and expiry and returns the session the
// token was issued for.
func (s *JWTTokenService) Validate(raw string) (*ports.TokenClaims, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(clockSkew),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("session token: %w", err)
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, errors.New("session token: missing sub or jti")
	}

	return &ports.TokenClaims{
		Identity:  claims.Subject,
		SessionID: claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
