// Package auth holds the identity primitives behind the session provider:
// signed session tokens, password hashing, GitHub sign-in, the identity
// store service, token revocation and the HTTP middleware that reads tokens.
//
// SESSION TOKENS:
// A session is a signed JWT carried in the "token" cookie (or an
// "Authorization: Bearer" header). The subject is the identity id, which is
// also the profile id. Every token carries a unique id (jti) so that a
// sign-out can revoke that one token before it expires.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"

	"github.com/livme/livme/internal/apperror"
)

const (
	issuer = "livme"

	// DefaultTokenTTL is used when NewTokenService is given a zero TTL.
	DefaultTokenTTL = 24 * time.Hour
)

// TokenService creates and verifies HS256 session tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService. The secret must be at least 16
// characters; generate one with `openssl rand -hex 32`.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL is the lifetime of tokens issued by Generate.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Claims is what a verified token says about its bearer.
type Claims struct {
	UserID    string
	TokenID   string
	ExpiresAt time.Time
}

type claims struct {
	jwt.RegisteredClaims
}

// Generate signs a new token for userID with the service TTL.
func (s *TokenService) Generate(userID string) (string, error) {
	return s.GenerateWithDuration(userID, s.ttl)
}

// GenerateWithDuration signs a token that expires after d. A negative d
// produces an already-expired token, which tests use.
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        xid.New().String(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Parse verifies signature, algorithm, issuer and expiry and returns the
// claims. Every failure is apperror.ErrUnauthorized.
func (s *TokenService) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperror.Unauthorized("auth: token expired")
		}
		return nil, apperror.Unauthorized("auth: invalid token")
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, apperror.Unauthorized("auth: invalid token claims")
	}
	if c.Subject == "" {
		return nil, apperror.Unauthorized("auth: token has no subject")
	}

	return &Claims{
		UserID:    c.Subject,
		TokenID:   c.ID,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}

// Validate is Parse reduced to the user id.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	c, err := s.Parse(tokenStr)
	if err != nil {
		return "", err
	}
	return c.UserID, nil
}
