package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jonathan/recruit-scorer/internal/config"
	"github.com/jonathan/recruit-scorer/internal/server/middleware"
)

// Token verification failures. Verify wraps the jwt library error in one of
// these, so callers can match either.
var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenSignature = errors.New("invalid token signature")
	ErrTokenIssuer    = errors.New("unexpected token issuer")
	ErrTokenMalformed = errors.New("malformed token")
	ErrTokenNoSubject = errors.New("token has no recruiter")
)

// RecruiterClaims is the payload of a recruiter session token.
type RecruiterClaims struct {
	RecruiterID uuid.UUID `json:"recruiter_id"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies recruiter session tokens (HS256).
type TokenIssuer struct {
	cfg *config.JWTConfig
	now func() time.Time
}

var _ middleware.TokenValidator = (*TokenIssuer)(nil)

// NewTokenIssuer returns an issuer using cfg's secret, issuer and lifetime.
func NewTokenIssuer(cfg *config.JWTConfig) *TokenIssuer {
	return &TokenIssuer{cfg: cfg, now: time.Now}
}

// Issue signs a token for recruiterID and returns it with its expiry.
func (t *TokenIssuer) Issue(recruiterID uuid.UUID) (string, time.Time, error) {
	issuedAt := t.now()
	expiresAt := issuedAt.Add(t.cfg.Expiration())

	claims := RecruiterClaims{
		RecruiterID: recruiterID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.cfg.Issuer,
			Subject:   recruiterID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(t.cfg.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks signature, expiry and issuer and returns the token's claims.
func (t *TokenIssuer) Verify(token string) (*RecruiterClaims, error) {
	if token == "" {
		return nil, ErrTokenMalformed
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	}
	if t.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.cfg.Issuer))
	}

	var claims RecruiterClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return []byte(t.cfg.Secret), nil
	}, opts...)
	if err != nil {
		return nil, classifyTokenError(err)
	}
	if claims.RecruiterID == uuid.Nil {
		return nil, ErrTokenNoSubject
	}
	return &claims, nil
}

// RecruiterID verifies token and returns the recruiter it was issued to.
func (t *TokenIssuer) RecruiterID(token string) (uuid.UUID, error) {
	claims, err := t.Verify(token)
	if err != nil {
		return uuid.Nil, err
	}
	return claims.RecruiterID, nil
}

func classifyTokenError(err error) error {
	for _, c := range []struct {
		lib, ours error
	}{
		{jwt.ErrTokenExpired, ErrTokenExpired},
		{jwt.ErrTokenSignatureInvalid, ErrTokenSignature},
		{jwt.ErrTokenInvalidIssuer, ErrTokenIssuer},
		{jwt.ErrTokenMalformed, ErrTokenMalformed},
	} {
		if errors.Is(err, c.lib) {
			return fmt.Errorf("%w: %w", c.ours, err)
		}
	}
	return fmt.Errorf("reject session token: %w", err)
}
