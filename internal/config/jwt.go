package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// DefaultJWTIssuer is the iss claim written into access tokens.
const DefaultJWTIssuer = "recruit-scorer"

const defaultTokenHours = 24

// JWTConfig controls access token signing.
type JWTConfig struct {
	Secret          string
	ExpirationHours int
	Issuer          string
}

// NewJWTConfig reads JWT_SECRET, JWT_EXPIRATION_HOURS and JWT_ISSUER. The secret is required.
func NewJWTConfig() (*JWTConfig, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}
	hours, err := envInt("JWT_EXPIRATION_HOURS", defaultTokenHours)
	if err != nil {
		return nil, err
	}
	if hours < 1 {
		return nil, fmt.Errorf("JWT_EXPIRATION_HOURS must be positive, got %d", hours)
	}

	issuer := os.Getenv("JWT_ISSUER")
	if issuer == "" {
		issuer = DefaultJWTIssuer
	}
	return &JWTConfig{Secret: secret, ExpirationHours: hours, Issuer: issuer}, nil
}

func (c *JWTConfig) Expiration() time.Duration {
	return time.Duration(c.ExpirationHours) * time.Hour
}

// envInt returns def when name is unset or empty.
func envInt(name string, def int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s %q is not an integer", name, raw)
	}
	return v, nil
}
