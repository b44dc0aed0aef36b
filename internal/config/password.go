package config

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
)

const (
	// MinPasswordLength is the shortest password accepted at registration.
	MinPasswordLength = 8

	DefaultBcryptCost = 12
	minBcryptCost     = 10
	maxBcryptCost     = 14

	// bcrypt silently ignores input past this many bytes.
	bcryptInputLimit = 72
)

// ErrPasswordTooLong is returned when password plus pepper do not fit bcrypt's input.
var ErrPasswordTooLong = errors.New("password too long")

// PasswordConfig hashes and checks recruiter passwords.
type PasswordConfig struct {
	BcryptCost int
	Pepper     string // appended to every password before hashing
}

// NewPasswordConfig reads BCRYPT_COST and PASSWORD_PEPPER from the environment.
func NewPasswordConfig() (*PasswordConfig, error) {
	cost, err := envInt("BCRYPT_COST", DefaultBcryptCost)
	if err != nil {
		return nil, err
	}
	if cost < minBcryptCost || cost > maxBcryptCost {
		return nil, fmt.Errorf("BCRYPT_COST %d outside %d-%d", cost, minBcryptCost, maxBcryptCost)
	}
	return &PasswordConfig{BcryptCost: cost, Pepper: os.Getenv("PASSWORD_PEPPER")}, nil
}

func (c *PasswordConfig) input(pw string) []byte {
	return []byte(pw + c.Pepper)
}

// HashPassword returns the bcrypt hash of the peppered password.
func (c *PasswordConfig) HashPassword(pw string) (string, error) {
	in := c.input(pw)
	if len(in) > bcryptInputLimit {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword(in, c.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether pw matches hash.
func (c *PasswordConfig) VerifyPassword(pw, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), c.input(pw)) == nil
}
