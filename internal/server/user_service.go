package server

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/recruit-scorer/internal/config"
	"github.com/jonathan/recruit-scorer/internal/db"
	"github.com/jonathan/recruit-scorer/internal/types"
)

// UserStore is the part of db.Store used for accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u *db.User) error
	GetUserByEmail(ctx context.Context, email string) (*db.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*db.User, error)
}

// UserService registers and authenticates recruiter accounts.
type UserService struct {
	store     UserStore
	passwords *config.PasswordConfig
}

func NewUserService(store UserStore, passwords *config.PasswordConfig) *UserService {
	return &UserService{store: store, passwords: passwords}
}

func canonicalEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// publicUser drops the password hash.
func publicUser(u *db.User) *types.User {
	if u == nil {
		return nil
	}
	return &types.User{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt}
}

// Register stores a new account. Emails are unique case-insensitively.
func (s *UserService) Register(ctx context.Context, req *types.RegisterRequest) (*types.User, error) {
	email := canonicalEmail(req.Email)

	switch existing, err := s.store.GetUserByEmail(ctx, email); {
	case err != nil:
		return nil, fmt.Errorf("look up %s: %w", email, err)
	case existing != nil:
		return nil, &ErrEmailAlreadyExists{Email: email}
	}

	hash, err := s.passwords.HashPassword(req.Password)
	switch {
	case errors.Is(err, config.ErrPasswordTooLong):
		return nil, &ErrValidation{Field: "password", Message: err.Error()}
	case err != nil:
		return nil, err
	}

	u := &db.User{Name: strings.TrimSpace(req.Name), Email: email, PasswordHash: hash}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, db.ErrDuplicateEmail) {
			return nil, &ErrEmailAlreadyExists{Email: email}
		}
		return nil, fmt.Errorf("create user %s: %w", email, err)
	}
	return publicUser(u), nil
}

// Login checks credentials. Unknown emails and bad passwords return the same error.
func (s *UserService) Login(ctx context.Context, req *types.LoginRequest) (*types.User, error) {
	email := canonicalEmail(req.Email)
	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("look up %s: %w", email, err)
	}
	if u == nil || u.PasswordHash == "" || !s.passwords.VerifyPassword(req.Password, u.PasswordHash) {
		return nil, &ErrInvalidCredentials{}
	}
	return publicUser(u), nil
}

func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*types.User, error) {
	u, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", id, err)
	}
	if u == nil {
		return nil, &ErrNotFound{Resource: "user", ID: id.String()}
	}
	return publicUser(u), nil
}
