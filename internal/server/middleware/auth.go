// Package middleware authenticates recruiters on the API's write routes.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrMissingToken is returned when no Authorization header was sent.
	ErrMissingToken = errors.New("missing bearer token")
	// ErrMalformedHeader is returned for anything other than "Bearer <token>".
	ErrMalformedHeader = errors.New("malformed authorization header")
)

// TokenValidator resolves a bearer token to the recruiter it was issued to.
type TokenValidator interface {
	RecruiterID(token string) (uuid.UUID, error)
}

// TokenValidatorFunc adapts a function to TokenValidator.
type TokenValidatorFunc func(token string) (uuid.UUID, error)

// RecruiterID implements TokenValidator.
func (f TokenValidatorFunc) RecruiterID(token string) (uuid.UUID, error) {
	return f(token)
}

type recruiterKey struct{}

// RequireRecruiter rejects requests without a valid bearer token and stores the
// recruiter's ID in the request context. logger may be nil.
func RequireRecruiter(tokens TokenValidator, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				reject(w, err.Error())
				return
			}

			id, err := tokens.RecruiterID(token)
			if err == nil && id == uuid.Nil {
				err = errors.New("token carries no recruiter")
			}
			if err != nil {
				logger.Debug("bearer token rejected", zap.String("path", r.URL.Path), zap.Error(err))
				reject(w, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithRecruiter(r.Context(), id)))
		})
	}
}

// BearerToken extracts the token from an Authorization header value.
// The scheme is matched case-insensitively.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrMalformedHeader
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", ErrMalformedHeader
	}
	return token, nil
}

// WithRecruiter returns a copy of ctx carrying the recruiter ID.
func WithRecruiter(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, recruiterKey{}, id)
}

// RecruiterID returns the authenticated recruiter stored by RequireRecruiter.
func RecruiterID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(recruiterKey{}).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// reject writes a JSON 401 in the same shape as the API's other errors.
func reject(w http.ResponseWriter, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="recruit-scorer"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":  "Unauthorized",
		"reason": reason,
	})
}
