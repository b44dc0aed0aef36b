// Package server provides the HTTP REST API for job and candidate scoring.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/recruit-scorer/internal/db"
	"github.com/jonathan/recruit-scorer/internal/fetch"
	"github.com/jonathan/recruit-scorer/internal/ingestion"
	"github.com/jonathan/recruit-scorer/internal/llm"
	"github.com/jonathan/recruit-scorer/internal/parsing"
	"github.com/jonathan/recruit-scorer/internal/pipeline"
	"github.com/jonathan/recruit-scorer/internal/schemas"
	"github.com/jonathan/recruit-scorer/internal/types"
)

// ErrEmailAlreadyExists indicates email is already registered
type ErrEmailAlreadyExists struct {
	Email string
}

func (e *ErrEmailAlreadyExists) Error() string {
	return fmt.Sprintf("email already registered: %s", e.Email)
}

// ErrInvalidCredentials indicates invalid login credentials
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid email or password"
}

// ErrNotFound indicates a referenced resource does not exist
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrProviderUnavailable indicates the model provider is not configured or not accepting calls
type ErrProviderUnavailable struct {
	Cause error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("model provider unavailable: %v", e.Cause)
	}
	return "model provider unavailable"
}

func (e *ErrProviderUnavailable) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusInternalServerError
	}

	var (
		emailExists  *ErrEmailAlreadyExists
		invalidCreds *ErrInvalidCredentials
		notFound     *ErrNotFound
		validation   *ErrValidation
		unavailable  *ErrProviderUnavailable
		fieldErrs    validator.ValidationErrors
		schemaErr    *schemas.ValidationError
		fetchErr     *fetch.Error
		gatewayErr   *parsing.GatewayError
		parseErr     *parsing.ParseError
		parseSchema  *parsing.SchemaError
		draftErr     *parsing.DraftError
	)

	switch {
	case errors.As(err, &emailExists), errors.Is(err, db.ErrDuplicateEmail):
		return http.StatusConflict
	case errors.As(err, &invalidCreds):
		return http.StatusUnauthorized
	case errors.As(err, &notFound),
		errors.Is(err, db.ErrNotFound),
		errors.Is(err, pipeline.ErrJobNotFound),
		errors.Is(err, pipeline.ErrCandidateNotFound):
		return http.StatusNotFound
	case errors.As(err, &unavailable), errors.Is(err, llm.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	// Model output that fails the job profile schema is an upstream failure,
	// so these are matched before the request validation errors they wrap.
	case errors.As(err, &fetchErr),
		errors.Is(err, fetch.ErrEmptyPosting),
		errors.Is(err, parsing.ErrEmptyPosting),
		errors.As(err, &gatewayErr),
		errors.As(err, &parseErr),
		errors.As(err, &parseSchema),
		errors.As(err, &draftErr):
		return http.StatusBadGateway
	case errors.As(err, &validation),
		errors.As(err, &fieldErrs),
		errors.As(err, &schemaErr),
		errors.Is(err, types.ErrExperienceRange),
		errors.Is(err, types.ErrSalaryRange),
		errors.Is(err, ingestion.ErrEmptyDocument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
