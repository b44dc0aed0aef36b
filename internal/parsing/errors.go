package parsing

import (
	"errors"
	"fmt"
)

// ErrEmptyPosting is returned when there is no posting text to parse.
var ErrEmptyPosting = errors.New("posting text is empty")

// GatewayError wraps a failed model call.
type GatewayError struct {
	Attempt int
	Err     error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("job profile request failed on attempt %d: %v", e.Attempt, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// ParseError reports a response without a decodable job profile object.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse JSON response: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SchemaError is returned when no attempt produced a profile matching the schema.
type SchemaError struct {
	Attempts int
	Err      error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("response did not match schema after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// DraftError reports a decoded profile that cannot become a job draft.
type DraftError struct {
	Field   string
	Message string
}

func (e *DraftError) Error() string {
	return fmt.Sprintf("job profile %s %s", e.Field, e.Message)
}
