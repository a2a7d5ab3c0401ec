package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrScoringUnavailable marks an oracle that is absent, failed, or
	// timed out. It is always recovered locally by substituting the
	// neutral default and never surfaces as a request failure.
	ErrScoringUnavailable = errors.New("scoring oracle unavailable")

	// ErrProfileNotFound means no profile exists for the account.
	// Profile lookups surface it as 404; the scoring path treats it as
	// "use cold-start defaults".
	ErrProfileNotFound = errors.New("customer profile not found")
)

// ValidationError reports a malformed or missing request field.
// It is the only error class that terminates an analyze request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a field-level validation error.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// AsValidationError unwraps err into a ValidationError, if it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
