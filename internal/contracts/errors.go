package contracts

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks a missing entity
	ErrNotFound = errors.New("not found")

	// ErrTimeout marks an operation that exceeded its wall-clock budget
	ErrTimeout = errors.New("operation timed out")
)

// ValidationError rejects malformed input before any data access
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for field
func NewValidationError(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err wraps a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
