package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced entity is missing from the data
// it is resolved against.
var ErrNotFound = errors.New("referenced entity not found")

// ErrNoProfile is returned by actions that need a signed-in user.
var ErrNoProfile = errors.New("no user profile loaded")

// FieldError ties a failure to one form field so the caller can show it next
// to that field.
type FieldError struct {
	Field   string
	Message string
	Err     error
}

// NewFieldError creates a FieldError wrapping the underlying cause.
func NewFieldError(field, message string, err error) *FieldError {
	return &FieldError{Field: field, Message: message, Err: err}
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}
