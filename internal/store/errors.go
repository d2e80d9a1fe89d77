package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an operation names a task or sub-item that
// is not in memory
var ErrNotFound = errors.New("task not found")

// ErrNoSession is returned when a store is created without a principal
var ErrNoSession = errors.New("store requires a signed-in user")

// ValidationError rejects an operation before any state changes
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// IsValidation reports whether err is a *ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
