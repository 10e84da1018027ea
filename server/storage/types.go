package storage

import (
	"errors"
	"fmt"
)

// Error types
type ErrorType string

const (
	ErrNotFound      ErrorType = "not_found"
	ErrAlreadyExists ErrorType = "already_exists"
	ErrInvalidInput  ErrorType = "invalid_input"
	ErrUnavailable   ErrorType = "unavailable"
)

// Error represents a storage-related error
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// IsType reports whether err is, or wraps, a storage *Error of type t.
func IsType(err error, t ErrorType) bool {
	var se *Error
	return errors.As(err, &se) && se.Type == t
}

// IsNotFound reports whether err is a not-found storage error.
func IsNotFound(err error) bool {
	return IsType(err, ErrNotFound)
}
