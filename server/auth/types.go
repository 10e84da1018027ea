// Package auth authenticates API callers and decides which realms they may
// see. The schedule core knows nothing about it; the HTTP layer consults an
// Authenticator when one is configured.
package auth

import (
	"context"
	"errors"
	"fmt"
)

// Principal represents an authenticated user or entity
type Principal struct {
	ID string
}

// Credentials represents authentication credentials
type Credentials struct {
	Username string
	Password string
}

// ErrorType represents the type of authentication error
type ErrorType string

const (
	ErrInvalidCredentials ErrorType = "invalid_credentials"
	ErrUnauthorized       ErrorType = "unauthorized"
	ErrForbidden          ErrorType = "forbidden"
)

// Error represents an authentication-related error
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

// IsForbidden reports whether err denies access to an authenticated caller.
func IsForbidden(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Type == ErrForbidden
}

// Authenticator defines the interface for authentication providers
type Authenticator interface {
	// Authenticate validates credentials and returns a Principal if successful
	Authenticate(ctx context.Context, creds Credentials) (*Principal, error)

	// ValidateAccess checks if a principal may read and write a realm's schedule
	ValidateAccess(ctx context.Context, principal *Principal, realmID string) error
}
