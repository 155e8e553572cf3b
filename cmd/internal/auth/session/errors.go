package session

import (
	"errors"
	"fmt"
)

var (
	// ErrEmailTaken is returned by SignUp when a user already exists for the email.
	ErrEmailTaken = errors.New("email already in use")

	// ErrInvalidCredentials is returned by Login for both an unknown email and
	// a wrong password. The two cases must stay indistinguishable to callers
	// to prevent user enumeration.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrMissingToken is returned by Refresh when no refresh token was presented.
	ErrMissingToken = errors.New("refresh token missing")

	// ErrNotLoggedIn is returned by Logout when no refresh token was presented.
	ErrNotLoggedIn = errors.New("not logged in")

	// ErrInvalidToken is returned when a refresh token fails verification or
	// no longer matches the value stored on the user record.
	ErrInvalidToken = errors.New("invalid token")

	// ErrUserNotFound is returned when a token decodes to a user that is gone.
	ErrUserNotFound = errors.New("user not found")

	// ErrInternal wraps unexpected store or crypto failures.
	ErrInternal = errors.New("internal failure")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid session config")
)

// InternalError carries a diagnostic reason for logging. Callers outside the
// core surface only the kind and a generic message; the reason must never
// contain a plaintext password.
type InternalError struct {
	Op     string
	Reason error
}

func (e InternalError) Error() string {
	if e.Reason == nil {
		return fmt.Sprintf("%s: %v", e.Op, ErrInternal)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrInternal, e.Reason)
}

func (e InternalError) Unwrap() error { return ErrInternal }

func internalErr(op string, reason error) error {
	return InternalError{Op: op, Reason: reason}
}
