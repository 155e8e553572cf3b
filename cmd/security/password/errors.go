package password

import "errors"

// Public, stable errors for callers.
var (
	ErrInvalidHash      = errors.New("invalid argon2id hash")
	ErrPasswordTooShort = errors.New("password too short")
	ErrPasswordTooLong  = errors.New("password too long")
)
