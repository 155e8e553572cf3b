package token

import "errors"

// Public, stable errors for callers.
//
// Malformed/forged and expired both mean "not authenticated" at the API
// boundary, but the distinction is preserved for observability and for
// callers that need to branch.
var (
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenExpired   = errors.New("token expired")
	ErrConfig         = errors.New("invalid token config")
)
