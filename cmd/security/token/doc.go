// Package token issues and verifies Warden's signed session tokens.
//
// Access tokens are short-lived JWTs (HS256) carrying the user id and email.
// Refresh tokens are longer-lived JWTs carrying only the user id; their
// validity is additionally gated on equality with the value stored on the
// user record by the session layer.
//
// The two token kinds are signed with distinct secrets so a leaked access
// secret cannot mint refresh tokens. The package is a pure function of
// config + claims + clock; it performs no persistence and reads no ambient
// state.
package token
