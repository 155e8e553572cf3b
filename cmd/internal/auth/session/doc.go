// Package session implements Warden's credential and token lifecycle.
//
// It composes the password hasher, the token issuer, and the credential
// store into the four session operations: sign-up, login, refresh rotation,
// and logout revocation. The invariant it owns: at most one refresh token
// is valid per user at a time, and every successful login or refresh
// replaces it.
//
// Access tokens are short-lived signed JWTs and are deliberately stateless;
// refresh tokens are additionally checked against the value stored on the
// user record, which defeats replay of a rotated-out token even while its
// signature is still valid.
//
// Transport (HTTP, cookies) integration is intentionally out of scope here.
package session
