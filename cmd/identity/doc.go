// Package identity implements Warden's credential store boundary.
//
// It contains the canonical User record, ID primitives (ULID), email
// normalization, and the Store interface used by the session layer,
// with Postgres and in-memory implementations.
//
// This package is intentionally dependency-light and security-first.
package identity
