package identity

import "strings"

// NormalizeEmail performs case-insensitive canonicalization.
// The normalized form is the login key and carries the uniqueness constraint.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
