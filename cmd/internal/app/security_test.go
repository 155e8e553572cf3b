package app

import (
	"strings"
	"testing"

	"warden/cmd/internal/auth/session"
)

func TestValidateSecurityConfig(t *testing.T) {
	t.Parallel()

	good := session.Config{
		AccessTokenSecret:  strings.Repeat("a", 32),
		RefreshTokenSecret: strings.Repeat("r", 32),
	}

	if err := ValidateSecurityConfig(Config{Env: "production"}, good); err != nil {
		t.Fatalf("distinct long secrets must pass: %v", err)
	}

	short := good
	short.AccessTokenSecret = "short"
	if err := ValidateSecurityConfig(Config{Env: "production"}, short); err == nil {
		t.Fatalf("short secret must fail in production")
	}

	same := good
	same.RefreshTokenSecret = same.AccessTokenSecret
	if err := ValidateSecurityConfig(Config{Env: "production"}, same); err == nil {
		t.Fatalf("equal secrets must fail in production")
	}

	// Development mode does not enforce the policy.
	if err := ValidateSecurityConfig(Config{Env: "development"}, same); err != nil {
		t.Fatalf("development mode must not enforce: %v", err)
	}
}
