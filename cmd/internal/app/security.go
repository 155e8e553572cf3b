package app

import (
	"errors"

	"warden/cmd/internal/auth/session"
)

// ValidateSecurityConfig enforces the startup security policy.
//
// Fail-fast is intentional: a production process running with short or
// shared signing secrets must not come up at all.
func ValidateSecurityConfig(cfg Config, sessCfg session.Config) error {
	if !cfg.Production() {
		return nil
	}

	if len(sessCfg.AccessTokenSecret) < 32 || len(sessCfg.RefreshTokenSecret) < 32 {
		return errors.New("security policy: production requires access and refresh secrets of at least 32 bytes")
	}
	if sessCfg.AccessTokenSecret == sessCfg.RefreshTokenSecret {
		return errors.New("security policy: production requires distinct access and refresh secrets")
	}
	return nil
}
