package session

import (
	"os"
	"strings"
	"time"

	"warden/cmd/security/token"
)

// Config defines runtime configuration for the session subsystem.
//
// Signing secrets are injected here and passed to the token issuer at
// construction; nothing in this package reads them ambiently.
type Config struct {
	// Issuer is the value set in the "iss" claim of issued tokens.
	Issuer string

	// AccessTokenSecret and RefreshTokenSecret sign the two token kinds.
	// They must be distinct; a leaked access secret must not mint refresh tokens.
	AccessTokenSecret  string
	RefreshTokenSecret string

	// AccessTokenTTL is short; access tokens are stateless and unrevocable,
	// so their lifetime bounds the blast radius of a stolen one.
	AccessTokenTTL time.Duration

	// RefreshTokenTTL matches the refresh cookie Max-Age (7 days).
	RefreshTokenTTL time.Duration

	// ClockSkew is the allowed time skew during token validation.
	ClockSkew time.Duration
}

// DefaultConfig returns defaults suitable for development.
// Secrets are required and have no default.
func DefaultConfig() Config {
	return Config{
		Issuer:          "warden",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		ClockSkew:       30 * time.Second,
	}
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Required:
//   - WARDEN_ACCESS_TOKEN_SECRET
//   - WARDEN_REFRESH_TOKEN_SECRET (distinct from the access secret)
//
// Optional (durations must be valid Go duration strings):
//   - WARDEN_AUTH_ISSUER
//   - WARDEN_AUTH_ACCESS_TTL
//   - WARDEN_AUTH_REFRESH_TTL
//   - WARDEN_AUTH_CLOCK_SKEW
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("WARDEN_AUTH_ISSUER")); v != "" {
		cfg.Issuer = v
	}

	if v := strings.TrimSpace(os.Getenv("WARDEN_AUTH_ACCESS_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.AccessTokenTTL = d
	}

	if v := strings.TrimSpace(os.Getenv("WARDEN_AUTH_REFRESH_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.RefreshTokenTTL = d
	}

	if v := strings.TrimSpace(os.Getenv("WARDEN_AUTH_CLOCK_SKEW")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, ErrConfig
		}
		cfg.ClockSkew = d
	}

	cfg.AccessTokenSecret = os.Getenv("WARDEN_ACCESS_TOKEN_SECRET")
	cfg.RefreshTokenSecret = os.Getenv("WARDEN_REFRESH_TOKEN_SECRET")
	if cfg.AccessTokenSecret == "" || cfg.RefreshTokenSecret == "" {
		return Config{}, ErrConfig
	}
	if cfg.AccessTokenSecret == cfg.RefreshTokenSecret {
		return Config{}, ErrConfig
	}

	return cfg, nil
}

// TokenConfig maps the session config onto the token issuer's config.
func (c Config) TokenConfig() token.Config {
	return token.Config{
		Issuer:        c.Issuer,
		AccessSecret:  []byte(c.AccessTokenSecret),
		RefreshSecret: []byte(c.RefreshTokenSecret),
		AccessTTL:     c.AccessTokenTTL,
		RefreshTTL:    c.RefreshTokenTTL,
		ClockSkew:     c.ClockSkew,
	}
}
