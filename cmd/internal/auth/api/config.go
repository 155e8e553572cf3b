package authapi

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config controls auth API behavior and security defaults.
type Config struct {
	TrustProxy   bool
	MaxBodyBytes int64

	// Cookie transport for the issued tokens. The access cookie is
	// session-lifetime; the refresh cookie expires with the refresh token.
	CookiePath        string
	CookieSecure      bool
	AccessCookieName  string
	RefreshCookieName string

	// Per-IP throttle across all auth endpoints.
	AuthIPMax    int
	AuthIPWindow time.Duration

	// Per-identifier (normalized email) throttle for failed logins.
	LoginEmailMax    int
	LoginEmailWindow time.Duration
}

// LoadConfigFromEnv loads auth config from environment variables with safe
// defaults. The Secure cookie flag follows the process environment mode.
func LoadConfigFromEnv(production bool) Config {
	cfg := Config{
		TrustProxy:        envBool("WARDEN_AUTH_TRUST_PROXY", false),
		MaxBodyBytes:      envInt64("WARDEN_AUTH_MAX_BODY_BYTES", 1<<20), // 1 MiB
		CookiePath:        "/",
		CookieSecure:      production,
		AccessCookieName:  "access_token",
		RefreshCookieName: "refresh_token",
		AuthIPMax:         envInt("WARDEN_AUTH_IP_MAX", 20),
		AuthIPWindow:      envDuration("WARDEN_AUTH_IP_WINDOW", 5*time.Minute),
		LoginEmailMax:     envInt("WARDEN_AUTH_LOGIN_EMAIL_MAX", 5),
		LoginEmailWindow:  envDuration("WARDEN_AUTH_LOGIN_EMAIL_WINDOW", 15*time.Minute),
	}

	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.AuthIPMax <= 0 {
		cfg.AuthIPMax = 20
	}
	if cfg.LoginEmailMax <= 0 {
		cfg.LoginEmailMax = 5
	}

	return cfg
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
