package authapi

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Throttling counts recent failures out of the audit log instead of keeping
// in-process state, so it survives restarts and covers every replica sharing
// the database. Without a pool (in-memory mode) nothing is throttled.

func (h *Handler) checkAuthIPThrottle(ctx context.Context, ip net.IP, now time.Time) (bool, time.Duration, error) {
	if ip == nil || h.pool == nil || h.cfg.AuthIPMax <= 0 {
		return false, 0, nil
	}
	cut := now.Add(-h.cfg.AuthIPWindow)
	count, err := countLoginFailuresByIP(ctx, h.pool, ip, cut)
	if err != nil {
		return false, 0, err
	}
	if count >= h.cfg.AuthIPMax {
		return true, h.cfg.AuthIPWindow, nil
	}
	return false, 0, nil
}

func (h *Handler) checkLoginEmailThrottle(ctx context.Context, email string, now time.Time) (bool, time.Duration, error) {
	if strings.TrimSpace(email) == "" || h.pool == nil || h.cfg.LoginEmailMax <= 0 {
		return false, 0, nil
	}
	cut := now.Add(-h.cfg.LoginEmailWindow)
	count, err := countLoginFailuresByEmail(ctx, h.pool, email, cut)
	if err != nil {
		return false, 0, err
	}
	if count >= h.cfg.LoginEmailMax {
		return true, h.cfg.LoginEmailWindow, nil
	}
	return false, 0, nil
}

func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.FormatInt(int64(retryAfter.Seconds()), 10))
	}
	writeError(w, http.StatusTooManyRequests, "rate_limited", "too many attempts")
}

// ---- audit queries ----

func countLoginFailuresByIP(ctx context.Context, pool *pgxpool.Pool, ip net.IP, since time.Time) (int, error) {
	var n int
	err := pool.QueryRow(ctx, `
		SELECT count(*)
		FROM warden.audit_log
		WHERE action = 'auth.login.failed'
		  AND ip = $1
		  AND created_at >= $2
	`, ip.String(), since).Scan(&n)
	return n, err
}

func countLoginFailuresByEmail(ctx context.Context, pool *pgxpool.Pool, email string, since time.Time) (int, error) {
	var n int
	err := pool.QueryRow(ctx, `
		SELECT count(*)
		FROM warden.audit_log
		WHERE action = 'auth.login.failed'
		  AND meta->>'identifier' = $1
		  AND created_at >= $2
	`, email, since).Scan(&n)
	return n, err
}
