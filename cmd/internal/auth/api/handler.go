package authapi

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"warden/cmd/internal/auth/session"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Handler wires the HTTP auth endpoints to the session service. The pool is
// optional: without it the endpoints still work, but audit inserts and
// audit-backed throttling are disabled.
type Handler struct {
	log      *slog.Logger
	cfg      Config
	pool     *pgxpool.Pool
	sessions *session.Service
	metrics  *Metrics
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, cfg Config, sessions *session.Service, pool *pgxpool.Pool, metrics *Metrics) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if sessions == nil {
		return nil, errors.New("auth: nil session service")
	}
	return &Handler{
		log:      log,
		cfg:      cfg,
		pool:     pool,
		sessions: sessions,
		metrics:  metrics,
	}, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/api/v1/user/auth/signup", h.handleSignup)
	mux.HandleFunc("/api/v1/user/auth/login", h.handleLogin)
	mux.HandleFunc("/api/v1/user/auth/refresh", h.handleRefresh)
	mux.HandleFunc("/api/v1/user/auth/logout", h.handleLogout)
}

// ---- handlers ----

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req signupRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	email, username, details := validateSignup(req)
	if len(details) > 0 {
		h.metrics.signup("invalid")
		writeValidationError(w, details)
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := strings.TrimSpace(r.UserAgent())

	if blocked, retryAfter, err := h.checkAuthIPThrottle(ctx, ip, now); err != nil {
		h.log.Error("auth.signup.throttle.fail", "err", err)
		writeError(w, http.StatusServiceUnavailable, "server_busy", "please retry later")
		return
	} else if blocked {
		h.auditRateLimited(ctx, ip, ua, email, retryAfter)
		h.metrics.signup("rate_limited")
		writeRateLimited(w, retryAfter)
		return
	}

	user, err := h.sessions.SignUp(ctx, email, req.Password, username)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrEmailTaken):
			h.metrics.signup("email_taken")
			writeError(w, http.StatusBadRequest, "email_taken", "email already in use")
		default:
			h.log.Error("auth.signup.fail", "err", err)
			h.metrics.signup("error")
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	h.auditSignup(ctx, user.ID, ip, ua)
	h.metrics.signup("ok")
	writeJSON(w, http.StatusOK, userEnvelope{Success: true, User: toUserResponse(user)})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	email, details := validateLogin(req)
	if len(details) > 0 {
		h.metrics.login("invalid")
		writeValidationError(w, details)
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := strings.TrimSpace(r.UserAgent())

	if blocked, retryAfter, err := h.checkAuthIPThrottle(ctx, ip, now); err != nil {
		h.log.Error("auth.login.throttle_ip.fail", "err", err)
		writeError(w, http.StatusServiceUnavailable, "server_busy", "please retry later")
		return
	} else if blocked {
		h.auditRateLimited(ctx, ip, ua, email, retryAfter)
		h.metrics.login("rate_limited")
		writeRateLimited(w, retryAfter)
		return
	}
	if blocked, retryAfter, err := h.checkLoginEmailThrottle(ctx, email, now); err != nil {
		h.log.Error("auth.login.throttle_email.fail", "err", err)
		writeError(w, http.StatusServiceUnavailable, "server_busy", "please retry later")
		return
	} else if blocked {
		h.auditRateLimited(ctx, ip, ua, email, retryAfter)
		h.metrics.login("rate_limited")
		writeRateLimited(w, retryAfter)
		return
	}

	user, pair, err := h.sessions.Login(ctx, email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrInvalidCredentials):
			h.auditLoginFailed(ctx, nil, ip, ua, email, "invalid_credentials")
			h.metrics.login("invalid_credentials")
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
		default:
			h.log.Error("auth.login.fail", "err", err)
			h.metrics.login("error")
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	h.auditLoginSuccess(ctx, user.ID, ip, ua)
	h.metrics.login("ok")
	h.setSessionCookies(w, pair)
	writeJSON(w, http.StatusOK, userEnvelope{Success: true, User: toUserResponse(user)})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := strings.TrimSpace(r.UserAgent())

	pair, err := h.sessions.Refresh(ctx, h.refreshTokenFromCookie(r))
	if err != nil {
		switch {
		case errors.Is(err, session.ErrMissingToken):
			h.metrics.refresh("missing")
			writeError(w, http.StatusUnauthorized, "missing_token", "refresh token missing")
		case errors.Is(err, session.ErrInvalidToken):
			h.auditRefreshRejected(ctx, ip, ua, "invalid_token")
			h.metrics.refresh("invalid")
			writeError(w, http.StatusForbidden, "invalid_token", "invalid refresh token")
		case errors.Is(err, session.ErrUserNotFound):
			h.metrics.refresh("user_gone")
			writeError(w, http.StatusNotFound, "user_not_found", "user not found")
		default:
			h.log.Error("auth.refresh.fail", "err", err)
			h.metrics.refresh("error")
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	claims, err := h.sessions.VerifyAccess(pair.AccessToken)
	if err == nil {
		h.auditRefreshSuccess(ctx, claims.UserID, ip, ua)
	}
	h.metrics.refresh("ok")
	h.setRefreshCookie(w, pair)
	writeJSON(w, http.StatusOK, refreshEnvelope{Success: true, AccessToken: pair.AccessToken})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := strings.TrimSpace(r.UserAgent())

	userID, err := h.sessions.Logout(ctx, h.refreshTokenFromCookie(r))
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNotLoggedIn):
			h.metrics.logout("not_logged_in")
			writeError(w, http.StatusUnauthorized, "not_logged_in", "user not logged in")
		case errors.Is(err, session.ErrInvalidToken):
			h.metrics.logout("invalid")
			writeError(w, http.StatusForbidden, "invalid_token", "invalid refresh token")
		default:
			h.log.Error("auth.logout.fail", "err", err)
			h.metrics.logout("error")
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	h.auditLogout(ctx, userID, ip, ua)
	h.metrics.logout("ok")
	h.clearSessionCookies(w)
	writeJSON(w, http.StatusOK, messageEnvelope{Success: true, Message: "logged out successfully"})
}

// ---- helpers ----

func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip
		}
	}
	return nil
}

func parseForwardedIP(raw string) net.IP {
	if raw == "" {
		return nil
	}
	for _, p := range strings.Split(raw, ",") {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			return ip
		}
	}
	return nil
}
