package authapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"warden/cmd/identity"
	"warden/cmd/internal/auth/session"
	"warden/cmd/security/password"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()

	sessCfg := session.DefaultConfig()
	sessCfg.AccessTokenSecret = strings.Repeat("a", 32)
	sessCfg.RefreshTokenSecret = strings.Repeat("r", 32)

	hasher := password.Config{
		Params: password.Argon2idParams{
			MemoryKiB:   8 * 1024,
			Iterations:  1,
			Parallelism: 1,
			SaltLength:  16,
			KeyLength:   32,
		},
		Policy: password.Policy{MinLength: 8, MaxLength: 256},
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := session.NewService(log, sessCfg, identity.NewMemoryStore(), hasher)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	h, err := NewHandler(log, Config{
		MaxBodyBytes:      1 << 20,
		CookiePath:        "/",
		AccessCookieName:  "access_token",
		RefreshCookieName: "refresh_token",
	}, svc, nil, nil)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	return h
}

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	newTestHandler(t).Register(mux)
	return mux
}

func postJSON(t *testing.T, mux *http.ServeMux, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	r := httptest.NewRequest(http.MethodPost, path, &buf)
	r.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		r.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, r)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func signupBody(email string) map[string]any {
	return map[string]any{
		"email":           email,
		"password":        "Passw0rd!",
		"confirmPassword": "Passw0rd!",
	}
}

func loginBody(email string) map[string]any {
	return map[string]any{"email": email, "password": "Passw0rd!"}
}

func TestSignupEndpoint(t *testing.T) {
	t.Parallel()

	mux := newTestMux(t)

	rec := postJSON(t, mux, "/api/v1/user/auth/signup", signupBody("a@x.com"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[userEnvelope](t, rec)
	if !resp.Success || resp.User.Email != "a@x.com" || resp.User.ID == "" {
		t.Fatalf("unexpected body: %+v", resp)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatalf("signup must not set cookies")
	}

	// Duplicate email.
	rec = postJSON(t, mux, "/api/v1/user/auth/signup", signupBody("a@x.com"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate status = %d", rec.Code)
	}
	errResp := decodeBody[errorResponse](t, rec)
	if errResp.Error.Code != "email_taken" {
		t.Fatalf("code = %q, want email_taken", errResp.Error.Code)
	}
}

func TestSignupEndpoint_Validation(t *testing.T) {
	t.Parallel()

	mux := newTestMux(t)

	rec := postJSON(t, mux, "/api/v1/user/auth/signup", map[string]any{
		"email":           "a@x.com",
		"password":        "Passw0rd!",
		"confirmPassword": "different",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	errResp := decodeBody[errorResponse](t, rec)
	if errResp.Error.Code != "validation_failed" || len(errResp.Error.Details) == 0 {
		t.Fatalf("unexpected error: %+v", errResp)
	}

	// Unknown fields are rejected.
	rec = postJSON(t, mux, "/api/v1/user/auth/signup", map[string]any{
		"email": "a@x.com", "password": "Passw0rd!", "confirmPassword": "Passw0rd!", "extra": 1,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown-field status = %d", rec.Code)
	}
}

func TestLoginEndpoint(t *testing.T) {
	t.Parallel()

	mux := newTestMux(t)
	postJSON(t, mux, "/api/v1/user/auth/signup", signupBody("a@x.com"))

	rec := postJSON(t, mux, "/api/v1/user/auth/login", loginBody("a@x.com"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[userEnvelope](t, rec)
	if !resp.Success || resp.User.Email != "a@x.com" {
		t.Fatalf("unexpected body: %+v", resp)
	}

	access := cookieByName(rec, "access_token")
	refresh := cookieByName(rec, "refresh_token")
	if access == nil || access.Value == "" {
		t.Fatalf("missing access_token cookie")
	}
	if refresh == nil || refresh.Value == "" || refresh.MaxAge <= 0 {
		t.Fatalf("missing or non-expiring refresh_token cookie: %+v", refresh)
	}

	// Wrong password and unknown email share status and body.
	recWrong := postJSON(t, mux, "/api/v1/user/auth/login",
		map[string]any{"email": "a@x.com", "password": "WrongPassw0rd"})
	recUnknown := postJSON(t, mux, "/api/v1/user/auth/login", loginBody("nobody@x.com"))
	if recWrong.Code != http.StatusUnauthorized || recUnknown.Code != http.StatusUnauthorized {
		t.Fatalf("statuses = %d, %d, want 401", recWrong.Code, recUnknown.Code)
	}
	if recWrong.Body.String() != recUnknown.Body.String() {
		t.Fatalf("failure bodies differ: %q vs %q", recWrong.Body.String(), recUnknown.Body.String())
	}
}

func TestRefreshEndpoint(t *testing.T) {
	t.Parallel()

	mux := newTestMux(t)
	postJSON(t, mux, "/api/v1/user/auth/signup", signupBody("a@x.com"))
	login := postJSON(t, mux, "/api/v1/user/auth/login", loginBody("a@x.com"))
	refreshCookie := cookieByName(login, "refresh_token")
	if refreshCookie == nil {
		t.Fatalf("login did not set refresh cookie")
	}

	rec := postJSON(t, mux, "/api/v1/user/auth/refresh", nil,
		&http.Cookie{Name: "refresh_token", Value: refreshCookie.Value})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[refreshEnvelope](t, rec)
	if !resp.Success || resp.AccessToken == "" {
		t.Fatalf("unexpected body: %+v", resp)
	}
	rotated := cookieByName(rec, "refresh_token")
	if rotated == nil || rotated.Value == "" || rotated.Value == refreshCookie.Value {
		t.Fatalf("refresh must rotate the cookie")
	}

	// The old token has been rotated out.
	rec = postJSON(t, mux, "/api/v1/user/auth/refresh", nil,
		&http.Cookie{Name: "refresh_token", Value: refreshCookie.Value})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("replay status = %d, want 403", rec.Code)
	}

	// No cookie at all.
	rec = postJSON(t, mux, "/api/v1/user/auth/refresh", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing-cookie status = %d, want 401", rec.Code)
	}

	// Garbage token.
	rec = postJSON(t, mux, "/api/v1/user/auth/refresh", nil,
		&http.Cookie{Name: "refresh_token", Value: "garbage"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("garbage status = %d, want 403", rec.Code)
	}
}

func TestLogoutEndpoint(t *testing.T) {
	t.Parallel()

	mux := newTestMux(t)
	postJSON(t, mux, "/api/v1/user/auth/signup", signupBody("a@x.com"))
	login := postJSON(t, mux, "/api/v1/user/auth/login", loginBody("a@x.com"))
	refreshCookie := cookieByName(login, "refresh_token")

	rec := postJSON(t, mux, "/api/v1/user/auth/logout", nil,
		&http.Cookie{Name: "refresh_token", Value: refreshCookie.Value})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[messageEnvelope](t, rec)
	if !resp.Success || resp.Message == "" {
		t.Fatalf("unexpected body: %+v", resp)
	}
	for _, name := range []string{"access_token", "refresh_token"} {
		c := cookieByName(rec, name)
		if c == nil || c.Value != "" || c.MaxAge >= 0 {
			t.Fatalf("cookie %q not cleared: %+v", name, c)
		}
	}

	// The revoked token no longer refreshes.
	rec = postJSON(t, mux, "/api/v1/user/auth/refresh", nil,
		&http.Cookie{Name: "refresh_token", Value: refreshCookie.Value})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("refresh after logout status = %d, want 403", rec.Code)
	}

	// Logout without a cookie.
	rec = postJSON(t, mux, "/api/v1/user/auth/logout", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing-cookie status = %d, want 401", rec.Code)
	}
}

func TestAuthEndpoints_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	mux := newTestMux(t)
	for _, path := range []string{
		"/api/v1/user/auth/signup",
		"/api/v1/user/auth/login",
		"/api/v1/user/auth/refresh",
		"/api/v1/user/auth/logout",
	} {
		r := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, r)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("GET %s status = %d, want 405", path, rec.Code)
		}
	}
}
