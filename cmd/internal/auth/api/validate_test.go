package authapi

import "testing"

func TestValidateSignup(t *testing.T) {
	t.Parallel()

	username := "navid"
	shortName := "ab"

	tests := []struct {
		name      string
		req       signupRequest
		wantEmail string
		wantOK    bool
	}{
		{
			name: "valid",
			req: signupRequest{
				Email:           "  User@Example.COM ",
				Username:        &username,
				Password:        "Passw0rd!",
				ConfirmPassword: "Passw0rd!",
			},
			wantEmail: "user@example.com",
			wantOK:    true,
		},
		{
			name: "valid without username",
			req: signupRequest{
				Email:           "a@x.com",
				Password:        "Passw0rd!",
				ConfirmPassword: "Passw0rd!",
			},
			wantEmail: "a@x.com",
			wantOK:    true,
		},
		{
			name: "bad email",
			req:  signupRequest{Email: "not-an-email", Password: "Passw0rd!", ConfirmPassword: "Passw0rd!"},
		},
		{
			name: "empty email",
			req:  signupRequest{Email: "   ", Password: "Passw0rd!", ConfirmPassword: "Passw0rd!"},
		},
		{
			name: "short password",
			req:  signupRequest{Email: "a@x.com", Password: "Pw1", ConfirmPassword: "Pw1"},
		},
		{
			name: "no digit",
			req:  signupRequest{Email: "a@x.com", Password: "Password!", ConfirmPassword: "Password!"},
		},
		{
			name: "no uppercase",
			req:  signupRequest{Email: "a@x.com", Password: "passw0rd!", ConfirmPassword: "passw0rd!"},
		},
		{
			name: "confirm mismatch",
			req:  signupRequest{Email: "a@x.com", Password: "Passw0rd!", ConfirmPassword: "Passw0rd?"},
		},
		{
			name: "short username",
			req: signupRequest{
				Email:           "a@x.com",
				Username:        &shortName,
				Password:        "Passw0rd!",
				ConfirmPassword: "Passw0rd!",
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			email, _, details := validateSignup(tt.req)
			if tt.wantOK {
				if len(details) > 0 {
					t.Fatalf("unexpected validation errors: %+v", details)
				}
				if email != tt.wantEmail {
					t.Fatalf("email = %q, want %q", email, tt.wantEmail)
				}
				return
			}
			if len(details) == 0 {
				t.Fatalf("expected validation errors")
			}
		})
	}
}

func TestValidateLogin(t *testing.T) {
	t.Parallel()

	email, details := validateLogin(loginRequest{Email: " A@X.com ", Password: "Passw0rd!"})
	if len(details) > 0 {
		t.Fatalf("unexpected validation errors: %+v", details)
	}
	if email != "a@x.com" {
		t.Fatalf("email = %q, want normalized form", email)
	}

	if _, details := validateLogin(loginRequest{Email: "a@x.com", Password: "short"}); len(details) == 0 {
		t.Fatalf("expected validation errors for weak password")
	}
	if _, details := validateLogin(loginRequest{Email: "nope", Password: "Passw0rd!"}); len(details) == 0 {
		t.Fatalf("expected validation errors for bad email")
	}
}
