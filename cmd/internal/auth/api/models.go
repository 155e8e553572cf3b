package authapi

import (
	"time"

	"warden/cmd/identity"
)

// Request/response bodies use camelCase keys; the cookie names stay
// snake_case (`access_token`, `refresh_token`).

type signupRequest struct {
	Email           string  `json:"email"`
	Username        *string `json:"username"`
	Password        string  `json:"password"`
	ConfirmPassword string  `json:"confirmPassword"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  *string   `json:"username,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type userEnvelope struct {
	Success bool         `json:"success"`
	User    userResponse `json:"user"`
}

type refreshEnvelope struct {
	Success     bool   `json:"success"`
	AccessToken string `json:"accessToken"`
}

type messageEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func toUserResponse(u identity.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		CreatedAt: u.CreatedAt,
	}
}
