package authapi

import (
	"net/mail"
	"strings"
	"unicode"

	"warden/cmd/identity"
)

const minUsernameLen = 3

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// validateSignup checks the signup body and returns the normalized email.
// The session core assumes these checks already happened.
func validateSignup(req signupRequest) (email string, username *string, details []fieldError) {
	email, emailErrs := validateEmail(req.Email)
	details = append(details, emailErrs...)

	details = append(details, validatePassword(req.Password)...)

	if req.ConfirmPassword != req.Password {
		details = append(details, fieldError{Field: "confirmPassword", Message: "passwords do not match"})
	}

	username = trimPtr(req.Username)
	if username != nil && len(*username) < minUsernameLen {
		details = append(details, fieldError{
			Field:   "username",
			Message: "username must be at least 3 characters long",
		})
	}

	if len(details) > 0 {
		return "", nil, details
	}
	return email, username, nil
}

func validateLogin(req loginRequest) (email string, details []fieldError) {
	email, emailErrs := validateEmail(req.Email)
	details = append(details, emailErrs...)
	details = append(details, validatePassword(req.Password)...)

	if len(details) > 0 {
		return "", details
	}
	return email, nil
}

func validateEmail(raw string) (string, []fieldError) {
	email := identity.NormalizeEmail(raw)
	if email == "" {
		return "", []fieldError{{Field: "email", Message: "email is required"}}
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", []fieldError{{Field: "email", Message: "invalid email format"}}
	}
	return email, nil
}

func validatePassword(pw string) []fieldError {
	var details []fieldError
	if len(pw) < 8 {
		details = append(details, fieldError{
			Field:   "password",
			Message: "password must be at least 8 characters long",
		})
	}
	hasDigit := strings.ContainsFunc(pw, unicode.IsDigit)
	hasUpper := strings.ContainsFunc(pw, unicode.IsUpper)
	if !hasDigit {
		details = append(details, fieldError{
			Field:   "password",
			Message: "password must contain at least one number",
		})
	}
	if !hasUpper {
		details = append(details, fieldError{
			Field:   "password",
			Message: "password must contain at least one uppercase letter",
		})
	}
	return details
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
