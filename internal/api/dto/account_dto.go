package dto

import (
	"regexp"
	"strings"
	"time"
)

var (
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate applies input-shape checks and returns per-field messages. These
// are presentation-layer rules; the security core accepts any non-empty
// input.
func (r *RegisterRequest) Validate() map[string]any {
	details := map[string]any{}
	r.Username = strings.TrimSpace(r.Username)

	if !emailPattern.MatchString(r.Email) {
		details["email"] = "must be a valid email address"
	}
	if len(r.Username) < 3 || len(r.Username) > 30 {
		details["username"] = "must be between 3 and 30 characters"
	} else if !usernamePattern.MatchString(r.Username) {
		details["username"] = "may only contain letters, numbers, and underscores"
	}
	if len(r.Password) < 8 {
		details["password"] = "must be at least 8 characters"
	}

	if len(details) == 0 {
		return nil
	}
	return details
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks required fields are present.
func (r *LoginRequest) Validate() map[string]any {
	details := map[string]any{}
	if r.Email == "" {
		details["email"] = "required"
	}
	if r.Password == "" {
		details["password"] = "required"
	}
	if len(details) == 0 {
		return nil
	}
	return details
}

// AccountResponse exposes public profile fields only.
type AccountResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// TokenResponse standard response for login.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}
