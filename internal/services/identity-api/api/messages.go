package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/NordCoder/Warden/internal/services/identity-api/session"
)

type Empty struct{}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken     string    `json:"access_token"`
	RefreshToken    string    `json:"refresh_token,omitempty"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
}

type GoogleLoginRequest struct {
	IDToken string `json:"id_token"`
}

type GoogleLoginResponse struct {
	TokenResponse
	UserID  uuid.UUID `json:"user_id"`
	Created bool      `json:"created"`
}

// RefreshRequest fields may be empty when the refresh token arrives as a
// cookie and the access token as a bearer header.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
	AccessToken  string `json:"access_token,omitempty"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

type SetPasswordRequest struct {
	Password string `json:"password"`
}

type ListSessionsResponse struct {
	Sessions []session.SessionInfo `json:"sessions"`
}

type LogoutAllResponse struct {
	Revoked int64 `json:"revoked"`
}

type MeResponse struct {
	ID             uuid.UUID  `json:"id"`
	Email          string     `json:"email"`
	EmailConfirmed bool       `json:"email_confirmed"`
	Roles          []string   `json:"roles"`
	BannedUntil    *time.Time `json:"banned_until,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type BanUserRequest struct {
	UserID string    `json:"user_id"`
	Until  time.Time `json:"until"`
	Reason string    `json:"reason,omitempty"`
}

type UnbanUserRequest struct {
	UserID string `json:"user_id"`
}

type AssignRoleRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type problem struct {
	Title  string              `json:"title"`
	Status int                 `json:"status"`
	Detail string              `json:"detail,omitempty"`
	Errors map[string][]string `json:"errors,omitempty"`
}
