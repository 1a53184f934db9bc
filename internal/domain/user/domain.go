package user

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("user not found")
	ErrEmailTaken    = errors.New("email already registered")
	ErrAlreadyLinked = errors.New("external login already linked")

	ErrWrongPassword  = errors.New("password mismatch")
	ErrNoPassword     = errors.New("account has no password")
	ErrPasswordExists = errors.New("account already has a password")
)

type User struct {
	ID             uuid.UUID  `json:"id"`
	Email          string     `json:"email"`
	PasswordHash   string     `json:"-"`
	EmailConfirmed bool       `json:"email_confirmed"`
	BannedUntil    *time.Time `json:"banned_until,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (u *User) HasPassword() bool { return u.PasswordHash != "" }

// IsBanned reports whether a ban is still in force at now.
func (u *User) IsBanned(now time.Time) bool {
	return u.BannedUntil != nil && u.BannedUntil.After(now)
}

// ExternalLogin links a user to an identity at an external provider.
type ExternalLogin struct {
	Provider       string
	ProviderUserID string
	UserID         uuid.UUID
	CreatedAt      time.Time
}

const ProviderGoogle = "Google"

// ExternalIdentity is what an external token validator vouches for.
type ExternalIdentity struct {
	Provider       string
	ProviderUserID string
	Email          string
	DisplayName    string
}
