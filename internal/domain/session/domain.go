package session

import (
	"time"

	"github.com/google/uuid"
)

// RefreshRecord is the ledger row behind an opaque refresh token. Only the
// hash of the token is stored.
type RefreshRecord struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	TokenHash      string
	ExpiresAt      time.Time
	CreatedAt      time.Time
	RevokedAt      *time.Time
	ReplacedByHash *string
}

func (r *RefreshRecord) IsExpired(now time.Time) bool { return !now.Before(r.ExpiresAt) }

func (r *RefreshRecord) IsRevoked() bool { return r.RevokedAt != nil }

func (r *RefreshRecord) IsActive(now time.Time) bool {
	return !r.IsExpired(now) && !r.IsRevoked()
}

// RevocationEntry denylists a self-describing refresh token by its jti.
type RevocationEntry struct {
	TokenID   string
	UserID    uuid.UUID
	ExpiresAt time.Time
	RevokedAt time.Time
}

// RefreshInfo is what a presented refresh token resolves to.
type RefreshInfo struct {
	UserID    uuid.UUID
	TokenID   string
	ExpiresAt time.Time
}

// Tokens is the result of every successful sign-in or rotation.
type Tokens struct {
	AccessToken     string    `json:"access_token"`
	RefreshToken    string    `json:"refresh_token"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
}

// Principal is the authenticated caller extracted from an access token.
type Principal struct {
	UserID  uuid.UUID
	Email   string
	Roles   []string
	TokenID string
}
