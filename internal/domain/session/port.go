package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type RefreshLedger interface {
	Create(ctx context.Context, r *RefreshRecord) error
	FindByHash(ctx context.Context, tokenHash string) (*RefreshRecord, error)
	// Rotate revokes the active record oldHash owned by userID and stores
	// successor in the same transaction. ErrNotActive when another caller won.
	Rotate(ctx context.Context, oldHash string, userID uuid.UUID, successor *RefreshRecord, now time.Time) error
	// Revoke retires an active record and reports whether this call did it.
	// An already revoked record keeps its revoked_at and yields false, so
	// of two concurrent callers only one sees true.
	Revoke(ctx context.Context, tokenHash string, now time.Time) (bool, error)
	ListActive(ctx context.Context, userID uuid.UUID, now time.Time) ([]RefreshRecord, error)
	RevokeAllForUser(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error)
	DeleteExpired(ctx context.Context, before time.Time, limit int) (int64, error)
}

type RevocationRegistry interface {
	// Revoke reports false when the token id was already denylisted.
	Revoke(ctx context.Context, e RevocationEntry) (bool, error)
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time, limit int) (int64, error)
}
