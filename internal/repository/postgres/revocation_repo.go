package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NordCoder/Warden/internal/domain/session"
)

var _ session.RevocationRegistry = (*RevocationRepo)(nil)

// RevocationRepo is the denylist of JWT refresh token ids.
type RevocationRepo struct{ db *DB }

func NewRevocationRepo(db *DB) *RevocationRepo { return &RevocationRepo{db: db} }

const (
	qRevocationInsert = `
INSERT INTO revoked_tokens (jti, user_id, expires_at, revoked_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (jti) DO NOTHING;`

	qRevocationExists = `
SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti = $1);`

	qRevocationDeleteExpired = `
WITH doomed AS (
   SELECT jti
   FROM revoked_tokens
   WHERE expires_at < $1
   ORDER BY expires_at
   LIMIT $2
)
DELETE FROM revoked_tokens t
USING doomed
WHERE t.jti = doomed.jti;`
)

func (r *RevocationRepo) Revoke(ctx context.Context, e session.RevocationEntry) (bool, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, qRevocationInsert, e.TokenID, e.UserID, e.ExpiresAt, e.RevokedAt)
	if err != nil {
		return false, fmt.Errorf("revocation insert: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *RevocationRepo) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var exists bool
	if err := r.db.execQueryer(ctx).QueryRow(ctx, qRevocationExists, tokenID).Scan(&exists); err != nil {
		return false, fmt.Errorf("revocation lookup: %w", err)
	}
	return exists, nil
}

func (r *RevocationRepo) DeleteExpired(ctx context.Context, now time.Time, limit int) (int64, error) {
	if limit <= 0 {
		return 0, errors.New("limit must be > 0")
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, qRevocationDeleteExpired, now, limit)
	if err != nil {
		return 0, fmt.Errorf("revocation delete expired: %w", err)
	}
	return tag.RowsAffected(), nil
}
