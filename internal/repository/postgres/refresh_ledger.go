package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/NordCoder/Warden/internal/domain/session"
)

var _ session.RefreshLedger = (*RefreshLedger)(nil)

// RefreshLedger stores hashed opaque refresh tokens in refresh_tokens.
type RefreshLedger struct {
	db *DB
	tx Transactor
}

func NewRefreshLedger(db *DB, tx Transactor) *RefreshLedger {
	return &RefreshLedger{db: db, tx: tx}
}

const (
	qRefreshInsert = `
INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at)
VALUES ($1, $2, $3, $4, $5);`

	qRefreshByHash = `
SELECT id, user_id, token_hash, expires_at, created_at, revoked_at, replaced_by_hash
FROM refresh_tokens
WHERE token_hash = $1;`

	// The WHERE clause is the compare-and-swap: only one concurrent caller
	// can flip an active row.
	qRefreshRotate = `
UPDATE refresh_tokens
SET revoked_at       = $3,
    replaced_by_hash = $4
WHERE token_hash = $1
  AND user_id    = $2
  AND revoked_at IS NULL
  AND expires_at > $3;`

	qRefreshRevoke = `
UPDATE refresh_tokens
SET revoked_at = $2
WHERE token_hash = $1
  AND revoked_at IS NULL;`

	qRefreshListActive = `
SELECT id, user_id, token_hash, expires_at, created_at, revoked_at, replaced_by_hash
FROM refresh_tokens
WHERE user_id = $1
  AND revoked_at IS NULL
  AND expires_at > $2
ORDER BY created_at DESC;`

	qRefreshRevokeAll = `
UPDATE refresh_tokens
SET revoked_at = $2
WHERE user_id = $1
  AND revoked_at IS NULL
  AND expires_at > $2;`

	qRefreshDeleteExpired = `
WITH doomed AS (
   SELECT id
   FROM refresh_tokens
   WHERE expires_at < $1
   ORDER BY expires_at
   LIMIT $2
)
DELETE FROM refresh_tokens t
USING doomed
WHERE t.id = doomed.id;`
)

func (r *RefreshLedger) Create(ctx context.Context, rec *session.RefreshRecord) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if err := prepareRecord(rec); err != nil {
		return err
	}
	if _, err := r.db.execQueryer(ctx).Exec(ctx, qRefreshInsert,
		rec.ID, rec.UserID, rec.TokenHash, rec.ExpiresAt, rec.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("refresh insert: %w", err)
	}
	return nil
}

func (r *RefreshLedger) FindByHash(ctx context.Context, tokenHash string) (*session.RefreshRecord, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var rec session.RefreshRecord
	err := r.db.execQueryer(ctx).QueryRow(ctx, qRefreshByHash, tokenHash).
		Scan(&rec.ID, &rec.UserID, &rec.TokenHash, &rec.ExpiresAt, &rec.CreatedAt, &rec.RevokedAt, &rec.ReplacedByHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, session.ErrRecordNotFound
		}
		return nil, fmt.Errorf("refresh by hash: %w", err)
	}
	return &rec, nil
}

func (r *RefreshLedger) Rotate(ctx context.Context, oldHash string, userID uuid.UUID, successor *session.RefreshRecord, now time.Time) error {
	if err := prepareRecord(successor); err != nil {
		return err
	}
	return r.tx.WithTx(ctx, func(ctx context.Context) error {
		ctx, cancel := r.db.withTimeout(ctx)
		defer cancel()

		eq := r.db.execQueryer(ctx)
		tag, err := eq.Exec(ctx, qRefreshRotate, oldHash, userID, now, successor.TokenHash)
		if err != nil {
			return fmt.Errorf("refresh rotate: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return session.ErrNotActive
		}
		if _, err := eq.Exec(ctx, qRefreshInsert,
			successor.ID, successor.UserID, successor.TokenHash, successor.ExpiresAt, successor.CreatedAt); err != nil {
			return fmt.Errorf("refresh insert successor: %w", err)
		}
		return nil
	})
}

// Revoke is a conditional update: under concurrent calls the loser blocks on
// the row lock, re-checks revoked_at and matches nothing.
func (r *RefreshLedger) Revoke(ctx context.Context, tokenHash string, now time.Time) (bool, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, qRefreshRevoke, tokenHash, now)
	if err != nil {
		return false, fmt.Errorf("refresh revoke: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *RefreshLedger) ListActive(ctx context.Context, userID uuid.UUID, now time.Time) ([]session.RefreshRecord, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.execQueryer(ctx).Query(ctx, qRefreshListActive, userID, now)
	if err != nil {
		return nil, fmt.Errorf("refresh list active: %w", err)
	}
	defer rows.Close()

	var out []session.RefreshRecord
	for rows.Next() {
		var rec session.RefreshRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.TokenHash, &rec.ExpiresAt, &rec.CreatedAt,
			&rec.RevokedAt, &rec.ReplacedByHash); err != nil {
			return nil, fmt.Errorf("scan refresh: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *RefreshLedger) RevokeAllForUser(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, qRefreshRevokeAll, userID, now)
	if err != nil {
		return 0, fmt.Errorf("refresh revoke all: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *RefreshLedger) DeleteExpired(ctx context.Context, before time.Time, limit int) (int64, error) {
	if limit <= 0 {
		return 0, errors.New("limit must be > 0")
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, qRefreshDeleteExpired, before, limit)
	if err != nil {
		return 0, fmt.Errorf("refresh delete expired: %w", err)
	}
	return tag.RowsAffected(), nil
}

func prepareRecord(rec *session.RefreshRecord) error {
	if rec == nil {
		return errors.New("nil refresh record")
	}
	if rec.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("refresh id: %w", err)
		}
		rec.ID = id
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return nil
}
