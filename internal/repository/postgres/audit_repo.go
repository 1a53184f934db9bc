package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/NordCoder/Warden/internal/domain/audit"
)

var _ audit.Repo = (*AuditRepo)(nil)

// AuditRepo is the append-only auth_audit_log.
type AuditRepo struct{ db *DB }

func NewAuditRepo(db *DB) *AuditRepo { return &AuditRepo{db: db} }

const (
	qAuditInsert = `
INSERT INTO auth_audit_log (event_key, name, user_id, actor_id, occurred_at, attrs)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (event_key) DO NOTHING;`

	qAuditByUser = `
SELECT event_key, name, user_id, actor_id, occurred_at, attrs
FROM auth_audit_log
WHERE user_id = $1
ORDER BY occurred_at DESC
LIMIT $2;`
)

func (r *AuditRepo) Insert(ctx context.Context, e *audit.Event) (bool, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	m := e.Attrs
	if m == nil {
		m = map[string]string{}
	}
	attrs, err := json.Marshal(m)
	if err != nil {
		return false, fmt.Errorf("marshal attrs: %w", err)
	}

	tag, err := r.db.execQueryer(ctx).Exec(ctx, qAuditInsert, e.Key, e.Name, e.UserID, e.ActorID, e.OccurredAt, attrs)
	if err != nil {
		return false, fmt.Errorf("audit insert: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *AuditRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]audit.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.execQueryer(ctx).Query(ctx, qAuditByUser, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("audit list: %w", err)
	}
	defer rows.Close()

	var out []audit.Event
	for rows.Next() {
		var (
			e     audit.Event
			attrs []byte
		)
		if err := rows.Scan(&e.Key, &e.Name, &e.UserID, &e.ActorID, &e.OccurredAt, &attrs); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		if len(attrs) > 0 {
			if err := json.Unmarshal(attrs, &e.Attrs); err != nil {
				return nil, fmt.Errorf("unmarshal attrs: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
