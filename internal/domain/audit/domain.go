package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is a security-relevant fact about an account or session. It is the
// outbox payload, the kafka message body and the audit log row.
type Event struct {
	Key        string            `json:"key"`
	Name       string            `json:"name"`
	UserID     uuid.UUID         `json:"user_id"`
	ActorID    *uuid.UUID        `json:"actor_id,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
	Attrs      map[string]string `json:"attrs,omitempty"`
}

type Repo interface {
	// Insert is idempotent on Event.Key.
	Insert(ctx context.Context, e *Event) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]Event, error)
}
