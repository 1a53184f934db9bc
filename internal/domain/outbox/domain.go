package outbox

import (
	"context"
	"fmt"
	"time"
)

type Status string

const (
	StatusCreated    Status = "CREATED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusSuccess    Status = "SUCCESS"
)

type Kind int

const (
	KindUserRegistered Kind = iota + 1
	KindSessionCreated
	KindSessionRotated
	KindSessionReuseDetected
	KindSessionRevoked
	KindUserBanned
	KindRoleAssigned
	KindUserUnbanned
)

var kindNames = map[Kind]string{
	KindUserRegistered:       "user.registered",
	KindSessionCreated:       "session.created",
	KindSessionRotated:       "session.rotated",
	KindSessionReuseDetected: "session.reuse_detected",
	KindSessionRevoked:       "session.revoked",
	KindUserBanned:           "user.banned",
	KindRoleAssigned:         "role.assigned",
	KindUserUnbanned:         "user.unbanned",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

type Message struct {
	IdempotencyKey string
	Kind           Kind
	Data           []byte
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Tracestate     string
	Traceparent    string
	Baggage        string
}

type Repository interface {
	Enqueue(ctx context.Context, key string, kind Kind, data []byte) error

	PickBatch(ctx context.Context, batch int, inProgressTTL time.Duration) ([]Message, error)

	MarkSuccess(ctx context.Context, keys []string) error

	PurgeProcessed(ctx context.Context, before time.Time, limit int) (int64, error)
}

type KindHandler func(ctx context.Context, data []byte) error

type GlobalHandler func(kind Kind) (KindHandler, error)

// ParseKind maps an event name back to its kind.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}
