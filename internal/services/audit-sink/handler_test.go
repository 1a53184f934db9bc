package auditsink

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NordCoder/Warden/internal/domain/audit"
	"github.com/NordCoder/Warden/internal/obs/retry"
)

type memAudit struct {
	mu       sync.Mutex
	rows     map[string]audit.Event
	failures int
	calls    int
}

func (m *memAudit) Insert(_ context.Context, e *audit.Event) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failures > 0 {
		m.failures--
		return false, errors.New("connection reset")
	}
	if m.rows == nil {
		m.rows = map[string]audit.Event{}
	}
	if _, ok := m.rows[e.Key]; ok {
		return false, nil
	}
	m.rows[e.Key] = *e
	return true, nil
}

func (m *memAudit) ListByUser(context.Context, uuid.UUID, int) ([]audit.Event, error) {
	return nil, nil
}

func event(name string) *audit.Event {
	return &audit.Event{Key: uuid.NewString(), Name: name, UserID: uuid.New(), OccurredAt: time.Now().UTC()}
}

func policy() retry.Policy {
	return retry.Policy{Name: "audit_test", Attempts: 3, Backoff: retry.ExpoJitter{Base: time.Millisecond}}
}

func TestHandle_IdempotentOnKey(t *testing.T) {
	repo := &memAudit{}
	h := NewHandler(repo, zap.NewNop(), policy())
	ev := event("session.rotated")

	require.NoError(t, h.Handle(context.Background(), ev))
	require.NoError(t, h.Handle(context.Background(), ev))
	assert.Len(t, repo.rows, 1)
}

func TestHandle_RetriesTransientStoreErrors(t *testing.T) {
	repo := &memAudit{failures: 2}
	h := NewHandler(repo, zap.NewNop(), policy())

	require.NoError(t, h.Handle(context.Background(), event("user.banned")))
	assert.Equal(t, 3, repo.calls)
	assert.Len(t, repo.rows, 1)
}

func TestHandle_GivesUp(t *testing.T) {
	repo := &memAudit{failures: 10}
	h := NewHandler(repo, zap.NewNop(), policy())

	err := h.Handle(context.Background(), event("session.created"))
	assert.Error(t, err)
	assert.Empty(t, repo.rows)
}

func TestHandle_SkipsUnknownKinds(t *testing.T) {
	repo := &memAudit{}
	h := NewHandler(repo, zap.NewNop(), policy())

	require.NoError(t, h.Handle(context.Background(), event("password.reset")))
	assert.Zero(t, repo.calls)
}
