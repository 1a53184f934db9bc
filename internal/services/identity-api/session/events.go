package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NordCoder/Warden/internal/domain/audit"
	"github.com/NordCoder/Warden/internal/domain/outbox"
	"github.com/NordCoder/Warden/internal/obs"
)

// emit writes a security event to the outbox. Called inside WithTx the event
// commits together with the state change.
func (s *Service) emit(ctx context.Context, kind outbox.Kind, userID uuid.UUID, actor *uuid.UUID, attrs map[string]string) error {
	key, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("event key: %w", err)
	}
	e := audit.Event{
		Key:        key.String(),
		Name:       kind.String(),
		UserID:     userID,
		ActorID:    actor,
		OccurredAt: s.now(),
		Attrs:      attrs,
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := s.events.Enqueue(ctx, e.Key, kind, data); err != nil {
		return fmt.Errorf("enqueue %s: %w", kind, err)
	}
	return nil
}

// emitDetached is for events that have no state change to ride along with.
// Failure is logged, never returned.
func (s *Service) emitDetached(ctx context.Context, kind outbox.Kind, userID uuid.UUID, attrs map[string]string) {
	if err := s.emit(context.WithoutCancel(ctx), kind, userID, nil, attrs); err != nil {
		s.logWith(ctx).Warn("emit event", zap.String("kind", kind.String()), zap.Error(err))
	}
}

func (s *Service) logWith(ctx context.Context) *zap.Logger {
	return obs.WithTrace(ctx, s.log)
}
