package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/NordCoder/Warden/internal/domain/audit"
)

const DefaultSessionEventsTopic = "warden.session.events"

var ErrMalformedEvent = errors.New("malformed session event")

// SessionEventsKafka publishes security events keyed by user id.
type SessionEventsKafka struct {
	p *Producer
}

func NewSessionEventsKafka(p *Producer) *SessionEventsKafka { return &SessionEventsKafka{p: p} }

func (e *SessionEventsKafka) PublishEvent(ctx context.Context, ev *audit.Event) error {
	msg, err := EventToStruct(ev)
	if err != nil {
		return err
	}
	return e.p.PublishProto(ctx, []byte(ev.UserID.String()), msg)
}

// EventToStruct is the wire form of an event: a protobuf Struct whose keys
// mirror the JSON names of audit.Event.
func EventToStruct(ev *audit.Event) (*structpb.Struct, error) {
	fields := map[string]any{
		"key":         ev.Key,
		"name":        ev.Name,
		"user_id":     ev.UserID.String(),
		"occurred_at": ev.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
	if ev.ActorID != nil {
		fields["actor_id"] = ev.ActorID.String()
	}
	if len(ev.Attrs) > 0 {
		attrs := make(map[string]any, len(ev.Attrs))
		for k, v := range ev.Attrs {
			attrs[k] = v
		}
		fields["attrs"] = attrs
	}
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode event %s: %w", ev.Key, err)
	}
	return s, nil
}

func EventFromStruct(s *structpb.Struct) (*audit.Event, error) {
	f := s.GetFields()
	str := func(k string) string { return f[k].GetStringValue() }

	ev := &audit.Event{Key: str("key"), Name: str("name")}
	if ev.Key == "" || ev.Name == "" {
		return nil, fmt.Errorf("%w: key and name are required", ErrMalformedEvent)
	}
	uid, err := uuid.Parse(str("user_id"))
	if err != nil {
		return nil, fmt.Errorf("%w: user_id: %v", ErrMalformedEvent, err)
	}
	ev.UserID = uid

	at, err := time.Parse(time.RFC3339Nano, str("occurred_at"))
	if err != nil {
		return nil, fmt.Errorf("%w: occurred_at: %v", ErrMalformedEvent, err)
	}
	ev.OccurredAt = at

	if raw := str("actor_id"); raw != "" {
		actor, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: actor_id: %v", ErrMalformedEvent, err)
		}
		ev.ActorID = &actor
	}
	if attrs := f["attrs"].GetStructValue(); attrs != nil {
		ev.Attrs = make(map[string]string, len(attrs.GetFields()))
		for k, v := range attrs.GetFields() {
			ev.Attrs[k] = v.GetStringValue()
		}
	}
	return ev, nil
}

// SessionEventHandler adapts a typed event callback to a consumer Handler.
func SessionEventHandler(handle func(context.Context, *audit.Event) error) Handler {
	return ProtoHandler(func() *structpb.Struct { return &structpb.Struct{} },
		func(ctx context.Context, _ []byte, s *structpb.Struct) error {
			ev, err := EventFromStruct(s)
			if err != nil {
				return err
			}
			return handle(ctx, ev)
		})
}
