package auditsink

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/NordCoder/Warden/internal/domain/audit"
	"github.com/NordCoder/Warden/internal/domain/outbox"
	"github.com/NordCoder/Warden/internal/obs"
	"github.com/NordCoder/Warden/internal/obs/retry"
)

var eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_audit_events_total",
	Help: "Session events seen by the audit sink, by outcome.",
}, []string{"outcome"})

type Handler struct {
	repo   audit.Repo
	log    *zap.Logger
	policy retry.Policy
}

func NewHandler(repo audit.Repo, log *zap.Logger, policy retry.Policy) *Handler {
	return &Handler{repo: repo, log: obs.Component(log, "audit.handler"), policy: policy}
}

// Handle appends ev to the audit log. Redelivered events are recognised by
// key and dropped; events of unknown kinds are skipped so a newer producer
// cannot wedge the partition.
func (h *Handler) Handle(ctx context.Context, ev *audit.Event) error {
	log := obs.WithTrace(ctx, h.log).With(zap.String("event", ev.Name), zap.String("key", ev.Key))

	if _, ok := outbox.ParseKind(ev.Name); !ok {
		eventsTotal.WithLabelValues("unknown").Inc()
		log.Warn("skip unknown event kind")
		return nil
	}

	var inserted bool
	err := retry.Do(ctx, func() error {
		var err error
		inserted, err = h.repo.Insert(ctx, ev)
		return err
	}, h.policy)
	if err != nil {
		eventsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("store audit event %s: %w", ev.Key, err)
	}
	if !inserted {
		eventsTotal.WithLabelValues("duplicate").Inc()
		log.Debug("duplicate event")
		return nil
	}
	eventsTotal.WithLabelValues("stored").Inc()
	return nil
}
