package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/NordCoder/Warden/internal/domain/audit"
	"github.com/NordCoder/Warden/internal/domain/outbox"
	"github.com/NordCoder/Warden/internal/obs/retry"
)

// EventPublisher delivers a decoded event to the broker.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev *audit.Event) error
}

var (
	outboxHandlerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "warden_outbox_handler_latency_seconds",
		Help:    "Latency of outbox handlers including retries.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	outboxHandlerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_outbox_handler_errors_total",
		Help: "Errors in outbox handlers (after retries).",
	}, []string{"kind"})
)

// instrument runs h under pol and records latency and failures per kind.
func instrument(kind outbox.Kind, h outbox.KindHandler, pol retry.Policy) outbox.KindHandler {
	tr := otel.Tracer("outbox.handler")
	label := kind.String()
	if pol.Name == "" {
		pol.Name = "outbox_" + label
	}
	return func(ctx context.Context, data []byte) error {
		ctx, span := tr.Start(ctx, "outbox.handle")
		span.SetAttributes(attribute.String("outbox.kind", label))
		defer span.End()

		start := time.Now()
		err := retry.Do(ctx, func() error { return h(ctx, data) }, pol)
		outboxHandlerLatency.WithLabelValues(label).Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			outboxHandlerErrors.WithLabelValues(label).Inc()
		}
		return err
	}
}

// publishEvent checks that the stored payload really is the kind the row
// claims before it leaves the process. A bad payload never gets better, so it
// is not retried.
func publishEvent(pub EventPublisher, kind outbox.Kind) outbox.KindHandler {
	return func(ctx context.Context, data []byte) error {
		var ev audit.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			return retry.Permanent(fmt.Errorf("unmarshal %s payload: %w", kind, err))
		}
		if ev.Name != kind.String() {
			return retry.Permanent(fmt.Errorf("payload name %q does not match kind %s", ev.Name, kind))
		}
		return pub.PublishEvent(ctx, &ev)
	}
}

// MakeGlobalOutboxHandler routes every known event kind to the publisher.
func MakeGlobalOutboxHandler(pub EventPublisher, pol retry.Policy) outbox.GlobalHandler {
	var (
		mu       sync.Mutex
		handlers = make(map[outbox.Kind]outbox.KindHandler)
	)
	return func(kind outbox.Kind) (outbox.KindHandler, error) {
		if !kind.Valid() {
			return nil, fmt.Errorf("unsupported outbox kind: %d", int(kind))
		}
		mu.Lock()
		defer mu.Unlock()
		if h, ok := handlers[kind]; ok {
			return h, nil
		}
		h := instrument(kind, publishEvent(pub, kind), pol)
		handlers[kind] = h
		return h, nil
	}
}
