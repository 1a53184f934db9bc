package session

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	domainsession "github.com/NordCoder/Warden/internal/domain/session"
)

var (
	opTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_session_operations_total",
		Help: "Session operations by result (ok, validation, auth kind, error).",
	}, []string{"op", "result"})
	opDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "warden_session_operation_duration_seconds",
		Help:    "Session operation latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	reuseDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warden_refresh_reuse_detected_total",
		Help: "Refresh tokens presented again after rotation.",
	})
)

func observe(op string, start time.Time, err error) {
	opDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	opTotal.WithLabelValues(op, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if ae, ok := domainsession.AsAuthError(err); ok {
		return string(ae.Kind)
	}
	if _, ok := domainsession.AsValidationError(err); ok {
		return "validation"
	}
	return "error"
}
