package obs

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
)

type SentryConfig struct {
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	Release     string  `mapstructure:"release"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// InitSentry is a no-op without a DSN; CaptureError then drops everything.
func InitSentry(cfg SentryConfig) error {
	if cfg.DSN == "" {
		return nil
	}
	rate := cfg.SampleRate
	if rate <= 0 {
		rate = 1
	}
	return sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		SampleRate:       rate,
		AttachStacktrace: true,
	})
}

func FlushSentry() {
	sentry.Flush(2 * time.Second)
}

// CaptureError reports an unexpected fault tagged with the operation and the
// current trace id.
func CaptureError(ctx context.Context, op string, err error) {
	if err == nil {
		return
	}
	hub := sentry.CurrentHub().Clone()
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("op", op)
		if id := TraceID(ctx); id != "" {
			scope.SetTag("trace_id", id)
		}
		hub.CaptureException(err)
	})
}
