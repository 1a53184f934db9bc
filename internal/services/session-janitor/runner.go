package janitor

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	deleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_janitor_deleted_total", Help: "Rows removed by retention, per table.",
	}, []string{"table"})
	tickErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warden_janitor_errors_total", Help: "Retention ticks that failed on at least one table.",
	})
	loopDur = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "warden_janitor_loop_duration_seconds", Help: "Janitor tick duration.",
		Buckets: prometheus.DefBuckets,
	})
)

type Runner struct {
	log        *zap.Logger
	uc         *Usecase
	interval   time.Duration
	batchLimit int
}

func New(log *zap.Logger, uc *Usecase, interval time.Duration, batchLimit int) *Runner {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Runner{log: log, uc: uc, interval: interval, batchLimit: batchLimit}
}

func (r *Runner) tick(ctx context.Context) {
	start := time.Now()
	res, err := r.uc.Tick(ctx, r.batchLimit)
	if err != nil {
		tickErrors.Inc()
		r.log.Warn("tick error", zap.Error(err))
	}
	if res.Total() > 0 {
		r.log.Info("retention pass",
			zap.Int64("refresh", res.Refresh),
			zap.Int64("revocations", res.Revocations),
			zap.Int64("outbox", res.Outbox))
	}
	loopDur.Observe(time.Since(start).Seconds())
}

func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}
