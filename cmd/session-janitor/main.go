package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	config "github.com/NordCoder/Warden/internal/config/session-janitor"
	"github.com/NordCoder/Warden/internal/obs"
	pg "github.com/NordCoder/Warden/internal/repository/postgres"
	janitor "github.com/NordCoder/Warden/internal/services/session-janitor"
)

func main() {
	configPath := flag.String("config", os.Getenv("WARDEN_CONFIG"), "path to YAML config")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	l, err := obs.NewLogger(cfg.Log.AsLoggerConfig(cfg.App))
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = l.Sync() }()
	l.Info("starting session-janitor",
		zap.Duration("interval", cfg.Janitor.Interval),
		zap.Int("batch_limit", cfg.Janitor.BatchLimit),
		zap.String("metrics_addr", cfg.Server.MetricsAddr),
	)

	if err := obs.InitSentry(cfg.Sentry.AsSentryConfig(cfg.App)); err != nil {
		l.Warn("sentry init", zap.Error(err))
	}
	defer obs.FlushSentry()

	otelCloser, err := obs.SetupOTel(ctx, cfg.OTEL.AsOTELConfig(cfg.App))
	if err != nil {
		l.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	db, err := pg.NewDB(ctx, cfg.DB)
	if err != nil {
		l.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	ms := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, map[string]obs.HealthCheck{
		"postgres": db.Ping,
	}, l)

	tx := pg.NewTransactor(db, l)
	uc := janitor.NewUC(
		pg.NewRefreshLedger(db, tx),
		pg.NewRevocationRepo(db),
		pg.NewOutboxRepo(db),
		janitor.Policy{
			RefreshRetention: cfg.Janitor.RefreshRetention,
			OutboxRetention:  cfg.Janitor.OutboxRetention,
			MaxRounds:        cfg.Janitor.MaxRounds,
		},
	)
	runner := janitor.New(l, uc, cfg.Janitor.Interval, cfg.Janitor.BatchLimit)

	errCh := make(chan error, 1)
	go func() { errCh <- runner.Run(ctx) }()

	select {
	case <-ctx.Done():
	case err = <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			l.Error("runner error", zap.Error(err))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}
