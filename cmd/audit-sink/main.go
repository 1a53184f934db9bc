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

	config "github.com/NordCoder/Warden/internal/config/audit-sink"
	"github.com/NordCoder/Warden/internal/obs"
	"github.com/NordCoder/Warden/internal/obs/retry"
	kafkax "github.com/NordCoder/Warden/internal/repository/kafka"
	pg "github.com/NordCoder/Warden/internal/repository/postgres"
	auditsink "github.com/NordCoder/Warden/internal/services/audit-sink"
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
	l.Info("starting audit-sink",
		zap.String("topic", cfg.Kafka.Topic),
		zap.String("group_id", cfg.Kafka.GroupID),
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

	cons := kafkax.BootstrapConsumer(ctx, &kafkax.ConsumerConfig{
		Brokers:       cfg.Kafka.Brokers,
		GroupID:       cfg.Kafka.GroupID,
		Topic:         cfg.Kafka.Topic,
		FromBeginning: cfg.FromBeginning,
	}, kafkax.TopicSpec{
		NumPartitions:     cfg.Kafka.Partitions,
		ReplicationFactor: cfg.Kafka.ReplicationFactor,
		RetentionHours:    cfg.Kafka.RetentionHours,
	}, l)
	defer func() { _ = cons.Close() }()

	ms := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, map[string]obs.HealthCheck{
		"postgres": db.Ping,
		"kafka": func(ctx context.Context) error {
			return kafkax.Ping(ctx, cfg.Kafka.Brokers)
		},
	}, l)

	h := auditsink.NewHandler(pg.NewAuditRepo(db), l, retry.StorePolicy("audit_insert", l))
	runner := auditsink.NewRunner(l, cons, h)

	errCh := make(chan error, 1)
	go func() { errCh <- runner.Run(ctx) }()
	l.Info("audit-sink started")

	select {
	case <-ctx.Done():
	case err = <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			l.Error("consumer stopped", zap.Error(err))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}
