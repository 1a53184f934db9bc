package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	config "github.com/NordCoder/Warden/internal/config/event-relay"
	"github.com/NordCoder/Warden/internal/obs"
	"github.com/NordCoder/Warden/internal/obs/retry"
	"github.com/NordCoder/Warden/internal/outbox"
	kafkax "github.com/NordCoder/Warden/internal/repository/kafka"
	pg "github.com/NordCoder/Warden/internal/repository/postgres"
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
	l.Info("starting event-relay",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.Topic),
		zap.Int("workers", cfg.Outbox.Workers),
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

	prod := kafkax.BootstrapProducer(ctx, kafkax.ProducerConfig{
		Brokers:    cfg.Kafka.Brokers,
		Topic:      cfg.Kafka.Topic,
		RequireAll: cfg.Kafka.ReplicationFactor > 1,
		Logger:     l,
	}, kafkax.TopicSpec{
		NumPartitions:     cfg.Kafka.Partitions,
		ReplicationFactor: cfg.Kafka.ReplicationFactor,
		RetentionHours:    cfg.Kafka.RetentionHours,
	})
	defer func() { _ = prod.Close() }()

	ms := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, map[string]obs.HealthCheck{
		"postgres": db.Ping,
		"kafka": func(ctx context.Context) error {
			return kafkax.Ping(ctx, cfg.Kafka.Brokers)
		},
	}, l)

	dispatch := outbox.MakeGlobalOutboxHandler(
		kafkax.NewSessionEventsKafka(prod),
		retry.PublishPolicy("outbox_publish", l),
	)
	runner := outbox.NewOutboxRunner(l, pg.NewOutboxRepo(db), dispatch, outbox.RunnerConfig{
		Workers:       cfg.Outbox.Workers,
		BatchSize:     cfg.Outbox.BatchSize,
		WaitTime:      cfg.Outbox.WaitTime,
		InProgressTTL: cfg.Outbox.InProgressTTL,
	})
	runner.Start(ctx)
	l.Info("event-relay started")

	<-ctx.Done()

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	done := make(chan struct{})
	go func() { runner.Wait(); close(done) }()
	select {
	case <-done:
	case <-shCtx.Done():
		l.Warn("outbox workers did not stop in time")
	}
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}
