package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	config "github.com/NordCoder/Warden/internal/config/identity-api"
	"github.com/NordCoder/Warden/internal/obs"
)

func main() {
	configPath := flag.String("config", os.Getenv("WARDEN_CONFIG"), "path to YAML config")
	flag.Parse()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := obs.NewLogger(cfg.Log.AsLoggerConfig(cfg.App))
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting identity-api",
		zap.String("env", cfg.App.Env),
		zap.String("ver", cfg.App.Version),
		zap.String("refresh_strategy", cfg.Auth.RefreshStrategy))

	if err := obs.InitSentry(cfg.Sentry.AsSentryConfig(cfg.App)); err != nil {
		logger.Warn("sentry init", zap.Error(err))
	}
	defer obs.FlushSentry()

	otelCloser, err := obs.SetupOTel(rootCtx, cfg.OTEL.AsOTELConfig(cfg.App))
	if err != nil {
		logger.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	app, err := wire(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("wire", zap.Error(err))
	}
	defer app.Close()

	ms := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, map[string]obs.HealthCheck{
		"postgres": app.db.Ping,
	}, logger)

	grpcServer, grpcLn, err := buildGRPCServer(cfg, app)
	if err != nil {
		logger.Fatal("build grpc", zap.Error(err))
	}
	grpcErrCh := make(chan error, 1)
	go func() {
		logger.Info("grpc listening", zap.String("addr", cfg.Server.GRPCAddr))
		grpcErrCh <- grpcServer.Serve(grpcLn)
	}()

	httpSrv := buildHTTPServer(cfg, app)
	httpErrCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.Server.HTTPAddr))
		httpErrCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal")
	case err := <-grpcErrCh:
		if err != nil {
			logger.Error("grpc serve", zap.Error(err))
		}
	case err := <-httpErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", zap.Error(err))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()

	_ = httpSrv.Shutdown(shCtx)
	stopped := make(chan struct{})
	go func() { grpcServer.GracefulStop(); close(stopped) }()
	select {
	case <-stopped:
	case <-shCtx.Done():
		grpcServer.Stop()
	}
	_ = ms.Shutdown(shCtx)
	logger.Info("bye")
}
