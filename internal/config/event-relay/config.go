package event_relay_config

import (
	"time"

	"github.com/NordCoder/Warden/internal/config/shared"

	pginfra "github.com/NordCoder/Warden/internal/repository/postgres"
)

type Outbox struct {
	Workers       int           `mapstructure:"workers"`
	BatchSize     int           `mapstructure:"batch_size"`
	WaitTime      time.Duration `mapstructure:"wait_time"`
	InProgressTTL time.Duration `mapstructure:"in_progress_ttl"`
}

type Server struct {
	MetricsAddr     string        `mapstructure:"metrics_addr"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
}

type Config struct {
	App    shared.App     `mapstructure:"app"`
	DB     pginfra.Config `mapstructure:"db"`
	Kafka  shared.Kafka   `mapstructure:"kafka"`
	Outbox Outbox         `mapstructure:"outbox"`
	Server Server         `mapstructure:"server"`
	OTEL   shared.OTEL    `mapstructure:"otel"`
	Log    shared.Log     `mapstructure:"log"`
	Sentry shared.Sentry  `mapstructure:"sentry"`
}
