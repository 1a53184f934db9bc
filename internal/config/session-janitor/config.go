package session_janitor_config

import (
	"time"

	"github.com/NordCoder/Warden/internal/config/shared"

	pginfra "github.com/NordCoder/Warden/internal/repository/postgres"
)

type Janitor struct {
	Interval         time.Duration `mapstructure:"interval"`
	BatchLimit       int           `mapstructure:"batch_limit"`
	MaxRounds        int           `mapstructure:"max_rounds"`
	RefreshRetention time.Duration `mapstructure:"refresh_retention"`
	OutboxRetention  time.Duration `mapstructure:"outbox_retention"`
}

type Server struct {
	MetricsAddr string `mapstructure:"metrics_addr"`
}

type Config struct {
	App     shared.App     `mapstructure:"app"`
	DB      pginfra.Config `mapstructure:"db"`
	Janitor Janitor        `mapstructure:"janitor"`
	Server  Server         `mapstructure:"server"`
	OTEL    shared.OTEL    `mapstructure:"otel"`
	Log     shared.Log     `mapstructure:"log"`
	Sentry  shared.Sentry  `mapstructure:"sentry"`
}
