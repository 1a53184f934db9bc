package audit_sink_config

import (
	"github.com/NordCoder/Warden/internal/config/shared"

	pginfra "github.com/NordCoder/Warden/internal/repository/postgres"
)

type Server struct {
	MetricsAddr string `mapstructure:"metrics_addr"`
}

type Config struct {
	App           shared.App     `mapstructure:"app"`
	DB            pginfra.Config `mapstructure:"db"`
	Kafka         shared.Kafka   `mapstructure:"kafka"`
	FromBeginning bool           `mapstructure:"from_beginning"`
	Server        Server         `mapstructure:"server"`
	OTEL          shared.OTEL    `mapstructure:"otel"`
	Log           shared.Log     `mapstructure:"log"`
	Sentry        shared.Sentry  `mapstructure:"sentry"`
}
