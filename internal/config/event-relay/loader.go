package event_relay_config

import (
	"github.com/NordCoder/Warden/internal/config/shared"
)

func Load(path string) (*Config, error) {
	v, err := shared.NewViper(path)
	if err != nil {
		return nil, err
	}

	shared.SetObsDefaults(v, "event-relay", ":9101")
	shared.SetDBDefaults(v, 8)
	shared.SetKafkaDefaults(v, "")

	v.SetDefault("outbox.workers", 2)
	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("outbox.wait_time", "500ms")
	v.SetDefault("outbox.in_progress_ttl", "30s")
	v.SetDefault("server.graceful_timeout", "10s")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if cfg.DB.DSN == "" {
		return nil, shared.ErrConfig("db.dsn is required")
	}
	if err := cfg.Kafka.Validate(); err != nil {
		return nil, err
	}
	if cfg.Outbox.Workers <= 0 || cfg.Outbox.BatchSize <= 0 {
		return nil, shared.ErrConfig("outbox.workers and outbox.batch_size must be positive")
	}
	return &cfg, nil
}
