package session_janitor_config

import (
	"github.com/NordCoder/Warden/internal/config/shared"
)

func Load(path string) (*Config, error) {
	v, err := shared.NewViper(path)
	if err != nil {
		return nil, err
	}

	shared.SetObsDefaults(v, "session-janitor", ":9102")
	shared.SetDBDefaults(v, 4)

	v.SetDefault("janitor.interval", "10m")
	v.SetDefault("janitor.batch_limit", 500)
	v.SetDefault("janitor.max_rounds", 20)
	v.SetDefault("janitor.refresh_retention", "168h")
	v.SetDefault("janitor.outbox_retention", "72h")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	switch {
	case cfg.DB.DSN == "":
		return nil, shared.ErrConfig("db.dsn is required")
	case cfg.Janitor.Interval <= 0:
		return nil, shared.ErrConfig("janitor.interval must be positive")
	case cfg.Janitor.BatchLimit <= 0:
		return nil, shared.ErrConfig("janitor.batch_limit must be positive")
	case cfg.Janitor.RefreshRetention < 0 || cfg.Janitor.OutboxRetention < 0:
		return nil, shared.ErrConfig("janitor retention windows cannot be negative")
	}
	return &cfg, nil
}
