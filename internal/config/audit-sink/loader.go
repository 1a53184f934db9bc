package audit_sink_config

import (
	"github.com/NordCoder/Warden/internal/config/shared"
)

func Load(path string) (*Config, error) {
	v, err := shared.NewViper(path)
	if err != nil {
		return nil, err
	}

	shared.SetObsDefaults(v, "audit-sink", ":9103")
	shared.SetDBDefaults(v, 8)
	shared.SetKafkaDefaults(v, "audit-sink")
	v.SetDefault("from_beginning", true)

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
	if cfg.Kafka.GroupID == "" {
		return nil, shared.ErrConfig("kafka.group_id is required")
	}
	return &cfg, nil
}
