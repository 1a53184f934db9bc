package wardenctl_config

import (
	"github.com/NordCoder/Warden/internal/config/shared"
	pginfra "github.com/NordCoder/Warden/internal/repository/postgres"
)

type Config struct {
	App shared.App     `mapstructure:"app"`
	DB  pginfra.Config `mapstructure:"db"`
	Log shared.Log     `mapstructure:"log"`
}

func Load(path string) (*Config, error) {
	v, err := shared.NewViper(path)
	if err != nil {
		return nil, err
	}
	shared.SetObsDefaults(v, "wardenctl", "")
	shared.SetDBDefaults(v, 2)
	v.SetDefault("log.level", "warn")
	v.SetDefault("db.min_conns", 0)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if cfg.DB.DSN == "" {
		return nil, shared.ErrConfig("db.dsn is required")
	}
	return &cfg, nil
}
