package identity_api_config

import (
	"github.com/NordCoder/Warden/internal/config/shared"
)

const minSecretLen = 32

func Load(path string) (*Config, error) {
	v, err := shared.NewViper(path)
	if err != nil {
		return nil, err
	}

	shared.SetObsDefaults(v, "identity-api", ":9100")
	shared.SetDBDefaults(v, 20)

	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.grpc_addr", ":9090")
	v.SetDefault("server.read_timeout", "5s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.graceful_timeout", "15s")

	v.SetDefault("auth.signing_secret", "")
	v.SetDefault("auth.issuer", "warden")
	v.SetDefault("auth.audience", "warden-clients")
	v.SetDefault("auth.access_ttl_minutes", 30)
	v.SetDefault("auth.refresh_ttl_days", 30)
	v.SetDefault("auth.refresh_strategy", "opaque")
	v.SetDefault("auth.cookie_name", "refresh_token")
	v.SetDefault("auth.cookie_domain", "")
	v.SetDefault("auth.cookie_path", "/v1/auth")
	v.SetDefault("auth.cookie_secure", true)

	v.SetDefault("google.client_id", "")
	v.SetDefault("google.certs_url", "https://www.googleapis.com/oauth2/v3/certs")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.DB.DSN == "":
		return ErrConfig("db.dsn is required")
	case len(c.Auth.SigningSecret) < minSecretLen:
		return ErrConfig("auth.signing_secret must be at least 32 characters")
	case c.Auth.Issuer == "" || c.Auth.Audience == "":
		return ErrConfig("auth.issuer and auth.audience are required")
	case c.Auth.AccessTTLMinutes <= 0:
		return ErrConfig("auth.access_ttl_minutes must be positive")
	case c.Auth.RefreshTTLDays <= 0:
		return ErrConfig("auth.refresh_ttl_days must be positive")
	case c.Auth.RefreshStrategy != "opaque" && c.Auth.RefreshStrategy != "jwt":
		return ErrConfig(`auth.refresh_strategy must be "opaque" or "jwt"`)
	}
	return nil
}
