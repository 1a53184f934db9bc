package identity_api_config

import (
	"time"

	"github.com/NordCoder/Warden/internal/config/shared"

	pg "github.com/NordCoder/Warden/internal/repository/postgres"
)

type Server struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	GRPCAddr        string        `mapstructure:"grpc_addr"`
	MetricsAddr     string        `mapstructure:"metrics_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
}

type Auth struct {
	SigningSecret    string `mapstructure:"signing_secret"`
	Issuer           string `mapstructure:"issuer"`
	Audience         string `mapstructure:"audience"`
	AccessTTLMinutes int    `mapstructure:"access_ttl_minutes"`
	RefreshTTLDays   int    `mapstructure:"refresh_ttl_days"`
	// RefreshStrategy is "opaque" (server-side ledger) or "jwt" (stateless
	// with a revocation registry).
	RefreshStrategy string `mapstructure:"refresh_strategy"`

	CookieName   string `mapstructure:"cookie_name"`
	CookieDomain string `mapstructure:"cookie_domain"`
	CookiePath   string `mapstructure:"cookie_path"`
	CookieSecure bool   `mapstructure:"cookie_secure"`
}

func (a *Auth) AccessTTL() time.Duration  { return time.Duration(a.AccessTTLMinutes) * time.Minute }
func (a *Auth) RefreshTTL() time.Duration { return time.Duration(a.RefreshTTLDays) * 24 * time.Hour }

type Google struct {
	ClientID string `mapstructure:"client_id"`
	CertsURL string `mapstructure:"certs_url"`
}

type Config struct {
	App    shared.App    `mapstructure:"app"`
	Server Server        `mapstructure:"server"`
	DB     pg.Config     `mapstructure:"db"`
	OTEL   shared.OTEL   `mapstructure:"otel"`
	Log    shared.Log    `mapstructure:"log"`
	Sentry shared.Sentry `mapstructure:"sentry"`
	Auth   Auth          `mapstructure:"auth"`
	Google Google        `mapstructure:"google"`
}

type ErrConfig = shared.ErrConfig
