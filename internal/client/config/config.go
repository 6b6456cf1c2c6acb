package config

import "time"

// Config holds runtime settings for the gophauth CLI.
//
// Fields:
//   - IdentityProviderAddr: host:port of the identity provider gRPC endpoint.
//   - BackendURL: base URL of the backend API; empty disables user sync.
//   - TokenDBPath: SQLite file holding the persisted session.
//   - OnlineCheckInterval: how often the client probes backend reachability.
//   - ProviderCallTimeout / BackendCallTimeout: per-call bounds.
//   - FederatedTimeout: how long to wait for the browser during OAuth sign-in.
//   - OAuthCallbackPort: local port for the OAuth redirect; 0 picks a free one.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	IdentityProviderAddr string        `env:"GOPHAUTH_IDP_ADDR"`
	BackendURL           string        `env:"GOPHAUTH_BACKEND_URL"`
	TokenDBPath          string        `env:"GOPHAUTH_TOKEN_DB"`
	OnlineCheckInterval  time.Duration `env:"GOPHAUTH_ONLINE_CHECK_INTERVAL"`
	ProviderCallTimeout  time.Duration `env:"GOPHAUTH_PROVIDER_TIMEOUT"`
	BackendCallTimeout   time.Duration `env:"GOPHAUTH_BACKEND_TIMEOUT"`
	FederatedTimeout     time.Duration `env:"GOPHAUTH_FEDERATED_TIMEOUT"`
	OAuthCallbackPort    int           `env:"GOPHAUTH_OAUTH_CALLBACK_PORT"`
	LogLevel             string        `env:"GOPHAUTH_LOG_LEVEL"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.IdentityProviderAddr = "127.0.0.1:50051"
	c.BackendURL = "http://127.0.0.1:8080"
	c.TokenDBPath = "gophauth.db"
	c.OnlineCheckInterval = 3 * time.Second
	c.ProviderCallTimeout = 15 * time.Second
	c.BackendCallTimeout = 10 * time.Second
	c.FederatedTimeout = 5 * time.Minute
	c.OAuthCallbackPort = 0
	c.LogLevel = "info"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), the environment and command-line flags. Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
