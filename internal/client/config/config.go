package config

import "time"

// Config holds runtime settings for the ZenChat CLI.
//
// Fields:
//   - ServerURL: base URL of the backend REST API.
//   - RequestTimeout: per-request HTTP timeout.
//   - DatabaseDSN: sqlite DSN for the local credential store.
//   - OAuthClientID / OAuthClientSecret: Google OAuth client. The secret is
//     empty for Desktop-type clients.
//   - OAuthWaitTimeout: how long the sign-in flow waits for the browser
//     redirect before giving up.
type Config struct {
	ServerURL         string
	RequestTimeout    time.Duration
	DatabaseDSN       string
	OAuthClientID     string
	OAuthClientSecret string
	OAuthWaitTimeout  time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:5000"
	c.RequestTimeout = 30 * time.Second
	c.DatabaseDSN = "zenchat.db"
	c.OAuthWaitTimeout = 5 * time.Minute
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from the environment (including an optional .env file), a JSON file (if
// present), and command-line flags. Later sources take precedence over
// earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
