package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config with values from the process environment. A .env
// file in the working directory is loaded first when present; variables
// already set in the environment win over the file.
//
// Recognized variables:
//
//	ZENCHAT_SERVER_URL        base URL of the backend REST API
//	ZENCHAT_DATABASE_DSN      sqlite DSN for the local credential store
//	ZENCHAT_REQUEST_TIMEOUT   per-request timeout, e.g. "30s"
//	GOOGLE_OAUTH_CLIENT_ID    OAuth client id
//	GOOGLE_OAUTH_CLIENT_SECRET OAuth client secret (empty for Desktop clients)
func parseEnv(cfg *Config) {
	_ = godotenv.Load()

	if v := os.Getenv("ZENCHAT_SERVER_URL"); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv("ZENCHAT_DATABASE_DSN"); v != "" {
		cfg.DatabaseDSN = v
	}
	if v := os.Getenv("ZENCHAT_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RequestTimeout = d
		}
	}
	if v := os.Getenv("GOOGLE_OAUTH_CLIENT_ID"); v != "" {
		cfg.OAuthClientID = v
	}
	if v := os.Getenv("GOOGLE_OAUTH_CLIENT_SECRET"); v != "" {
		cfg.OAuthClientSecret = v
	}
}
