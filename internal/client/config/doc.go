// Package config loads runtime configuration for the ZenChat CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Environment variables, including an optional .env file (see parseEnv).
//  3. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-s string   base URL of the backend REST API
//	-d string   sqlite DSN for the local credential store
//	-t int      per-request timeout (seconds)
//
// # JSON schema
//
// The JSON loader uses timex.Duration for timeouts, so values can be either
// strings like "30s" or integer nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:5000",
//	  "request_timeout": "30s",
//	  "database_dsn": "zenchat.db",
//	  "oauth_client_id": "...",
//	  "oauth_wait_timeout": "5m"
//	}
//
// Primary API
//
//   - type Config                     — holds connection, storage and OAuth settings
//   - func LoadConfig() *Config       — builds Config by applying defaults, env, JSON, then flags
//   - func (*Config) LoadDefaults()   — sets sensible defaults
package config
