package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/zenchat/zenchat/internal/flagx"
	"github.com/zenchat/zenchat/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify timeouts either as
// strings like "30s" or as integer nanoseconds. After parsing, values
// are copied into the runtime Config (which uses time.Duration).
type JsonConfig struct {
	ServerURL         string         `json:"server_url"`
	RequestTimeout    timex.Duration `json:"request_timeout"`
	DatabaseDSN       string         `json:"database_dsn"`
	OAuthClientID     string         `json:"oauth_client_id"`
	OAuthClientSecret string         `json:"oauth_client_secret"`
	OAuthWaitTimeout  timex.Duration `json:"oauth_wait_timeout"`
}

// parseJson overlays Config with values loaded from a JSON file.
//
// Lookup order for the JSON file path:
//  1. Command-line flags (-c or -config) via flagx.JsonConfigFlags().
//  2. If empty, no JSON is loaded and the function returns.
//
// Only fields present in the file override the current Config; zero values
// are skipped so a partial file does not clobber defaults. Panics on read
// or unmarshal errors (caller should recover if desired).
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerURL != "" {
		cfg.ServerURL = jc.ServerURL
	}
	if jc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = time.Duration(jc.RequestTimeout.Duration)
	}
	if jc.DatabaseDSN != "" {
		cfg.DatabaseDSN = jc.DatabaseDSN
	}
	if jc.OAuthClientID != "" {
		cfg.OAuthClientID = jc.OAuthClientID
	}
	if jc.OAuthClientSecret != "" {
		cfg.OAuthClientSecret = jc.OAuthClientSecret
	}
	if jc.OAuthWaitTimeout.Duration != 0 {
		cfg.OAuthWaitTimeout = time.Duration(jc.OAuthWaitTimeout.Duration)
	}
}
