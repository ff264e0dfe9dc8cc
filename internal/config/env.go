package config

import (
	"os"
	"strconv"
	"time"
)

// Environment variable names for overrides — layer 1.
const (
	EnvLogLevel      = "MUTENGINE_LOG_LEVEL"
	EnvBatchDelay    = "MUTENGINE_BATCH_DELAY"
	EnvDispatchLimit = "MUTENGINE_DISPATCH_LIMIT"
	EnvSyncURL       = "MUTENGINE_SYNC_URL"
)

// ApplyEnvOverrides mutates cfg in place for every recognized environment
// variable that is set. Malformed numeric/duration values are ignored
// (the file/default value is kept) rather than failing resolution.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}

	if v := os.Getenv(EnvBatchDelay); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.BatchDelay = d
		}
	}

	if v := os.Getenv(EnvDispatchLimit); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.DispatchLimit = n
		}
	}

	if v := os.Getenv(EnvSyncURL); v != "" {
		cfg.SyncURL = v
	}
}
