package config

import "fmt"

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks cfg for internally inconsistent values. It does not
// touch the filesystem or network.
func Validate(cfg *Config) error {
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("log_level must be one of debug/info/warn/error, got %q", cfg.LogLevel)
	}

	if cfg.BatchDelay < 0 {
		return fmt.Errorf("batch_delay must not be negative, got %s", cfg.BatchDelay)
	}

	if cfg.DispatchLimit < 1 {
		return fmt.Errorf("dispatch_limit must be at least 1, got %d", cfg.DispatchLimit)
	}

	return nil
}
