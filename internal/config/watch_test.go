package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatchReloadsOnFileWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mutengine.toml")
	require.NoError(t, os.WriteFile(path, []byte(`log_level = "info"`), 0o644))

	reloaded := make(chan *Config, 1)
	stop, err := Watch(path, nil, func(cfg *Config) {
		reloaded <- cfg
	})
	require.NoError(t, err)
	defer stop()

	require.NoError(t, os.WriteFile(path, []byte(`log_level = "warn"`), 0o644))

	select {
	case cfg := <-reloaded:
		require.Equal(t, "warn", cfg.LogLevel)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
}

func TestWatchSkipsInvalidReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mutengine.toml")
	require.NoError(t, os.WriteFile(path, []byte(`log_level = "info"`), 0o644))

	reloaded := make(chan *Config, 1)
	stop, err := Watch(path, nil, func(cfg *Config) {
		reloaded <- cfg
	})
	require.NoError(t, err)
	defer stop()

	require.NoError(t, os.WriteFile(path, []byte(`dispatch_limit = 0`), 0o644))

	select {
	case <-reloaded:
		t.Fatal("onReload should not fire for an invalid config file")
	case <-time.After(500 * time.Millisecond):
	}
}
