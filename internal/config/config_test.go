package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, Validate(cfg))
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, int64(4), cfg.DispatchLimit)
}

func TestLoadWithoutPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadParsesFileOverridingDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mutengine.toml")
	contents := `
log_level = "debug"
dispatch_limit = 8
sync_url = "wss://sync.example/ws"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, int64(8), cfg.DispatchLimit)
	assert.Equal(t, "wss://sync.example/ws", cfg.SyncURL)
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"), nil)
	assert.Error(t, err)
}

func TestEnvOverridesTakePrecedenceOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mutengine.toml")
	require.NoError(t, os.WriteFile(path, []byte(`log_level = "debug"`), 0o644))

	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvBatchDelay, "250ms")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 250*time.Millisecond, cfg.BatchDelay)
}

func TestApplyEnvOverridesIgnoresMalformedValues(t *testing.T) {
	cfg := DefaultConfig()
	t.Setenv(EnvBatchDelay, "not-a-duration")
	t.Setenv(EnvDispatchLimit, "not-a-number")

	ApplyEnvOverrides(cfg)

	assert.Equal(t, defaultBatchDelay, cfg.BatchDelay)
	assert.Equal(t, int64(defaultDispatchLimit), cfg.DispatchLimit)
}

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "verbose"
	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsNegativeBatchDelay(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BatchDelay = -time.Millisecond
	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsDispatchLimitBelowOne(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DispatchLimit = 0
	assert.Error(t, Validate(cfg))
}

func TestLoadRejectsInvalidFileValueAtValidation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mutengine.toml")
	require.NoError(t, os.WriteFile(path, []byte(`dispatch_limit = 0`), 0o644))

	_, err := Load(path, nil)
	assert.Error(t, err)
}
