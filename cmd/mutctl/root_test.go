package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rivergrove/mutengine/internal/config"
)

func resetFlags() {
	flagVerbose = false
	flagDebug = false
	flagQuiet = false
}

func TestBuildLoggerDefaultIsInfo(t *testing.T) {
	resetFlags()

	logger := buildLogger(nil)

	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))
}

func TestBuildLoggerVerboseFlag(t *testing.T) {
	resetFlags()
	flagVerbose = true
	defer resetFlags()

	logger := buildLogger(nil)

	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelInfo))
}

func TestBuildLoggerDebugFlagOverridesConfig(t *testing.T) {
	resetFlags()
	flagDebug = true
	defer resetFlags()

	cfg := config.DefaultConfig()
	cfg.LogLevel = "error"

	logger := buildLogger(cfg)

	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))
}

func TestBuildLoggerQuietFlagSuppressesInfo(t *testing.T) {
	resetFlags()
	flagQuiet = true
	defer resetFlags()

	logger := buildLogger(nil)

	assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelError))
}

func TestBuildLoggerConfigLevelAppliesWithoutFlags(t *testing.T) {
	resetFlags()

	cfg := config.DefaultConfig()
	cfg.LogLevel = "debug"

	logger := buildLogger(cfg)

	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))
}

func TestMustCLIContextPanicsWithoutPriorLoad(t *testing.T) {
	assert.Panics(t, func() {
		mustCLIContext(context.Background())
	})
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	cmd := newRootCmd()

	names := make([]string, 0)
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}

	assert.Contains(t, names, "demo")
	assert.Contains(t, names, "inspect")
}
