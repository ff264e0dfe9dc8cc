package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rivergrove/mutengine/internal/config"
)

func contextWithCLI(t *testing.T) context.Context {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cc := &CLIContext{Cfg: config.DefaultConfig(), Logger: logger}

	return context.WithValue(context.Background(), cliContextKey{}, cc)
}

func captureStdout(t *testing.T, f func()) string {
	t.Helper()

	r, w, err := os.Pipe()
	require.NoError(t, err)

	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	f()

	require.NoError(t, w.Close())

	out, err := io.ReadAll(r)
	require.NoError(t, err)

	return string(out)
}

func TestDemoCommandRunsScenarioAndPrintsSummary(t *testing.T) {
	cmd := newDemoCmd()
	cmd.SetContext(contextWithCLI(t))

	var buf bytes.Buffer
	cmd.SetOut(&buf)

	output := captureStdout(t, func() {
		require.NoError(t, runDemo(cmd, nil))
	})

	require.Contains(t, output, "mutengine demo summary")
	require.Contains(t, output, "lock rejected:  1")
}
