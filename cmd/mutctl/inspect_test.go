package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInspectCommandPrintsYAMLDeltaByDefault(t *testing.T) {
	cmd := newInspectCmd()
	cmd.SetContext(contextWithCLI(t))

	output := captureStdout(t, func() {
		require.NoError(t, runInspect(cmd, nil))
	})

	require.Contains(t, output, "set:")
	require.Contains(t, output, "unset:")
	require.Contains(t, output, "credits")
}

func TestInspectCommandPrintsJSONWhenFlagSet(t *testing.T) {
	cmd := newInspectCmd()
	ctx := contextWithCLI(t)
	cc := cliContextFrom(ctx)
	cc.JSON = true
	cmd.SetContext(ctx)

	output := captureStdout(t, func() {
		require.NoError(t, runInspect(cmd, nil))
	})

	require.Contains(t, output, `"Set"`)
}
