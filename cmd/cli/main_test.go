package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/assetgrid/internal/cli"
	"github.com/stretchr/testify/require"
)

func TestRun_InvalidPipeline(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// A syntax error in the pipeline file must surface as an error, not a panic.
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "assetgrid.hcl")
	require.NoError(t, os.WriteFile(filePath, []byte("task \"styles\" {\n"), 0o600))
	args := []string{"build", "--pipeline", filePath, "--source", tempDir, "--output", filepath.Join(tempDir, "out")}

	// --- Act ---
	runErr := run(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, args)

	// --- Assert ---
	require.Error(t, runErr)
	require.Contains(t, runErr.Error(), "failed to parse HCL file")

	errOut := &bytes.Buffer{}
	require.Equal(t, 1, exitCode(runErr, errOut))
	require.Contains(t, errOut.String(), "failed to parse")
}

func TestRun_Help(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}

	err := run(context.Background(), out, &bytes.Buffer{}, []string{"-h"})

	require.NoError(t, err, "run() should return a nil error for help")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	errOut := &bytes.Buffer{}
	require.Equal(t, 2, exitCode(&cli.ExitError{Code: 2, Message: "bad flag"}, errOut))
	require.Equal(t, "bad flag\n", errOut.String())

	errOut.Reset()
	require.Equal(t, 1, exitCode(errors.New("build failed"), errOut))
	require.Equal(t, "build failed\n", errOut.String())
}
