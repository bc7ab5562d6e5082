package commands

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/davidgumberg/leavelogalone/pkg/compiledb"
	"github.com/davidgumberg/leavelogalone/pkg/config"
)

const initSource = `#include "logging.h"

void Init(int height) {
    LogInfo("Loaded block %s height=%d\n", hash.ToString(), height);
    LogDebug(BCLog::NET, "peer=%d disconnecting\n", peer.id);
    LogPrintf("Shutdown: done\n");
    LogInfo(strprintf("not a literal %d", 1));
}
`

const loggingHeader = `#pragma once
#define LogInfo(...) LogPrintLevel_(__VA_ARGS__)
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// newProject lays out a project with one translation unit and a compilation
// database, and clears environment overrides.
func newProject(t *testing.T) string {
	t.Helper()
	t.Setenv(config.EnvRoot, "")
	t.Setenv(config.EnvWorkers, "")
	t.Setenv(config.EnvLogLevel, "")

	root := filepath.Join(t.TempDir(), "proj")
	file := filepath.Join(root, "src", "init.cpp")
	writeFile(t, file, initSource)
	writeFile(t, filepath.Join(root, "src", "logging.h"), loggingHeader)
	writeFile(t, filepath.Join(root, "src", "test", "init_tests.cpp"), `void T() { LogInfo("test only\n"); }`)

	db := fmt.Sprintf(`[
  {"directory": %q, "file": %q, "arguments": ["c++", "-I", "src", "-c", %q]},
  {"directory": %q, "file": %q, "arguments": ["c++", "-c", %q]}
]`, root, file, file, root, filepath.Join(root, "src", "test", "init_tests.cpp"), "src/test/init_tests.cpp")
	writeFile(t, filepath.Join(root, "build", compiledb.FileName), db)
	return root
}

// execute runs cmd with args and returns what it printed to stdout and stderr.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	ExitCode = ExitOK

	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}
