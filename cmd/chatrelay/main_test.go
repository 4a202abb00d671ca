package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

// execute runs the root command with args and returns its output. Flag
// variables are reset first since cobra keeps them between runs.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cfgFile = ""
	verbose = false
	historyFlags.format = "text"
	runFlags.listenAddress = ""
	runFlags.logLevel = ""
	runFlags.dryRun = false
	runFlags.noWatch = false

	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// writeConfig writes a configuration file into a temporary directory.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

const scriptedYAML = `
model:
  provider: scripted
  scripted:
    fragments: ["Hel", "lo!"]
telemetry:
  logging:
    level: error
`
