package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLog(t *testing.T, verbose bool) string {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logPath := filepath.Join(t.TempDir(), "galerija.log")
	cleanup, err := setupLogger(logPath, verbose)
	require.NoError(t, err)

	slog.Debug("retrying request after credential refresh")
	slog.Info("fetched orders")
	slog.Warn("order restore failed")
	cleanup()

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	return string(data)
}

func TestVerboseLoggerKeepsDebugAndInfo(t *testing.T) {
	out := captureLog(t, true)
	assert.Contains(t, out, "retrying request after credential refresh")
	assert.Contains(t, out, "fetched orders")
	assert.Contains(t, out, "order restore failed")
}

func TestDefaultLoggerDropsBelowWarn(t *testing.T) {
	out := captureLog(t, false)
	assert.NotContains(t, out, "retrying request after credential refresh")
	assert.NotContains(t, out, "fetched orders")
	assert.Contains(t, out, "order restore failed")
}
