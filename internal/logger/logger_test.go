package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"framepickr/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerWritesLevelFiles(t *testing.T) {
	cfg := config.Default()
	cfg.LogDirectory = filepath.Join(t.TempDir(), "logs")

	l, err := NewLogger(cfg)
	require.NoError(t, err)

	l.Info("batch %s started", "b1")
	l.Warning("cascade %s returned nothing", "eye")
	l.Error("persist failed: %v", "disk full")

	info, err := os.ReadFile(filepath.Join(cfg.LogDirectory, InfoFile))
	require.NoError(t, err)
	assert.Contains(t, string(info), "batch b1 started")

	warning, err := os.ReadFile(filepath.Join(cfg.LogDirectory, WarningFile))
	require.NoError(t, err)
	assert.Contains(t, string(warning), "cascade eye returned nothing")

	errorLog, err := os.ReadFile(filepath.Join(cfg.LogDirectory, ErrorFile))
	require.NoError(t, err)
	assert.Contains(t, string(errorLog), "persist failed: disk full")
}

func TestCleanLogsTruncates(t *testing.T) {
	cfg := config.Default()
	cfg.LogDirectory = t.TempDir()

	l, err := NewLogger(cfg)
	require.NoError(t, err)

	l.Warning("something odd")
	require.NoError(t, l.CleanLogs(WarningFile))

	data, err := os.ReadFile(filepath.Join(cfg.LogDirectory, WarningFile))
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestWriterLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf)

	l.Info("hello %d", 1)
	l.Error("bye")

	assert.Contains(t, buf.String(), "INFO    ")
	assert.Contains(t, buf.String(), "hello 1")
	assert.Contains(t, buf.String(), "ERROR   ")
	assert.NoError(t, l.CleanLogs(InfoFile))
}
