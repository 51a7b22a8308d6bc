package logging

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"prepkit/internal/config"
)

func TestNewDefaultsToInfo(t *testing.T) {
	log, err := New(config.LoggingConfig{}, false)
	require.NoError(t, err)
	defer log.Sync()

	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestNewVerboseForcesDebug(t *testing.T) {
	log, err := New(config.LoggingConfig{Level: "warn"}, true)
	require.NoError(t, err)
	defer log.Sync()

	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestNewConfiguredLevel(t *testing.T) {
	log, err := New(config.LoggingConfig{Level: "error"}, false)
	require.NoError(t, err)
	defer log.Sync()

	assert.False(t, log.Core().Enabled(zapcore.WarnLevel))
	assert.True(t, log.Core().Enabled(zapcore.ErrorLevel))
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(config.LoggingConfig{Level: "loud"}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestNewJSONFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "prepkit.log")
	log, err := New(config.LoggingConfig{Format: "json", File: path}, false)
	require.NoError(t, err)

	log.Info("index rebuilt")
	log.Sync()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	require.True(t, scanner.Scan(), "log file should have at least one line")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
	assert.Equal(t, "index rebuilt", entry["msg"])
	assert.Equal(t, "info", entry["level"])
}

func TestNewConsoleFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prepkit.log")
	log, err := New(config.LoggingConfig{Format: "text", File: path}, false)
	require.NoError(t, err)

	log.Warn("dead link found")
	log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "dead link found"))
	assert.True(t, strings.Contains(string(data), "WARN"))
}

func TestQuiet(t *testing.T) {
	log := Quiet()
	assert.False(t, log.Core().Enabled(zapcore.ErrorLevel))
}
