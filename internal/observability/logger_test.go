package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/teamscrape/internal/config"
)

func TestNewLoggerConsole(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(config.LogConfig{Level: "info", Format: "console"}, &buf)

	log.Debug("hidden")
	log.Info("Transcript written")
	require.NoError(t, log.Sync())

	out := buf.String()
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "teamscrape")
	assert.Contains(t, out, "Transcript written")
	assert.NotContains(t, out, "hidden")
}

func TestNewLoggerBadLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(config.LogConfig{Level: "loud", Format: "console"}, &buf)

	log.Debug("debug line")
	log.Info("info line")

	assert.NotContains(t, buf.String(), "debug line")
	assert.Contains(t, buf.String(), "info line")
}

func TestNewLoggerFileIsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "teamscrape.log")
	var console bytes.Buffer
	log := NewLogger(config.LogConfig{Level: "debug", Format: "console", File: path}, &console)

	log.Debug("Skipping message group")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "Skipping message group", entry["msg"])
	assert.Equal(t, "teamscrape", entry["logger"])
	assert.Contains(t, console.String(), "Skipping message group")
}
