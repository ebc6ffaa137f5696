package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartmove/internal/config"
)

func TestNewWithWriter_JSON(t *testing.T) {
	t.Setenv("APP_ENV", "")
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "scheduler", config.LoggingConfig{Level: "warn", Format: "json"})

	log.Info().Msg("dropped")
	log.Warn().Str("request_id", "r1").Msg("kept")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "scheduler", entry["component"])
	assert.Equal(t, "r1", entry["request_id"])
	assert.Equal(t, "kept", entry["message"])
	assert.Equal(t, "warn", entry["level"])
}

func TestNewWithWriter_BadLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "scheduler", config.LoggingConfig{Level: "loud"})

	log.Debug().Msg("hidden")
	assert.Zero(t, buf.Len())
	log.Info().Msg("shown")
	assert.NotZero(t, buf.Len())
}

func TestNewWithWriter_Console(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "cli", config.LoggingConfig{Format: "console"})

	log.Info().Msg("hello")

	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), "component=")
}
