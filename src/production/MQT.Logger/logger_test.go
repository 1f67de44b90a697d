package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	config "gitlab.com/hidroponik/iot.sensor_bridge/src/production/MQT.Config"
)

func TestLogger_FieldsAreCarried(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, zerolog.DebugLevel).
		WithComponent("subscriber").
		WithMessageID("abc-123").
		WithError(errors.New("boom"))

	l.Warn("payload dropped")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "subscriber", entry["component"])
	assert.Equal(t, "abc-123", entry["message_id"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "payload dropped", entry["message"])
}

func TestLogger_WithFieldsAndWarnWithError(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, zerolog.DebugLevel).WithFields(map[string]interface{}{"suhu": 21.5, "lux": 3})

	l.WarnWithError(errors.New("probe failed"), "database unreachable")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, 21.5, entry["suhu"])
	assert.Equal(t, 3.0, entry["lux"])
	assert.Equal(t, "probe failed", entry["error"])
	assert.Equal(t, "database unreachable", entry["message"])
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, zerolog.InfoLevel)

	l.Debug("hidden")
	assert.Zero(t, buf.Len())

	l.Info("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewLogger_FallsBackToInfo(t *testing.T) {
	l := NewLogger(&config.LoggingConfig{Level: "not-a-level", Format: "json"})
	assert.Equal(t, zerolog.InfoLevel, l.GetLevel())
}
