package util

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithOutput(true, "warn", zapcore.AddSync(&buf))

	log.Info("hidden")
	log.Warn("shown")
	require.NoError(t, log.Sync())

	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	assert.Equal(t, "shown", m["msg"])
	assert.Equal(t, "warn", m["level"])
}

func TestNewLoggerBadLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithOutput(false, "loud", zapcore.AddSync(&buf))

	log.Debug("hidden")
	assert.Empty(t, buf.String())

	log.Info("shown")
	assert.Contains(t, buf.String(), "shown")
}
