package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewWriter_JSONWithService(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWriter(&buf, Config{Level: "info", Format: "json", Service: "symexpr"})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("evaluated", "precision", 20)

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "evaluated", rec["msg"])
	assert.Equal(t, "symexpr", rec["service"])
	assert.Equal(t, float64(20), rec["precision"])
}

func TestNewWriter_TextLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWriter(&buf, Config{Level: "warn"})
	require.NoError(t, err)

	logger.Info("quiet")
	assert.Empty(t, buf.String())
	logger.Warn("loud")
	assert.Contains(t, buf.String(), "loud")
}

func TestNewWriter_UnknownFormat(t *testing.T) {
	_, err := NewWriter(&bytes.Buffer{}, Config{Format: "xml"})
	assert.Error(t, err)
}
