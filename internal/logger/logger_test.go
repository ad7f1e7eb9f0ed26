//go:build unit

package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-journal-app/internal/config"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "output: %s", buf.String())
	return entry
}

func TestNew_Formats(t *testing.T) {
	t.Run("console", func(t *testing.T) {
		var buf bytes.Buffer
		New(config.LogConfig{Level: "info", Format: "console"}, &buf).Info("server listening")

		assert.Contains(t, buf.String(), "server listening")
		assert.NotContains(t, buf.String(), `"message"`)
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		New(config.LogConfig{Level: "error", Format: "json"}, &buf).Error(errors.New("disk full"), "upload failed")

		entry := decode(t, &buf)
		assert.Equal(t, "error", entry["level"])
		assert.Equal(t, "upload failed", entry["message"])
		assert.Equal(t, "disk full", entry["error"])
	})
}

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		level     string
		debugSeen bool
		infoSeen  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"warn", false, false},
		{"", false, true},
		{"chatty", false, true},
	}
	for _, tt := range tests {
		t.Run("level="+tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			log := New(config.LogConfig{Level: tt.level, Format: "console"}, &buf)

			log.Debug("debug line")
			log.Info("info line")
			log.Warn("warn line")

			assert.Equal(t, tt.debugSeen, bytes.Contains(buf.Bytes(), []byte("debug line")))
			assert.Equal(t, tt.infoSeen, bytes.Contains(buf.Bytes(), []byte("info line")))
			assert.Contains(t, buf.String(), "warn line")
		})
	}
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	log := New(config.LogConfig{Level: "debug", Format: "json"}, &buf).
		With(map[string]interface{}{"event_id": 7})

	log.Debug("joined")

	entry := decode(t, &buf)
	assert.Equal(t, float64(7), entry["event_id"])
	assert.Equal(t, "debug", entry["level"])
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() {
		log := Nop().With(map[string]interface{}{"k": "v"})
		log.Info("discarded")
		log.Error(errors.New("x"), "discarded")
	})
}
