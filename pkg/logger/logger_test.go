package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out), "logger output should be valid JSON")
	return out
}

func TestNewWithWriter_StructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	log.Info().Str("owner_id", "o-1").Msg("wallet opened")

	out := decodeLine(t, &buf)
	assert.Equal(t, "wallet opened", out["message"])
	assert.Equal(t, "o-1", out["owner_id"])
	assert.Equal(t, "info", out["level"])
	assert.Equal(t, ServiceName, out["service"])
	assert.Contains(t, out, "time")
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	log := Component(NewWithWriter("info", &buf), "eventbus")

	log.Info().Msg("started")

	out := decodeLine(t, &buf)
	assert.Equal(t, "eventbus", out["component"])
	assert.Equal(t, ServiceName, out["service"])
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{" warn ", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"trace", zerolog.TraceLevel},
		{"", zerolog.InfoLevel},
		{"loud", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestNewWithWriter_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("error", &buf)

	log.Info().Msg("dropped")
	assert.Empty(t, buf.String())

	log.Error().Msg("kept")
	assert.NotEmpty(t, buf.String())
}

func TestNew_PrettyMode(t *testing.T) {
	log := New("debug", true)
	assert.Equal(t, zerolog.DebugLevel, log.GetLevel())
}
