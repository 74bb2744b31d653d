package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out), "log line is JSON")
	return out
}

func TestNewWithWriter_Fields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)
	log.Info().Int64("amount", 21).Msg("proofs received")

	line := decodeLine(t, &buf)
	assert.Equal(t, "proofs received", line["message"])
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, serviceName, line["service"])
	assert.EqualValues(t, 21, line["amount"])
	assert.Contains(t, line, "time")
}

// Each configured level lets through exactly the events at or above it.
func TestNewWithWriter_LevelFilter(t *testing.T) {
	emitted := func(level string) []string {
		var buf bytes.Buffer
		log := NewWithWriter(level, &buf)
		log.Debug().Msg("debug")
		log.Info().Msg("info")
		log.Warn().Msg("warn")
		log.Error().Msg("error")

		var got []string
		for _, l := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
			if l == "" {
				continue
			}
			var e map[string]interface{}
			require.NoError(t, json.Unmarshal([]byte(l), &e))
			got = append(got, e["level"].(string))
		}
		return got
	}

	assert.Equal(t, []string{"debug", "info", "warn", "error"}, emitted("debug"))
	assert.Equal(t, []string{"info", "warn", "error"}, emitted("info"))
	assert.Equal(t, []string{"warn", "error"}, emitted("warn"))
	assert.Equal(t, []string{"error"}, emitted("error"))
	assert.Equal(t, []string{"info", "warn", "error"}, emitted("chatty"))
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"DEBUG":   zerolog.DebugLevel,
		" warn ":  zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), "%q", in)
	}
}

func TestNew_Pretty(t *testing.T) {
	assert.Equal(t, zerolog.WarnLevel, New("warn", true).GetLevel())
	assert.Equal(t, zerolog.InfoLevel, New("", false).GetLevel())
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter("info", &buf)

	ledger := Component(base, "ledger", "npub1alice")
	ledger.Info().Msg("proofs loaded")
	line := decodeLine(t, &buf)
	assert.Equal(t, "ledger", line["component"])
	assert.Equal(t, "npub1alice", line["identity"])
	assert.Equal(t, serviceName, line["service"])

	buf.Reset()
	scheduler := Component(base, "scheduler", "")
	scheduler.Info().Msg("tick")
	line = decodeLine(t, &buf)
	assert.Equal(t, "scheduler", line["component"])
	assert.NotContains(t, line, "identity")
}
