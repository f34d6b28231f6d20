package logger

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"codeberg.org/mutker/wthud/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, level LogLevel) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	InitWithWriter(&buf, level)
	t.Cleanup(func() { InitWithWriter(io.Discard, DebugLevel) })
	return &buf
}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, l := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if l == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(l), &m))
		out = append(out, m)
	}
	return out
}

func TestComponentLogger(t *testing.T) {
	buf := capture(t, DebugLevel)

	With("hud").Info().Int("rpm", 2850).Msg("telemetry available")

	got := lines(t, buf)
	require.Len(t, got, 1)
	assert.Equal(t, "hud", got[0]["component"])
	assert.Equal(t, "info", got[0]["level"])
	assert.Equal(t, float64(2850), got[0]["rpm"])
	assert.Equal(t, "telemetry available", got[0]["message"])
}

func TestLevelFilter(t *testing.T) {
	buf := capture(t, WarnLevel)

	Debug().Msg("hidden")
	Info().Msg("hidden")
	Warn().Msg("shown")
	With("input").Debug().Msg("hidden")

	got := lines(t, buf)
	require.Len(t, got, 1)
	assert.Equal(t, "shown", got[0]["message"])
}

func TestErrorWithCode(t *testing.T) {
	buf := capture(t, DebugLevel)

	err := errors.New().Wrap(errors.ErrWriteConfig, io.ErrShortWrite)
	With("config").ErrorWithCode(err).Msg("writeback failed")

	got := lines(t, buf)
	require.Len(t, got, 1)
	assert.Equal(t, string(errors.ErrWriteConfig), got[0]["error_code"])
	assert.Equal(t, io.ErrShortWrite.Error(), got[0]["error"])
	assert.Equal(t, "config", got[0]["component"])
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", DebugLevel},
		{"INFO", InfoLevel},
		{"", InfoLevel},
		{" warn ", WarnLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("loud")
	assert.True(t, errors.HasCode(err, errors.ErrInvalidLogLevel))
}
