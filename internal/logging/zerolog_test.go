package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseZerologLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseZerologLevel(tt.input))
		})
	}
}

func TestNewZerolog_FileAndGraylog(t *testing.T) {
	var file, gl bytes.Buffer
	logger := NewZerolog("info", &file, &gl, func() []slog.Attr {
		return []slog.Attr{slog.Int("adaptersAttached", 2)}
	})

	logger.Debug().Msg("hidden")
	logger.Info().Uint64("vehicle", 7).Msg("Adapter attached")

	assert.NotContains(t, file.String(), "hidden")
	assert.Contains(t, file.String(), "Adapter attached")
	assert.NotContains(t, file.String(), "\x1b[", "file output has no colors")

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(gl.String())), &rec))
	assert.Equal(t, "Adapter attached", rec["message"])
	assert.Equal(t, float64(7), rec["vehicle"])
	assert.Equal(t, float64(2), rec["adaptersAttached"])
}

func TestNewZerolog_ConsoleWithoutFile(t *testing.T) {
	console := captureStdout(t)

	logger := NewZerolog("debug", nil, nil, nil)
	logger.Debug().Msg("to console")

	assert.Contains(t, console.String(), "to console")
}
