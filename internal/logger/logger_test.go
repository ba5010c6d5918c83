package logger_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"codeberg.org/mutker/netfault/internal/errors"
	"codeberg.org/mutker/netfault/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestErrorWithCode(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&buf, logger.DebugLevel, true)

	cause := fmt.Errorf("dial qq.example:443: %w", errors.NewArgumentError("port", "bad port\r\nforged=1"))
	err := errors.New().Wrap(cause)

	log.ErrorWithCode(err).Msg("request failed")

	entry := decode(t, &buf)
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "request failed", entry["message"])
	assert.Equal(t, "ParameterError", entry["error_code"])
	assert.Equal(t, "dial qq.example:443: port: bad portforged=1", entry["error_message"])
	assert.Equal(t, "dial qq.example:443: port: bad portforged=1", entry["cause"])
	assert.Equal(t, []any{
		"dial qq.example:443: port: bad portforged=1",
		"port: bad portforged=1",
	}, entry["error_chain"])
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("\n")))
}

func TestErrorWithContext(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&buf, logger.DebugLevel, true)

	log.ErrorWithContext(errors.New().New(errors.ErrTimeout), "poller", "poll_messages").Send()

	entry := decode(t, &buf)
	assert.Equal(t, "Timeout", entry["error_code"])
	assert.Equal(t, "poller", entry["component"])
	assert.Equal(t, "poll_messages", entry["operation"])
	assert.NotContains(t, entry, "cause")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&buf, logger.ErrorLevel, true)

	log.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	log.Error().Msg("shown")
	assert.NotZero(t, buf.Len())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    logger.LogLevel
		wantErr bool
	}{
		{name: "debug", want: logger.DebugLevel},
		{name: "info", want: logger.InfoLevel},
		{name: "warning", want: logger.WarnLevel},
		{name: "warn", want: logger.WarnLevel},
		{name: "error", want: logger.ErrorLevel},
		{name: "loud", want: logger.WarnLevel, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := logger.ParseLevel(tt.name)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, errors.ErrParameterError, errors.Classify(err))
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
