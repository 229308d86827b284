package logutil

import (
	"context"
	"log/slog"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSlogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"info":    slog.LevelInfo,
		" DEBUG ": slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range cases {
		got, err := parseSlogLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := parseSlogLevel("loud")
	assert.Error(t, err)
}

func TestNewLoggerFromConfigRejectsUnknownFormat(t *testing.T) {
	_, err := newLoggerFromConfig(loggerConfig{Format: "xml"})
	assert.Error(t, err)

	_, err = newLoggerFromConfig(loggerConfig{Format: "json", Level: "warn"})
	assert.NoError(t, err)
}

func TestLoggerFromViperTraceEnablesDebug(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("trace", true)

	logger, err := LoggerFromViper()
	require.NoError(t, err)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))

	viper.Set("logging.level", "error")
	logger, err = LoggerFromViper()
	require.NoError(t, err)
	assert.False(t, logger.Enabled(context.Background(), slog.LevelWarn), "explicit level should win over trace")
}
