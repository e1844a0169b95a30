package gateway

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarluq/dashcache/internal/config"
)

func TestNewLogger_FileOutput(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "dashcache.log")
	logger, err := NewLogger(config.LoggingConfig{Level: "warn", Format: "json", Output: path})
	require.NoError(t, err)

	logger.Info().Msg("dropped")
	logger.Warn().Str("key", "GET /offers").Msg("kept")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), `"key":"GET /offers"`)
	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())
}

func TestNewLogger_BadOutput(t *testing.T) {
	t.Parallel()

	_, err := NewLogger(config.LoggingConfig{Output: filepath.Join(t.TempDir(), "missing", "x.log")})
	require.Error(t, err)
}

func TestShouldUsePretty(t *testing.T) {
	t.Parallel()

	assert.True(t, shouldUsePretty(config.LoggingConfig{Pretty: true, Format: "json"}, nil))
	assert.True(t, shouldUsePretty(config.LoggingConfig{Format: "pretty"}, nil))
	assert.False(t, shouldUsePretty(config.LoggingConfig{Format: "json"}, os.Stdout))
	assert.False(t, shouldUsePretty(config.LoggingConfig{Format: "console"}, nil))
}

func TestAddRequestID(t *testing.T) {
	t.Parallel()

	ctx := AddRequestID(context.Background(), "")
	id := GetRequestID(ctx)
	assert.Len(t, id, 36)

	ctx = AddRequestID(context.Background(), "fixed")
	assert.Equal(t, "fixed", GetRequestID(ctx))
	assert.Empty(t, GetRequestID(context.Background()))
}

func TestFormatLevel(t *testing.T) {
	t.Parallel()

	w := buildConsoleWriter(os.Stderr)
	assert.Equal(t, "\033[33mWRN\033[0m", w.FormatLevel("warn"))
	assert.Equal(t, "trace", w.FormatLevel("trace"))
	assert.Equal(t, "", w.FormatMessage(nil))
	assert.Equal(t, "-> hi", w.FormatMessage("hi"))
}
