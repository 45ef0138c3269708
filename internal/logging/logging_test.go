// ABOUTME: Tests that logging.New selects the right handler and respects
// ABOUTME: the configured level.

package logging

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/csgw/gateway/internal/config"
)

func TestNew_JSONFormatUsesJSONHandler(t *testing.T) {
	logger := New(config.LoggingConfig{Level: "info", Format: "json"})
	_, ok := logger.Handler().(*slog.JSONHandler)
	assert.True(t, ok)
}

func TestNew_DefaultFormatUsesColorHandler(t *testing.T) {
	logger := New(config.LoggingConfig{Level: "debug", Format: "text"})
	_, ok := logger.Handler().(*colorHandler)
	assert.True(t, ok)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("unknown"))
}
