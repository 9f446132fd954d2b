package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"onebox/backend/internal/config"
)

func TestNew_LevelFallback(t *testing.T) {
	log, err := New(config.LogConfig{Level: "not-a-level"})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_WritesToFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "onebox.log")

	log, err := New(config.LogConfig{Level: "debug", File: file, MaxSizeMB: 1})
	require.NoError(t, err)

	log.Info("sync finished", zap.Int("new_emails", 3))
	_ = log.Sync()

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))
	assert.Contains(t, line, `"message":"sync finished"`)
	assert.Contains(t, line, `"new_emails":3`)
	assert.Contains(t, line, `"logger":"onebox"`)
}

func TestNewDevelopment(t *testing.T) {
	log := NewDevelopment()
	require.NotNil(t, log)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
}
