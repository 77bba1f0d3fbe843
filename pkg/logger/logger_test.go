package logger

import (
	"testing"

	"chapter_tracker_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestLevelFor(t *testing.T) {
	cases := []struct {
		mode, level string
		want        zap.AtomicLevel
	}{
		{"debug", "error", zap.NewAtomicLevelAt(zap.DebugLevel)},
		{"release", "warn", zap.NewAtomicLevelAt(zap.WarnLevel)},
		{"release", "bogus", zap.NewAtomicLevelAt(zap.InfoLevel)},
	}
	for _, tc := range cases {
		cfg := &config.Config{Server: config.ServerConfig{Mode: tc.mode}, Log: config.LogConfig{Level: tc.level}}
		assert.Equal(t, tc.want.Level(), levelFor(cfg), "mode=%s level=%s", tc.mode, tc.level)
	}
}

func TestApplyConfigChangesLevel(t *testing.T) {
	ApplyConfig(&config.Config{Server: config.ServerConfig{Mode: "release"}, Log: config.LogConfig{Level: "error"}})
	assert.False(t, level.Enabled(zap.WarnLevel))

	ApplyConfig(&config.Config{Server: config.ServerConfig{Mode: "release"}, Log: config.LogConfig{Level: "info"}})
	assert.True(t, level.Enabled(zap.InfoLevel))
}
