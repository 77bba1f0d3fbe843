package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"chapter_tracker_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() config.Config {
	return config.Config{
		Server:    config.ServerConfig{Port: "3000", Mode: "debug"},
		Database:  config.DatabaseConfig{Driver: "mysql"},
		JWT:       config.JWTConfig{Secret: "secret", ExpireHours: 1},
		Cache:     config.CacheConfig{ListTTLSeconds: 3600, ItemTTLSeconds: 300},
		RateLimit: config.RateLimitConfig{MaxRequests: 30, WindowSeconds: 60},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidate_EmptySecret(t *testing.T) {
	cfg := validConfig()
	cfg.JWT.Secret = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT secret cannot be empty")
}

func TestValidate_ShortSecretInRelease(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Mode = "release"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too short")
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Driver = "mongodb"
	assert.Error(t, cfg.Validate())
}

func TestValidate_UnknownMode(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Mode = "production"
	assert.Error(t, cfg.Validate())
}

func TestValidate_NonPositiveLimits(t *testing.T) {
	cfg := validConfig()
	cfg.RateLimit.WindowSeconds = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Cache.ItemTTLSeconds = -1
	assert.Error(t, cfg.Validate())
}

func TestLoadConfig_DefaultsAndEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("REDIS_HOST", "cache.internal")
	t.Setenv("RATE_LIMIT_MAX_REQUESTS", "50")
	t.Setenv("JWT_EXPIRE_HOURS", "48")

	cfg, err := config.LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.JWT.Secret)
	assert.Equal(t, "cache.internal", cfg.Redis.Host)
	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.Equal(t, 50, cfg.RateLimit.MaxRequests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window())
	assert.Equal(t, time.Hour, cfg.Cache.ListTTL())
	assert.Equal(t, 5*time.Minute, cfg.Cache.ItemTTL())
	assert.Equal(t, 48, cfg.JWT.ExpireHours)
	assert.Equal(t, 48*time.Hour, cfg.JWT.ExpireTime())
	assert.Empty(t, cfg.FilePath)
}

func TestLoadConfig_FromFile(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
server:
  port: "9090"
database:
  driver: sqlite
  dsn: "file:test.db"
jwt:
  secret: file-secret
  expire_hours: 2
cache:
  list_ttl_seconds: 120
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o644))

	cfg, err := config.LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "file:test.db", cfg.Database.DSN)
	assert.Equal(t, 2*time.Hour, cfg.JWT.ExpireTime())
	assert.Equal(t, 2*time.Minute, cfg.Cache.ListTTL())
	assert.Equal(t, filepath.Join(dir, "config.yaml"), cfg.FilePath)
}

func TestLoadConfig_DefaultExpiry(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-secret")

	cfg, err := config.LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, cfg.JWT.ExpireTime())
}

func TestValidate_NegativeExpiry(t *testing.T) {
	cfg := validConfig()
	cfg.JWT.ExpireHours = -1
	assert.Error(t, cfg.Validate())
}

func TestLoadConfig_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := config.LoadConfig(t.TempDir())
	assert.Error(t, err)
}
