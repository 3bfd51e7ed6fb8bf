package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestLoad_LayersAndDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
db:
  host: localhost
  user: app
  password: ${DB_SECRET}
  name: classroom
server:
  port: "8080"
outbox:
  interval: 2s
board_cache:
  enabled: true
  ttl: 30s
`)
	writeFile(t, dir, "test.yaml", `
db:
  host: db.test
log:
  level: debug
`)
	writeFile(t, dir, "secrets.env", "DB_SECRET=s3cret\n")

	cfg, err := Load("test", dir)
	require.NoError(t, err)

	assert.Equal(t, "db.test", cfg.DB.Host)
	assert.Equal(t, "app", cfg.DB.User)
	assert.Equal(t, "s3cret", cfg.DB.Password)
	assert.Equal(t, 5432, cfg.DB.Port)
	assert.Equal(t, 2*time.Second, cfg.Outbox.Interval)
	assert.Equal(t, 100, cfg.Outbox.BatchSize)
	assert.True(t, cfg.BoardCache.Enabled)
	assert.Equal(t, 30*time.Second, cfg.BoardCache.TTL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, int64(5), cfg.Worker.MaxRetries)
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "db:\n  host: localhost\n")
	t.Setenv("DB_HOST", "override")
	t.Setenv("SERVER_PORT", "9090")

	cfg, err := Load("local", dir)
	require.NoError(t, err)
	assert.Equal(t, "override", cfg.DB.Host)
	assert.Equal(t, "9090", cfg.Server.Port)
}

func TestLoad_EnvOverridesEveryLayer(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
db:
  port: 5432
otel:
  enabled: true
`)
	t.Setenv("DB_PORT", "6432")
	t.Setenv("DB_PASSWORD", "from-env")
	t.Setenv("MQ_URL", "amqp://guest:guest@mq:5672/")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("JWT_SECRET", "jwt")
	t.Setenv("OTEL_ENABLED", "false")
	t.Setenv("BOARD_CACHE_ENABLED", "true")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load("local", dir)
	require.NoError(t, err)
	assert.Equal(t, 6432, cfg.DB.Port)
	assert.Equal(t, "from-env", cfg.DB.Password)
	assert.Equal(t, "amqp://guest:guest@mq:5672/", cfg.MQ.URL)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, "jwt", cfg.JWT.Secret)
	assert.False(t, cfg.OTel.Enabled)
	assert.True(t, cfg.BoardCache.Enabled)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_UnparsableEnvKeepsFileValue(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "db:\n  port: 5433\n")
	t.Setenv("DB_PORT", "not-a-port")

	cfg, err := Load("local", dir)
	require.NoError(t, err)
	assert.Equal(t, 5433, cfg.DB.Port)
}
