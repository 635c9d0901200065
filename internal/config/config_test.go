package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	t.Run("Defaults without a file", func(t *testing.T) {
		// When: the config file does not exist
		conf, err := Load(filepath.Join(t.TempDir(), "missing.yml"))

		// Then: every default is applied
		require.NoError(t, err)
		assert.Equal(t, "info", conf.LogLevel)
		assert.Equal(t, "8080", conf.SocketPort)
		assert.Equal(t, "/api/ws", conf.SocketPath)
		assert.Equal(t, 10*time.Second, conf.Transport.WriteTimeout)
		assert.Equal(t, 60*time.Second, conf.Transport.PongTimeout)
		assert.Equal(t, 30*time.Second, conf.Transport.PingInterval)
		assert.Equal(t, int64(4096), conf.Transport.MaxMessageSize)
		assert.Equal(t, 32, conf.Transport.SendBuffer)
		assert.False(t, conf.Session.ReclaimAbandoned)
		assert.False(t, conf.Redis.Enabled)
		assert.Equal(t, "localhost:6379", conf.Redis.GetRedisAddr())
	})

	t.Run("Values from the file", func(t *testing.T) {
		// Given: a config file overriding a few keys
		path := writeConfig(t, `
log-level: debug
socket-port: "3000"
allowed-origins:
  - https://play.example.com
transport:
  ping-interval: 5s
  pong-timeout: 15s
session:
  reclaim-abandoned: true
redis:
  enabled: true
  host: cache
  result-ttl: 1h
`)

		// When: loading it
		conf, err := Load(path)

		// Then: the file wins over defaults
		require.NoError(t, err)
		assert.Equal(t, "debug", conf.LogLevel)
		assert.Equal(t, "3000", conf.SocketPort)
		assert.Equal(t, []string{"https://play.example.com"}, conf.AllowedOrigins)
		assert.Equal(t, 5*time.Second, conf.Transport.PingInterval)
		assert.True(t, conf.Session.ReclaimAbandoned)
		assert.True(t, conf.Redis.Enabled)
		assert.Equal(t, "cache:6379", conf.Redis.GetRedisAddr())
		assert.Equal(t, time.Hour, conf.Redis.ResultTTL)
	})

	t.Run("Shipped config keeps games after disconnect", func(t *testing.T) {
		conf, err := Load("../../config.yml")

		require.NoError(t, err)
		assert.False(t, conf.Session.ReclaimAbandoned)
	})

	t.Run("Reclaiming is enabled from the environment", func(t *testing.T) {
		t.Setenv("SESSION_RECLAIM_ABANDONED", "true")

		conf, err := Load(filepath.Join(t.TempDir(), "missing.yml"))

		require.NoError(t, err)
		assert.True(t, conf.Session.ReclaimAbandoned)
	})

	t.Run("Environment wins over the file", func(t *testing.T) {
		path := writeConfig(t, "socket-port: \"3000\"\n")
		t.Setenv("SOCKET_PORT", "4000")

		conf, err := Load(path)

		require.NoError(t, err)
		assert.Equal(t, "4000", conf.SocketPort)
	})

	t.Run("Error on ping slower than pong timeout", func(t *testing.T) {
		path := writeConfig(t, "transport:\n  ping-interval: 90s\n")

		_, err := Load(path)

		require.ErrorIs(t, err, ErrInvalidPingInterval)
	})

	t.Run("Error on relative socket path", func(t *testing.T) {
		path := writeConfig(t, "socket-path: ws\n")

		_, err := Load(path)

		require.ErrorIs(t, err, ErrInvalidSocketPath)
	})
}

func TestMustLoad(t *testing.T) {
	path := writeConfig(t, "transport:\n  send-buffer: -1\n")

	assert.Panics(t, func() { MustLoad(path) })
}
