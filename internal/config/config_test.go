package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every key this package reads so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"API_URL", "WS_URL", "LOG_LEVEL", "LOG_FILE", "PING_INTERVAL", "READ_LIMIT", "MODELS", "SHOW_QR", "PORT", "IMPOSTER"} {
		t.Setenv(k, "")
	}
}

func TestLoadClient_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadClient(nil)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", cfg.APIURL)
	assert.Equal(t, "ws://localhost:8000", cfg.WSURL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "stderr", cfg.LogFile)
	assert.Equal(t, DefaultPingInterval, cfg.PingInterval)
	assert.Zero(t, cfg.ReadLimit)
	assert.Nil(t, cfg.Models)
	assert.False(t, cfg.ShowQR)
}

func TestLoadClient_EnvVars(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_URL", "https://engine.example.com/")
	t.Setenv("PING_INTERVAL", "0")
	t.Setenv("READ_LIMIT", "8 MiB")
	t.Setenv("MODELS", "a, b,c ,d")
	t.Setenv("SHOW_QR", "true")

	cfg, err := LoadClient(nil)
	require.NoError(t, err)
	assert.Equal(t, "https://engine.example.com", cfg.APIURL)
	assert.Equal(t, "wss://engine.example.com", cfg.WSURL)
	assert.Zero(t, cfg.PingInterval)
	assert.Equal(t, int64(8<<20), cfg.ReadLimit)
	assert.Equal(t, []string{"a", "b", "c", "d"}, cfg.Models)
	assert.True(t, cfg.ShowQR)
}

func TestLoadClient_CLIOverridesEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_URL", "http://env:1")
	t.Setenv("WS_URL", "ws://env:1")

	cfg, err := LoadClient([]string{"-api", "http://cli:2", "-ws", "ws://push:3", "-ping", "5s"})
	require.NoError(t, err)
	assert.Equal(t, "http://cli:2", cfg.APIURL)
	assert.Equal(t, "ws://push:3", cfg.WSURL)
	assert.Equal(t, 5*time.Second, cfg.PingInterval)
}

func TestLoadClient_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
	}{
		{"api scheme", map[string]string{"API_URL": "ftp://x"}, nil},
		{"ping", map[string]string{"PING_INTERVAL": "soon"}, nil},
		{"negative ping", nil, []string{"-ping", "-1s"}},
		{"read limit", map[string]string{"READ_LIMIT": "lots"}, nil},
		{"roster gap", map[string]string{"MODELS": "a,,b"}, nil},
		{"show qr", map[string]string{"SHOW_QR": "maybe"}, nil},
		{"unknown flag", nil, []string{"-nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadClient(tt.args)
			assert.Error(t, err)
		})
	}
}

func TestLoadEngine(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadEngine(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, -1, cfg.Imposter)

	t.Setenv("PORT", "9000")
	t.Setenv("IMPOSTER", "2")
	cfg, err = LoadEngine(nil)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 2, cfg.Imposter)

	cfg, err = LoadEngine([]string{"-p", "8080", "-imposter", "0"})
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 0, cfg.Imposter)

	_, err = LoadEngine([]string{"-imposter", "7"})
	assert.Error(t, err)

	t.Setenv("PORT", "eighty")
	_, err = LoadEngine(nil)
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	// godotenv keeps variables that are set, even when empty.
	require.NoError(t, os.Unsetenv("API_URL"))
	dir := t.TempDir()
	t.Chdir(dir)

	require.NoError(t, LoadDotEnv(), "a missing .env is fine")

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("API_URL=http://dotenv:9\n"), 0o600))
	require.NoError(t, LoadDotEnv())
	cfg, err := LoadClient(nil)
	require.NoError(t, err)
	assert.Equal(t, "http://dotenv:9", cfg.APIURL)
}

func TestNewLogger(t *testing.T) {
	log, err := NewLogger("debug", filepath.Join(t.TempDir(), "client.log"))
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(-1))

	log, err = NewLogger("warn", "")
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(0))

	_, err = NewLogger("loud", "")
	assert.Error(t, err)
}
