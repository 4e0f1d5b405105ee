package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "genbi_meta.sqlite", cfg.MetaDBPath)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "main", cfg.DatabaseName)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 100.0, cfg.RateLimitRPS)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.Model.Remote())
	assert.NotEmpty(t, cfg.Warnings, "insecure defaults must warn")
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9999")
	t.Setenv("DATABASE_NAME", "sales_db")
	t.Setenv("MAX_ROWS", "250")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("MODEL_BASE_URL", "https://llm.internal")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, "sales_db", cfg.DatabaseName)
	assert.Equal(t, 250, cfg.MaxRows)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.True(t, cfg.Model.Remote())
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestSlogLevel(t *testing.T) {
	tests := map[string]string{
		"debug": "DEBUG", "info": "INFO", "warn": "WARN",
		"warning": "WARN", "error": "ERROR", "": "INFO", "bogus": "INFO",
	}
	for in, want := range tests {
		cfg := &Config{LogLevel: in}
		assert.Equal(t, want, cfg.SlogLevel().String(), "level %q", in)
	}
}

func TestLoadFromEnv_ProductionHardening(t *testing.T) {
	t.Setenv("ENV", "production")

	_, err := LoadFromEnv()
	require.Error(t, err, "production without JWT_SECRET must fail")

	t.Setenv("JWT_SECRET", "real-secret")
	_, err = LoadFromEnv()
	require.Error(t, err, "production with CORS wildcard must fail")

	t.Setenv("CORS_ALLOWED_ORIGINS", "https://bi.example.com")
	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, []string{"https://bi.example.com"}, cfg.CORSAllowedOrigins)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(`
# comment
LISTEN_ADDR=:7070
QUOTED="hello world"
MALFORMED LINE
`), 0o600))

	t.Setenv("LISTEN_ADDR", ":6060") // real env wins
	t.Setenv("QUOTED", "")

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, ":6060", os.Getenv("LISTEN_ADDR"))
	assert.Equal(t, "hello world", os.Getenv("QUOTED"))

	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}
