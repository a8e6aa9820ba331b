package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/go-property-auth/internal/config"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("PORT", "9090")
	cfg, err := config.Load("")
	require.NoError(t, err)

	require.Equal(t, "DEV", cfg.GetEnv())
	require.Equal(t, ":9090", cfg.GetPort())
	require.Equal(t, 30*time.Second, cfg.GetRequestTimeout())
	require.Equal(t, 3, cfg.GetMaxRetries())
	require.Equal(t, time.Second, cfg.GetRetryBackoffBase())
	require.Equal(t, config.StorageBackendFile, cfg.GetStorageBackend())
	require.Equal(t, 24*time.Hour, cfg.GetTokenExpiry())
	require.Equal(t, 10*time.Minute, cfg.GetResetTokenExpiry())
	require.True(t, cfg.GetAllowedOrigins().IsAllowedOrigin("http://localhost:3000"))
}

func TestLoad_EnvironmentAndDotenv(t *testing.T) {
	dir := t.TempDir()
	dotenv := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("REDIS_PREFIX=fromfile:\nSTORAGE_BACKEND=Redis\n"), 0o600))

	t.Setenv("ENV", "prod")
	t.Setenv("API_BASE_URL", "https://api.example.com/api/v1/")
	t.Setenv("MAX_RETRIES", "-2")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("STORAGE_BACKEND", "Redis")
	t.Setenv("REDIS_PREFIX", "fromenv:")

	cfg, err := config.Load(dotenv)
	require.NoError(t, err)

	require.Equal(t, "PROD", cfg.GetEnv())
	require.Equal(t, "https://api.example.com/api/v1", cfg.GetAPIBaseURL())
	require.Equal(t, 0, cfg.GetMaxRetries())
	require.Equal(t, config.StorageBackendRedis, cfg.GetStorageBackend())
	require.Equal(t, "fromenv:", cfg.GetRedisPrefix(), "environment wins over the dotenv file")
	require.True(t, cfg.GetAllowedOrigins().IsAllowedOrigin("https://b.example.com"))
	require.False(t, cfg.GetAllowedOrigins().IsAllowedOrigin("http://localhost:3000"))
}

func TestLoad_MissingDotenvIsIgnored(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
}
