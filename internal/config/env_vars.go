package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	StorageBackendFile  = "file"
	StorageBackendRedis = "redis"
)

// EnvVars is populated by cleanenv from the process environment.
type EnvVars struct {
	Env      string `env:"ENV" env-default:"DEV"`
	AppName  string `env:"APP_NAME" env-default:"Property Manager"`
	Port     string `env:"PORT" env-default:"8080"`
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`

	APIBaseURL       string        `env:"API_BASE_URL" env-default:"http://localhost:8080"`
	RequestTimeout   time.Duration `env:"REQUEST_TIMEOUT" env-default:"30s"`
	MaxRetries       int           `env:"MAX_RETRIES" env-default:"3"`
	RetryBackoffBase time.Duration `env:"RETRY_BACKOFF_BASE" env-default:"1s"`
	StorageBackend   string        `env:"STORAGE_BACKEND" env-default:"file"`
	StorageDir       string        `env:"STORAGE_DIR" env-default:"./data"`
	RedisAddr        string        `env:"REDIS_ADDR" env-default:"localhost:6379"`
	RedisPrefix      string        `env:"REDIS_PREFIX" env-default:"propctl:"`

	AllowedOrigins string `env:"ALLOWED_ORIGINS" env-default:"http://localhost:3000"`

	TokenSecret      string        `env:"TOKEN_SECRET" env-default:"dev-secret-change-me"`
	TokenExpiry      time.Duration `env:"TOKEN_EXPIRY" env-default:"24h"`
	ResetTokenExpiry time.Duration `env:"RESET_TOKEN_EXPIRY" env-default:"10m"`
	AdminEmail       string        `env:"ADMIN_EMAIL" env-default:"admin@example.com"`
	AdminPassword    string        `env:"ADMIN_PASSWORD"`

	RevocationRedisAddr string `env:"REVOCATION_REDIS_ADDR"`
}

var _ EnvConfig = EnvVars{}
var _ ClientConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	port := e.Port
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	if e.Env == "" {
		return "DEV"
	}
	return strings.ToUpper(e.Env)
}

func (e EnvVars) GetLogLevel() string {
	return e.LogLevel
}

// GetAPIBaseURL returns the root of the property-management REST API (e.g., "https://api.example.com/api/v1")
func (e EnvVars) GetAPIBaseURL() string {
	return strings.TrimRight(e.APIBaseURL, "/")
}

func (e EnvVars) GetRequestTimeout() time.Duration {
	return e.RequestTimeout
}

func (e EnvVars) GetMaxRetries() int {
	if e.MaxRetries < 0 {
		return 0
	}
	return e.MaxRetries
}

func (e EnvVars) GetRetryBackoffBase() time.Duration {
	return e.RetryBackoffBase
}

func (e EnvVars) GetStorageBackend() string {
	return strings.ToLower(e.StorageBackend)
}

func (e EnvVars) GetStorageDir() string {
	return e.StorageDir
}

func (e EnvVars) GetRedisAddr() string {
	return e.RedisAddr
}

func (e EnvVars) GetRedisPrefix() string {
	return e.RedisPrefix
}
