package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	ClientConfig
	CorsConfig
	SecurityConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

// ClientConfig drives the HTTP client core and the storage areas behind the token store.
type ClientConfig interface {
	GetAPIBaseURL() string
	GetRequestTimeout() time.Duration
	GetMaxRetries() int
	GetRetryBackoffBase() time.Duration
	GetStorageBackend() string
	GetStorageDir() string
	GetRedisAddr() string
	GetRedisPrefix() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Security
}

// New loads an optional .env file and then reads the process environment.
// Variables already set in the environment win over the .env file.
func New() (Config, error) {
	return Load(".env")
}

// Load is New with an explicit dotenv path. A missing file is not an error.
func Load(dotenvPath string) (Config, error) {
	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("[config.Load] failed to read %s: %w", dotenvPath, err)
		}
	}

	var env EnvVars
	if err := cleanenv.ReadEnv(&env); err != nil {
		return nil, fmt.Errorf("[config.Load] failed to read environment: %w", err)
	}

	return mainConfig{
		EnvVars:  env,
		Cors:     Cors{origins: parseOrigins(env.AllowedOrigins)},
		Security: Security{env: env},
	}, nil
}
