// Package config provides configuration for the insights service.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the service configuration.
type Config struct {
	// Server settings
	HTTPPort         int
	CORSAllowOrigins []string

	// Remote assistants API
	OpenAIAPIKey  string
	OpenAIBaseURL string
	AssistantID   string
	Mode          string

	// Upstream HTTP behaviour
	UpstreamTimeout    time.Duration
	UpstreamRetryCount int

	// Run polling
	PollInterval    time.Duration
	PollMaxInterval time.Duration
	PollMultiplier  float64
	PollMaxAttempts int
	RunTimeout      time.Duration

	// Storage
	StoreDriver string
	DatabaseURL string

	// Logging
	LogLevel string
}

// Load loads configuration from a .env file (when present) and environment variables.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:           getEnvInt("PORT", getEnvInt("HTTP_PORT", 5000)),
		CORSAllowOrigins:   getEnvList("CORS_ALLOW_ORIGINS", []string{"*"}),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", "https://api.openai.com"),
		AssistantID:        getEnv("ASSISTANT_ID", "asst_ppc_insights"),
		Mode:               getEnv("INSIGHTS_MODE", ""),
		UpstreamTimeout:    time.Duration(getEnvInt("UPSTREAM_TIMEOUT_MS", 30000)) * time.Millisecond,
		UpstreamRetryCount: getEnvInt("UPSTREAM_RETRY_COUNT", 3),
		PollInterval:       time.Duration(getEnvInt("POLL_INTERVAL_MS", 2000)) * time.Millisecond,
		PollMaxInterval:    time.Duration(getEnvInt("POLL_MAX_INTERVAL_MS", 2000)) * time.Millisecond,
		PollMultiplier:     getEnvFloat("POLL_MULTIPLIER", 1.0),
		PollMaxAttempts:    getEnvInt("POLL_MAX_ATTEMPTS", 0),
		RunTimeout:         time.Duration(getEnvInt("RUN_TIMEOUT_MS", 300000)) * time.Millisecond,
		StoreDriver:        getEnv("STORE_DRIVER", "memory"),
		DatabaseURL:        getEnv("DATABASE_URL", ":memory:"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvList(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
