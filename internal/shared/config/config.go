package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the gateway
type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Upstream provider
	OpenAIAPIKey  string
	OpenAIBaseURL string

	// Model hierarchy, "name:quality:cost:label" entries separated by
	// commas. Empty selects the built-in default.
	HierarchySpec string

	// Admission control
	DefaultBurstLimit        int
	DefaultRequestsPerMinute int
	DefaultRequestsPerHour   int
	BanDuration              time.Duration

	// Fallback
	MaxAttempts       int
	BackoffBase       time.Duration
	RequestTimeout    time.Duration
	TierResetInterval time.Duration

	// Caching
	CacheTTLSeconds int
	CacheEnabled    bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisURL:      getEnv("REDIS_URL", "redis://localhost:6379"),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		HierarchySpec: getEnv("MODEL_HIERARCHY", ""),

		DefaultBurstLimit:        getEnvInt("BURST_LIMIT", 5),
		DefaultRequestsPerMinute: getEnvInt("REQUESTS_PER_MINUTE", 30),
		DefaultRequestsPerHour:   getEnvInt("REQUESTS_PER_HOUR", 200),
		BanDuration:              getEnvDuration("BAN_DURATION_SECONDS", 300),

		MaxAttempts:       getEnvInt("MAX_RETRY_ATTEMPTS", 3),
		BackoffBase:       getEnvDuration("BACKOFF_BASE_SECONDS", 1),
		RequestTimeout:    getEnvDuration("REQUEST_TIMEOUT_SECONDS", 120),
		TierResetInterval: getEnvDuration("TIER_RESET_SECONDS", 3600),

		CacheTTLSeconds: getEnvInt("CACHE_TTL_SECONDS", 3600),
		CacheEnabled:    getEnvBool("CACHE_ENABLED", true),
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.MaxAttempts <= 0 {
		return nil, fmt.Errorf("MAX_RETRY_ATTEMPTS must be positive")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultSeconds int) time.Duration {
	return time.Duration(getEnvInt(key, defaultSeconds)) * time.Second
}
