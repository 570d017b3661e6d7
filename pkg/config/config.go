package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration
type Config struct {
	Environment        string
	ServerPort         int
	LogLevel           string
	CORSAllowedOrigins []string

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	RedisURL      string
	StatsCacheTTL time.Duration

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	OpenAITimeout time.Duration

	RateLimitPerMinute int

	DefaultPageLimit int
	MaxPageLimit     int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	cacheTTLSec, err := strconv.Atoi(getEnv("STATS_CACHE_TTL_SECONDS", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid STATS_CACHE_TTL_SECONDS: %w", err)
	}

	aiTimeoutSec, err := strconv.Atoi(getEnv("OPENAI_TIMEOUT_SECONDS", "20"))
	if err != nil {
		return nil, fmt.Errorf("invalid OPENAI_TIMEOUT_SECONDS: %w", err)
	}

	rateLimit, err := strconv.Atoi(getEnv("RATE_LIMIT_PER_MINUTE", "120"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: %w", err)
	}

	defaultLimit, err := strconv.Atoi(getEnv("DEFAULT_PAGE_LIMIT", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_PAGE_LIMIT: %w", err)
	}

	maxLimit, err := strconv.Atoi(getEnv("MAX_PAGE_LIMIT", "1000"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_PAGE_LIMIT: %w", err)
	}

	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		ServerPort:  port,
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: parseCSVEnv("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:5173",
			"http://localhost:3000",
		}),
		DBHost:             getEnv("DB_HOST", "localhost"),
		DBPort:             dbPort,
		DBUser:             getEnv("DB_USER", "energy"),
		DBPassword:         getEnv("DB_PASSWORD", "dev"),
		DBName:             getEnv("DB_NAME", "energy"),
		DBSSLMode:          getEnv("DB_SSLMODE", "disable"),
		RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		StatsCacheTTL:      time.Duration(cacheTTLSec) * time.Second,
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:        getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAITimeout:      time.Duration(aiTimeoutSec) * time.Second,
		RateLimitPerMinute: rateLimit,
		DefaultPageLimit:   defaultLimit,
		MaxPageLimit:       maxLimit,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseCSVEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
