package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration, loaded from environment variables.
// A .env file is honored when present (loaded by the command entrypoint).
type Config struct {
	// Server
	Port        string
	Environment string

	// Logging
	LogLevel string
	LogFile  string

	// Database (DATABASE_URL wins; otherwise assembled from DB_* parts)
	DatabaseURL string

	// Redis (optional; empty host disables the viewed-set cache)
	RedisHost     string
	RedisPort     string
	RedisPassword string

	// Auth
	JWTSecret string

	// View tracking
	DwellTime       time.Duration
	FlushInterval   time.Duration
	SeedWindow      time.Duration
	SeedLimit       int
	RecorderIdleTTL time.Duration

	// Tracing
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64
}

// Load reads configuration from the environment, applying defaults.
func Load() *Config {
	return &Config{
		Port:        getEnvOrDefault("PORT", "8080"),
		Environment: getEnvOrDefault("ENVIRONMENT", "development"),

		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		LogFile:  getEnvOrDefault("LOG_FILE", "viewd.log"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		RedisHost:     os.Getenv("REDIS_HOST"),
		RedisPort:     getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		DwellTime:       getEnvDuration("VIEW_DWELL_TIME", 3*time.Second),
		FlushInterval:   getEnvDuration("VIEW_FLUSH_INTERVAL", 2*time.Second),
		SeedWindow:      getEnvDuration("VIEW_SEED_WINDOW", 24*time.Hour),
		SeedLimit:       getEnvInt("VIEW_SEED_LIMIT", 100),
		RecorderIdleTTL: getEnvDuration("VIEW_RECORDER_IDLE_TTL", 10*time.Minute),

		TracingEnabled:    getEnvBool("TRACING_ENABLED", false),
		OTLPEndpoint:      getEnvOrDefault("OTLP_ENDPOINT", "localhost:4318"),
		TracingSampleRate: getEnvFloat("TRACING_SAMPLE_RATE", 1.0),
	}
}

// RedisEnabled reports whether a Redis host was configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
