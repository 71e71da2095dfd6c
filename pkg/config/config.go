package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kestrelsec/kestrel/pkg/observability"
	"github.com/kestrelsec/kestrel/pkg/ratelimit"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Event store configuration
	Store StoreConfig

	// Monitor configuration
	Monitor MonitorConfig

	// Rate limit configuration
	RateLimit RateLimitConfig

	// Redis configuration (distributed rate limiting)
	Redis RedisConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// StoreConfig holds event store configuration
type StoreConfig struct {
	// Type selects the event store backend: memory or postgres
	Type string

	// Capacity bounds the in-memory event log
	Capacity int

	// PostgresURL is required for the postgres backend
	PostgresURL string
}

// MonitorConfig holds security monitor configuration
type MonitorConfig struct {
	// WebhookURL receives alerts and High/Critical events when set
	WebhookURL string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	// Rules are the per-category limits
	Rules ratelimit.Rules

	// CleanupInterval is the period between idle-key sweeps
	CleanupInterval time.Duration
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Store:         loadStoreConfig(),
		Monitor:       loadMonitorConfig(),
		RateLimit:     loadRateLimitConfig(),
		Redis:         loadRedisConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("KESTREL_HOST", "0.0.0.0"),
		Port:            getEnv("KESTREL_PORT", "8080"),
		ReadTimeout:     getEnvDuration("KESTREL_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("KESTREL_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("KESTREL_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("KESTREL_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("KESTREL_HEALTH_PORT", "9090"),
	}
}

// loadStoreConfig loads event store configuration from environment
func loadStoreConfig() StoreConfig {
	return StoreConfig{
		Type:        getEnv("KESTREL_STORE_TYPE", "memory"),
		Capacity:    getEnvInt("KESTREL_STORE_CAPACITY", 10000),
		PostgresURL: getEnv("KESTREL_POSTGRES_URL", ""),
	}
}

// loadMonitorConfig loads monitor configuration from environment
func loadMonitorConfig() MonitorConfig {
	return MonitorConfig{
		WebhookURL: getEnv("KESTREL_ALERT_WEBHOOK_URL", ""),
	}
}

// categoryEnvNames maps rule categories to their environment name segment
var categoryEnvNames = map[ratelimit.Category]string{
	ratelimit.CategoryGlobal:         "GLOBAL",
	ratelimit.CategoryAuthentication: "AUTH",
	ratelimit.CategoryUpload:         "UPLOAD",
	ratelimit.CategorySearch:         "SEARCH",
	ratelimit.CategoryMessaging:      "MESSAGING",
	ratelimit.CategoryCallSetup:      "CALL_SETUP",
}

// loadRateLimitConfig loads rate limit configuration from environment,
// starting from the built-in defaults
func loadRateLimitConfig() RateLimitConfig {
	rules := ratelimit.DefaultRules()

	for category, envName := range categoryEnvNames {
		rule := rules[category]
		if window := getEnvDuration("KESTREL_RATELIMIT_"+envName+"_WINDOW", 0); window > 0 {
			rule.Window = window
		}
		if max := getEnvInt("KESTREL_RATELIMIT_"+envName+"_MAX", 0); max > 0 {
			rule.MaxRequests = max
		}
		rules[category] = rule
	}

	return RateLimitConfig{
		Rules:           rules,
		CleanupInterval: getEnvDuration("KESTREL_RATELIMIT_CLEANUP_INTERVAL", 5*time.Minute),
	}
}

// loadRedisConfig loads Redis configuration from environment
func loadRedisConfig() RedisConfig {
	return RedisConfig{
		Enabled:  getEnvBool("KESTREL_REDIS_ENABLED", false),
		Addr:     getEnv("KESTREL_REDIS_ADDR", "localhost:6379"),
		Password: getEnv("KESTREL_REDIS_PASSWORD", ""),
		DB:       getEnvInt("KESTREL_REDIS_DB", 0),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:       observability.ParseLogLevel(getEnv("KESTREL_LOG_LEVEL", "info")),
		MetricsEnabled: getEnvBool("KESTREL_METRICS_ENABLED", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	switch c.Store.Type {
	case "memory":
		if c.Store.Capacity <= 0 {
			return fmt.Errorf("store capacity must be positive for memory storage")
		}
	case "postgres":
		if c.Store.PostgresURL == "" {
			return fmt.Errorf("postgres URL is required for postgres storage")
		}
	default:
		return fmt.Errorf("invalid store type: %s (must be memory or postgres)", c.Store.Type)
	}

	if err := c.RateLimit.Rules.Validate(); err != nil {
		return fmt.Errorf("invalid rate limit rules: %w", err)
	}
	if c.RateLimit.CleanupInterval <= 0 {
		return fmt.Errorf("cleanup interval must be positive")
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required when redis is enabled")
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
