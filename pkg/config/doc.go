// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for all settings.
//
// # Configuration Structure
//
// Server settings:
//
//	KESTREL_HOST="0.0.0.0"
//	KESTREL_PORT="8080"
//	KESTREL_HEALTH_PORT="9090"
//	KESTREL_READ_TIMEOUT="15s"
//	KESTREL_WRITE_TIMEOUT="15s"
//	KESTREL_SHUTDOWN_TIMEOUT="30s"
//
// Event store settings:
//
//	KESTREL_STORE_TYPE="memory"  # memory, postgres
//	KESTREL_STORE_CAPACITY="10000"
//	KESTREL_POSTGRES_URL="postgres://localhost/kestrel"
//
// Monitor settings:
//
//	KESTREL_ALERT_WEBHOOK_URL=""  # alerts and high-severity events POSTed here when set
//
// Rate limit settings (per category, defaults from ratelimit.DefaultRules):
//
//	KESTREL_RATELIMIT_GLOBAL_WINDOW="1m"
//	KESTREL_RATELIMIT_GLOBAL_MAX="100"
//	KESTREL_RATELIMIT_AUTH_WINDOW="15m"
//	KESTREL_RATELIMIT_AUTH_MAX="5"
//	KESTREL_RATELIMIT_CLEANUP_INTERVAL="5m"
//
// Redis settings (distributed rate limiting):
//
//	KESTREL_REDIS_ENABLED="false"
//	KESTREL_REDIS_ADDR="localhost:6379"
//	KESTREL_REDIS_PASSWORD=""
//	KESTREL_REDIS_DB="0"
//
// Observability settings:
//
//	KESTREL_LOG_LEVEL="info"  # debug, info, warn, error
//	KESTREL_METRICS_ENABLED="true"
//
// # Usage Example
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatalf("invalid configuration: %v", err)
//	}
//
// # Related Packages
//
//   - pkg/ratelimit: category rule defaults
//   - pkg/observability: log level type
package config
