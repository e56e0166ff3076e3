package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/benchtop-io/benchtop/pkg/auth"
	"github.com/benchtop-io/benchtop/pkg/observability"
	"github.com/benchtop-io/benchtop/pkg/store"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Storage configuration
	Storage store.Config

	// Auth configuration
	Auth AuthConfig

	// Redis configuration (rate limiting; optional)
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

	// Allowed CORS origins. Empty disables CORS handling.
	CORSOrigins []string
}

// AuthConfig holds credential and token settings
type AuthConfig struct {
	// Lifetime applied to newly issued tokens when the client does
	// not request one.
	DefaultTokenTTL time.Duration

	// bcrypt cost used when hashing new passwords.
	BcryptCost int

	// Rate limit on token issuance, per client, per minute.
	// Zero disables rate limiting.
	IssueRateLimit int
}

// RedisConfig holds the optional Redis connection used for
// distributed rate limiting
type RedisConfig struct {
	URL      string
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
		Storage:       loadStorageConfig(),
		Auth:          loadAuthConfig(),
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
	cfg := ServerConfig{
		Host:            getEnv("BENCHTOP_HOST", "0.0.0.0"),
		Port:            getEnv("BENCHTOP_PORT", "8080"),
		ReadTimeout:     getEnvDuration("BENCHTOP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("BENCHTOP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("BENCHTOP_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("BENCHTOP_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("BENCHTOP_HEALTH_PORT", "9090"),
	}

	if origins := getEnv("BENCHTOP_CORS_ORIGINS", ""); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
			}
		}
	}

	return cfg
}

// loadStorageConfig loads database configuration from environment
func loadStorageConfig() store.Config {
	cfg := store.DefaultConfig()

	if driver := getEnv("BENCHTOP_DB_DRIVER", ""); driver != "" {
		cfg.Driver = driver
	}
	if url := getEnv("BENCHTOP_DB_URL", ""); url != "" {
		cfg.URL = url
	}
	if maxConns := getEnvInt("BENCHTOP_DB_MAX_CONNS", 0); maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	if minConns := getEnvInt("BENCHTOP_DB_MIN_CONNS", 0); minConns > 0 {
		cfg.MinConns = minConns
	}
	if timeout := getEnvDuration("BENCHTOP_DB_TIMEOUT", 0); timeout > 0 {
		cfg.Timeout = timeout
	}
	if lifetime := getEnvDuration("BENCHTOP_DB_MAX_LIFETIME", 0); lifetime > 0 {
		cfg.MaxLifetime = lifetime
	}

	return cfg
}

// loadAuthConfig loads credential and token settings from environment
func loadAuthConfig() AuthConfig {
	return AuthConfig{
		DefaultTokenTTL: getEnvDuration("BENCHTOP_TOKEN_TTL", auth.DefaultTokenTTL),
		BcryptCost:      getEnvInt("BENCHTOP_BCRYPT_COST", auth.DefaultBcryptCost),
		IssueRateLimit:  getEnvInt("BENCHTOP_ISSUE_RATE_LIMIT", 30),
	}
}

// loadRedisConfig loads the optional Redis connection from environment
func loadRedisConfig() RedisConfig {
	return RedisConfig{
		URL:      getEnv("BENCHTOP_REDIS_URL", ""),
		Password: getEnv("BENCHTOP_REDIS_PASSWORD", ""),
		DB:       getEnvInt("BENCHTOP_REDIS_DB", 0),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:       observability.ParseLogLevel(getEnv("BENCHTOP_LOG_LEVEL", "info")),
		MetricsEnabled: getEnvBool("BENCHTOP_METRICS_ENABLED", true),
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

	switch c.Storage.Driver {
	case store.DriverPostgres, store.DriverSQLite:
		if c.Storage.URL == "" {
			return fmt.Errorf("database URL is required")
		}
	default:
		return fmt.Errorf("invalid database driver: %s (must be %s or %s)",
			c.Storage.Driver, store.DriverPostgres, store.DriverSQLite)
	}

	if c.Auth.DefaultTokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}
	if c.Auth.IssueRateLimit < 0 {
		return fmt.Errorf("issue rate limit must not be negative")
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
