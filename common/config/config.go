package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all service configuration
type Config struct {
	Service   ServiceConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Sync      SyncConfig
	Telemetry TelemetryConfig
}

// ServiceConfig holds service-specific settings
type ServiceConfig struct {
	Name        string
	Port        int
	Environment string
	LogLevel    string
	LogFormat   string
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	Host        string
	Port        int
	Database    string
	User        string
	Password    string
	MaxConns    int
	MinConns    int
	MaxIdleTime time.Duration
	MaxLifetime time.Duration
}

// RedisConfig holds Redis connection settings (cross-instance broadcast)
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// AuthConfig holds token verification settings
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// SyncConfig holds live-sync behavior settings
type SyncConfig struct {
	// DefaultDebounce is applied when sync_tags carries no debounceMs
	DefaultDebounce time.Duration
	MaxDebounce     time.Duration
	BroadcastChan   string
}

// TelemetryConfig holds observability settings
type TelemetryConfig struct {
	EnablePprof bool
	PprofPort   int
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	cfg := &Config{
		Service: ServiceConfig{
			Name:        serviceName,
			Port:        getEnvInt("PORT", 8080),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "text"), // Default to text for development
		},
		Database: DatabaseConfig{
			Host:        getEnv("POSTGRES_HOST", "localhost"),
			Port:        getEnvInt("POSTGRES_PORT", 5432),
			Database:    getEnv("POSTGRES_DB", "tagsync"),
			User:        getEnv("POSTGRES_USER", "tagsync"),
			Password:    getEnv("POSTGRES_PASSWORD", "tagsync"),
			MaxConns:    getEnvInt("POSTGRES_MAX_CONNS", 50),
			MinConns:    getEnvInt("POSTGRES_MIN_CONNS", 10),
			MaxIdleTime: getEnvDuration("POSTGRES_MAX_IDLE_TIME", 30*time.Minute),
			MaxLifetime: getEnvDuration("POSTGRES_MAX_LIFETIME", 1*time.Hour),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-me"),
			TokenTTL:  getEnvDuration("TOKEN_TTL", 24*time.Hour),
		},
		Sync: SyncConfig{
			DefaultDebounce: getEnvDuration("SYNC_DEFAULT_DEBOUNCE", 500*time.Millisecond),
			MaxDebounce:     getEnvDuration("SYNC_MAX_DEBOUNCE", 10*time.Second),
			BroadcastChan:   getEnv("SYNC_BROADCAST_CHANNEL", "tagsync:updates"),
		},
		Telemetry: TelemetryConfig{
			EnablePprof: getEnvBool("ENABLE_PPROF", true),
			PprofPort:   getEnvInt("PPROF_PORT", 6060),
		},
	}

	return cfg, cfg.Validate()
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns must be >= min_conns")
	}

	if c.Sync.DefaultDebounce <= 0 {
		return fmt.Errorf("default debounce must be positive")
	}

	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
	)
}

// RedisAddr returns the host:port address for Redis
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// Helper functions

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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
