package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage and lock backends.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"

	LocksLocal = "local"
	LocksRedis = "redis"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NewRelic NewRelicConfig
	Engine   EngineConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DSN returns the lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// EngineConfig holds metering and progression engine configuration.
type EngineConfig struct {
	Store          string
	Locks          string
	LockTTL        time.Duration
	Timezone       string
	Currency       string
	IdempotencyTTL time.Duration
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level       string
	Development bool
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "ridemeter"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),

			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getDurationEnv("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "ridemeter"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Engine: EngineConfig{
			Store:          strings.ToLower(getEnv("ENGINE_STORE", StoreMemory)),
			Locks:          strings.ToLower(getEnv("ENGINE_LOCKS", LocksLocal)),
			LockTTL:        getDurationEnv("ENGINE_LOCK_TTL", 5*time.Second),
			Timezone:       getEnv("ENGINE_TIMEZONE", "UTC"),
			Currency:       strings.ToLower(getEnv("ENGINE_CURRENCY", "usd")),
			IdempotencyTTL: getDurationEnv("IDEMPOTENCY_TTL", 24*time.Hour),
		},
		Log: LogConfig{
			Level:       strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Development: getBoolEnv("LOG_DEVELOPMENT", false),
		},
	}
}

// Validate checks settings that cannot be defaulted.
func (c *Config) Validate() error {
	var errs []error

	switch c.Engine.Store {
	case StoreMemory, StoreRedis, StorePostgres:
	default:
		errs = append(errs, fmt.Errorf("ENGINE_STORE: unknown backend %q", c.Engine.Store))
	}

	switch c.Engine.Locks {
	case LocksLocal, LocksRedis:
	default:
		errs = append(errs, fmt.Errorf("ENGINE_LOCKS: unknown backend %q", c.Engine.Locks))
	}

	if c.Engine.Locks == LocksRedis && c.Engine.LockTTL <= 0 {
		errs = append(errs, errors.New("ENGINE_LOCK_TTL must be positive"))
	}

	if _, err := c.Engine.Location(); err != nil {
		errs = append(errs, fmt.Errorf("ENGINE_TIMEZONE: %w", err))
	}

	if len(c.Engine.Currency) != 3 {
		errs = append(errs, fmt.Errorf("ENGINE_CURRENCY: %q is not a 3-letter code", c.Engine.Currency))
	}

	return errors.Join(errs...)
}

// Location resolves the time zone VIP days are counted in.
func (e EngineConfig) Location() (*time.Location, error) {
	return time.LoadLocation(e.Timezone)
}

// UsesRedis reports whether any engine component needs a Redis client.
func (e EngineConfig) UsesRedis() bool {
	return e.Store == StoreRedis || e.Locks == LocksRedis
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
