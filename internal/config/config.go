package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	NewRelic   NewRelicConfig
	Kafka      KafkaConfig
	Logging    LoggingConfig
	Scheduling SchedulingConfig
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
	Migrate  bool
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// Lock and cache calls sit on the approval path, so timeouts stay short.
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// KafkaConfig holds the lifecycle event publisher configuration. Publishing
// is disabled when Brokers is empty.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// LoggingConfig holds logger configuration.
type LoggingConfig struct {
	Level  string
	Format string // "json" or "console"
}

// SchedulingConfig locates the scheduling rules and sets the fleet time zone.
type SchedulingConfig struct {
	RulesFile string
	TimeZone  string
}

// Location resolves the fleet time zone.
func (c SchedulingConfig) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.TimeZone)
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
			DBName:   getEnv("DB_NAME", "smartmove"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			Migrate:  getBoolEnv("DB_MIGRATE", true),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),

			PoolSize:     getIntEnv("REDIS_POOL_SIZE", 20),
			DialTimeout:  getDurationEnv("REDIS_DIAL_TIMEOUT", 2*time.Second),
			ReadTimeout:  getDurationEnv("REDIS_READ_TIMEOUT", 500*time.Millisecond),
			WriteTimeout: getDurationEnv("REDIS_WRITE_TIMEOUT", 500*time.Millisecond),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "smartmove-scheduler"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Kafka: KafkaConfig{
			Brokers: getListEnv("KAFKA_BROKERS"),
			Topic:   getEnv("KAFKA_TOPIC", "assignment-events"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Scheduling: SchedulingConfig{
			RulesFile: getEnv("SCHEDULING_RULES_FILE", ""),
			TimeZone:  getEnv("FLEET_TIMEZONE", "UTC"),
		},
	}
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

func getListEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
