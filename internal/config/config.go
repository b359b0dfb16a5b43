// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage drivers understood by the service.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

// Config holds all configuration for the application.
type Config struct {
	// LogLevel is any name slog understands: debug, info, warn, error, optionally with an offset like "info+2".
	LogLevel string `mapstructure:"LOG_LEVEL"`
	HTTPAddr string `mapstructure:"HTTP_ADDR"`

	GithubToken    string        `mapstructure:"GITHUB_TOKEN"`
	GithubBaseURL  string        `mapstructure:"GITHUB_BASE_URL"`
	GithubUsername string        `mapstructure:"GITHUB_USERNAME"`
	GithubPerPage  int           `mapstructure:"GITHUB_PER_PAGE"`
	GithubTimeout  time.Duration `mapstructure:"GITHUB_TIMEOUT"`

	StalenessWindow time.Duration `mapstructure:"STALENESS_WINDOW"`
	RefreshInterval time.Duration `mapstructure:"REFRESH_INTERVAL"`

	StorageDriver  string `mapstructure:"STORAGE_DRIVER"`
	StorageKey     string `mapstructure:"STORAGE_KEY"`
	SQLitePath     string `mapstructure:"SQLITE_PATH"`
	DBURL          string `mapstructure:"DB_URL"`
	MigrationsPath string `mapstructure:"MIGRATIONS_PATH"`
	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	RedisDB        int    `mapstructure:"REDIS_DB"`

	AMQPURL        string `mapstructure:"AMQP_URL"`
	AMQPExchange   string `mapstructure:"AMQP_EXCHANGE"`
	AMQPRoutingKey string `mapstructure:"AMQP_ROUTING_KEY"`
	AMQPQueue      string `mapstructure:"AMQP_QUEUE"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`
}

var defaults = map[string]any{
	"LOG_LEVEL":        "info",
	"HTTP_ADDR":        ":8080",
	"GITHUB_TOKEN":     "",
	"GITHUB_BASE_URL":  "",
	"GITHUB_USERNAME":  "caioricciuti",
	"GITHUB_PER_PAGE":  100,
	"GITHUB_TIMEOUT":   "30s",
	"STALENESS_WINDOW": "24h",
	"REFRESH_INTERVAL": "0s",
	"STORAGE_DRIVER":   DriverSQLite,
	"STORAGE_KEY":      "github-data",
	"SQLITE_PATH":      "github-data.db",
	"DB_URL":           "",
	"MIGRATIONS_PATH":  "migrations",
	"REDIS_ADDR":       "localhost:6379",
	"REDIS_PASSWORD":   "",
	"REDIS_DB":         0,
	"AMQP_URL":         "",
	"AMQP_EXCHANGE":    "github_dashboard",
	"AMQP_ROUTING_KEY": "snapshot.refreshed",
	"AMQP_QUEUE":       "github_snapshots",
	"RATE_LIMIT_RPS":   5.0,
	"RATE_LIMIT_BURST": 10,
}

// LoadConfig reads configuration from file and/or environment variables.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// Every key needs a default so AutomaticEnv picks it up during Unmarshal.
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// Load from .env file if it exists
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if file not found

	// Bind environment variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Level returns LOG_LEVEL as a slog level. Unparseable values are caught by Validate.
func (c *Config) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Validate checks the combination of settings.
func (c *Config) Validate() error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	if c.GithubUsername == "" {
		return errors.New("GITHUB_USERNAME is a required configuration field")
	}
	if c.StalenessWindow <= 0 {
		return errors.New("STALENESS_WINDOW must be a positive duration (e.g. 24h)")
	}
	if c.RefreshInterval < 0 {
		return errors.New("REFRESH_INTERVAL must not be negative")
	}
	if c.GithubPerPage < 1 || c.GithubPerPage > 100 {
		return errors.New("GITHUB_PER_PAGE must be between 1 and 100")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}

	switch c.StorageDriver {
	case DriverSQLite:
		if c.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required for the sqlite storage driver")
		}
	case DriverPostgres:
		if c.DBURL == "" {
			return errors.New("DB_URL is required for the postgres storage driver")
		}
	case DriverRedis:
		if c.RedisAddr == "" {
			return errors.New("REDIS_ADDR is required for the redis storage driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q, expected one of sqlite, postgres, redis, memory", c.StorageDriver)
	}
	return nil
}
