// Package config loads the predictor configuration from an optional file,
// a .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/dev-ayush21/Pvtwingo/pkg/logging"
	"github.com/dev-ayush21/Pvtwingo/pkg/pagination"
	"github.com/dev-ayush21/Pvtwingo/pkg/prediction"
	"github.com/dev-ayush21/Pvtwingo/pkg/ratelimit"
	"github.com/dev-ayush21/Pvtwingo/pkg/upstream"
)

// EnvPrefix prefixes every environment override, e.g. WINGO_SERVER_PORT.
const EnvPrefix = "WINGO"

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	History  HistoryConfig  `mapstructure:"history"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// UpstreamConfig holds history provider configuration
type UpstreamConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
	RateLimit float64       `mapstructure:"rate_limit"`
	Burst     int           `mapstructure:"burst"`
}

// HistoryConfig holds aggregation limits
type HistoryConfig struct {
	PageCount   int `mapstructure:"page_count"`
	WindowSize  int `mapstructure:"window_size"`
	MinRequired int `mapstructure:"min_required"`
	DigestSize  int `mapstructure:"digest_size"`
}

// RedisConfig holds the user registry connection
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Pretty     bool   `mapstructure:"pretty"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// Load reads configuration. path may be empty, in which case only defaults,
// .env and the environment are used. API_BASE_URL is honoured for the provider address.
func Load(path string) (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("upstream.base_url", EnvPrefix+"_UPSTREAM_BASE_URL", "API_BASE_URL"); err != nil {
		return nil, fmt.Errorf("bind upstream.base_url: %w", err)
	}
	if err := v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "PORT"); err != nil {
		return nil, fmt.Errorf("bind server.port: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("upstream.base_url", "")
	v.SetDefault("upstream.timeout", upstream.DefaultTimeout.String())
	v.SetDefault("upstream.user_agent", "wingo-predictor/1.0")
	v.SetDefault("upstream.rate_limit", 0)
	v.SetDefault("upstream.burst", 10)

	agg := pagination.DefaultConfig()
	v.SetDefault("history.page_count", agg.PageCount)
	v.SetDefault("history.window_size", agg.WindowSize)
	v.SetDefault("history.min_required", agg.MinRequired)
	v.SetDefault("history.digest_size", prediction.DefaultConfig().DigestSize)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "wingo")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.pretty", false)
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 14)
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	if c.Upstream.BaseURL == "" {
		return errors.New("upstream.base_url is required (set API_BASE_URL)")
	}
	u, err := url.Parse(c.Upstream.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("upstream.base_url must be an absolute URL")
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream.timeout must be positive")
	}
	if c.Upstream.RateLimit < 0 {
		return fmt.Errorf("upstream.rate_limit must not be negative")
	}
	if c.Upstream.RateLimit > 0 && c.Upstream.Burst < c.History.PageCount {
		return fmt.Errorf("upstream.burst must be at least history.page_count when rate limiting")
	}

	if err := c.Aggregation().Validate(); err != nil {
		return fmt.Errorf("history: %w", err)
	}
	if c.History.DigestSize < 1 {
		return fmt.Errorf("history.digest_size must be at least 1")
	}

	if c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	return nil
}

// Aggregation returns the aggregator limits.
func (c *Config) Aggregation() pagination.Config {
	return pagination.Config{
		PageCount:   c.History.PageCount,
		WindowSize:  c.History.WindowSize,
		MinRequired: c.History.MinRequired,
	}
}

// Delegate returns the prediction delegate configuration.
func (c *Config) Delegate() prediction.Config {
	return prediction.Config{DigestSize: c.History.DigestSize}
}

// UpstreamClient returns the provider client configuration without a limiter.
func (c *Config) UpstreamClient() upstream.Config {
	return upstream.Config{
		BaseURL:   c.Upstream.BaseURL,
		Timeout:   c.Upstream.Timeout,
		UserAgent: c.Upstream.UserAgent,
	}
}

// RateLimit returns the outbound limiter configuration.
func (c *Config) RateLimit() ratelimit.Config {
	return ratelimit.Config{
		RequestsPerSecond: c.Upstream.RateLimit,
		Burst:             c.Upstream.Burst,
	}
}

// Log returns the logging configuration.
func (c *Config) Log() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.Logging.Level)
	cfg.Pretty = c.Logging.Pretty
	cfg.File.Path = c.Logging.File
	cfg.File.MaxSizeMB = c.Logging.MaxSizeMB
	cfg.File.MaxBackups = c.Logging.MaxBackups
	cfg.File.MaxAgeDays = c.Logging.MaxAgeDays
	return cfg
}
