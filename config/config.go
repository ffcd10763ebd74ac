// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Brew     BrewConfig     `yaml:"brew"`
	Notify   NotifyConfig   `yaml:"notify"`
	Database DatabaseConfig `yaml:"database"`
	Events   EventsConfig   `yaml:"events"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// BrewConfig configures the pots and the traffic gate.
type BrewConfig struct {
	ContentType  string   `yaml:"content_type"`
	Variants     []string `yaml:"variants"`
	GatedVariant string   `yaml:"gated_variant"`
	MinTraffic   int      `yaml:"min_traffic"`
}

// NotifyConfig configures completion notifications.
// Use "none" to discard, "smtp" to send mail, "mock" for testing.
type NotifyConfig struct {
	Mode      string   `yaml:"mode"` // "none", "smtp", "mock"
	Host      string   `yaml:"host"`
	Port      int      `yaml:"port"`
	Username  string   `yaml:"username"`
	Password  string   `yaml:"password"`
	From      string   `yaml:"from"`
	Receivers []string `yaml:"receivers"`
}

// DatabaseConfig configures the audit event database.
// An empty DSN disables event persistence.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite"
	DSN    string `yaml:"dsn"`
}

// EventsConfig configures audit event batching.
type EventsConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // Enable /metrics endpoint
	Path    string `yaml:"path"`    // Custom path (default: /metrics)
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(&cfg)

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment
// variables, consulting a .env file for anything unset. Useful for
// Docker deployments where no config file is needed.
//
// Environment variables:
//
//	TEAPOT_SERVER_HOST     - Server host (default: 0.0.0.0)
//	TEAPOT_SERVER_PORT     - Server port (default: 8080)
//	TEAPOT_MIN_TRAFFIC     - Requests per second to open the gated pot (default: 20)
//	TEAPOT_NOTIFY_MODE     - Notifier mode: none, smtp, mock (default: none)
//	TEAPOT_EMAIL_CREDS     - SMTP credentials as user:password:host:port
//	TEAPOT_EMAIL_RECEIVER  - Notification receivers, semicolon separated
//	TEAPOT_DATABASE_DSN    - Audit event database path (empty disables)
//	TEAPOT_LOG_LEVEL       - Log level: debug, info, warn, error (default: info)
//	TEAPOT_LOG_FORMAT      - Log format: json or console (default: json)
//	TEAPOT_METRICS_ENABLED - Enable /metrics endpoint (default: true)
func LoadFromEnv() (*Config, error) {
	// Best effort; the variables may already be exported.
	godotenv.Load(".env")

	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback tries to load from file, falls back to environment
// variables. This is the recommended method for Docker deployments.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	return LoadFromEnv()
}

// HasEnvConfig returns true if essential environment variables are set.
func HasEnvConfig() bool {
	return os.Getenv("TEAPOT_SERVER_PORT") != "" || os.Getenv("TEAPOT_NOTIFY_MODE") != ""
}

// applyEnvOverrides applies TEAPOT_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	// Server configuration
	if v := os.Getenv("TEAPOT_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("TEAPOT_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("TEAPOT_SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv("TEAPOT_SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	// Brew configuration
	if v := os.Getenv("TEAPOT_MIN_TRAFFIC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Brew.MinTraffic = n
		}
	}
	if v := os.Getenv("TEAPOT_VARIANTS"); v != "" {
		cfg.Brew.Variants = splitList(v, ",")
	}
	if v := os.Getenv("TEAPOT_GATED_VARIANT"); v != "" {
		cfg.Brew.GatedVariant = v
	}

	// Notify configuration
	if v := os.Getenv("TEAPOT_NOTIFY_MODE"); v != "" {
		cfg.Notify.Mode = v
	}
	if v := os.Getenv("TEAPOT_EMAIL_CREDS"); v != "" {
		applyEmailCreds(cfg, v)
	}
	if v := os.Getenv("TEAPOT_EMAIL_RECEIVER"); v != "" {
		cfg.Notify.Receivers = splitList(v, ";")
	}
	if v := os.Getenv("TEAPOT_EMAIL_FROM"); v != "" {
		cfg.Notify.From = v
	}

	// Database configuration
	if v := os.Getenv("TEAPOT_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("TEAPOT_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}

	// Logging configuration
	if v := os.Getenv("TEAPOT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TEAPOT_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Metrics configuration
	if v := os.Getenv("TEAPOT_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("TEAPOT_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}
}

// applyEmailCreds parses the compact user:password:host:port form.
func applyEmailCreds(cfg *Config, creds string) {
	parts := strings.Split(creds, ":")
	if len(parts) != 4 {
		return
	}
	cfg.Notify.Username = parts[0]
	cfg.Notify.Password = parts[1]
	cfg.Notify.Host = parts[2]
	if port, err := strconv.Atoi(parts[3]); err == nil {
		cfg.Notify.Port = port
	}
}

// splitList splits a separated list, dropping empty entries.
func splitList(v, sep string) []string {
	var out []string
	for _, s := range strings.Split(v, sep) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}

	if cfg.Brew.ContentType == "" {
		cfg.Brew.ContentType = "message/teapot"
	}
	if len(cfg.Brew.Variants) == 0 {
		cfg.Brew.Variants = []string{"english-breakfast", "earl-grey"}
	}
	if cfg.Brew.GatedVariant == "" {
		cfg.Brew.GatedVariant = "earl-grey"
	}
	if cfg.Brew.MinTraffic == 0 {
		cfg.Brew.MinTraffic = 20
	}

	if cfg.Notify.Mode == "" {
		cfg.Notify.Mode = "none"
	}
	if cfg.Notify.From == "" && cfg.Notify.Username != "" {
		cfg.Notify.From = cfg.Notify.Username
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}

	if cfg.Events.BatchSize == 0 {
		cfg.Events.BatchSize = 100
	}
	if cfg.Events.FlushInterval == 0 {
		cfg.Events.FlushInterval = 10 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", cfg.Server.Port)
	}

	if cfg.Brew.MinTraffic < 1 {
		return fmt.Errorf("brew.min_traffic must be positive, got %d", cfg.Brew.MinTraffic)
	}
	found := false
	for _, v := range cfg.Brew.Variants {
		if v == cfg.Brew.GatedVariant {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("brew.gated_variant %q is not in brew.variants", cfg.Brew.GatedVariant)
	}

	validNotifyModes := map[string]bool{"none": true, "smtp": true, "mock": true}
	if !validNotifyModes[cfg.Notify.Mode] {
		return fmt.Errorf("notify.mode must be 'none', 'smtp' or 'mock', got %q", cfg.Notify.Mode)
	}
	if cfg.Notify.Mode == "smtp" {
		if cfg.Notify.Host == "" {
			return fmt.Errorf("notify.host is required when notify.mode is 'smtp'")
		}
		if len(cfg.Notify.Receivers) == 0 {
			return fmt.Errorf("notify.receivers is required when notify.mode is 'smtp'")
		}
	}

	if cfg.Database.Driver != "sqlite" {
		return fmt.Errorf("database.driver must be 'sqlite', got %q", cfg.Database.Driver)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", cfg.Logging.Level)
	}

	return nil
}
