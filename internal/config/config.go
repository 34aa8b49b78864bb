// Package config loads service configuration from a YAML file with
// environment-variable overrides for everything secret or
// deployment-specific.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the analytics service.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Tracking TrackingConfig `yaml:"tracking"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// AllowedOrigins is the CORS allowlist for browser tracking calls.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	URL             string `yaml:"url"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_minutes"`
}

// RedisConfig holds Redis settings. An empty URL disables Redis-backed
// features (rate limiting falls open, snapshot locking falls back to PG
// advisory locks).
type RedisConfig struct {
	URL string `yaml:"url"`
}

// AuthConfig holds the session-token signing key shared with the web app
// and the static admin token protecting the summary endpoints.
type AuthConfig struct {
	SessionSigningKey string `yaml:"session_signing_key"`
	AdminToken        string `yaml:"admin_token"`
}

// TrackingConfig holds ingestion limits.
type TrackingConfig struct {
	RateLimitPerMinute int `yaml:"rate_limit_per_minute"`
	BatchMaxEvents     int `yaml:"batch_max_events"`
}

// SnapshotConfig holds the daily KPI snapshot worker settings.
type SnapshotConfig struct {
	Enabled         bool `yaml:"enabled"`
	IntervalMinutes int  `yaml:"interval_minutes"`
}

// Load reads and validates configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 25
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 5
	}
	if cfg.Tracking.RateLimitPerMinute == 0 {
		cfg.Tracking.RateLimitPerMinute = 120
	}
	if cfg.Tracking.BatchMaxEvents == 0 {
		cfg.Tracking.BatchMaxEvents = 100
	}
	if cfg.Snapshot.IntervalMinutes == 0 {
		cfg.Snapshot.IntervalMinutes = 60
	}

	return &cfg, nil
}

// LoadFromEnv loads the YAML config and applies environment overrides.
// A .env file is honored when present (local development).
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("SESSION_SIGNING_KEY"); v != "" {
		cfg.Auth.SessionSigningKey = v
	}
	if v := os.Getenv("ADMIN_API_TOKEN"); v != "" {
		cfg.Auth.AdminToken = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("database url is required (config database.url or DATABASE_URL)")
	}
	if cfg.Auth.SessionSigningKey == "" {
		return nil, fmt.Errorf("session signing key is required (config auth.session_signing_key or SESSION_SIGNING_KEY)")
	}

	return cfg, nil
}
