// Campusatlas - Campus Map Social Backend
// Copyright 2026 Campusatlas Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusatlas/campusatlas

// Package config provides layered configuration: defaults, then an optional
// YAML file, then CAMPUSATLAS_* environment variables, loaded via koanf.
package config

import (
	"fmt"
	"time"
)

// Environment names. The dev auth override is refused in production.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config is the root configuration for the server binary.
type Config struct {
	Environment string          `koanf:"environment"`
	Server      ServerConfig    `koanf:"server"`
	Auth        AuthConfig      `koanf:"auth"`
	Location    LocationConfig  `koanf:"location"`
	Proximity   ProximityConfig `koanf:"proximity"`
	Store       StoreConfig     `koanf:"store"`
	NATS        NATSConfig      `koanf:"nats"`
	Logging     LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// AllowedOrigins restricts CORS and websocket handshake origins.
	// Empty means same-origin only.
	AllowedOrigins []string `koanf:"allowed_origins"`
	// RateLimitPerMinute caps requests per client IP on API routes.
	RateLimitPerMinute int `koanf:"rate_limit_per_minute"`
}

// AuthConfig holds handshake authentication settings.
type AuthConfig struct {
	// JWTSecret signs and verifies bearer tokens (HS256).
	JWTSecret string `koanf:"jwt_secret"`
	// JWTIssuer is the expected token issuer. Empty disables the check.
	JWTIssuer string `koanf:"jwt_issuer"`
	// DevTokenHash is the bcrypt hash of the shared override credential
	// accepted outside production together with an X-User-ID header.
	DevTokenHash string `koanf:"dev_token_hash"`
}

// LocationConfig holds location-record and privacy-filter settings.
type LocationConfig struct {
	// TTL is the lifetime of a location record. Records past TTL are never
	// served even if not yet purged.
	TTL time.Duration `koanf:"ttl"`
	// DefaultPrecisionMeters applies when an approximate-mode user has no
	// precision configured.
	DefaultPrecisionMeters float64 `koanf:"default_precision_meters"`
	// MaxTrackSeconds caps the duration of a tracking subscription.
	MaxTrackSeconds int `koanf:"max_track_seconds"`
}

// ProximityConfig holds proximity-detection thresholds.
type ProximityConfig struct {
	// SearchRadiusMeters is the coarse point-of-interest search radius.
	SearchRadiusMeters float64 `koanf:"search_radius_meters"`
	// VisitThresholdMeters is the haversine distance below which a report
	// counts as a visit.
	VisitThresholdMeters float64 `koanf:"visit_threshold_meters"`
}

// StoreConfig holds BadgerDB settings.
type StoreConfig struct {
	// Path is the on-disk location of the document store.
	Path string `koanf:"path"`
	// InMemory runs the store without persistence (tests, local dev).
	InMemory bool `koanf:"in_memory"`
	// GCInterval is how often the value-log garbage collector runs.
	GCInterval time.Duration `koanf:"gc_interval"`
}

// NATSConfig holds achievement-event transport settings.
type NATSConfig struct {
	// Enabled switches achievement-event publishing to NATS. When false,
	// events are logged and dropped.
	Enabled bool `koanf:"enabled"`
	URL     string `koanf:"url"`
	// SubjectPrefix prefixes event subjects, e.g. achievements.events.
	SubjectPrefix string `koanf:"subject_prefix"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Environment: EnvDevelopment,
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               8080,
			ReadTimeout:        15 * time.Second,
			WriteTimeout:       15 * time.Second,
			ShutdownTimeout:    10 * time.Second,
			RateLimitPerMinute: 300,
		},
		Auth: AuthConfig{},
		Location: LocationConfig{
			TTL:                    5 * time.Minute,
			DefaultPrecisionMeters: 500,
			MaxTrackSeconds:        3600,
		},
		Proximity: ProximityConfig{
			SearchRadiusMeters:   100,
			VisitThresholdMeters: 50,
		},
		Store: StoreConfig{
			Path:       "data/campusatlas",
			GCInterval: 10 * time.Minute,
		},
		NATS: NATSConfig{
			Enabled:       false,
			URL:           "nats://127.0.0.1:4222",
			SubjectPrefix: "achievements.events",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Environment != EnvDevelopment && c.Environment != EnvProduction {
		return fmt.Errorf("environment must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Environment)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Environment == EnvProduction && c.Auth.DevTokenHash != "" {
		return fmt.Errorf("auth.dev_token_hash must not be set in production")
	}
	if c.Location.TTL <= 0 {
		return fmt.Errorf("location.ttl must be positive")
	}
	if c.Location.MaxTrackSeconds <= 0 {
		return fmt.Errorf("location.max_track_seconds must be positive")
	}
	if c.Proximity.VisitThresholdMeters > c.Proximity.SearchRadiusMeters {
		return fmt.Errorf("proximity.visit_threshold_meters (%f) exceeds search radius (%f)",
			c.Proximity.VisitThresholdMeters, c.Proximity.SearchRadiusMeters)
	}
	return nil
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}
