// Campusatlas - Campus Map Social Backend
// Copyright 2026 Campusatlas Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusatlas/campusatlas

package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Auth.JWTSecret = "test-secret"
	return cfg
}

func TestDefaultsValidate(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults with secret should validate: %v", err)
	}
	if cfg.Location.TTL != 5*time.Minute {
		t.Errorf("location TTL default = %v, want 5m", cfg.Location.TTL)
	}
	if cfg.Proximity.VisitThresholdMeters != 50 || cfg.Proximity.SearchRadiusMeters != 100 {
		t.Errorf("proximity defaults = %f/%f, want 50/100",
			cfg.Proximity.VisitThresholdMeters, cfg.Proximity.SearchRadiusMeters)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing jwt secret", func(c *Config) { c.Auth.JWTSecret = "" }},
		{"bad environment", func(c *Config) { c.Environment = "staging" }},
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"zero ttl", func(c *Config) { c.Location.TTL = 0 }},
		{"zero track cap", func(c *Config) { c.Location.MaxTrackSeconds = 0 }},
		{"threshold beyond radius", func(c *Config) { c.Proximity.VisitThresholdMeters = 200 }},
		{"dev override in production", func(c *Config) {
			c.Environment = EnvProduction
			c.Auth.DevTokenHash = "$2a$10$x"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() accepted invalid config")
			}
		})
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("CAMPUSATLAS_AUTH__JWT_SECRET", "env-secret")
	t.Setenv("CAMPUSATLAS_SERVER__PORT", "9191")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Auth.JWTSecret != "env-secret" {
		t.Errorf("jwt secret = %q, want env override", cfg.Auth.JWTSecret)
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("port = %d, want 9191", cfg.Server.Port)
	}
}
