// RoadBook Tracker - Driving Session Sync and Analytics
// Copyright 2026 Ajkll
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Ajkll/RoadBook-sub002

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultsAreValidOnceURLSet(t *testing.T) {
	cfg := defaultConfig()
	cfg.Backend.URL = "https://api.roadbook.example"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config with URL should validate, got: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing url", func(c *Config) { c.Backend.URL = "" }},
		{"zero timeout", func(c *Config) { c.Backend.Timeout = 0 }},
		{"negative attempts", func(c *Config) { c.Refresh.Attempts = -1 }},
		{"negative delay", func(c *Config) { c.Refresh.Delay = -time.Second }},
		{"zero attempt timeout", func(c *Config) { c.Refresh.AttemptTimeout = 0 }},
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"page size inversion", func(c *Config) { c.API.MaxPageSize = 5; c.API.DefaultPageSize = 20 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := defaultConfig()
			cfg.Backend.URL = "https://api.roadbook.example"
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestEnvTransformFunc(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key  string
		want string
	}{
		{"BACKEND_URL", "backend.url"},
		{"BACKEND_APPRENTICE_ID", "backend.apprentice_id"},
		{"REFRESH_ATTEMPT_TIMEOUT", "refresh.attempt_timeout"},
		{"SERVER_CORS_ORIGINS", "server.cors_origins"},
		{"LOG_LEVEL", "logging.level"},
		{"PATH", ""},
		{"HOME", ""},
	}

	for _, tt := range tests {
		if got := envTransformFunc(tt.key); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestLoadLayering(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	yamlBody := `
backend:
  url: https://file.roadbook.example
  token: file-token
refresh:
  attempts: 3
server:
  port: 9000
`
	if err := os.WriteFile(configFile, []byte(yamlBody), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv(ConfigPathEnvVar, configFile)
	t.Setenv("BACKEND_TOKEN", "env-token")
	t.Setenv("REFRESH_DELAY", "250ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// File overrides defaults
	if cfg.Backend.URL != "https://file.roadbook.example" {
		t.Errorf("Backend.URL = %q, want file value", cfg.Backend.URL)
	}
	if cfg.Refresh.Attempts != 3 {
		t.Errorf("Refresh.Attempts = %d, want 3", cfg.Refresh.Attempts)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}

	// Env overrides file
	if cfg.Backend.Token != "env-token" {
		t.Errorf("Backend.Token = %q, want env-token", cfg.Backend.Token)
	}
	if cfg.Refresh.Delay != 250*time.Millisecond {
		t.Errorf("Refresh.Delay = %v, want 250ms", cfg.Refresh.Delay)
	}

	// Defaults survive where not overridden
	if cfg.Refresh.AttemptTimeout != 5*time.Second {
		t.Errorf("Refresh.AttemptTimeout = %v, want default 5s", cfg.Refresh.AttemptTimeout)
	}
}

func TestLoadCORSFromEnv(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("BACKEND_URL", "https://api.roadbook.example")
	t.Setenv("SERVER_CORS_ORIGINS", "https://app.example, https://staging.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := []string{"https://app.example", "https://staging.example"}
	if len(cfg.Server.CORSOrigins) != len(want) {
		t.Fatalf("CORSOrigins = %v, want %v", cfg.Server.CORSOrigins, want)
	}
	for i := range want {
		if cfg.Server.CORSOrigins[i] != want[i] {
			t.Errorf("CORSOrigins[%d] = %q, want %q", i, cfg.Server.CORSOrigins[i], want[i])
		}
	}
}
