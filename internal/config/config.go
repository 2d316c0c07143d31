// RoadBook Tracker - Driving Session Sync and Analytics
// Copyright 2026 Ajkll
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Ajkll/RoadBook-sub002

// Package config provides layered configuration for roadbookd using Koanf v2.
// Precedence: environment variables > YAML config file > built-in defaults.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for roadbookd.
type Config struct {
	Backend BackendConfig `koanf:"backend"`
	Refresh RefreshConfig `koanf:"refresh"`
	Server  ServerConfig  `koanf:"server"`
	Goals   GoalsConfig   `koanf:"goals"`
	API     APIConfig     `koanf:"api"`
	Logging LoggingConfig `koanf:"logging"`
}

// BackendConfig configures the RoadBook REST backend collaborator.
type BackendConfig struct {
	// URL is the base URL of the RoadBook backend, e.g. https://api.roadbook.example
	URL string `koanf:"url"`

	// Token is the bearer token used to authenticate backend requests.
	Token string `koanf:"token"`

	// ApprenticeID scopes session fetches to one learner's roadbook.
	ApprenticeID string `koanf:"apprentice_id"`

	// Timeout is the HTTP client timeout for a single backend call.
	Timeout time.Duration `koanf:"timeout"`

	// RateLimit is the maximum backend requests per second (0 disables limiting).
	RateLimit float64 `koanf:"rate_limit"`

	// RateBurst is the rate limiter burst size.
	RateBurst int `koanf:"rate_burst"`
}

// RefreshConfig configures the session refresh pipeline.
type RefreshConfig struct {
	// Attempts is the maximum number of fetch attempts per refresh cycle.
	Attempts int `koanf:"attempts"`

	// Delay is the fixed wait between failed attempts.
	Delay time.Duration `koanf:"delay"`

	// AttemptTimeout bounds a single backend call so a hung connection
	// cannot stall the cycle indefinitely.
	AttemptTimeout time.Duration `koanf:"attempt_timeout"`

	// PollInterval is how often the background poller triggers a refresh.
	PollInterval time.Duration `koanf:"poll_interval"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`

	// CORSOrigins lists allowed origins for browser clients.
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitReqs is the per-IP request budget per RateLimitWindow
	// (0 disables API rate limiting).
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// GoalsConfig configures the durable goal tracking store.
type GoalsConfig struct {
	// Path is the BadgerDB directory for goal key-value storage.
	Path string `koanf:"path"`

	// GCInterval is how often the badger value log garbage collector runs.
	GCInterval time.Duration `koanf:"gc_interval"`
}

// APIConfig holds API behavior settings.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// LoggingConfig configures the zerolog-backed logging facade.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			URL:       "",
			Token:     "",
			Timeout:   30 * time.Second,
			RateLimit: 5,
			RateBurst: 10,
		},
		Refresh: RefreshConfig{
			Attempts:       5,
			Delay:          2 * time.Second,
			AttemptTimeout: 5 * time.Second,
			PollInterval:   5 * time.Minute,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8087,
			Timeout:         30 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Goals: GoalsConfig{
			Path:       "/data/goals",
			GCInterval: 10 * time.Minute,
		},
		API: APIConfig{
			DefaultPageSize: 20,
			MaxPageSize:     100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Validate checks configuration invariants that would otherwise surface as
// confusing runtime failures.
func (c *Config) Validate() error {
	if c.Backend.URL == "" {
		return fmt.Errorf("backend.url is required (set BACKEND_URL)")
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend.timeout must be positive, got %v", c.Backend.Timeout)
	}
	if c.Refresh.Attempts < 0 {
		return fmt.Errorf("refresh.attempts must not be negative, got %d", c.Refresh.Attempts)
	}
	if c.Refresh.Delay < 0 {
		return fmt.Errorf("refresh.delay must not be negative, got %v", c.Refresh.Delay)
	}
	if c.Refresh.AttemptTimeout <= 0 {
		return fmt.Errorf("refresh.attempt_timeout must be positive, got %v", c.Refresh.AttemptTimeout)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	if c.API.MaxPageSize < c.API.DefaultPageSize {
		return fmt.Errorf("api.max_page_size (%d) must be >= api.default_page_size (%d)",
			c.API.MaxPageSize, c.API.DefaultPageSize)
	}
	return nil
}

// Addr returns the host:port string for the HTTP server.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
