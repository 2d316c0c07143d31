// RoadBook Tracker - Driving Session Sync and Analytics
// Copyright 2026 Ajkll
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Ajkll/RoadBook-sub002

// Package main is the entry point for the roadbookd daemon.
//
// roadbookd mirrors a learner driver's session history from the RoadBook
// backend, keeps an in-memory snapshot fresh with a retrying poller, and
// serves aggregated distance statistics, goal tracking, and real-time
// updates to dashboard clients.
//
// # Application Architecture
//
// The daemon initializes components in the following order:
//
//  1. Configuration: environment variables and config file (Koanf v2)
//  2. Goal store: BadgerDB key-value storage for driving goals
//  3. Backend client: rate-limited HTTP client behind a circuit breaker
//  4. Session store: single-writer snapshot with subscriber notifications
//  5. Refresh pipeline: retrying fetcher, controller, and background poller
//  6. WebSocket hub: pushes snapshot updates to connected clients
//  7. HTTP server: REST API plus Prometheus metrics
//
// All long-running components are managed by a suture supervisor tree, so
// a crashing poller restarts without tearing down the HTTP server.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (sectioned prefixes, e.g. BACKEND_URL,
//     REFRESH_POLL_INTERVAL, SERVER_PORT, GOALS_PATH, LOG_LEVEL)
//   - Config file (config.yaml, or CONFIG_PATH)
//   - Built-in defaults
//
// Minimal run:
//
//	export BACKEND_URL=https://api.roadbook.example
//	export BACKEND_TOKEN=your-bearer-token
//	./roadbookd
//
// # Signal Handling
//
// roadbookd shuts down gracefully on SIGINT and SIGTERM: the poller stops,
// in-flight requests drain within the shutdown timeout, websocket clients
// are closed, and the goal store is flushed to disk.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Ajkll/RoadBook-sub002/internal/api"
	"github.com/Ajkll/RoadBook-sub002/internal/backend"
	"github.com/Ajkll/RoadBook-sub002/internal/config"
	"github.com/Ajkll/RoadBook-sub002/internal/logging"
	"github.com/Ajkll/RoadBook-sub002/internal/refresh"
	"github.com/Ajkll/RoadBook-sub002/internal/store"
	"github.com/Ajkll/RoadBook-sub002/internal/supervisor"
	"github.com/Ajkll/RoadBook-sub002/internal/supervisor/services"
	ws "github.com/Ajkll/RoadBook-sub002/internal/websocket"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("backend_url", cfg.Backend.URL).
		Str("goals_path", cfg.Goals.Path).
		Dur("poll_interval", cfg.Refresh.PollInterval).
		Msg("Starting roadbookd")

	// Durable goal storage
	goals, err := store.OpenGoalStore(cfg.Goals.Path)
	if err != nil {
		logging.Fatal().Err(err).Str("path", cfg.Goals.Path).Msg("Failed to open goal store")
	}
	defer func() {
		if err := goals.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing goal store")
		}
	}()

	// Backend client behind a circuit breaker. The breaker prevents
	// hammering the RoadBook API while it is down; expired credentials
	// pass through so the refresh pipeline can escalate them.
	client := backend.NewClient(&cfg.Backend)
	breaker := backend.NewBreakerClient(client)
	if err := breaker.Ping(context.Background()); err != nil {
		logging.Warn().Err(err).Msg("Backend not reachable at startup (will retry)")
	} else {
		logging.Info().Msg("Connected to RoadBook backend")
	}

	// In-memory session snapshot and the refresh pipeline feeding it
	sessions := store.NewSessionStore()
	fetcher := refresh.NewFetcher(cfg.Refresh.Attempts, cfg.Refresh.Delay, cfg.Refresh.AttemptTimeout)
	controller := refresh.NewController(fetcher, breaker, sessions)
	poller := refresh.NewPoller(controller, cfg.Refresh.PollInterval)

	// WebSocket hub pushes every published snapshot to connected clients
	wsHub := ws.NewHub()
	sessions.Subscribe(wsHub.BroadcastSnapshot)

	// A snapshot older than two poll intervals is marked stale in API
	// responses; clients decide whether to keep rendering it.
	staleAfter := 2 * cfg.Refresh.PollInterval

	handler := api.NewHandler(sessions, goals, controller, breaker, staleAfter, cfg.API)
	middleware := api.NewMiddleware(&api.MiddlewareConfig{
		CORSAllowedOrigins: cfg.Server.CORSOrigins,
		RateLimitRequests:  cfg.Server.RateLimitReqs,
		RateLimitWindow:    cfg.Server.RateLimitWindow,
		RateLimitDisabled:  cfg.Server.RateLimitReqs <= 0,
	})
	router := api.NewRouter(handler, middleware, ws.ServeWS(wsHub, cfg.Server.CORSOrigins))

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bridge zerolog to slog for sutureslog compatibility
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	// Data layer: poller and goal store GC
	tree.AddDataService(services.NewPollerService(poller))
	tree.AddDataService(services.NewGoalGCService(goals, cfg.Goals.GCInterval))

	// Messaging layer: websocket hub
	tree.AddMessagingService(services.NewHubService(wsHub))

	// API layer: HTTP server
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// Wait for supervisor to finish (either from signal or error)
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain the error channel until the supervisor finishes
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	// Report any services that failed to stop within timeout
	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Daemon stopped gracefully")
}
