// RoadBook Tracker - Driving Session Sync and Analytics
// Copyright 2026 Ajkll
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Ajkll/RoadBook-sub002

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router assembles the HTTP routes.
type Router struct {
	handler    *Handler
	middleware *Middleware
	wsHandler  http.HandlerFunc
}

// NewRouter creates a router. wsHandler may be nil when the WebSocket
// surface is disabled.
func NewRouter(handler *Handler, middleware *Middleware, wsHandler http.HandlerFunc) *Router {
	return &Router{
		handler:    handler,
		middleware: middleware,
		wsHandler:  wsHandler,
	}
}

// Setup configures all HTTP routes using Chi.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied in order.
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.middleware.CORS())
	r.Use(RequestLogging())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.middleware.RateLimit())
		r.Use(PrometheusMetrics())

		r.Get("/sessions", router.handler.Sessions)
		r.Get("/stats", router.handler.Stats)
		r.Get("/stats/summary", router.handler.StatsSummary)

		r.Post("/refresh", router.handler.RefreshTrigger)
		r.Get("/refresh/status", router.handler.RefreshStatus)

		r.Get("/goals", router.handler.GoalsGet)
		r.Put("/goals", router.handler.GoalsPut)
	})

	if router.wsHandler != nil {
		r.Get("/ws", router.wsHandler)
	}

	r.Get("/healthz", router.handler.Health)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
