// RoadBook Tracker - Driving Session Sync and Analytics
// Copyright 2026 Ajkll
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Ajkll/RoadBook-sub002

package websocket

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Ajkll/RoadBook-sub002/internal/logging"
)

// newUpgrader builds an upgrader with origin checking against the
// configured CORS origins. A "*" entry disables the check.
func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Non-browser clients (the mobile app) send no Origin.
				return true
			}
			for _, allowed := range allowedOrigins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			return false
		},
	}
}

// ServeWS returns an http handler that upgrades the connection and
// attaches the client to the hub.
func ServeWS(hub *Hub, allowedOrigins []string) http.HandlerFunc {
	upgrader := newUpgrader(allowedOrigins)

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logging.Error().Err(err).Msg("websocket upgrade error")
			return
		}

		client := NewClient(hub, conn)
		hub.Register <- client
		client.Start()
	}
}
