// RoadBook Tracker - Driving Session Sync and Analytics
// Copyright 2026 Ajkll
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Ajkll/RoadBook-sub002

package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Ajkll/RoadBook-sub002/internal/config"
)

func testConfig(url string) *config.BackendConfig {
	return &config.BackendConfig{
		URL:          url,
		Token:        "test-token",
		ApprenticeID: "appr-1",
		Timeout:      5 * time.Second,
	}
}

func TestListSessionsDecodesPayload(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		if got := r.URL.Query().Get("apprenticeId"); got != "appr-1" {
			t.Errorf("apprenticeId = %q, want appr-1", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"s1","date":"2026-02-10","distance":12.5,"duration":45,"weather":"RAINY"},
			{"id":"s2","date":"2026-02-11"}
		]`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	sessions, err := client.ListSessions(context.Background())
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}

	if len(sessions) != 2 {
		t.Fatalf("len(sessions) = %d, want 2", len(sessions))
	}
	if sessions[0].ID != "s1" {
		t.Errorf("sessions[0].ID = %q, want s1", sessions[0].ID)
	}
	if sessions[0].Distance == nil || *sessions[0].Distance != 12.5 {
		t.Errorf("sessions[0].Distance = %v, want 12.5", sessions[0].Distance)
	}
	if sessions[1].Distance != nil {
		t.Errorf("sessions[1].Distance = %v, want nil", sessions[1].Distance)
	}
}

func TestListSessionsAuthExpired(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "token expired", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	_, err := client.ListSessions(context.Background())
	if !errors.Is(err, ErrAuthExpired) {
		t.Errorf("expected ErrAuthExpired, got: %v", err)
	}
}

func TestListSessionsServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	_, err := client.ListSessions(context.Background())
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if errors.Is(err, ErrAuthExpired) {
		t.Error("500 must not map to ErrAuthExpired")
	}
}

func TestListSessionsNetworkError(t *testing.T) {
	t.Parallel()

	// Closed server: connection refused
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	client := NewClient(testConfig(server.URL))
	if _, err := client.ListSessions(context.Background()); err == nil {
		t.Fatal("expected network error")
	}
}

func TestPing(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	if err := client.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestRateLimiterCancellation(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.RateLimit = 0.001 // effectively blocks after the first token
	cfg.RateBurst = 1
	client := NewClient(cfg)

	// First call consumes the burst token
	if _, err := client.ListSessions(context.Background()); err != nil {
		t.Fatalf("first call failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := client.ListSessions(ctx); err == nil {
		t.Error("expected rate limiter wait to fail on cancelled context")
	}
}
