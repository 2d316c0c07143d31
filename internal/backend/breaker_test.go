// RoadBook Tracker - Driving Session Sync and Analytics
// Copyright 2026 Ajkll
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Ajkll/RoadBook-sub002

package backend

import (
	"context"
	"errors"
	"testing"

	"github.com/Ajkll/RoadBook-sub002/internal/models"
)

// mockLister is a hand-rolled SessionLister for breaker tests.
type mockLister struct {
	listFn func(ctx context.Context) ([]models.RawSession, error)
	pingFn func(ctx context.Context) error
}

func (m *mockLister) ListSessions(ctx context.Context) ([]models.RawSession, error) {
	return m.listFn(ctx)
}

func (m *mockLister) Ping(ctx context.Context) error {
	if m.pingFn != nil {
		return m.pingFn(ctx)
	}
	return nil
}

func TestBreakerPassesThroughSuccess(t *testing.T) {
	t.Parallel()

	mock := &mockLister{
		listFn: func(context.Context) ([]models.RawSession, error) {
			return []models.RawSession{{ID: "s1"}}, nil
		},
	}
	breaker := NewBreakerClient(mock)

	sessions, err := breaker.ListSessions(context.Background())
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != "s1" {
		t.Errorf("unexpected sessions: %v", sessions)
	}
	if breaker.State() != "closed" {
		t.Errorf("State = %q, want closed", breaker.State())
	}
}

func TestBreakerOpensAfterFailureRate(t *testing.T) {
	t.Parallel()

	failure := errors.New("backend down")
	mock := &mockLister{
		listFn: func(context.Context) ([]models.RawSession, error) {
			return nil, failure
		},
	}
	breaker := NewBreakerClient(mock)

	// Below the 10-request minimum the breaker must stay closed.
	for i := 0; i < 9; i++ {
		if _, err := breaker.ListSessions(context.Background()); !errors.Is(err, failure) {
			t.Fatalf("attempt %d: expected underlying failure, got %v", i, err)
		}
	}
	if breaker.State() != "closed" {
		t.Fatalf("breaker opened before minimum request count, state=%q", breaker.State())
	}

	// The 10th failure crosses the 60% threshold.
	_, _ = breaker.ListSessions(context.Background())
	if breaker.State() != "open" {
		t.Errorf("State = %q, want open after sustained failures", breaker.State())
	}

	// While open, calls fail fast without reaching the client.
	called := false
	mock.listFn = func(context.Context) ([]models.RawSession, error) {
		called = true
		return nil, nil
	}
	if _, err := breaker.ListSessions(context.Background()); err == nil {
		t.Error("expected fast failure while circuit is open")
	}
	if called {
		t.Error("open breaker must not call the underlying client")
	}
}

func TestBreakerIgnoresAuthExpiry(t *testing.T) {
	t.Parallel()

	mock := &mockLister{
		listFn: func(context.Context) ([]models.RawSession, error) {
			return nil, ErrAuthExpired
		},
	}
	breaker := NewBreakerClient(mock)

	// Auth expiry is a credential problem; even a long streak must not trip
	// the breaker.
	for i := 0; i < 20; i++ {
		if _, err := breaker.ListSessions(context.Background()); !errors.Is(err, ErrAuthExpired) {
			t.Fatalf("attempt %d: expected ErrAuthExpired, got %v", i, err)
		}
	}
	if breaker.State() != "closed" {
		t.Errorf("State = %q, want closed despite auth failures", breaker.State())
	}
}

func TestBreakerPingBypassesCircuit(t *testing.T) {
	t.Parallel()

	pinged := false
	mock := &mockLister{
		listFn: func(context.Context) ([]models.RawSession, error) {
			return nil, errors.New("down")
		},
		pingFn: func(context.Context) error {
			pinged = true
			return nil
		},
	}
	breaker := NewBreakerClient(mock)

	for i := 0; i < 10; i++ {
		_, _ = breaker.ListSessions(context.Background())
	}

	if err := breaker.Ping(context.Background()); err != nil {
		t.Errorf("Ping should bypass the breaker, got: %v", err)
	}
	if !pinged {
		t.Error("Ping did not reach the underlying client")
	}
}
