// RoadBook Tracker - Driving Session Sync and Analytics
// Copyright 2026 Ajkll
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Ajkll/RoadBook-sub002

package backend

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/Ajkll/RoadBook-sub002/internal/logging"
	"github.com/Ajkll/RoadBook-sub002/internal/metrics"
	"github.com/Ajkll/RoadBook-sub002/internal/models"
)

// BreakerClient wraps a SessionLister with a circuit breaker so a dead or
// slow backend fails fast instead of tying up every refresh cycle in
// timeouts.
//
// DETERMINISM NOTE: the breaker uses real time (via sony/gobreaker) for its
// interval and timeout calculations. Tests should mock the underlying
// client rather than the breaker.
type BreakerClient struct {
	client SessionLister
	cb     *gobreaker.CircuitBreaker[[]models.RawSession]
	name   string
}

// Ensure BreakerClient implements SessionLister
var _ SessionLister = (*BreakerClient)(nil)

// NewBreakerClient wraps the given client with a circuit breaker.
//
// Breaker configuration:
//   - max 3 concurrent requests in half-open state
//   - 1 minute measurement window
//   - 2 minute timeout before attempting recovery
//   - opens after 60% failure rate with minimum 10 requests
func NewBreakerClient(client SessionLister) *BreakerClient {
	cbName := "roadbook-backend"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[[]models.RawSession](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}

			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6

			if shouldTrip {
				logging.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("[circuit breaker] opening circuit")
			}

			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("[circuit breaker] state transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},

		// Auth expiry is a credential problem, not backend ill health;
		// it must not count toward tripping the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrAuthExpired)
		},
	})

	return &BreakerClient{
		client: client,
		cb:     cb,
		name:   cbName,
	}
}

// ListSessions fetches the session list with circuit breaker protection.
func (b *BreakerClient) ListSessions(ctx context.Context) ([]models.RawSession, error) {
	result, err := b.cb.Execute(func() ([]models.RawSession, error) {
		return b.client.ListSessions(ctx)
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
			logging.Warn().Err(err).Msg("[circuit breaker] request rejected")
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		}
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	return result, nil
}

// Ping verifies connectivity, bypassing the breaker so health checks can
// observe recovery while the circuit is still open.
func (b *BreakerClient) Ping(ctx context.Context) error {
	return b.client.Ping(ctx)
}

// State returns the current breaker state for status reporting.
func (b *BreakerClient) State() string {
	return stateToString(b.cb.State())
}

// stateToFloat converts circuit breaker state to a numeric value for metrics.
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// stateToString converts circuit breaker state to a string for logging.
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
