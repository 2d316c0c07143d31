// RoadBook Tracker - Driving Session Sync and Analytics
// Copyright 2026 Ajkll
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Ajkll/RoadBook-sub002

package refresh

import (
	"context"
	"errors"
	"time"

	"github.com/Ajkll/RoadBook-sub002/internal/backend"
	"github.com/Ajkll/RoadBook-sub002/internal/logging"
	"github.com/Ajkll/RoadBook-sub002/internal/metrics"
	"github.com/Ajkll/RoadBook-sub002/internal/models"
)

// Operation is one attemptable unit of work, usually the backend
// session-list call. It must honor context cancellation.
type Operation func(ctx context.Context) ([]models.RawSession, error)

// Fetcher retries an Operation a bounded number of times with a fixed delay
// between attempts.
//
// The cancellation token is checked before every attempt and before every
// inter-attempt wait; a cancelled cycle halts at the next check point
// without side effects. No delay follows the final attempt. The fetcher
// never panics and never returns a bare error: every cycle ends in a tagged
// Outcome.
type Fetcher struct {
	// Attempts bounds the number of operation calls per cycle. Zero or
	// negative fails fast without calling the operation.
	Attempts int
	// Delay is the fixed wait between consecutive attempts.
	Delay time.Duration
	// AttemptTimeout bounds each individual operation call. Zero disables
	// the per-attempt bound (the parent context still applies).
	AttemptTimeout time.Duration
}

// NewFetcher builds a fetcher with the given retry policy.
func NewFetcher(attempts int, delay, attemptTimeout time.Duration) *Fetcher {
	return &Fetcher{
		Attempts:       attempts,
		Delay:          delay,
		AttemptTimeout: attemptTimeout,
	}
}

// Fetch runs the operation under the retry policy.
//
// Ordering is strictly sequential: attempt N+1 never starts before attempt
// N has resolved. Auth expiry short-circuits the loop immediately; blind
// retry cannot fix bad credentials.
func (f *Fetcher) Fetch(ctx context.Context, op Operation, tok *Token) Outcome {
	if f.Attempts <= 0 {
		logging.Warn().Int("attempts", f.Attempts).Msg("fetch cycle configured with no attempts")
		return Outcome{Kind: OutcomeExhausted, Err: errors.New("no attempts allowed")}
	}

	var lastErr error

	for attempt := 1; attempt <= f.Attempts; attempt++ {
		if tok.Cancelled() || ctx.Err() != nil {
			logging.Debug().Int("attempt", attempt).Msg("fetch cycle cancelled before attempt")
			return Outcome{Kind: OutcomeCancelled, Attempts: attempt - 1}
		}

		sessions, err := f.runAttempt(ctx, op)
		if err == nil {
			if tok.Cancelled() {
				// The result arrived after cancellation; discard it so a
				// stale response never reaches the store.
				return Outcome{Kind: OutcomeCancelled, Attempts: attempt}
			}
			metrics.RefreshAttemptsTotal.WithLabelValues("success").Inc()
			return Outcome{Kind: OutcomeOK, Sessions: sessions, Attempts: attempt}
		}

		if errors.Is(err, backend.ErrAuthExpired) {
			metrics.RefreshAttemptsTotal.WithLabelValues("auth_expired").Inc()
			logging.Warn().Int("attempt", attempt).Msg("backend credentials expired, halting retry loop")
			return Outcome{Kind: OutcomeAuthExpired, Attempts: attempt, Err: err}
		}

		lastErr = err
		metrics.RefreshAttemptsTotal.WithLabelValues("failure").Inc()
		logging.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", f.Attempts).
			Msg("fetch attempt failed")

		if attempt == f.Attempts {
			break
		}

		if tok.Cancelled() {
			return Outcome{Kind: OutcomeCancelled, Attempts: attempt}
		}
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return Outcome{Kind: OutcomeCancelled, Attempts: attempt}
		}
	}

	return Outcome{Kind: OutcomeExhausted, Attempts: f.Attempts, Err: lastErr}
}

func (f *Fetcher) runAttempt(ctx context.Context, op Operation) ([]models.RawSession, error) {
	if f.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.AttemptTimeout)
		defer cancel()
	}
	return op(ctx)
}
