// RoadBook Tracker - Driving Session Sync and Analytics
// Copyright 2026 Ajkll
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Ajkll/RoadBook-sub002

// Package refresh implements the session refresh pipeline: a bounded
// retrying fetcher with cooperative cancellation, the focus-driven
// controller that owns refresh cycles, and a background poller.
package refresh

import "sync/atomic"

// Token is a cooperative cancellation flag scoped to one refresh cycle.
//
// The controller creates a fresh token for every cycle and cancels it when
// the cycle is superseded or the UI loses focus. Tokens are never reused:
// a cancelled token stays cancelled forever. Cancellation is cooperative,
// not preemptive; an in-flight request is not aborted, but its result is
// discarded at the next check point.
type Token struct {
	cancelled atomic.Bool
}

// NewToken returns a fresh, not-cancelled token.
func NewToken() *Token {
	return &Token{}
}

// Cancel marks the token cancelled. Safe to call from any goroutine and
// more than once.
func (t *Token) Cancel() {
	t.cancelled.Store(true)
}

// Cancelled reports whether Cancel has been called.
func (t *Token) Cancelled() bool {
	return t.cancelled.Load()
}
