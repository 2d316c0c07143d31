// RoadBook Tracker - Driving Session Sync and Analytics
// Copyright 2026 Ajkll
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Ajkll/RoadBook-sub002

package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/Ajkll/RoadBook-sub002/internal/backend"
	"github.com/Ajkll/RoadBook-sub002/internal/logging"
	"github.com/Ajkll/RoadBook-sub002/internal/metrics"
	"github.com/Ajkll/RoadBook-sub002/internal/models"
)

// SessionPublisher is the store-facing surface the controller writes to.
// Only the controller's success path may publish.
type SessionPublisher interface {
	Publish(records []models.SessionRecord)
}

// State labels the controller's lifecycle phase.
type State string

const (
	StateIdle     State = "idle"
	StateFetching State = "fetching"
)

// Status is a read-only view of the controller for the status endpoint.
type Status struct {
	State       State       `json:"state"`
	LastOutcome OutcomeKind `json:"last_outcome,omitempty"`
	LastError   string      `json:"last_error,omitempty"`
	LastSuccess time.Time   `json:"last_success,omitempty"`
	AuthExpired bool        `json:"auth_expired"`
}

// Controller bridges focus/blur lifecycle events and manual refresh
// triggers to single logical refresh cycles.
//
// Concurrency policy is latest-wins: a new trigger cancels any in-flight
// cycle's token and starts a brand-new cycle with a fresh token. Stale
// cycles observe their cancelled token at the next check point and drop
// their result; tokens are never reused across cycles. Failed and
// cancelled cycles never touch the store, so prior data survives a bad
// refresh.
type Controller struct {
	fetcher *Fetcher
	lister  backend.SessionLister
	store   SessionPublisher

	mu          sync.Mutex
	current     *Token
	state       State
	lastOutcome OutcomeKind
	lastErr     error
	lastSuccess time.Time
	authExpired bool

	wg sync.WaitGroup
}

// NewController wires the fetcher, backend client and store together.
func NewController(fetcher *Fetcher, lister backend.SessionLister, store SessionPublisher) *Controller {
	return &Controller{
		fetcher: fetcher,
		lister:  lister,
		store:   store,
		state:   StateIdle,
	}
}

// Refresh runs one synchronous refresh cycle and returns its outcome.
//
// If another cycle is in flight its token is cancelled first; that cycle
// will no-op at its next check point while this one proceeds immediately.
func (c *Controller) Refresh(ctx context.Context) Outcome {
	c.mu.Lock()
	if c.current != nil {
		c.current.Cancel()
	}
	tok := NewToken()
	c.current = tok
	c.state = StateFetching
	c.mu.Unlock()

	start := time.Now()
	out := c.fetcher.Fetch(ctx, c.lister.ListSessions, tok)

	// Publish and state update happen in one critical section so that
	// check-and-publish is atomic: once a newer cycle has replaced
	// c.current, a superseded cycle can no longer write a stale snapshot
	// over the fresher one, no matter how late its result lands.
	c.mu.Lock()
	if c.current == tok {
		if out.OK() {
			records := models.NormalizeAll(out.Sessions)
			c.store.Publish(records)
			c.lastSuccess = time.Now()
			logging.Info().
				Int("records", len(records)).
				Int("attempts", out.Attempts).
				Dur("elapsed", time.Since(start)).
				Msg("session refresh succeeded")
		}
		c.current = nil
		c.state = StateIdle
		c.lastOutcome = out.Kind
		c.lastErr = out.Err
		c.authExpired = out.Kind == OutcomeAuthExpired
	} else if out.OK() {
		// Superseded after a successful fetch: the result is dropped, so
		// report the cycle as cancelled rather than ok.
		out = Outcome{Kind: OutcomeCancelled, Attempts: out.Attempts}
	}
	c.mu.Unlock()

	metrics.RefreshCyclesTotal.WithLabelValues(string(out.Kind)).Inc()
	metrics.RefreshCycleDuration.Observe(time.Since(start).Seconds())

	switch out.Kind {
	case OutcomeExhausted:
		logging.Warn().Err(out.Err).Int("attempts", out.Attempts).Msg("session refresh exhausted retries, keeping prior data")
	case OutcomeAuthExpired:
		logging.Error().Err(out.Err).Msg("session refresh needs re-authentication")
	case OutcomeCancelled:
		logging.Debug().Int("attempts", out.Attempts).Msg("session refresh cancelled")
	}

	return out
}

// Focus starts an asynchronous refresh cycle, mirroring a UI gaining
// visibility. Each call begins a brand-new cycle.
func (c *Controller) Focus(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.Refresh(ctx)
	}()
}

// Blur cancels the in-flight cycle's token synchronously, mirroring a UI
// losing visibility. The cycle halts at its next check point.
func (c *Controller) Blur() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		c.current.Cancel()
		c.current = nil
		c.state = StateIdle
	}
}

// Wait blocks until every Focus-spawned cycle has finished. Used during
// shutdown.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Status returns a snapshot of the controller state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Status{
		State:       c.state,
		LastOutcome: c.lastOutcome,
		LastSuccess: c.lastSuccess,
		AuthExpired: c.authExpired,
	}
	if c.lastErr != nil {
		s.LastError = c.lastErr.Error()
	}
	return s
}
