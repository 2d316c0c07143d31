// RoadBook Tracker - Driving Session Sync and Analytics
// Copyright 2026 Ajkll
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Ajkll/RoadBook-sub002

package services

import (
	"context"
)

// StartStopper matches *refresh.Poller's lifecycle methods.
type StartStopper interface {
	Start()
	Stop()
}

// PollerService wraps the session poller as a supervised service,
// adapting its Start/Stop lifecycle to suture's blocking Serve.
type PollerService struct {
	poller StartStopper
	name   string
}

// NewPollerService creates the wrapper.
func NewPollerService(poller StartStopper) *PollerService {
	return &PollerService{
		poller: poller,
		name:   "session-poller",
	}
}

// Serve implements suture.Service. It starts the poller, blocks until
// the context is cancelled, then stops it and waits for the in-flight
// cycle to halt.
func (s *PollerService) Serve(ctx context.Context) error {
	s.poller.Start()
	<-ctx.Done()
	s.poller.Stop()
	return ctx.Err()
}

// String implements fmt.Stringer for suture's log messages.
func (s *PollerService) String() string {
	return s.name
}
