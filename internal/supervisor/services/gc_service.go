// RoadBook Tracker - Driving Session Sync and Analytics
// Copyright 2026 Ajkll
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Ajkll/RoadBook-sub002

package services

import (
	"context"
	"time"
)

// GCLooper matches *store.GoalStore's GCLoop method.
type GCLooper interface {
	GCLoop(interval time.Duration, stop <-chan struct{})
}

// GoalGCService runs the goal store's badger value-log garbage collection
// as a supervised service.
type GoalGCService struct {
	store    GCLooper
	interval time.Duration
	name     string
}

// NewGoalGCService creates the wrapper.
func NewGoalGCService(store GCLooper, interval time.Duration) *GoalGCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &GoalGCService{
		store:    store,
		interval: interval,
		name:     "goal-store-gc",
	}
}

// Serve implements suture.Service.
func (s *GoalGCService) Serve(ctx context.Context) error {
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		s.store.GCLoop(s.interval, stop)
	}()

	<-ctx.Done()
	close(stop)
	<-done
	return ctx.Err()
}

// String implements fmt.Stringer for suture's log messages.
func (s *GoalGCService) String() string {
	return s.name
}
