// RoadBook Tracker - Driving Session Sync and Analytics
// Copyright 2026 Ajkll
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Ajkll/RoadBook-sub002

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

type blockingService struct {
	name    string
	started atomic.Bool
}

func (s *blockingService) Serve(ctx context.Context) error {
	s.started.Store(true)
	<-ctx.Done()
	return ctx.Err()
}

func (s *blockingService) String() string { return s.name }

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestTreeStartsAndStopsAllLayers(t *testing.T) {
	t.Parallel()

	tree := NewTree(testLogger(), DefaultTreeConfig())

	dataSvc := &blockingService{name: "data-svc"}
	msgSvc := &blockingService{name: "msg-svc"}
	apiSvc := &blockingService{name: "api-svc"}

	tree.AddDataService(dataSvc)
	tree.AddMessagingService(msgSvc)
	tree.AddAPIService(apiSvc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	deadline := time.After(2 * time.Second)
	for _, svc := range []*blockingService{dataSvc, msgSvc, apiSvc} {
		for !svc.started.Load() {
			select {
			case <-deadline:
				t.Fatalf("service %s never started", svc)
			case <-time.After(5 * time.Millisecond):
			}
		}
	}

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tree did not stop after cancellation")
	}

	report, err := tree.UnstoppedServiceReport()
	if err != nil {
		t.Fatalf("UnstoppedServiceReport: %v", err)
	}
	if len(report) != 0 {
		t.Errorf("unstopped services after shutdown: %v", report)
	}
}

func TestTreeRestartsCrashedService(t *testing.T) {
	t.Parallel()

	config := DefaultTreeConfig()
	config.FailureBackoff = 10 * time.Millisecond

	tree := NewTree(testLogger(), config)

	var runs atomic.Int32
	crashOnce := serviceFunc(func(ctx context.Context) error {
		if runs.Add(1) == 1 {
			return nil // treated as a failure, triggers restart
		}
		<-ctx.Done()
		return ctx.Err()
	})
	tree.AddDataService(crashOnce)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	deadline := time.After(2 * time.Second)
	for runs.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("service restarted %d times, want at least 2 runs", runs.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	<-errCh
}

func TestTreeZeroConfigUsesDefaults(t *testing.T) {
	t.Parallel()

	tree := NewTree(testLogger(), TreeConfig{})
	if tree.config.FailureThreshold != 5.0 {
		t.Errorf("FailureThreshold = %v, want 5.0", tree.config.FailureThreshold)
	}
	if tree.config.FailureDecay != 30.0 {
		t.Errorf("FailureDecay = %v, want 30.0", tree.config.FailureDecay)
	}
	if tree.config.FailureBackoff != 15*time.Second {
		t.Errorf("FailureBackoff = %v, want 15s", tree.config.FailureBackoff)
	}
	if tree.config.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", tree.config.ShutdownTimeout)
	}
}

// serviceFunc adapts a function to suture.Service.
type serviceFunc func(ctx context.Context) error

func (f serviceFunc) Serve(ctx context.Context) error { return f(ctx) }
