// RoadBook Tracker - Driving Session Sync and Analytics
// Copyright 2026 Ajkll
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Ajkll/RoadBook-sub002

package refresh

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Ajkll/RoadBook-sub002/internal/backend"
	"github.com/Ajkll/RoadBook-sub002/internal/models"
)

// scriptedLister returns canned responses in order, repeating the last one.
type scriptedLister struct {
	mu        sync.Mutex
	responses []func(ctx context.Context) ([]models.RawSession, error)
	calls     int
}

func (s *scriptedLister) ListSessions(ctx context.Context) ([]models.RawSession, error) {
	s.mu.Lock()
	i := s.calls
	s.calls++
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	fn := s.responses[i]
	s.mu.Unlock()
	return fn(ctx)
}

func (s *scriptedLister) Ping(context.Context) error { return nil }

func (s *scriptedLister) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func respond(sessions []models.RawSession, err error) func(context.Context) ([]models.RawSession, error) {
	return func(context.Context) ([]models.RawSession, error) {
		return sessions, err
	}
}

// recordingStore captures every publish for assertions.
type recordingStore struct {
	mu        sync.Mutex
	published [][]models.SessionRecord
}

func (r *recordingStore) Publish(records []models.SessionRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, records)
}

func (r *recordingStore) publishCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.published)
}

func (r *recordingStore) last() []models.SessionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.published) == 0 {
		return nil
	}
	return r.published[len(r.published)-1]
}

// stallingStore blocks its first publish until released, then records
// publishes in order like recordingStore.
type stallingStore struct {
	recordingStore
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *stallingStore) Publish(records []models.SessionRecord) {
	first := false
	s.once.Do(func() { first = true })
	if first {
		close(s.entered)
		<-s.release
	}
	s.recordingStore.Publish(records)
}

func newTestController(lister backend.SessionLister, store SessionPublisher) *Controller {
	return NewController(NewFetcher(3, time.Millisecond, 0), lister, store)
}

func TestRefreshPublishesNormalizedRecords(t *testing.T) {
	t.Parallel()

	distance := 12.5
	lister := &scriptedLister{responses: []func(context.Context) ([]models.RawSession, error){
		respond([]models.RawSession{{ID: "s1", Date: "2026-02-10", Distance: &distance}}, nil),
	}}
	store := &recordingStore{}
	ctrl := newTestController(lister, store)

	out := ctrl.Refresh(context.Background())

	if !out.OK() {
		t.Fatalf("Refresh outcome = %v, want ok", out.Kind)
	}
	if store.publishCount() != 1 {
		t.Fatalf("store published %d times, want 1", store.publishCount())
	}
	records := store.last()
	if len(records) != 1 || records[0].ID != "s1" || records[0].Distance != 12.5 {
		t.Errorf("published records = %+v, want normalized s1 with 12.5km", records)
	}

	status := ctrl.Status()
	if status.State != StateIdle || status.LastOutcome != OutcomeOK {
		t.Errorf("Status = %+v, want idle/ok", status)
	}
	if status.LastSuccess.IsZero() {
		t.Error("LastSuccess not recorded")
	}
}

func TestFailedRefreshNeverTouchesStore(t *testing.T) {
	t.Parallel()

	lister := &scriptedLister{responses: []func(context.Context) ([]models.RawSession, error){
		respond(nil, errors.New("backend down")),
	}}
	store := &recordingStore{}
	ctrl := newTestController(lister, store)

	out := ctrl.Refresh(context.Background())

	if out.Kind != OutcomeExhausted {
		t.Fatalf("outcome = %v, want exhausted", out.Kind)
	}
	if store.publishCount() != 0 {
		t.Errorf("store published %d times on failure, want 0", store.publishCount())
	}
	if status := ctrl.Status(); status.LastError == "" {
		t.Error("Status.LastError empty after exhausted cycle")
	}
}

func TestAuthExpiryEscalates(t *testing.T) {
	t.Parallel()

	lister := &scriptedLister{responses: []func(context.Context) ([]models.RawSession, error){
		respond(nil, backend.ErrAuthExpired),
	}}
	store := &recordingStore{}
	ctrl := newTestController(lister, store)

	out := ctrl.Refresh(context.Background())

	if out.Kind != OutcomeAuthExpired {
		t.Fatalf("outcome = %v, want auth_expired", out.Kind)
	}
	if lister.callCount() != 1 {
		t.Errorf("lister called %d times, want 1 (auth expiry is not retried)", lister.callCount())
	}
	if store.publishCount() != 0 {
		t.Error("store published despite auth failure")
	}
	if !ctrl.Status().AuthExpired {
		t.Error("Status.AuthExpired = false, want true")
	}

	// A later successful refresh clears the flag.
	lister.mu.Lock()
	lister.responses = append(lister.responses, respond([]models.RawSession{{ID: "ok"}}, nil))
	lister.mu.Unlock()

	if out := ctrl.Refresh(context.Background()); !out.OK() {
		t.Fatalf("recovery refresh outcome = %v, want ok", out.Kind)
	}
	if ctrl.Status().AuthExpired {
		t.Error("AuthExpired still set after successful refresh")
	}
}

func TestLatestRefreshWins(t *testing.T) {
	t.Parallel()

	firstStarted := make(chan struct{})
	release := make(chan struct{})

	lister := &scriptedLister{responses: []func(context.Context) ([]models.RawSession, error){
		func(context.Context) ([]models.RawSession, error) {
			close(firstStarted)
			<-release
			return []models.RawSession{{ID: "stale"}}, nil
		},
		respond([]models.RawSession{{ID: "fresh"}}, nil),
	}}
	store := &recordingStore{}
	ctrl := newTestController(lister, store)

	var wg sync.WaitGroup
	wg.Add(1)
	var firstOut Outcome
	go func() {
		defer wg.Done()
		firstOut = ctrl.Refresh(context.Background())
	}()

	<-firstStarted

	// Second trigger supersedes the first cycle and completes immediately.
	secondOut := ctrl.Refresh(context.Background())
	if !secondOut.OK() {
		t.Fatalf("second refresh outcome = %v, want ok", secondOut.Kind)
	}

	close(release)
	wg.Wait()

	if firstOut.Kind != OutcomeCancelled {
		t.Errorf("first refresh outcome = %v, want cancelled (superseded)", firstOut.Kind)
	}

	// Only the fresh cycle reached the store.
	if store.publishCount() != 1 {
		t.Fatalf("store published %d times, want 1", store.publishCount())
	}
	if records := store.last(); len(records) != 1 || records[0].ID != "fresh" {
		t.Errorf("published records = %+v, want only the fresh cycle's data", records)
	}
	if status := ctrl.Status(); status.LastOutcome != OutcomeOK {
		t.Errorf("LastOutcome = %v, want ok (stale cycle must not overwrite)", status.LastOutcome)
	}
}

func TestStalledPublishCannotOverwriteNewerSnapshot(t *testing.T) {
	t.Parallel()

	store := &stallingStore{entered: make(chan struct{}), release: make(chan struct{})}
	lister := &scriptedLister{responses: []func(context.Context) ([]models.RawSession, error){
		respond([]models.RawSession{{ID: "old"}}, nil),
		respond([]models.RawSession{{ID: "fresh"}}, nil),
	}}
	ctrl := newTestController(lister, store)

	done1 := make(chan Outcome, 1)
	go func() { done1 <- ctrl.Refresh(context.Background()) }()
	<-store.entered // first cycle is mid-publish with "old"

	done2 := make(chan Outcome, 1)
	go func() { done2 <- ctrl.Refresh(context.Background()) }()

	// A cycle that is already committing must finish before the next one
	// starts; a newer snapshot may never land underneath a stalled write.
	time.Sleep(30 * time.Millisecond)
	if n := store.publishCount(); n != 0 {
		t.Fatalf("second cycle published %d snapshots while the first was mid-publish", n)
	}

	close(store.release)
	first, second := <-done1, <-done2

	if !first.OK() || !second.OK() {
		t.Fatalf("outcomes = %v / %v, want ok / ok", first.Kind, second.Kind)
	}
	if store.publishCount() != 2 {
		t.Fatalf("store published %d times, want 2", store.publishCount())
	}
	if records := store.last(); len(records) != 1 || records[0].ID != "fresh" {
		t.Errorf("final snapshot = %+v, want the newer cycle's data last", records)
	}
}

func TestBlurCancelsInFlightCycle(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})

	lister := &scriptedLister{responses: []func(context.Context) ([]models.RawSession, error){
		func(context.Context) ([]models.RawSession, error) {
			close(started)
			<-release
			return []models.RawSession{{ID: "late"}}, nil
		},
	}}
	store := &recordingStore{}
	ctrl := newTestController(lister, store)

	ctrl.Focus(context.Background())
	<-started

	ctrl.Blur()
	close(release)
	ctrl.Wait()

	if store.publishCount() != 0 {
		t.Errorf("store published %d times after blur, want 0 (late response discarded)", store.publishCount())
	}
	if state := ctrl.Status().State; state != StateIdle {
		t.Errorf("State = %v after blur, want idle", state)
	}
}

func TestBlurWithoutActiveCycleIsNoop(t *testing.T) {
	t.Parallel()

	ctrl := newTestController(&scriptedLister{responses: []func(context.Context) ([]models.RawSession, error){
		respond(nil, nil),
	}}, &recordingStore{})

	ctrl.Blur()
	ctrl.Blur()

	if state := ctrl.Status().State; state != StateIdle {
		t.Errorf("State = %v, want idle", state)
	}
}

func TestFocusAfterBlurStartsFreshCycle(t *testing.T) {
	t.Parallel()

	lister := &scriptedLister{responses: []func(context.Context) ([]models.RawSession, error){
		respond([]models.RawSession{{ID: "s1"}}, nil),
	}}
	store := &recordingStore{}
	ctrl := newTestController(lister, store)

	ctrl.Focus(context.Background())
	ctrl.Wait()
	ctrl.Blur()

	// Re-entering focus uses a brand-new token, so the earlier blur must
	// not poison the new cycle.
	ctrl.Focus(context.Background())
	ctrl.Wait()

	if store.publishCount() != 2 {
		t.Errorf("store published %d times, want 2", store.publishCount())
	}
}
