// RoadBook Tracker - Driving Session Sync and Analytics
// Copyright 2026 Ajkll
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Ajkll/RoadBook-sub002

package store

import (
	"sync"
	"testing"

	"github.com/Ajkll/RoadBook-sub002/internal/models"
)

func TestRecordsEmptyBeforeFirstPublish(t *testing.T) {
	t.Parallel()

	s := NewSessionStore()
	if got := s.Records(); len(got) != 0 {
		t.Errorf("Records() = %v, want empty", got)
	}
	if s.Version() != 0 {
		t.Errorf("Version() = %d, want 0", s.Version())
	}
	if !s.LastPublished().IsZero() {
		t.Error("LastPublished() should be zero before first publish")
	}
}

func TestPublishBumpsVersionAndNotifiesOnce(t *testing.T) {
	t.Parallel()

	s := NewSessionStore()

	var notifications []Snapshot
	unsubscribe := s.Subscribe(func(snap Snapshot) {
		notifications = append(notifications, snap)
	})
	defer unsubscribe()

	s.Publish([]models.SessionRecord{{ID: "a", Distance: 4}})

	if len(notifications) != 1 {
		t.Fatalf("got %d notifications, want exactly 1", len(notifications))
	}
	if notifications[0].Version != 1 {
		t.Errorf("snapshot version = %d, want 1", notifications[0].Version)
	}
	if len(notifications[0].Records) != 1 || notifications[0].Records[0].ID != "a" {
		t.Errorf("unexpected snapshot records: %v", notifications[0].Records)
	}

	s.Publish([]models.SessionRecord{{ID: "a"}, {ID: "b"}})
	if len(notifications) != 2 {
		t.Fatalf("got %d notifications after second publish, want 2", len(notifications))
	}
	if s.Version() != 2 {
		t.Errorf("Version() = %d, want 2", s.Version())
	}
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	t.Parallel()

	s := NewSessionStore()

	count := 0
	unsubscribe := s.Subscribe(func(Snapshot) { count++ })

	s.Publish(nil)
	unsubscribe()
	s.Publish(nil)

	if count != 1 {
		t.Errorf("listener called %d times, want 1", count)
	}

	// Double unsubscribe is safe
	unsubscribe()
}

func TestRecordsReturnsCopy(t *testing.T) {
	t.Parallel()

	s := NewSessionStore()
	s.Publish([]models.SessionRecord{{ID: "a", Distance: 4}})

	got := s.Records()
	got[0].Distance = 999

	if again := s.Records(); again[0].Distance != 4 {
		t.Errorf("store snapshot mutated through Records() copy: %v", again[0].Distance)
	}
}

func TestPublishCopiesInput(t *testing.T) {
	t.Parallel()

	s := NewSessionStore()
	input := []models.SessionRecord{{ID: "a", Distance: 4}}
	s.Publish(input)

	input[0].Distance = 999

	if got := s.Records(); got[0].Distance != 4 {
		t.Errorf("store snapshot aliased caller slice: %v", got[0].Distance)
	}
}

func TestConcurrentReadersAndWriter(t *testing.T) {
	t.Parallel()

	s := NewSessionStore()
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			s.Publish([]models.SessionRecord{{ID: "a"}})
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_ = s.Records()
				_ = s.Version()
			}
		}()
	}

	wg.Wait()

	if s.Version() != 100 {
		t.Errorf("Version() = %d, want 100", s.Version())
	}
}
