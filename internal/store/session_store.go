// RoadBook Tracker - Driving Session Sync and Analytics
// Copyright 2026 Ajkll
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Ajkll/RoadBook-sub002

// Package store holds the authoritative in-memory session snapshot and the
// durable goal tracking key-value store.
package store

import (
	"sync"
	"time"

	"github.com/Ajkll/RoadBook-sub002/internal/logging"
	"github.com/Ajkll/RoadBook-sub002/internal/metrics"
	"github.com/Ajkll/RoadBook-sub002/internal/models"
)

// Snapshot is one published state of the session list. Subscribers receive
// the snapshot by value; the record slice must be treated as read-only.
type Snapshot struct {
	Records     []models.SessionRecord
	Version     uint64
	PublishedAt time.Time
}

// SessionStore owns the latest successfully fetched session list.
//
// Single-writer discipline: only the refresh controller publishes; every
// other component is a read-only consumer via Records() or Subscribe().
// Failed or cancelled refresh cycles never touch the stored snapshot.
type SessionStore struct {
	mu          sync.RWMutex
	records     []models.SessionRecord
	version     uint64
	publishedAt time.Time
	subscribers map[uint64]func(Snapshot)
	nextSubID   uint64
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		subscribers: make(map[uint64]func(Snapshot)),
	}
}

// Records returns a copy of the latest published snapshot, or an empty list
// before the first successful publish. The copy keeps callers from mutating
// the shared state.
func (s *SessionStore) Records() []models.SessionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.SessionRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Version returns the snapshot version, starting at 0 before any publish
// and incrementing once per successful publish.
func (s *SessionStore) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// LastPublished returns when the current snapshot was published, or the
// zero time before the first publish.
func (s *SessionStore) LastPublished() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.publishedAt
}

// Publish replaces the snapshot and notifies every subscriber exactly once.
//
// Only the refresh controller's success path may call this. Listeners are
// invoked synchronously outside the write lock, in unspecified order.
func (s *SessionStore) Publish(records []models.SessionRecord) {
	owned := make([]models.SessionRecord, len(records))
	copy(owned, records)

	s.mu.Lock()
	s.records = owned
	s.version++
	s.publishedAt = time.Now()

	snap := Snapshot{
		Records:     owned,
		Version:     s.version,
		PublishedAt: s.publishedAt,
	}

	listeners := make([]func(Snapshot), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	metrics.StorePublishesTotal.Inc()
	metrics.StoreRecords.Set(float64(len(owned)))
	logging.Debug().Uint64("version", snap.Version).Int("records", len(owned)).Msg("session snapshot published")

	for _, fn := range listeners {
		fn(snap)
	}
}

// Subscribe registers a listener invoked once per successful publish.
// The returned function removes the subscription; it is safe to call more
// than once.
func (s *SessionStore) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	count := len(s.subscribers)
	s.mu.Unlock()

	metrics.StoreSubscribers.Set(float64(count))

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		count := len(s.subscribers)
		s.mu.Unlock()
		metrics.StoreSubscribers.Set(float64(count))
	}
}
