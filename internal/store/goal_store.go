// RoadBook Tracker - Driving Session Sync and Analytics
// Copyright 2026 Ajkll
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Ajkll/RoadBook-sub002

package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/Ajkll/RoadBook-sub002/internal/logging"
	"github.com/Ajkll/RoadBook-sub002/internal/metrics"
)

// Goal keys mirror the mobile client's key-value entries: plain string
// values, no schema versioning.
const (
	GoalKeyKm   = "goalKm"
	GoalKeyDate = "goalDate"

	goalKeyPrefix = "goal:"
)

// ErrGoalNotFound indicates the requested goal key has never been saved.
var ErrGoalNotFound = errors.New("goal not found")

// GoalStore persists goal tracking entries (target distance, target date)
// in BadgerDB so they survive restarts.
type GoalStore struct {
	db *badger.DB
}

// NewGoalStore creates a goal store on the given badger database.
func NewGoalStore(db *badger.DB) *GoalStore {
	return &GoalStore{db: db}
}

// OpenGoalStore opens (or creates) the badger database at path and wraps it
// in a GoalStore. The caller owns closing via Close().
func OpenGoalStore(path string) (*GoalStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // badger's own logger is noisy; we log operations ourselves

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open goal store at %s: %w", path, err)
	}

	return &GoalStore{db: db}, nil
}

// Get returns the stored value for a goal key.
func (g *GoalStore) Get(key string) (string, error) {
	var value string

	err := g.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(goalKeyPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrGoalNotFound
		}
		if err != nil {
			return fmt.Errorf("get goal %s: %w", key, err)
		}

		return item.Value(func(val []byte) error {
			value = string(val)
			return nil
		})
	})

	if err != nil {
		metrics.GoalStoreOperations.WithLabelValues("get", "error").Inc()
		return "", err
	}

	metrics.GoalStoreOperations.WithLabelValues("get", "ok").Inc()
	return value, nil
}

// Set stores a goal value under the given key.
func (g *GoalStore) Set(key, value string) error {
	err := g.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(goalKeyPrefix+key), []byte(value))
	})

	if err != nil {
		metrics.GoalStoreOperations.WithLabelValues("set", "error").Inc()
		return fmt.Errorf("set goal %s: %w", key, err)
	}

	metrics.GoalStoreOperations.WithLabelValues("set", "ok").Inc()
	return nil
}

// Delete removes a goal key. Deleting an absent key is not an error.
func (g *GoalStore) Delete(key string) error {
	err := g.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(goalKeyPrefix + key))
	})
	if err != nil {
		metrics.GoalStoreOperations.WithLabelValues("delete", "error").Inc()
		return fmt.Errorf("delete goal %s: %w", key, err)
	}
	metrics.GoalStoreOperations.WithLabelValues("delete", "ok").Inc()
	return nil
}

// RunGC runs one badger value-log garbage collection pass. Badger returns
// ErrNoRewrite when there is nothing to collect; that is not an error.
func (g *GoalStore) RunGC() {
	if err := g.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
		logging.Warn().Err(err).Msg("goal store value log GC failed")
	}
}

// GCLoop runs RunGC on the given interval until stop is closed. Intended to
// be wrapped as a supervised service.
func (g *GoalStore) GCLoop(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			g.RunGC()
		}
	}
}

// Close closes the underlying badger database.
func (g *GoalStore) Close() error {
	return g.db.Close()
}
