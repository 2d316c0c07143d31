// RoadBook Tracker - Driving Session Sync and Analytics
// Copyright 2026 Ajkll
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Ajkll/RoadBook-sub002

package refresh

import "github.com/Ajkll/RoadBook-sub002/internal/models"

// OutcomeKind tags the terminal state of one fetch cycle.
type OutcomeKind string

const (
	// OutcomeOK means the fetch succeeded and Sessions carries the result.
	OutcomeOK OutcomeKind = "ok"
	// OutcomeCancelled means the cycle observed its cancellation token and
	// halted. Not an error: the caller navigated away or a newer cycle
	// superseded this one.
	OutcomeCancelled OutcomeKind = "cancelled"
	// OutcomeExhausted means every allowed attempt failed.
	OutcomeExhausted OutcomeKind = "exhausted"
	// OutcomeAuthExpired means the backend rejected our credentials.
	// Auth expiry is never retried; it escalates to re-authentication.
	OutcomeAuthExpired OutcomeKind = "auth_expired"
)

// Outcome is the tagged result of a fetch cycle. Exactly one of the four
// kinds applies; Sessions is populated only for OutcomeOK, Err only for
// the failure kinds.
type Outcome struct {
	Kind     OutcomeKind
	Sessions []models.RawSession
	Attempts int
	Err      error
}

// OK reports whether the cycle produced usable data.
func (o Outcome) OK() bool {
	return o.Kind == OutcomeOK
}
