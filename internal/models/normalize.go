// RoadBook Tracker - Driving Session Sync and Analytics
// Copyright 2026 Ajkll
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Ajkll/RoadBook-sub002

package models

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RawSession mirrors the session object returned by the RoadBook backend.
// Dates arrive as strings, numeric fields are nullable, and enum tags are
// free-form. Normalize converts it into a SessionRecord with the invariants
// the rest of the service relies on.
type RawSession struct {
	ID            string   `json:"id"`
	Date          string   `json:"date"`
	StartTime     string   `json:"startTime"`
	EndTime       string   `json:"endTime"`
	Duration      *int     `json:"duration"`
	Distance      *float64 `json:"distance"`
	StartLocation string   `json:"startLocation"`
	EndLocation   string   `json:"endLocation"`
	Weather       string   `json:"weather"`
	SessionType   string   `json:"sessionType"`
	RoadTypes     []string `json:"roadTypes"`
	ApprenticeID  string   `json:"apprenticeId"`
	RoadbookID    string   `json:"roadbookId"`
	ValidatorID   string   `json:"validatorId"`
	Notes         string   `json:"notes"`
}

// dateLayouts are the formats the backend has been observed to emit for the
// session date field, tried in order.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Normalize converts a raw backend session into a SessionRecord.
//
// Coercions applied:
//   - missing id: a UUID is generated so downstream keying never breaks
//   - date: parsed from known layouts, truncated to UTC midnight; records
//     with an unparseable date keep the zero time and are simply never
//     bucketed by the aggregation engine
//   - duration/distance: nil, negative, or NaN values become 0
//   - enum tags: upper-cased with OTHER fallback
func (r *RawSession) Normalize() SessionRecord {
	rec := SessionRecord{
		ID:            strings.TrimSpace(r.ID),
		StartLocation: strings.TrimSpace(r.StartLocation),
		EndLocation:   strings.TrimSpace(r.EndLocation),
		Weather:       ParseWeather(r.Weather),
		SessionType:   ParseSessionType(r.SessionType),
		ApprenticeID:  strings.TrimSpace(r.ApprenticeID),
		RoadbookID:    strings.TrimSpace(r.RoadbookID),
		Notes:         strings.TrimSpace(r.Notes),
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	if d, ok := parseDate(r.Date); ok {
		rec.Date = d
	}
	if t, ok := parseTimestamp(r.StartTime); ok {
		rec.StartTime = &t
	}
	if t, ok := parseTimestamp(r.EndTime); ok {
		rec.EndTime = &t
	}

	if r.Duration != nil && *r.Duration > 0 {
		rec.Duration = *r.Duration
	}
	if r.Distance != nil && !math.IsNaN(*r.Distance) && *r.Distance > 0 {
		rec.Distance = *r.Distance
	}

	if len(r.RoadTypes) > 0 {
		rec.RoadTypes = make([]RoadType, 0, len(r.RoadTypes))
		for _, rt := range r.RoadTypes {
			rec.RoadTypes = append(rec.RoadTypes, ParseRoadType(rt))
		}
	}

	if v := strings.TrimSpace(r.ValidatorID); v != "" {
		rec.ValidatorID = &v
	}

	return rec
}

// NormalizeAll converts a backend session list into SessionRecords.
func NormalizeAll(raw []RawSession) []SessionRecord {
	records := make([]SessionRecord, 0, len(raw))
	for i := range raw {
		records = append(records, raw[i].Normalize())
	}
	return records
}

// parseDate parses a calendar date and truncates it to UTC midnight.
func parseDate(s string) (time.Time, bool) {
	t, ok := parseTimestamp(s)
	if !ok {
		return time.Time{}, false
	}
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
}

// parseTimestamp tries the known backend layouts in order.
func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
