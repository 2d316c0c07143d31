// RoadBook Tracker - Driving Session Sync and Analytics
// Copyright 2026 Ajkll
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Ajkll/RoadBook-sub002

package stats

import (
	"github.com/Ajkll/RoadBook-sub002/internal/models"
)

// Summary holds the headline totals shown on the stats cards.
type Summary struct {
	TotalSessions   int            `json:"total_sessions"`
	TotalKm         float64        `json:"total_km"`
	TotalMinutes    int            `json:"total_minutes"`
	AvgKmPerSession float64        `json:"avg_km_per_session"`
	ByWeather       map[string]int `json:"by_weather"`
	BySessionType   map[string]int `json:"by_session_type"`
}

// Summarize computes overall totals across all records. Absent or malformed
// numeric fields were clamped to zero at normalization time, so plain sums
// are safe here.
func Summarize(records []models.SessionRecord) Summary {
	s := Summary{
		ByWeather:     make(map[string]int),
		BySessionType: make(map[string]int),
	}

	for _, rec := range records {
		s.TotalSessions++
		s.TotalKm += safeKm(rec.Distance)
		if rec.Duration > 0 {
			s.TotalMinutes += rec.Duration
		}
		s.ByWeather[string(rec.Weather)]++
		s.BySessionType[string(rec.SessionType)]++
	}

	if s.TotalSessions > 0 {
		s.AvgKmPerSession = s.TotalKm / float64(s.TotalSessions)
	}

	return s
}
