// RoadBook Tracker - Driving Session Sync and Analytics
// Copyright 2026 Ajkll
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Ajkll/RoadBook-sub002

// Package stats computes time-bucketed distance series and summary totals
// from session records. All functions are pure: they never mutate their
// input and depend only on their arguments.
package stats

import (
	"fmt"
	"math"
	"time"

	"github.com/Ajkll/RoadBook-sub002/internal/models"
)

// Mode selects the bucketing window for Aggregate.
type Mode string

const (
	// ModeWeek buckets by day across the Monday..Sunday week containing
	// the reference date.
	ModeWeek Mode = "week"
	// ModeYear buckets by month across the calendar year of the
	// reference date.
	ModeYear Mode = "year"
)

// ParseMode maps a query-string value onto a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeWeek, ModeYear:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown aggregation mode %q (want week or year)", s)
	}
}

// AggregatedSeries is one chart-ready series: parallel label, key and value
// slices of equal length (7 for week mode, 12 for year mode). Buckets exist
// even when no record contributes to them.
type AggregatedSeries struct {
	Mode    Mode      `json:"mode"`
	Labels  []string  `json:"labels"`
	Keys    []string  `json:"keys"`
	Values  []float64 `json:"values"`
	TotalKm float64   `json:"total_km"`
}

var weekdayLabels = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

var monthLabels = []string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

// Aggregate buckets the distance of each record into the window selected by
// mode and ref. Records outside the window are ignored; absent or NaN
// distances count as zero. The input slice is never modified.
func Aggregate(records []models.SessionRecord, mode Mode, ref time.Time) (AggregatedSeries, error) {
	switch mode {
	case ModeWeek:
		return aggregateWeek(records, ref), nil
	case ModeYear:
		return aggregateYear(records, ref), nil
	default:
		return AggregatedSeries{}, fmt.Errorf("unknown aggregation mode %q", mode)
	}
}

// weekStart returns midnight UTC of the Monday of the ISO week containing t.
func weekStart(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)

	// time.Weekday is Sunday-based; ISO weeks start Monday.
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

func aggregateWeek(records []models.SessionRecord, ref time.Time) AggregatedSeries {
	start := weekStart(ref)

	keys := make([]string, 7)
	index := make(map[string]int, 7)
	for i := 0; i < 7; i++ {
		key := start.AddDate(0, 0, i).Format("2006-01-02")
		keys[i] = key
		index[key] = i
	}

	series := AggregatedSeries{
		Mode:   ModeWeek,
		Labels: append([]string(nil), weekdayLabels...),
		Keys:   keys,
		Values: make([]float64, 7),
	}

	for _, rec := range records {
		key := rec.Date.UTC().Format("2006-01-02")
		i, ok := index[key]
		if !ok {
			continue
		}
		km := safeKm(rec.Distance)
		series.Values[i] += km
		series.TotalKm += km
	}

	return series
}

func aggregateYear(records []models.SessionRecord, ref time.Time) AggregatedSeries {
	year := ref.UTC().Year()

	keys := make([]string, 12)
	for m := 0; m < 12; m++ {
		keys[m] = fmt.Sprintf("%04d-%02d", year, m+1)
	}

	series := AggregatedSeries{
		Mode:   ModeYear,
		Labels: append([]string(nil), monthLabels...),
		Keys:   keys,
		Values: make([]float64, 12),
	}

	for _, rec := range records {
		d := rec.Date.UTC()
		if d.Year() != year {
			continue
		}
		km := safeKm(rec.Distance)
		series.Values[int(d.Month())-1] += km
		series.TotalKm += km
	}

	return series
}

// safeKm guards against NaN and negative distances leaking into sums.
func safeKm(km float64) float64 {
	if math.IsNaN(km) || math.IsInf(km, 0) || km < 0 {
		return 0
	}
	return km
}
