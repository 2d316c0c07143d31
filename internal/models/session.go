// RoadBook Tracker - Driving Session Sync and Analytics
// Copyright 2026 Ajkll
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Ajkll/RoadBook-sub002

// Package models defines the normalized domain types shared across roadbookd:
// driving session records, categorical enums, and the wire representations
// received from the RoadBook backend.
package models

import (
	"strings"
	"time"
)

// Weather describes the weather conditions during a driving session.
type Weather string

// Weather conditions reported by the mobile client.
const (
	WeatherClear  Weather = "CLEAR"
	WeatherCloudy Weather = "CLOUDY"
	WeatherRainy  Weather = "RAINY"
	WeatherSnowy  Weather = "SNOWY"
	WeatherFoggy  Weather = "FOGGY"
	WeatherWindy  Weather = "WINDY"
	WeatherOther  Weather = "OTHER"
)

// ParseWeather maps a raw weather tag to a known Weather value.
// Unknown or empty tags map to WeatherOther.
func ParseWeather(s string) Weather {
	switch Weather(strings.ToUpper(strings.TrimSpace(s))) {
	case WeatherClear, WeatherCloudy, WeatherRainy, WeatherSnowy, WeatherFoggy, WeatherWindy:
		return Weather(strings.ToUpper(strings.TrimSpace(s)))
	default:
		return WeatherOther
	}
}

// SessionType categorizes a driving session.
type SessionType string

// Session types supported by the roadbook.
const (
	SessionTypeLesson   SessionType = "LESSON"
	SessionTypePractice SessionType = "PRACTICE"
	SessionTypeExam     SessionType = "EXAM"
	SessionTypeOther    SessionType = "OTHER"
)

// ParseSessionType maps a raw session type tag to a known SessionType.
func ParseSessionType(s string) SessionType {
	switch SessionType(strings.ToUpper(strings.TrimSpace(s))) {
	case SessionTypeLesson, SessionTypePractice, SessionTypeExam:
		return SessionType(strings.ToUpper(strings.TrimSpace(s)))
	default:
		return SessionTypeOther
	}
}

// RoadType tags the kinds of road driven during a session.
type RoadType string

// Road types recorded per session.
const (
	RoadTypeUrban      RoadType = "URBAN"
	RoadTypeRural      RoadType = "RURAL"
	RoadTypeHighway    RoadType = "HIGHWAY"
	RoadTypeExpressway RoadType = "EXPRESSWAY"
	RoadTypeOther      RoadType = "OTHER"
)

// ParseRoadType maps a raw road type tag to a known RoadType.
func ParseRoadType(s string) RoadType {
	switch RoadType(strings.ToUpper(strings.TrimSpace(s))) {
	case RoadTypeUrban, RoadTypeRural, RoadTypeHighway, RoadTypeExpressway:
		return RoadType(strings.ToUpper(strings.TrimSpace(s)))
	default:
		return RoadTypeOther
	}
}

// SessionRecord is one logged driving session, normalized from the backend
// wire format. Duration and Distance are always >= 0 after normalization;
// absent values are 0, never null, so aggregation can sum without nil checks.
type SessionRecord struct {
	ID string `json:"id"`

	// Date is the calendar day of the session, truncated to UTC midnight.
	Date      time.Time  `json:"date"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	// Duration is in minutes, Distance in kilometers.
	Duration int     `json:"duration"`
	Distance float64 `json:"distance"`

	StartLocation string `json:"start_location,omitempty"`
	EndLocation   string `json:"end_location,omitempty"`

	Weather     Weather     `json:"weather"`
	SessionType SessionType `json:"session_type"`
	RoadTypes   []RoadType  `json:"road_types,omitempty"`

	ApprenticeID string  `json:"apprentice_id,omitempty"`
	RoadbookID   string  `json:"roadbook_id,omitempty"`
	ValidatorID  *string `json:"validator_id,omitempty"`

	Notes string `json:"notes,omitempty"`
}
