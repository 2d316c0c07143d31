// RoadBook Tracker - Driving Session Sync and Analytics
// Copyright 2026 Ajkll
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Ajkll/RoadBook-sub002

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/Ajkll/RoadBook-sub002/internal/cache"
	"github.com/Ajkll/RoadBook-sub002/internal/config"
	"github.com/Ajkll/RoadBook-sub002/internal/refresh"
	"github.com/Ajkll/RoadBook-sub002/internal/stats"
	"github.com/Ajkll/RoadBook-sub002/internal/store"
)

// BreakerStatus exposes the circuit breaker state for health reporting.
type BreakerStatus interface {
	State() string
}

// Handler holds the dependencies shared by all HTTP handlers.
type Handler struct {
	store      *store.SessionStore
	goals      *store.GoalStore
	controller *refresh.Controller
	breaker    BreakerStatus
	validate   *validator.Validate

	// statsCache memoizes aggregation results per snapshot version.
	statsCache *cache.StatsCache

	// staleAfter marks snapshots older than this as stale in responses.
	staleAfter time.Duration

	defaultPageSize int
	maxPageSize     int
}

// NewHandler creates the handler set. Zero page sizes fall back to the
// configuration defaults.
func NewHandler(sessions *store.SessionStore, goals *store.GoalStore, controller *refresh.Controller, breaker BreakerStatus, staleAfter time.Duration, pages config.APIConfig) *Handler {
	if pages.DefaultPageSize <= 0 {
		pages.DefaultPageSize = 20
	}
	if pages.MaxPageSize < pages.DefaultPageSize {
		pages.MaxPageSize = pages.DefaultPageSize
	}
	return &Handler{
		store:           sessions,
		goals:           goals,
		controller:      controller,
		breaker:         breaker,
		validate:        validator.New(),
		statsCache:      cache.NewStatsCache(64, 5*time.Minute),
		staleAfter:      staleAfter,
		defaultPageSize: pages.DefaultPageSize,
		maxPageSize:     pages.MaxPageSize,
	}
}

// sessionsPayload is the data body for GET /api/v1/sessions.
type sessionsPayload struct {
	Sessions    interface{} `json:"sessions"`
	Count       int         `json:"count"`
	Total       int         `json:"total"`
	Page        int         `json:"page"`
	PageSize    int         `json:"page_size"`
	Version     uint64      `json:"version"`
	PublishedAt time.Time   `json:"published_at"`
}

// parsePagination reads page/page_size query parameters, applying the
// configured default and cap. Returns false after writing the error
// response.
func (h *Handler) parsePagination(rw *ResponseWriter, r *http.Request) (page, size int, ok bool) {
	page, size = 1, h.defaultPageSize

	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			rw.BadRequest("page must be a positive integer")
			return 0, 0, false
		}
		page = n
	}
	if raw := r.URL.Query().Get("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			rw.BadRequest("page_size must be a positive integer")
			return 0, 0, false
		}
		size = n
	}
	if size > h.maxPageSize {
		size = h.maxPageSize
	}
	return page, size, true
}

// requireData enforces the stale-data policy: an empty store is only an
// error when nothing has ever been loaded. It returns false after writing
// the error response.
func (h *Handler) requireData(rw *ResponseWriter) bool {
	if h.store.Version() > 0 {
		return true
	}
	if h.controller.Status().AuthExpired {
		rw.ServiceUnavailable(ErrCodeAuthExpired, "backend authentication expired; re-authentication required")
		return false
	}
	rw.ServiceUnavailable(ErrCodeNoData, "no session data loaded yet")
	return false
}

// snapshotMeta builds response metadata carrying the stale flag.
func (h *Handler) snapshotMeta() *APIMeta {
	meta := &APIMeta{}
	if last := h.store.LastPublished(); !last.IsZero() && time.Since(last) > h.staleAfter {
		meta.Stale = true
	}
	return meta
}

// Sessions returns one page of the latest session snapshot.
// GET /api/v1/sessions?page=N&page_size=M
func (h *Handler) Sessions(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.requireData(rw) {
		return
	}
	page, size, ok := h.parsePagination(rw, r)
	if !ok {
		return
	}

	records := h.store.Records()
	total := len(records)
	start := (page - 1) * size
	if start < 0 || start > total {
		// Past the end (or integer overflow from an absurd page number):
		// an empty page, not an error.
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}

	rw.SuccessWithMeta(sessionsPayload{
		Sessions:    records[start:end],
		Count:       end - start,
		Total:       total,
		Page:        page,
		PageSize:    size,
		Version:     h.store.Version(),
		PublishedAt: h.store.LastPublished(),
	}, h.snapshotMeta())
}

// Stats returns a bucketed distance series.
// GET /api/v1/stats?mode=week|year&date=YYYY-MM-DD
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.requireData(rw) {
		return
	}

	mode, err := stats.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	ref := time.Now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		ref, err = time.Parse("2006-01-02", raw)
		if err != nil {
			rw.BadRequest("invalid date, want YYYY-MM-DD")
			return
		}
	}

	// Aggregation is pure over the snapshot, so the version in the key
	// invalidates cached results when new data is published.
	key := fmt.Sprintf("%s|%s|%d", mode, ref.Format("2006-01-02"), h.store.Version())
	series, ok := h.statsCache.Get(key)
	if !ok {
		series, err = stats.Aggregate(h.store.Records(), mode, ref)
		if err != nil {
			rw.InternalError(err.Error())
			return
		}
		h.statsCache.Add(key, series)
	}
	rw.SuccessWithMeta(series, h.snapshotMeta())
}

// StatsSummary returns headline totals across all sessions.
// GET /api/v1/stats/summary
func (h *Handler) StatsSummary(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.requireData(rw) {
		return
	}
	rw.SuccessWithMeta(stats.Summarize(h.store.Records()), h.snapshotMeta())
}

// refreshPayload is the data body for POST /api/v1/refresh.
type refreshPayload struct {
	Outcome  refresh.OutcomeKind `json:"outcome"`
	Attempts int                 `json:"attempts"`
	Records  int                 `json:"records"`
	Version  uint64              `json:"version"`
}

// RefreshTrigger runs a synchronous refresh cycle, superseding any cycle
// already in flight.
// POST /api/v1/refresh
func (h *Handler) RefreshTrigger(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	out := h.controller.Refresh(r.Context())

	switch out.Kind {
	case refresh.OutcomeAuthExpired:
		rw.Error(http.StatusUnauthorized, ErrCodeAuthExpired, "backend authentication expired")
	case refresh.OutcomeExhausted:
		msg := "refresh failed after all attempts"
		if out.Err != nil {
			msg = out.Err.Error()
		}
		rw.Error(http.StatusBadGateway, ErrCodeBackendFailed, msg)
	default:
		rw.Success(refreshPayload{
			Outcome:  out.Kind,
			Attempts: out.Attempts,
			Records:  len(out.Sessions),
			Version:  h.store.Version(),
		})
	}
}

// refreshStatusPayload is the data body for GET /api/v1/refresh/status.
type refreshStatusPayload struct {
	refresh.Status
	StoreVersion uint64    `json:"store_version"`
	PublishedAt  time.Time `json:"published_at,omitempty"`
}

// RefreshStatus reports the controller state and store snapshot version.
// GET /api/v1/refresh/status
func (h *Handler) RefreshStatus(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(refreshStatusPayload{
		Status:       h.controller.Status(),
		StoreVersion: h.store.Version(),
		PublishedAt:  h.store.LastPublished(),
	})
}

// goalsPayload mirrors the mobile client's goal entries.
type goalsPayload struct {
	GoalKm   string `json:"goal_km"`
	GoalDate string `json:"goal_date"`
}

// goalsUpdateRequest is the PUT /api/v1/goals body. Values stay plain
// strings, matching the key-value contract of the client.
type goalsUpdateRequest struct {
	GoalKm   string `json:"goal_km" validate:"omitempty,numeric"`
	GoalDate string `json:"goal_date" validate:"omitempty,datetime=2006-01-02"`
}

// GoalsGet reads the stored goal entries. Unset keys come back as empty
// strings rather than errors.
// GET /api/v1/goals
func (h *Handler) GoalsGet(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var payload goalsPayload
	var err error

	if payload.GoalKm, err = h.goals.Get(store.GoalKeyKm); err != nil && !errors.Is(err, store.ErrGoalNotFound) {
		rw.InternalError("failed to read goals")
		return
	}
	if payload.GoalDate, err = h.goals.Get(store.GoalKeyDate); err != nil && !errors.Is(err, store.ErrGoalNotFound) {
		rw.InternalError("failed to read goals")
		return
	}

	rw.Success(payload)
}

// GoalsPut stores the goal entries supplied in the body. Only provided
// fields are written.
// PUT /api/v1/goals
func (h *Handler) GoalsPut(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req goalsUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("invalid JSON body")
		return
	}
	if req.GoalKm == "" && req.GoalDate == "" {
		rw.BadRequest("at least one of goal_km or goal_date is required")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		rw.ValidationError("invalid goal values", validationDetails(err))
		return
	}

	if req.GoalKm != "" {
		if err := h.goals.Set(store.GoalKeyKm, req.GoalKm); err != nil {
			rw.InternalError("failed to save goals")
			return
		}
	}
	if req.GoalDate != "" {
		if err := h.goals.Set(store.GoalKeyDate, req.GoalDate); err != nil {
			rw.InternalError("failed to save goals")
			return
		}
	}

	h.GoalsGet(w, r)
}

// validationDetails flattens validator errors into field -> rule pairs.
func validationDetails(err error) map[string]string {
	details := make(map[string]string)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			details[fe.Field()] = fe.Tag()
		}
	}
	return details
}

// healthPayload is the /healthz body.
type healthPayload struct {
	Status       string    `json:"status"`
	BreakerState string    `json:"breaker_state"`
	StoreVersion uint64    `json:"store_version"`
	LastSuccess  time.Time `json:"last_success,omitempty"`
	AuthExpired  bool      `json:"auth_expired"`
}

// Health reports liveness plus refresh pipeline health.
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := h.controller.Status()
	NewResponseWriter(w, r).Success(healthPayload{
		Status:       "ok",
		BreakerState: h.breaker.State(),
		StoreVersion: h.store.Version(),
		LastSuccess:  status.LastSuccess,
		AuthExpired:  status.AuthExpired,
	})
}
