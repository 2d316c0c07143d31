// RoadBook Tracker - Driving Session Sync and Analytics
// Copyright 2026 Ajkll
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Ajkll/RoadBook-sub002

/*
client.go - RoadBook Backend REST Client

This file implements the REST client for the RoadBook backend, the external
collaborator owning session data. It provides the session list fetch the
refresh pipeline runs, plus a connectivity check for health reporting.

Error contract:
  - HTTP 401 maps to ErrAuthExpired (non-retryable, escalates to re-auth)
  - network errors and HTTP 404/5xx map to wrapped transient errors
*/

package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/Ajkll/RoadBook-sub002/internal/config"
	"github.com/Ajkll/RoadBook-sub002/internal/metrics"
	"github.com/Ajkll/RoadBook-sub002/internal/models"
)

// ErrAuthExpired indicates the backend rejected our credentials (HTTP 401).
// It is never retried by the refresh pipeline; callers must surface a
// re-authentication flow instead.
var ErrAuthExpired = errors.New("backend authentication expired")

// SessionLister is the interface the refresh pipeline depends on.
// Both Client and BreakerClient implement it.
type SessionLister interface {
	ListSessions(ctx context.Context) ([]models.RawSession, error)
	Ping(ctx context.Context) error
}

// Ensure Client implements SessionLister
var _ SessionLister = (*Client)(nil)

// Client provides access to the RoadBook backend REST API.
type Client struct {
	baseURL      string
	token        string
	apprenticeID string
	httpClient   *http.Client
	limiter      *rate.Limiter
}

// NewClient creates a new RoadBook backend client.
//
// The rate limiter protects the backend from aggressive polling; a zero
// RateLimit disables client-side limiting.
func NewClient(cfg *config.BackendConfig) *Client {
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		baseURL:      strings.TrimSuffix(cfg.URL, "/"),
		token:        cfg.Token,
		apprenticeID: cfg.ApprenticeID,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: limiter,
	}
}

// ListSessions retrieves the learner's session list from the backend.
//
// Returns the raw wire records; normalization into SessionRecord is the
// refresh controller's responsibility so a failed fetch can never publish
// half-normalized data.
func (c *Client) ListSessions(ctx context.Context) ([]models.RawSession, error) {
	endpoint := "/sessions"

	query := url.Values{}
	if c.apprenticeID != "" {
		query.Set("apprenticeId", c.apprenticeID)
	}

	resp, err := c.doRequest(ctx, endpoint, query)
	if err != nil {
		metrics.BackendRequestErrors.WithLabelValues(endpoint, "network").Inc()
		return nil, fmt.Errorf("sessions request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := c.checkStatus(resp, endpoint); err != nil {
		return nil, err
	}

	var sessions []models.RawSession
	if err := json.NewDecoder(resp.Body).Decode(&sessions); err != nil {
		metrics.BackendRequestErrors.WithLabelValues(endpoint, "decode").Inc()
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}

	return sessions, nil
}

// Ping verifies connectivity to the backend.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.doRequest(ctx, "/health", nil)
	if err != nil {
		return fmt.Errorf("backend ping failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend ping returned status %d", resp.StatusCode)
	}

	return nil
}

// checkStatus maps non-200 responses to the client error contract.
func (c *Client) checkStatus(resp *http.Response, endpoint string) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		metrics.BackendRequestErrors.WithLabelValues(endpoint, "auth").Inc()
		return fmt.Errorf("%s returned status 401: %w", endpoint, ErrAuthExpired)
	default:
		metrics.BackendRequestErrors.WithLabelValues(endpoint, "status").Inc()
		body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if err != nil {
			return fmt.Errorf("%s returned status %d (failed to read body)", endpoint, resp.StatusCode)
		}
		return fmt.Errorf("%s returned status %d: %s", endpoint, resp.StatusCode, string(body))
	}
}

// doRequest performs an HTTP GET request against the backend, honoring the
// client-side rate limiter.
func (c *Client) doRequest(ctx context.Context, endpoint string, query url.Values) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}
	}

	fullURL := c.baseURL + endpoint
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	metrics.RecordBackendRequest(endpoint, resp.StatusCode, time.Since(start))

	return resp, nil
}
