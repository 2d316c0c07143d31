// RoadBook Tracker - Driving Session Sync and Analytics
// Copyright 2026 Ajkll
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Ajkll/RoadBook-sub002

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.CollectAndCount(APIRequestsTotal)
	RecordAPIRequest("GET", "/api/v1/sessions", 200, 25*time.Millisecond)
	after := testutil.CollectAndCount(APIRequestsTotal)
	if after <= before {
		t.Errorf("expected api_requests_total series count to grow, before=%d after=%d", before, after)
	}
}

func TestRecordBackendRequest(t *testing.T) {
	RecordBackendRequest("/sessions", 503, 100*time.Millisecond)
	if got := testutil.CollectAndCount(BackendRequestDuration); got == 0 {
		t.Error("expected backend_request_duration_seconds to have at least one series")
	}
}

func TestRefreshOutcomeCounter(t *testing.T) {
	RefreshCyclesTotal.WithLabelValues("ok").Inc()
	v := testutil.ToFloat64(RefreshCyclesTotal.WithLabelValues("ok"))
	if v < 1 {
		t.Errorf("refresh_cycles_total{outcome=ok} = %v, want >= 1", v)
	}
}
