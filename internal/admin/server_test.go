package admin

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/agar-cache/agar/internal/allocator"
	"github.com/agar-cache/agar/internal/metrics"
	"github.com/agar-cache/agar/pkg/health"
	"github.com/agar-cache/agar/pkg/status"
	"github.com/agar-cache/agar/pkg/utils"
)

func testLogger(t *testing.T) *utils.StructuredLogger {
	l, err := utils.NewStructuredLogger(utils.DefaultStructuredLoggerConfig())
	if err != nil {
		t.Fatalf("NewStructuredLogger failed: %v", err)
	}
	return l
}

func TestHandleHealthReportsOverallState(t *testing.T) {
	ht := health.NewTracker(health.DefaultConfig())
	ht.RegisterComponent("us-east-1")

	s := New(DefaultConfig(), status.NewTracker(), ht, nil, nil, testLogger(t))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.handleHealth(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", body["status"])
	}
}

func TestHandleStatusReturnsSnapshot(t *testing.T) {
	st := status.NewTracker()
	st.SetAllocatorStatus(3, 12, 12, st.Snapshot().LastReallocation)

	s := New(DefaultConfig(), st, health.NewTracker(health.DefaultConfig()), nil, nil, testLogger(t))

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	s.handleStatus(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["keys_tracked"].(float64) != 3 {
		t.Errorf("keys_tracked = %v, want 3", body["keys_tracked"])
	}
}

func TestHandleReallocateTriggersAllocator(t *testing.T) {
	a := allocator.New(allocator.Config{K: 4, M: 2, Budget: 6, Decay: 1.0, Interval: 0}, testLogger(t))
	a.OnAccess("hot-object")

	s := New(DefaultConfig(), status.NewTracker(), health.NewTracker(health.DefaultConfig()), a, nil, testLogger(t))

	req := httptest.NewRequest(http.MethodPost, "/admin/reallocate", nil)
	rec := httptest.NewRecorder()
	s.handleReallocate(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["blocks_assigned"].(float64) <= 0 {
		t.Errorf("blocks_assigned = %v, want > 0", body["blocks_assigned"])
	}
}

func TestMetricsEndpointMountedWhenCollectorProvided(t *testing.T) {
	collector, err := metrics.NewCollector(&metrics.Config{Enabled: true, Namespace: "agar_admin_test"})
	if err != nil {
		t.Fatalf("NewCollector failed: %v", err)
	}
	collector.RecordReadOutcome("hit")

	s := New(DefaultConfig(), status.NewTracker(), health.NewTracker(health.DefaultConfig()), nil, collector, testLogger(t))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("agar_admin_test_read_outcomes_total")) {
		t.Errorf("expected exposition body to contain the registered counter, got: %s", rec.Body.String())
	}
}

func TestMetricsEndpointAbsentWithoutCollector(t *testing.T) {
	s := New(DefaultConfig(), status.NewTracker(), health.NewTracker(health.DefaultConfig()), nil, nil, testLogger(t))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 when no metrics collector is configured", rec.Code)
	}
}

func TestHandleReallocateRejectsGet(t *testing.T) {
	s := New(DefaultConfig(), status.NewTracker(), health.NewTracker(health.DefaultConfig()), nil, nil, testLogger(t))

	req := httptest.NewRequest(http.MethodGet, "/admin/reallocate", nil)
	rec := httptest.NewRecorder()
	s.handleReallocate(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}
