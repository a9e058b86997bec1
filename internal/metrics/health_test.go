package metrics

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestHealth(maxAge time.Duration) (*Health, *time.Time) {
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	h := NewHealth(maxAge)
	h.now = func() time.Time { return clock }
	h.lastPass = clock
	return h, &clock
}

func TestHealthStatus(t *testing.T) {
	h, clock := newTestHealth(3 * time.Second)

	if got := h.Status(); got != HealthStatusHealthy {
		t.Fatalf("initial status = %s, expected healthy", got)
	}

	h.RecordPass(true)
	if got := h.Status(); got != HealthStatusDegraded {
		t.Errorf("after truncated pass = %s, expected degraded", got)
	}

	h.RecordPass(false)
	if got := h.Status(); got != HealthStatusHealthy {
		t.Errorf("after clean pass = %s, expected healthy", got)
	}

	h.RecordFailure(errors.New("proc table unavailable"))
	if got := h.Status(); got != HealthStatusDegraded {
		t.Errorf("after failure = %s, expected degraded", got)
	}

	*clock = clock.Add(5 * time.Second)
	if got := h.Status(); got != HealthStatusUnhealthy {
		t.Errorf("stale status = %s, expected unhealthy", got)
	}
}

func TestHealthReport(t *testing.T) {
	h, _ := newTestHealth(time.Minute)
	h.RecordPass(true)
	h.RecordPass(false)

	report := h.Report()
	if report["total_passes"] != int64(2) {
		t.Errorf("total_passes = %v", report["total_passes"])
	}
	if report["truncated_passes"] != int64(1) {
		t.Errorf("truncated_passes = %v", report["truncated_passes"])
	}
	if _, ok := report["last_error"]; ok {
		t.Error("last_error should be absent after a clean pass")
	}
}

func TestHealthHandler(t *testing.T) {
	h, clock := newTestHealth(time.Second)
	router := New().Router(h)

	tests := []struct {
		desc    string
		advance time.Duration
		code    int
		status  string
	}{
		{"fresh", 0, http.StatusOK, "healthy"},
		{"stale", 2 * time.Second, http.StatusServiceUnavailable, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			*clock = clock.Add(tt.advance)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			if rr.Code != tt.code {
				t.Errorf("status code = %d, expected %d", rr.Code, tt.code)
			}
			var body map[string]interface{}
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid JSON body: %v", err)
			}
			if body["status"] != tt.status {
				t.Errorf("status = %v, expected %s", body["status"], tt.status)
			}
		})
	}
}
