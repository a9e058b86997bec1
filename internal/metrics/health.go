package metrics

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// HealthStatus represents the health state of the watch loop
type HealthStatus int

const (
	HealthStatusHealthy HealthStatus = iota
	HealthStatusDegraded
	HealthStatusUnhealthy
)

// String returns string representation of health status
func (hs HealthStatus) String() string {
	switch hs {
	case HealthStatusHealthy:
		return "healthy"
	case HealthStatusDegraded:
		return "degraded"
	case HealthStatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Health tracks whether passes keep completing.
// A pass that hit a capacity limit is degraded; no completed pass within
// maxPassAge is unhealthy.
type Health struct {
	mu sync.RWMutex

	lastPass      time.Time
	lastTruncated bool
	totalPasses   int64
	truncated     int64
	lastError     string
	maxPassAge    time.Duration

	now func() time.Time
}

// NewHealth creates a tracker that turns unhealthy when no pass completes
// within maxPassAge
func NewHealth(maxPassAge time.Duration) *Health {
	h := &Health{maxPassAge: maxPassAge, now: time.Now}
	h.lastPass = h.now()
	return h
}

// RecordPass records a completed pass
func (h *Health) RecordPass(truncated bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastPass = h.now()
	h.lastTruncated = truncated
	h.totalPasses++
	if truncated {
		h.truncated++
	}
	h.lastError = ""
}

// RecordFailure records a pass that could not complete
func (h *Health) RecordFailure(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err != nil {
		h.lastError = err.Error()
	}
}

// Status returns current health status
func (h *Health) Status() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status()
}

// must be called with lock held
func (h *Health) status() HealthStatus {
	if h.now().Sub(h.lastPass) > h.maxPassAge {
		return HealthStatusUnhealthy
	}
	if h.lastError != "" || h.lastTruncated {
		return HealthStatusDegraded
	}
	return HealthStatusHealthy
}

// Report returns detailed health report
func (h *Health) Report() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()

	report := map[string]interface{}{
		"status":              h.status().String(),
		"last_pass":           h.lastPass.Format(time.RFC3339),
		"time_since_pass":     h.now().Sub(h.lastPass).String(),
		"total_passes":        h.totalPasses,
		"truncated_passes":    h.truncated,
		"last_pass_truncated": h.lastTruncated,
	}
	if h.lastError != "" {
		report["last_error"] = h.lastError
	}
	return report
}

// ServeHTTP answers 503 when unhealthy and 200 otherwise, with a JSON body
func (h *Health) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	report := h.Report()
	code := http.StatusOK
	if h.Status() == HealthStatusUnhealthy {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(report)
}
