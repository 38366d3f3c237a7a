package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// PassStatus holds the outcome of the most recent pass. Safe for concurrent use.
type PassStatus struct {
	mu       sync.RWMutex
	runID    string
	status   string
	message  string
	finished time.Time
	passes   int
}

// Record stores the outcome of a finished pass. A nil err marks it ok.
func (s *PassStatus) Record(runID string, finished time.Time, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runID = runID
	s.finished = finished
	s.passes++
	s.status = "ok"
	s.message = ""
	if err != nil {
		s.status = "failed"
		s.message = err.Error()
	}
}

// HealthReport is the /healthz response body.
type HealthReport struct {
	Status     string     `json:"status"`
	Passes     int        `json:"passes"`
	LastRunID  string     `json:"last_run_id,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Report returns a snapshot. Status is "pending" until the first pass finishes.
func (s *PassStatus) Report() HealthReport {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.passes == 0 {
		return HealthReport{Status: "pending"}
	}
	finished := s.finished
	return HealthReport{
		Status:     s.status,
		Passes:     s.passes,
		LastRunID:  s.runID,
		LastError:  s.message,
		FinishedAt: &finished,
	}
}

// MonitorHandler serves Prometheus metrics and a JSON health report.
type MonitorHandler struct {
	metrics http.Handler
	status  *PassStatus
}

// NewMonitorHandler creates a [MonitorHandler]. metrics may be nil to serve only /healthz.
func NewMonitorHandler(metrics http.Handler, status *PassStatus) *MonitorHandler {
	return &MonitorHandler{metrics: metrics, status: status}
}

func (h *MonitorHandler) Routes() []string {
	if h.metrics == nil {
		return []string{"/healthz"}
	}
	return []string{"/metrics", "/healthz"}
}

// ServeHTTP answers /healthz with 503 while the last pass failed.
func (h *MonitorHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/metrics" && h.metrics != nil {
		h.metrics.ServeHTTP(w, r)
		return
	}
	if r.URL.Path != "/healthz" {
		http.NotFound(w, r)
		return
	}

	report := h.status.Report()
	code := http.StatusOK
	if report.Status == "failed" {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(report)
}
