// Package healthring tracks a rolling health history for the
// cognitive orchestrator's backend endpoints, adapted from the
// teacher's swarm-member health checker: same ticker-driven polling
// and bounded history-per-member shape, retargeted from discovered
// swarm agents to the two statically-configured backend endpoints.
package healthring

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Bjorgzz/Protocol-Omni/internal/cognition"
	"github.com/Bjorgzz/Protocol-Omni/internal/metrics"
)

type HealthCheckResult struct {
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}

type EndpointStatus struct {
	Name    string              `json:"name"`
	Status  string              `json:"status"`
	History []HealthCheckResult `json:"history"`
}

// HealthRing polls each backend endpoint's /health on an interval and
// keeps a bounded rolling history per endpoint, rather than the
// single-probe-per-request snapshot internal/cogserver's /health/full
// otherwise takes.
type HealthRing struct {
	endpoints   []cognition.BackendEndpoint
	statuses    map[string]*EndpointStatus
	interval    time.Duration
	historySize int
	client      *http.Client
	logger      *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewHealthRing starts polling immediately and returns nil when
// disabled, matching the teacher's opt-in construction.
func NewHealthRing(endpoints []cognition.BackendEndpoint, interval time.Duration, logger *slog.Logger) *HealthRing {
	if interval <= 0 {
		return nil
	}
	h := &HealthRing{
		endpoints:   endpoints,
		statuses:    make(map[string]*EndpointStatus),
		interval:    interval,
		historySize: 10,
		client:      &http.Client{Timeout: 5 * time.Second},
		logger:      logger,
	}
	for _, ep := range endpoints {
		h.statuses[ep.Name] = &EndpointStatus{Name: ep.Name, Status: "unknown"}
	}
	h.ctx, h.cancel = context.WithCancel(context.Background())
	go h.runChecks()
	return h
}

func (h *HealthRing) runChecks() {
	h.performChecks()
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			h.performChecks()
		}
	}
}

func (h *HealthRing) performChecks() {
	for _, ep := range h.endpoints {
		res := h.performCheck(ep)
		status := h.statuses[ep.Name]
		status.Status = "up"
		if !res.Success {
			status.Status = "down"
		}
		status.History = append(status.History, res)
		if len(status.History) > h.historySize {
			status.History = status.History[1:]
		}
		gaugeValue := 0.0
		if res.Success {
			gaugeValue = 1.0
		}
		metrics.CognitionBackendHealth.WithLabelValues(ep.Name).Set(gaugeValue)
		h.logger.Debug("backend health check", "endpoint", ep.Name, "status", status.Status)
	}
}

func (h *HealthRing) performCheck(ep cognition.BackendEndpoint) HealthCheckResult {
	res := HealthCheckResult{Timestamp: time.Now()}
	req, err := http.NewRequestWithContext(h.ctx, http.MethodGet, strings.TrimRight(ep.BaseURL, "/")+"/health", nil)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	resp, err := h.client.Do(req)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	defer resp.Body.Close()
	res.Success = resp.StatusCode < 500
	if !res.Success {
		res.Error = http.StatusText(resp.StatusCode)
	}
	return res
}

// Status returns a snapshot of every endpoint's rolling history.
func (h *HealthRing) Status() map[string]*EndpointStatus {
	m := make(map[string]*EndpointStatus, len(h.statuses))
	for k, v := range h.statuses {
		m[k] = v
	}
	return m
}

func (h *HealthRing) StatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(h.Status())
	}
}

func (h *HealthRing) Shutdown() {
	h.cancel()
}
