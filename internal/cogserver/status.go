package cogserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Bjorgzz/Protocol-Omni/internal/cognition"
)

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	state := &cognition.RequestState{
		Prompt:        "system status",
		IsStatusQuery: true,
	}
	out := s.graph.Run(r.Context(), state)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"report":    out.Response,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// healthHandler is the lightweight liveness probe: the graph was
// compiled (non-nil) and the process is up, per §6.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.graph == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]any{"status": "unhealthy", "error": "graph not compiled"})
		return
	}
	json.NewEncoder(w).Encode(map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startTime).String(),
	})
}

// healthFullHandler runs backend health checks concurrently plus a
// mini routing test (a trivial prompt expected to route to the fast
// executor), classifying overall health as healthy/degraded/unhealthy
// per §6.
func (s *Server) healthFullHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	type endpointHealth struct {
		Name    string `json:"name"`
		Healthy bool   `json:"healthy"`
	}

	results := make(chan endpointHealth, 2)
	for _, name := range []string{cognition.EndpointDeep, cognition.EndpointFast} {
		go func(name string) {
			ep, ok := s.registry.Get(name)
			if !ok {
				results <- endpointHealth{Name: name, Healthy: false}
				return
			}
			results <- endpointHealth{Name: name, Healthy: probeEndpoint(ctx, ep)}
		}(name)
	}

	endpoints := make([]endpointHealth, 0, 2)
	for i := 0; i < 2; i++ {
		endpoints = append(endpoints, <-results)
	}

	routingState := &cognition.RequestState{Prompt: "hi"}
	routingOK := s.runRoutingProbe(ctx, routingState)

	healthyCount := 0
	for _, e := range endpoints {
		if e.Healthy {
			healthyCount++
		}
	}

	overall := "healthy"
	switch {
	case healthyCount == 0:
		overall = "unhealthy"
	case healthyCount < len(endpoints) || !routingOK:
		overall = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":        overall,
		"endpoints":     endpoints,
		"routing_probe": routingOK,
		"uptime":        time.Since(s.startTime).String(),
	})
}

// runRoutingProbe classifies a trivial prompt and checks it routed to
// the fast executor, without calling the backend model itself.
func (s *Server) runRoutingProbe(ctx context.Context, state *cognition.RequestState) bool {
	// Classification alone is enough for the probe: running the full
	// graph would invoke the backend and double-count in metrics.
	s.graph.ClassifyOnly(state)
	return state.Endpoint == cognition.EndpointFast || state.Endpoint == ""
}

// probeEndpoint does a lightweight reachability check against an
// endpoint's base URL, matching internal/healthring/ring.go's
// dial-and-check style.
func probeEndpoint(ctx context.Context, ep cognition.BackendEndpoint) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.BaseURL+"/health", nil)
	if err != nil {
		return false
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 500
}
