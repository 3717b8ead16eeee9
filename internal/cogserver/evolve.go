package cogserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Bjorgzz/Protocol-Omni/internal/evolution"
	"github.com/Bjorgzz/Protocol-Omni/internal/metrics"
)

// paretoFrontierHandler exposes the evolution engine's current Pareto
// frontier, grounded on evolution.py's create_gepa_server GET
// /pareto-frontier route.
func (s *Server) paretoFrontierHandler(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		http.Error(w, "evolution engine disabled", http.StatusNotFound)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"frontier": s.engine.Frontier()})
}

type recordTrajectoryRequest struct {
	Task      string  `json:"task"`
	Prompt    string  `json:"prompt"`
	Output    string  `json:"output"`
	Expected  string  `json:"expected"`
	Error     string  `json:"error"`
	Success   bool    `json:"success"`
	LatencyMs float64 `json:"latency_ms"`
}

// recordTrajectoryHandler lets an external caller (e.g. a separately
// running evaluation harness) feed a trajectory directly into the
// engine's sample buffer, mirroring evolution.py's POST
// /record-trajectory route.
func (s *Server) recordTrajectoryHandler(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		http.Error(w, "evolution engine disabled", http.StatusNotFound)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req recordTrajectoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	s.engine.RecordTrajectory(evolution.Trajectory{
		Task:      req.Task,
		Prompt:    req.Prompt,
		Output:    req.Output,
		Expected:  req.Expected,
		Error:     req.Error,
		Success:   req.Success,
		LatencyMs: req.LatencyMs,
		Timestamp: time.Now(),
	})
	w.WriteHeader(http.StatusAccepted)
}

type evolveRequest struct {
	CurrentPrompts map[string]string `json:"current_prompts"`
}

// evolveHandler triggers an out-of-schedule evolution cycle on demand,
// mirroring evolution.py's POST /evolve route — useful for an operator
// forcing a cycle between scheduled runs rather than waiting for cron.
func (s *Server) evolveHandler(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		http.Error(w, "evolution engine disabled", http.StatusNotFound)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req evolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	updated, err := s.engine.Cycle(r.Context(), req.CurrentPrompts)
	if err != nil {
		s.log.Error("on-demand evolution cycle failed", "error", err)
		http.Error(w, "evolution cycle failed", http.StatusInternalServerError)
		return
	}
	metrics.CognitionEvolutionCycles.Inc()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"updated_prompts": updated})
}
