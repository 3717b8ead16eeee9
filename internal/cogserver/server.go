// Package cogserver exposes the cognitive request orchestrator over
// HTTP: the OpenAI-compatible chat-completions endpoint (streaming and
// non-streaming), the status report, health checks, and the GEPA-style
// evolution-engine control surface, grounded on internal/server/server.go's
// mux.HandleFunc/JSON-response style.
package cogserver

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Bjorgzz/Protocol-Omni/internal/cognition"
	"github.com/Bjorgzz/Protocol-Omni/internal/cognition/graph"
	"github.com/Bjorgzz/Protocol-Omni/internal/evolution"
	"github.com/Bjorgzz/Protocol-Omni/internal/healthring"
	"github.com/Bjorgzz/Protocol-Omni/internal/memory"
	"github.com/Bjorgzz/Protocol-Omni/internal/metrics"
	"github.com/Bjorgzz/Protocol-Omni/internal/onboarding"
)

// Server serves the cognitive graph over HTTP.
type Server struct {
	graph     *graph.Graph
	registry  *cognition.Registry
	scheduler *evolution.Scheduler
	engine    *evolution.Engine
	mirror    *evolution.StreamMirror
	ring      *healthring.HealthRing
	log       *slog.Logger
	startTime time.Time

	upgrader websocket.Upgrader
	http     *http.Server
}

// Config bundles the Server's collaborators.
type Config struct {
	Addr        string
	Graph       *graph.Graph
	Registry    *cognition.Registry
	Scheduler   *evolution.Scheduler    // nil if the evolution engine is disabled
	Engine      *evolution.Engine       // nil if the evolution engine is disabled
	Mirror      *evolution.StreamMirror // nil if redis_url is unconfigured
	MemoryStore *memory.Store           // local markdown-backed memory browser, nil to disable
	Onboarding  *onboarding.Onboarding  // nil to disable the setup wizard's HTTP routes
	HealthRing  *healthring.HealthRing  // nil if healthring.enabled is false
	Log         *slog.Logger
}

func New(cfg Config) *Server {
	s := &Server{
		graph:     cfg.Graph,
		registry:  cfg.Registry,
		scheduler: cfg.Scheduler,
		engine:    cfg.Engine,
		mirror:    cfg.Mirror,
		ring:      cfg.HealthRing,
		log:       cfg.Log,
		startTime: time.Now(),
		upgrader:  websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", s.chatCompletionsHandler)
	mux.HandleFunc("/ws/chat", s.wsChatHandler)
	mux.HandleFunc("/api/v1/status", s.statusHandler)
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/health/full", s.healthFullHandler)
	mux.HandleFunc("/pareto-frontier", s.paretoFrontierHandler)
	mux.HandleFunc("/record-trajectory", s.recordTrajectoryHandler)
	mux.HandleFunc("/evolve", s.evolveHandler)

	if cfg.MemoryStore != nil {
		memoryHandler := memory.NewHandler(cfg.MemoryStore, cfg.Log)
		mux.HandleFunc("/api/v1/memories/search", memoryHandler.SearchHandler)
		mux.HandleFunc("/api/v1/memories/store", memoryHandler.StoreHandler)
		mux.HandleFunc("/api/v1/memories/recent", memoryHandler.RecentHandler)
		mux.HandleFunc("/api/v1/memories/stats", memoryHandler.StatsHandler)
	}

	if cfg.HealthRing != nil {
		mux.HandleFunc("/api/v1/health/ring", cfg.HealthRing.StatusHandler())
	}

	if cfg.Onboarding != nil {
		mux.HandleFunc("/api/v1/onboarding/status", cfg.Onboarding.StatusHandler())
		mux.HandleFunc("/api/v1/onboarding/start", cfg.Onboarding.StartHandler())
		mux.HandleFunc("/api/v1/onboarding/step/", cfg.Onboarding.StepHandler())
		mux.HandleFunc("/api/v1/onboarding/complete", cfg.Onboarding.CompleteHandler())
	}

	s.http = &http.Server{Addr: cfg.Addr, Handler: metricsMiddleware(mux)}
	return s
}

// metricsMiddleware records the request-count/duration pair for every
// route and tracks in-flight requests as a gauge.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.ActiveSessions.Inc()
		defer metrics.ActiveSessions.Dec()

		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		metrics.RequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(started).Seconds())
		metrics.RequestCount.WithLabelValues(r.Method, r.URL.Path, http.StatusText(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack passes through to the underlying ResponseWriter so /ws/chat's
// websocket upgrade still works through this middleware.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("underlying ResponseWriter does not support hijacking")
	}
	return h.Hijack()
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("cognitive orchestrator listening", "addr", s.http.Addr)
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests within ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.ring != nil {
		s.ring.Shutdown()
	}
	return s.http.Shutdown(ctx)
}
