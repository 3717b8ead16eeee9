package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cognition orchestrator metrics, mirroring metrics.go's cortex_gateway_*
// naming convention but for the C1/C6/C7/C8 request path.
var (
	CognitionRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cognition_orchestrator_requests_total",
			Help: "Total chat-completions requests, by complexity and endpoint",
		},
		[]string{"complexity", "endpoint"},
	)

	CognitionRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "cognition_orchestrator_request_duration_seconds",
			Help: "End-to-end request latency, by complexity",
		},
		[]string{"complexity"},
	)

	CognitionGateResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cognition_orchestrator_metacog_gate_results_total",
			Help: "Metacognition verdicts, by gate/failure type",
		},
		[]string{"verdict"},
	)

	CognitionBackendHealth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cognition_orchestrator_backend_health",
			Help: "1 if the named backend endpoint is healthy, else 0",
		},
		[]string{"endpoint"},
	)

	CognitionEvolutionCycles = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cognition_orchestrator_evolution_cycles_total",
			Help: "Total evolution cycles run",
		},
	)
)
