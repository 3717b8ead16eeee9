package evolution

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Bjorgzz/Protocol-Omni/internal/cognition"
	"github.com/Bjorgzz/Protocol-Omni/internal/cognition/model"
)

// OracleCaller is the model call the engine uses for reflection and
// variant proposal — the same wire contract as a backend model call,
// so the Oracle can be any registered BackendEndpoint (deep, by
// default, since reflection is reasoning-heavy work).
type OracleCaller interface {
	Call(ctx context.Context, messages []cognition.Message, temperature float64, maxTokens int) model.Result
}

// BenchmarkClient scores one PromptVariant against the golden dataset.
type BenchmarkClient interface {
	Benchmark(ctx context.Context, variant PromptVariant, dataset string) (map[string]float64, error)
}

// Engine runs the GEPA-style evolution cycle: sample -> reflect ->
// propose -> benchmark -> merge into frontier -> select best per
// backend -> persist.
type Engine struct {
	oracle OracleCaller
	bench  BenchmarkClient
	cfg    Config
	log    *slog.Logger

	mu           sync.Mutex
	trajectories []Trajectory
	frontier     *Frontier
}

// NewEngine builds an Engine, loading any previously persisted
// frontier from cfg.StatePath.
func NewEngine(cfg Config, oracle OracleCaller, bench BenchmarkClient, log *slog.Logger) (*Engine, error) {
	frontier, err := LoadFrontier(cfg.StatePath, cfg.ParetoFrontierSize, cfg.Minimize)
	if err != nil {
		return nil, fmt.Errorf("load frontier: %w", err)
	}
	return &Engine{oracle: oracle, bench: bench, cfg: cfg, log: log, frontier: frontier}, nil
}

// RecordTrajectory appends a Trajectory to the sample buffer, trimming
// it to 2x the configured sample size once it overflows (a ring buffer
// in spirit, per evolution.py's record_trajectory).
func (e *Engine) RecordTrajectory(t Trajectory) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.trajectories = append(e.trajectories, t)
	maxBuffer := e.cfg.TrajectorySampleSize * 2
	if maxBuffer <= 0 {
		maxBuffer = 200
	}
	if len(e.trajectories) > maxBuffer {
		e.trajectories = e.trajectories[len(e.trajectories)-maxBuffer:]
	}
}

// Frontier returns a snapshot of the current Pareto frontier.
func (e *Engine) Frontier() []PromptVariant {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]PromptVariant, 0, e.frontier.Len())
	for _, s := range e.frontier.Solutions {
		if v, ok := s.Data.(PromptVariant); ok {
			out = append(out, v)
		}
	}
	return out
}

// Cycle runs one full evolution cycle against currentPrompts (backend
// name -> current system prompt) and returns the improved prompts to
// adopt, or currentPrompts unchanged if there was nothing to learn
// from (no failures sampled).
func (e *Engine) Cycle(ctx context.Context, currentPrompts map[string]string) (map[string]string, error) {
	e.log.Info("starting evolution cycle")

	e.mu.Lock()
	sampleSize := e.cfg.TrajectorySampleSize
	if sampleSize <= 0 || sampleSize > len(e.trajectories) {
		sampleSize = len(e.trajectories)
	}
	sampled := append([]Trajectory(nil), e.trajectories[len(e.trajectories)-sampleSize:]...)
	e.mu.Unlock()
	e.log.Info("sampled trajectories", "count", len(sampled))

	var failures []Trajectory
	for _, t := range sampled {
		if !t.Success {
			failures = append(failures, t)
		}
	}
	e.log.Info("found failures to analyze", "count", len(failures))
	if len(failures) == 0 {
		e.log.Info("no failures to reflect on, skipping cycle")
		return currentPrompts, nil
	}

	if len(failures) > 20 {
		failures = failures[:20]
	}
	reflections := e.reflectOnFailures(ctx, failures)
	e.log.Info("generated reflections", "count", len(reflections))

	variants := e.proposeVariants(ctx, currentPrompts, reflections)
	e.log.Info("proposed prompt variants", "count", len(variants))

	e.benchmarkVariants(ctx, variants)

	e.mu.Lock()
	for _, v := range variants {
		e.frontier.Add(v.ToSolution())
	}
	frontierSize := e.frontier.Len()
	e.mu.Unlock()
	e.log.Info("updated pareto frontier", "size", frontierSize)

	improved := e.combineLessons()
	e.log.Info("combined lessons into improved prompts")

	if err := SaveFrontier(e.cfg.StatePath, e.frontier); err != nil {
		return nil, fmt.Errorf("save frontier: %w", err)
	}

	// Any backend without a surviving frontier variant keeps its
	// current prompt rather than being dropped.
	for backend, prompt := range currentPrompts {
		if _, ok := improved[backend]; !ok {
			improved[backend] = prompt
		}
	}
	return improved, nil
}

type reflectionResponse struct {
	Diagnosis            string `json:"diagnosis"`
	RootCause            string `json:"root_cause"`
	MissingContext        string `json:"missing_context"`
	SuggestedImprovement string `json:"suggested_improvement"`
}

func (e *Engine) reflectOnFailures(ctx context.Context, failures []Trajectory) []Reflection {
	var reflections []Reflection
	for _, failure := range failures {
		prompt := buildReflectionPrompt(failure)
		result := e.oracle.Call(ctx, []cognition.Message{{Role: "user", Content: prompt}}, 0.7, 2000)
		if result.Error != "" {
			e.log.Error("failed to reflect on failure", "error", result.Error)
			continue
		}
		var data reflectionResponse
		if err := json.Unmarshal([]byte(result.Response), &data); err != nil {
			e.log.Error("failed to parse reflection response", "error", err)
			continue
		}
		reflections = append(reflections, Reflection{
			Failure:              failure,
			Diagnosis:            data.Diagnosis,
			RootCause:            data.RootCause,
			MissingContext:       data.MissingContext,
			SuggestedImprovement: data.SuggestedImprovement,
		})
	}
	return reflections
}

func buildReflectionPrompt(failure Trajectory) string {
	expected := failure.Expected
	if expected == "" {
		expected = "Not specified"
	}
	errMsg := failure.Error
	if errMsg == "" {
		errMsg = "Task marked as failed"
	}
	output := failure.Output
	if len(output) > 1000 {
		output = output[:1000]
	}
	return fmt.Sprintf(`Analyze this agent failure:

Task: %s
Agent Output: %s
Expected: %s
Error: %s

Diagnose the root cause in natural language. Respond with JSON:
{
    "diagnosis": "Overall analysis of what went wrong",
    "root_cause": "The fundamental reason for the failure",
    "missing_context": "What information was missing that led to the error",
    "suggested_improvement": "How the system prompt could be improved"
}`, failure.Task, output, expected, errMsg)
}

type variantsResponse struct {
	Variants []struct {
		Content string `json:"content"`
		Changes string `json:"changes"`
	} `json:"variants"`
}

func (e *Engine) proposeVariants(ctx context.Context, currentPrompts map[string]string, reflections []Reflection) []PromptVariant {
	limited := reflections
	if len(limited) > 10 {
		limited = limited[:10]
	}
	summary := ""
	for i, r := range limited {
		if i > 0 {
			summary += "\n\n"
		}
		summary += fmt.Sprintf("Issue: %s\nSuggestion: %s", r.RootCause, r.SuggestedImprovement)
	}

	e.mu.Lock()
	generation := e.frontier.Len() + 1
	e.mu.Unlock()

	var variants []PromptVariant
	for backend, currentPrompt := range currentPrompts {
		truncated := currentPrompt
		if len(truncated) > 2000 {
			truncated = truncated[:2000]
		}
		proposePrompt := fmt.Sprintf(`Given this current system prompt and the issues found:

CURRENT PROMPT:
%s

ISSUES AND SUGGESTIONS:
%s

Generate 3 improved versions of this system prompt that address the issues.
Respond with JSON:
{
    "variants": [
        {"content": "improved prompt 1", "changes": "what was changed"},
        {"content": "improved prompt 2", "changes": "what was changed"},
        {"content": "improved prompt 3", "changes": "what was changed"}
    ]
}`, truncated, summary)

		result := e.oracle.Call(ctx, []cognition.Message{{Role: "user", Content: proposePrompt}}, 0.7, 2000)
		if result.Error != "" {
			e.log.Error("failed to propose variants", "backend", backend, "error", result.Error)
			continue
		}
		var data variantsResponse
		if err := json.Unmarshal([]byte(result.Response), &data); err != nil {
			e.log.Error("failed to parse variants response", "backend", backend, "error", err)
			continue
		}
		stamp := time.Now().Format("20060102150405")
		for i, v := range data.Variants {
			content := v.Content
			if content == "" {
				content = currentPrompt
			}
			variants = append(variants, PromptVariant{
				ID:         variantID(backend, stamp, i),
				Backend:    backend,
				Content:    content,
				ParentID:   backend + "_current",
				Generation: generation,
			})
		}
	}
	return variants
}

// variantID mirrors the original's f"{model}_{timestamp}_{index}" id format.
func variantID(backend, stamp string, index int) string {
	return fmt.Sprintf("%s_%s_%d", backend, stamp, index)
}

func (e *Engine) benchmarkVariants(ctx context.Context, variants []PromptVariant) {
	var wg sync.WaitGroup
	var mu sync.Mutex

	for i := range variants {
		wg.Add(1)
		go func(v *PromptVariant) {
			defer wg.Done()
			scores, err := e.bench.Benchmark(ctx, *v, e.cfg.GoldenDataset)
			if err != nil {
				e.log.Error("benchmark failed", "variant", v.ID, "error", err)
				scores = map[string]float64{"accuracy": 0.5}
			}
			mu.Lock()
			v.Scores = scores
			v.CreatedAt = time.Now()
			mu.Unlock()
		}(&variants[i])
	}
	wg.Wait()
}

// combineLessons picks the best-by-accuracy surviving frontier variant
// per backend, matching _combine_lessons.
func (e *Engine) combineLessons() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()

	byBackend := make(map[string][]PromptVariant)
	for _, s := range e.frontier.Solutions {
		v, ok := s.Data.(PromptVariant)
		if !ok {
			continue
		}
		byBackend[v.Backend] = append(byBackend[v.Backend], v)
	}

	best := make(map[string]string, len(byBackend))
	for backend, variants := range byBackend {
		bestVariant := variants[0]
		for _, v := range variants[1:] {
			if v.Scores["accuracy"] > bestVariant.Scores["accuracy"] {
				bestVariant = v
			}
		}
		best[backend] = bestVariant.Content
	}
	return best
}
