package evolution

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bjorgzz/Protocol-Omni/internal/cognition"
	"github.com/Bjorgzz/Protocol-Omni/internal/cognition/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeOracle returns pre-scripted JSON responses in call order.
type fakeOracle struct {
	responses []string
	calls     int
}

func (f *fakeOracle) Call(ctx context.Context, messages []cognition.Message, temperature float64, maxTokens int) model.Result {
	idx := f.calls
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	f.calls++
	return model.Result{Response: f.responses[idx]}
}

// fakeBenchmark scores every variant with a fixed accuracy keyed by backend.
type fakeBenchmark struct {
	accuracyByBackend map[string]float64
}

func (f *fakeBenchmark) Benchmark(ctx context.Context, variant PromptVariant, dataset string) (map[string]float64, error) {
	acc := f.accuracyByBackend[variant.Backend]
	return map[string]float64{"accuracy": acc, "latency": 1.0}, nil
}

func newTestEngine(t *testing.T, oracle OracleCaller, bench BenchmarkClient) *Engine {
	t.Helper()
	dir := t.TempDir()
	cfg := Config{TrajectorySampleSize: 10, ParetoFrontierSize: 5, GoldenDataset: "golden", StatePath: dir}
	e, err := NewEngine(cfg, oracle, bench, testLogger())
	require.NoError(t, err)
	return e
}

func TestEngine_Cycle_NoFailures_ReturnsPromptsUnchanged(t *testing.T) {
	e := newTestEngine(t, &fakeOracle{}, &fakeBenchmark{})
	e.RecordTrajectory(Trajectory{Task: "ok", Success: true})

	out, err := e.Cycle(context.Background(), map[string]string{"deep": "you are helpful"})
	require.NoError(t, err)
	assert.Equal(t, "you are helpful", out["deep"])
}

func TestEngine_Cycle_WithFailures_ProposesAndBenchmarks(t *testing.T) {
	reflection, _ := json.Marshal(map[string]string{
		"diagnosis":             "ignored user constraint",
		"root_cause":            "prompt lacks constraint emphasis",
		"missing_context":       "constraint list",
		"suggested_improvement": "restate constraints up front",
	})
	variants, _ := json.Marshal(map[string]any{
		"variants": []map[string]string{
			{"content": "v1 prompt", "changes": "added constraints"},
			{"content": "v2 prompt", "changes": "reordered sections"},
			{"content": "v3 prompt", "changes": "shortened"},
		},
	})

	oracle := &fakeOracle{responses: []string{string(reflection), string(variants)}}
	bench := &fakeBenchmark{accuracyByBackend: map[string]float64{"deep": 0.9}}
	e := newTestEngine(t, oracle, bench)

	e.RecordTrajectory(Trajectory{Task: "analyze", Success: false, Error: "ignored constraint", Output: "wrong answer"})

	out, err := e.Cycle(context.Background(), map[string]string{"deep": "you are helpful"})
	require.NoError(t, err)
	assert.Equal(t, "v1 prompt", out["deep"], "best-by-accuracy variant should win when all variants score identically")
	assert.Equal(t, 1, e.Frontier()[0].Generation, "frontier was empty before the cycle, so generation starts at 1")

	// state file was persisted atomically
	_, err = os.Stat(filepath.Join(e.cfg.StatePath, "pareto_frontier.json"))
	require.NoError(t, err)
}

func TestEngine_RecordTrajectory_TrimsBufferToDoubleSampleSize(t *testing.T) {
	e := newTestEngine(t, &fakeOracle{}, &fakeBenchmark{})
	for i := 0; i < 50; i++ {
		e.RecordTrajectory(Trajectory{Task: "t"})
	}
	assert.LessOrEqual(t, len(e.trajectories), e.cfg.TrajectorySampleSize*2)
}

func TestSaveAndLoadFrontier_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	f := NewFrontier(5, nil)
	f.Add(PromptVariant{ID: "deep_1", Backend: "deep", Content: "hello", Scores: map[string]float64{"accuracy": 0.8}}.ToSolution())

	require.NoError(t, SaveFrontier(dir, f))

	loaded, err := LoadFrontier(dir, 5, nil)
	require.NoError(t, err)
	require.Equal(t, 1, loaded.Len())
	v, ok := loaded.Solutions[0].Data.(PromptVariant)
	require.True(t, ok)
	assert.Equal(t, "hello", v.Content)
}

func TestLoadFrontier_MissingFile_ReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	f, err := LoadFrontier(dir, 5, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, f.Len())
}
