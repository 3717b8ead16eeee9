package evolution

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSolution_Dominates_MaximizeDefault(t *testing.T) {
	a := Solution{ID: "a", Objectives: map[string]float64{"accuracy": 0.9, "latency": 0.5}}
	b := Solution{ID: "b", Objectives: map[string]float64{"accuracy": 0.8, "latency": 0.5}}
	assert.True(t, a.Dominates(b, nil))
	assert.False(t, b.Dominates(a, nil))
}

func TestSolution_Dominates_NoCommonObjectives(t *testing.T) {
	a := Solution{ID: "a", Objectives: map[string]float64{"accuracy": 0.9}}
	b := Solution{ID: "b", Objectives: map[string]float64{"latency": 0.5}}
	assert.False(t, a.Dominates(b, nil))
}

func TestSolution_Dominates_MinimizeSet(t *testing.T) {
	minimize := map[string]struct{}{"latency": {}}
	a := Solution{ID: "a", Objectives: map[string]float64{"accuracy": 0.9, "latency": 0.2}}
	b := Solution{ID: "b", Objectives: map[string]float64{"accuracy": 0.9, "latency": 0.5}}
	assert.True(t, a.Dominates(b, minimize), "lower latency with equal accuracy should dominate when latency is minimized")
}

func TestSolution_Dominates_NeitherBetterIsNotDominance(t *testing.T) {
	a := Solution{ID: "a", Objectives: map[string]float64{"accuracy": 0.9, "latency": 0.9}}
	b := Solution{ID: "b", Objectives: map[string]float64{"accuracy": 0.5, "latency": 0.2}}
	assert.False(t, a.Dominates(b, nil))
	assert.False(t, b.Dominates(a, nil))
}

func TestFrontier_Add_RejectsDominated(t *testing.T) {
	f := NewFrontier(10, nil)
	f.Add(Solution{ID: "a", Objectives: map[string]float64{"accuracy": 0.9}})
	added := f.Add(Solution{ID: "b", Objectives: map[string]float64{"accuracy": 0.5}})
	assert.False(t, added)
	assert.Equal(t, 1, f.Len())
}

func TestFrontier_Add_DropsDominatedExisting(t *testing.T) {
	f := NewFrontier(10, nil)
	f.Add(Solution{ID: "a", Objectives: map[string]float64{"accuracy": 0.5}})
	f.Add(Solution{ID: "b", Objectives: map[string]float64{"accuracy": 0.9}})
	assert.Equal(t, 1, f.Len())
	assert.Equal(t, "b", f.Solutions[0].ID)
}

func TestFrontier_Add_DuplicateIsNoOp(t *testing.T) {
	f := NewFrontier(10, nil)
	v := Solution{ID: "a", Objectives: map[string]float64{"accuracy": 0.8, "latency": 200}}
	f.Add(v)
	added := f.Add(v)
	assert.False(t, added)
	assert.Equal(t, 1, f.Len())
}

func TestFrontier_Add_KeepsNonDominatedTradeoffs(t *testing.T) {
	f := NewFrontier(10, nil)
	f.Add(Solution{ID: "fast", Objectives: map[string]float64{"accuracy": 0.6, "speed": 0.95}})
	f.Add(Solution{ID: "accurate", Objectives: map[string]float64{"accuracy": 0.95, "speed": 0.6}})
	assert.Equal(t, 2, f.Len())
}

func TestFrontier_Prune_RespectsMaxSizeAndKeepsBoundary(t *testing.T) {
	f := NewFrontier(3, nil)
	for i, acc := range []float64{0.1, 0.9, 0.3, 0.5, 0.7} {
		f.Add(Solution{ID: string(rune('a' + i)), Objectives: map[string]float64{"accuracy": acc, "speed": 1.0 - acc}})
	}
	assert.LessOrEqual(t, f.Len(), 3)

	best, ok := f.Best("accuracy")
	assert.True(t, ok)
	assert.Equal(t, 0.9, best.Objectives["accuracy"])
}

func TestFrontier_Best_HonorsMinimize(t *testing.T) {
	f := NewFrontier(10, []string{"latency"})
	f.Add(Solution{ID: "slow", Objectives: map[string]float64{"accuracy": 0.5, "latency": 900}})
	f.Add(Solution{ID: "fast", Objectives: map[string]float64{"accuracy": 0.4, "latency": 100}})
	best, ok := f.Best("latency")
	assert.True(t, ok)
	assert.Equal(t, "fast", best.ID)
}

func TestFrontier_Best_EmptyFrontier(t *testing.T) {
	f := NewFrontier(10, nil)
	_, ok := f.Best("accuracy")
	assert.False(t, ok)
}

func TestFrontier_Compromise_MaxWeightedSum(t *testing.T) {
	f := NewFrontier(10, []string{"latency"})
	f.Add(Solution{ID: "balanced", Objectives: map[string]float64{"accuracy": 0.8, "latency": 200}})
	f.Add(Solution{ID: "slow-accurate", Objectives: map[string]float64{"accuracy": 0.95, "latency": 900}})
	f.Add(Solution{ID: "fast-mediocre", Objectives: map[string]float64{"accuracy": 0.5, "latency": 50}})

	best, ok := f.Compromise(map[string]float64{"accuracy": 1.0, "latency": 0.001})
	assert.True(t, ok)
	assert.Equal(t, "balanced", best.ID)
}

func TestFrontier_Compromise_EmptyFrontier(t *testing.T) {
	f := NewFrontier(10, nil)
	_, ok := f.Compromise(map[string]float64{"accuracy": 1.0})
	assert.False(t, ok)
}

func TestCrowdingDistances_BoundariesAreInfinite(t *testing.T) {
	f := NewFrontier(10, nil)
	f.Add(Solution{ID: "a", Objectives: map[string]float64{"accuracy": 0.1}})
	f.Add(Solution{ID: "b", Objectives: map[string]float64{"accuracy": 0.5}})
	f.Add(Solution{ID: "c", Objectives: map[string]float64{"accuracy": 0.9}})
	distances := f.crowdingDistances()
	assert.True(t, math.IsInf(distances[0], 1) || math.IsInf(distances[len(distances)-1], 1))
}
