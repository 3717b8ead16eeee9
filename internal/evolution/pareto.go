// Package evolution implements C9: the offline Pareto-based prompt
// evolution engine. Trajectories sampled from live requests are
// reflected on, turned into prompt variants, benchmarked, and merged
// into a multi-objective Pareto frontier on a scheduled cycle.
package evolution

import (
	"math"
	"sort"
)

// Solution is one point in objective space, ported from pareto.py
// rather than evolution.py's cruder inline PromptVariant.dominates
// (which hardcodes "maximize everything" and has no crowding-distance
// pruning at all — see DESIGN.md).
type Solution struct {
	ID         string
	Objectives map[string]float64
	Data       any
}

// Dominates reports whether s Pareto-dominates other over their common
// objectives, honoring minimize as the set of objectives where a lower
// value is better (all other common objectives are maximized).
func (s Solution) Dominates(other Solution, minimize map[string]struct{}) bool {
	common := make([]string, 0, len(s.Objectives))
	for k := range s.Objectives {
		if _, ok := other.Objectives[k]; ok {
			common = append(common, k)
		}
	}
	if len(common) == 0 {
		return false
	}

	atLeastOneBetter := false
	for _, obj := range common {
		selfVal := s.Objectives[obj]
		otherVal := other.Objectives[obj]
		_, shouldMinimize := minimize[obj]

		if shouldMinimize {
			if selfVal > otherVal {
				return false
			}
			if selfVal < otherVal {
				atLeastOneBetter = true
			}
		} else {
			if selfVal < otherVal {
				return false
			}
			if selfVal > otherVal {
				atLeastOneBetter = true
			}
		}
	}
	return atLeastOneBetter
}

// Frontier maintains a bounded set of non-dominated Solutions, pruned
// to MaxSize by crowding distance when it overflows.
type Frontier struct {
	MaxSize   int
	Minimize  map[string]struct{}
	Solutions []Solution
}

// NewFrontier builds an empty frontier. minimize names the objectives
// to minimize; all others are maximized, matching ParetoFrontier's
// default in pareto.py.
func NewFrontier(maxSize int, minimize []string) *Frontier {
	m := make(map[string]struct{}, len(minimize))
	for _, k := range minimize {
		m[k] = struct{}{}
	}
	return &Frontier{MaxSize: maxSize, Minimize: m}
}

// Add tries to insert solution into the frontier. It returns false
// (and leaves the frontier unchanged) if an existing solution already
// dominates it; otherwise it drops any existing solutions the new one
// dominates, appends it, and prunes to MaxSize if needed.
func (f *Frontier) Add(solution Solution) bool {
	for _, existing := range f.Solutions {
		if existing.Dominates(solution, f.Minimize) {
			return false
		}
		if objectivesEqual(existing.Objectives, solution.Objectives) {
			return false
		}
	}

	kept := f.Solutions[:0:0]
	for _, s := range f.Solutions {
		if !solution.Dominates(s, f.Minimize) {
			kept = append(kept, s)
		}
	}
	kept = append(kept, solution)
	f.Solutions = kept

	if len(f.Solutions) > f.MaxSize {
		f.prune()
	}
	return true
}

// prune reduces the frontier to MaxSize, keeping the solutions with
// the largest crowding distance (i.e. the ones spreading the frontier
// out rather than clustering near already-represented tradeoffs).
func (f *Frontier) prune() {
	if len(f.Solutions) <= f.MaxSize {
		return
	}
	distances := f.crowdingDistances()

	type ranked struct {
		solution Solution
		distance float64
	}
	rs := make([]ranked, len(f.Solutions))
	for i, s := range f.Solutions {
		rs[i] = ranked{solution: s, distance: distances[i]}
	}
	sort.SliceStable(rs, func(i, j int) bool {
		return rs[i].distance > rs[j].distance
	})

	out := make([]Solution, f.MaxSize)
	for i := 0; i < f.MaxSize; i++ {
		out[i] = rs[i].solution
	}
	f.Solutions = out
}

// crowdingDistances scores each solution by how isolated it is in
// objective space: boundary solutions for each objective get +Inf (so
// they always survive pruning), interior ones accumulate the
// normalized neighbor gap per objective.
func (f *Frontier) crowdingDistances() []float64 {
	n := len(f.Solutions)
	distances := make([]float64, n)
	if n == 0 || len(f.Solutions[0].Objectives) == 0 {
		return distances
	}

	objectives := make([]string, 0, len(f.Solutions[0].Objectives))
	for k := range f.Solutions[0].Objectives {
		objectives = append(objectives, k)
	}
	sort.Strings(objectives)

	for _, obj := range objectives {
		indices := make([]int, n)
		for i := range indices {
			indices[i] = i
		}
		sort.SliceStable(indices, func(a, b int) bool {
			return f.Solutions[indices[a]].Objectives[obj] < f.Solutions[indices[b]].Objectives[obj]
		})

		distances[indices[0]] = math.Inf(1)
		distances[indices[n-1]] = math.Inf(1)

		values := make([]float64, n)
		for i, idx := range indices {
			values[i] = f.Solutions[idx].Objectives[obj]
		}
		objRange := values[n-1] - values[0]
		if objRange == 0 {
			continue
		}

		for i := 1; i < n-1; i++ {
			distances[indices[i]] += (values[i+1] - values[i-1]) / objRange
		}
	}
	return distances
}

// Best returns the frontier's best solution for a single objective,
// honoring the frontier's minimize/maximize direction for it.
func (f *Frontier) Best(objective string) (Solution, bool) {
	if len(f.Solutions) == 0 {
		return Solution{}, false
	}
	_, minimize := f.Minimize[objective]

	best := f.Solutions[0]
	bestVal, ok := best.Objectives[objective]
	if !ok {
		if minimize {
			bestVal = math.Inf(1)
		} else {
			bestVal = math.Inf(-1)
		}
	}
	for _, s := range f.Solutions[1:] {
		v, ok := s.Objectives[objective]
		if !ok {
			continue
		}
		if minimize && v < bestVal || !minimize && v > bestVal {
			best, bestVal = s, v
		}
	}
	return best, true
}

// Compromise returns the frontier member maximizing the weighted sum
// of objectives named in weights (objectives under Minimize are
// negated before weighting, so a larger weighted sum is always
// better regardless of each objective's direction).
func (f *Frontier) Compromise(weights map[string]float64) (Solution, bool) {
	if len(f.Solutions) == 0 {
		return Solution{}, false
	}
	best := f.Solutions[0]
	bestScore := f.weightedSum(best, weights)
	for _, s := range f.Solutions[1:] {
		score := f.weightedSum(s, weights)
		if score > bestScore {
			best, bestScore = s, score
		}
	}
	return best, true
}

func (f *Frontier) weightedSum(s Solution, weights map[string]float64) float64 {
	var total float64
	for obj, weight := range weights {
		v, ok := s.Objectives[obj]
		if !ok {
			continue
		}
		if _, minimize := f.Minimize[obj]; minimize {
			v = -v
		}
		total += weight * v
	}
	return total
}

// Len reports the current frontier size.
func (f *Frontier) Len() int { return len(f.Solutions) }

// objectivesEqual reports whether a and b carry identical objective
// values, which Dominates alone can't detect since neither side
// strictly improves on the other.
func objectivesEqual(a, b map[string]float64) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		bv, ok := b[k]
		if !ok || bv != v {
			return false
		}
	}
	return true
}
