package evolution

import "time"

// Trajectory is one recorded cognitive-graph run, grounded on
// evolution.py's Trajectory dataclass.
type Trajectory struct {
	Task      string
	Prompt    string
	Output    string
	Expected  string
	Error     string
	Success   bool
	ToolCalls []map[string]any
	LatencyMs float64
	Timestamp time.Time
}

// Reflection is a natural-language diagnosis of one failed Trajectory,
// produced by the Oracle model.
type Reflection struct {
	Failure              Trajectory
	Diagnosis            string
	RootCause            string
	MissingContext        string
	SuggestedImprovement string
}

// PromptVariant is one candidate system prompt under evaluation for a
// given backend, scored on 1+ objectives once benchmarked.
type PromptVariant struct {
	ID         string
	Backend    string
	Content    string
	ParentID   string
	Generation int
	Scores     map[string]float64
	CreatedAt  time.Time
}

// ToSolution adapts a PromptVariant into the Frontier's generic
// Solution shape.
func (v PromptVariant) ToSolution() Solution {
	return Solution{ID: v.ID, Objectives: v.Scores, Data: v}
}
