// Package classifier implements C2: the pure function mapping a
// request's prompt and state to a complexity tag and routing decision.
package classifier

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/Bjorgzz/Protocol-Omni/internal/cognition"
)

// SovereignVocabulary marks infrastructure/operational prompts as
// deserving the deep reasoner.
var SovereignVocabulary = []string{
	"ssh", "root", "kernel", "admin", "deploy",
	"trace", "audit", "calculate", "math", "physics",
	"efficiency", "ratio", "power", "voltage", "watt",
	"gpu", "vram", "blackwell", "5090", "nvidia",
	"check", "monitor", "connect", "execute",
}

// ComplexIndicators mark prompts that require deep reasoning.
var ComplexIndicators = []string{
	"analyze", "design", "architect", "implement",
	"debug", "refactor", "optimize", "explain why",
	"compare", "evaluate", "plan", "strategy",
	"step by step", "reasoning", "prove",
}

// TrivialIndicators mark short greetings/pleasantries.
var TrivialIndicators = []string{
	"hello", "hi", "thanks", "thank you", "bye",
	"what time", "who are you", "help",
}

// StatusKeywords short-circuit routing to the status tool.
var StatusKeywords = []string{
	"status report", "system status", "sovereign status",
	"how is your vram", "your vram", "your gpu",
	"how much vram", "vram usage", "gpu status",
	"memory status", "introspect", "self-check",
	"health report", "your health", "how are you doing",
}

const (
	longPromptChars  = 500
	trivialMaxChars  = 50
	deepContextCount = 5
)

// Classifier is a pure function of RequestState plus the immutable
// keyword tables and registry above; it holds no mutable state of its
// own, only a logger for observability.
type Classifier struct {
	registry *cognition.Registry
	log      *slog.Logger
}

func New(registry *cognition.Registry, log *slog.Logger) *Classifier {
	return &Classifier{registry: registry, log: log}
}

// Classify applies the §4.1 algorithm in strict order, mutating state
// in place and returning it for convenience. It never returns an error:
// the classifier is total.
func (c *Classifier) Classify(state *cognition.RequestState) *cognition.RequestState {
	if state.Prompt == "" {
		state.Prompt = state.LastUserMessage()
	}
	prompt := state.Prompt
	promptLower := strings.ToLower(prompt)

	// 1. Explicit override.
	if state.ModelOverride != "" && strings.ToLower(state.ModelOverride) != "auto" {
		if endpointName, ok := c.registry.ResolveAlias(strings.ToLower(state.ModelOverride)); ok {
			state.Endpoint = endpointName
			state.RoutingReason = fmt.Sprintf("Manual override: %s", state.ModelOverride)
			if endpointName == cognition.EndpointDeep {
				state.Complexity = cognition.Complex
			} else {
				state.Complexity = cognition.Routine
			}
			c.log.Info("model override active", "endpoint", endpointName)
			return state
		}
	}

	// 2. Status-query detection.
	for _, kw := range StatusKeywords {
		if strings.Contains(promptLower, kw) {
			state.Complexity = cognition.Trivial
			state.RoutingReason = fmt.Sprintf("Status query: '%s'", kw)
			state.IsStatusQuery = true
			c.log.Info("status query detected", "keyword", kw)
			return state
		}
	}

	// 3. Trivial indicators.
	for _, ind := range TrivialIndicators {
		if strings.Contains(promptLower, ind) && len(prompt) < trivialMaxChars {
			state.Complexity = cognition.Trivial
			state.RoutingReason = "Trivial greeting/command"
			c.route(state)
			return state
		}
	}

	// 4. Tool-orchestration flag.
	if state.RequiresToolOrchestration {
		state.Complexity = cognition.ToolHeavy
		state.RoutingReason = "Requires tool orchestration"
		c.route(state)
		return state
	}

	// 5. Sovereign vocabulary.
	for _, kw := range SovereignVocabulary {
		if strings.Contains(promptLower, kw) {
			state.Complexity = cognition.Complex
			state.RoutingReason = fmt.Sprintf("Sovereign vocabulary: '%s'", kw)
			c.route(state)
			return state
		}
	}

	// 6. Complex indicators.
	for _, ind := range ComplexIndicators {
		if strings.Contains(promptLower, ind) {
			state.Complexity = cognition.Complex
			state.RoutingReason = fmt.Sprintf("Complex indicator: '%s'", ind)
			c.route(state)
			return state
		}
	}

	// 7. Length/context heuristics. context_count excludes the current message.
	contextCount := len(state.Messages) - 1
	if len(prompt) > longPromptChars || contextCount > deepContextCount {
		state.Complexity = cognition.Complex
		state.RoutingReason = fmt.Sprintf("Long prompt (%d chars) or deep context (%d messages)", len(prompt), contextCount)
		c.route(state)
		return state
	}

	// 8. Default.
	state.Complexity = cognition.Routine
	state.RoutingReason = "Default routine classification"
	c.route(state)
	return state
}

// route fills state.Endpoint from complexity, mirroring the original's
// post-classification endpoint assignment (COMPLEX/TOOL_HEAVY -> deep,
// else -> fast).
func (c *Classifier) route(state *cognition.RequestState) {
	if state.Complexity == cognition.Complex || state.Complexity == cognition.ToolHeavy {
		state.Endpoint = cognition.EndpointDeep
	} else {
		state.Endpoint = cognition.EndpointFast
	}
}
