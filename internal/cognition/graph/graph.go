// Package graph implements C8: the cognitive graph state machine,
// composing the classifier, memory/knowledge clients, status tool,
// model client, and metacognition chain with conditional edges and a
// retry backedge. Modeled as a loop over node dispatch with an
// explicit next-node variable (per the design notes) rather than
// recursion, so the retry counter lives in RequestState and the call
// stack never grows with retries.
package graph

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/Bjorgzz/Protocol-Omni/internal/cognition"
	"github.com/Bjorgzz/Protocol-Omni/internal/cognition/classifier"
	"github.com/Bjorgzz/Protocol-Omni/internal/cognition/knowledge"
	"github.com/Bjorgzz/Protocol-Omni/internal/cognition/memory"
	"github.com/Bjorgzz/Protocol-Omni/internal/cognition/metacognition"
	"github.com/Bjorgzz/Protocol-Omni/internal/cognition/model"
	"github.com/Bjorgzz/Protocol-Omni/internal/cognition/status"
	"github.com/Bjorgzz/Protocol-Omni/internal/metrics"
)

type node string

const (
	nodeParse             node = "parse"
	nodeRetrieveMemory     node = "retrieve_memory"
	nodeClassify           node = "classify"
	nodeHandleStatus       node = "handle_status"
	nodeRetrieveKnowledge  node = "retrieve_knowledge"
	nodeCallModel          node = "call_model"
	nodeStoreMemory        node = "store_memory"
	nodeMetacog            node = "metacog"
	nodeFinalize           node = "finalize"
	nodeEnd                node = ""
)

// TrivialGreetings are the substrings that allow the graph to skip
// memory retrieval entirely when the prompt is short, mirroring the
// original's should_use_memory gate (a separate list from
// classifier.TrivialIndicators; "hey" appears only here).
var TrivialGreetings = []string{"hello", "hi", "hey", "thanks", "thank you", "bye"}

// MemoryClient is the subset of memory.Client the graph calls. Kept as
// an interface so tests can substitute a fake instead of a live HTTP
// round trip; memory.Client satisfies it structurally.
type MemoryClient interface {
	Health(ctx context.Context) bool
	Search(ctx context.Context, query, userID string, limit int, agentID string) []cognition.Memory
	GetAll(ctx context.Context, userID string, limit int) []cognition.Memory
	StoreInteraction(ctx context.Context, prompt, response, userID, agentID string) *string
}

// KnowledgeClient is the subset of knowledge.Client the graph calls.
type KnowledgeClient interface {
	GetCodeContext(ctx context.Context, query string, limit int) knowledge.CodeContext
}

// StatusTool is the subset of status.Tool the graph calls.
type StatusTool interface {
	BuildReport(ctx context.Context, memoryCount int, memoryHealthy bool) status.Report
}

// ModelCaller is the subset of model.Client the graph calls.
type ModelCaller interface {
	CallForComplexity(ctx context.Context, complexity cognition.ComplexityTag, messages []cognition.Message, temperature float64, maxTokens int) model.Result
}

// ModelClientFactory resolves a BackendEndpoint name to a ModelCaller.
type ModelClientFactory func(endpointName string) ModelCaller

// Graph wires together every C2-C7 collaborator behind the node
// dispatch loop.
type Graph struct {
	registry     *cognition.Registry
	classifier   *classifier.Classifier
	memoryClient MemoryClient
	knowledge    KnowledgeClient
	statusTool   StatusTool
	modelOf      ModelClientFactory
	log          *slog.Logger

	agentID string
}

// Config bundles the Graph's collaborators.
type Config struct {
	Registry     *cognition.Registry
	Classifier   *classifier.Classifier
	MemoryClient MemoryClient
	Knowledge    KnowledgeClient
	StatusTool   StatusTool
	ModelOf      ModelClientFactory
	AgentID      string
	Log          *slog.Logger
}

func New(cfg Config) *Graph {
	return &Graph{
		registry:     cfg.Registry,
		classifier:   cfg.Classifier,
		memoryClient: cfg.MemoryClient,
		knowledge:    cfg.Knowledge,
		statusTool:   cfg.StatusTool,
		modelOf:      cfg.ModelOf,
		agentID:      cfg.AgentID,
		log:          cfg.Log,
	}
}

// Run drives state through the graph to completion (the finalize node)
// and returns it. This is the only entry point: Graph has no separate
// streaming method, and cogserver's SSE path sends the finished
// Response as a single chunk.
func (g *Graph) Run(ctx context.Context, state *cognition.RequestState) *cognition.RequestState {
	current := nodeParse
	for current != nodeEnd {
		current = g.dispatch(ctx, current, state)
	}
	return state
}

// ClassifyOnly runs just the classification step, for the health
// endpoint's routing probe — it must observe routing decisions without
// invoking a backend model call.
func (g *Graph) ClassifyOnly(state *cognition.RequestState) *cognition.RequestState {
	g.classifier.Classify(state)
	return state
}

func (g *Graph) dispatch(ctx context.Context, n node, state *cognition.RequestState) node {
	switch n {
	case nodeParse:
		return g.parse(state)
	case nodeRetrieveMemory:
		return g.retrieveMemory(ctx, state)
	case nodeClassify:
		return g.classify(state)
	case nodeHandleStatus:
		return g.handleStatus(ctx, state)
	case nodeRetrieveKnowledge:
		return g.retrieveKnowledge(ctx, state)
	case nodeCallModel:
		return g.callModel(ctx, state)
	case nodeStoreMemory:
		return g.storeMemory(ctx, state)
	case nodeMetacog:
		return g.metacog(state)
	case nodeFinalize:
		return g.finalize(state)
	default:
		return nodeEnd
	}
}

func (g *Graph) parse(state *cognition.RequestState) node {
	if state.Prompt == "" {
		state.Prompt = state.LastUserMessage()
	}
	if state.UserID == "" {
		state.UserID = "default"
	}
	state.StartTime = time.Now()

	if shouldSkipMemory(state.Prompt) {
		return nodeClassify
	}
	return nodeRetrieveMemory
}

// shouldSkipMemory mirrors should_use_memory: skip iff the prompt
// contains a trivial greeting substring AND is under 50 characters.
func shouldSkipMemory(prompt string) bool {
	lower := strings.ToLower(prompt)
	for _, g := range TrivialGreetings {
		if strings.Contains(lower, g) {
			return len(prompt) < 50
		}
	}
	return false
}

// retrieveMemory always runs when reached (the complexity-based gate
// described for C3 applies only to store_memory — retrieve_memory
// precedes classify in this topology, so complexity is not yet known;
// see DESIGN.md for this resolution). It fails soft: an unhealthy
// memory service or a search error yields empty context rather than
// aborting the request.
func (g *Graph) retrieveMemory(ctx context.Context, state *cognition.RequestState) node {
	if g.memoryClient == nil || !g.memoryClient.Health(ctx) {
		state.Memories = nil
		state.MemoryContext = ""
		return nodeClassify
	}
	mems := g.memoryClient.Search(ctx, state.Prompt, state.UserID, 5, g.agentID)
	state.Memories = mems
	if len(mems) > 0 {
		state.MemoryContext = memory.FormatContext(mems, 1000)
	} else {
		state.MemoryContext = ""
	}
	return nodeClassify
}

func (g *Graph) classify(state *cognition.RequestState) node {
	g.classifier.Classify(state)
	if state.IsStatusQuery {
		return nodeHandleStatus
	}
	return nodeRetrieveKnowledge
}

func (g *Graph) handleStatus(ctx context.Context, state *cognition.RequestState) node {
	memCount := 0
	memHealthy := false
	if g.memoryClient != nil {
		memHealthy = g.memoryClient.Health(ctx)
		if memHealthy {
			memCount = len(g.memoryClient.GetAll(ctx, state.UserID, 1000))
		}
	}
	report := g.statusTool.BuildReport(ctx, memCount, memHealthy)
	state.Response = status.Format(report)
	state.ModelName = "sovereign-introspection"
	state.Usage = cognition.TokenUsage{}
	state.LatencyMs = 0
	return nodeStoreMemory
}

func (g *Graph) retrieveKnowledge(ctx context.Context, state *cognition.RequestState) node {
	if g.knowledge != nil && knowledge.ShouldRetrieve(state.Complexity, state.Prompt) {
		cc := g.knowledge.GetCodeContext(ctx, state.Prompt, 10)
		state.CodeContext = cc.ToPromptContext()
	}
	return nodeCallModel
}

func (g *Graph) callModel(ctx context.Context, state *cognition.RequestState) node {
	endpointName := state.Endpoint
	if endpointName == "" {
		endpointName = cognition.EndpointFast
	}
	client := g.modelOf(endpointName)

	messages := state.Messages
	if len(messages) == 0 && state.Prompt != "" {
		messages = []cognition.Message{{Role: "user", Content: state.Prompt}}
	}
	messages = model.InjectContext(messages, state.MemoryContext, state.CodeContext)

	// Retry backedge: incorporate the prior gate's enhancement string
	// into the outbound system message (resolved Open Question, see
	// SPEC_FULL.md §9).
	if state.RetryCount > 0 && state.Verdict != "" {
		if failureType := metacognition.FailureType(state.Verdict); failureType != "" {
			messages = model.AppendSystemNote(messages, metacognition.RetryPromptEnhancement(failureType))
		}
	}

	result := client.CallForComplexity(ctx, state.Complexity, messages, state.Temperature, state.MaxTokens)
	state.Response = result.Response
	state.Usage = result.Usage
	state.ModelName = result.ModelName
	state.LatencyMs = result.LatencyMs
	state.Error = result.Error
	return nodeStoreMemory
}

// storeMemory persists the interaction; per §4.2/§4.7 it only runs for
// COMPLEX/TOOL_HEAVY complexity with a successful (error-free,
// non-empty) response, and always fails soft.
func (g *Graph) storeMemory(ctx context.Context, state *cognition.RequestState) node {
	if g.memoryClient != nil &&
		(state.Complexity == cognition.Complex || state.Complexity == cognition.ToolHeavy) &&
		state.Response != "" && state.Error == "" {
		g.memoryClient.StoreInteraction(ctx, state.Prompt, state.Response, state.UserID, g.agentID)
	}

	if metacognition.ShouldVerify(state) {
		return nodeMetacog
	}
	state.Passed = true
	state.Verdict = "skipped"
	return nodeFinalize
}

func (g *Graph) metacog(state *cognition.RequestState) node {
	metacognition.Verify(state)
	metrics.CognitionGateResults.WithLabelValues(state.Verdict).Inc()
	if state.Passed {
		return nodeFinalize
	}
	return nodeCallModel
}

// fallbackMessage is returned to the caller whenever the model call
// failed outright (timeout, non-2xx, transport error), per §7.
const fallbackMessage = "I apologize, but I'm unable to process your request at this time."

func (g *Graph) finalize(state *cognition.RequestState) node {
	if state.Error != "" {
		state.Response = fallbackMessage
		state.Usage = cognition.TokenUsage{}
	}
	state.FinalLatency = time.Since(state.StartTime).Milliseconds()
	return nodeEnd
}
