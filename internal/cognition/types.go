// Package cognition holds the shared data model that flows through the
// cognitive graph: request state, backend endpoints, and the small set
// of value types (memories, code symbols) owned by external services.
package cognition

import "time"

// ComplexityTag classifies a request for routing and verification purposes.
type ComplexityTag string

const (
	Trivial   ComplexityTag = "TRIVIAL"
	Routine   ComplexityTag = "ROUTINE"
	Complex   ComplexityTag = "COMPLEX"
	ToolHeavy ComplexityTag = "TOOL_HEAVY"
)

// Message is one turn of chat history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TokenUsage mirrors the backend's usage object.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Memory is a snapshot of a record owned by the external memory service.
type Memory struct {
	ID        string
	Content   string
	Metadata  map[string]any
	CreatedAt time.Time
	UpdatedAt *time.Time
	Score     *float64
}

// CodeSymbol is a snapshot of a record owned by the external knowledge graph.
type CodeSymbol struct {
	Name          string
	QualifiedName string
	Kind          string // Class, Function, Method
	Signature     string
	Docstring     string
	FilePath      string
	LineStart     int
	LineEnd       int
}

// RequestState is the value that flows through the cognitive graph.
// Input fields are set by the caller (the parse node fills an empty
// Prompt from Messages and an empty UserID with "default");
// routing/context/output/verification fields are set by the node
// responsible for them and read only by strictly later nodes.
type RequestState struct {
	// Input — set by caller; parse fills Prompt and UserID when empty.
	Prompt           string
	Messages         []Message
	UserID           string
	ChatID           string
	Temperature      float64
	MaxTokens        int
	Stream           bool
	ModelOverride    string

	RequiresToolOrchestration bool

	// Routing — set by the classifier, read by downstream nodes.
	Complexity    ComplexityTag
	RoutingReason string
	Endpoint      string // name of the chosen BackendEndpoint
	IsStatusQuery bool

	// Context — set by the retrievers.
	MemoryContext string
	CodeContext   string
	Memories      []Memory

	// Output — set by the model call or the status handler.
	Response   string
	Usage      TokenUsage
	ModelName  string
	LatencyMs  int64
	Error      string

	// Verification — set by metacognition, read by the conditional edge.
	Passed     bool
	Verdict    string
	RetryCount int

	// Timing.
	StartTime    time.Time
	FinalLatency int64
}

// LastUserMessage returns the content of the last message with role "user".
func (s *RequestState) LastUserMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == "user" {
			return s.Messages[i].Content
		}
	}
	return ""
}

// EffectivePrompt returns Prompt, deriving it from the last user message
// when empty, per C2's input contract.
func (s *RequestState) EffectivePrompt() string {
	if s.Prompt != "" {
		return s.Prompt
	}
	return s.LastUserMessage()
}
