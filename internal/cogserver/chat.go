package cogserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Bjorgzz/Protocol-Omni/internal/cognition"
	"github.com/Bjorgzz/Protocol-Omni/internal/evolution"
	"github.com/Bjorgzz/Protocol-Omni/internal/metrics"
)

// chatRequest mirrors the OpenAI-compatible chat-completions request
// body per SPEC_FULL §6.
type chatRequest struct {
	Model       string              `json:"model"`
	Messages    []cognition.Message `json:"messages"`
	Temperature float64             `json:"temperature"`
	MaxTokens   int                 `json:"max_tokens"`
	Stream      bool                `json:"stream"`
	UserID      string              `json:"user_id,omitempty"`
}

type chatChoice struct {
	Index        int               `json:"index"`
	Message      cognition.Message `json:"message"`
	FinishReason string            `json:"finish_reason"`
}

type chatResponse struct {
	ID            string               `json:"id"`
	Object        string               `json:"object"`
	Created       int64                `json:"created"`
	Model         string               `json:"model"`
	Choices       []chatChoice         `json:"choices"`
	Usage         cognition.TokenUsage `json:"usage"`
	RoutingReason string               `json:"routing_reason"`
}

type sseChunk struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index int `json:"index"`
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

func (s *Server) chatCompletionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if len(req.Messages) == 0 {
		http.Error(w, "at least one message is required", http.StatusBadRequest)
		return
	}
	if !hasUserMessage(req.Messages) {
		http.Error(w, "no user message present", http.StatusBadRequest)
		return
	}

	state := &cognition.RequestState{
		Messages:      req.Messages,
		UserID:        req.UserID,
		Temperature:   req.Temperature,
		MaxTokens:     req.MaxTokens,
		Stream:        req.Stream,
		ModelOverride: req.Model,
	}

	started := time.Now()
	out := s.graph.Run(r.Context(), state)
	elapsed := time.Since(started)

	metrics.CognitionRequests.WithLabelValues(string(out.Complexity), out.Endpoint).Inc()
	metrics.CognitionRequestDuration.WithLabelValues(string(out.Complexity)).Observe(elapsed.Seconds())

	s.recordTrajectoryFromState(out, req)

	if req.Stream {
		s.streamChatResponse(w, out)
		return
	}

	resp := chatResponse{
		ID:      "chatcmpl-" + uuid.NewString(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   out.ModelName,
		Choices: []chatChoice{{
			Index:        0,
			Message:      cognition.Message{Role: "assistant", Content: out.Response},
			FinishReason: "stop",
		}},
		Usage:         out.Usage,
		RoutingReason: out.RoutingReason,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// streamChatResponse emits the already-computed response as a single
// SSE delta chunk followed by [DONE], per §4.5's internal-buffered-
// streaming policy: the graph itself only ever produces a complete
// Response (it buffers COMPLEX/TOOL_HEAVY backend streams internally),
// so the external SSE stream here is a one-chunk stream rather than a
// token-by-token relay.
func (s *Server) streamChatResponse(w http.ResponseWriter, out *cognition.RequestState) {
	flusher, ok := w.(http.Flusher)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	chunk := sseChunk{
		ID:      "chatcmpl-" + uuid.NewString(),
		Object:  "chat.completion.chunk",
		Created: time.Now().Unix(),
		Model:   out.ModelName,
	}
	chunk.Choices = []struct {
		Index int `json:"index"`
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	}{{Index: 0}}
	chunk.Choices[0].Delta.Content = out.Response

	body, _ := json.Marshal(chunk)
	w.Write([]byte("data: "))
	w.Write(body)
	w.Write([]byte("\n\n"))
	if ok {
		flusher.Flush()
	}
	w.Write([]byte("data: [DONE]\n\n"))
	if ok {
		flusher.Flush()
	}
}

func hasUserMessage(messages []cognition.Message) bool {
	for _, m := range messages {
		if m.Role == "user" && m.Content != "" {
			return true
		}
	}
	return false
}

// recordTrajectoryFromState turns a finished request into an
// evolution.Trajectory and feeds the engine's sample buffer, when the
// evolution engine is enabled, so C9's cycles sample production
// traffic. The Redis mirror and announce run in their own goroutine
// with a short timeout, off the request path.
func (s *Server) recordTrajectoryFromState(out *cognition.RequestState, req chatRequest) {
	traj := evolution.Trajectory{
		Task:      out.Prompt,
		Prompt:    out.Prompt,
		Output:    out.Response,
		Error:     out.Error,
		Success:   out.Error == "" && out.Response != "",
		LatencyMs: float64(out.FinalLatency),
		Timestamp: time.Now(),
	}
	if s.engine != nil {
		s.engine.RecordTrajectory(traj)
	}
	if s.mirror != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			s.mirror.Mirror(ctx, traj)
			s.mirror.Announce(ctx, traj)
		}()
	}
}
