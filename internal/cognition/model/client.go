// Package model implements C6: the backend model client. It issues
// non-streaming calls for TRIVIAL/ROUTINE complexity and internally
// buffered streaming calls for COMPLEX/TOOL_HEAVY complexity (to keep
// long-lived connections alive through intermediate proxies), while
// hiding streaming from the non-streaming caller contract. It also
// exposes a raw line-oriented stream for callers that themselves
// requested streaming (the external streaming path).
package model

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Bjorgzz/Protocol-Omni/internal/cognition"
	"github.com/Bjorgzz/Protocol-Omni/internal/metrics"
)

// Result is the outcome of a call: never an error to the graph, per
// §4.5 — failures are encoded as a non-empty Error field instead.
type Result struct {
	Response  string
	Usage     cognition.TokenUsage
	LatencyMs int64
	ModelName string
	Error     string
}

// wireMessage/wireRequest/wireResponse mirror the OpenAI-compatible
// chat-completions wire format.
type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream"`
}

type wireChoice struct {
	Index   int `json:"index"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Delta struct {
		Content string `json:"content"`
	} `json:"delta"`
	FinishReason string `json:"finish_reason"`
}

type wireUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type wireResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []wireChoice `json:"choices"`
	Usage   wireUsage    `json:"usage"`
}

// Client calls one BackendEndpoint.
type Client struct {
	endpoint   cognition.BackendEndpoint
	apiKey     string
	httpClient *http.Client
	log        *slog.Logger
}

func New(endpoint cognition.BackendEndpoint, apiKey string, log *slog.Logger) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: endpoint.Timeout,
		},
		log: log,
	}
}

// Health performs a lightweight reachability check against the
// endpoint's base URL.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint.BaseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("endpoint %s unhealthy: status %d", c.endpoint.Name, resp.StatusCode)
	}
	return nil
}

// InjectContext appends the memory+code context blocks after the
// existing system message's content (inserting a new system message at
// index 0 if none exists), per §4.5.
func InjectContext(messages []cognition.Message, memoryContext, codeContext string) []cognition.Message {
	var blocks []string
	if memoryContext != "" {
		blocks = append(blocks, memoryContext)
	}
	if codeContext != "" {
		blocks = append(blocks, codeContext)
	}
	if len(blocks) == 0 {
		return messages
	}
	contextBlock := strings.Join(blocks, "\n\n")

	out := make([]cognition.Message, len(messages))
	copy(out, messages)

	for i := range out {
		if out[i].Role == "system" {
			out[i].Content = out[i].Content + "\n\n" + contextBlock
			return out
		}
	}
	return append([]cognition.Message{{Role: "system", Content: contextBlock}}, out...)
}

// AppendSystemNote appends extra text to the system message (creating
// one at index 0 if none exists). Used to inject the metacognition
// retry enhancement string on the model-call retry path.
func AppendSystemNote(messages []cognition.Message, note string) []cognition.Message {
	if note == "" {
		return messages
	}
	out := make([]cognition.Message, len(messages))
	copy(out, messages)
	for i := range out {
		if out[i].Role == "system" {
			out[i].Content = out[i].Content + "\n\n" + note
			return out
		}
	}
	return append([]cognition.Message{{Role: "system", Content: note}}, out...)
}

// Call issues a non-streaming call to the backend and returns its
// aggregated result. Complexity is not consulted here — the decision
// to go through internal streaming instead lives in CallForComplexity.
func (c *Client) Call(ctx context.Context, messages []cognition.Message, temperature float64, maxTokens int) Result {
	return c.call(ctx, messages, temperature, maxTokens, false)
}

// CallForComplexity dispatches to buffered-streaming for COMPLEX/
// TOOL_HEAVY complexity (to keep the connection alive through long
// inferences) and to a plain non-streaming call otherwise, per §4.5's
// internal streaming policy.
func (c *Client) CallForComplexity(ctx context.Context, complexity cognition.ComplexityTag, messages []cognition.Message, temperature float64, maxTokens int) Result {
	useStreaming := complexity == cognition.Complex || complexity == cognition.ToolHeavy
	return c.call(ctx, messages, temperature, maxTokens, useStreaming)
}

func (c *Client) call(ctx context.Context, messages []cognition.Message, temperature float64, maxTokens int, stream bool) Result {
	start := time.Now()
	defer func() { metrics.InferenceLatency.Observe(time.Since(start).Seconds()) }()
	req := wireRequest{
		Model:       c.endpoint.Model,
		Messages:    toWireMessages(messages),
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Stream:      stream,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Result{Error: err.Error(), LatencyMs: elapsedMs(start)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Result{Error: err.Error(), LatencyMs: elapsedMs(start)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		latency := elapsedMs(start)
		if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
			return Result{Error: fmt.Sprintf("timeout after %dms", latency), LatencyMs: latency}
		}
		return Result{Error: err.Error(), LatencyMs: latency}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		latency := elapsedMs(start)
		limited := io.LimitReader(resp.Body, 500)
		buf, _ := io.ReadAll(limited)
		c.log.Warn("model call non-2xx", "status", resp.StatusCode, "body", string(buf))
		return Result{Error: fmt.Sprintf("http_%d", resp.StatusCode), LatencyMs: latency}
	}

	if !stream {
		var wr wireResponse
		if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
			return Result{Error: err.Error(), LatencyMs: elapsedMs(start)}
		}
		content := ""
		if len(wr.Choices) > 0 {
			content = wr.Choices[0].Message.Content
		}
		return Result{
			Response:  content,
			ModelName: c.endpoint.Model,
			Usage: cognition.TokenUsage{
				PromptTokens:     wr.Usage.PromptTokens,
				CompletionTokens: wr.Usage.CompletionTokens,
				TotalTokens:      wr.Usage.TotalTokens,
			},
			LatencyMs: elapsedMs(start),
		}
	}

	content, usage, err := aggregateSSE(resp.Body)
	if err != nil {
		return Result{Error: err.Error(), LatencyMs: elapsedMs(start)}
	}
	return Result{
		Response:  content,
		ModelName: c.endpoint.Model,
		Usage:     usage,
		LatencyMs: elapsedMs(start),
	}
}

// Stream issues a streaming call and returns the raw response body for
// the caller to proxy SSE lines from verbatim (the external streaming
// path); the caller is responsible for closing the returned ReadCloser.
func (c *Client) Stream(ctx context.Context, messages []cognition.Message, temperature float64, maxTokens int) (io.ReadCloser, error) {
	req := wireRequest{
		Model:       c.endpoint.Model,
		Messages:    toWireMessages(messages),
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Stream:      true,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, fmt.Errorf("http_%d", resp.StatusCode)
	}
	return resp.Body, nil
}

const sseDone = "[DONE]"

// aggregateSSE reads an SSE body, concatenating every content delta and
// keeping the last usage object seen, per §4.5's streaming wire format.
func aggregateSSE(body io.Reader) (string, cognition.TokenUsage, error) {
	var content strings.Builder
	var usage cognition.TokenUsage

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == sseDone {
			break
		}
		var chunk wireResponse
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) > 0 {
			content.WriteString(chunk.Choices[0].Delta.Content)
		}
		if chunk.Usage.TotalTokens > 0 || chunk.Usage.PromptTokens > 0 || chunk.Usage.CompletionTokens > 0 {
			usage = cognition.TokenUsage{
				PromptTokens:     chunk.Usage.PromptTokens,
				CompletionTokens: chunk.Usage.CompletionTokens,
				TotalTokens:      chunk.Usage.TotalTokens,
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return content.String(), usage, err
	}
	return content.String(), usage, nil
}

func toWireMessages(messages []cognition.Message) []wireMessage {
	out := make([]wireMessage, len(messages))
	for i, m := range messages {
		out[i] = wireMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

func elapsedMs(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
