// Package memory implements C3: the client to the external long-term
// memory service, plus the context-formatting helper used to inject
// recalled memories into a model prompt.
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Bjorgzz/Protocol-Omni/internal/cognition"
	"github.com/Bjorgzz/Protocol-Omni/internal/metrics"
)

// Client talks to the memory service's REST protocol:
// POST /v1/memories/ (create), POST /v1/memories/search/ (query),
// GET /v1/memories/ (list), GET/DELETE /v1/memories/{id}/.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

func New(baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

type storeRequest struct {
	Messages []cognition.Message `json:"messages"`
	UserID   string              `json:"user_id"`
	AgentID  string              `json:"agent_id,omitempty"`
	Metadata map[string]any      `json:"metadata,omitempty"`
}

type storeResponse struct {
	ID       string `json:"id"`
	MemoryID string `json:"memory_id"`
}

// Store persists content for a user, failing soft: any transport or
// decode error is logged and results in a nil id, never an error
// returned to the caller, per §4.2's "fails soft" policy.
func (c *Client) Store(ctx context.Context, content, userID string, metadata map[string]any, agentID string) *string {
	metrics.MemoryOperations.Inc()
	body := storeRequest{
		Messages: []cognition.Message{{Role: "user", Content: content}},
		UserID:   userID,
		AgentID:  agentID,
		Metadata: metadata,
	}
	var resp storeResponse
	if err := c.post(ctx, "/v1/memories/", body, &resp); err != nil {
		c.log.Warn("memory store failed", "error", err)
		return nil
	}
	id := resp.ID
	if id == "" {
		id = resp.MemoryID
	}
	if id == "" {
		return nil
	}
	return &id
}

// StoreInteraction stores the canonical cognitive-graph interaction
// summary: "User asked: {prompt[:500]}\n\nAssistant response summary:
// {response[:500]}" tagged with source "cognitive_graph".
func (c *Client) StoreInteraction(ctx context.Context, prompt, response, userID, agentID string) *string {
	content := fmt.Sprintf("User asked: %s\n\nAssistant response summary: %s", truncate(prompt, 500), truncate(response, 500))
	metadata := map[string]any{
		"source":          "cognitive_graph",
		"prompt_length":   len(prompt),
		"response_length": len(response),
	}
	return c.Store(ctx, content, userID, metadata, agentID)
}

type searchRequest struct {
	Query   string `json:"query"`
	UserID  string `json:"user_id"`
	Limit   int    `json:"limit"`
	AgentID string `json:"agent_id,omitempty"`
}

type memoryWire struct {
	ID        string         `json:"id"`
	Memory    string         `json:"memory"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
	Score     *float64       `json:"score"`
}

type searchResponse struct {
	Results []memoryWire `json:"results"`
	Memories []memoryWire `json:"memories"`
}

// Search looks up relevant memories, best-effort: any failure returns
// an empty slice, never an error.
func (c *Client) Search(ctx context.Context, query, userID string, limit int, agentID string) []cognition.Memory {
	metrics.MemoryOperations.Inc()
	req := searchRequest{Query: query, UserID: userID, Limit: limit, AgentID: agentID}
	var resp searchResponse
	if err := c.post(ctx, "/v1/memories/search/", req, &resp); err != nil {
		c.log.Warn("memory search failed", "error", err)
		return nil
	}
	wire := resp.Results
	if len(wire) == 0 {
		wire = resp.Memories
	}
	return toMemories(wire)
}

// Get retrieves a single memory by id.
func (c *Client) Get(ctx context.Context, id string) (*cognition.Memory, error) {
	var wire memoryWire
	if err := c.get(ctx, fmt.Sprintf("/v1/memories/%s/", id), &wire); err != nil {
		return nil, err
	}
	m := toMemory(wire)
	return &m, nil
}

// GetAll lists all memories for a user, up to limit.
func (c *Client) GetAll(ctx context.Context, userID string, limit int) []cognition.Memory {
	var resp searchResponse
	path := fmt.Sprintf("/v1/memories/?user_id=%s&limit=%d", userID, limit)
	if err := c.get(ctx, path, &resp); err != nil {
		c.log.Warn("memory get_all failed", "error", err)
		return nil
	}
	wire := resp.Results
	if len(wire) == 0 {
		wire = resp.Memories
	}
	return toMemories(wire)
}

// Delete removes a memory by id, returning whether it succeeded.
func (c *Client) Delete(ctx context.Context, id string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+fmt.Sprintf("/v1/memories/%s/", id), nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("memory delete failed", "error", err)
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// Health reports whether the memory service is reachable.
func (c *Client) Health(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("memory service returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("memory service returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func toMemories(wire []memoryWire) []cognition.Memory {
	out := make([]cognition.Memory, 0, len(wire))
	for _, w := range wire {
		out = append(out, toMemory(w))
	}
	return out
}

func toMemory(w memoryWire) cognition.Memory {
	content := w.Memory
	if content == "" {
		content = w.Content
	}
	m := cognition.Memory{
		ID:       w.ID,
		Content:  content,
		Metadata: w.Metadata,
		Score:    w.Score,
	}
	if t, err := time.Parse(time.RFC3339, w.CreatedAt); err == nil {
		m.CreatedAt = t
	} else {
		m.CreatedAt = time.Now()
	}
	if t, err := time.Parse(time.RFC3339, w.UpdatedAt); err == nil {
		m.UpdatedAt = &t
	}
	return m
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

const defaultMaxTokens = 1000

// FormatContext formats memories for prompt injection, matching the
// original's format_memories_for_context: delimiter-wrapped lines, one
// per memory, with a single truncation line once the char budget
// (≈4 chars/token) is exceeded.
func FormatContext(memories []cognition.Memory, maxTokens int) string {
	if len(memories) == 0 {
		return ""
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	maxChars := maxTokens * 4

	lines := []string{"<relevant_memories>"}
	charCount := 0
	for _, m := range memories {
		line := "- " + m.Content
		if charCount+len(line) > maxChars {
			lines = append(lines, "- ... (additional memories truncated)")
			break
		}
		lines = append(lines, line)
		charCount += len(line)
	}
	lines = append(lines, "</relevant_memories>")

	out := lines[0]
	for _, l := range lines[1:] {
		out += "\n" + l
	}
	return out
}
