package tui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ChatReply is one round trip against the orchestrator's
// chat-completions endpoint: the assistant content plus the routing
// reason the classifier attached to the response, surfaced in the
// neural panel so the operator can see why a request went where it
// went.
type ChatReply struct {
	Content       string
	RoutingReason string
	ModelName     string
}

// Client is the subset of orchestrator HTTP surface the TUI needs:
// one round trip per chat turn and a lightweight health probe for the
// status panel. Kept as an interface so tests can substitute a fake
// instead of a live HTTP round trip.
type Client interface {
	SendMessage(ctx context.Context, prompt string) (ChatReply, error)
	Health(ctx context.Context) (deep, fast bool)
}

// HTTPClient talks to a running cogserver instance over
// /v1/chat/completions and /health/full.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{baseURL: baseURL, http: &http.Client{Timeout: 120 * time.Second}}
}

func (c *HTTPClient) SendMessage(ctx context.Context, prompt string) (ChatReply, error) {
	body := map[string]any{
		"model": "auto",
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}
	buf, err := json.Marshal(body)
	if err != nil {
		return ChatReply{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(buf))
	if err != nil {
		return ChatReply{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return ChatReply{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ChatReply{}, fmt.Errorf("chat-completions: http_%d", resp.StatusCode)
	}

	var parsed struct {
		Model         string `json:"model"`
		RoutingReason string `json:"routing_reason"`
		Choices       []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return ChatReply{}, err
	}
	content := ""
	if len(parsed.Choices) > 0 {
		content = parsed.Choices[0].Message.Content
	}
	return ChatReply{Content: content, RoutingReason: parsed.RoutingReason, ModelName: parsed.Model}, nil
}

func (c *HTTPClient) Health(ctx context.Context) (deep, fast bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health/full", nil)
	if err != nil {
		return false, false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false, false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, false
	}
	var parsed struct {
		Endpoints []struct {
			Name    string `json:"name"`
			Healthy bool   `json:"healthy"`
		} `json:"endpoints"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return false, false
	}
	for _, ep := range parsed.Endpoints {
		switch ep.Name {
		case "deep":
			deep = ep.Healthy
		case "fast":
			fast = ep.Healthy
		}
	}
	return deep, fast
}
