package cogserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Bjorgzz/Protocol-Omni/internal/cognition"
	"github.com/Bjorgzz/Protocol-Omni/internal/cognition/classifier"
	"github.com/Bjorgzz/Protocol-Omni/internal/cognition/graph"
	"github.com/Bjorgzz/Protocol-Omni/internal/cognition/knowledge"
	"github.com/Bjorgzz/Protocol-Omni/internal/cognition/model"
	"github.com/Bjorgzz/Protocol-Omni/internal/cognition/status"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeMemory struct{ healthy bool }

func (f *fakeMemory) Health(ctx context.Context) bool { return f.healthy }
func (f *fakeMemory) Search(ctx context.Context, query, userID string, limit int, agentID string) []cognition.Memory {
	return nil
}
func (f *fakeMemory) GetAll(ctx context.Context, userID string, limit int) []cognition.Memory {
	return nil
}
func (f *fakeMemory) StoreInteraction(ctx context.Context, prompt, response, userID, agentID string) *string {
	return nil
}

type fakeKnowledge struct{}

func (f *fakeKnowledge) GetCodeContext(ctx context.Context, query string, limit int) knowledge.CodeContext {
	return knowledge.CodeContext{}
}

type fakeStatus struct{}

func (f *fakeStatus) BuildReport(ctx context.Context, memoryCount int, memoryHealthy bool) status.Report {
	return status.Report{Status: "healthy"}
}

type fakeModel struct{ response string }

func (f *fakeModel) CallForComplexity(ctx context.Context, complexity cognition.ComplexityTag, messages []cognition.Message, temperature float64, maxTokens int) model.Result {
	return model.Result{Response: f.response, ModelName: "test-model"}
}

func testServer(t *testing.T) *Server {
	t.Helper()
	registry, err := cognition.NewRegistry(cognition.DefaultEndpoints(), cognition.DefaultAliases())
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	log := testLogger()
	g := graph.New(graph.Config{
		Registry:     registry,
		Classifier:   classifier.New(registry, log),
		MemoryClient: &fakeMemory{healthy: true},
		Knowledge:    &fakeKnowledge{},
		StatusTool:   &fakeStatus{},
		ModelOf:      func(string) graph.ModelCaller { return &fakeModel{response: "hello there"} },
		AgentID:      "test-agent",
		Log:          log,
	})
	return New(Config{Addr: "127.0.0.1:0", Graph: g, Registry: registry, Log: log})
}

func TestHealthHandler(t *testing.T) {
	srv := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.healthHandler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
}

func TestChatCompletionsHandler_RejectsNoUserMessage(t *testing.T) {
	srv := testServer(t)
	body := strings.NewReader(`{"messages":[{"role":"system","content":"hi"}]}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", body)
	w := httptest.NewRecorder()
	srv.chatCompletionsHandler(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestChatCompletionsHandler_NonStreaming(t *testing.T) {
	srv := testServer(t)
	body := strings.NewReader(`{"messages":[{"role":"user","content":"hello"}]}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", body)
	w := httptest.NewRecorder()
	srv.chatCompletionsHandler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp chatResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Choices) != 1 || resp.Choices[0].Message.Content == "" {
		t.Fatalf("expected one non-empty choice, got %+v", resp.Choices)
	}
}

func TestChatCompletionsHandler_WrongMethod(t *testing.T) {
	srv := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/chat/completions", nil)
	w := httptest.NewRecorder()
	srv.chatCompletionsHandler(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}

func TestStatusHandler(t *testing.T) {
	srv := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	w := httptest.NewRecorder()
	srv.statusHandler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestEvolutionEndpoints_DisabledWhenEngineNil(t *testing.T) {
	srv := testServer(t)

	for _, path := range []string{"/pareto-frontier", "/record-trajectory", "/evolve"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		switch path {
		case "/pareto-frontier":
			srv.paretoFrontierHandler(w, req)
		case "/record-trajectory":
			srv.recordTrajectoryHandler(w, req)
		case "/evolve":
			srv.evolveHandler(w, req)
		}
		if w.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404 when engine disabled, got %d", path, w.Code)
		}
	}
}
