package healthring

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Bjorgzz/Protocol-Omni/internal/cognition"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewHealthRing_PollsAndRecordsHistory(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	endpoints := []cognition.BackendEndpoint{{Name: "fast", BaseURL: ts.URL}}
	hr := NewHealthRing(endpoints, 20*time.Millisecond, testLogger())
	if hr == nil {
		t.Fatal("expected non-nil HealthRing")
	}
	defer hr.Shutdown()

	time.Sleep(80 * time.Millisecond)
	status := hr.Status()
	fast, ok := status["fast"]
	if !ok {
		t.Fatal("expected a status entry for the fast endpoint")
	}
	if fast.Status != "up" {
		t.Errorf("expected status up, got %s", fast.Status)
	}
	if len(fast.History) == 0 {
		t.Error("expected at least one recorded health check")
	}
}

func TestNewHealthRing_DisabledWithZeroInterval(t *testing.T) {
	hr := NewHealthRing(nil, 0, testLogger())
	if hr != nil {
		t.Error("expected nil HealthRing when interval is zero")
	}
}

func TestNewHealthRing_RecordsFailureOnUnreachableEndpoint(t *testing.T) {
	endpoints := []cognition.BackendEndpoint{{Name: "deep", BaseURL: "http://127.0.0.1:1"}}
	hr := NewHealthRing(endpoints, 20*time.Millisecond, testLogger())
	defer hr.Shutdown()

	time.Sleep(80 * time.Millisecond)
	status := hr.Status()["deep"]
	if status.Status != "down" {
		t.Errorf("expected status down for unreachable endpoint, got %s", status.Status)
	}
}
