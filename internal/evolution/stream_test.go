package evolution

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestMirror mirrors internal/bridge/redis_bridge_test.go's
// connect-or-skip pattern: these tests exercise a real Redis instance
// and are skipped when one isn't reachable.
func setupTestMirror(t *testing.T) *StreamMirror {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewStreamMirror(rdb, log)
}

func TestStreamMirror_MirrorAndReadRecent(t *testing.T) {
	m := setupTestMirror(t)
	ctx := context.Background()

	traj := Trajectory{
		Task:      "mirror-test-task",
		Prompt:    "what is 2+2",
		Output:    "4",
		Success:   true,
		LatencyMs: 120,
		Timestamp: time.Now(),
	}
	m.Mirror(ctx, traj)

	recent, err := m.ReadRecentTrajectories(ctx, 20)
	if err != nil {
		t.Fatalf("ReadRecentTrajectories: %v", err)
	}
	found := false
	for _, r := range recent {
		if r.Task == traj.Task && r.Output == traj.Output {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("expected mirrored trajectory in recent stream entries, got %d entries", len(recent))
	}
}

func TestStreamMirror_AnnounceAndSubscribe(t *testing.T) {
	m := setupTestMirror(t)
	engine, err := NewEngine(DefaultConfig(), &fakeOracle{}, &fakeBenchmark{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go m.Subscribe(ctx, engine)
	time.Sleep(100 * time.Millisecond) // let the subscriber attach before publishing

	traj := Trajectory{Task: "announce-test", Prompt: "hi", Output: "hello", Success: true, Timestamp: time.Now()}
	m.Announce(ctx, traj)

	deadline := time.After(1500 * time.Millisecond)
	for {
		engine.mu.Lock()
		got := append([]Trajectory(nil), engine.trajectories...)
		engine.mu.Unlock()
		for _, r := range got {
			if r.Task == traj.Task {
				return
			}
		}
		select {
		case <-deadline:
			t.Fatal("subscriber never delivered the announced trajectory")
		case <-time.After(50 * time.Millisecond):
		}
	}
}
