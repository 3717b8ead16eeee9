package evolution

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// trajectoryStream is the Redis Stream every recorded Trajectory is
// mirrored to, and interactionChannel is the pub/sub channel the
// cognitive graph announces completed interactions on — grounded on
// messaging/redis_client.go's XAdd/pub-sub wrapper style.
const (
	trajectoryStream  = "cognition:trajectories"
	interactionChannel = "cognition:interactions"
)

// StreamMirror publishes Trajectories to a Redis Stream (for durability
// and cross-process replay) and subscribes to live interaction
// announcements so the engine's buffer can be fed by requests served
// from other processes, not just its own.
type StreamMirror struct {
	rdb *redis.Client
	log *slog.Logger
}

func NewStreamMirror(rdb *redis.Client, log *slog.Logger) *StreamMirror {
	return &StreamMirror{rdb: rdb, log: log}
}

// Mirror appends a Trajectory to the durable stream via XADD. A failure
// is logged, not returned; the call blocks until XADD completes or ctx
// ends, and cogserver calls it from its own goroutine with a short
// timeout.
func (m *StreamMirror) Mirror(ctx context.Context, t Trajectory) {
	values, err := trajectoryToValues(t)
	if err != nil {
		m.log.Warn("trajectory mirror: encode failed", "error", err)
		return
	}
	if _, err := m.rdb.XAdd(ctx, &redis.XAddArgs{Stream: trajectoryStream, Values: values}).Result(); err != nil {
		m.log.Warn("trajectory mirror: xadd failed", "error", err)
	}
}

// Announce publishes a short interaction-complete notice, letting a
// separately-running evolution-engine process mirror it into its own
// trajectory buffer without needing a shared memory space.
func (m *StreamMirror) Announce(ctx context.Context, t Trajectory) {
	payload, err := json.Marshal(t)
	if err != nil {
		m.log.Warn("interaction announce: encode failed", "error", err)
		return
	}
	if err := m.rdb.Publish(ctx, interactionChannel, payload).Err(); err != nil {
		m.log.Warn("interaction announce: publish failed", "error", err)
	}
}

// Subscribe drives e.RecordTrajectory from the interaction pub/sub
// channel until ctx is cancelled, so an evolution-engine process
// running separately from the orchestrator still accumulates samples.
func (m *StreamMirror) Subscribe(ctx context.Context, e *Engine) {
	sub := m.rdb.Subscribe(ctx, interactionChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var t Trajectory
			if err := json.Unmarshal([]byte(msg.Payload), &t); err != nil {
				m.log.Warn("interaction subscribe: decode failed", "error", err)
				continue
			}
			e.RecordTrajectory(t)
		}
	}
}

// ReadRecentTrajectories tails the last n entries of the trajectory
// stream via XREVRANGE, for warm-starting an engine's buffer on
// startup (e.g. after a restart).
func (m *StreamMirror) ReadRecentTrajectories(ctx context.Context, n int64) ([]Trajectory, error) {
	entries, err := m.rdb.XRevRangeN(ctx, trajectoryStream, "+", "-", n).Result()
	if err != nil {
		return nil, fmt.Errorf("xrevrange %s: %w", trajectoryStream, err)
	}

	out := make([]Trajectory, 0, len(entries))
	for _, e := range entries {
		t, err := valuesToTrajectory(e.Values)
		if err != nil {
			m.log.Warn("trajectory stream: skipping malformed entry", "id", e.ID, "error", err)
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func trajectoryToValues(t Trajectory) (map[string]any, error) {
	toolCalls, err := json.Marshal(t.ToolCalls)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"task":       t.Task,
		"prompt":     t.Prompt,
		"output":     t.Output,
		"expected":   t.Expected,
		"error":      t.Error,
		"success":    t.Success,
		"tool_calls": string(toolCalls),
		"latency_ms": t.LatencyMs,
		"timestamp":  t.Timestamp.Format(time.RFC3339),
	}, nil
}

func valuesToTrajectory(values map[string]any) (Trajectory, error) {
	str := func(k string) string {
		if v, ok := values[k].(string); ok {
			return v
		}
		return ""
	}
	var toolCalls []map[string]any
	if tc := str("tool_calls"); tc != "" {
		if err := json.Unmarshal([]byte(tc), &toolCalls); err != nil {
			return Trajectory{}, fmt.Errorf("decode tool_calls: %w", err)
		}
	}
	var latency float64
	fmt.Sscanf(str("latency_ms"), "%f", &latency)

	ts, _ := time.Parse(time.RFC3339, str("timestamp"))

	return Trajectory{
		Task:      str("task"),
		Prompt:    str("prompt"),
		Output:    str("output"),
		Expected:  str("expected"),
		Error:     str("error"),
		Success:   str("success") == "1" || str("success") == "true",
		ToolCalls: toolCalls,
		LatencyMs: latency,
		Timestamp: ts,
	}, nil
}
