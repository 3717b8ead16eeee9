package classifier

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bjorgzz/Protocol-Omni/internal/cognition"
)

func testClassifier(t *testing.T) *Classifier {
	t.Helper()
	reg, err := cognition.NewRegistry(cognition.DefaultEndpoints(), cognition.DefaultAliases())
	require.NoError(t, err)
	return New(reg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClassify_Trivial(t *testing.T) {
	c := testClassifier(t)
	s := &cognition.RequestState{Prompt: "Hello!"}
	c.Classify(s)
	assert.Equal(t, cognition.Trivial, s.Complexity)
	assert.Equal(t, cognition.EndpointFast, s.Endpoint)
	assert.False(t, s.IsStatusQuery)
}

func TestClassify_SovereignVocabulary(t *testing.T) {
	c := testClassifier(t)
	s := &cognition.RequestState{Prompt: "Connect via SSH to the server"}
	c.Classify(s)
	assert.Equal(t, cognition.Complex, s.Complexity)
	assert.Contains(t, s.RoutingReason, "ssh")
	assert.Equal(t, cognition.EndpointDeep, s.Endpoint)
}

func TestClassify_ComplexIndicator(t *testing.T) {
	c := testClassifier(t)
	s := &cognition.RequestState{Prompt: "Analyze the memory layout of the system"}
	c.Classify(s)
	assert.Equal(t, cognition.Complex, s.Complexity)
	assert.Contains(t, s.RoutingReason, "analyze")
}

func TestClassify_StatusQuery(t *testing.T) {
	c := testClassifier(t)
	s := &cognition.RequestState{Prompt: "How is your VRAM doing?"}
	c.Classify(s)
	assert.True(t, s.IsStatusQuery)
	assert.Equal(t, cognition.Trivial, s.Complexity)
}

func TestClassify_Override(t *testing.T) {
	c := testClassifier(t)
	s := &cognition.RequestState{Prompt: "Refactor this module", ModelOverride: "qwen"}
	c.Classify(s)
	assert.Equal(t, cognition.EndpointFast, s.Endpoint)
	assert.Equal(t, "Manual override: qwen", s.RoutingReason)
}

func TestClassify_LengthBoundary(t *testing.T) {
	c := testClassifier(t)
	short := &cognition.RequestState{Prompt: repeat("a", 500)}
	c.Classify(short)
	assert.Equal(t, cognition.Routine, short.Complexity)

	long := &cognition.RequestState{Prompt: repeat("a", 501)}
	c.Classify(long)
	assert.Equal(t, cognition.Complex, long.Complexity)
}

func TestClassify_MessageCountBoundary(t *testing.T) {
	c := testClassifier(t)
	msgs := func(n int) []cognition.Message {
		m := make([]cognition.Message, n)
		for i := range m {
			m[i] = cognition.Message{Role: "user", Content: "x"}
		}
		return m
	}
	at5 := &cognition.RequestState{Prompt: "plain text message here", Messages: msgs(6)}
	c.Classify(at5)
	assert.Equal(t, cognition.Routine, at5.Complexity)

	at6 := &cognition.RequestState{Prompt: "plain text message here", Messages: msgs(7)}
	c.Classify(at6)
	assert.Equal(t, cognition.Complex, at6.Complexity)
}

func TestClassify_Deterministic(t *testing.T) {
	c := testClassifier(t)
	s1 := &cognition.RequestState{Prompt: "design a caching layer"}
	s2 := &cognition.RequestState{Prompt: "design a caching layer"}
	c.Classify(s1)
	c.Classify(s2)
	assert.Equal(t, s1.Complexity, s2.Complexity)
	assert.Equal(t, s1.RoutingReason, s2.RoutingReason)
}

func repeat(s string, n int) string {
	out := make([]byte, n)
	for i := range out {
		out[i] = s[0]
	}
	return string(out)
}
