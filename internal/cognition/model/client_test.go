package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bjorgzz/Protocol-Omni/internal/cognition"
)

func TestAggregateSSE_ConcatenatesDeltasAndKeepsLastUsage(t *testing.T) {
	body := strings.NewReader(
		"data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n" +
			"data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}],\"usage\":{\"total_tokens\":3}}\n" +
			"data: {\"choices\":[{\"delta\":{\"content\":\"!\"}}],\"usage\":{\"total_tokens\":4}}\n" +
			"data: [DONE]\n",
	)
	content, usage, err := aggregateSSE(body)
	require.NoError(t, err)
	assert.Equal(t, "Hello!", content)
	assert.Equal(t, 4, usage.TotalTokens)
}

func TestInjectContext_InsertsSystemMessageWhenNoneExists(t *testing.T) {
	msgs := []cognition.Message{{Role: "user", Content: "hi"}}
	out := InjectContext(msgs, "<relevant_memories>x</relevant_memories>", "")
	require.Len(t, out, 2)
	assert.Equal(t, "system", out[0].Role)
	assert.Contains(t, out[0].Content, "<relevant_memories>")
}

func TestInjectContext_MergesIntoExistingSystemMessage(t *testing.T) {
	msgs := []cognition.Message{
		{Role: "system", Content: "you are an assistant"},
		{Role: "user", Content: "hi"},
	}
	out := InjectContext(msgs, "<relevant_memories>x</relevant_memories>", "<code_knowledge_graph>y</code_knowledge_graph>")
	require.Len(t, out, 2)
	assert.True(t, strings.HasPrefix(out[0].Content, "you are an assistant"))
	assert.Contains(t, out[0].Content, "<relevant_memories>")
	assert.Contains(t, out[0].Content, "<code_knowledge_graph>")
}

func TestInjectContext_NoopWhenBothEmpty(t *testing.T) {
	msgs := []cognition.Message{{Role: "user", Content: "hi"}}
	out := InjectContext(msgs, "", "")
	assert.Equal(t, msgs, out)
}

func TestAppendSystemNote(t *testing.T) {
	msgs := []cognition.Message{{Role: "user", Content: "hi"}}
	out := AppendSystemNote(msgs, "Provide a direct, substantive answer; do not deflect.")
	require.Len(t, out, 2)
	assert.Equal(t, "system", out[0].Role)
	assert.Contains(t, out[0].Content, "direct, substantive answer")
}
