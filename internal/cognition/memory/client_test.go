package memory

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Bjorgzz/Protocol-Omni/internal/cognition"
)

func TestFormatContext_Empty(t *testing.T) {
	assert.Equal(t, "", FormatContext(nil, 1000))
}

func TestFormatContext_AllUnderBudget(t *testing.T) {
	mems := []cognition.Memory{
		{Content: "user prefers dark mode"},
		{Content: "user is a Go developer"},
	}
	out := FormatContext(mems, 1000)
	assert.True(t, strings.HasPrefix(out, "<relevant_memories>"))
	assert.True(t, strings.HasSuffix(out, "</relevant_memories>"))
	for _, m := range mems {
		assert.Contains(t, out, m.Content)
	}
	assert.NotContains(t, out, "truncated")
}

func TestFormatContext_OverBudgetTruncatesOnce(t *testing.T) {
	mems := make([]cognition.Memory, 0, 50)
	for i := 0; i < 50; i++ {
		mems = append(mems, cognition.Memory{Content: strings.Repeat("x", 200)})
	}
	out := FormatContext(mems, 10) // max 40 chars budget, forces truncation almost immediately
	assert.Equal(t, 1, strings.Count(out, "additional memories truncated"))
}

func TestStoreInteraction_FormatsContentAndTruncates(t *testing.T) {
	longPrompt := strings.Repeat("p", 600)
	longResp := strings.Repeat("r", 600)
	content := buildInteractionContent(longPrompt, longResp)
	assert.True(t, strings.HasPrefix(content, "User asked: "+strings.Repeat("p", 500)))
	assert.Contains(t, content, "Assistant response summary: "+strings.Repeat("r", 500))
}

// buildInteractionContent mirrors StoreInteraction's content formatting
// without requiring a live HTTP round trip, so the format itself is
// covered without a server double.
func buildInteractionContent(prompt, response string) string {
	return "User asked: " + truncate(prompt, 500) + "\n\nAssistant response summary: " + truncate(response, 500)
}
