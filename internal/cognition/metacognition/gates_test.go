package metacognition

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Bjorgzz/Protocol-Omni/internal/cognition"
)

func TestShouldVerify(t *testing.T) {
	assert.False(t, ShouldVerify(&cognition.RequestState{Complexity: cognition.Trivial, Response: "x"}))
	assert.False(t, ShouldVerify(&cognition.RequestState{Complexity: cognition.Complex, Error: "boom", Response: "x"}))
	assert.False(t, ShouldVerify(&cognition.RequestState{Complexity: cognition.Complex, Response: ""}))
	assert.True(t, ShouldVerify(&cognition.RequestState{Complexity: cognition.Complex, Response: "x"}))
}

func TestVerify_Skipped(t *testing.T) {
	s := &cognition.RequestState{Complexity: cognition.Routine, Response: "hi"}
	Verify(s)
	assert.True(t, s.Passed)
	assert.Equal(t, "skipped", s.Verdict)
}

func TestVerify_HallucinationRetriesThenPassesAtBudget(t *testing.T) {
	s := &cognition.RequestState{
		Complexity: cognition.Complex,
		Prompt:     "analyze the system",
		Response:   "As an AI, I cannot help with that.",
		RetryCount: 0,
	}
	Verify(s)
	assert.False(t, s.Passed)
	assert.Equal(t, 1, s.RetryCount)
	assert.True(t, strings.HasPrefix(s.Verdict, "failed:hallucination:"))

	Verify(s)
	assert.False(t, s.Passed)
	assert.Equal(t, 2, s.RetryCount)

	Verify(s)
	assert.True(t, s.Passed)
	assert.Equal(t, "passed_after_max_retries:hallucination", s.Verdict)
	assert.Equal(t, 2, s.RetryCount)
}

func TestVerify_LengthGateBoundary(t *testing.T) {
	prompt := "tell me about databases and caching and indexes"
	s49 := &cognition.RequestState{Complexity: cognition.Complex, Prompt: prompt, Response: strings.Repeat("a", 49)}
	Verify(s49)
	assert.False(t, s49.Passed)
	assert.Contains(t, s49.Verdict, "too_short")

	s50 := &cognition.RequestState{Complexity: cognition.Complex, Prompt: prompt, Response: strings.Repeat("database caching index lookup query table row column ", 2)}
	Verify(s50)
	// length gate passes since >= 50 chars and well past coherence too
	assert.NotContains(t, s50.Verdict, "too_short")
}

func TestVerify_CoherenceFewerThanThreeTermsAlwaysPasses(t *testing.T) {
	s := &cognition.RequestState{
		Complexity: cognition.Complex,
		Prompt:     "hi the a",
		Response:   strings.Repeat("completely unrelated filler content here ", 3),
	}
	Verify(s)
	assert.NotContains(t, s.Verdict, "incoherent")
}

func TestExtractKeyTerms_DeterministicAndCapped(t *testing.T) {
	text := strings.Repeat("alpha bravo charlie delta echo foxtrot golf hotel india juliet kilo lima mike november oscar papa quebec romeo sierra tango uniform victor whiskey ", 1)
	terms1 := extractKeyTerms(text)
	terms2 := extractKeyTerms(text)
	assert.Equal(t, terms1, terms2)
	assert.LessOrEqual(t, len(terms1), 20)
}

func TestFailureType(t *testing.T) {
	assert.Equal(t, "hallucination", FailureType("failed:hallucination:Detected marker"))
	assert.Equal(t, "hallucination", FailureType("passed_after_max_retries:hallucination"))
	assert.Equal(t, "", FailureType("skipped"))
}

func TestRetryPromptEnhancement(t *testing.T) {
	assert.Contains(t, RetryPromptEnhancement("hallucination"), "direct, substantive answer")
	assert.Equal(t, "", RetryPromptEnhancement("unknown"))
}
