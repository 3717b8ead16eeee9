// Package metacognition implements C7: the four-gate response
// verification chain with a bounded retry policy.
package metacognition

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Bjorgzz/Protocol-Omni/internal/cognition"
)

// HallucinationMarkers are refusal/deflection phrases that mark a
// cop-out response rather than a substantive answer.
var HallucinationMarkers = []*regexp.Regexp{
	regexp.MustCompile(`as an ai`),
	regexp.MustCompile(`i cannot`),
	regexp.MustCompile(`i don't have access`),
	regexp.MustCompile(`i'm unable to`),
	regexp.MustCompile(`i apologize`),
	regexp.MustCompile(`i can't help`),
	regexp.MustCompile(`as a language model`),
}

// IncompleteMarkers mark an apparently truncated response.
var IncompleteMarkers = []*regexp.Regexp{
	regexp.MustCompile(`\.{3,}$`),
	regexp.MustCompile(`(?i)etc\.$`),
	regexp.MustCompile(`(?i)and so on\.$`),
	regexp.MustCompile(`(?i)to be continued`),
	regexp.MustCompile(`(?i)\[incomplete\]`),
	regexp.MustCompile(`(?i)\[truncated\]`),
}

var terminatorPattern = regexp.MustCompile(`[.!?` + "`" + `"'\])>]$`)

const (
	MinLength  = 50
	MaxRetries = 2
)

// Result is the outcome of one verification pass.
type Result struct {
	Passed     bool
	Verdict    string
	RetryCount int
}

// ShouldVerify reports whether the metacognition chain should run at
// all: only for COMPLEX/TOOL_HEAVY complexity, with no prior error and
// a non-empty response.
func ShouldVerify(state *cognition.RequestState) bool {
	if state.Complexity == cognition.Trivial || state.Complexity == cognition.Routine {
		return false
	}
	if state.Error != "" {
		return false
	}
	if state.Response == "" {
		return false
	}
	return true
}

// Verify runs the 4 gates in order against state, mutating
// Passed/Verdict/RetryCount and returning the same state for
// convenience. When ShouldVerify is false, it short-circuits to
// passed=true, verdict="skipped".
func Verify(state *cognition.RequestState) *cognition.RequestState {
	if !ShouldVerify(state) {
		state.Passed = true
		state.Verdict = "skipped"
		return state
	}

	response := state.Response
	prompt := state.Prompt
	retryCount := state.RetryCount

	if ok, reason := gate1Hallucination(response); !ok {
		return applyFailure(state, "hallucination", reason, retryCount)
	}
	if ok, reason := gate2Completeness(response); !ok {
		return applyFailure(state, "incomplete", reason, retryCount)
	}
	if ok, reason := gate3Length(response); !ok {
		return applyFailure(state, "too_short", reason, retryCount)
	}
	if ok, reason := gate4Coherence(response, prompt); !ok {
		return applyFailure(state, "incoherent", reason, retryCount)
	}

	state.Passed = true
	state.Verdict = "passed_all_gates"
	return state
}

func gate1Hallucination(response string) (bool, string) {
	lower := strings.ToLower(response)
	for _, pattern := range HallucinationMarkers {
		if pattern.MatchString(lower) {
			return false, fmt.Sprintf("Detected hallucination marker: '%s'", pattern.String())
		}
	}
	return true, "No hallucination markers detected"
}

func gate2Completeness(response string) (bool, string) {
	stripped := strings.TrimSpace(response)
	for _, pattern := range IncompleteMarkers {
		if pattern.MatchString(stripped) {
			return false, fmt.Sprintf("Detected incompleteness marker: '%s'", pattern.String())
		}
	}
	if stripped != "" && !terminatorPattern.MatchString(stripped) {
		if len(stripped) > 500 {
			return false, "Long response ends without proper termination"
		}
	}
	return true, "Response appears complete"
}

func gate3Length(response string) (bool, string) {
	stripped := strings.TrimSpace(response)
	if len(stripped) < MinLength {
		return false, fmt.Sprintf("Response too short: %d chars (min: %d)", len(stripped), MinLength)
	}
	return true, fmt.Sprintf("Response length acceptable: %d chars", len(stripped))
}

func gate4Coherence(response, prompt string) (bool, string) {
	if prompt == "" || response == "" {
		return true, "No prompt or response to check"
	}
	responseLower := strings.ToLower(response)
	keyTerms := extractKeyTerms(strings.ToLower(prompt))
	if len(keyTerms) == 0 {
		return true, "No key terms extracted from prompt"
	}

	matching := 0
	for _, term := range keyTerms {
		if strings.Contains(responseLower, term) {
			matching++
		}
	}
	ratio := float64(matching) / float64(len(keyTerms))

	if ratio < 0.2 && len(keyTerms) >= 3 {
		return false, fmt.Sprintf("Low term overlap (%.0f%%): response may not address prompt", ratio*100)
	}
	return true, fmt.Sprintf("Coherence check passed: %.0f%% term overlap", ratio*100)
}

var keyTermPattern = regexp.MustCompile(`\b[a-z]{3,}\b`)

var coherenceStopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {},
	"have": {}, "has": {}, "had": {}, "do": {}, "does": {}, "did": {}, "will": {}, "would": {},
	"could": {}, "should": {}, "may": {}, "might": {}, "can": {}, "must": {}, "shall": {},
	"i": {}, "you": {}, "he": {}, "she": {}, "it": {}, "we": {}, "they": {}, "me": {}, "him": {},
	"her": {}, "us": {}, "them": {}, "my": {}, "your": {}, "his": {}, "its": {}, "our": {},
	"their": {}, "this": {}, "that": {}, "these": {}, "those": {}, "what": {}, "which": {},
	"who": {}, "whom": {}, "whose": {}, "when": {}, "where": {}, "why": {}, "how": {},
	"and": {}, "or": {}, "but": {}, "if": {}, "then": {}, "else": {}, "for": {}, "with": {},
	"to": {}, "from": {}, "in": {}, "on": {}, "at": {}, "by": {}, "of": {}, "about": {},
	"please": {}, "help": {}, "want": {}, "need": {}, "like": {}, "tell": {}, "show": {},
}

// extractKeyTerms pulls length>=3 lowercase words, filters stopwords,
// and deduplicates in first-seen order, capped at 20 distinct terms.
// The original dedups via `list(set(words))[:20]`, which carries no
// determinism guarantee across runs; first-seen-order dedup preserves
// the same semantics (a 20-term cap over a stopword-filtered set)
// while making the gate fully deterministic.
func extractKeyTerms(text string) []string {
	words := keyTermPattern.FindAllString(text, -1)
	seen := make(map[string]struct{})
	var terms []string
	for _, w := range words {
		if _, stop := coherenceStopwords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		terms = append(terms, w)
		if len(terms) == 20 {
			break
		}
	}
	return terms
}

func applyFailure(state *cognition.RequestState, failureType, reason string, retryCount int) *cognition.RequestState {
	if retryCount >= MaxRetries {
		state.Passed = true
		state.Verdict = fmt.Sprintf("passed_after_max_retries:%s", failureType)
		return state
	}
	state.Passed = false
	state.Verdict = fmt.Sprintf("failed:%s:%s", failureType, reason)
	state.RetryCount = retryCount + 1
	return state
}

// RetryPromptEnhancement returns the system-message addendum to use
// when re-issuing the model call after a given failure type.
func RetryPromptEnhancement(failureType string) string {
	switch failureType {
	case "hallucination":
		return "Important: Provide a direct, substantive answer. Do not deflect or claim inability to help."
	case "incomplete":
		return "Important: Provide a complete response. Do not truncate or leave the answer unfinished."
	case "too_short":
		return "Important: Provide a thorough, detailed response. Brief answers are not sufficient for this query."
	case "incoherent":
		return "Important: Focus on directly addressing the specific question asked. Ensure your response is relevant to the query."
	default:
		return ""
	}
}

// FailureType extracts the failure-type token from a verdict string of
// the form "failed:{type}:{reason}" or "passed_after_max_retries:{type}",
// or "" if verdict does not carry one.
func FailureType(verdict string) string {
	for _, prefix := range []string{"failed:", "passed_after_max_retries:"} {
		if strings.HasPrefix(verdict, prefix) {
			rest := strings.TrimPrefix(verdict, prefix)
			if idx := strings.Index(rest, ":"); idx >= 0 {
				return rest[:idx]
			}
			return rest
		}
	}
	return ""
}
