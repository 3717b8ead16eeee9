package knowledge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Bjorgzz/Protocol-Omni/internal/cognition"
)

func TestToPromptContext_Empty(t *testing.T) {
	assert.Equal(t, "", CodeContext{}.ToPromptContext())
}

func TestToPromptContext_IncludesSymbolsAndRelationships(t *testing.T) {
	cc := CodeContext{
		Symbols: []cognition.CodeSymbol{
			{Kind: "Function", QualifiedName: "pkg.DoThing", Signature: "func DoThing()", FilePath: "pkg/thing.go", LineStart: 10},
		},
		Relationships: []Relationship{{From: "pkg.A", Type: "CALLS", To: "pkg.B"}},
	}
	out := cc.ToPromptContext()
	assert.True(t, strings.HasPrefix(out, "<code_knowledge_graph>"))
	assert.True(t, strings.HasSuffix(out, "</code_knowledge_graph>"))
	assert.Contains(t, out, "pkg.DoThing")
	assert.Contains(t, out, "pkg.A --[CALLS]--> pkg.B")
}

func TestToPromptContext_TruncatesOverflow(t *testing.T) {
	var symbols []cognition.CodeSymbol
	for i := 0; i < 10; i++ {
		symbols = append(symbols, cognition.CodeSymbol{
			Kind: "Function", QualifiedName: "pkg.Fn", Docstring: strings.Repeat("d", 200), FilePath: "pkg/f.go",
		})
	}
	out := CodeContext{Symbols: symbols}.ToPromptContext()
	assert.LessOrEqual(t, len(out), 2000)
	assert.Contains(t, out, "(truncated)")
}

func TestShouldRetrieve(t *testing.T) {
	assert.False(t, ShouldRetrieve(cognition.Complex, "find the function"))
	assert.False(t, ShouldRetrieve(cognition.ToolHeavy, "hello there"))
	assert.True(t, ShouldRetrieve(cognition.ToolHeavy, "where is this function defined"))
	assert.True(t, ShouldRetrieve(cognition.ToolHeavy, "who called this method"))
}
