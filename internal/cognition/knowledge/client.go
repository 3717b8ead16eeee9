// Package knowledge implements C4: queries against the external code
// knowledge graph (Memgraph, spoken to over the Bolt protocol via the
// neo4j driver, which Memgraph is wire-compatible with).
package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Bjorgzz/Protocol-Omni/internal/cognition"
)

// CodeContext aggregates symbols and relationships for one query.
type CodeContext struct {
	Symbols       []cognition.CodeSymbol
	Relationships []Relationship
	Query         string
}

// Relationship is a labeled edge between two symbols, as surfaced by
// the graph (e.g. CALLS, IMPORTS, INHERITS).
type Relationship struct {
	From string
	Type string
	To   string
}

const contextMaxChars = 2000

// ToPromptContext serializes a CodeContext into a
// <code_knowledge_graph>...</code_knowledge_graph> block, capped at
// contextMaxChars with an ellipsis on overflow.
func (cc CodeContext) ToPromptContext() string {
	if len(cc.Symbols) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("<code_knowledge_graph>")

	symbols := cc.Symbols
	if len(symbols) > 10 {
		symbols = symbols[:10]
	}
	for _, s := range symbols {
		b.WriteString(fmt.Sprintf("\n- %s: %s", s.Kind, s.QualifiedName))
		if s.Signature != "" {
			b.WriteString(fmt.Sprintf("\n  Signature: %s", s.Signature))
		}
		if s.Docstring != "" {
			doc := s.Docstring
			if len(doc) > 200 {
				doc = doc[:200]
			}
			b.WriteString(fmt.Sprintf("\n  Doc: %s", doc))
		}
		if s.FilePath != "" {
			b.WriteString(fmt.Sprintf("\n  File: %s:%d", s.FilePath, s.LineStart))
		}
	}

	if len(cc.Relationships) > 0 {
		b.WriteString("\n\nRelationships:")
		rels := cc.Relationships
		if len(rels) > 5 {
			rels = rels[:5]
		}
		for _, r := range rels {
			b.WriteString(fmt.Sprintf("\n  %s --[%s]--> %s", r.From, r.Type, r.To))
		}
	}

	b.WriteString("\n</code_knowledge_graph>")
	result := b.String()
	if len(result) > contextMaxChars {
		result = result[:contextMaxChars-20] + "\n... (truncated)"
	}
	return result
}

// Client queries the code knowledge graph.
type Client struct {
	driver neo4j.DriverWithContext
	log    *slog.Logger
}

func New(driver neo4j.DriverWithContext, log *slog.Logger) *Client {
	return &Client{driver: driver, log: log}
}

// Health reports whether the graph database is reachable.
func (c *Client) Health(ctx context.Context) bool {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)
	result, err := session.Run(ctx, "RETURN 1 as n", nil)
	if err != nil {
		c.log.Warn("knowledge health check failed", "error", err)
		return false
	}
	record, err := result.Single(ctx)
	if err != nil {
		return false
	}
	n, ok := record.Get("n")
	return ok && n == int64(1)
}

// FindSymbol finds symbols by (partial) name, optionally filtered by
// kind, limit 20.
func (c *Client) FindSymbol(ctx context.Context, name, kind string) []cognition.CodeSymbol {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	query := `
		MATCH (s)
		WHERE (s:Class OR s:Function) AND s.name CONTAINS $name
		OPTIONAL MATCH (f:File)-[:CONTAINS*]->(s)
		RETURN s, labels(s)[0] as kind, f.path as file_path
		LIMIT 20`
	if kind != "" {
		query = fmt.Sprintf(`
		MATCH (s:%s)
		WHERE s.name CONTAINS $name
		OPTIONAL MATCH (f:File)-[:CONTAINS*]->(s)
		RETURN s, f.path as file_path
		LIMIT 20`, kind)
	}

	result, err := session.Run(ctx, query, map[string]any{"name": name})
	if err != nil {
		c.log.Error("find_symbol failed", "error", err)
		return nil
	}

	var symbols []cognition.CodeSymbol
	for result.Next(ctx) {
		record := result.Record()
		node, _ := record.Get("s")
		n, ok := node.(neo4j.Node)
		if !ok {
			continue
		}
		symKind := kind
		if symKind == "" {
			if k, ok := record.Get("kind"); ok && k != nil {
				symKind, _ = k.(string)
			}
		}
		filePath := ""
		if fp, ok := record.Get("file_path"); ok && fp != nil {
			filePath, _ = fp.(string)
		}
		symbols = append(symbols, nodeToSymbol(n, symKind, filePath))
	}
	return symbols
}

// FindReferences finds inbound CALLS edges against a Function with a
// matching name, limit 20.
func (c *Client) FindReferences(ctx context.Context, symbolName string) []cognition.CodeSymbol {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	query := `
		MATCH (caller)-[:CALLS]->(target:Function {name: $name})
		OPTIONAL MATCH (f:File)-[:CONTAINS*]->(caller)
		RETURN caller as s, labels(caller)[0] as kind, f.path as file_path
		LIMIT 20`
	result, err := session.Run(ctx, query, map[string]any{"name": symbolName})
	if err != nil {
		c.log.Error("find_references failed", "error", err)
		return nil
	}
	var symbols []cognition.CodeSymbol
	for result.Next(ctx) {
		record := result.Record()
		node, _ := record.Get("s")
		n, ok := node.(neo4j.Node)
		if !ok {
			continue
		}
		kind := ""
		if k, ok := record.Get("kind"); ok && k != nil {
			kind, _ = k.(string)
		}
		filePath := ""
		if fp, ok := record.Get("file_path"); ok && fp != nil {
			filePath, _ = fp.(string)
		}
		symbols = append(symbols, nodeToSymbol(n, kind, filePath))
	}
	return symbols
}

// GetFileSymbols returns the CONTAINS descendants of a File node.
func (c *Client) GetFileSymbols(ctx context.Context, path string) []cognition.CodeSymbol {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	query := `
		MATCH (f:File {path: $path})-[:CONTAINS*]->(s)
		WHERE s:Class OR s:Function
		RETURN s, labels(s)[0] as kind`
	result, err := session.Run(ctx, query, map[string]any{"path": path})
	if err != nil {
		c.log.Error("get_file_symbols failed", "error", err)
		return nil
	}
	var symbols []cognition.CodeSymbol
	for result.Next(ctx) {
		record := result.Record()
		node, _ := record.Get("s")
		n, ok := node.(neo4j.Node)
		if !ok {
			continue
		}
		kind := ""
		if k, ok := record.Get("kind"); ok && k != nil {
			kind, _ = k.(string)
		}
		symbols = append(symbols, nodeToSymbol(n, kind, path))
	}
	return symbols
}

// GetDependencies returns outbound IMPORTS edges from a file.
func (c *Client) GetDependencies(ctx context.Context, path string) []Relationship {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	query := `
		MATCH (f:File {path: $path})-[:IMPORTS]->(dep)
		RETURN f.path as from, dep.name as to`
	result, err := session.Run(ctx, query, map[string]any{"path": path})
	if err != nil {
		c.log.Error("get_dependencies failed", "error", err)
		return nil
	}
	var rels []Relationship
	for result.Next(ctx) {
		record := result.Record()
		from, _ := record.Get("from")
		to, _ := record.Get("to")
		rels = append(rels, Relationship{From: fmt.Sprint(from), Type: "IMPORTS", To: fmt.Sprint(to)})
	}
	return rels
}

// GetClassHierarchy returns transitive INHERITS edges for a class.
func (c *Client) GetClassHierarchy(ctx context.Context, name string) []Relationship {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	query := `
		MATCH (c:Class {name: $name})-[:INHERITS*]->(ancestor:Class)
		RETURN c.name as from, ancestor.name as to`
	result, err := session.Run(ctx, query, map[string]any{"name": name})
	if err != nil {
		c.log.Error("get_class_hierarchy failed", "error", err)
		return nil
	}
	var rels []Relationship
	for result.Next(ctx) {
		record := result.Record()
		from, _ := record.Get("from")
		to, _ := record.Get("to")
		rels = append(rels, Relationship{From: fmt.Sprint(from), Type: "INHERITS", To: fmt.Sprint(to)})
	}
	return rels
}

var identifierPattern = regexp.MustCompile(`\b([A-Z][a-z]+(?:[A-Z][a-z]+)*|[a-z_][a-z0-9_]+)\b`)

var codeContextStopwords = map[string]struct{}{
	"the": {}, "this": {}, "that": {}, "what": {}, "where": {}, "when": {}, "how": {}, "why": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {}, "being": {},
	"have": {}, "has": {}, "had": {}, "do": {}, "does": {}, "did": {},
	"will": {}, "would": {}, "could": {}, "should": {}, "may": {}, "might": {},
	"can": {}, "find": {}, "get": {}, "set": {}, "all": {}, "any": {}, "some": {},
	"function": {}, "class": {}, "method": {}, "file": {}, "code": {}, "implement": {},
}

// GetCodeContext derives candidate identifier names from a natural
// language query, searches find_symbol per term, de-duplicates by
// qualified name, and returns up to limit symbols.
func (c *Client) GetCodeContext(ctx context.Context, query string, limit int) CodeContext {
	candidates := identifierPattern.FindAllString(query, -1)

	var searchTerms []string
	for _, name := range candidates {
		if _, skip := codeContextStopwords[strings.ToLower(name)]; skip {
			continue
		}
		if len(name) <= 2 {
			continue
		}
		searchTerms = append(searchTerms, name)
	}
	if len(searchTerms) > 5 {
		searchTerms = searchTerms[:5]
	}

	seen := make(map[string]struct{})
	var unique []cognition.CodeSymbol
	for _, term := range searchTerms {
		for _, s := range c.FindSymbol(ctx, term, "") {
			if _, ok := seen[s.QualifiedName]; ok {
				continue
			}
			seen[s.QualifiedName] = struct{}{}
			unique = append(unique, s)
		}
	}
	if limit > 0 && len(unique) > limit {
		unique = unique[:limit]
	}

	return CodeContext{Symbols: unique, Query: query}
}

func nodeToSymbol(n neo4j.Node, kind, filePath string) cognition.CodeSymbol {
	props := n.Props
	getStr := func(k string) string {
		if v, ok := props[k]; ok && v != nil {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}
	getInt := func(k string) int {
		if v, ok := props[k]; ok && v != nil {
			if i, ok := v.(int64); ok {
				return int(i)
			}
		}
		return 0
	}
	return cognition.CodeSymbol{
		Name:          getStr("name"),
		QualifiedName: getStr("qualified_name"),
		Kind:          kind,
		Signature:     getStr("signature"),
		Docstring:     getStr("docstring"),
		FilePath:      filePath,
		LineStart:     getInt("line_start"),
		LineEnd:       getInt("line_end"),
	}
}

// CodeIndicators is the stoplist that should_retrieve_knowledge checks
// for; it carries three extra terms ("import", "caller", "called")
// beyond spec.md's list, per SPEC_FULL §4.3.
var CodeIndicators = []string{
	"function", "class", "method", "import", "file", "where is",
	"find", "reference", "caller", "called", "defined", "implement",
	"code", "source",
}

// ShouldRetrieve reports whether knowledge retrieval should run: only
// when complexity is TOOL_HEAVY and the prompt contains at least one
// code-related term.
func ShouldRetrieve(complexity cognition.ComplexityTag, prompt string) bool {
	if complexity != cognition.ToolHeavy {
		return false
	}
	lower := strings.ToLower(prompt)
	for _, ind := range CodeIndicators {
		if strings.Contains(lower, ind) {
			return true
		}
	}
	return false
}
