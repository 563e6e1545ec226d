package translate

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are an expert in the Cypher graph query language.
You translate natural-language questions about codebases into read-only
Cypher queries. Reply with a single Cypher query and nothing else: no
explanation, no markdown fences, no commentary.`

const singleRepoTemplate = `The graph database currently contains:

%s

Rules:
- Generate exactly one read-only Cypher query (MATCH/RETURN only).
- Use only the node labels and relationship types listed above.
- Always end the query with a LIMIT clause of at most %d rows.

Question: %s`

const multiRepoTemplate = `The graph database holds several repositories at
once. The active repository is '%s'.

It currently contains:

%s

Rules:
- Generate exactly one read-only Cypher query (MATCH/RETURN only).
- Use only the node labels and relationship types listed above.
- Every matched node except Role must be constrained with
  {repository: '%s'} or an equivalent WHERE predicate. Role nodes are
  global and carry no repository property; never filter them by
  repository.
- Always end the query with a LIMIT clause of at most %d rows.

Question: %s`

// formatSchema renders a live schema snapshot for the prompt.
func formatSchema(labels, relationshipTypes []string) string {
	var b strings.Builder
	b.WriteString("Node labels:\n")
	if len(labels) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, l := range labels {
		fmt.Fprintf(&b, "  (:%s)\n", l)
	}
	b.WriteString("Relationship types:\n")
	if len(relationshipTypes) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, t := range relationshipTypes {
		fmt.Fprintf(&b, "  [:%s]\n", t)
	}
	return strings.TrimRight(b.String(), "\n")
}

// buildUserPrompt picks the single- or multi-repository template.
func buildUserPrompt(question, repositoryID string, labels, relationshipTypes []string, rowCap int) string {
	schema := formatSchema(labels, relationshipTypes)
	if repositoryID == "" {
		return fmt.Sprintf(singleRepoTemplate, schema, rowCap, question)
	}
	return fmt.Sprintf(multiRepoTemplate, repositoryID, schema, repositoryID, rowCap, question)
}
