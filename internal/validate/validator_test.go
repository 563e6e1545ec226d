package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func liveValidator() *Validator {
	return New(
		[]string{"Task", "Role", "Playbook", "Play", "File", "Variable", "Template"},
		[]string{"HAS_TASK", "HAS_PLAY", "USES_ROLE", "IN_FILE", "USES_VAR", "DEFINES_VAR", "USES_TEMPLATE"},
	)
}

func TestUnknownLabelRejected(t *testing.T) {
	v := New([]string{"Task", "Role", "Playbook"}, nil)

	r := v.Validate("MATCH (n:FakeNode) RETURN n")
	assert.False(t, r.Valid)
	require.Len(t, r.Errors, 1)
	assert.Contains(t, r.Errors[0], "Unknown node labels")
	assert.Contains(t, r.Errors[0], "FakeNode")
}

func TestDeleteRejected(t *testing.T) {
	v := liveValidator()

	r := v.Validate("MATCH (n) DELETE n")
	assert.False(t, r.Valid)
	require.NotEmpty(t, r.Errors)
	assert.Contains(t, r.Errors[0], "Forbidden: DELETE operations")
}

func TestValidQueryPasses(t *testing.T) {
	v := liveValidator()

	r := v.Validate("MATCH (n:Task) RETURN n LIMIT 10")
	assert.True(t, r.Valid)
	assert.Empty(t, r.Errors)
	assert.Empty(t, r.Warnings)
}

func TestMutationsRejected(t *testing.T) {
	v := liveValidator()

	cases := map[string]string{
		"CREATE (n:Task {name: 'x'})":                "Forbidden: CREATE operations",
		"MERGE (n:Role {name: 'x'})":                 "Forbidden: MERGE operations",
		"MATCH (n:Task) SET n.done = true RETURN n":  "Forbidden: SET operations",
		"MATCH (n:Task) REMOVE n.done RETURN n":      "Forbidden: REMOVE operations",
		"MATCH (n) DETACH DELETE n":                  "Forbidden: DETACH DELETE operations",
		"DROP INDEX idx_task":                        "Forbidden: DROP operations",
		"CALL db.labels()":                           "Forbidden: administrative procedure calls",
		"CALL apoc.export.csv.all('out.csv', {})":    "Forbidden: extension procedure calls",
		"CREATE INDEX foo FOR (n:Task) ON (n.name)":  "Forbidden: index DDL",
	}
	for query, want := range cases {
		r := v.Validate(query)
		assert.False(t, r.Valid, "query %q", query)
		assert.True(t, hasErrorContaining(r, want),
			"query %q should report %q, got %v", query, want, r.Errors)
	}
}

func hasErrorContaining(r Result, want string) bool {
	for _, e := range r.Errors {
		if strings.Contains(e, want) {
			return true
		}
	}
	return false
}

func TestUnknownRelationshipTypeRejected(t *testing.T) {
	v := liveValidator()

	r := v.Validate("MATCH (p:Play)-[:TRIGGERS]->(t:Task) RETURN t LIMIT 5")
	assert.False(t, r.Valid)
	require.Len(t, r.Errors, 1)
	assert.Contains(t, r.Errors[0], "Unknown relationship types")
	assert.Contains(t, r.Errors[0], "TRIGGERS")
}

func TestRelationshipAlternationChecked(t *testing.T) {
	v := liveValidator()

	r := v.Validate("MATCH (p:Play)-[:HAS_TASK|BOGUS]->(t:Task) RETURN t LIMIT 5")
	assert.False(t, r.Valid)
	assert.Contains(t, r.Errors[0], "BOGUS")

	r = v.Validate("MATCH (p:Play)-[:HAS_TASK|HAS_PLAY]->(t:Task) RETURN t LIMIT 5")
	assert.True(t, r.Valid)
}

func TestWarnings(t *testing.T) {
	v := liveValidator()

	r := v.Validate("MATCH (n:Task) RETURN n")
	assert.True(t, r.Valid)
	assert.NotEmpty(t, r.Warnings, "missing LIMIT warns")

	r = v.Validate("MATCH (a:Play)-[*]->(b:Task) RETURN b LIMIT 10")
	assert.True(t, r.Valid)
	require.NotEmpty(t, r.Warnings)
	assert.Contains(t, r.Warnings[0], "variable-length")

	r = v.Validate("MATCH (n:Task) RETURN *")
	assert.True(t, r.Valid)
	assert.GreaterOrEqual(t, len(r.Warnings), 2, "RETURN * and missing LIMIT both warn")
}

func TestEmptySnapshotSkipsVocabularyCheck(t *testing.T) {
	v := New(nil, nil)

	r := v.Validate("MATCH (n:Anything)-[:WHATEVER]->(m) RETURN n LIMIT 5")
	assert.True(t, r.Valid)
}

func TestDetachDeleteReportedOnce(t *testing.T) {
	v := liveValidator()

	r := v.Validate("MATCH (n:Task) DETACH DELETE n")
	var deleteMsgs int
	for _, e := range r.Errors {
		if strings.Contains(e, "DELETE") {
			deleteMsgs++
		}
	}
	assert.Equal(t, 2, deleteMsgs, "DETACH DELETE and DELETE are distinct messages")
}
