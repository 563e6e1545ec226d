package translate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/repograph/repograph-go/internal/errors"
)

type stubCompleter struct {
	response string
	err      error
	prompts  []string
}

func (s *stubCompleter) Complete(_ context.Context, _, userPrompt string) (string, error) {
	s.prompts = append(s.prompts, userPrompt)
	return s.response, s.err
}

var snapshotLabels = []string{"Task", "Playbook", "Role"}
var snapshotRels = []string{"HAS_TASK", "USES_ROLE"}

func TestTranslateAppliesRowCap(t *testing.T) {
	stub := &stubCompleter{response: "MATCH (n:Task) RETURN n"}
	tr := NewWithCompleter(stub)

	query, err := tr.Translate(context.Background(), "list all tasks", "", snapshotLabels, snapshotRels)
	require.NoError(t, err)
	assert.Equal(t, "MATCH (n:Task) RETURN n LIMIT 100", query)
}

func TestTranslateStripsReasoningAndFences(t *testing.T) {
	stub := &stubCompleter{response: "<think>the user wants tasks</think>\n```cypher\nMATCH (n:Task) RETURN n.name LIMIT 20\n```"}
	tr := NewWithCompleter(stub)

	query, err := tr.Translate(context.Background(), "task names", "", snapshotLabels, snapshotRels)
	require.NoError(t, err)
	assert.Equal(t, "MATCH (n:Task) RETURN n.name LIMIT 20", query)
}

func TestTranslateSingleVsMultiRepoPrompt(t *testing.T) {
	stub := &stubCompleter{response: "MATCH (n:Task) RETURN n LIMIT 10"}
	tr := NewWithCompleter(stub)

	_, err := tr.Translate(context.Background(), "tasks?", "", snapshotLabels, snapshotRels)
	require.NoError(t, err)
	assert.NotContains(t, stub.prompts[0], "active repository")

	_, err = tr.Translate(context.Background(), "tasks?", "infra", snapshotLabels, snapshotRels)
	require.NoError(t, err)
	assert.Contains(t, stub.prompts[1], "The active repository is 'infra'")
	assert.Contains(t, stub.prompts[1], "{repository: 'infra'}")
	assert.Contains(t, stub.prompts[1], "Role nodes are\n  global")
}

func TestTranslateRejectsBadRepositoryID(t *testing.T) {
	tr := NewWithCompleter(&stubCompleter{response: "MATCH (n) RETURN n LIMIT 1"})

	_, err := tr.Translate(context.Background(), "q", "bad repo'id", snapshotLabels, snapshotRels)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindUserInput, apperrors.KindOf(err))
}

func TestTranslateRejectsEmptyQuestion(t *testing.T) {
	tr := NewWithCompleter(&stubCompleter{response: "MATCH (n) RETURN n LIMIT 1"})

	_, err := tr.Translate(context.Background(), "   ", "", snapshotLabels, snapshotRels)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindUserInput, apperrors.KindOf(err))
}

func TestTranslateOpensBreakerAfterRepeatedFailures(t *testing.T) {
	stub := &stubCompleter{err: errors.New("model unreachable")}
	tr := NewWithCompleter(stub)

	for i := 0; i < 3; i++ {
		_, err := tr.Translate(context.Background(), "q", "", snapshotLabels, snapshotRels)
		require.Error(t, err)
	}

	_, err := tr.Translate(context.Background(), "q", "", snapshotLabels, snapshotRels)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindCircuitOpen, apperrors.KindOf(err))
	assert.Contains(t, err.Error(), "find_dependencies",
		"open-circuit error suggests deterministic tools")
}

func TestPostprocess(t *testing.T) {
	cases := map[string]string{
		"MATCH (n) RETURN n;":                         "MATCH (n) RETURN n LIMIT 100",
		"```\nMATCH (n) RETURN n LIMIT 5\n```":        "MATCH (n) RETURN n LIMIT 5",
		"MATCH (n) RETURN n LIMIT 99999":              "MATCH (n) RETURN n LIMIT 1000",
		"<think>\nmultiline\nreasoning\n</think>\nok": "ok LIMIT 100",
		"": "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Postprocess(in), "input %q", in)
	}
}

func TestFormatSchema(t *testing.T) {
	s := formatSchema([]string{"Task"}, []string{"HAS_TASK"})
	assert.Equal(t, "Node labels:\n  (:Task)\nRelationship types:\n  [:HAS_TASK]", s)

	s = formatSchema(nil, nil)
	assert.Contains(t, s, "(none)")
}
