package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindUserInput, KindOf(UserInputf("bad path")))
	assert.Equal(t, KindTimeout, KindOf(Timeoutf("deadline")))
	assert.Equal(t, KindUnavailable, KindOf(Unavailablef("down")))
	assert.Equal(t, KindConfig, KindOf(Configf("missing uri")))

	// Unclassified errors are treated as internal.
	assert.Equal(t, KindInternal, KindOf(stderrors.New("boom")))

	// The kind survives wrapping through fmt.Errorf chains.
	wrapped := fmt.Errorf("while querying: %w", Unavailablef("store down"))
	assert.Equal(t, KindUnavailable, KindOf(wrapped))
}

func TestInternalErrorsHideTheCause(t *testing.T) {
	err := Wrap(stderrors.New("pq: relation does not exist"), KindInternal, "query failed")
	require.NotEmpty(t, err.CorrelationID)

	msg := err.UserMessage()
	assert.Contains(t, msg, err.CorrelationID)
	assert.NotContains(t, msg, "relation does not exist")

	// The full detail stays available for logs.
	assert.Contains(t, err.DetailedString(), "relation does not exist")
	assert.Contains(t, err.DetailedString(), "INTERNAL")
}

func TestUserFacingKindsSurfaceVerbatim(t *testing.T) {
	err := UserInputf("invalid repository id %q", "bad id!")
	assert.Equal(t, `invalid repository id "bad id!"`, err.UserMessage())
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, KindUnavailable, "ignored"))
}

func TestIsMatchesByKind(t *testing.T) {
	err := Timeoutf("query exceeded the 10s timeout")
	assert.True(t, stderrors.Is(err, New(KindTimeout, "")))
	assert.False(t, stderrors.Is(err, New(KindUnavailable, "")))
}

func TestWithContext(t *testing.T) {
	err := Unavailablef("neo4j unreachable").WithContext("uri", "bolt://localhost:7687")
	assert.Equal(t, "bolt://localhost:7687", err.Context["uri"])
}
