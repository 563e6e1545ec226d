package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repograph/repograph-go/internal/config"
	"github.com/repograph/repograph-go/internal/translate"
)

// fakeQuerier records queries and returns canned rows.
type fakeQuerier struct {
	rows    []map[string]any
	queries []string
	params  []map[string]any
}

func (f *fakeQuerier) ExecuteRead(_ context.Context, query string, params map[string]any) ([]map[string]any, error) {
	f.queries = append(f.queries, query)
	f.params = append(f.params, params)
	return f.rows, nil
}

func (f *fakeQuerier) ListNodeLabels(context.Context) ([]string, error) {
	return []string{"File", "Task", "Playbook", "Play", "Role", "Variable", "Template"}, nil
}

func (f *fakeQuerier) ListRelationshipTypes(context.Context) ([]string, error) {
	return []string{"HAS_PLAY", "HAS_TASK", "USES_ROLE", "IN_FILE", "USES_VAR", "DEFINES_VAR", "USES_TEMPLATE", "INCLUDES", "IMPORTS", "LOADS_VARS"}, nil
}

type fixedCompleter struct{ response string }

func (f fixedCompleter) Complete(context.Context, string, string) (string, error) {
	return f.response, nil
}

func newTestServer(store *fakeQuerier, cypher string) *Server {
	return NewServer(store, translate.NewWithCompleter(fixedCompleter{response: cypher}), "")
}

func callText(t *testing.T, s *Server, tool string, args map[string]any) (string, bool) {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)
	res, err := s.CallTool(context.Background(), tool, raw)
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*sdk.TextContent)
	require.True(t, ok)
	return text.Text, res.IsError
}

func TestToolNames(t *testing.T) {
	s := newTestServer(&fakeQuerier{}, "MATCH (n) RETURN n LIMIT 1")
	assert.Equal(t, []string{
		"analyze_playbook",
		"find_dependencies",
		"find_tasks_by_module",
		"find_template_usage",
		"get_role_usage",
		"get_task_hierarchy",
		"query_codebase",
		"query_with_rag",
		"set_repository_context",
		"trace_variable",
	}, s.ToolNames())
}

func TestSetRepositoryContext(t *testing.T) {
	s := newTestServer(&fakeQuerier{}, "")

	text, isErr := callText(t, s, "set_repository_context", map[string]any{"repository_id": "infra"})
	assert.False(t, isErr)
	assert.Equal(t, "Repository context set to 'infra'.", text)
	assert.Equal(t, "infra", s.Session().Repository())

	_, isErr = callText(t, s, "set_repository_context", map[string]any{"repository_id": "bad id!"})
	assert.True(t, isErr)
	assert.Equal(t, "infra", s.Session().Repository(), "rejected ids do not change the context")
}

func TestRepoScopedToolsRequireContext(t *testing.T) {
	s := newTestServer(&fakeQuerier{}, "")

	text, isErr := callText(t, s, "find_dependencies", map[string]any{"file_path": "site.yml"})
	assert.True(t, isErr)
	assert.Contains(t, text, "set_repository_context")
}

func TestFindDependenciesParameterizes(t *testing.T) {
	store := &fakeQuerier{rows: []map[string]any{
		{"relationship": "LOADS_VARS", "kind": "VarsFile", "target": "vars/web.yml"},
	}}
	s := newTestServer(store, "")
	require.NoError(t, s.Session().SetRepository("infra"))

	text, isErr := callText(t, s, "find_dependencies", map[string]any{"file_path": "site.yml"})
	assert.False(t, isErr)
	assert.Contains(t, text, "Found 1 result(s):")
	assert.Contains(t, text, "target: vars/web.yml")

	require.Len(t, store.queries, 1)
	assert.NotContains(t, store.queries[0], "site.yml", "user input must travel as a parameter")
	assert.Equal(t, "site.yml", store.params[0]["path"])
	assert.Equal(t, "infra", store.params[0]["repository"])
}

func TestPathInputsAreSanitized(t *testing.T) {
	s := newTestServer(&fakeQuerier{}, "")
	require.NoError(t, s.Session().SetRepository("infra"))

	text, isErr := callText(t, s, "analyze_playbook", map[string]any{"playbook_path": "../../etc/passwd"})
	assert.True(t, isErr)
	assert.Contains(t, text, "Path traversal detected")

	text, isErr = callText(t, s, "find_template_usage", map[string]any{"template_path": "tpl\x00.j2"})
	assert.True(t, isErr)
	assert.Contains(t, text, "Null byte in path")
}

func TestGetRoleUsageIgnoresRepositoryContext(t *testing.T) {
	store := &fakeQuerier{rows: []map[string]any{
		{"repository": "infra", "play": "web", "playbook": "site.yml", "role_params": nil},
		{"repository": "staging", "play": "web", "playbook": "site.yml", "role_params": nil},
	}}
	s := newTestServer(store, "")

	text, isErr := callText(t, s, "get_role_usage", map[string]any{"role_name": "nginx"})
	assert.False(t, isErr)
	assert.Contains(t, text, "Found 2 result(s):")

	require.Len(t, store.params, 1)
	assert.NotContains(t, store.params[0], "repository", "roles are global")
}

func TestQueryCodebaseRunsValidatedCypher(t *testing.T) {
	store := &fakeQuerier{rows: []map[string]any{
		{"task": "Render config"},
	}}
	s := newTestServer(store, "MATCH (t:Task) RETURN t.name AS task LIMIT 10")

	text, isErr := callText(t, s, "query_codebase", map[string]any{"question": "what tasks exist?"})
	assert.False(t, isErr)
	assert.Contains(t, text, "task: Render config")

	require.Len(t, store.queries, 1)
	assert.Equal(t, "MATCH (t:Task) RETURN t.name AS task LIMIT 10", store.queries[0])
}

func TestQueryCodebaseRejectsMutatingCypher(t *testing.T) {
	store := &fakeQuerier{}
	s := newTestServer(store, "MATCH (n) DELETE n")

	text, isErr := callText(t, s, "query_codebase", map[string]any{"question": "drop everything"})
	assert.True(t, isErr)
	assert.Contains(t, text, "Forbidden: DELETE operations")
	assert.Empty(t, store.queries, "rejected queries never reach the store")
}

func TestQueryCodebaseRejectsUnknownLabels(t *testing.T) {
	store := &fakeQuerier{}
	s := newTestServer(store, "MATCH (n:Widget) RETURN n LIMIT 5")

	text, isErr := callText(t, s, "query_codebase", map[string]any{"question": "widgets?"})
	assert.True(t, isErr)
	assert.Contains(t, text, "Unknown node labels")
	assert.Empty(t, store.queries)
}

func TestQueryWithRAGIncludesCypher(t *testing.T) {
	store := &fakeQuerier{rows: []map[string]any{{"task": "x"}}}
	s := newTestServer(store, "MATCH (t:Task) RETURN t.name AS task LIMIT 5")

	text, isErr := callText(t, s, "query_with_rag", map[string]any{
		"question":       "tasks?",
		"include_cypher": true,
	})
	assert.False(t, isErr)
	assert.True(t, strings.HasPrefix(text, "Cypher: MATCH (t:Task)"), "got %q", text)
}

func TestFormatRows(t *testing.T) {
	assert.Equal(t, "No results found.", formatRows(nil))

	long := strings.Repeat("x", 150)
	got := formatRows([]map[string]any{
		{"b": long, "a": int64(7)},
	})
	assert.Contains(t, got, "Found 1 result(s):")
	assert.Contains(t, got, "a: 7")
	assert.Contains(t, got, strings.Repeat("x", 100)+"...")
	assert.NotContains(t, got, strings.Repeat("x", 101))

	got = formatRows([]map[string]any{
		{"names": []any{"web", "db"}},
	})
	assert.Contains(t, got, "names: [web, db]")
}

func TestHealthEndpoint(t *testing.T) {
	h := NewHTTPServer(config.Default().Server, &fakeQuerier{},
		translate.NewWithCompleter(fixedCompleter{}), "", nil)

	rec := httptest.NewRecorder()
	h.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, 200, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := config.Default().Server
	cfg.RateLimitPerMinute = 10
	cfg.RateLimitBurst = 2
	h := NewHTTPServer(cfg, &fakeQuerier{}, translate.NewWithCompleter(fixedCompleter{}), "", nil)
	limited := h.rateLimit(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(200)
	}))

	req := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/sse", nil)
		r.RemoteAddr = "192.0.2.1:1234"
		limited.ServeHTTP(rec, r)
		return rec
	}

	for i := 0; i < 2; i++ {
		rec := req()
		assert.Equal(t, 200, rec.Code, "request %d within burst", i+1)
		assert.Equal(t, "10", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := req()
	assert.Equal(t, 429, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Refusals are machine-readable JSON, not plain text.
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "rate limit exceeded", body["error"])
	retryAfter, ok := body["retry_after"].(float64)
	require.True(t, ok, "retry_after is numeric, got %T", body["retry_after"])
	assert.GreaterOrEqual(t, retryAfter, float64(1))
}

func TestRateLimitHealthExempt(t *testing.T) {
	cfg := config.Default().Server
	cfg.RateLimitPerMinute = 1
	cfg.RateLimitBurst = 1
	h := NewHTTPServer(cfg, &fakeQuerier{}, translate.NewWithCompleter(fixedCompleter{}), "", nil)
	handler := h.Handler()

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
		assert.Equal(t, 200, rec.Code)
	}
}
