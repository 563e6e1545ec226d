package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/repograph/repograph-go/internal/errors"
	"github.com/repograph/repograph-go/internal/guard"
	"github.com/repograph/repograph-go/internal/logging"
	"github.com/repograph/repograph-go/internal/validate"
)

func (s *Server) handleSetRepositoryContext(_ context.Context, req *sdk.CallToolRequest) (*sdk.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	id := stringArg(args, "repository_id")
	if err := s.session.SetRepository(id); err != nil {
		return toolError(err), nil
	}
	return textResult(fmt.Sprintf("Repository context set to '%s'.", id)), nil
}

func (s *Server) handleQueryCodebase(ctx context.Context, req *sdk.CallToolRequest) (*sdk.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	question := stringArg(args, "question")

	repositoryID := stringArg(args, "repository_id")
	if repositoryID == "" {
		repositoryID = s.session.Repository()
	}

	text, _, err := s.answerQuestion(ctx, question, repositoryID)
	if err != nil {
		return toolError(err), nil
	}
	return textResult(text), nil
}

func (s *Server) handleQueryWithRAG(ctx context.Context, req *sdk.CallToolRequest) (*sdk.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	question := stringArg(args, "question")
	includeCypher := boolArg(args, "include_cypher")

	// No separate retrieval pipeline is wired in; the translation path
	// is the retrieval path.
	repo := s.session.Repository()
	if repo != "" {
		question = fmt.Sprintf("[Repository: %s] %s", repo, question)
	}
	text, cypher, err := s.answerQuestion(ctx, question, repo)
	if err != nil {
		return toolError(err), nil
	}
	if includeCypher {
		text = fmt.Sprintf("Cypher: %s\n\n%s", cypher, text)
	}
	return textResult(text), nil
}

// answerQuestion is the translate → validate → execute pipeline shared
// by the question tools. It returns the formatted rows and the query
// that produced them.
func (s *Server) answerQuestion(ctx context.Context, question, repositoryID string) (string, string, error) {
	labels, err := s.store.ListNodeLabels(ctx)
	if err != nil {
		return "", "", err
	}
	relTypes, err := s.store.ListRelationshipTypes(ctx)
	if err != nil {
		return "", "", err
	}

	cypher, err := s.translator.Translate(ctx, question, repositoryID, labels, relTypes)
	if err != nil {
		return "", "", err
	}

	result := validate.New(labels, relTypes).Validate(cypher)
	if !result.Valid {
		return "", "", errors.UserInputf(
			"generated query was rejected: %s", strings.Join(result.Errors, "; "))
	}
	for _, w := range result.Warnings {
		logging.Debug("query warning", "warning", w, "cypher", cypher)
	}

	rows, err := s.store.ExecuteRead(ctx, cypher, nil)
	if err != nil {
		return "", "", err
	}
	return formatRows(rows), cypher, nil
}

// Deterministic tool templates. Every user-supplied value travels as a
// query parameter, never by interpolation.

func (s *Server) handleFindDependencies(ctx context.Context, req *sdk.CallToolRequest) (*sdk.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	path, err := sanitizedPathArg(args, "file_path")
	if err != nil {
		return toolError(err), nil
	}
	repo, err := s.requireRepository()
	if err != nil {
		return toolError(err), nil
	}

	rows, err := s.store.ExecuteRead(ctx, `
		MATCH (f:File {repository: $repository, path: $path})-[r:INCLUDES|IMPORTS|LOADS_VARS]->(dep)
		RETURN type(r) AS relationship, labels(dep)[0] AS kind,
		       coalesce(dep.path, dep.name) AS target
		ORDER BY relationship, target
		LIMIT 100`,
		map[string]any{"repository": repo, "path": path})
	if err != nil {
		return toolError(err), nil
	}
	return textResult(formatRows(rows)), nil
}

func (s *Server) handleTraceVariable(ctx context.Context, req *sdk.CallToolRequest) (*sdk.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	name := stringArg(args, "variable_name")
	if name == "" {
		return errResult("variable_name is required"), nil
	}
	repo, err := s.requireRepository()
	if err != nil {
		return toolError(err), nil
	}

	rows, err := s.store.ExecuteRead(ctx, `
		MATCH (v:Variable {repository: $repository, name: $name})
		OPTIONAL MATCH (definer)-[:DEFINES_VAR]->(v)
		OPTIONAL MATCH (user)-[:USES_VAR]->(v)
		RETURN v.scope AS scope, v.file_path AS file_path,
		       collect(DISTINCT coalesce(definer.name, definer.path)) AS defined_by,
		       collect(DISTINCT coalesce(user.name, user.path)) AS used_by
		ORDER BY scope, file_path
		LIMIT 100`,
		map[string]any{"repository": repo, "name": name})
	if err != nil {
		return toolError(err), nil
	}
	return textResult(formatRows(rows)), nil
}

func (s *Server) handleGetRoleUsage(ctx context.Context, req *sdk.CallToolRequest) (*sdk.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	name := stringArg(args, "role_name")
	if name == "" {
		return errResult("role_name is required"), nil
	}

	// Role nodes are global; usage spans repositories by design.
	rows, err := s.store.ExecuteRead(ctx, `
		MATCH (p)-[u:USES_ROLE]->(r:Role {name: $name})
		RETURN p.repository AS repository, p.name AS play,
		       p.playbook_path AS playbook, u.role_params AS role_params
		ORDER BY repository, playbook, play
		LIMIT 100`,
		map[string]any{"name": name})
	if err != nil {
		return toolError(err), nil
	}
	return textResult(formatRows(rows)), nil
}

func (s *Server) handleAnalyzePlaybook(ctx context.Context, req *sdk.CallToolRequest) (*sdk.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	path, err := sanitizedPathArg(args, "playbook_path")
	if err != nil {
		return toolError(err), nil
	}
	repo, err := s.requireRepository()
	if err != nil {
		return toolError(err), nil
	}

	rows, err := s.store.ExecuteRead(ctx, `
		MATCH (pb:Playbook {repository: $repository, path: $path})
		OPTIONAL MATCH (pb)-[:HAS_PLAY]->(p:Play)
		OPTIONAL MATCH (p)-[:HAS_TASK]->(t:Task)
		RETURN pb.path AS playbook,
		       count(DISTINCT p) AS play_count,
		       count(DISTINCT t) AS task_count,
		       collect(DISTINCT p.name) AS play_names
		LIMIT 100`,
		map[string]any{"repository": repo, "path": path})
	if err != nil {
		return toolError(err), nil
	}
	return textResult(formatRows(rows)), nil
}

func (s *Server) handleFindTasksByModule(ctx context.Context, req *sdk.CallToolRequest) (*sdk.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	module := stringArg(args, "module_name")
	if module == "" {
		return errResult("module_name is required"), nil
	}
	repo, err := s.requireRepository()
	if err != nil {
		return toolError(err), nil
	}

	rows, err := s.store.ExecuteRead(ctx, `
		MATCH (t:Task {repository: $repository, module: $module})
		RETURN t.name AS task, t.file_path AS file_path, t.order AS task_order
		ORDER BY file_path, task_order
		LIMIT 100`,
		map[string]any{"repository": repo, "module": module})
	if err != nil {
		return toolError(err), nil
	}
	return textResult(formatRows(rows)), nil
}

func (s *Server) handleGetTaskHierarchy(ctx context.Context, req *sdk.CallToolRequest) (*sdk.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	path, err := sanitizedPathArg(args, "playbook_path")
	if err != nil {
		return toolError(err), nil
	}
	repo, err := s.requireRepository()
	if err != nil {
		return toolError(err), nil
	}

	rows, err := s.store.ExecuteRead(ctx, `
		MATCH (pb:Playbook {repository: $repository, path: $path})-[:HAS_PLAY]->(p:Play)
		OPTIONAL MATCH (p)-[:HAS_TASK]->(t:Task)
		RETURN p.order AS play_order, p.name AS play,
		       t.order AS task_order, t.name AS task, t.module AS module
		ORDER BY play_order, task_order
		LIMIT 1000`,
		map[string]any{"repository": repo, "path": path})
	if err != nil {
		return toolError(err), nil
	}
	return textResult(formatRows(rows)), nil
}

func (s *Server) handleFindTemplateUsage(ctx context.Context, req *sdk.CallToolRequest) (*sdk.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	path, err := sanitizedPathArg(args, "template_path")
	if err != nil {
		return toolError(err), nil
	}
	repo, err := s.requireRepository()
	if err != nil {
		return toolError(err), nil
	}

	rows, err := s.store.ExecuteRead(ctx, `
		MATCH (tpl:Template {repository: $repository, path: $path})
		OPTIONAL MATCH (t:Task)-[:USES_TEMPLATE]->(tpl)
		OPTIONAL MATCH (tpl)-[:USES_VAR]->(v:Variable)
		RETURN tpl.path AS template,
		       collect(DISTINCT t.name) AS used_by_tasks,
		       collect(DISTINCT v.name) AS variables
		LIMIT 100`,
		map[string]any{"repository": repo, "path": path})
	if err != nil {
		return toolError(err), nil
	}
	return textResult(formatRows(rows)), nil
}

// requireRepository returns the session repository or a user-facing
// error telling the caller how to set one.
func (s *Server) requireRepository() (string, error) {
	repo := s.session.Repository()
	if repo == "" {
		return "", errors.UserInputf(
			"no repository context set; call set_repository_context first")
	}
	return repo, nil
}

// sanitizedPathArg extracts a required path argument and runs it
// through the path sanitizer.
func sanitizedPathArg(args map[string]any, key string) (string, error) {
	raw := stringArg(args, key)
	if raw == "" {
		return "", errors.UserInputf("%s is required", key)
	}
	return guard.SanitizePath(raw, "")
}

func parseArgs(req *sdk.CallToolRequest) (map[string]any, error) {
	if len(req.Params.Arguments) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(req.Params.Arguments, &m); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	return m, nil
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func boolArg(args map[string]any, key string) bool {
	v, _ := args[key].(bool)
	return v
}
