package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/repograph/repograph-go/internal/guard"
)

// Version is reported in the MCP handshake.
const Version = "1.0.0"

// Querier is the read surface the tools need from the graph store.
type Querier interface {
	ExecuteRead(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)
	ListNodeLabels(ctx context.Context) ([]string, error)
	ListRelationshipTypes(ctx context.Context) ([]string, error)
}

// Translator turns questions into Cypher.
type Translator interface {
	Translate(ctx context.Context, question, repositoryID string, labels, relationshipTypes []string) (string, error)
	Breaker() *guard.Breaker
}

// Server wires the tool set onto one MCP server instance. Each client
// connection gets its own Server and therefore its own Session.
type Server struct {
	mcp        *sdk.Server
	store      Querier
	translator Translator
	session    *Session
	handlers   map[string]sdk.ToolHandler
}

// NewServer registers every tool on a fresh MCP server.
func NewServer(store Querier, translator Translator, defaultRepository string) *Server {
	s := &Server{
		store:      store,
		translator: translator,
		session:    NewSession(defaultRepository),
		handlers:   make(map[string]sdk.ToolHandler),
	}
	s.mcp = sdk.NewServer(
		&sdk.Implementation{Name: "repograph", Version: Version},
		&sdk.ServerOptions{},
	)
	s.registerTools()
	return s
}

// MCPServer returns the underlying SDK server for transport binding.
func (s *Server) MCPServer() *sdk.Server {
	return s.mcp
}

// Session returns the connection's repository context.
func (s *Server) Session() *Session {
	return s.session
}

func (s *Server) addTool(tool *sdk.Tool, handler sdk.ToolHandler) {
	s.mcp.AddTool(tool, handler)
	s.handlers[tool.Name] = handler
}

// CallTool invokes a handler directly by name, bypassing the
// transport. Used by tests and the CLI.
func (s *Server) CallTool(ctx context.Context, name string, argsJSON json.RawMessage) (*sdk.CallToolResult, error) {
	handler, ok := s.handlers[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
	if len(argsJSON) == 0 {
		argsJSON = json.RawMessage(`{}`)
	}
	return handler(ctx, &sdk.CallToolRequest{
		Params: &sdk.CallToolParamsRaw{Name: name, Arguments: argsJSON},
	})
}

// ToolNames lists the registered tools in sorted order.
func (s *Server) ToolNames() []string {
	names := make([]string, 0, len(s.handlers))
	for name := range s.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Server) registerTools() {
	s.addTool(&sdk.Tool{
		Name: "set_repository_context",
		Description: "Set the active repository for this session. All repository-scoped tools " +
			"filter by this id until it is changed. Idempotent.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"repository_id": {
					"type": "string",
					"description": "Repository identifier used at indexing time (letters, digits, underscore, hyphen)"
				}
			},
			"required": ["repository_id"]
		}`),
	}, s.handleSetRepositoryContext)

	s.addTool(&sdk.Tool{
		Name: "query_codebase",
		Description: "Answer a natural-language question about the indexed codebase. The question is " +
			"translated into a read-only Cypher query against the live graph schema, validated, and executed.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"question": {
					"type": "string",
					"description": "Natural-language question, e.g. 'which tasks restart nginx?'"
				},
				"repository_id": {
					"type": "string",
					"description": "Repository to query. Defaults to the session context."
				}
			},
			"required": ["question"]
		}`),
	}, s.handleQueryCodebase)

	s.addTool(&sdk.Tool{
		Name: "query_with_rag",
		Description: "Answer a question using the graph-backed retrieval path. Falls back to " +
			"query_codebase translation when no retrieval pipeline is configured.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"question": {
					"type": "string",
					"description": "Natural-language question"
				},
				"include_cypher": {
					"type": "boolean",
					"description": "Include the generated Cypher query in the response"
				}
			},
			"required": ["question"]
		}`),
	}, s.handleQueryWithRAG)

	s.addTool(&sdk.Tool{
		Name: "find_dependencies",
		Description: "List what a file depends on: included playbooks, imported modules, and loaded " +
			"vars files, scoped to the active repository.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"file_path": {
					"type": "string",
					"description": "Repository-relative file path, e.g. 'site.yml'"
				}
			},
			"required": ["file_path"]
		}`),
	}, s.handleFindDependencies)

	s.addTool(&sdk.Tool{
		Name: "trace_variable",
		Description: "Show where a variable is defined and where it is used, across vars files, " +
			"plays, tasks, and templates in the active repository.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"variable_name": {
					"type": "string",
					"description": "Variable name, e.g. 'http_port'"
				}
			},
			"required": ["variable_name"]
		}`),
	}, s.handleTraceVariable)

	s.addTool(&sdk.Tool{
		Name: "get_role_usage",
		Description: "List every play that uses a role, grouped by repository. Roles are global, " +
			"so this tool ignores the session repository context.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"role_name": {
					"type": "string",
					"description": "Role name, e.g. 'geerlingguy.nginx'"
				}
			},
			"required": ["role_name"]
		}`),
	}, s.handleGetRoleUsage)

	s.addTool(&sdk.Tool{
		Name:        "analyze_playbook",
		Description: "Summarize a playbook: play count, task count, and play names.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"playbook_path": {
					"type": "string",
					"description": "Repository-relative playbook path, e.g. 'site.yml'"
				}
			},
			"required": ["playbook_path"]
		}`),
	}, s.handleAnalyzePlaybook)

	s.addTool(&sdk.Tool{
		Name:        "find_tasks_by_module",
		Description: "Find tasks that use a given Ansible module in the active repository.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"module_name": {
					"type": "string",
					"description": "Module name, e.g. 'template', 'service', 'command'"
				}
			},
			"required": ["module_name"]
		}`),
	}, s.handleFindTasksByModule)

	s.addTool(&sdk.Tool{
		Name: "get_task_hierarchy",
		Description: "Enumerate a playbook's plays and tasks in execution order " +
			"(play order, then task order).",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"playbook_path": {
					"type": "string",
					"description": "Repository-relative playbook path"
				}
			},
			"required": ["playbook_path"]
		}`),
	}, s.handleGetTaskHierarchy)

	s.addTool(&sdk.Tool{
		Name: "find_template_usage",
		Description: "Show which tasks render a template and which variables the template " +
			"interpolates.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"template_path": {
					"type": "string",
					"description": "Repository-relative template path, e.g. 'templates/nginx.conf.j2' or the task's src value"
				}
			},
			"required": ["template_path"]
		}`),
	}, s.handleFindTemplateUsage)
}
