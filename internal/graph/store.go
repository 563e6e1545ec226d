// Package graph persists extracted entities and edges into Neo4j and
// exposes the read/write gateway the query tools run through.
package graph

import "context"

// Store is the minimal surface the Builder and the query tools need
// from the graph database.
type Store interface {
	ExecuteRead(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)
	ExecuteWrite(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)
}

// mergeKeys maps each node kind to its composite identity. Every kind
// except Role is scoped by repository; Role nodes are global so that
// cross-repository role usage stays queryable.
var mergeKeys = map[string][]string{
	"File":      {"repository", "path"},
	"Playbook":  {"repository", "path"},
	"Template":  {"repository", "path"},
	"Inventory": {"repository", "path"},
	"VarsFile":  {"repository", "path"},
	"Directory": {"repository", "path"},
	"Module":    {"repository", "path"},
	"Play":      {"repository", "playbook_path", "name", "order"},
	"Task":      {"repository", "file_path", "name", "order"},
	"Handler":   {"repository", "file_path", "name"},
	"Variable":  {"repository", "name", "scope", "file_path"},
	"Class":     {"repository", "name"},
	"Function":  {"repository", "name"},
	"Import":    {"repository", "module", "alias"},
	"Role":      {"name"},
}

// MergeKey returns the composite merge key for a node kind. Kinds
// without a declared key fall back to (repository, name).
func MergeKey(kind string) []string {
	if keys, ok := mergeKeys[kind]; ok {
		return keys
	}
	return []string{"repository", "name"}
}
