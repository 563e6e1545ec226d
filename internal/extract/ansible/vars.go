package ansible

import (
	"strings"

	"github.com/repograph/repograph-go/internal/extract"
	"github.com/repograph/repograph-go/internal/parser"
)

// variableScope derives a variable's scope from where its file lives.
func variableScope(path string) string {
	switch {
	case strings.Contains(path, "group_vars/"):
		return "group_vars"
	case strings.Contains(path, "host_vars/"):
		return "host_vars"
	case strings.Contains(path, "defaults/"):
		return "defaults"
	case strings.Contains(path, "vars/"):
		return "vars"
	default:
		return "unknown"
	}
}

// extractVarsFile emits the VarsFile node and one Variable per top-level
// key.
func extractVarsFile(fi extract.FileInfo, result *parser.Result, fr *fileRecords) {
	doc, ok := result.Root.(map[string]interface{})
	if !ok {
		return
	}

	scope := variableScope(fi.Path)

	fr.addEntity("VarsFile", map[string]interface{}{
		"path":  fi.Path,
		"scope": scope,
	})
	varsEP := endpoint("VarsFile", "path", fi.Path)
	fr.addEdge("IN_FILE", varsEP, endpoint("File", "path", fi.Path), nil)

	for name, value := range doc {
		fr.addEntity("Variable", map[string]interface{}{
			"name":      name,
			"scope":     scope,
			"file_path": fi.Path,
			"value":     jsonValue(value, maxVariableValue),
		})
		fr.addEdge("DEFINES_VAR", varsEP, endpoint("Variable", "name", name), nil)
	}
}

// extractRequirements emits Role nodes from a galaxy requirements file.
func extractRequirements(fi extract.FileInfo, result *parser.Result, fr *fileRecords) {
	var entries []interface{}

	switch doc := result.Root.(type) {
	case []interface{}:
		entries = doc
	case map[string]interface{}:
		if roles, ok := doc["roles"].([]interface{}); ok {
			entries = roles
		}
	}

	for _, item := range entries {
		var name, src, version string
		switch v := item.(type) {
		case string:
			name = v
		case map[string]interface{}:
			name, _ = v["name"].(string)
			src, _ = v["src"].(string)
			version, _ = v["version"].(string)
			if name == "" {
				name = src
			}
		}
		if name == "" {
			continue
		}

		props := map[string]interface{}{
			"name":   name,
			"source": "galaxy",
		}
		if src != "" {
			props["source"] = src
		}
		if version != "" {
			props["version"] = version
		}
		// galaxy names are <namespace>.<role>
		if idx := strings.Index(name, "."); idx > 0 {
			props["namespace"] = name[:idx]
		}
		fr.addEntity("Role", props)
		fr.addEdge("IN_FILE",
			endpoint("Role", "name", name),
			endpoint("File", "path", fi.Path),
			nil)
	}
}
