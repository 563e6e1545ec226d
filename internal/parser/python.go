package parser

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// PyFunction is one function or method definition.
type PyFunction struct {
	Name       string
	Params     []string
	Decorators []string
	Docstring  string
	IsAsync    bool
	Class      string // enclosing class name, "" for module-level
	Line       int
}

// PyClass is one class definition.
type PyClass struct {
	Name       string
	Bases      []string
	Decorators []string
	Docstring  string
	Line       int
}

// PyImport is one import statement.
type PyImport struct {
	Module string
	Alias  string
	From   bool
	Names  []string
}

// PythonFile is the typed parse result for a Python source file.
type PythonFile struct {
	Docstring string
	Functions []PyFunction
	Classes   []PyClass
	Imports   []PyImport
}

// Regex fallback for Python. A real AST walk would resolve nesting and
// string literals precisely; this line scanner is the documented-inferior
// alternative that needs no grammar.
var (
	pyDefRe       = regexp.MustCompile(`^(\s*)(async\s+)?def\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(([^)]*)`)
	pyClassRe     = regexp.MustCompile(`^(\s*)class\s+([A-Za-z_][A-Za-z0-9_]*)\s*(?:\(([^)]*)\))?\s*:`)
	pyImportRe    = regexp.MustCompile(`^import\s+([A-Za-z_][A-Za-z0-9_.]*)(?:\s+as\s+([A-Za-z_][A-Za-z0-9_]*))?`)
	pyFromRe      = regexp.MustCompile(`^from\s+([A-Za-z_.][A-Za-z0-9_.]*)\s+import\s+(.+)`)
	pyDecoratorRe = regexp.MustCompile(`^\s*@([A-Za-z_][A-Za-z0-9_.]*)`)
	pyDocstringRe = regexp.MustCompile(`^\s*(?:'''|""")(.*?)(?:'''|""")?\s*$`)
)

// inventoryFunctions are names that mark a script as a dynamic Ansible
// inventory.
var inventoryFunctions = map[string]bool{
	"get_inventory":  true,
	"parse_cli_args": true,
	"list_inventory": true,
	"host_inventory": true,
}

// ParsePython scans a Python file for module structure: docstring,
// classes, functions, and imports.
func ParsePython(path string) *Result {
	r := newResult(path, "python")

	data, err := os.ReadFile(path)
	if err != nil {
		return r.addError(fmt.Errorf("failed to read file: %w", err))
	}

	pf := scanPython(string(data))
	r.Root = pf

	isInventory := false
	for _, fn := range pf.Functions {
		if inventoryFunctions[fn.Name] {
			isInventory = true
			break
		}
	}
	r.Metadata["is_inventory_script"] = isInventory
	return r
}

func scanPython(content string) *PythonFile {
	pf := &PythonFile{}
	lines := strings.Split(content, "\n")

	var pendingDecorators []string
	currentClass := ""
	classIndent := -1

	for i, line := range lines {
		if m := pyDecoratorRe.FindStringSubmatch(line); m != nil {
			pendingDecorators = append(pendingDecorators, m[1])
			continue
		}

		if m := pyClassRe.FindStringSubmatch(line); m != nil {
			indent := len(m[1])
			cls := PyClass{
				Name:       m[2],
				Bases:      splitArgs(m[3]),
				Decorators: pendingDecorators,
				Docstring:  docstringAfter(lines, i),
				Line:       i + 1,
			}
			pf.Classes = append(pf.Classes, cls)
			currentClass = m[2]
			classIndent = indent
			pendingDecorators = nil
			continue
		}

		if m := pyDefRe.FindStringSubmatch(line); m != nil {
			indent := len(m[1])
			class := ""
			if currentClass != "" && indent > classIndent {
				class = currentClass
			} else if indent <= classIndent {
				currentClass = ""
				classIndent = -1
			}
			fn := PyFunction{
				Name:       m[3],
				Params:     splitArgs(m[4]),
				Decorators: pendingDecorators,
				Docstring:  docstringAfter(lines, i),
				IsAsync:    m[2] != "",
				Class:      class,
				Line:       i + 1,
			}
			pf.Functions = append(pf.Functions, fn)
			pendingDecorators = nil
			continue
		}

		pendingDecorators = nil

		if m := pyImportRe.FindStringSubmatch(line); m != nil {
			pf.Imports = append(pf.Imports, PyImport{Module: m[1], Alias: m[2]})
			continue
		}
		if m := pyFromRe.FindStringSubmatch(line); m != nil {
			names := splitArgs(strings.TrimSuffix(strings.TrimPrefix(m[2], "("), ")"))
			pf.Imports = append(pf.Imports, PyImport{Module: m[1], From: true, Names: names})
			continue
		}

		// A top-level non-blank statement resets class tracking.
		if len(line) > 0 && !strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "\t") &&
			!strings.HasPrefix(strings.TrimSpace(line), "#") {
			currentClass = ""
			classIndent = -1
		}
	}

	pf.Docstring = docstringAfter(lines, -1)
	return pf
}

// docstringAfter returns the one-line docstring following a definition at
// line index i, if present. Multi-line docstrings yield their first line.
func docstringAfter(lines []string, i int) string {
	for j := i + 1; j < len(lines) && j <= i+3; j++ {
		trimmed := strings.TrimSpace(lines[j])
		if trimmed == "" {
			continue
		}
		if m := pyDocstringRe.FindStringSubmatch(lines[j]); m != nil {
			return strings.TrimSpace(m[1])
		}
		return ""
	}
	return ""
}

func splitArgs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		name := strings.TrimSpace(p)
		// Drop default values and annotations.
		if idx := strings.IndexAny(name, "=:"); idx >= 0 {
			name = strings.TrimSpace(name[:idx])
		}
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}
