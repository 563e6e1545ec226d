package parser

import (
	"fmt"
	"os"
	"regexp"
	"sort"
)

// Regex fallback for Jinja2. Inferior to a real template AST but
// sufficient for variable and structure discovery.
var (
	jinjaVariableRe = regexp.MustCompile(`\{\{-?\s*([a-zA-Z_][a-zA-Z0-9_]*)`)
	jinjaFilterRe   = regexp.MustCompile(`\|\s*([a-zA-Z_][a-zA-Z0-9_]*)`)
	jinjaBlockRe    = regexp.MustCompile(`\{%-?\s*block\s+([a-zA-Z_][a-zA-Z0-9_]*)`)
	jinjaIncludeRe  = regexp.MustCompile(`\{%-?\s*(?:include|import|from)\s+['"]([^'"]+)['"]`)
	jinjaMacroRe    = regexp.MustCompile(`\{%-?\s*macro\s+([a-zA-Z_][a-zA-Z0-9_]*)`)
	jinjaForVarRe   = regexp.MustCompile(`\{%-?\s*for\s+([a-zA-Z_][a-zA-Z0-9_]*)`)
)

// ParseJinja scans a Jinja2 template for variables, filters, blocks,
// includes, and macros.
func ParseJinja(path string) *Result {
	r := newResult(path, "jinja")

	data, err := os.ReadFile(path)
	if err != nil {
		return r.addError(fmt.Errorf("failed to read file: %w", err))
	}
	content := string(data)
	r.Root = content

	// Loop variables are template-local, not Ansible variables.
	loopVars := make(map[string]bool)
	for _, m := range jinjaForVarRe.FindAllStringSubmatch(content, -1) {
		loopVars[m[1]] = true
	}

	variables := uniqueMatches(jinjaVariableRe, content)
	filtered := variables[:0]
	for _, v := range variables {
		if !loopVars[v] {
			filtered = append(filtered, v)
		}
	}

	r.Metadata["variables"] = filtered
	r.Metadata["filters"] = uniqueMatches(jinjaFilterRe, content)
	r.Metadata["blocks"] = uniqueMatches(jinjaBlockRe, content)
	r.Metadata["includes"] = uniqueMatches(jinjaIncludeRe, content)
	r.Metadata["macros"] = uniqueMatches(jinjaMacroRe, content)
	return r
}

func uniqueMatches(re *regexp.Regexp, content string) []string {
	seen := make(map[string]bool)
	for _, m := range re.FindAllStringSubmatch(content, -1) {
		seen[m[1]] = true
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
