// Package parser contains the syntactic file parsers used by the
// extractors. Parsers are pure with respect to the graph store: they read
// one file and return typed metadata, reporting failures as error records
// rather than raising them.
package parser

import (
	"path/filepath"
	"strings"
)

// Result is the outcome of parsing one file.
type Result struct {
	Path     string
	Language string
	Root     interface{}
	Errors   []string
	Metadata map[string]interface{}
}

// IsSuccess reports whether the file parsed without errors.
func (r *Result) IsSuccess() bool {
	return len(r.Errors) == 0
}

func newResult(path, language string) *Result {
	return &Result{
		Path:     path,
		Language: language,
		Metadata: make(map[string]interface{}),
	}
}

func (r *Result) addError(err error) *Result {
	r.Errors = append(r.Errors, err.Error())
	return r
}

// MetaString returns a string metadata entry, or "" when absent.
func (r *Result) MetaString(key string) string {
	if v, ok := r.Metadata[key].(string); ok {
		return v
	}
	return ""
}

// MetaBool returns a bool metadata entry, or false when absent.
func (r *Result) MetaBool(key string) bool {
	if v, ok := r.Metadata[key].(bool); ok {
		return v
	}
	return false
}

// MetaStrings returns a string-slice metadata entry, or nil when absent.
func (r *Result) MetaStrings(key string) []string {
	if v, ok := r.Metadata[key].([]string); ok {
		return v
	}
	return nil
}

// DetectLanguage returns the parser language for a path, or "" when no
// parser applies.
func DetectLanguage(path string) string {
	base := filepath.Base(path)
	if base == "Vagrantfile" {
		return "ruby"
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return "yaml"
	case ".j2", ".jinja", ".jinja2":
		return "jinja"
	case ".py":
		return "python"
	case ".rb":
		return "ruby"
	default:
		return ""
	}
}

// Parse dispatches to the language parser for the path. Unsupported files
// return a result with an error record.
func Parse(path string) *Result {
	switch DetectLanguage(path) {
	case "yaml":
		return ParseYAML(path)
	case "jinja":
		return ParseJinja(path)
	case "python":
		return ParsePython(path)
	case "ruby":
		return ParseRuby(path)
	default:
		r := newResult(path, "")
		r.Errors = append(r.Errors, "unsupported file type: "+path)
		return r
	}
}
