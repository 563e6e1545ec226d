package parser

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ansibleKeywords are task-level directives that are never the module
// name. The module is the first remaining key of a task mapping.
var ansibleKeywords = map[string]bool{
	"name":          true,
	"when":          true,
	"with_items":    true,
	"loop":          true,
	"register":      true,
	"notify":        true,
	"tags":          true,
	"become":        true,
	"become_user":   true,
	"changed_when":  true,
	"failed_when":   true,
	"ignore_errors": true,
	"delegate_to":   true,
	"vars":          true,
	"environment":   true,
	"args":          true,
	"until":         true,
	"retries":       true,
	"delay":         true,
}

// playKeys mark a mapping as an Ansible play.
var playKeys = []string{"hosts", "tasks", "roles", "plays"}

// ParseYAML parses a YAML document and classifies it as a playbook, a
// vars file, a galaxy requirements file, or a bare task list.
func ParseYAML(path string) *Result {
	r := newResult(path, "yaml")

	data, err := os.ReadFile(path)
	if err != nil {
		return r.addError(fmt.Errorf("failed to read file: %w", err))
	}

	var root interface{}
	if err := yaml.Unmarshal(data, &root); err != nil {
		return r.addError(fmt.Errorf("invalid yaml: %w", err))
	}
	r.Root = root

	switch doc := root.(type) {
	case []interface{}:
		if looksLikePlaybook(doc) {
			r.Metadata["is_playbook"] = true
		} else if looksLikeRequirementsList(doc) {
			r.Metadata["is_requirements"] = true
		} else if looksLikeTaskList(doc) {
			r.Metadata["is_task_list"] = true
		}
	case map[string]interface{}:
		if _, ok := doc["roles"]; ok {
			r.Metadata["is_requirements"] = true
		} else if _, ok := doc["collections"]; ok {
			r.Metadata["is_requirements"] = true
		} else {
			r.Metadata["is_vars_file"] = true
		}
	}
	return r
}

func looksLikePlaybook(doc []interface{}) bool {
	for _, item := range doc {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		for _, key := range playKeys {
			if _, present := m[key]; present {
				return true
			}
		}
	}
	return false
}

// requirementKeys are the fields of a galaxy requirements entry. An item
// with any other key is not a requirement.
var requirementKeys = map[string]bool{
	"name": true, "src": true, "version": true, "scm": true, "include": true,
}

func looksLikeRequirementsList(doc []interface{}) bool {
	for _, item := range doc {
		m, ok := item.(map[string]interface{})
		if !ok {
			return false
		}
		_, hasName := m["name"]
		_, hasSrc := m["src"]
		if !hasName && !hasSrc {
			return false
		}
		for key := range m {
			if !requirementKeys[key] {
				return false
			}
		}
	}
	return len(doc) > 0
}

func looksLikeTaskList(doc []interface{}) bool {
	for _, item := range doc {
		m, ok := item.(map[string]interface{})
		if !ok {
			return false
		}
		if TaskModule(m) == "" {
			return false
		}
	}
	return len(doc) > 0
}

// TaskModule returns the module invoked by a task mapping: the first key
// that is not a task-level directive. Returns "" when none is found.
func TaskModule(task map[string]interface{}) string {
	// yaml maps are unordered in Go; prefer the deterministic choice of
	// the lexically-first non-keyword key.
	module := ""
	for key := range task {
		if ansibleKeywords[key] {
			continue
		}
		if module == "" || key < module {
			module = key
		}
	}
	return module
}
