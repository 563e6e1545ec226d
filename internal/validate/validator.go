// Package validate gates translated Cypher before it can reach the
// store: read-only enforcement, vocabulary checks against the live
// schema, and advisory warnings.
package validate

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Result is the outcome of validating one query.
type Result struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// forbidden pairs a detection pattern with the rejection it produces.
type forbidden struct {
	re      *regexp.Regexp
	message string
}

var forbiddenOps = []forbidden{
	{regexp.MustCompile(`(?i)\bDETACH\s+DELETE\b`), "Forbidden: DETACH DELETE operations are not allowed"},
	{regexp.MustCompile(`(?i)\bDELETE\b`), "Forbidden: DELETE operations are not allowed"},
	{regexp.MustCompile(`(?i)\bREMOVE\b`), "Forbidden: REMOVE operations are not allowed"},
	{regexp.MustCompile(`(?i)\bSET\b`), "Forbidden: SET operations are not allowed"},
	{regexp.MustCompile(`(?i)\bCREATE\s+INDEX\b`), "Forbidden: index DDL is not allowed"},
	{regexp.MustCompile(`(?i)\bCREATE\s+CONSTRAINT\b`), "Forbidden: constraint DDL is not allowed"},
	{regexp.MustCompile(`(?i)\bCREATE\b`), "Forbidden: CREATE operations are not allowed"},
	{regexp.MustCompile(`(?i)\bMERGE\b`), "Forbidden: MERGE operations are not allowed"},
	{regexp.MustCompile(`(?i)\bDROP\b`), "Forbidden: DROP operations are not allowed"},
	{regexp.MustCompile(`(?i)\bCALL\s+db\.`), "Forbidden: administrative procedure calls are not allowed"},
	{regexp.MustCompile(`(?i)\bCALL\s+dbms\.`), "Forbidden: administrative procedure calls are not allowed"},
	{regexp.MustCompile(`(?i)\bCALL\s+apoc\.`), "Forbidden: extension procedure calls are not allowed"},
}

var (
	nodeLabelRe   = regexp.MustCompile(`\([\w]*:([\w]+)\)`)
	relTypeRe     = regexp.MustCompile(`\[[\w]*:([\w|]+)`)
	unboundedRe   = regexp.MustCompile(`\[\s*\*\s*\]|\[[\w]*:[\w|]+\*\]`)
	returnStarRe  = regexp.MustCompile(`(?i)\bRETURN\s+\*`)
	limitClauseRe = regexp.MustCompile(`(?i)\bLIMIT\s+\d+`)
)

// Validator checks queries against the labels and relationship types
// that actually exist in the store.
type Validator struct {
	labels   map[string]bool
	relTypes map[string]bool
}

// New builds a validator from a live schema snapshot.
func New(labels, relationshipTypes []string) *Validator {
	v := &Validator{
		labels:   make(map[string]bool, len(labels)),
		relTypes: make(map[string]bool, len(relationshipTypes)),
	}
	for _, l := range labels {
		v.labels[l] = true
	}
	for _, t := range relationshipTypes {
		v.relTypes[t] = true
	}
	return v
}

// Validate runs all checks. A query with any error never reaches the
// gateway.
func (v *Validator) Validate(query string) Result {
	r := Result{Valid: true}

	for _, op := range forbiddenOps {
		if op.re.MatchString(query) {
			r.Errors = append(r.Errors, op.message)
		}
	}
	// DETACH DELETE also trips the plain DELETE pattern; report it once.
	r.Errors = dedupe(r.Errors)

	if unknown := v.unknownLabels(query); len(unknown) > 0 {
		r.Errors = append(r.Errors,
			fmt.Sprintf("Unknown node labels: %s", strings.Join(unknown, ", ")))
	}
	if unknown := v.unknownRelTypes(query); len(unknown) > 0 {
		r.Errors = append(r.Errors,
			fmt.Sprintf("Unknown relationship types: %s", strings.Join(unknown, ", ")))
	}

	hasLimit := limitClauseRe.MatchString(query)
	if unboundedRe.MatchString(query) {
		r.Warnings = append(r.Warnings,
			"Unbounded variable-length traversal may be slow on large graphs")
	}
	if returnStarRe.MatchString(query) && !hasLimit {
		r.Warnings = append(r.Warnings,
			"RETURN * without LIMIT may return excessive data")
	}
	if !hasLimit {
		r.Warnings = append(r.Warnings,
			"Query has no LIMIT clause; a row cap will be applied")
	}

	r.Valid = len(r.Errors) == 0
	return r
}

// unknownLabels returns labels used by the query that do not exist in
// the store. An empty store skips the check (nothing is known yet).
func (v *Validator) unknownLabels(query string) []string {
	if len(v.labels) == 0 {
		return nil
	}
	return v.unknownFrom(nodeLabelRe, query, v.labels)
}

func (v *Validator) unknownRelTypes(query string) []string {
	if len(v.relTypes) == 0 {
		return nil
	}
	return v.unknownFrom(relTypeRe, query, v.relTypes)
}

func (v *Validator) unknownFrom(re *regexp.Regexp, query string, known map[string]bool) []string {
	seen := map[string]bool{}
	var unknown []string
	for _, m := range re.FindAllStringSubmatch(query, -1) {
		// Alternations like [:IMPORTS|CALLS] list several types.
		for _, name := range strings.Split(m[1], "|") {
			if name == "" || seen[name] || known[name] {
				continue
			}
			seen[name] = true
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	return unknown
}

func dedupe(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
