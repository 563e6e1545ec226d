// Package schema holds the declarative graph schema profiles: permitted
// node kinds, relationship kinds with endpoint restrictions, and the
// index/constraint DDL derived from them.
package schema

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed profiles/*.yaml
var profilesFS embed.FS

// GlobalKinds are node kinds valid under every profile. Role nodes are
// deduplicated across repositories, so they belong to no single profile.
var GlobalKinds = map[string]bool{"Role": true}

// PropertySpec describes one node or relationship property.
type PropertySpec struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Required bool   `yaml:"required"`
}

// NodeSpec describes a node kind.
type NodeSpec struct {
	Properties []PropertySpec `yaml:"properties"`
}

// KindSet is a set of node kinds. In YAML it may be a single string, a
// list, or the wildcard "*".
type KindSet []string

// UnmarshalYAML accepts both scalar and sequence forms.
func (k *KindSet) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		*k = KindSet{s}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*k = KindSet(list)
		return nil
	default:
		return fmt.Errorf("kind set must be a string or list, got yaml kind %d", value.Kind)
	}
}

// Contains reports whether the set permits the given kind. The wildcard
// "*" permits anything.
func (k KindSet) Contains(kind string) bool {
	for _, v := range k {
		if v == "*" || v == kind {
			return true
		}
	}
	return false
}

// RelationshipSpec describes a relationship kind with endpoint
// restrictions.
type RelationshipSpec struct {
	From       KindSet        `yaml:"from"`
	To         KindSet        `yaml:"to"`
	Properties []PropertySpec `yaml:"properties"`
}

// IndexSpec describes a (possibly composite) index.
type IndexSpec struct {
	Node       string   `yaml:"node"`
	Properties []string `yaml:"properties"`
}

// ConstraintSpec describes a uniqueness constraint.
type ConstraintSpec struct {
	Node       string   `yaml:"node"`
	Type       string   `yaml:"type"`
	Properties []string `yaml:"properties"`
}

// Profile is one named schema profile.
type Profile struct {
	Name          string                      `yaml:"-"`
	Description   string                      `yaml:"description"`
	Nodes         map[string]NodeSpec         `yaml:"nodes"`
	Relationships map[string]RelationshipSpec `yaml:"relationships"`
	Indexes       []IndexSpec                 `yaml:"indexes"`
	Constraints   []ConstraintSpec            `yaml:"constraints"`
}

// Registry holds all loaded profiles.
type Registry struct {
	profiles map[string]*Profile
}

// NewRegistry loads every embedded profile document.
func NewRegistry() (*Registry, error) {
	r := &Registry{profiles: make(map[string]*Profile)}

	entries, err := fs.ReadDir(profilesFS, "profiles")
	if err != nil {
		return nil, fmt.Errorf("failed to list schema profiles: %w", err)
	}
	for _, entry := range entries {
		name := strings.TrimSuffix(entry.Name(), ".yaml")
		data, err := profilesFS.ReadFile("profiles/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read profile %s: %w", name, err)
		}
		var p Profile
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to parse profile %s: %w", name, err)
		}
		p.Name = name
		r.profiles[name] = &p
	}
	return r, nil
}

// Load returns the named profile.
func (r *Registry) Load(name string) (*Profile, error) {
	p, ok := r.profiles[name]
	if !ok {
		return nil, fmt.Errorf("unknown schema profile: %s (available: %s)",
			name, strings.Join(r.Names(), ", "))
	}
	return p, nil
}

// Names returns all profile names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasNodeKind reports whether the profile declares the kind. Global kinds
// are always valid.
func (p *Profile) HasNodeKind(kind string) bool {
	if GlobalKinds[kind] {
		return true
	}
	_, ok := p.Nodes[kind]
	return ok
}

// ValidateNode checks that the kind is declared and every required
// property is present and non-null.
func (p *Profile) ValidateNode(kind string, props map[string]interface{}) error {
	spec, ok := p.Nodes[kind]
	if !ok {
		if GlobalKinds[kind] {
			// Role has a fixed shape independent of profile.
			if v, present := props["name"]; !present || v == nil {
				return fmt.Errorf("node %s missing required property: name", kind)
			}
			return nil
		}
		return fmt.Errorf("unknown node type: %s", kind)
	}
	for _, prop := range spec.Properties {
		if !prop.Required {
			continue
		}
		v, present := props[prop.Name]
		if !present || v == nil {
			return fmt.Errorf("node %s missing required property: %s", kind, prop.Name)
		}
	}
	return nil
}

// ValidateRelationship checks the relationship kind and its endpoint
// kinds against the declared from/to sets.
func (p *Profile) ValidateRelationship(kind, fromKind, toKind string) error {
	spec, ok := p.Relationships[kind]
	if !ok {
		return fmt.Errorf("unknown relationship type: %s", kind)
	}
	if !spec.From.Contains(fromKind) {
		return fmt.Errorf("relationship %s does not allow source kind %s", kind, fromKind)
	}
	if !spec.To.Contains(toKind) {
		return fmt.Errorf("relationship %s does not allow target kind %s", kind, toKind)
	}
	return nil
}

// IndexStatements renders the profile's indexes as Neo4j DDL.
func (p *Profile) IndexStatements() []string {
	stmts := make([]string, 0, len(p.Indexes))
	for _, idx := range p.Indexes {
		stmts = append(stmts, fmt.Sprintf(
			"CREATE INDEX %s IF NOT EXISTS FOR (n:%s) ON (%s)",
			ddlName("idx", idx.Node, idx.Properties),
			idx.Node,
			propertyList(idx.Properties),
		))
	}
	return stmts
}

// ConstraintStatements renders the profile's uniqueness constraints as
// Neo4j DDL.
func (p *Profile) ConstraintStatements() []string {
	stmts := make([]string, 0, len(p.Constraints))
	for _, c := range p.Constraints {
		if c.Type != "unique" {
			continue
		}
		var require string
		if len(c.Properties) == 1 {
			require = fmt.Sprintf("n.%s IS UNIQUE", c.Properties[0])
		} else {
			require = fmt.Sprintf("(%s) IS UNIQUE", propertyList(c.Properties))
		}
		stmts = append(stmts, fmt.Sprintf(
			"CREATE CONSTRAINT %s IF NOT EXISTS FOR (n:%s) REQUIRE %s",
			ddlName("unique", c.Node, c.Properties),
			c.Node,
			require,
		))
	}
	return stmts
}

func ddlName(prefix, node string, props []string) string {
	return fmt.Sprintf("%s_%s_%s", prefix, strings.ToLower(node), strings.Join(props, "_"))
}

func propertyList(props []string) string {
	parts := make([]string, len(props))
	for i, p := range props {
		parts[i] = "n." + p
	}
	return strings.Join(parts, ", ")
}
