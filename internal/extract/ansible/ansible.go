// Package ansible extracts the full Ansible entity model: playbooks,
// plays, tasks, handlers, roles, variables, templates, inventories, and
// the relationships between them.
package ansible

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/repograph/repograph-go/internal/extract"
	"github.com/repograph/repograph-go/internal/logging"
	"github.com/repograph/repograph-go/internal/parser"
)

const maxVariableValue = 1000

func init() {
	extract.Register("ansible", func(workers int) extract.Extractor {
		return &Extractor{workers: workers}
	})
}

// Extractor walks an Ansible tree with a bounded worker pool.
type Extractor struct {
	workers int
}

// Profile returns the schema profile id.
func (e *Extractor) Profile() string { return "ansible" }

// fileRecords is the per-file extraction output. Entities and Edges run
// the same analysis and emit one half of it.
type fileRecords struct {
	entities []extract.Entity
	edges    []extract.Edge
}

func (fr *fileRecords) addEntity(kind string, props map[string]interface{}) {
	fr.entities = append(fr.entities, extract.Entity{Kind: kind, Properties: props})
}

func (fr *fileRecords) addEdge(kind string, source, target extract.Endpoint, props map[string]interface{}) {
	fr.edges = append(fr.edges, extract.Edge{Kind: kind, Source: source, Target: target, Properties: props})
}

func endpoint(kind string, key, value string) extract.Endpoint {
	return extract.Endpoint{Kind: kind, Properties: map[string]interface{}{key: value}}
}

func ansibleFiles(root string) ([]extract.FileInfo, error) {
	return extract.CollectFiles(root, func(fi extract.FileInfo) bool {
		if fi.Name == "Vagrantfile" {
			return true
		}
		return extract.HasExtension(fi, ".yml", ".yaml", ".py", ".j2")
	})
}

// Entities walks the tree and emits every node record.
func (e *Extractor) Entities(ctx context.Context, root, repositoryID string, emit extract.EmitEntity) error {
	return e.run(ctx, root, repositoryID, func(ser *extract.SerialEmitter, fr *fileRecords) error {
		for i := range fr.entities {
			extract.InjectRepository(&fr.entities[i], repositoryID)
			if err := ser.Entity(emit, fr.entities[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// Edges walks the tree and emits every relationship record.
func (e *Extractor) Edges(ctx context.Context, root, repositoryID string, emit extract.EmitEdge) error {
	return e.run(ctx, root, repositoryID, func(ser *extract.SerialEmitter, fr *fileRecords) error {
		for _, edge := range fr.edges {
			if err := ser.Edge(emit, edge); err != nil {
				return err
			}
		}
		return nil
	})
}

func (e *Extractor) run(ctx context.Context, root, repositoryID string, sink func(*extract.SerialEmitter, *fileRecords) error) error {
	files, err := ansibleFiles(root)
	if err != nil {
		return err
	}

	var ser extract.SerialEmitter
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for _, fi := range files {
		fi := fi
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fr := extractFile(fi)
			return sink(&ser, fr)
		})
	}
	return g.Wait()
}

// extractFile produces all records for one file. The File node comes
// first; a parse failure contributes the File node only.
func extractFile(fi extract.FileInfo) *fileRecords {
	fr := &fileRecords{}

	fr.addEntity("File", map[string]interface{}{
		"path":          fi.Path,
		"absolute_path": fi.AbsPath,
		"name":          fi.Name,
		"file_type":     fileType(fi),
		"content_hash":  extract.ContentHash(fi.AbsPath),
		"size":          fi.Size,
		"last_modified": fi.ModTime,
	})

	switch {
	case extract.HasExtension(fi, ".yml", ".yaml"):
		extractYAML(fi, fr)
	case extract.HasExtension(fi, ".j2"):
		extractTemplate(fi, fr)
	case extract.HasExtension(fi, ".py"):
		extractInventoryScript(fi, fr)
	case fi.Name == "Vagrantfile":
		extractVagrantfile(fi, fr)
	}
	return fr
}

func fileType(fi extract.FileInfo) string {
	if fi.Name == "Vagrantfile" {
		return "ruby"
	}
	switch strings.ToLower(filepath.Ext(fi.Path)) {
	case ".yml", ".yaml":
		return "yaml"
	case ".j2":
		return "jinja"
	case ".py":
		return "python"
	default:
		return "unknown"
	}
}

func extractYAML(fi extract.FileInfo, fr *fileRecords) {
	result := parser.ParseYAML(fi.AbsPath)
	if !result.IsSuccess() {
		logging.Warn("failed to parse yaml file", "path", fi.Path, "errors", result.Errors)
		return
	}

	switch {
	case result.MetaBool("is_playbook"):
		extractPlaybook(fi, result, fr)
	case result.MetaBool("is_requirements"):
		extractRequirements(fi, result, fr)
	case result.MetaBool("is_task_list"):
		extractTaskList(fi, result, fr)
	case result.MetaBool("is_vars_file"):
		extractVarsFile(fi, result, fr)
	}
}

// extractVagrantfile links a Vagrantfile's ansible provisioner to the
// playbook it runs.
func extractVagrantfile(fi extract.FileInfo, fr *fileRecords) {
	result := parser.ParseRuby(fi.AbsPath)
	if !result.IsSuccess() {
		logging.Warn("failed to parse Vagrantfile", "path", fi.Path, "errors", result.Errors)
		return
	}
	vf := result.Root.(*parser.VagrantFile)
	for _, prov := range vf.Provisioners {
		if prov.Type != "ansible" || prov.Playbook == "" {
			continue
		}
		fr.addEdge("INCLUDES",
			endpoint("File", "path", fi.Path),
			endpoint("Playbook", "path", prov.Playbook),
			nil)
	}
}

// extractInventoryScript emits an Inventory node for Python dynamic
// inventory scripts. Other Python files contribute their File node only.
func extractInventoryScript(fi extract.FileInfo, fr *fileRecords) {
	result := parser.ParsePython(fi.AbsPath)
	if !result.IsSuccess() {
		logging.Warn("failed to parse python file", "path", fi.Path, "errors", result.Errors)
		return
	}
	if !result.MetaBool("is_inventory_script") {
		return
	}

	fr.addEntity("Inventory", map[string]interface{}{
		"path": fi.Path,
		"name": fi.Name,
		"type": "dynamic",
	})
	fr.addEdge("IN_FILE",
		endpoint("Inventory", "path", fi.Path),
		endpoint("File", "path", fi.Path),
		nil)
}

// extractTemplate emits a Template node and the Variable nodes the
// template interpolates.
func extractTemplate(fi extract.FileInfo, fr *fileRecords) {
	result := parser.ParseJinja(fi.AbsPath)
	if !result.IsSuccess() {
		logging.Warn("failed to parse template", "path", fi.Path, "errors", result.Errors)
		return
	}

	fr.addEntity("Template", map[string]interface{}{
		"path": fi.Path,
		"name": fi.Name,
	})
	fr.addEdge("IN_FILE",
		endpoint("Template", "path", fi.Path),
		endpoint("File", "path", fi.Path),
		nil)

	for _, name := range result.MetaStrings("variables") {
		fr.addEntity("Variable", map[string]interface{}{
			"name":      name,
			"scope":     "template",
			"file_path": fi.Path,
		})
		fr.addEdge("USES_VAR",
			endpoint("Template", "path", fi.Path),
			endpoint("Variable", "name", name),
			nil)
	}
}

// jsonValue renders an arbitrary YAML value as a compact JSON string,
// truncated to keep property sizes bounded.
func jsonValue(v interface{}, max int) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		if len(s) > max {
			return s[:max]
		}
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	s := string(data)
	if len(s) > max {
		return s[:max]
	}
	return s
}
