// Package python extracts modules, classes, functions, and import
// relationships from Python codebases.
package python

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/repograph/repograph-go/internal/extract"
	"github.com/repograph/repograph-go/internal/logging"
	"github.com/repograph/repograph-go/internal/parser"
)

const maxDocstring = 500

func init() {
	extract.Register("python", func(workers int) extract.Extractor {
		return &Extractor{workers: workers}
	})
}

// Extractor walks .py files and emits the Python entity model.
type Extractor struct {
	workers int
}

// Profile returns the schema profile id.
func (e *Extractor) Profile() string { return "python" }

func pythonFiles(root string) ([]extract.FileInfo, error) {
	return extract.CollectFiles(root, func(fi extract.FileInfo) bool {
		return extract.HasExtension(fi, ".py")
	})
}

// moduleName converts a relative file path to a dotted module name.
func moduleName(relPath string) string {
	name := strings.TrimSuffix(relPath, ".py")
	name = strings.TrimSuffix(name, "/__init__")
	return strings.ReplaceAll(name, "/", ".")
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

// Entities emits File, Module, Class, and Function nodes per source
// file. A file that fails to parse contributes its File node only.
func (e *Extractor) Entities(ctx context.Context, root, repositoryID string, emit extract.EmitEntity) error {
	files, err := pythonFiles(root)
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
			return e.extractFile(fi, repositoryID, &ser, emit)
		})
	}
	return g.Wait()
}

func (e *Extractor) extractFile(fi extract.FileInfo, repositoryID string, ser *extract.SerialEmitter, emit extract.EmitEntity) error {
	fileNode := extract.Entity{
		Kind: "File",
		Properties: map[string]interface{}{
			"path":          fi.Path,
			"absolute_path": fi.AbsPath,
			"name":          fi.Name,
			"file_type":     "python",
			"type":          "python",
			"content_hash":  extract.ContentHash(fi.AbsPath),
			"last_modified": fi.ModTime,
			"size":          fi.Size,
		},
	}
	extract.InjectRepository(&fileNode, repositoryID)
	if err := ser.Entity(emit, fileNode); err != nil {
		return err
	}

	result := parser.ParsePython(fi.AbsPath)
	if !result.IsSuccess() {
		logging.Warn("failed to parse python file", "path", fi.Path, "errors", result.Errors)
		return nil
	}
	pf := result.Root.(*parser.PythonFile)

	module := extract.Entity{
		Kind: "Module",
		Properties: map[string]interface{}{
			"name":       moduleName(fi.Path),
			"path":       fi.Path,
			"docstring":  truncate(pf.Docstring, maxDocstring),
			"is_package": fi.Name == "__init__.py",
		},
	}
	extract.InjectRepository(&module, repositoryID)
	if err := ser.Entity(emit, module); err != nil {
		return err
	}

	for _, cls := range pf.Classes {
		isAbstract := false
		for _, base := range cls.Bases {
			if strings.Contains(base, "ABC") {
				isAbstract = true
				break
			}
		}
		node := extract.Entity{
			Kind: "Class",
			Properties: map[string]interface{}{
				"name":        cls.Name,
				"bases":       cls.Bases,
				"decorators":  cls.Decorators,
				"docstring":   truncate(cls.Docstring, maxDocstring),
				"is_abstract": isAbstract,
			},
		}
		extract.InjectRepository(&node, repositoryID)
		if err := ser.Entity(emit, node); err != nil {
			return err
		}
	}

	for _, fn := range pf.Functions {
		node := extract.Entity{
			Kind: "Function",
			Properties: map[string]interface{}{
				"name":       fn.Name,
				"params":     fn.Params,
				"decorators": fn.Decorators,
				"docstring":  truncate(fn.Docstring, maxDocstring),
				"is_async":   fn.IsAsync,
				"is_method":  fn.Class != "",
			},
		}
		extract.InjectRepository(&node, repositoryID)
		if err := ser.Entity(emit, node); err != nil {
			return err
		}
	}
	return nil
}

// Edges emits import relationships between Module nodes plus structural
// definition edges.
func (e *Extractor) Edges(ctx context.Context, root, repositoryID string, emit extract.EmitEdge) error {
	files, err := pythonFiles(root)
	if err != nil {
		return err
	}

	moduleEndpoint := func(name string) extract.Endpoint {
		return extract.Endpoint{
			Kind:       "Module",
			Properties: map[string]interface{}{"name": name},
		}
	}

	for _, fi := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		result := parser.ParsePython(fi.AbsPath)
		if !result.IsSuccess() {
			logging.Warn("failed to parse python file", "path", fi.Path, "errors", result.Errors)
			continue
		}
		pf := result.Root.(*parser.PythonFile)
		source := moduleName(fi.Path)

		for _, imp := range pf.Imports {
			kind := "IMPORTS"
			if imp.From {
				kind = "FROM_IMPORTS"
			}
			if err := emit(extract.Edge{
				Kind:   kind,
				Source: moduleEndpoint(source),
				Target: moduleEndpoint(imp.Module),
			}); err != nil {
				return err
			}
		}

		for _, cls := range pf.Classes {
			if err := emit(extract.Edge{
				Kind:   "DEFINES_CLASS",
				Source: moduleEndpoint(source),
				Target: extract.Endpoint{Kind: "Class", Properties: map[string]interface{}{"name": cls.Name}},
			}); err != nil {
				return err
			}
		}

		for _, fn := range pf.Functions {
			target := extract.Endpoint{Kind: "Function", Properties: map[string]interface{}{"name": fn.Name}}
			if fn.Class != "" {
				if err := emit(extract.Edge{
					Kind:   "HAS_METHOD",
					Source: extract.Endpoint{Kind: "Class", Properties: map[string]interface{}{"name": fn.Class}},
					Target: target,
				}); err != nil {
					return err
				}
				continue
			}
			if err := emit(extract.Edge{
				Kind:   "DEFINES_FUNCTION",
				Source: moduleEndpoint(source),
				Target: target,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}
