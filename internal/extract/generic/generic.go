// Package generic is the file-based extractor for repositories with no
// recognized profile: directories, files, and containment.
package generic

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/repograph/repograph-go/internal/extract"
)

func init() {
	extract.Register("generic", func(workers int) extract.Extractor {
		return &Extractor{workers: workers}
	})
}

// Extractor walks a tree and emits Directory/File nodes with CONTAINS
// edges.
type Extractor struct {
	workers int
}

// Profile returns the schema profile id.
func (e *Extractor) Profile() string { return "generic" }

var languageByExt = map[string]string{
	".py":   "python",
	".js":   "javascript",
	".ts":   "typescript",
	".yaml": "yaml",
	".yml":  "yaml",
	".json": "json",
	".md":   "markdown",
	".rst":  "rst",
	".go":   "go",
	".rs":   "rust",
	".rb":   "ruby",
	".sh":   "shell",
}

func detectFileType(path string) string {
	if lang, ok := languageByExt[strings.ToLower(filepath.Ext(path))]; ok {
		return lang
	}
	return "unknown"
}

type treeEntry struct {
	rel   string
	isDir bool
	fi    extract.FileInfo
}

// walkTree enumerates directories and files under root with the shared
// ignore rules, in lexical order.
func walkTree(root string) ([]treeEntry, error) {
	var entries []treeEntry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		if d.IsDir() {
			if extract.IgnoredDirs[d.Name()] || strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			rel, _ := filepath.Rel(root, path)
			entries = append(entries, treeEntry{rel: filepath.ToSlash(rel), isDir: true})
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if extract.IgnoredExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		entries = append(entries, treeEntry{
			rel: filepath.ToSlash(rel),
			fi: extract.FileInfo{
				Path:    filepath.ToSlash(rel),
				AbsPath: abs,
				Name:    d.Name(),
				Size:    info.Size(),
				ModTime: info.ModTime().Unix(),
			},
		})
		return nil
	})
	return entries, err
}

// Entities emits a Directory node per directory and a File node (with
// content hash) per file.
func (e *Extractor) Entities(ctx context.Context, root, repositoryID string, emit extract.EmitEntity) error {
	entries, err := walkTree(root)
	if err != nil {
		return err
	}

	var ser extract.SerialEmitter
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for _, entry := range entries {
		if entry.isDir {
			ent := extract.Entity{
				Kind: "Directory",
				Properties: map[string]interface{}{
					"path": entry.rel,
					"name": filepath.Base(entry.rel),
				},
			}
			extract.InjectRepository(&ent, repositoryID)
			if err := ser.Entity(emit, ent); err != nil {
				return err
			}
			continue
		}

		fi := entry.fi
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ext := filepath.Ext(fi.Path)
			fileType := "none"
			if ext != "" {
				fileType = strings.TrimPrefix(ext, ".")
			}
			ent := extract.Entity{
				Kind: "File",
				Properties: map[string]interface{}{
					"path":          fi.Path,
					"absolute_path": fi.AbsPath,
					"name":          fi.Name,
					"file_type":     fileType,
					"type":          detectFileType(fi.Path),
					"extension":     ext,
					"size":          fi.Size,
					"content_hash":  extract.ContentHash(fi.AbsPath),
					"last_modified": fi.ModTime,
				},
			}
			extract.InjectRepository(&ent, repositoryID)
			return ser.Entity(emit, ent)
		})
	}
	return g.Wait()
}

// Edges emits parent→child CONTAINS edges for every entry below the
// first level.
func (e *Extractor) Edges(ctx context.Context, root, repositoryID string, emit extract.EmitEdge) error {
	entries, err := walkTree(root)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		parent := filepath.ToSlash(filepath.Dir(entry.rel))
		if parent == "." {
			continue
		}
		targetKind := "File"
		if entry.isDir {
			targetKind = "Directory"
		}
		edge := extract.Edge{
			Kind: "CONTAINS",
			Source: extract.Endpoint{
				Kind:       "Directory",
				Properties: map[string]interface{}{"path": parent},
			},
			Target: extract.Endpoint{
				Kind:       targetKind,
				Properties: map[string]interface{}{"path": entry.rel},
			},
		}
		if err := emit(edge); err != nil {
			return err
		}
	}
	return nil
}
