package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// IgnoredDirs are never descended into during file discovery.
var IgnoredDirs = map[string]bool{
	".git":          true,
	".venv":         true,
	"venv":          true,
	"node_modules":  true,
	"__pycache__":   true,
	".mypy_cache":   true,
	".pytest_cache": true,
	".ruff_cache":   true,
	"dist":          true,
	"build":         true,
}

// IgnoredExtensions are binary or compiled artifacts that carry no
// extractable structure.
var IgnoredExtensions = map[string]bool{
	".pyc":   true,
	".pyo":   true,
	".so":    true,
	".dylib": true,
	".dll":   true,
	".exe":   true,
	".bin":   true,
	".o":     true,
	".a":     true,
}

// FileInfo describes one discovered file.
type FileInfo struct {
	Path    string // relative to the walk root, forward slashes
	AbsPath string
	Name    string
	Size    int64
	ModTime int64
}

// WalkFiles walks root and calls fn for every regular file that survives
// the ignore rules. Files are visited in deterministic lexical order.
func WalkFiles(root string, fn func(FileInfo) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && (IgnoredDirs[d.Name()] || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if IgnoredExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		return fn(FileInfo{
			Path:    filepath.ToSlash(rel),
			AbsPath: abs,
			Name:    d.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime().Unix(),
		})
	})
}

// CollectFiles returns all discovered files matching the predicate, in
// lexical path order.
func CollectFiles(root string, match func(FileInfo) bool) ([]FileInfo, error) {
	var files []FileInfo
	err := WalkFiles(root, func(fi FileInfo) error {
		if match == nil || match(fi) {
			files = append(files, fi)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// ContentHash returns the sha-256 hex digest of a file, or "error" when
// the file cannot be read.
func ContentHash(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "error"
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HasExtension reports whether the file has one of the given extensions
// (lowercase, with leading dot).
func HasExtension(fi FileInfo, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(fi.Path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
