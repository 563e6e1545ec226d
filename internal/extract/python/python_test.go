package python

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repograph/repograph-go/internal/extract"
)

func buildTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	write := func(rel, content string) {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	write("pkg/__init__.py", `"""Top-level package."""
`)
	write("pkg/models.py", `"""Data models."""
import os
from abc import ABC

class Base(ABC):
    """Common base."""

    def save(self):
        return True

async def run():
    pass
`)
	return root
}

func collectEntities(t *testing.T, root string) []extract.Entity {
	t.Helper()
	e := &Extractor{workers: 2}
	var entities []extract.Entity
	require.NoError(t, e.Entities(context.Background(), root, "pyrepo", func(ent extract.Entity) error {
		entities = append(entities, ent)
		return nil
	}))
	return entities
}

func findByKindName(entities []extract.Entity, kind, name string) *extract.Entity {
	for i, e := range entities {
		if e.Kind == kind && e.Properties["name"] == name {
			return &entities[i]
		}
	}
	return nil
}

func TestPythonEntities(t *testing.T) {
	root := buildTree(t)
	entities := collectEntities(t, root)

	pkg := findByKindName(entities, "Module", "pkg")
	require.NotNil(t, pkg, "pkg/__init__.py becomes module 'pkg'")
	assert.Equal(t, true, pkg.Properties["is_package"])
	assert.Equal(t, "pyrepo", pkg.Properties["repository"])

	models := findByKindName(entities, "Module", "pkg.models")
	require.NotNil(t, models)
	assert.Equal(t, "Data models.", models.Properties["docstring"])
	assert.Equal(t, false, models.Properties["is_package"])

	cls := findByKindName(entities, "Class", "Base")
	require.NotNil(t, cls)
	assert.Equal(t, []string{"ABC"}, cls.Properties["bases"])
	assert.Equal(t, true, cls.Properties["is_abstract"])
	assert.Equal(t, "Common base.", cls.Properties["docstring"])

	save := findByKindName(entities, "Function", "save")
	require.NotNil(t, save)
	assert.Equal(t, true, save.Properties["is_method"])

	run := findByKindName(entities, "Function", "run")
	require.NotNil(t, run)
	assert.Equal(t, true, run.Properties["is_async"])
	assert.Equal(t, false, run.Properties["is_method"])

	file := findByKindName(entities, "File", "models.py")
	require.NotNil(t, file)
	assert.Equal(t, "python", file.Properties["file_type"])
}

func TestPythonEdges(t *testing.T) {
	root := buildTree(t)
	e := &Extractor{workers: 2}

	var edges []extract.Edge
	require.NoError(t, e.Edges(context.Background(), root, "pyrepo", func(edge extract.Edge) error {
		edges = append(edges, edge)
		return nil
	}))

	find := func(kind, src, dst string) *extract.Edge {
		for i, ed := range edges {
			if ed.Kind == kind &&
				ed.Source.Properties["name"] == src &&
				ed.Target.Properties["name"] == dst {
				return &edges[i]
			}
		}
		return nil
	}

	assert.NotNil(t, find("IMPORTS", "pkg.models", "os"))
	assert.NotNil(t, find("FROM_IMPORTS", "pkg.models", "abc"))
	assert.NotNil(t, find("DEFINES_CLASS", "pkg.models", "Base"))
	assert.NotNil(t, find("HAS_METHOD", "Base", "save"))
	assert.NotNil(t, find("DEFINES_FUNCTION", "pkg.models", "run"))
	assert.Nil(t, find("DEFINES_FUNCTION", "pkg.models", "save"), "methods hang off their class")
}
