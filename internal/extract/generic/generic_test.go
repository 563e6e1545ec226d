package generic

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repograph/repograph-go/internal/extract"
)

func buildTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"README.md":             "# demo\n",
		"src/main.go":           "package main\n",
		"src/util/helpers.go":   "package util\n",
		"node_modules/x/ign.js": "ignored",
		"bin/tool.so":           "binary",
	}
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func TestGenericEntities(t *testing.T) {
	root := buildTree(t)
	ex, err := extract.New("generic", 2)
	require.NoError(t, err)

	var entities []extract.Entity
	require.NoError(t, ex.Entities(context.Background(), root, "demo", func(e extract.Entity) error {
		entities = append(entities, e)
		return nil
	}))

	var files, dirs []extract.Entity
	for _, e := range entities {
		switch e.Kind {
		case "File":
			files = append(files, e)
		case "Directory":
			dirs = append(dirs, e)
		}
	}

	paths := map[string]extract.Entity{}
	for _, f := range files {
		paths[f.Properties["path"].(string)] = f
	}
	assert.Contains(t, paths, "README.md")
	assert.Contains(t, paths, "src/main.go")
	assert.Contains(t, paths, "src/util/helpers.go")
	assert.NotContains(t, paths, "node_modules/x/ign.js", "vendor dirs are ignored")
	assert.NotContains(t, paths, "bin/tool.so", "binary extensions are ignored")

	readme := paths["README.md"]
	assert.Equal(t, "markdown", readme.Properties["type"])
	assert.Equal(t, "md", readme.Properties["file_type"])
	assert.Equal(t, "demo", readme.Properties["repository"])
	assert.Len(t, readme.Properties["content_hash"], 64, "sha-256 hex digest")

	dirPaths := map[string]bool{}
	for _, d := range dirs {
		dirPaths[d.Properties["path"].(string)] = true
	}
	assert.True(t, dirPaths["src"])
	assert.True(t, dirPaths["src/util"])
	assert.False(t, dirPaths["node_modules"])
}

func TestGenericEmissionsAreSerialized(t *testing.T) {
	root := buildTree(t)
	ex, err := extract.New("generic", 4)
	require.NoError(t, err)

	// The emit callback must never be entered concurrently, whether the
	// entity came from the walk loop or a worker.
	var inFlight, peak int32
	require.NoError(t, ex.Entities(context.Background(), root, "demo", func(extract.Entity) error {
		cur := atomic.AddInt32(&inFlight, 1)
		if cur > atomic.LoadInt32(&peak) {
			atomic.StoreInt32(&peak, cur)
		}
		time.Sleep(time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return nil
	}))
	assert.Equal(t, int32(1), peak)
}

func TestGenericContainsEdges(t *testing.T) {
	root := buildTree(t)
	ex, err := extract.New("generic", 2)
	require.NoError(t, err)

	var edges []extract.Edge
	require.NoError(t, ex.Edges(context.Background(), root, "demo", func(e extract.Edge) error {
		edges = append(edges, e)
		return nil
	}))

	type link struct{ from, to string }
	seen := map[link]string{}
	for _, e := range edges {
		require.Equal(t, "CONTAINS", e.Kind)
		seen[link{
			e.Source.Properties["path"].(string),
			e.Target.Properties["path"].(string),
		}] = e.Target.Kind
	}

	assert.Equal(t, "File", seen[link{"src", "src/main.go"}])
	assert.Equal(t, "Directory", seen[link{"src", "src/util"}])
	assert.Equal(t, "File", seen[link{"src/util", "src/util/helpers.go"}])

	// Top-level entries have no parent directory edge.
	for l := range seen {
		assert.NotEqual(t, ".", l.from)
	}
}
