package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, root, name string) {
	t.Helper()
	path := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, nil, 0644))
}

func mkdir(t *testing.T, root, name string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(root, name), 0755))
}

func TestDetectAnsible(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "ansible.cfg")
	mkdir(t, root, "playbooks")

	d := Detect(root)
	assert.Equal(t, "ansible", d.Profile)
	assert.GreaterOrEqual(t, d.Confidence, 0.6)
	assert.Contains(t, d.Indicators, "ansible.cfg")
	assert.Contains(t, d.Indicators, "playbooks/")
}

func TestDetectAnsibleConfidenceCapped(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "ansible.cfg")
	touch(t, root, "site.yml")
	mkdir(t, root, "playbooks")
	mkdir(t, root, "roles")
	mkdir(t, root, "group_vars")

	d := Detect(root)
	assert.Equal(t, "ansible", d.Profile)
	assert.Equal(t, 1.0, d.Confidence)
}

func TestDetectPython(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "pyproject.toml")
	touch(t, root, "src/mypkg/__init__.py")

	d := Detect(root)
	assert.Equal(t, "python", d.Profile)
	assert.Equal(t, 1.0, d.Confidence)
	assert.Contains(t, d.Indicators, "pyproject.toml")
	assert.Contains(t, d.Indicators, "__init__.py")
}

func TestDetectAnsibleWinsOverPython(t *testing.T) {
	// Ordered rules: ansible is checked first.
	root := t.TempDir()
	mkdir(t, root, "roles")
	touch(t, root, "requirements.txt")

	d := Detect(root)
	assert.Equal(t, "ansible", d.Profile)
}

func TestDetectGenericFallback(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "README.md")

	d := Detect(root)
	assert.Equal(t, "generic", d.Profile)
	assert.Equal(t, 0.5, d.Confidence)
	assert.Empty(t, d.Indicators)
}
