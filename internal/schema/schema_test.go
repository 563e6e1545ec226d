package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadProfile(t *testing.T, name string) *Profile {
	t.Helper()
	reg, err := NewRegistry()
	require.NoError(t, err)
	p, err := reg.Load(name)
	require.NoError(t, err)
	return p
}

func TestRegistryLoadsAllProfiles(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)
	assert.Equal(t, []string{"ansible", "generic", "python"}, reg.Names())

	_, err = reg.Load("fortran")
	assert.Error(t, err)
}

func TestValidateNode(t *testing.T) {
	p := loadProfile(t, "ansible")

	err := p.ValidateNode("Task", map[string]interface{}{
		"repository": "infra",
		"file_path":  "site.yml",
		"name":       "install nginx",
		"order":      0,
	})
	assert.NoError(t, err)

	err = p.ValidateNode("Task", map[string]interface{}{
		"repository": "infra",
		"name":       "install nginx",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required property")

	err = p.ValidateNode("Spaceship", map[string]interface{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown node type")

	// Required property present but null.
	err = p.ValidateNode("Playbook", map[string]interface{}{
		"repository": "infra",
		"path":       nil,
	})
	assert.Error(t, err)
}

func TestRoleIsProfileIndependent(t *testing.T) {
	for _, name := range []string{"ansible", "python", "generic"} {
		p := loadProfile(t, name)
		assert.NoError(t, p.ValidateNode("Role", map[string]interface{}{"name": "common"}), name)
		assert.Error(t, p.ValidateNode("Role", map[string]interface{}{}), name)
	}
}

func TestValidateRelationship(t *testing.T) {
	p := loadProfile(t, "ansible")

	assert.NoError(t, p.ValidateRelationship("HAS_TASK", "Play", "Task"))
	assert.NoError(t, p.ValidateRelationship("USES_ROLE", "Playbook", "Role"))

	// Wildcard endpoints.
	assert.NoError(t, p.ValidateRelationship("INCLUDES", "Playbook", "VarsFile"))

	err := p.ValidateRelationship("HAS_TASK", "Task", "Play")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not allow source kind")

	err = p.ValidateRelationship("TELEPORTS", "Play", "Task")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown relationship type")
}

func TestIndexStatements(t *testing.T) {
	p := loadProfile(t, "generic")
	stmts := p.IndexStatements()
	assert.Contains(t, stmts, "CREATE INDEX idx_file_repository_path IF NOT EXISTS FOR (n:File) ON (n.repository, n.path)")
	assert.Contains(t, stmts, "CREATE INDEX idx_directory_repository_path IF NOT EXISTS FOR (n:Directory) ON (n.repository, n.path)")
}

func TestConstraintStatements(t *testing.T) {
	p := loadProfile(t, "ansible")
	stmts := p.ConstraintStatements()
	require.Len(t, stmts, 1)
	assert.Equal(t, "CREATE CONSTRAINT unique_role_name IF NOT EXISTS FOR (n:Role) REQUIRE n.name IS UNIQUE", stmts[0])
}
