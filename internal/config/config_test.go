package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "bolt://localhost:7687", cfg.Neo4j.URI)
	assert.Equal(t, "neo4j", cfg.Neo4j.User)
	assert.Equal(t, 10*time.Second, cfg.Neo4j.QueryTimeout)
	assert.Equal(t, 5*time.Second, cfg.Neo4j.ConnectionTimeout)
	assert.Equal(t, 100, cfg.Pipeline.BatchSize)
	assert.Equal(t, 4, cfg.Pipeline.MaxWorkers)
	assert.Equal(t, "http://localhost:11434/v1", cfg.LLM.APIBase)
	assert.Equal(t, 2048, cfg.LLM.MaxTokens)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 5003, cfg.Server.Port)
	assert.Equal(t, 100, cfg.Server.RateLimitPerMinute)
	assert.Equal(t, 10, cfg.Server.RateLimitBurst)

	require.NoError(t, cfg.Validate())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("NEO4J_URI", "bolt://graph.internal:7687")
	t.Setenv("NEO4J_QUERY_TIMEOUT", "2.5")
	t.Setenv("PIPELINE_BATCH_SIZE", "250")
	t.Setenv("PIPELINE_MAX_WORKERS", "8")
	t.Setenv("LLM_TEMPERATURE", "0.3")
	t.Setenv("MCP_SERVER_PORT", "6001")

	cfg := Default()
	applyEnvOverrides(cfg)

	assert.Equal(t, "bolt://graph.internal:7687", cfg.Neo4j.URI)
	assert.Equal(t, 2500*time.Millisecond, cfg.Neo4j.QueryTimeout)
	assert.Equal(t, 250, cfg.Pipeline.BatchSize)
	assert.Equal(t, 8, cfg.Pipeline.MaxWorkers)
	assert.InDelta(t, 0.3, float64(cfg.LLM.Temperature), 1e-6)
	assert.Equal(t, 6001, cfg.Server.Port)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Pipeline.BatchSize = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Pipeline.RepositoryID = "my repo!"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Pipeline.RepositoryID = "infra-prod_01"
	assert.NoError(t, cfg.Validate())
}

func TestValidRepositoryID(t *testing.T) {
	valid := []string{"a", "repo-1", "My_Repo", "0"}
	for _, id := range valid {
		assert.True(t, ValidRepositoryID(id), id)
	}

	invalid := []string{"", "repo 1", "repo'x", "a/b", "répo", "x;DROP"}
	for _, id := range invalid {
		assert.False(t, ValidRepositoryID(id), id)
	}
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "(not set)", MaskSecret(""))
	assert.Equal(t, "***", MaskSecret("short"))
	assert.Equal(t, "sk-proj...wxyz", MaskSecret("sk-proj-abcdefghijklmnopwxyz"))
}
