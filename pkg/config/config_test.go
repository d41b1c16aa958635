package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 300, cfg.CorrelationWindowSeconds)
	assert.Equal(t, 10, cfg.RCAMaxIterations)
	assert.True(t, cfg.SemanticCorrelationEnabled)
	assert.Equal(t, "memory", cfg.QueryCacheBackend)
}

func TestLoad_InvalidCacheBackend(t *testing.T) {
	os.Clearenv()
	os.Setenv("QUERY_CACHE_BACKEND", "nope")
	_, err := Load("")
	assert.Error(t, err)
}

func TestExpertContext_FilePrecedence(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/expert.txt"
	require.NoError(t, os.WriteFile(path, []byte("file context"), 0o600))

	cfg := &Config{RCAExpertContext: "inline context", RCAExpertContextFile: path}
	assert.Equal(t, "file context", cfg.ExpertContext())

	cfg2 := &Config{RCAExpertContext: "inline context"}
	assert.Equal(t, "inline context", cfg2.ExpertContext())
}
