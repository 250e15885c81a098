package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, 3, cfg.MaxBuildAttempts)
	assert.Equal(t, 3, cfg.MaxParallelAgents)
	assert.Equal(t, 15, cfg.MaxScreenshots)
	assert.Equal(t, 120*time.Second, cfg.BuildTimeout)
	assert.Equal(t, 180*time.Second, cfg.InstallTimeout)
	assert.Equal(t, "/home/daytona/app", cfg.ProjectDir)
	assert.Equal(t, 64000, cfg.LLMMaxTokens)
	assert.Empty(t, cfg.UserAgents)
}

func TestLoadEnvFileAndOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "SERVER_PORT=9090\nMAX_BUILD_ATTEMPTS=5\nBUILD_TIMEOUT=45s\nUSER_AGENTS=ua-one, ua-two\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("LLM_PROVIDER", "gemini")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, 5, cfg.MaxBuildAttempts)
	assert.Equal(t, 45*time.Second, cfg.BuildTimeout)
	assert.Equal(t, "gemini", cfg.LLMProvider)
	assert.Equal(t, []string{"ua-one", "ua-two"}, cfg.UserAgents)
}
