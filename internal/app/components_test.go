package app

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/clone-service/internal/adapter/daytona"
	"github.com/user/clone-service/internal/adapter/localexec"
	"github.com/user/clone-service/pkg/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadFile(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	return cfg
}

func TestNewSandboxProvider(t *testing.T) {
	cfg := testConfig(t)

	cfg.SandboxMode = "daytona"
	p, err := NewSandboxProvider(cfg)
	require.NoError(t, err)
	assert.IsType(t, &daytona.Provider{}, p)

	cfg.SandboxMode = "local"
	p, err = NewSandboxProvider(cfg)
	require.NoError(t, err)
	assert.IsType(t, &localexec.Provider{}, p)

	cfg.SandboxMode = "none"
	p, err = NewSandboxProvider(cfg)
	require.NoError(t, err)
	assert.Nil(t, p)

	cfg.SandboxMode = "kubernetes"
	_, err = NewSandboxProvider(cfg)
	assert.Error(t, err)
}

func TestNewGenerator(t *testing.T) {
	cfg := testConfig(t)

	g, err := NewGenerator(cfg)
	require.NoError(t, err)
	assert.Equal(t, "openrouter", g.Name())

	cfg.LLMProvider = "gemini"
	g, err = NewGenerator(cfg)
	require.NoError(t, err)
	assert.Equal(t, "gemini", g.Name())

	cfg.LLMProvider = "unknown"
	_, err = NewGenerator(cfg)
	assert.Error(t, err)
}

func TestNewComponents(t *testing.T) {
	cfg := testConfig(t)
	cfg.SandboxMode = "none"
	cfg.MCPServerURL = "http://127.0.0.1:1/mcp"

	c, err := NewComponents(cfg)
	require.NoError(t, err)
	defer c.Close()

	assert.NotNil(t, c.Extractor)
	assert.NotNil(t, c.Generation)
	assert.NotNil(t, c.Builder)
	assert.NotNil(t, c.Parser)
	assert.Nil(t, c.Sandboxes)
	assert.Len(t, c.closers, 1)

	cfg.ParserRulesFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = NewComponents(cfg)
	assert.Error(t, err)
}
