// Package app builds the pipeline components shared by the API server and
// the command-line client from configuration.
package app

import (
	"fmt"
	"log/slog"

	"github.com/user/clone-service/internal/adapter/chromedp_browser"
	"github.com/user/clone-service/internal/adapter/daytona"
	"github.com/user/clone-service/internal/adapter/gemini"
	"github.com/user/clone-service/internal/adapter/localexec"
	"github.com/user/clone-service/internal/adapter/lru"
	"github.com/user/clone-service/internal/adapter/mcp_tools"
	"github.com/user/clone-service/internal/adapter/openrouter"
	"github.com/user/clone-service/internal/parser"
	"github.com/user/clone-service/internal/prompt"
	"github.com/user/clone-service/internal/repository"
	"github.com/user/clone-service/internal/usecase"
	"github.com/user/clone-service/pkg/config"
)

// Components are the stages of a clone pipeline. Close releases the
// connections they hold.
type Components struct {
	Extractor  repository.SnapshotExtractor
	Generation usecase.Generation
	Builder    usecase.Builder
	Sandboxes  repository.SandboxProvider
	Parser     *parser.Parser

	closers []func() error
}

func (c *Components) Close() {
	for _, closeFn := range c.closers {
		if err := closeFn(); err != nil {
			slog.Warn("Failed to close component", "error", err)
		}
	}
}

// NewComponents wires the extractor, generator, builder and sandbox
// provider selected by cfg.
func NewComponents(cfg *config.Config) (_ *Components, err error) {
	c := &Components{}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	c.Extractor = NewExtractor(cfg)

	var generator repository.Generator
	generator, err = NewGenerator(cfg)
	if err != nil {
		return nil, err
	}

	var tools repository.ToolProvider
	if cfg.MCPServerURL != "" {
		mcpTools := mcp_tools.NewToolProvider(cfg.MCPServerURL)
		c.closers = append(c.closers, mcpTools.Close)
		tools = mcpTools
		slog.Info("MCP tools enabled", "endpoint", cfg.MCPServerURL)
	}

	rules := parser.DefaultRules()
	if cfg.ParserRulesFile != "" {
		if rules, err = parser.LoadRules(cfg.ParserRulesFile); err != nil {
			return nil, fmt.Errorf("loading parser rules: %w", err)
		}
	}
	c.Parser = parser.New(rules)

	genCfg := usecase.DefaultGenerationConfig()
	genCfg.MaxParallelAgents = cfg.MaxParallelAgents
	genCfg.MaxTokens = cfg.LLMMaxTokens
	genCfg.MaxToolIterations = cfg.MaxToolIterations
	genCfg.PriceInputPerMTok = cfg.PriceInputPerMTok
	genCfg.PriceOutputPerMTok = cfg.PriceOutputPerMTok
	genCfg.Retry.BaseDelay = cfg.LLMRetryBaseDelay
	c.Generation = usecase.NewGeneration(generator, tools, prompt.NewBuilder(prompt.DefaultMaxHTMLChars), c.Parser, genCfg)

	buildCfg := usecase.DefaultBuildConfig()
	buildCfg.ProjectDir = cfg.ProjectDir
	buildCfg.MaxAttempts = cfg.MaxBuildAttempts
	buildCfg.BuildTimeout = cfg.BuildTimeout
	buildCfg.InstallTimeout = cfg.InstallTimeout
	buildCfg.DevServerPort = cfg.DevServerPort
	c.Builder = usecase.NewBuilder(c.Generation, buildCfg)

	if c.Sandboxes, err = NewSandboxProvider(cfg); err != nil {
		return nil, err
	}
	return c, nil
}

// NewExtractor returns the headless-browser extractor behind the snapshot cache.
func NewExtractor(cfg *config.Config) repository.SnapshotExtractor {
	browserCfg := chromedp_browser.DefaultConfig()
	if cfg.BrowserPoolSize > 0 {
		browserCfg.PoolSize = cfg.BrowserPoolSize
	}
	browserCfg.UserAgents = cfg.UserAgents
	browserCfg.Proxies = cfg.BrowserProxies
	browser := chromedp_browser.NewChromedpBrowser(browserCfg)

	extractCfg := usecase.DefaultExtractorConfig()
	if cfg.PageLoadTimeout > 0 {
		extractCfg.PageLoadTimeout = cfg.PageLoadTimeout
	}
	if cfg.StepTimeout > 0 {
		extractCfg.StepTimeout = cfg.StepTimeout
	}
	if cfg.MaxScreenshots > 0 {
		extractCfg.MaxScreenshots = cfg.MaxScreenshots
	}
	extractCfg.ViewportHeight = browserCfg.ViewportHeight

	return lru.NewCachedExtractor(usecase.NewExtractor(browser, extractCfg), cfg.SnapshotCacheSize, cfg.SnapshotCacheTTL)
}

// NewGenerator selects the model backend by LLM_PROVIDER.
func NewGenerator(cfg *config.Config) (repository.Generator, error) {
	var g repository.Generator
	switch cfg.LLMProvider {
	case "gemini":
		g = gemini.NewGenerator(gemini.Config{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel})
	case "openrouter", "":
		g = openrouter.NewGenerator(openrouter.Config{
			APIKey:  cfg.OpenRouterAPIKey,
			BaseURL: cfg.OpenRouterBaseURL,
			Model:   cfg.OpenRouterModel,
			Timeout: cfg.LLMTimeout,
		})
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
	slog.Info("Generator configured", "provider", g.Name())
	return g, nil
}

// NewSandboxProvider selects the build backend by SANDBOX_MODE. A nil
// provider means clones return code without a build.
func NewSandboxProvider(cfg *config.Config) (repository.SandboxProvider, error) {
	switch cfg.SandboxMode {
	case "daytona":
		dCfg := daytona.DefaultConfig()
		dCfg.APIKey = cfg.DaytonaAPIKey
		if cfg.DaytonaAPIURL != "" {
			dCfg.APIURL = cfg.DaytonaAPIURL
		}
		if cfg.DaytonaTarget != "" {
			dCfg.Target = cfg.DaytonaTarget
		}
		if cfg.SandboxImage != "" {
			dCfg.Image = cfg.SandboxImage
		}
		if cfg.SandboxAutoDelete > 0 {
			dCfg.AutoDelete = cfg.SandboxAutoDelete
		}
		if cfg.DaytonaAPIKey == "" {
			slog.Warn("DAYTONA_API_KEY is not set, clones will return code without a build")
		}
		return daytona.NewProvider(dCfg), nil
	case "local":
		slog.Warn("Using local sandbox, generated code runs on this host")
		return localexec.NewProvider(cfg.LocalSandboxRoot, cfg.ProjectDir), nil
	case "none", "":
		slog.Info("Sandbox disabled, clones will return code without a build")
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown SANDBOX_MODE %q", cfg.SandboxMode)
	}
}
