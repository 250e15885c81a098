package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/clone-service/internal/entity"
	"github.com/user/clone-service/internal/parser"
	"github.com/user/clone-service/internal/prompt"
	"github.com/user/clone-service/internal/repository"
)

func testGenerationConfig() GenerationConfig {
	cfg := DefaultGenerationConfig()
	cfg.Retry.BaseDelay = time.Millisecond
	cfg.Retry.Jitter = false
	cfg.PriceInputPerMTok = 3
	cfg.PriceOutputPerMTok = 15
	return cfg
}

func newTestGeneration(gen repository.Generator, tools repository.ToolProvider) Generation {
	return NewGeneration(gen, tools, prompt.NewBuilder(prompt.DefaultMaxHTMLChars), parser.New(nil), testGenerationConfig())
}

func testSnapshot(n int) *entity.PageSnapshot {
	return &entity.PageSnapshot{
		URL:            "https://acme.test",
		CleanedHTML:    "<main><h1>Build faster</h1></main>",
		Screenshots:    shots(n),
		PageHeight:     n * 900,
		ViewportHeight: 900,
	}
}

func reply(text string) *entity.GenerateResponse {
	return &entity.GenerateResponse{Text: text, Usage: entity.Usage{TokensIn: 1000, TokensOut: 100}}
}

func TestGenerateSingleAgent(t *testing.T) {
	gen := &fakeGenerator{handle: func(req *entity.GenerateRequest) (*entity.GenerateResponse, error) {
		return reply("// FILE: src/app/page.tsx\n\"use client\";\nexport default function Home() { return <main>Hi</main>; }\n// DEPS: framer-motion"), nil
	}}

	res, err := newTestGeneration(gen, nil).Generate(context.Background(), testSnapshot(1), nil)
	require.NoError(t, err)

	require.Len(t, res.Files, 1)
	assert.Equal(t, "src/app/page.tsx", res.Files[0].Path)
	assert.Equal(t, []string{"framer-motion"}, res.Deps)
	assert.Equal(t, int64(1000), res.Usage.TokensIn)
	assert.InDelta(t, 1000.0/1e6*3+100.0/1e6*15, res.Usage.Cost, 1e-9)

	require.NotNil(t, res.FixContext)
	assert.Len(t, res.FixContext.Screenshots, 1)
	assert.NotContains(t, res.FixContext.Prompt, "## Section ownership")
	assert.Equal(t, 1, gen.calls())

	blocks := gen.requests[0].Messages[0].Blocks
	require.Len(t, blocks, 3)
	assert.Equal(t, entity.BlockImage, blocks[1].Kind)
}

func TestGenerateSingleAgentNoFiles(t *testing.T) {
	gen := &fakeGenerator{handle: func(*entity.GenerateRequest) (*entity.GenerateResponse, error) {
		return reply("I am unable to help with that."), nil
	}}
	_, err := newTestGeneration(gen, nil).Generate(context.Background(), testSnapshot(0), nil)
	assert.ErrorIs(t, err, repository.ErrNoFilesGenerated)
}

func TestGenerateParallelStitchesAndAssembles(t *testing.T) {
	gen := &fakeGenerator{handle: func(req *entity.GenerateRequest) (*entity.GenerateResponse, error) {
		p := promptOf(req)
		switch {
		case strings.Contains(p, "You own the site header/navigation"):
			return reply("// FILE: src/components/Header.tsx\nexport default function Header() { return <header>Top</header>; }\n" +
				"// FILE: src/components/Hero.tsx\nexport default function Hero() { return <section>Hero</section>; }\n"), nil
		case strings.Contains(p, "You own the footer"):
			return reply("// FILE: src/components/Hero.tsx\nexport default function Hero() { return <section>Features</section>; }\n" +
				"// FILE: src/components/Footer.tsx\nexport default function Footer() { return <footer>Bottom</footer>; }\n" +
				"// DEPS: clsx"), nil
		case strings.Contains(p, "You are assembling a Next.js page"):
			return reply("// FILE: src/app/page.tsx\n\"use client\";\n" +
				"import Header from \"@/components/Header\";\nimport Hero from \"@/components/Hero\";\n" +
				"import Hero2 from \"@/components/Hero2\";\nimport Footer from \"@/components/Footer\";\n" +
				"export default function Home() { return <main><Header /><Hero /><Hero2 /><Footer /></main>; }\n"), nil
		}
		return nil, errors.New("unexpected prompt")
	}}

	var mu sync.Mutex
	var logs []string
	logf := func(m string) {
		mu.Lock()
		defer mu.Unlock()
		logs = append(logs, m)
	}

	res, err := newTestGeneration(gen, nil).Generate(context.Background(), testSnapshot(3), logf)
	require.NoError(t, err)

	var paths []string
	for _, f := range res.Files {
		paths = append(paths, f.Path)
	}
	assert.Equal(t, []string{
		"src/components/Header.tsx",
		"src/components/Hero.tsx",
		"src/components/Hero2.tsx",
		"src/components/Footer.tsx",
		"src/app/page.tsx",
	}, paths)
	assert.Contains(t, res.Files[2].Content, "function Hero2()")
	assert.Contains(t, res.Files[4].Content, "<Hero2 />")
	assert.Equal(t, []string{"clsx"}, res.Deps)
	assert.Equal(t, 3, gen.calls())
	assert.Equal(t, int64(3000), res.Usage.TokensIn)

	require.NotNil(t, res.FixContext)
	assert.Len(t, res.FixContext.Screenshots, 3)
	assert.NotContains(t, res.FixContext.Prompt, "## Section ownership")
	assert.Contains(t, logs, "Splitting 3 screenshots across 2 parallel agents")
}

func TestGenerateParallelFallsBackWhenAssemblerDropsComponent(t *testing.T) {
	gen := &fakeGenerator{handle: func(req *entity.GenerateRequest) (*entity.GenerateResponse, error) {
		p := promptOf(req)
		switch {
		case strings.Contains(p, "You own the site header/navigation"):
			return reply("// FILE: src/components/Header.tsx\nexport default function Header() { return <header />; }\n"), nil
		case strings.Contains(p, "You own the footer"):
			return reply("// FILE: src/components/Footer.tsx\nexport default function Footer() { return <footer />; }\n"), nil
		}
		return reply("// FILE: src/app/page.tsx\nimport Header from \"@/components/Header\";\nexport default function Home() { return <Header />; }\n"), nil
	}}

	res, err := newTestGeneration(gen, nil).Generate(context.Background(), testSnapshot(2), nil)
	require.NoError(t, err)

	page := res.Files[len(res.Files)-1]
	assert.Equal(t, "src/app/page.tsx", page.Path)
	assert.Contains(t, page.Content, `import Footer from "@/components/Footer";`)
	assert.Contains(t, page.Content, "<main className=\"min-h-screen\">")
}

func TestGenerateParallelFallsBackWhenOnlyPrefixedComponentImported(t *testing.T) {
	gen := &fakeGenerator{handle: func(req *entity.GenerateRequest) (*entity.GenerateResponse, error) {
		p := promptOf(req)
		switch {
		case strings.Contains(p, "You own the site header/navigation"):
			return reply("// FILE: src/components/Hero.tsx\nexport default function Hero() { return <section>Hero</section>; }\n"), nil
		case strings.Contains(p, "You own the footer"):
			return reply("// FILE: src/components/Hero.tsx\nexport default function Hero() { return <section>Second</section>; }\n"), nil
		}
		return reply("// FILE: src/app/page.tsx\nimport Hero2 from \"@/components/Hero2\";\n" +
			"export default function Home() { return <main><Hero2 /></main>; }\n"), nil
	}}

	res, err := newTestGeneration(gen, nil).Generate(context.Background(), testSnapshot(2), nil)
	require.NoError(t, err)

	page := res.Files[len(res.Files)-1]
	assert.Equal(t, "src/app/page.tsx", page.Path)
	assert.Contains(t, page.Content, `import Hero from "@/components/Hero";`)
	assert.Contains(t, page.Content, `import Hero2 from "@/components/Hero2";`)
	assert.Contains(t, page.Content, "<main className=\"min-h-screen\">")
}

func TestImportsModule(t *testing.T) {
	content := "import Hero2 from \"@/components/Hero2\";\nimport Nav from '@/components/Nav.tsx';\n"
	assert.True(t, importsModule(content, "@/components/Hero2"))
	assert.True(t, importsModule(content, "@/components/Nav"))
	assert.False(t, importsModule(content, "@/components/Hero"))
}

func TestGenerateParallelSurvivesOneFailedAgent(t *testing.T) {
	gen := &fakeGenerator{handle: func(req *entity.GenerateRequest) (*entity.GenerateResponse, error) {
		p := promptOf(req)
		switch {
		case strings.Contains(p, "You own the site header/navigation"):
			return nil, &repository.ProviderError{Provider: "fake", StatusCode: 400, Err: errors.New("bad request")}
		case strings.Contains(p, "You own the footer"):
			return reply("// FILE: src/components/Footer.tsx\nexport default function Footer() { return <footer />; }\n"), nil
		}
		return nil, errors.New("assembler down")
	}}

	res, err := newTestGeneration(gen, nil).Generate(context.Background(), testSnapshot(3), nil)
	require.NoError(t, err)
	require.Len(t, res.Files, 2)
	assert.Equal(t, "src/components/Footer.tsx", res.Files[0].Path)
	assert.Contains(t, res.Files[1].Content, "<Footer />")
}

func TestGenerateParallelAllAgentsEmpty(t *testing.T) {
	gen := &fakeGenerator{handle: func(*entity.GenerateRequest) (*entity.GenerateResponse, error) {
		return reply("Sorry."), nil
	}}
	_, err := newTestGeneration(gen, nil).Generate(context.Background(), testSnapshot(4), nil)
	assert.ErrorIs(t, err, repository.ErrNoFilesGenerated)
}

func TestGenerateRetriesTransientErrorOnce(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	gen := &fakeGenerator{handle: func(*entity.GenerateRequest) (*entity.GenerateResponse, error) {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts == 1 {
			return nil, &repository.ProviderError{Provider: "fake", StatusCode: 429, Retryable: true, Err: errors.New("rate limited")}
		}
		return reply("// FILE: src/app/page.tsx\nexport default function Home() { return null; }\n"), nil
	}}

	res, err := newTestGeneration(gen, nil).Generate(context.Background(), testSnapshot(1), nil)
	require.NoError(t, err)
	assert.Len(t, res.Files, 1)
	assert.Equal(t, 2, attempts)
}

func TestGenerateDoesNotRetryPermanentError(t *testing.T) {
	gen := &fakeGenerator{handle: func(*entity.GenerateRequest) (*entity.GenerateResponse, error) {
		return nil, &repository.ProviderError{Provider: "fake", StatusCode: 401, Err: errors.New("unauthorized")}
	}}
	_, err := newTestGeneration(gen, nil).Generate(context.Background(), testSnapshot(1), nil)

	var pe *repository.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 401, pe.StatusCode)
	assert.Equal(t, 1, gen.calls())
}

func TestGenerateRunsToolLoop(t *testing.T) {
	tools := &fakeTools{tools: []entity.ToolDefinition{{Name: "search_icons"}, {Name: "broken"}}}
	gen := &fakeGenerator{handle: func(req *entity.GenerateRequest) (*entity.GenerateResponse, error) {
		last := req.Messages[len(req.Messages)-1]
		if last.Role != entity.RoleTool {
			return &entity.GenerateResponse{ToolCalls: []entity.ToolCall{
				{ID: "call-1", Name: "search_icons", Arguments: json.RawMessage(`{"q":"arrow"}`)},
				{ID: "call-2", Name: "broken", Arguments: json.RawMessage(`not json`)},
			}}, nil
		}
		return reply("// FILE: src/app/page.tsx\nexport default function Home() { return null; }\n"), nil
	}}

	res, err := newTestGeneration(gen, tools).Generate(context.Background(), testSnapshot(1), nil)
	require.NoError(t, err)
	assert.Len(t, res.Files, 1)
	assert.Equal(t, []string{"search_icons", "broken"}, tools.calls)

	require.Equal(t, 2, gen.calls())
	second := gen.requests[1]
	require.Len(t, second.Messages, 4)
	assert.Equal(t, entity.RoleAssistant, second.Messages[1].Role)
	assert.Len(t, second.Messages[1].ToolCalls, 2)
	assert.Equal(t, "call-1", second.Messages[2].ToolCallID)
	assert.Contains(t, second.Messages[2].Text(), `result of search_icons {"q":"arrow"}`)
	assert.Equal(t, `{"error":"tool exploded"}`, second.Messages[3].Text())
	assert.Len(t, second.Tools, 2)
}

func TestGenerateToolLoopStopsAtLimit(t *testing.T) {
	tools := &fakeTools{tools: []entity.ToolDefinition{{Name: "search_icons"}}}
	gen := &fakeGenerator{handle: func(*entity.GenerateRequest) (*entity.GenerateResponse, error) {
		return &entity.GenerateResponse{
			Text:      "// FILE: src/app/page.tsx\nexport default function Home() { return null; }\n",
			ToolCalls: []entity.ToolCall{{ID: "x", Name: "search_icons"}},
		}, nil
	}}
	cfg := testGenerationConfig()
	cfg.MaxToolIterations = 3
	uc := NewGeneration(gen, tools, prompt.NewBuilder(0), parser.New(nil), cfg)

	res, err := uc.Generate(context.Background(), testSnapshot(1), nil)
	require.NoError(t, err)
	assert.Len(t, res.Files, 1)
	assert.Equal(t, 3, gen.calls())
}

func TestGenerateWithoutReachableTools(t *testing.T) {
	tools := &fakeTools{err: errors.New("connection refused")}
	gen := &fakeGenerator{handle: func(req *entity.GenerateRequest) (*entity.GenerateResponse, error) {
		assert.Empty(t, req.Tools)
		return reply("// FILE: src/app/page.tsx\nexport default function Home() { return null; }\n"), nil
	}}
	_, err := newTestGeneration(gen, tools).Generate(context.Background(), testSnapshot(1), nil)
	require.NoError(t, err)
}

func TestFixFileKeepsOnlyTargetFile(t *testing.T) {
	gen := &fakeGenerator{handle: func(req *entity.GenerateRequest) (*entity.GenerateResponse, error) {
		return reply("// FILE: src/components/Hero.tsx\nexport default function Hero() { return <div />; }\n" +
			"// FILE: src/components/Other.tsx\nexport default function Other() { return null; }\n"), nil
	}}
	uc := newTestGeneration(gen, nil)
	files := []entity.GeneratedFile{{Path: "src/components/Hero.tsx", Content: "broken"}}
	fc := &entity.FixContext{Prompt: "original prompt", Screenshots: shots(1), Snapshot: testSnapshot(1)}

	res, err := uc.FixFile(context.Background(), fc, files, "src/components/Hero.tsx", "Type error")
	require.NoError(t, err)
	require.Len(t, res.Files, 1)
	assert.Equal(t, "src/components/Hero.tsx", res.Files[0].Path)

	msgs := gen.requests[0].Messages
	require.Len(t, msgs, 3)
	assert.Contains(t, msgs[0].Text(), "original prompt")
	assert.Equal(t, entity.RoleAssistant, msgs[1].Role)
	assert.Contains(t, msgs[1].Text(), "// FILE: src/components/Hero.tsx\nbroken")
	assert.Contains(t, msgs[2].Text(), "The error is in src/components/Hero.tsx")
}

func TestFixFileMapsUnmarkedReply(t *testing.T) {
	gen := &fakeGenerator{handle: func(*entity.GenerateRequest) (*entity.GenerateResponse, error) {
		return reply("export default function Hero() { return <div />; }\n"), nil
	}}
	res, err := newTestGeneration(gen, nil).FixFile(context.Background(), nil, nil, "src/components/Hero.tsx", "err")
	require.NoError(t, err)
	require.Len(t, res.Files, 1)
	assert.Equal(t, "src/components/Hero.tsx", res.Files[0].Path)
}
