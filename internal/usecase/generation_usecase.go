package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/user/clone-service/internal/entity"
	"github.com/user/clone-service/internal/parser"
	"github.com/user/clone-service/internal/prompt"
	"github.com/user/clone-service/internal/repository"
	"github.com/user/clone-service/pkg/metrics"
)

// GenerationConfig tunes model calls.
type GenerationConfig struct {
	MaxParallelAgents  int
	MaxTokens          int
	MaxToolIterations  int
	PriceInputPerMTok  float64
	PriceOutputPerMTok float64
	Retry              RetryPolicy
}

func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		MaxParallelAgents: 3,
		MaxTokens:         64000,
		MaxToolIterations: 10,
		Retry:             DefaultRetryPolicy(),
	}
}

// Generation turns snapshots into project files and repairs them.
type Generation interface {
	Generate(ctx context.Context, snap *entity.PageSnapshot, logf entity.LogFunc) (*entity.GenerationResult, error)
	// Fix asks for a whole-project fix of a build error.
	Fix(ctx context.Context, fc *entity.FixContext, files []entity.GeneratedFile, errText string) (*entity.GenerationResult, error)
	// FixFile asks for a fix of one file; the result holds at most that file.
	FixFile(ctx context.Context, fc *entity.FixContext, files []entity.GeneratedFile, path, errText string) (*entity.GenerationResult, error)
}

type generationUseCase struct {
	gen     repository.Generator
	tools   repository.ToolProvider
	prompts *prompt.Builder
	parser  *parser.Parser
	cfg     GenerationConfig
}

// NewGeneration creates the generation orchestrator. tools may be nil.
func NewGeneration(gen repository.Generator, tools repository.ToolProvider, prompts *prompt.Builder, p *parser.Parser, cfg GenerationConfig) Generation {
	if cfg.MaxToolIterations <= 0 {
		cfg.MaxToolIterations = 10
	}
	return &generationUseCase{gen: gen, tools: tools, prompts: prompts, parser: p, cfg: cfg}
}

func (uc *generationUseCase) Generate(ctx context.Context, snap *entity.PageSnapshot, logf entity.LogFunc) (*entity.GenerationResult, error) {
	if logf == nil {
		logf = func(string) {}
	}
	start := time.Now()
	defer func() { metrics.StageDuration.WithLabelValues("generate").Observe(time.Since(start).Seconds()) }()

	tools := uc.listTools(ctx)
	if len(tools) > 0 {
		logf(fmt.Sprintf("MCP tools available: %d", len(tools)))
	}

	k := DetermineAgentCount(len(snap.Screenshots), uc.cfg.MaxParallelAgents)
	if k == 1 {
		return uc.generateSingle(ctx, snap, tools, logf)
	}
	return uc.generateParallel(ctx, snap, k, tools, logf)
}

func (uc *generationUseCase) generateSingle(ctx context.Context, snap *entity.PageSnapshot, tools []entity.ToolDefinition, logf entity.LogFunc) (*entity.GenerationResult, error) {
	p := uc.prompts.Build(snap, nil)
	logf(fmt.Sprintf("Prompt: %d chars, %d screenshots, %d image URLs", len(p), len(snap.Screenshots), len(snap.Images)))
	logf(fmt.Sprintf("Sending request to %s...", uc.gen.Name()))

	began := time.Now()
	msgs := []entity.Message{{Role: entity.RoleUser, Blocks: prompt.Content(snap, snap.Screenshots, p)}}
	text, usage, err := uc.call(ctx, msgs, tools)
	if err != nil {
		return nil, fmt.Errorf("generation call: %w", err)
	}

	res := uc.parser.Parse(text)
	logf(fmt.Sprintf("AI responded in %.1fs: %d files, %d extra deps", time.Since(began).Seconds(), len(res.Files), len(res.Deps)))
	if len(res.Files) == 0 {
		return nil, repository.ErrNoFilesGenerated
	}
	return &entity.GenerationResult{
		Files: res.Files,
		Deps:  res.Deps,
		Usage: usage,
		FixContext: &entity.FixContext{
			Prompt:      p,
			Screenshots: snap.Screenshots,
			Snapshot:    snap,
		},
	}, nil
}

func (uc *generationUseCase) generateParallel(ctx context.Context, snap *entity.PageSnapshot, k int, tools []entity.ToolDefinition, logf entity.LogFunc) (*entity.GenerationResult, error) {
	assignments := PartitionScreenshots(snap.Screenshots, k)
	logf(fmt.Sprintf("Splitting %d screenshots across %d parallel agents", len(snap.Screenshots), len(assignments)))

	outputs := make([]AgentOutput, len(assignments))
	var (
		mu    sync.Mutex
		usage entity.Usage
		wg    sync.WaitGroup
	)
	for i := range assignments {
		a := assignments[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			outputs[a.Index] = AgentOutput{Index: a.Index}
			defer func() {
				if r := recover(); r != nil {
					slog.Error("Generation agent panicked", "agent", a.Index, "panic", r)
					metrics.AgentFailuresTotal.Inc()
				}
			}()

			p := uc.prompts.Build(snap, &a)
			logf(fmt.Sprintf("Agent %d/%d (%s): %d screenshots, prompt %d chars", a.Index+1, a.Count, a.Role, len(a.Screenshots), len(p)))
			msgs := []entity.Message{{Role: entity.RoleUser, Blocks: prompt.Content(snap, a.Screenshots, p)}}
			text, u, err := uc.call(ctx, msgs, tools)

			mu.Lock()
			usage.Add(u)
			mu.Unlock()

			if err != nil {
				metrics.AgentFailuresTotal.Inc()
				slog.Warn("Generation agent failed", "agent", a.Index, "role", a.Role, "error", err)
				logf(fmt.Sprintf("Agent %d/%d failed: %v", a.Index+1, a.Count, err))
				return
			}
			res := uc.parser.Parse(text)
			if len(res.Files) == 0 {
				metrics.AgentFailuresTotal.Inc()
			}
			logf(fmt.Sprintf("Agent %d/%d returned %d files", a.Index+1, a.Count, len(res.Files)))
			outputs[a.Index] = AgentOutput{Index: a.Index, Files: res.Files, Deps: res.Deps}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stitched := Stitch(outputs)
	if len(stitched.Files) == 0 {
		return nil, repository.ErrNoFilesGenerated
	}
	logf(fmt.Sprintf("Stitched %d files, %d root components", len(stitched.Files), len(stitched.Manifest)))

	page, u := uc.assemble(ctx, snap, stitched.Manifest, logf)
	usage.Add(u)

	return &entity.GenerationResult{
		Files: append(stitched.Files, page),
		Deps:  stitched.Deps,
		Usage: usage,
		FixContext: &entity.FixContext{
			Prompt:      uc.prompts.Build(snap, nil),
			Screenshots: prompt.Representative(snap.Screenshots),
			Snapshot:    snap,
		},
	}, nil
}

// assemble writes the root page. Any failure, including a page that does
// not reference every component, falls back to the mechanical page.
func (uc *generationUseCase) assemble(ctx context.Context, snap *entity.PageSnapshot, manifest []entity.ComponentRef, logf entity.LogFunc) (entity.GeneratedFile, entity.Usage) {
	fallback := prompt.FallbackPage(manifest)
	if len(manifest) == 0 {
		return fallback, entity.Usage{}
	}

	reps := prompt.Representative(snap.Screenshots)
	msgs := []entity.Message{{Role: entity.RoleUser, Blocks: prompt.Content(snap, reps, prompt.Assembler(manifest, snap.Style))}}
	text, usage, err := uc.call(ctx, msgs, nil)
	if err != nil {
		slog.Warn("Assembler call failed, using fallback page", "error", err)
		logf("Assembler failed, rendering components in order")
		return fallback, usage
	}
	for _, f := range uc.parser.Parse(text).Files {
		if f.Path != rootPagePath {
			continue
		}
		for _, c := range manifest {
			if !importsModule(f.Content, c.ImportPath()) {
				slog.Warn("Assembled page is missing a component, using fallback page", "component", c.Name)
				logf("Assembled page dropped components, rendering components in order")
				return fallback, usage
			}
		}
		logf("Assembled root page")
		return f, usage
	}
	logf("Assembler returned no page, rendering components in order")
	return fallback, usage
}

// importsModule reports whether content names modPath as a whole quoted
// module specifier, so "@/components/Hero" does not match "@/components/Hero2".
func importsModule(content, modPath string) bool {
	for _, q := range []string{`"`, `'`} {
		for _, ext := range []string{"", ".tsx", ".jsx"} {
			if strings.Contains(content, q+modPath+ext+q) {
				return true
			}
		}
	}
	return false
}

func (uc *generationUseCase) Fix(ctx context.Context, fc *entity.FixContext, files []entity.GeneratedFile, errText string) (*entity.GenerationResult, error) {
	text, usage, err := uc.call(ctx, fixMessages(fc, files, prompt.FixPrompt(errText)), uc.listTools(ctx))
	if err != nil {
		return nil, fmt.Errorf("fix call: %w", err)
	}
	res := uc.parser.Parse(text)
	return &entity.GenerationResult{Files: res.Files, Deps: res.Deps, Usage: usage}, nil
}

func (uc *generationUseCase) FixFile(ctx context.Context, fc *entity.FixContext, files []entity.GeneratedFile, path, errText string) (*entity.GenerationResult, error) {
	text, usage, err := uc.call(ctx, fixMessages(fc, files, prompt.FixFilePrompt(path, errText)), uc.listTools(ctx))
	if err != nil {
		return nil, fmt.Errorf("fix call: %w", err)
	}
	res := uc.parser.Parse(text)
	out := &entity.GenerationResult{Deps: res.Deps, Usage: usage}
	for _, f := range res.Files {
		if f.Path == path {
			out.Files = []entity.GeneratedFile{f}
			return out, nil
		}
	}
	// An unmarked reply lands on the default path.
	if len(res.Files) == 1 {
		out.Files = []entity.GeneratedFile{{Path: path, Content: res.Files[0].Content}}
	}
	return out, nil
}

func fixMessages(fc *entity.FixContext, files []entity.GeneratedFile, instruction string) []entity.Message {
	var first []entity.ContentBlock
	if fc != nil {
		first = prompt.Content(fc.Snapshot, fc.Screenshots, fc.Prompt)
	}
	return []entity.Message{
		{Role: entity.RoleUser, Blocks: first},
		{Role: entity.RoleAssistant, Blocks: []entity.ContentBlock{entity.TextBlock(parser.Render(files))}},
		{Role: entity.RoleUser, Blocks: []entity.ContentBlock{entity.TextBlock(instruction)}},
	}
}

// call runs the tool loop: while the model asks for tools, execute them and
// feed results back, at most MaxToolIterations times. The last text is
// returned when the limit is hit.
func (uc *generationUseCase) call(ctx context.Context, msgs []entity.Message, tools []entity.ToolDefinition) (string, entity.Usage, error) {
	var usage entity.Usage
	msgs = append([]entity.Message(nil), msgs...)

	var last string
	for i := 0; i < uc.cfg.MaxToolIterations; i++ {
		resp, err := uc.generate(ctx, &entity.GenerateRequest{Messages: msgs, MaxTokens: uc.cfg.MaxTokens, Tools: tools})
		if err != nil {
			return "", usage, err
		}
		usage.Add(resp.Usage)
		last = resp.Text
		if len(resp.ToolCalls) == 0 || len(tools) == 0 || uc.tools == nil {
			return resp.Text, usage, nil
		}

		slog.Info("Tool loop iteration", "iteration", i+1, "tool_calls", len(resp.ToolCalls))
		msgs = append(msgs, entity.Message{
			Role:      entity.RoleAssistant,
			Blocks:    textBlocks(resp.Text),
			ToolCalls: resp.ToolCalls,
		})
		for _, tc := range resp.ToolCalls {
			msgs = append(msgs, entity.Message{
				Role:       entity.RoleTool,
				ToolCallID: tc.ID,
				Blocks:     []entity.ContentBlock{entity.TextBlock(uc.runTool(ctx, tc))},
			})
		}
	}
	slog.Warn("Tool loop hit max iterations", "max", uc.cfg.MaxToolIterations)
	return last, usage, nil
}

func (uc *generationUseCase) runTool(ctx context.Context, tc entity.ToolCall) string {
	args := map[string]any{}
	if len(tc.Arguments) > 0 {
		if err := json.Unmarshal(tc.Arguments, &args); err != nil {
			args = map[string]any{}
		}
	}
	slog.Info("Calling MCP tool", "tool", tc.Name)
	out, err := uc.tools.CallTool(ctx, tc.Name, args)
	if err != nil {
		b, _ := json.Marshal(map[string]string{"error": err.Error()})
		return string(b)
	}
	return out
}

// generate performs one model call with retries on transient errors.
func (uc *generationUseCase) generate(ctx context.Context, req *entity.GenerateRequest) (*entity.GenerateResponse, error) {
	policy := uc.cfg.Retry
	policy.OnRetry = func(err error, attempt int, delay time.Duration) {
		slog.Warn("Retrying model call", "provider", uc.gen.Name(), "attempt", attempt+1, "delay", delay, "error", err)
	}
	var resp *entity.GenerateResponse
	err := Retry(ctx, policy, func() error {
		var err error
		resp, err = uc.gen.Generate(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	resp.Usage = uc.priced(resp.Usage)
	metrics.GenerationTokensTotal.WithLabelValues("in").Add(float64(resp.Usage.TokensIn))
	metrics.GenerationTokensTotal.WithLabelValues("out").Add(float64(resp.Usage.TokensOut))
	return resp, nil
}

func (uc *generationUseCase) priced(u entity.Usage) entity.Usage {
	if u.Cost == 0 {
		u.Cost = float64(u.TokensIn)/1e6*uc.cfg.PriceInputPerMTok + float64(u.TokensOut)/1e6*uc.cfg.PriceOutputPerMTok
	}
	return u
}

// listTools degrades to no tools when the provider is missing or unreachable.
func (uc *generationUseCase) listTools(ctx context.Context) []entity.ToolDefinition {
	if uc.tools == nil {
		return nil
	}
	tools, err := uc.tools.ListTools(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			slog.Info("MCP server unavailable, proceeding without tools", "error", err)
		}
		return nil
	}
	return tools
}

func textBlocks(s string) []entity.ContentBlock {
	if s == "" {
		return nil
	}
	return []entity.ContentBlock{entity.TextBlock(s)}
}
