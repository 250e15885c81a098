package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/user/clone-service/internal/entity"
	"github.com/user/clone-service/internal/parser"
	"github.com/user/clone-service/internal/repository"
	"github.com/user/clone-service/internal/scaffold"
	"github.com/user/clone-service/pkg/metrics"
)

const (
	maxErrorLines = 100
	maxErrorChars = 3000
	devServerLog  = "/tmp/next.log"
)

var buildNoise = []string{
	"telemetry", "anonymous", "opt-out", "nextjs.org",
	"collecting page data", "generating static pages",
	"finalizing page optimization",
	"creating an optimized production build",
	"compiled successfully",
}

// inlineScript bundles out/index.html with its CSS into one document.
// Script tags are dropped; the static copy is for visual preview only.
const inlineScript = `const fs = require('fs');
const path = require('path');
const outDir = process.argv[2];
const htmlPath = path.join(outDir, 'index.html');
if (!fs.existsSync(htmlPath)) { process.exit(1); }
let html = fs.readFileSync(htmlPath, 'utf8');
html = html.replace(/<link\s+[^>]*href="([^"]*\.css)"[^>]*\/?>/gi, (match, href) => {
  try {
    const css = fs.readFileSync(path.join(outDir, href), 'utf8');
    return '<style>' + css + '</style>';
  } catch { return match; }
});
html = html.replace(/<script\s+[^>]*src="[^"]*\.js"[^>]*><\/script>/gi, '');
process.stdout.write(html);
`

// BuildConfig holds sandbox paths, limits and timeouts.
type BuildConfig struct {
	ProjectDir        string
	MaxAttempts       int
	MkdirTimeout      time.Duration
	InstallTimeout    time.Duration
	BuildTimeout      time.Duration
	StartTimeout      time.Duration
	CheckTimeout      time.Duration
	Heartbeat         time.Duration
	DevServerPort     int
	ReadyPolls        int
	ReadyInterval     time.Duration
	UploadConcurrency int
}

func DefaultBuildConfig() BuildConfig {
	return BuildConfig{
		ProjectDir:        "/home/daytona/app",
		MaxAttempts:       3,
		MkdirTimeout:      30 * time.Second,
		InstallTimeout:    180 * time.Second,
		BuildTimeout:      120 * time.Second,
		StartTimeout:      15 * time.Second,
		CheckTimeout:      10 * time.Second,
		Heartbeat:         5 * time.Second,
		DevServerPort:     8080,
		ReadyPolls:        30,
		ReadyInterval:     time.Second,
		UploadConcurrency: 8,
	}
}

// StatusFunc receives coarse status transitions.
type StatusFunc func(status entity.CloneStatus, msg string)

// Builder deploys generated projects into a sandbox and repairs build errors.
type Builder interface {
	// Prepare creates directories, uploads the scaffold and files, and installs deps.
	Prepare(ctx context.Context, sb repository.Sandbox, files []entity.GeneratedFile, deps []string, logf entity.LogFunc) error
	BuildWithRetry(ctx context.Context, sb repository.Sandbox, files []entity.GeneratedFile, deps []string, fc *entity.FixContext, logf entity.LogFunc, statusf StatusFunc) (*entity.BuildOutcome, error)
	StartPreview(ctx context.Context, sb repository.Sandbox, logf entity.LogFunc) (string, error)
	// CaptureStaticHTML returns the exported page with CSS inlined.
	CaptureStaticHTML(ctx context.Context, sb repository.Sandbox, logf entity.LogFunc) (string, bool)
}

type buildUseCase struct {
	fixer Generation
	cfg   BuildConfig
}

func NewBuilder(fixer Generation, cfg BuildConfig) Builder {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.UploadConcurrency < 1 {
		cfg.UploadConcurrency = 1
	}
	return &buildUseCase{fixer: fixer, cfg: cfg}
}

func (uc *buildUseCase) Prepare(ctx context.Context, sb repository.Sandbox, files []entity.GeneratedFile, deps []string, logf entity.LogFunc) error {
	dirs := scaffold.Dirs(files)
	quoted := make([]string, len(dirs))
	for i, d := range dirs {
		quoted[i] = shellQuote(uc.cfg.ProjectDir + "/" + d)
	}
	res, err := sb.Exec(ctx, "mkdir -p "+strings.Join(quoted, " "), uc.cfg.MkdirTimeout)
	if err != nil {
		return fmt.Errorf("create project directories: %w", err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("create project directories: exit %d: %s", res.ExitCode, res.Output)
	}

	all := append(scaffold.Files(), files...)
	logf(fmt.Sprintf("Uploading %d files...", len(all)))
	began := time.Now()
	if err := uc.upload(ctx, sb, all); err != nil {
		return err
	}
	logf(fmt.Sprintf("Uploaded %d files in %.1fs", len(all), time.Since(began).Seconds()))

	return uc.install(ctx, sb, deps, true, logf)
}

func (uc *buildUseCase) upload(ctx context.Context, sb repository.Sandbox, files []entity.GeneratedFile) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.cfg.UploadConcurrency)
	for _, f := range files {
		g.Go(func() error {
			if err := sb.UploadFile(gctx, uc.cfg.ProjectDir+"/"+f.Path, []byte(f.Content)); err != nil {
				return fmt.Errorf("upload %s: %w", f.Path, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// install runs npm install. With base set the project's own dependencies are
// installed first. Unsafe names are dropped; an install timeout is logged and
// ignored.
func (uc *buildUseCase) install(ctx context.Context, sb repository.Sandbox, deps []string, base bool, logf entity.LogFunc) error {
	var safe, quoted []string
	for _, d := range deps {
		if parser.IsSafeDependency(d) {
			safe = append(safe, d)
			quoted = append(quoted, shellQuote(d))
		}
	}
	if !base && len(safe) == 0 {
		return nil
	}

	cmd := "cd " + shellQuote(uc.cfg.ProjectDir)
	if base {
		cmd += " && npm install"
	}
	msg := "Installing dependencies"
	if len(safe) > 0 {
		cmd += " && npm install " + strings.Join(quoted, " ")
		preview := strings.Join(safe[:min(3, len(safe))], ", ")
		if len(safe) > 3 {
			preview += "..."
		}
		msg += fmt.Sprintf(" + %d extra (%s)", len(safe), preview)
	}
	logf(msg + "...")

	began := time.Now()
	res, err := sb.Exec(ctx, cmd, uc.cfg.InstallTimeout)
	switch {
	case errors.Is(err, repository.ErrExecTimeout):
		slog.Warn("npm install timed out", "timeout", uc.cfg.InstallTimeout)
		logf(fmt.Sprintf("npm install timed out after %.0fs, continuing anyway", uc.cfg.InstallTimeout.Seconds()))
		return nil
	case err != nil:
		return fmt.Errorf("npm install: %w", err)
	case res.ExitCode != 0:
		slog.Warn("npm install failed", "exit_code", res.ExitCode, "output", tail(res.Output, 500))
	}
	logf(fmt.Sprintf("Dependencies installed in %.1fs", time.Since(began).Seconds()))
	return nil
}

func (uc *buildUseCase) BuildWithRetry(ctx context.Context, sb repository.Sandbox, files []entity.GeneratedFile, deps []string, fc *entity.FixContext, logf entity.LogFunc, statusf StatusFunc) (*entity.BuildOutcome, error) {
	if statusf == nil {
		statusf = func(entity.CloneStatus, string) {}
	}
	start := time.Now()
	defer func() { metrics.StageDuration.WithLabelValues("build").Observe(time.Since(start).Seconds()) }()

	out := &entity.BuildOutcome{Files: append([]entity.GeneratedFile(nil), files...)}
	installed := make(map[string]struct{}, len(deps))
	for _, d := range deps {
		installed[d] = struct{}{}
	}
	var pending []string
	limit := uc.cfg.MaxAttempts

	for attempt := 1; attempt <= limit; attempt++ {
		if attempt > 1 {
			statusf(entity.StatusDeploying, fmt.Sprintf("Rebuilding (attempt %d/%d)...", attempt, limit))
			logf(fmt.Sprintf("Re-uploading fixed files (attempt %d/%d)...", attempt, limit))
			if err := uc.upload(ctx, sb, out.Files); err != nil {
				return out, err
			}
			if err := uc.install(ctx, sb, pending, false, logf); err != nil {
				return out, err
			}
			pending = nil
		}

		label := "Running next build"
		if attempt > 1 {
			label += fmt.Sprintf(" (attempt %d/%d)", attempt, limit)
		}
		logf(label + "...")

		res, elapsed, err := uc.runBuild(ctx, sb, logf)
		rec := entity.BuildAttempt{Number: attempt, Elapsed: elapsed}
		if errors.Is(err, repository.ErrExecTimeout) {
			rec.TimedOut = true
			out.Attempts = append(out.Attempts, rec)
			metrics.BuildAttemptsTotal.WithLabelValues("timeout").Inc()
			slog.Warn("Build timed out", "attempt", attempt, "elapsed", elapsed)
			logf(fmt.Sprintf("Build timed out after %.0fs, skipping build check", elapsed.Seconds()))
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("run build: %w", err)
		}

		rec.ExitCode = res.ExitCode
		if res.ExitCode == 0 {
			out.Attempts = append(out.Attempts, rec)
			out.Success = true
			metrics.BuildAttemptsTotal.WithLabelValues("success").Inc()
			slog.Info("Build succeeded", "attempt", attempt, "elapsed", elapsed)
			logf(fmt.Sprintf("Build succeeded in %.1fs", elapsed.Seconds()))
			return out, nil
		}

		rec.ErrorText = TrimBuildError(res.Output)
		out.Attempts = append(out.Attempts, rec)
		slog.Warn("Build failed", "attempt", attempt, "limit", limit, "exit_code", res.ExitCode, "error", truncateLog(rec.ErrorText, 300))
		logf(fmt.Sprintf("Build failed in %.1fs (attempt %d/%d)", elapsed.Seconds(), attempt, limit))

		if res.ExitCode >= 128 {
			metrics.BuildAttemptsTotal.WithLabelValues("killed").Inc()
			logf(fmt.Sprintf("Build killed by signal (exit %d), skipping retry", res.ExitCode))
			return out, nil
		}
		metrics.BuildAttemptsTotal.WithLabelValues("failure").Inc()
		if attempt == limit {
			logf(fmt.Sprintf("All %d build attempts failed", limit))
			return out, nil
		}

		statusf(entity.StatusFixing, fmt.Sprintf("Fixing build errors (attempt %d/%d)...", attempt+1, limit))
		fix, err := uc.fix(ctx, fc, out.Files, rec.ErrorText, logf)
		if err != nil {
			slog.Error("Fix request failed", "error", err)
			logf(fmt.Sprintf("AI fix request failed: %v", err))
			return out, nil
		}
		out.Usage.Add(fix.Usage)
		if len(fix.Files) == 0 {
			logf("AI fix returned no files")
			return out, nil
		}
		out.Files = mergeFiles(out.Files, fix.Files)
		for _, d := range fix.Deps {
			if _, ok := installed[d]; !ok {
				installed[d] = struct{}{}
				pending = append(pending, d)
			}
		}
		logf(fmt.Sprintf("AI returned %d fixed files", len(fix.Files)))
	}
	return out, nil
}

// fix prefers a single-file fix when exactly one generated file is named
// in the error.
func (uc *buildUseCase) fix(ctx context.Context, fc *entity.FixContext, files []entity.GeneratedFile, errText string, logf entity.LogFunc) (*entity.GenerationResult, error) {
	var named []string
	for _, f := range files {
		if strings.Contains(errText, f.Path) {
			named = append(named, f.Path)
		}
	}
	if len(named) == 1 {
		logf("Asking AI to fix " + named[0] + "...")
		return uc.fixer.FixFile(ctx, fc, files, named[0], errText)
	}
	logf("Asking AI to fix build errors...")
	return uc.fixer.Fix(ctx, fc, files, errText)
}

func (uc *buildUseCase) runBuild(ctx context.Context, sb repository.Sandbox, logf entity.LogFunc) (*entity.ExecResult, time.Duration, error) {
	start := time.Now()
	done := make(chan struct{})
	if uc.cfg.Heartbeat > 0 {
		go func() {
			t := time.NewTicker(uc.cfg.Heartbeat)
			defer t.Stop()
			for {
				select {
				case <-t.C:
					logf(fmt.Sprintf("  Still building... (%.0fs)", time.Since(start).Seconds()))
				case <-done:
					return
				}
			}
		}()
	}
	res, err := sb.Exec(ctx, "cd "+shellQuote(uc.cfg.ProjectDir)+" && npx next build 2>&1", uc.cfg.BuildTimeout)
	close(done)
	return res, time.Since(start), err
}

func (uc *buildUseCase) StartPreview(ctx context.Context, sb repository.Sandbox, logf entity.LogFunc) (string, error) {
	logf("Starting Next.js dev server (turbopack)...")
	cmd := fmt.Sprintf("cd %s && nohup npx next dev --turbopack -p %d > %s 2>&1 & disown",
		shellQuote(uc.cfg.ProjectDir), uc.cfg.DevServerPort, devServerLog)
	if _, err := sb.Exec(ctx, cmd, uc.cfg.StartTimeout); err != nil {
		return "", fmt.Errorf("start dev server: %w", err)
	}

	start := time.Now()
	ready := false
	check := fmt.Sprintf("grep -c 'Ready in\\|ready started' %s 2>/dev/null || echo 0", devServerLog)
	for i := 0; i < uc.cfg.ReadyPolls && !ready; i++ {
		if err := sleep(ctx, uc.cfg.ReadyInterval); err != nil {
			return "", err
		}
		res, err := sb.Exec(ctx, check, uc.cfg.CheckTimeout)
		if err != nil {
			continue
		}
		if n := strings.TrimSpace(res.Output); n != "" && n != "0" {
			ready = true
		}
	}
	if ready {
		logf(fmt.Sprintf("Dev server ready in %.1fs", time.Since(start).Seconds()))
	} else {
		logf(fmt.Sprintf("Dev server started (%.1fs)", time.Since(start).Seconds()))
	}

	url, err := sb.PreviewURL(ctx, uc.cfg.DevServerPort)
	if err != nil {
		return "", fmt.Errorf("preview url: %w", err)
	}
	logf("Preview ready: " + url)
	return url, nil
}

func (uc *buildUseCase) CaptureStaticHTML(ctx context.Context, sb repository.Sandbox, logf entity.LogFunc) (string, bool) {
	script := uc.cfg.ProjectDir + "/_inline.cjs"
	if err := sb.UploadFile(ctx, script, []byte(inlineScript)); err != nil {
		slog.Warn("Failed to upload inline script", "error", err)
		return "", false
	}
	res, err := sb.Exec(ctx, "node "+shellQuote(script)+" "+shellQuote(uc.cfg.ProjectDir+"/out"), uc.cfg.CheckTimeout)
	if err != nil {
		slog.Warn("Failed to capture static HTML", "error", err)
		return "", false
	}
	html := strings.TrimSpace(res.Output)
	if html == "" || res.ExitCode != 0 {
		slog.Warn("Static HTML capture failed", "exit_code", res.ExitCode)
		return "", false
	}
	logf(fmt.Sprintf("Static preview captured (%dKB)", len(html)/1024))
	return html, true
}

// TrimBuildError drops blank and known-noise lines and keeps the last 100
// lines. When nothing is left it falls back to the last 3000 characters of
// the raw output.
func TrimBuildError(output string) string {
	var kept []string
	for _, line := range strings.Split(output, "\n") {
		s := strings.TrimSpace(line)
		if s == "" || isNoise(strings.ToLower(s)) {
			continue
		}
		kept = append(kept, strings.TrimRight(line, "\r"))
	}
	if len(kept) > maxErrorLines {
		kept = kept[len(kept)-maxErrorLines:]
	}
	text := strings.Join(kept, "\n")
	if strings.TrimSpace(text) == "" {
		return tail(output, maxErrorChars)
	}
	return text
}

func isNoise(lower string) bool {
	for _, n := range buildNoise {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}

// mergeFiles replaces files by path and appends new ones.
func mergeFiles(current, fixed []entity.GeneratedFile) []entity.GeneratedFile {
	out := append([]entity.GeneratedFile(nil), current...)
	index := make(map[string]int, len(out))
	for i, f := range out {
		index[f.Path] = i
	}
	for _, f := range fixed {
		if i, ok := index[f.Path]; ok {
			out[i] = f
			continue
		}
		index[f.Path] = len(out)
		out = append(out, f)
	}
	return out
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func truncateLog(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
