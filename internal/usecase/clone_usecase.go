package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/user/clone-service/internal/entity"
	"github.com/user/clone-service/internal/parser"
	"github.com/user/clone-service/internal/repository"
	"github.com/user/clone-service/internal/scaffold"
	"github.com/user/clone-service/pkg/metrics"
	"github.com/user/clone-service/pkg/utils"
)

const cleanupTimeout = 30 * time.Second

// Artifact keys of a clone.
func StaticHTMLKey(id string) string { return id + "/index.html" }
func ProjectKey(id string) string { return id + "/project.json" }
func ScreenshotKey(id string, i int) string { return fmt.Sprintf("%s/screenshots/%02d.png", id, i) }

// ClonePipeline runs clone requests end to end.
type ClonePipeline interface {
	// Start validates url and runs the pipeline in the background. The
	// returned channel carries the ordered event stream and is closed after
	// exactly one terminal event. Cancelling ctx cancels the pipeline.
	Start(ctx context.Context, url string) (string, <-chan entity.Event, error)
	Get(ctx context.Context, id string) (*entity.CloneRecord, error)
	// Replay returns archived events with Seq >= fromSeq.
	Replay(ctx context.Context, id string, fromSeq int64) ([]entity.Event, error)
}

// PipelineDeps wires the pipeline. Everything below Builder is optional.
type PipelineDeps struct {
	Extractor  repository.SnapshotExtractor
	Generation Generation
	Builder    Builder
	Sandboxes  repository.SandboxProvider
	Clones     repository.CloneRepository
	Events     repository.EventLogRepository
	InFlight   repository.InFlightRepository
	Artifacts  repository.ArtifactStore
	// EventBuffer is the channel capacity of each event stream.
	EventBuffer int
}

type clonePipeline struct {
	PipelineDeps
}

func NewClonePipeline(deps PipelineDeps) ClonePipeline {
	if deps.EventBuffer <= 0 {
		deps.EventBuffer = 64
	}
	return &clonePipeline{PipelineDeps: deps}
}

func (uc *clonePipeline) Start(ctx context.Context, rawURL string) (string, <-chan entity.Event, error) {
	url, err := utils.NormalizeURL(rawURL)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", repository.ErrInvalidURL, err)
	}
	id := uuid.NewString()

	if uc.InFlight != nil {
		if err := uc.InFlight.Acquire(ctx, url, id); err != nil {
			if errors.Is(err, repository.ErrCloneInFlight) {
				return "", nil, err
			}
			slog.Warn("In-flight lock unavailable, continuing without it", "url", url, "error", err)
		}
	}

	if uc.Clones != nil {
		now := time.Now().UTC()
		rec := &entity.CloneRecord{ID: id, URL: url, Status: entity.StatusScraping, CreatedAt: now, UpdatedAt: now}
		if err := uc.Clones.Insert(ctx, rec); err != nil {
			slog.Error("Failed to insert clone record", "clone_id", id, "error", err)
		}
	}

	p := NewProgress(ctx, id, uc.EventBuffer, uc.archive(ctx, id))
	go uc.run(ctx, id, url, p)
	return id, p.Events(), nil
}

func (uc *clonePipeline) Get(ctx context.Context, id string) (*entity.CloneRecord, error) {
	if uc.Clones == nil {
		return nil, repository.ErrNotFound
	}
	return uc.Clones.FindByID(ctx, id)
}

func (uc *clonePipeline) Replay(ctx context.Context, id string, fromSeq int64) ([]entity.Event, error) {
	if uc.Events == nil {
		return nil, repository.ErrNotFound
	}
	return uc.Events.Range(ctx, id, fromSeq)
}

type sandboxResult struct {
	sb  repository.Sandbox
	err error
}

func (uc *clonePipeline) run(ctx context.Context, id, url string, p *Progress) {
	metrics.ClonesInFlight.Inc()
	started := time.Now()
	cleanup := context.WithoutCancel(ctx)
	defer func() {
		metrics.ClonesInFlight.Dec()
		metrics.StageDuration.WithLabelValues("total").Observe(time.Since(started).Seconds())
		if uc.InFlight != nil {
			if err := uc.InFlight.Release(cleanup, url, id); err != nil {
				slog.Warn("Failed to release in-flight lock", "url", url, "error", err)
			}
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Clone pipeline panicked", "clone_id", id, "panic", r)
			uc.fail(cleanup, id, p, fmt.Errorf("internal error: %v", r))
		}
	}()

	// The sandbox boots while the page is scraped and the model runs.
	sbCtx, cancelSandbox := context.WithCancel(ctx)
	defer cancelSandbox()
	sandboxes := make(chan sandboxResult, 1)
	go func() {
		if uc.Sandboxes == nil {
			sandboxes <- sandboxResult{}
			return
		}
		sb, err := uc.Sandboxes.Create(sbCtx)
		sandboxes <- sandboxResult{sb: sb, err: err}
	}()
	abort := func(err error) {
		cancelSandbox()
		go discardSandbox(cleanup, sandboxes)
		uc.fail(cleanup, id, p, err)
	}

	uc.setStatus(ctx, id, p, entity.StatusScraping, "Scraping website...")
	p.Log("Target URL: " + url)
	snap, err := uc.Extractor.Extract(ctx, url, p.Log)
	if err != nil {
		abort(err)
		return
	}
	uc.storeScreenshots(cleanup, id, snap)

	uc.setStatus(ctx, id, p, entity.StatusGenerating, "Generating clone with AI...")
	gen, err := uc.Generation.Generate(ctx, snap, p.Log)
	if err != nil {
		abort(err)
		return
	}
	usage := gen.Usage
	uc.update(cleanup, id, entity.CloneUpdate{GeneratedCode: parser.Render(gen.Files), Usage: &usage})
	p.Log(fmt.Sprintf("Generated %d files (%d tokens in, %d out)", len(gen.Files), usage.TokensIn, usage.TokensOut))

	uc.setStatus(ctx, id, p, entity.StatusDeploying, "Creating sandbox...")
	var res sandboxResult
	select {
	case res = <-sandboxes:
	case <-ctx.Done():
		go discardSandbox(cleanup, sandboxes)
		uc.fail(cleanup, id, p, ctx.Err())
		return
	}

	files, previewURL := gen.Files, ""
	switch {
	case res.err != nil:
		slog.Warn("Sandbox creation failed", "clone_id", id, "error", res.err)
		p.Log(fmt.Sprintf("Deployment error: %v", res.err))
	case res.sb == nil:
		p.Log("Sandbox not configured, skipping deployment")
	default:
		p.Log("Sandbox ready: " + res.sb.ID())
		var u entity.Usage
		files, previewURL, u, err = uc.deploy(ctx, id, res.sb, gen, p)
		usage.Add(u)
		if err != nil {
			slog.Warn("Deployment failed", "clone_id", id, "error", err)
			p.Log(fmt.Sprintf("Deployment error: %v", err))
		}
	}
	if err := ctx.Err(); err != nil {
		uc.fail(cleanup, id, p, err)
		return
	}

	code := parser.Render(files)
	tree := scaffold.Tree(files)
	uc.storeTree(cleanup, id, tree)
	uc.update(cleanup, id, entity.CloneUpdate{Status: entity.StatusDone, GeneratedCode: code, PreviewURL: previewURL, Usage: &usage})
	metrics.ClonesTotal.WithLabelValues(string(entity.StatusDone), "").Inc()
	slog.Info("Clone finished", "clone_id", id, "url", url, "files", len(files), "preview_url", previewURL, "duration_ms", time.Since(started).Milliseconds())
	p.Done(code, previewURL, tree)
}

// deploy builds the project in sb and starts the preview. The returned files
// include any build fixes even when err is set.
func (uc *clonePipeline) deploy(ctx context.Context, id string, sb repository.Sandbox, gen *entity.GenerationResult, p *Progress) ([]entity.GeneratedFile, string, entity.Usage, error) {
	files := gen.Files
	statusf := func(s entity.CloneStatus, msg string) { uc.setStatus(ctx, id, p, s, msg) }

	statusf(entity.StatusDeploying, "Uploading project files...")
	if err := uc.Builder.Prepare(ctx, sb, files, gen.Deps, p.Log); err != nil {
		return files, "", entity.Usage{}, err
	}

	statusf(entity.StatusDeploying, "Building project...")
	outcome, err := uc.Builder.BuildWithRetry(ctx, sb, files, gen.Deps, gen.FixContext, p.Log, statusf)
	var usage entity.Usage
	if outcome != nil {
		files, usage = outcome.Files, outcome.Usage
	}
	if err != nil {
		return files, "", usage, err
	}

	if outcome.Success && uc.Artifacts != nil {
		if html, ok := uc.Builder.CaptureStaticHTML(ctx, sb, p.Log); ok {
			uc.put(context.WithoutCancel(ctx), StaticHTMLKey(id), "text/html; charset=utf-8", []byte(html))
		}
	}

	statusf(entity.StatusDeploying, "Starting Next.js server...")
	url, err := uc.Builder.StartPreview(ctx, sb, p.Log)
	return files, url, usage, err
}

func (uc *clonePipeline) fail(ctx context.Context, id string, p *Progress, err error) {
	errorType := classifyError(err)
	metrics.ClonesTotal.WithLabelValues(string(entity.StatusError), errorType).Inc()
	slog.Error("Clone failed", "clone_id", id, "error_type", errorType, "error", err)

	msg := err.Error()
	uc.update(ctx, id, entity.CloneUpdate{Status: entity.StatusError, Error: msg})
	p.Log("Error: " + msg)
	p.Fail(msg)
}

func classifyError(err error) string {
	var pe *repository.ProviderError
	switch {
	case errors.Is(err, repository.ErrScrapeFailed):
		return "scrape"
	case errors.Is(err, repository.ErrNoFilesGenerated):
		return "no_files"
	case errors.Is(err, repository.ErrMissingCredentials):
		return "credentials"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &pe):
		return "provider"
	}
	return "unknown"
}

func (uc *clonePipeline) setStatus(ctx context.Context, id string, p *Progress, s entity.CloneStatus, msg string) {
	p.Status(s, msg)
	uc.update(context.WithoutCancel(ctx), id, entity.CloneUpdate{Status: s})
}

func (uc *clonePipeline) update(ctx context.Context, id string, upd entity.CloneUpdate) {
	if uc.Clones == nil {
		return
	}
	if err := uc.Clones.Update(ctx, id, upd); err != nil {
		slog.Warn("Failed to update clone record", "clone_id", id, "error", err)
	}
}

// archive returns the progress sink that appends events to the event log.
func (uc *clonePipeline) archive(ctx context.Context, id string) func(entity.Event) {
	if uc.Events == nil {
		return nil
	}
	ctx = context.WithoutCancel(ctx)
	return func(ev entity.Event) {
		actx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := uc.Events.Append(actx, id, ev); err != nil {
			slog.Warn("Failed to archive event", "clone_id", id, "seq", ev.Seq, "error", err)
		}
	}
}

func (uc *clonePipeline) storeScreenshots(ctx context.Context, id string, snap *entity.PageSnapshot) {
	if uc.Artifacts == nil {
		return
	}
	for i, s := range snap.Screenshots {
		uc.put(ctx, ScreenshotKey(id, i), "image/png", s.Image)
	}
}

func (uc *clonePipeline) storeTree(ctx context.Context, id string, tree map[string]string) {
	if uc.Artifacts == nil {
		return
	}
	data, err := json.Marshal(tree)
	if err != nil {
		slog.Warn("Failed to encode project tree", "clone_id", id, "error", err)
		return
	}
	uc.put(ctx, ProjectKey(id), "application/json", data)
}

func (uc *clonePipeline) put(ctx context.Context, key, contentType string, data []byte) {
	ctx, cancel := context.WithTimeout(ctx, cleanupTimeout)
	defer cancel()
	if err := uc.Artifacts.Put(ctx, key, contentType, data); err != nil {
		slog.Warn("Failed to store artifact", "key", key, "error", err)
	}
}

// discardSandbox waits for a pending creation and deletes the result.
func discardSandbox(ctx context.Context, results <-chan sandboxResult) {
	res := <-results
	if res.sb == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, cleanupTimeout)
	defer cancel()
	if err := res.sb.Delete(ctx); err != nil {
		slog.Warn("Failed to delete sandbox", "sandbox_id", res.sb.ID(), "error", err)
		return
	}
	slog.Info("Deleted unused sandbox", "sandbox_id", res.sb.ID())
}
