// Command clone runs one clone locally and writes the generated project to disk.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/user/clone-service/internal/adapter/lru"
	"github.com/user/clone-service/internal/app"
	"github.com/user/clone-service/internal/entity"
	"github.com/user/clone-service/internal/usecase"
	"github.com/user/clone-service/pkg/config"
	"github.com/user/clone-service/pkg/logger"
)

type options struct {
	url      string
	outDir   string
	envFile  string
	sandbox  string
	provider string
	verbose  bool
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	os.Exit(run(opts))
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("clone", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.outDir, "out", "", "Directory to write the generated project to")
	fs.StringVar(&opts.envFile, "env", ".env", "Env file with service configuration")
	fs.StringVar(&opts.sandbox, "sandbox", "", "Override SANDBOX_MODE: daytona, local or none")
	fs.StringVar(&opts.provider, "provider", "", "Override LLM_PROVIDER: openrouter or gemini")
	fs.BoolVar(&opts.verbose, "verbose", false, "Log pipeline internals to stderr")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: clone [flags] <url>")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return opts, errors.New("expected exactly one url")
	}
	opts.url = fs.Arg(0)
	return opts, nil
}

func run(opts options) int {
	cfg, err := config.LoadFile(opts.envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	if opts.sandbox != "" {
		cfg.SandboxMode = opts.sandbox
	}
	if opts.provider != "" {
		cfg.LLMProvider = opts.provider
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger.Init(os.Stderr, level, "text")

	components, err := app.NewComponents(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer components.Close()

	events, err := lru.NewEventLog(1)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	pipeline := usecase.NewClonePipeline(usecase.PipelineDeps{
		Extractor:  components.Extractor,
		Generation: components.Generation,
		Builder:    components.Builder,
		Sandboxes:  components.Sandboxes,
		Events:     events,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	id, stream, err := pipeline.Start(ctx, opts.url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return follow(stream, os.Stdout, id, opts.outDir)
}

// follow prints events until the stream closes and writes the finished
// project to outDir. It returns the process exit code.
func follow(stream <-chan entity.Event, w io.Writer, cloneID, outDir string) int {
	code := 1
	for ev := range stream {
		fmt.Fprintln(w, formatEvent(ev, time.Now()))
		if ev.Status != entity.StatusDone {
			continue
		}
		code = 0
		if outDir != "" {
			if err := writeProject(outDir, ev.Files); err != nil {
				fmt.Fprintln(w, formatEvent(entity.Event{Status: entity.StatusError, Message: err.Error()}, time.Now()))
				code = 1
				continue
			}
		}
		fmt.Fprintln(w, formatSummary(cloneID, outDir, ev.PreviewURL, len(ev.Files)))
	}
	return code
}

// writeProject writes tree under dir. Paths that would leave dir are rejected.
func writeProject(dir string, tree map[string]string) error {
	paths := make([]string, 0, len(tree))
	for p := range tree {
		if !filepath.IsLocal(filepath.FromSlash(p)) {
			return fmt.Errorf("refusing to write %q outside %s", p, dir)
		}
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		target := filepath.Join(dir, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(target, []byte(tree[p]), 0o644); err != nil {
			return err
		}
	}
	return nil
}
