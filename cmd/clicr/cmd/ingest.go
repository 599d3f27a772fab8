package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jagdteam/clicr/internal/chunk"
	"github.com/jagdteam/clicr/internal/ingest"
	"github.com/jagdteam/clicr/internal/ui"
	"github.com/jagdteam/clicr/internal/watcher"
)

type ingestOptions struct {
	incremental bool
	watch       bool
	interval    int
	dataDir     string
}

func newIngestCmd() *cobra.Command {
	opts := &ingestOptions{}

	cmd := &cobra.Command{
		Use:   "ingest [dir]",
		Short: "Index the codebase into the vector store",
		Long: `Crawl the codebase, chunk each file, embed the chunks through
Cohere, and store the vectors for retrieval.

A full run re-embeds everything. With --incremental only files whose
content changed since the last run are re-embedded, which keeps API
usage down on large codebases.

Examples:
  # Index the current project
  clicr ingest

  # Re-index only changed files
  clicr ingest --incremental

  # Keep the index in sync while editing
  clicr ingest --watch --interval 30`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) > 0 {
				dir = args[0]
			}
			return runIngest(cmd, dir, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.incremental, "incremental", false, "Only re-index files whose content changed")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Keep re-indexing on an interval until interrupted")
	cmd.Flags().IntVar(&opts.interval, "interval", 0, "Watch interval in seconds (default from config)")
	cmd.Flags().StringVar(&opts.dataDir, "data-dir", "", "Override the index data directory")

	return cmd
}

func runIngest(cmd *cobra.Command, dir string, opts *ingestOptions) error {
	proj, err := resolveProject(dir, opts.dataDir)
	if err != nil {
		return err
	}
	if err := proj.cfg.RequireAPIKey(); err != nil {
		return err
	}

	lock := ingest.NewLock(proj.dataDir)
	if err := lock.Acquire(); err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	writer := ui.New(cmd.OutOrStdout())

	embedder, err := proj.newEmbedder()
	if err != nil {
		return err
	}
	defer func() { _ = embedder.Close() }()

	index, err := proj.openIndex(embedder.Dimensions())
	if err != nil {
		return err
	}
	defer func() { _ = index.Close() }()

	tr, err := proj.loadTracker()
	if err != nil {
		return err
	}

	chunker, err := chunk.NewWindowChunker(proj.cfg.Chunking.Size, proj.cfg.Chunking.Overlap)
	if err != nil {
		return err
	}

	runner, err := ingest.NewRunner(ingest.Deps{
		Config:   proj.cfg,
		Writer:   writer,
		Chunker:  chunker,
		Embedder: embedder,
		Index:    index,
		Tracker:  tr,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.watch {
		return runWatch(ctx, writer, runner, proj, opts)
	}

	writer.Statusf("🔍", "Indexing %s", proj.root)
	result, err := runner.Run(ctx, ingest.Options{
		RootDir:     proj.root,
		Incremental: opts.incremental,
	})
	if err != nil {
		return err
	}

	writer.ProgressDone()
	printIngestResult(writer, result)
	return nil
}

// runWatch runs one initial pass honoring the flags, then re-runs
// incrementally on a ticker until interrupted.
func runWatch(ctx context.Context, writer *ui.Writer, runner *ingest.Runner, proj *project, opts *ingestOptions) error {
	interval := proj.cfg.Watch.Interval
	if opts.interval > 0 {
		interval = time.Duration(opts.interval) * time.Second
	}

	first := true
	w := watcher.New(interval, func(ctx context.Context) error {
		incremental := opts.incremental || !first
		first = false

		result, err := runner.Run(ctx, ingest.Options{
			RootDir:     proj.root,
			Incremental: incremental,
		})
		if err != nil {
			return err
		}
		if result.FilesIndexed > 0 || result.FilesDeleted > 0 {
			writer.ProgressDone()
			printIngestResult(writer, result)
		}
		return nil
	})

	writer.Statusf("👀", "Watching %s (every %s, Ctrl-C to stop)", proj.root, w.Interval())

	err := w.Start(ctx)
	if err == context.Canceled {
		writer.Status("", "Watch stopped.")
		return nil
	}
	return err
}

func printIngestResult(writer *ui.Writer, result *ingest.Result) {
	writer.Successf("Indexed %d of %d files (%d chunks) in %s",
		result.FilesIndexed, result.FilesScanned, result.ChunksStored,
		result.Duration.Round(time.Millisecond))
	if result.FilesSkipped > 0 {
		writer.Statusf("", "%d unchanged files skipped", result.FilesSkipped)
	}
	if result.FilesDeleted > 0 {
		writer.Statusf("", "%d deleted files removed from the index", result.FilesDeleted)
	}
}
