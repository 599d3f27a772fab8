// Package ingest runs the indexing pipeline: scan the codebase, chunk
// changed files, embed the chunks, and store vectors plus metadata.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jagdteam/clicr/internal/chunk"
	"github.com/jagdteam/clicr/internal/config"
	"github.com/jagdteam/clicr/internal/embed"
	"github.com/jagdteam/clicr/internal/scanner"
	"github.com/jagdteam/clicr/internal/store"
	"github.com/jagdteam/clicr/internal/tracker"
	"github.com/jagdteam/clicr/internal/ui"
)

// Deps contains the injected dependencies for a Runner.
type Deps struct {
	// Config is the loaded project configuration (required).
	Config *config.Config

	// Writer renders progress and status lines (required).
	Writer *ui.Writer

	// Chunker splits file content into windows (required).
	Chunker chunk.Chunker

	// Embedder turns chunk text into vectors (required).
	Embedder embed.Embedder

	// Index stores vectors and chunk metadata (required).
	Index *store.Index

	// Tracker holds the per-file content digests (required).
	Tracker *tracker.Tracker
}

// Options configures one ingest run.
type Options struct {
	// RootDir is the codebase root to index.
	RootDir string

	// Incremental re-indexes only files whose content digest changed.
	// A full run re-embeds everything.
	Incremental bool
}

// Result summarizes an ingest run.
type Result struct {
	FilesScanned int
	FilesIndexed int
	FilesSkipped int
	FilesDeleted int
	ChunksStored int
	Duration     time.Duration
}

// Runner executes ingest runs with injected dependencies.
type Runner struct {
	config   *config.Config
	writer   *ui.Writer
	chunker  chunk.Chunker
	embedder embed.Embedder
	index    *store.Index
	tracker  *tracker.Tracker
}

// NewRunner creates a Runner.
func NewRunner(deps Deps) (*Runner, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Writer == nil {
		return nil, fmt.Errorf("writer is required")
	}
	if deps.Chunker == nil {
		return nil, fmt.Errorf("chunker is required")
	}
	if deps.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if deps.Index == nil {
		return nil, fmt.Errorf("index is required")
	}
	if deps.Tracker == nil {
		return nil, fmt.Errorf("tracker is required")
	}

	return &Runner{
		config:   deps.Config,
		writer:   deps.Writer,
		chunker:  deps.Chunker,
		embedder: deps.Embedder,
		index:    deps.Index,
		tracker:  deps.Tracker,
	}, nil
}

// fileContent is a scanned file read into memory.
type fileContent struct {
	info    *scanner.FileInfo
	content []byte
	digest  string
}

// Run executes the pipeline. Hash entries are committed per file only
// after that file's chunks are stored, so an aborted run resumes cleanly.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	result := &Result{}

	files, err := r.scan(ctx, opts.RootDir)
	if err != nil {
		return nil, err
	}
	result.FilesScanned = len(files)

	contents, err := r.readAll(ctx, files)
	if err != nil {
		return nil, err
	}

	current := make(map[string]string, len(contents))
	byPath := make(map[string]*fileContent, len(contents))
	for _, fc := range contents {
		current[fc.info.Path] = fc.digest
		byPath[fc.info.Path] = fc
	}

	var toIndex []string
	if opts.Incremental {
		diff := r.tracker.DiffAgainst(current)
		toIndex = append(append([]string{}, diff.Added...), diff.Changed...)
		sort.Strings(toIndex)
		result.FilesSkipped = len(current) - len(toIndex)

		if err := r.removeDeleted(ctx, diff.Removed, result); err != nil {
			return nil, err
		}
	} else {
		toIndex = make([]string, 0, len(current))
		for path := range current {
			toIndex = append(toIndex, path)
		}
		sort.Strings(toIndex)

		var stale []string
		for _, path := range r.tracker.Paths() {
			if _, ok := current[path]; !ok {
				stale = append(stale, path)
			}
		}
		if err := r.removeDeleted(ctx, stale, result); err != nil {
			return nil, err
		}
	}

	slog.Info("ingest_plan",
		slog.String("root", opts.RootDir),
		slog.Bool("incremental", opts.Incremental),
		slog.Int("scanned", result.FilesScanned),
		slog.Int("to_index", len(toIndex)),
		slog.Int("deleted", result.FilesDeleted))

	for i, path := range toIndex {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		stored, err := r.indexFile(ctx, byPath[path])
		if err != nil {
			return nil, fmt.Errorf("failed to index %s: %w", path, err)
		}

		result.FilesIndexed++
		result.ChunksStored += stored
		r.writer.Progress(i+1, len(toIndex), "embedding")
	}

	if err := r.index.Save(); err != nil {
		return nil, err
	}
	if err := r.tracker.Save(); err != nil {
		return nil, err
	}

	result.Duration = time.Since(start)
	slog.Info("ingest_done",
		slog.Int("indexed", result.FilesIndexed),
		slog.Int("skipped", result.FilesSkipped),
		slog.Int("chunks", result.ChunksStored),
		slog.Duration("duration", result.Duration))
	return result, nil
}

// scan collects all indexable files under root.
func (r *Runner) scan(ctx context.Context, root string) ([]*scanner.FileInfo, error) {
	results, err := scanner.New().Scan(ctx, &scanner.ScanOptions{
		RootDir:           root,
		AllowedExtensions: r.config.Crawl.AllowedExtensions,
		IgnoreDirs:        r.config.Crawl.IgnoreDirs,
		IgnoreFiles:       r.config.Crawl.IgnoreFiles,
		MaxFileSize:       r.config.Crawl.MaxFileSize,
	})
	if err != nil {
		return nil, err
	}

	var files []*scanner.FileInfo
	for res := range results {
		if res.Error != nil {
			return nil, res.Error
		}
		files = append(files, res.File)
	}
	return files, nil
}

// readAll reads and hashes the scanned files with bounded parallelism.
// Unreadable files are logged and skipped.
func (r *Runner) readAll(ctx context.Context, files []*scanner.FileInfo) ([]*fileContent, error) {
	var (
		mu       sync.Mutex
		contents []*fileContent
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for _, info := range files {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			data, err := os.ReadFile(info.AbsPath)
			if err != nil {
				slog.Warn("skipping unreadable file",
					slog.String("path", info.Path),
					slog.String("error", err.Error()))
				return nil
			}

			mu.Lock()
			contents = append(contents, &fileContent{
				info:    info,
				content: data,
				digest:  tracker.HashBytes(data),
			})
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return contents, nil
}

// indexFile chunks, embeds, and stores one file, then commits its hash.
// Existing chunks for the path are replaced so shrunken files leave no
// stale entries behind.
func (r *Runner) indexFile(ctx context.Context, fc *fileContent) (int, error) {
	chunks, err := r.chunker.Chunk(ctx, &chunk.FileInput{
		Path:     fc.info.Path,
		Content:  fc.content,
		Language: fc.info.Language,
	})
	if err != nil {
		slog.Warn("skipping unchunkable file",
			slog.String("path", fc.info.Path),
			slog.String("error", err.Error()))
		return 0, nil
	}

	if err := r.index.DeleteByPath(ctx, fc.info.Path); err != nil {
		return 0, err
	}

	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		records := make([]store.ChunkRecord, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Content
			records[i] = store.ChunkRecord{
				ID:          c.ID,
				FilePath:    c.FilePath,
				Content:     c.Content,
				ChunkIndex:  c.Index,
				StartOffset: c.StartOffset,
				EndOffset:   c.EndOffset,
				StartLine:   c.StartLine,
				EndLine:     c.EndLine,
				Language:    c.Language,
			}
		}

		vectors, err := r.embedder.EmbedBatch(ctx, texts, embed.InputTypeDocument)
		if err != nil {
			return 0, err
		}
		if err := r.index.Upsert(ctx, records, vectors); err != nil {
			return 0, err
		}
	}

	// Hash commits only after storage succeeded.
	r.tracker.Set(fc.info.Path, fc.digest)
	if err := r.tracker.Save(); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

// removeDeleted drops index entries and hash entries for removed files.
func (r *Runner) removeDeleted(ctx context.Context, paths []string, result *Result) error {
	for _, path := range paths {
		if err := r.index.DeleteByPath(ctx, path); err != nil {
			return err
		}
		r.tracker.Delete(path)
		result.FilesDeleted++
		slog.Debug("removed deleted file from index", slog.String("path", path))
	}
	return nil
}
