package store

import (
	"context"
	"fmt"
	"path/filepath"

	clicrerrors "github.com/jagdteam/clicr/internal/errors"
)

// Index file names inside the data directory.
const (
	VectorFileName = "vectors.hnsw"
	ChunkDBName    = "chunks.db"
)

// Index combines the vector store and the chunk metadata store behind
// one interface. Vector IDs are chunk IDs, so the two stay aligned.
type Index struct {
	vectors    *HNSWStore
	chunks     *ChunkStore
	vectorPath string
}

// Open opens the index in dataDir, loading a saved vector store when
// one exists or creating an empty one with the given dimensions.
func Open(dataDir string, dimensions int) (*Index, error) {
	chunks, err := NewChunkStore(filepath.Join(dataDir, ChunkDBName))
	if err != nil {
		return nil, clicrerrors.Wrap(err, clicrerrors.ErrCodeStoreFailed, "failed to open chunk store")
	}

	vectorPath := filepath.Join(dataDir, VectorFileName)
	vectors, err := NewHNSWStore(VectorStoreConfig{Dimensions: dimensions})
	if err != nil {
		_ = chunks.Close()
		return nil, err
	}

	if VectorFileExists(vectorPath) {
		if err := vectors.Load(vectorPath); err != nil {
			_ = chunks.Close()
			return nil, clicrerrors.Wrap(err, clicrerrors.ErrCodeCorruptIndex, "vector index is unreadable").
				WithSuggestion("run 'clicr ingest' to rebuild the index")
		}
		if vectors.Dimensions() != dimensions {
			_ = chunks.Close()
			return nil, clicrerrors.New(clicrerrors.ErrCodeDimensionMismatch,
				fmt.Sprintf("saved index has %d dimensions, embedder produces %d", vectors.Dimensions(), dimensions)).
				WithSuggestion("run 'clicr ingest' to rebuild the index with the current model")
		}
	}

	return &Index{
		vectors:    vectors,
		chunks:     chunks,
		vectorPath: vectorPath,
	}, nil
}

// Upsert stores chunk records and their vectors together.
// Metadata is written first so a vector never points at a missing chunk.
func (ix *Index) Upsert(ctx context.Context, records []ChunkRecord, vectors [][]float32) error {
	if len(records) != len(vectors) {
		return fmt.Errorf("records and vectors length mismatch: %d vs %d", len(records), len(vectors))
	}
	if len(records) == 0 {
		return nil
	}

	if err := ix.chunks.Upsert(ctx, records); err != nil {
		return clicrerrors.Wrap(err, clicrerrors.ErrCodeStoreFailed, "failed to store chunk metadata")
	}

	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	if err := ix.vectors.Add(ctx, ids, vectors); err != nil {
		return clicrerrors.Wrap(err, clicrerrors.ErrCodeStoreFailed, "failed to store vectors")
	}
	return nil
}

// Search returns the k most similar chunks to the query vector.
func (ix *Index) Search(ctx context.Context, query []float32, k int) ([]SearchResult, error) {
	hits, err := ix.vectors.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return []SearchResult{}, nil
	}

	ids := make([]string, len(hits))
	scores := make(map[string]float32, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
		scores[h.ID] = h.Score
	}

	records, err := ix.chunks.GetByIDs(ctx, ids)
	if err != nil {
		return nil, clicrerrors.Wrap(err, clicrerrors.ErrCodeStoreFailed, "failed to load chunk metadata")
	}

	results := make([]SearchResult, 0, len(records))
	for _, r := range records {
		results = append(results, SearchResult{Chunk: r, Score: scores[r.ID]})
	}
	return results, nil
}

// DeleteByPath removes all chunks and vectors for a file.
func (ix *Index) DeleteByPath(ctx context.Context, filePath string) error {
	ids, err := ix.chunks.DeleteByPath(ctx, filePath)
	if err != nil {
		return clicrerrors.Wrap(err, clicrerrors.ErrCodeStoreFailed, "failed to delete chunk metadata")
	}
	if len(ids) == 0 {
		return nil
	}
	return ix.vectors.Delete(ctx, ids)
}

// Count returns the number of indexed chunks.
func (ix *Index) Count(ctx context.Context) (int, error) {
	return ix.chunks.Count(ctx)
}

// Paths returns the distinct indexed file paths.
func (ix *Index) Paths(ctx context.Context) ([]string, error) {
	return ix.chunks.Paths(ctx)
}

// VectorCount returns the number of live vectors.
func (ix *Index) VectorCount() int {
	return ix.vectors.Count()
}

// Save persists the vector store. SQLite writes are already durable.
func (ix *Index) Save() error {
	if err := ix.vectors.Save(ix.vectorPath); err != nil {
		return clicrerrors.Wrap(err, clicrerrors.ErrCodeStoreFailed, "failed to save vector index")
	}
	return nil
}

// Close closes both stores.
func (ix *Index) Close() error {
	vErr := ix.vectors.Close()
	cErr := ix.chunks.Close()
	if vErr != nil {
		return vErr
	}
	return cErr
}
