// Package store persists indexed chunks: vectors in an HNSW graph and
// chunk metadata in SQLite.
package store

import (
	"context"
	"fmt"
)

// VectorStoreConfig configures the vector index.
type VectorStoreConfig struct {
	// Dimensions is the embedding dimension. Required.
	Dimensions int

	// Metric is the distance metric: "cos" (default) or "l2".
	Metric string

	// M is the maximum number of HNSW graph connections per node.
	M int

	// EfSearch controls search accuracy vs speed.
	EfSearch int
}

// VectorResult is one nearest-neighbor hit.
type VectorResult struct {
	ID       string
	Distance float32
	Score    float32
}

// VectorStore stores embeddings and finds nearest neighbors.
type VectorStore interface {
	// Add inserts vectors with their IDs, replacing existing IDs
	Add(ctx context.Context, ids []string, vectors [][]float32) error

	// Search finds the k nearest neighbors to the query vector
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)

	// Delete removes vectors by ID
	Delete(ctx context.Context, ids []string) error

	// Count returns the number of stored vectors
	Count() int

	// Close releases resources
	Close() error
}

// ChunkRecord is the stored metadata for one indexed chunk.
type ChunkRecord struct {
	ID          string
	FilePath    string
	Content     string
	ChunkIndex  int
	StartOffset int
	EndOffset   int
	StartLine   int
	EndLine     int
	Language    string
}

// SearchResult pairs a chunk with its similarity score.
type SearchResult struct {
	Chunk ChunkRecord
	Score float32
}

// ErrDimensionMismatch indicates a vector's dimension does not match the index.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}
