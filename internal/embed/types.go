// Package embed generates vector embeddings for text via Cohere's hosted API.
package embed

import (
	"context"
	"math"
	"time"
)

// InputType tells the embedding model how the text will be used.
// Documents and queries share the same vector space but are embedded
// with different prompts, so the two must not be mixed up.
type InputType string

const (
	InputTypeDocument InputType = "search_document"
	InputTypeQuery    InputType = "search_query"
)

// Common embedding constants
const (
	// MinBatchSize is the minimum allowed batch size
	MinBatchSize = 1

	// MaxBatchSize is the largest batch Cohere's embed endpoint accepts
	MaxBatchSize = 96

	// DefaultBatchSize is the default batch size for embedding requests
	DefaultBatchSize = 96

	// DefaultTimeout is the per-request timeout for embedding calls
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries is the default number of retry attempts
	DefaultMaxRetries = 3

	// DefaultDimensions is the embedding dimension for embed-english-v3.0
	DefaultDimensions = 1024
)

// Embedder generates vector embeddings for text
type Embedder interface {
	// Embed generates an embedding for a single text
	Embed(ctx context.Context, text string, inputType InputType) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts
	EmbedBatch(ctx context.Context, texts []string, inputType InputType) ([][]float32, error)

	// Dimensions returns the embedding dimension
	Dimensions() int

	// ModelName returns the model identifier
	ModelName() string

	// Close releases resources
	Close() error
}

// normalizeVector normalizes a vector to unit length.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
