// Package chunk splits files into overlapping retrievable units.
package chunk

import (
	"context"
)

// Default window parameters.
const (
	DefaultChunkSize = 500 // Characters per chunk
	DefaultOverlap   = 50  // Characters shared between adjacent chunks
)

// Chunk is a retrievable unit of content.
type Chunk struct {
	ID          string // SHA256(file_path + start_offset), first 16 hex chars
	FilePath    string // Relative to project root
	Content     string
	Index       int // Ordinal within the file, 0-based
	StartOffset int // Character offset, inclusive
	EndOffset   int // Character offset, exclusive
	StartLine   int // 1-indexed
	EndLine     int // Inclusive
	Language    string
}

// FileInput is input for the Chunker interface.
type FileInput struct {
	Path     string // Relative path
	Content  []byte // File content
	Language string // go, typescript, python, etc.
}

// Chunker is the interface for splitting files into chunks.
type Chunker interface {
	Chunk(ctx context.Context, file *FileInput) ([]*Chunk, error)
}
