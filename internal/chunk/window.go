package chunk

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"
)

// WindowChunker splits files into fixed-size character windows with overlap.
// Offsets are measured in runes so multi-byte content chunks predictably.
type WindowChunker struct {
	size    int
	overlap int
}

// Compile-time check that WindowChunker implements Chunker.
var _ Chunker = (*WindowChunker)(nil)

// NewWindowChunker creates a chunker with the given window size and overlap.
func NewWindowChunker(size, overlap int) (*WindowChunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("chunk overlap must be non-negative, got %d", overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunk overlap (%d) must be smaller than size (%d)", overlap, size)
	}
	return &WindowChunker{size: size, overlap: overlap}, nil
}

// Chunk splits a file into overlapping windows.
// A window starts every size-overlap characters; the final window is
// truncated at the end of the file. Empty files produce no chunks.
func (c *WindowChunker) Chunk(ctx context.Context, file *FileInput) ([]*Chunk, error) {
	if file == nil {
		return nil, fmt.Errorf("file input is nil")
	}
	if !utf8.Valid(file.Content) {
		return nil, fmt.Errorf("%s is not valid UTF-8", file.Path)
	}

	runes := []rune(string(file.Content))
	if len(runes) == 0 {
		return nil, nil
	}

	stride := c.size - c.overlap
	var chunks []*Chunk

	for index, start := 0, 0; start < len(runes); index, start = index+1, start+stride {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}

		content := string(runes[start:end])
		if strings.TrimSpace(content) == "" {
			if end == len(runes) {
				break
			}
			continue
		}
		startLine := 1 + countNewlines(runes[:start])
		endLine := startLine + countNewlines(runes[start:end])
		if end > start && runes[end-1] == '\n' {
			endLine--
		}

		chunks = append(chunks, &Chunk{
			ID:          chunkID(file.Path, index),
			FilePath:    file.Path,
			Content:     content,
			Index:       index,
			StartOffset: start,
			EndOffset:   end,
			StartLine:   startLine,
			EndLine:     endLine,
			Language:    file.Language,
		})

		if end == len(runes) {
			break
		}
	}

	return chunks, nil
}

// chunkID derives a stable chunk identifier from path and sequence index.
func chunkID(path string, seq int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s\x00%d", path, seq)))
	return hex.EncodeToString(sum[:])[:16]
}

func countNewlines(runes []rune) int {
	n := 0
	for _, r := range runes {
		if r == '\n' {
			n++
		}
	}
	return n
}
