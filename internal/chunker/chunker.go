// Package chunker splits article text into overlapping fixed-size passages
// suitable for embedding. Chunking is stateless and deterministic: the same
// input and configuration always produce the same sequence, which keeps
// re-ingestion idempotent when paired with deterministic chunk IDs.
package chunker

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// DefaultSize is the default chunk window size in characters.
	DefaultSize = 500

	// DefaultOverlap is the default number of characters shared between
	// consecutive chunks.
	DefaultOverlap = 100

	// MinChunkLen is the meaningful-content floor. Windows at or below
	// this length after trimming are dropped.
	MinChunkLen = 100
)

// ErrInvalidWindow indicates a size/overlap combination that cannot advance
// the cursor (overlap >= size) or a non-positive size.
var ErrInvalidWindow = errors.New("invalid chunk window")

// Chunker splits text into overlapping character windows.
type Chunker struct {
	size    int
	overlap int
}

// New creates a Chunker. Zero values select the defaults. A configuration
// where overlap >= size would never advance the cursor and is rejected.
func New(size, overlap int) (*Chunker, error) {
	if size == 0 {
		size = DefaultSize
		if overlap == 0 {
			overlap = DefaultOverlap
		}
	}
	if size < 0 || overlap < 0 {
		return nil, fmt.Errorf("%w: size=%d overlap=%d must be non-negative", ErrInvalidWindow, size, overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("%w: overlap %d >= size %d would not advance", ErrInvalidWindow, overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split produces the chunk sequence for text. Each window is trimmed and
// windows at or below MinChunkLen characters are dropped. The window is
// measured in runes so multi-byte text never splits mid-character.
func (c *Chunker) Split(text string) []string {
	runes := []rune(text)
	stride := c.size - c.overlap

	var chunks []string
	for start := 0; start < len(runes); start += stride {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if len([]rune(chunk)) > MinChunkLen {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

// Chunk is a convenience wrapper that validates the window and splits text
// in one call.
func Chunk(text string, size, overlap int) ([]string, error) {
	c, err := New(size, overlap)
	if err != nil {
		return nil, err
	}
	return c.Split(text), nil
}
