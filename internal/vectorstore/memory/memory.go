// Package memory provides an in-process vector store using brute-force
// cosine similarity. It backs tests and single-node development setups where
// running a vector database is not worth the trouble.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/koopa0/newsrag/internal/vectorstore"
)

// Store holds vectors in memory. Safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	dimension int
	entries   map[string]vectorstore.Entry
}

// New creates an empty store that accepts vectors of the given dimension.
func New(dimension int) (*Store, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", dimension)
	}
	return &Store{
		dimension: dimension,
		entries:   make(map[string]vectorstore.Entry),
	}, nil
}

// Upsert stores entries keyed by ID; an existing ID is overwritten.
func (s *Store) Upsert(_ context.Context, entries []vectorstore.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if len(e.Values) != s.dimension {
			return fmt.Errorf("entry %s: vector dimension %d, index expects %d", e.ID, len(e.Values), s.dimension)
		}
		s.entries[e.ID] = e
	}
	return nil
}

// Query returns the topK nearest entries by cosine similarity, higher first.
func (s *Store) Query(_ context.Context, vector []float32, topK int, includeMetadata bool) ([]vectorstore.Match, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("query vector dimension %d, index expects %d", len(vector), s.dimension)
	}
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]vectorstore.Match, 0, len(s.entries))
	for _, e := range s.entries {
		m := vectorstore.Match{
			ID:    e.ID,
			Score: cosine(vector, e.Values),
			Kind:  vectorstore.KindSimilarity,
		}
		if includeMetadata {
			m.Metadata = e.Metadata
		}
		matches = append(matches, m)
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if topK < len(matches) {
		matches = matches[:topK]
	}
	return matches, nil
}

// Stats reports the entry count; an empty store is still StatusOK because
// the "index" always exists in process.
func (s *Store) Stats(_ context.Context) (vectorstore.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return vectorstore.Stats{
		Count:     len(s.entries),
		Dimension: s.dimension,
		Status:    vectorstore.StatusOK,
	}, nil
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
