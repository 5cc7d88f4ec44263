// Package retriever fuses short-term conversation context into the search
// query, embeds it, and maps vector index matches into ranked passages for
// the answer composer.
//
// Retrieval is best-effort by design: every failure in the chain (embedding,
// backend unreachable, index absent) degrades to an empty passage list. A
// downstream answer built without context beats an outage.
package retriever

import (
	"context"
	"log/slog"
	"strings"

	"github.com/koopa0/newsrag/internal/embedding"
	"github.com/koopa0/newsrag/internal/vectorstore"
)

// DefaultTopK matches the query-time profile of the news deployment.
const DefaultTopK = 12

// Placeholders for metadata fields missing from an index entry.
const (
	UnknownTitle  = "Unknown Title"
	UnknownURL    = "#"
	UnknownAuthor = "Unknown Author"
)

// Passage is one ranked, normalized retrieval result.
//
// Score is always a similarity: higher means more relevant. Backends that
// report distances are converted at this boundary (1 - distance), so
// downstream consumers never need to know which backend served the query.
type Passage struct {
	Text          string  `json:"text"`
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Authors       string  `json:"authors"`
	DatePublished string  `json:"date_publish"`
	ChunkOrdinal  int     `json:"chunk_id"`
	Score         float32 `json:"score"`
}

// Retriever embeds queries and searches the vector index.
type Retriever struct {
	embedder embedding.Client
	store    vectorstore.Store
	topK     int
	logger   *slog.Logger
}

// New creates a Retriever. topK <= 0 selects DefaultTopK.
func New(embedder embedding.Client, store vectorstore.Store, topK int, logger *slog.Logger) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{embedder: embedder, store: store, topK: topK, logger: logger}
}

// Retrieve returns up to topK passages relevant to query. A non-empty
// conversationContext is prepended to the query before embedding to bias
// recall toward topic continuity without discarding the literal question.
// topK <= 0 falls back to the retriever's configured bound.
//
// Retrieve never fails; errors are logged and yield an empty slice.
func (r *Retriever) Retrieve(ctx context.Context, query, conversationContext string, topK int) []Passage {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	if topK <= 0 {
		topK = r.topK
	}

	searchQuery := query
	if conversationContext != "" {
		searchQuery = conversationContext + " " + query
	}

	vector, err := r.embedder.Embed(ctx, searchQuery)
	if err != nil {
		r.logger.Warn("embedding failed, returning no passages", "error", err)
		return nil
	}

	matches, err := r.store.Query(ctx, vector, topK, true)
	if err != nil {
		r.logger.Warn("vector query failed, returning no passages", "error", err)
		return nil
	}

	passages := make([]Passage, 0, len(matches))
	for _, m := range matches {
		p := toPassage(m)
		if strings.TrimSpace(p.Text) == "" {
			continue
		}
		passages = append(passages, p)
	}
	return passages
}

// toPassage maps a raw match to a Passage, filling missing metadata with
// explicit placeholders and normalizing the score convention.
func toPassage(m vectorstore.Match) Passage {
	p := Passage{
		Title:   UnknownTitle,
		URL:     UnknownURL,
		Authors: UnknownAuthor,
		Score:   normalizeScore(m),
	}
	if m.Metadata == nil {
		return p
	}

	if v, ok := m.Metadata["text"].(string); ok {
		p.Text = v
	}
	if v, ok := m.Metadata["title"].(string); ok && v != "" {
		p.Title = v
	}
	if v, ok := m.Metadata["url"].(string); ok && v != "" {
		p.URL = v
	}
	if v, ok := m.Metadata["authors"].(string); ok && v != "" {
		p.Authors = v
	}
	if v, ok := m.Metadata["date_publish"].(string); ok {
		p.DatePublished = v
	}
	switch v := m.Metadata["chunk_id"].(type) {
	case float64: // JSON numbers decode as float64
		p.ChunkOrdinal = int(v)
	case int:
		p.ChunkOrdinal = v
	}
	return p
}

// normalizeScore converts to the canonical similarity convention, where
// higher is more relevant. Cosine distance d becomes 1 - d.
func normalizeScore(m vectorstore.Match) float32 {
	if m.Kind == vectorstore.KindDistance {
		return 1 - m.Score
	}
	return m.Score
}
