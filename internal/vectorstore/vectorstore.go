// Package vectorstore defines the uniform interface over the interchangeable
// vector-search backends. Concrete implementations (chroma, pinecone, memory)
// normalize their backend-specific query and response shapes at this
// boundary, so the retriever never sees wire formats.
//
// The backends disagree on score semantics: the document-store backend
// returns cosine distances (lower is more relevant) while the serverless
// backend returns similarity scores (higher is more relevant). Each Match
// carries a ScoreKind tag so the caller can normalize once.
package vectorstore

import (
	"context"
	"errors"
)

// ScoreKind tags which ranking convention a backend uses.
type ScoreKind string

const (
	// KindDistance marks scores where lower means more relevant.
	KindDistance ScoreKind = "distance"

	// KindSimilarity marks scores where higher means more relevant.
	KindSimilarity ScoreKind = "similarity"
)

// Index status values reported by Stats.
const (
	StatusOK       = "ok"
	StatusNotFound = "index_not_found"
)

// ErrNotInitialized indicates the named index or collection does not exist
// yet, typically because ingestion has not run. Callers treat this as a
// recoverable, reported state rather than a crash.
var ErrNotInitialized = errors.New("vector index not initialized")

// Entry is one (id, vector, metadata) triple persisted in the index.
// Metadata carries the chunk's denormalized fields for retrieval-time
// display, avoiding a second lookup.
type Entry struct {
	ID       string
	Values   []float32
	Metadata map[string]any
}

// Match is one ranked query result.
type Match struct {
	ID       string
	Score    float32
	Kind     ScoreKind
	Metadata map[string]any
}

// Stats summarizes the index state without side effects.
type Stats struct {
	Count     int
	Dimension int
	Status    string
}

// Store is the capability interface implemented by every backend. Upsert is
// idempotent under the deterministic chunk ID scheme: re-upserting an ID
// overwrites rather than duplicates. All implementations are safe for
// concurrent use.
type Store interface {
	Upsert(ctx context.Context, entries []Entry) error
	Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]Match, error)
	Stats(ctx context.Context) (Stats, error)
}
