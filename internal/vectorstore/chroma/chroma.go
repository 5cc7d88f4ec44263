// Package chroma implements the vector store interface over a ChromaDB
// server via its REST API. The collection is resolved by name before use; a
// missing collection is reported as a not-initialized state instead of an
// error the caller cannot act on, since ingestion may simply not have run.
//
// Chroma returns cosine distances: lower is more relevant. Matches are
// tagged vectorstore.KindDistance accordingly.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/koopa0/newsrag/internal/vectorstore"
)

// DefaultCollection is the collection holding ingested news chunks.
const DefaultCollection = "news_articles"

const requestTimeout = 15 * time.Second

// Store is a minimal REST client to a Chroma server.
type Store struct {
	baseURL    string
	collection string
	dimension  int
	client     *http.Client
	logger     *slog.Logger

	mu           sync.Mutex
	collectionID string
}

// Config configures the Chroma store.
type Config struct {
	// BaseURL is the server address, e.g. "http://localhost:8000".
	BaseURL string

	// Collection defaults to DefaultCollection.
	Collection string

	// Dimension is the declared index dimensionality, validated on upsert.
	Dimension int
}

// New creates a Chroma-backed store. The collection is resolved lazily so a
// server that is still empty does not fail process startup.
func New(cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("chroma: base URL is required")
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("chroma: invalid dimension %d", cfg.Dimension)
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
		client:     &http.Client{Timeout: requestTimeout},
		logger:     logger,
	}, nil
}

type collectionInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// resolve looks up the collection ID by name, caching it once found.
// Returns vectorstore.ErrNotInitialized when the collection does not exist.
func (s *Store) resolve(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collectionID != "" {
		return s.collectionID, nil
	}

	var collections []collectionInfo
	if err := s.do(ctx, http.MethodGet, "/api/v1/collections", nil, &collections); err != nil {
		return "", err
	}
	for _, c := range collections {
		if c.Name == s.collection {
			s.collectionID = c.ID
			return c.ID, nil
		}
	}
	return "", fmt.Errorf("%w: collection %q not found", vectorstore.ErrNotInitialized, s.collection)
}

// ensure resolves the collection, creating it when absent. Used by the
// ingestion path only; the query path never creates collections.
func (s *Store) ensure(ctx context.Context) (string, error) {
	id, err := s.resolve(ctx)
	if err == nil {
		return id, nil
	}

	body := map[string]any{
		"name":          s.collection,
		"get_or_create": true,
		"metadata":      map[string]any{"hnsw:space": "cosine"},
	}
	var created collectionInfo
	if err := s.do(ctx, http.MethodPost, "/api/v1/collections", body, &created); err != nil {
		return "", fmt.Errorf("creating collection %q: %w", s.collection, err)
	}
	s.logger.Info("created chroma collection", "name", s.collection, "id", created.ID)

	s.mu.Lock()
	s.collectionID = created.ID
	s.mu.Unlock()
	return created.ID, nil
}

// Upsert writes entries under their deterministic IDs; existing IDs are
// overwritten. The collection is created on first ingestion.
func (s *Store) Upsert(ctx context.Context, entries []vectorstore.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	ids := make([]string, len(entries))
	embeddings := make([][]float32, len(entries))
	metadatas := make([]map[string]any, len(entries))
	documents := make([]string, len(entries))
	for i, e := range entries {
		if len(e.Values) != s.dimension {
			return fmt.Errorf("chroma: entry %s has dimension %d, index expects %d", e.ID, len(e.Values), s.dimension)
		}
		ids[i] = e.ID
		embeddings[i] = e.Values
		metadatas[i] = e.Metadata
		if text, ok := e.Metadata["text"].(string); ok {
			documents[i] = text
		}
	}

	id, err := s.ensure(ctx)
	if err != nil {
		return err
	}

	body := map[string]any{
		"ids":        ids,
		"embeddings": embeddings,
		"metadatas":  metadatas,
		"documents":  documents,
	}
	return s.do(ctx, http.MethodPost, "/api/v1/collections/"+id+"/upsert", body, nil)
}

type queryResponse struct {
	IDs       [][]string         `json:"ids"`
	Distances [][]float32        `json:"distances"`
	Metadatas [][]map[string]any `json:"metadatas"`
	Documents [][]string         `json:"documents"`
}

// Query returns the topK nearest entries with cosine distances.
func (s *Store) Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]vectorstore.Match, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("chroma: topK must be positive, got %d", topK)
	}

	id, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}

	include := []string{"distances", "documents"}
	if includeMetadata {
		include = append(include, "metadatas")
	}
	body := map[string]any{
		"query_embeddings": [][]float32{vector},
		"n_results":        topK,
		"include":          include,
	}

	var resp queryResponse
	if err := s.do(ctx, http.MethodPost, "/api/v1/collections/"+id+"/query", body, &resp); err != nil {
		return nil, err
	}
	if len(resp.IDs) == 0 {
		return nil, nil
	}

	matches := make([]vectorstore.Match, 0, len(resp.IDs[0]))
	for i, matchID := range resp.IDs[0] {
		m := vectorstore.Match{
			ID:   matchID,
			Kind: vectorstore.KindDistance,
		}
		if len(resp.Distances) > 0 && i < len(resp.Distances[0]) {
			m.Score = resp.Distances[0][i]
		}
		if includeMetadata && len(resp.Metadatas) > 0 && i < len(resp.Metadatas[0]) {
			m.Metadata = resp.Metadatas[0][i]
		}
		// Fall back to the stored document when the metadata text is absent.
		if m.Metadata != nil {
			if _, ok := m.Metadata["text"]; !ok && len(resp.Documents) > 0 && i < len(resp.Documents[0]) {
				m.Metadata["text"] = resp.Documents[0][i]
			}
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// Stats reports the collection size. A missing collection yields
// count=0 with StatusNotFound rather than an error.
func (s *Store) Stats(ctx context.Context) (vectorstore.Stats, error) {
	id, err := s.resolve(ctx)
	if err != nil {
		if errors.Is(err, vectorstore.ErrNotInitialized) {
			return vectorstore.Stats{Dimension: s.dimension, Status: vectorstore.StatusNotFound}, nil
		}
		return vectorstore.Stats{}, err
	}

	var count int
	if err := s.do(ctx, http.MethodGet, "/api/v1/collections/"+id+"/count", nil, &count); err != nil {
		return vectorstore.Stats{}, err
	}
	return vectorstore.Stats{Count: count, Dimension: s.dimension, Status: vectorstore.StatusOK}, nil
}

func (s *Store) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("chroma: encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("chroma: building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("chroma: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return fmt.Errorf("chroma: reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("chroma: %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("chroma: decoding response: %w", err)
	}
	return nil
}
