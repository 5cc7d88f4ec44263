// Package pinecone implements the vector store interface over Pinecone's
// serverless REST API. The index is identified by name; the ingestion path
// creates it on demand with the declared dimension and metric and waits for
// provisioning to reach a ready state before the first write. The query path
// never creates indexes: an absent index is reported as a not-initialized
// state so a deployment that has not ingested yet degrades instead of
// crashing.
//
// Pinecone returns similarity scores: higher is more relevant. Matches are
// tagged vectorstore.KindSimilarity.
package pinecone

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

const (
	// DefaultControlURL is the Pinecone control plane.
	DefaultControlURL = "https://api.pinecone.io"

	// DefaultIndex is the serverless index holding ingested news chunks.
	DefaultIndex = "news-articles"

	requestTimeout = 20 * time.Second
)

// Store is a minimal REST client to Pinecone (control + data plane).
type Store struct {
	controlURL string
	apiKey     string
	index      string
	dimension  int
	metric     string
	cloud      string
	region     string
	client     *http.Client
	logger     *slog.Logger

	// pollInterval and provisionTimeout bound the wait-for-ready loop.
	pollInterval     time.Duration
	provisionTimeout time.Duration

	mu   sync.Mutex
	host string
}

// Config configures the Pinecone store.
type Config struct {
	// APIKey is required.
	APIKey string

	// ControlURL overrides the control plane, primarily for tests.
	ControlURL string

	// Index defaults to DefaultIndex.
	Index string

	// Dimension is the declared index dimensionality.
	Dimension int

	// Cloud and Region select the serverless deployment target.
	// Defaults: aws / us-east-1.
	Cloud  string
	Region string
}

// New creates a Pinecone-backed store.
func New(cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("pinecone: API key is required")
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("pinecone: invalid dimension %d", cfg.Dimension)
	}
	if cfg.ControlURL == "" {
		cfg.ControlURL = DefaultControlURL
	}
	if cfg.Index == "" {
		cfg.Index = DefaultIndex
	}
	if cfg.Cloud == "" {
		cfg.Cloud = "aws"
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		controlURL:       strings.TrimRight(cfg.ControlURL, "/"),
		apiKey:           cfg.APIKey,
		index:            cfg.Index,
		dimension:        cfg.Dimension,
		metric:           "cosine",
		cloud:            cfg.Cloud,
		region:           cfg.Region,
		client:           &http.Client{Timeout: requestTimeout},
		logger:           logger,
		pollInterval:     5 * time.Second,
		provisionTimeout: 5 * time.Minute,
	}, nil
}

type indexDescription struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Host      string `json:"host"`
	Status    struct {
		Ready bool   `json:"ready"`
		State string `json:"state"`
	} `json:"status"`
}

// describe fetches the index description, or ErrNotInitialized on 404.
func (s *Store) describe(ctx context.Context) (indexDescription, error) {
	var desc indexDescription
	status, err := s.do(ctx, http.MethodGet, s.controlURL+"/indexes/"+s.index, nil, &desc)
	if err != nil {
		if status == http.StatusNotFound {
			return desc, fmt.Errorf("%w: index %q does not exist", vectorstore.ErrNotInitialized, s.index)
		}
		return desc, err
	}
	return desc, nil
}

// resolveHost returns the data-plane host for an existing, ready index.
func (s *Store) resolveHost(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.host != "" {
		host := s.host
		s.mu.Unlock()
		return host, nil
	}
	s.mu.Unlock()

	desc, err := s.describe(ctx)
	if err != nil {
		return "", err
	}
	if !desc.Status.Ready {
		return "", fmt.Errorf("%w: index %q is %s", vectorstore.ErrNotInitialized, s.index, desc.Status.State)
	}

	s.mu.Lock()
	s.host = desc.Host
	s.mu.Unlock()
	return desc.Host, nil
}

// EnsureIndex creates the serverless index when absent and blocks until it
// reports ready. Called by the ingestion path before the first upsert.
func (s *Store) EnsureIndex(ctx context.Context) error {
	_, err := s.describe(ctx)
	if err == nil {
		return s.waitReady(ctx)
	}
	if !errors.Is(err, vectorstore.ErrNotInitialized) {
		return err
	}

	s.logger.Info("creating pinecone index",
		"name", s.index, "dimension", s.dimension, "metric", s.metric,
		"cloud", s.cloud, "region", s.region)

	body := map[string]any{
		"name":      s.index,
		"dimension": s.dimension,
		"metric":    s.metric,
		"spec": map[string]any{
			"serverless": map[string]any{
				"cloud":  s.cloud,
				"region": s.region,
			},
		},
	}
	if _, err := s.do(ctx, http.MethodPost, s.controlURL+"/indexes", body, nil); err != nil {
		return fmt.Errorf("creating index %q: %w", s.index, err)
	}
	return s.waitReady(ctx)
}

func (s *Store) waitReady(ctx context.Context) error {
	deadline := time.Now().Add(s.provisionTimeout)
	for {
		desc, err := s.describe(ctx)
		if err == nil && desc.Status.Ready {
			s.mu.Lock()
			s.host = desc.Host
			s.mu.Unlock()
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("pinecone: index %q not ready after %s", s.index, s.provisionTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.pollInterval):
		}
	}
}

type upsertVector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Upsert writes entries under their deterministic IDs; Pinecone overwrites
// existing IDs, keeping re-ingestion idempotent.
func (s *Store) Upsert(ctx context.Context, entries []vectorstore.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	vectors := make([]upsertVector, len(entries))
	for i, e := range entries {
		if len(e.Values) != s.dimension {
			return fmt.Errorf("pinecone: entry %s has dimension %d, index expects %d", e.ID, len(e.Values), s.dimension)
		}
		vectors[i] = upsertVector{ID: e.ID, Values: e.Values, Metadata: e.Metadata}
	}

	host, err := s.resolveHost(ctx)
	if err != nil {
		return err
	}

	body := map[string]any{"vectors": vectors}
	_, err = s.do(ctx, http.MethodPost, hostURL(host)+"/vectors/upsert", body, nil)
	return err
}

type queryResponse struct {
	Matches []struct {
		ID       string         `json:"id"`
		Score    float32        `json:"score"`
		Metadata map[string]any `json:"metadata"`
	} `json:"matches"`
}

// Query returns the topK nearest entries with similarity scores.
func (s *Store) Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]vectorstore.Match, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("pinecone: topK must be positive, got %d", topK)
	}

	host, err := s.resolveHost(ctx)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"vector":          vector,
		"topK":            topK,
		"includeMetadata": includeMetadata,
	}
	var resp queryResponse
	if _, err := s.do(ctx, http.MethodPost, hostURL(host)+"/query", body, &resp); err != nil {
		return nil, err
	}

	matches := make([]vectorstore.Match, len(resp.Matches))
	for i, m := range resp.Matches {
		matches[i] = vectorstore.Match{
			ID:       m.ID,
			Score:    m.Score,
			Kind:     vectorstore.KindSimilarity,
			Metadata: m.Metadata,
		}
	}
	return matches, nil
}

type statsResponse struct {
	TotalVectorCount int `json:"totalVectorCount"`
	Dimension        int `json:"dimension"`
}

// Stats reports the index size. A missing or still-provisioning index
// yields count=0 with StatusNotFound rather than an error.
func (s *Store) Stats(ctx context.Context) (vectorstore.Stats, error) {
	host, err := s.resolveHost(ctx)
	if err != nil {
		if errors.Is(err, vectorstore.ErrNotInitialized) {
			return vectorstore.Stats{Dimension: s.dimension, Status: vectorstore.StatusNotFound}, nil
		}
		return vectorstore.Stats{}, err
	}

	var resp statsResponse
	if _, err := s.do(ctx, http.MethodPost, hostURL(host)+"/describe_index_stats", map[string]any{}, &resp); err != nil {
		return vectorstore.Stats{}, err
	}
	dim := resp.Dimension
	if dim == 0 {
		dim = s.dimension
	}
	return vectorstore.Stats{Count: resp.TotalVectorCount, Dimension: dim, Status: vectorstore.StatusOK}, nil
}

// hostURL normalizes a data-plane host into a full URL. Pinecone reports
// bare hosts; tests hand back http:// addresses.
func hostURL(host string) string {
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return strings.TrimRight(host, "/")
	}
	return "https://" + host
}

// do performs a JSON request and returns the HTTP status alongside any
// error so callers can distinguish 404 from transport failures.
func (s *Store) do(ctx context.Context, method, url string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("pinecone: encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, fmt.Errorf("pinecone: building request: %w", err)
	}
	req.Header.Set("Api-Key", s.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("pinecone: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("pinecone: reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("pinecone: %s %s: status %d: %s", method, url, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return resp.StatusCode, fmt.Errorf("pinecone: decoding response: %w", err)
	}
	return resp.StatusCode, nil
}
