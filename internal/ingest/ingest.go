// Package ingest runs the offline pipeline that fills the vector index:
// fetch articles, chunk their text, embed each chunk, and upsert the result.
//
// The run is deliberately serial. Embedding and upsert calls are paced by a
// rate limiter to respect upstream provider limits, and partial failure is
// the norm: a chunk or article that fails is logged and skipped, never
// aborting the whole run.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/koopa0/newsrag/internal/chunker"
	"github.com/koopa0/newsrag/internal/embedding"
	"github.com/koopa0/newsrag/internal/vectorstore"
)

// Article is one unit of ingestable content. ID must be stable across runs
// (feed GUID or URL) so chunk IDs stay deterministic.
type Article struct {
	ID        string
	Title     string
	URL       string
	Author    string
	Published time.Time
	Text      string
}

// Source yields articles for ingestion.
type Source interface {
	Fetch(ctx context.Context) ([]Article, error)
}

// Summary reports the outcome of a run.
type Summary struct {
	Articles int
	Chunks   int
	Failed   int
}

// Ingestor drives the chunk → embed → upsert pipeline.
type Ingestor struct {
	chunker   *chunker.Chunker
	embedder  embedding.Client
	store     vectorstore.Store
	limiter   *rate.Limiter
	sourceTag string
	logger    *slog.Logger
	now       func() time.Time
}

// Config configures an Ingestor.
type Config struct {
	// ChunkSize and ChunkOverlap configure the chunk window; zero values
	// select the chunker defaults.
	ChunkSize    int
	ChunkOverlap int

	// Interval paces embed+upsert calls. Zero selects 500ms, matching the
	// embedding provider's comfortable request rate.
	Interval time.Duration

	// SourceTag labels ingested chunks, e.g. "bbc-news".
	SourceTag string

	// Dimension is the index's declared dimensionality. The embedder must
	// agree; a mismatch is a fatal configuration error.
	Dimension int
}

// New creates an Ingestor. A dimension mismatch between the embedder and
// the declared index dimensionality fails here, before anything is written.
func New(cfg Config, embedder embedding.Client, store vectorstore.Store, logger *slog.Logger) (*Ingestor, error) {
	if cfg.Dimension > 0 && embedder.Dimension() != cfg.Dimension {
		return nil, fmt.Errorf("embedder produces %d-dimension vectors, index declares %d",
			embedder.Dimension(), cfg.Dimension)
	}

	c, err := chunker.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	interval := cfg.Interval
	if interval == 0 {
		interval = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Ingestor{
		chunker:   c,
		embedder:  embedder,
		store:     store,
		limiter:   rate.NewLimiter(rate.Every(interval), 1),
		sourceTag: cfg.SourceTag,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Run ingests every article from the source. Only a source failure or a
// canceled context aborts the run; per-article and per-chunk failures are
// counted and skipped.
func (in *Ingestor) Run(ctx context.Context, source Source) (Summary, error) {
	articles, err := source.Fetch(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("fetching articles: %w", err)
	}
	in.logger.Info("starting ingestion", "articles", len(articles))

	var summary Summary
	for _, article := range articles {
		chunks, failed, err := in.ingestArticle(ctx, article)
		if err != nil {
			// Only context cancellation propagates out of ingestArticle.
			return summary, err
		}
		summary.Articles++
		summary.Chunks += chunks
		summary.Failed += failed
	}

	in.logger.Info("ingestion complete",
		"articles", summary.Articles, "chunks", summary.Chunks, "failed", summary.Failed)
	return summary, nil
}

func (in *Ingestor) ingestArticle(ctx context.Context, article Article) (ingested, failed int, err error) {
	chunks := in.chunker.Split(article.Text)
	if len(chunks) == 0 {
		in.logger.Warn("skipping article with no usable content", "title", article.Title, "url", article.URL)
		return 0, 0, nil
	}
	in.logger.Debug("chunked article", "title", article.Title, "chunks", len(chunks))

	for ordinal, text := range chunks {
		if err := in.limiter.Wait(ctx); err != nil {
			return ingested, failed, err
		}

		if err := in.ingestChunk(ctx, article, ordinal, text); err != nil {
			if ctx.Err() != nil {
				return ingested, failed, ctx.Err()
			}
			in.logger.Warn("skipping failed chunk",
				"title", article.Title, "chunk", ordinal, "error", err)
			failed++
			continue
		}
		ingested++
	}
	return ingested, failed, nil
}

func (in *Ingestor) ingestChunk(ctx context.Context, article Article, ordinal int, text string) error {
	vector, err := in.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embedding: %w", err)
	}

	entry := vectorstore.Entry{
		ID:     ChunkID(article.ID, ordinal),
		Values: vector,
		Metadata: map[string]any{
			"title":        article.Title,
			"url":          article.URL,
			"authors":      article.Author,
			"date_publish": article.Published.UTC().Format(time.RFC3339),
			"text":         text,
			"chunk_id":     ordinal,
			"source":       in.sourceTag,
			"ingested_at":  in.now().UTC().Format(time.RFC3339),
		},
	}
	if err := in.store.Upsert(ctx, []vectorstore.Entry{entry}); err != nil {
		return fmt.Errorf("upserting %s: %w", entry.ID, err)
	}
	return nil
}

// ChunkID derives the deterministic index ID for a chunk, making
// re-ingestion of the same document an overwrite rather than a duplicate.
func ChunkID(docID string, ordinal int) string {
	return fmt.Sprintf("%s-%d", docID, ordinal)
}
