package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/koopa0/newsrag/internal/config"
	"github.com/koopa0/newsrag/internal/ingest"
	"github.com/koopa0/newsrag/internal/vectorstore/pinecone"
)

var ingestFeeds []string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch, chunk, embed and index news articles",
	Long: `Fetch articles from RSS feeds, extract their text, split them into
overlapping chunks, embed each chunk and upsert it into the vector index.

Chunk IDs are derived from the article identity, so re-running ingestion
over the same feeds overwrites entries instead of duplicating them.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runIngest(cmd.Context())
	},
}

func init() {
	ingestCmd.Flags().StringSliceVar(&ingestFeeds, "feed", nil,
		"RSS feed URL (repeatable; overrides configured feeds)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.ValidateIngest(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := initLogger()

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}

	store, err := buildVectorStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating vector store: %w", err)
	}

	// Pinecone serverless indexes must exist before the first upsert.
	// Chroma creates its collection on write and needs no provisioning.
	if pc, ok := store.(*pinecone.Store); ok {
		logger.Info("ensuring Pinecone index exists", "index", cfg.PineconeIndex)
		if err := pc.EnsureIndex(ctx); err != nil {
			return fmt.Errorf("provisioning index: %w", err)
		}
	}

	feeds := cfg.Feeds
	if len(ingestFeeds) > 0 {
		feeds = ingestFeeds
	}
	source := ingest.NewFeedSource(ingest.FeedConfig{
		Feeds:       feeds,
		MaxArticles: cfg.MaxArticles,
	}, logger.With("component", "feed"))

	ingestor, err := ingest.New(ingest.Config{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
		Interval:     time.Duration(cfg.IngestIntervalMS) * time.Millisecond,
		SourceTag:    "rss",
		Dimension:    embedder.Dimension(),
	}, embedder, store, logger.With("component", "ingest"))
	if err != nil {
		return fmt.Errorf("creating ingestor: %w", err)
	}

	summary, err := ingestor.Run(ctx, source)
	if err != nil {
		return fmt.Errorf("ingesting: %w", err)
	}

	fmt.Printf("Ingested %d chunks from %d articles (%d chunks failed)\n",
		summary.Chunks, summary.Articles, summary.Failed)
	return nil
}
