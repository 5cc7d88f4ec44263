package cmd

import (
	"fmt"

	"github.com/koopa0/newsrag/internal/config"
	"github.com/koopa0/newsrag/internal/embedding"
	"github.com/koopa0/newsrag/internal/log"
	"github.com/koopa0/newsrag/internal/vectorstore"
	"github.com/koopa0/newsrag/internal/vectorstore/chroma"
	"github.com/koopa0/newsrag/internal/vectorstore/memory"
	"github.com/koopa0/newsrag/internal/vectorstore/pinecone"
)

// buildEmbedder constructs the Jina embedding client from config.
func buildEmbedder(cfg *config.Config) (*embedding.JinaClient, error) {
	return embedding.NewJinaClient(embedding.JinaConfig{APIKey: cfg.JinaAPIKey()})
}

// buildVectorStore selects and constructs the configured vector backend.
// All backends are declared at the embedder's dimensionality.
func buildVectorStore(cfg *config.Config, logger log.Logger) (vectorstore.Store, error) {
	switch cfg.Backend {
	case config.BackendChroma:
		return chroma.New(chroma.Config{
			BaseURL:    cfg.ChromaURL,
			Collection: cfg.ChromaCollection,
			Dimension:  embedding.JinaDimension,
		}, logger.With("component", "chroma"))
	case config.BackendPinecone:
		return pinecone.New(pinecone.Config{
			APIKey:    cfg.PineconeAPIKey(),
			Index:     cfg.PineconeIndex,
			Dimension: embedding.JinaDimension,
			Cloud:     cfg.PineconeCloud,
			Region:    cfg.PineconeRegion,
		}, logger.With("component", "pinecone"))
	case config.BackendMemory:
		return memory.New(embedding.JinaDimension)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidBackend, cfg.Backend)
	}
}
