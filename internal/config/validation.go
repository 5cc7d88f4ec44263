package config

import (
	"fmt"
	"slices"
	"strings"
)

// validBackends lists the supported vector backends.
var validBackends = []string{BackendChroma, BackendPinecone, BackendMemory}

// validate checks the settings every command depends on.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if !slices.Contains(validBackends, c.Backend) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v",
			ErrInvalidBackend, c.Backend, validBackends)
	}

	if c.ChunkSize <= 0 || c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: size %d, overlap %d (overlap must be smaller than size)",
			ErrInvalidChunking, c.ChunkSize, c.ChunkOverlap)
	}

	if c.TopK < 1 || c.TopK > 100 {
		return fmt.Errorf("%w: must be between 1 and 100, got %d", ErrInvalidTopK, c.TopK)
	}

	// Embedding happens in every command, so the Jina key is always required.
	if c.JinaAPIKey() == "" {
		return fmt.Errorf("%w: JINA_API_KEY environment variable is required\n"+
			"Get your API key at: https://jina.ai/embeddings", ErrMissingJinaKey)
	}

	if c.Backend == BackendPinecone && c.PineconeAPIKey() == "" {
		return fmt.Errorf("%w: PINECONE_API_KEY environment variable is required when backend is %q",
			ErrMissingPineconeKey, BackendPinecone)
	}

	return nil
}

// ValidateServe checks everything the HTTP server needs, including the
// generation key.
func (c *Config) ValidateServe() error {
	if err := c.validate(); err != nil {
		return err
	}

	if c.GeminiAPIKey() == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required\n"+
			"Get your API key at: https://ai.google.dev/gemini-api/docs/api-key",
			ErrMissingGeminiKey)
	}

	if strings.TrimSpace(c.ServerAddr) == "" {
		return fmt.Errorf("%w: server_addr cannot be empty", ErrInvalidServerAddr)
	}

	if strings.TrimSpace(c.RedisAddr) == "" {
		return fmt.Errorf("%w: redis_addr cannot be empty", ErrInvalidRedisAddr)
	}

	return nil
}

// ValidateIngest checks everything the ingestion command needs. Ingestion
// embeds and upserts but never generates, so the Gemini key is not required.
func (c *Config) ValidateIngest() error {
	if err := c.validate(); err != nil {
		return err
	}

	if c.IngestIntervalMS < 0 {
		return fmt.Errorf("%w: ingest_interval_ms cannot be negative, got %d",
			ErrInvalidInterval, c.IngestIntervalMS)
	}

	return nil
}
