// Package embedding converts text into fixed-dimension vectors via a remote
// embedding provider. The production implementation talks to the Jina
// embeddings API; callers depend on the Client interface so tests can
// substitute a deterministic embedder.
package embedding

import (
	"context"
	"errors"
)

// Client is the embedding provider contract. EmbedBatch is order-preserving
// and returns exactly one vector per input text. Implementations must never
// substitute a zero vector for a failed call.
type Client interface {
	// Embed returns the embedding vector for a single non-empty text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch embeds texts in order, 1:1 with the input. The batch size
	// must not exceed the provider's documented maximum.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension reports the fixed dimensionality of produced vectors, for
	// callers to validate against the vector index.
	Dimension() int
}

// Provider error taxonomy. Errors returned by implementations wrap exactly
// one of these sentinels together with the upstream status and detail.
var (
	// ErrRateLimited indicates the provider rejected the call with a rate
	// limit. Recoverable with backoff at ingestion time.
	ErrRateLimited = errors.New("embedding provider rate limited")

	// ErrAuthFailed indicates a rejected or missing API key.
	ErrAuthFailed = errors.New("embedding provider authentication failed")

	// ErrUnreachable indicates the provider could not be reached or timed out.
	ErrUnreachable = errors.New("embedding provider unreachable")

	// ErrInvalidInput indicates the provider rejected the request payload,
	// or the caller supplied empty text / an oversized batch.
	ErrInvalidInput = errors.New("invalid embedding input")

	// ErrUnknown covers provider failures outside the classified set.
	ErrUnknown = errors.New("embedding provider error")
)
