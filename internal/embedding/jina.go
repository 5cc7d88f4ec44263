package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the Jina embeddings endpoint.
	DefaultBaseURL = "https://api.jina.ai/v1"

	// DefaultModel produces 768-dimension vectors.
	DefaultModel = "jina-embeddings-v2-base-en"

	// JinaDimension is the output dimensionality of the default model.
	JinaDimension = 768

	// MaxBatchSize is the documented per-request input maximum.
	MaxBatchSize = 128

	singleTimeout = 30 * time.Second
	batchTimeout  = 45 * time.Second
)

// JinaClient is a minimal REST client to the Jina embeddings API.
type JinaClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// JinaConfig configures the Jina embeddings client.
type JinaConfig struct {
	// BaseURL overrides the API endpoint, primarily for tests.
	BaseURL string

	// APIKey is required.
	APIKey string

	// Model defaults to DefaultModel.
	Model string
}

// NewJinaClient creates a Jina embeddings client. A missing API key is a
// configuration error surfaced immediately, not on first call.
func NewJinaClient(cfg JinaConfig) (*JinaClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: missing Jina API key", ErrAuthFailed)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &JinaClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  &http.Client{},
	}, nil
}

// Dimension reports the fixed output dimensionality.
func (c *JinaClient) Dimension() int { return JinaDimension }

// Embed returns the embedding for a single text.
func (c *JinaClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text must be non-empty", ErrInvalidInput)
	}

	vectors, err := c.post(ctx, []string{text}, singleTimeout)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in order, 1:1 with the input. Batches above
// MaxBatchSize are rejected rather than silently truncated.
func (c *JinaClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: batch must be non-empty", ErrInvalidInput)
	}
	if len(texts) > MaxBatchSize {
		return nil, fmt.Errorf("%w: batch size %d exceeds maximum %d", ErrInvalidInput, len(texts), MaxBatchSize)
	}
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("%w: text %d is empty", ErrInvalidInput, i)
		}
	}

	return c.post(ctx, texts, batchTimeout)
}

type embedRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Detail  string `json:"detail"`
	Message string `json:"message"`
}

func (c *JinaClient) post(ctx context.Context, input []string, timeout time.Duration) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(embedRequest{Input: input, Model: c.model})
	if err != nil {
		return nil, fmt.Errorf("%w: encoding request: %v", ErrUnknown, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", ErrUnknown, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrUnreachable, err)
	}

	var parsed embedResponse
	if resp.StatusCode != http.StatusOK {
		_ = json.Unmarshal(data, &parsed)
		return nil, classifyStatus(resp.StatusCode, upstreamDetail(parsed))
	}

	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrUnknown, err)
	}
	if len(parsed.Data) != len(input) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", ErrUnknown, len(parsed.Data), len(input))
	}

	// The API tags each embedding with its input index; order by it rather
	// than trusting response order.
	vectors := make([][]float32, len(input))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(input) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", ErrUnknown, d.Index)
		}
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("%w: empty embedding at index %d", ErrUnknown, d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("%w: no embedding returned for input %d", ErrUnknown, i)
		}
	}
	return vectors, nil
}

func upstreamDetail(resp embedResponse) string {
	if resp.Detail != "" {
		return resp.Detail
	}
	if resp.Message != "" {
		return resp.Message
	}
	return "no detail"
}

// classifyStatus maps an upstream HTTP status to the provider error
// taxonomy, preserving the status and detail for operators.
func classifyStatus(status int, detail string) error {
	var sentinel error
	switch {
	case status == http.StatusTooManyRequests:
		sentinel = ErrRateLimited
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		sentinel = ErrAuthFailed
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		sentinel = ErrInvalidInput
	case status >= 500:
		sentinel = ErrUnreachable
	default:
		sentinel = ErrUnknown
	}
	return fmt.Errorf("%w: status %d: %s", sentinel, status, detail)
}
