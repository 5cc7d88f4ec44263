package composer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	// DefaultModel is the generation model.
	DefaultModel = "gemini-2.5-pro"

	// generateTimeout bounds each generation call. A timeout surfaces as
	// an error and is converted to the fixed failure message by Compose.
	generateTimeout = 90 * time.Second
)

// GeminiGenerator produces answers with the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// GeminiConfig configures the generator.
type GeminiConfig struct {
	// APIKey is required.
	APIKey string

	// Model defaults to DefaultModel.
	Model string
}

// NewGeminiGenerator creates the Gemini client. A missing API key is a
// configuration error surfaced at startup.
func NewGeminiGenerator(ctx context.Context, cfg GeminiConfig) (*GeminiGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing Gemini API key")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}
	return &GeminiGenerator{client: client, model: cfg.Model}, nil
}

// Generate sends the prompt and returns the response text. An empty
// response is an error so the caller can substitute its fixed apology.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.7),
		TopK:            genai.Ptr[float32](40),
		TopP:            genai.Ptr[float32](0.95),
		MaxOutputTokens: 2048,
	})
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("empty response from model %s", g.model)
	}
	return text, nil
}
