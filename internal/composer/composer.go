// Package composer builds a grounded prompt from retrieved passages and
// conversation history, and delegates to a generative text model for the
// final answer.
//
// Composition never fails: a generator error or blank response is converted
// to a fixed user-facing message at this boundary, mirroring the retriever's
// degrade-to-empty policy one layer up.
package composer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/koopa0/newsrag/internal/retriever"
)

const (
	// MaxPromptPassages caps how many passages enter the prompt.
	MaxPromptPassages = 3

	// MaxExcerptLen bounds each passage excerpt in the prompt.
	MaxExcerptLen = 500

	// MaxPromptLen caps the composed prompt before it is sent to the
	// generator; the prompt is truncated with a marker, never rejected.
	MaxPromptLen = 30000

	// NoContextMarker appears in the prompt when the session has no
	// previous conversation.
	NoContextMarker = "No previous conversation"

	// NoArticlesMarker appears when retrieval produced no passages.
	NoArticlesMarker = "No relevant news articles found."

	// TruncationMarker closes a prompt that hit MaxPromptLen.
	TruncationMarker = "... [truncated due to length]"
)

// Fixed user-facing responses.
const (
	// EmptyResponseApology replaces a blank generator response.
	EmptyResponseApology = "I apologize, but I couldn't generate a response. Please try again with a different question."

	// GenerationFailureMessage replaces a failed generation call.
	GenerationFailureMessage = "I'm having trouble accessing the news information right now. Please try again in a moment."
)

// Generator is the black-box text completion function. The production
// implementation is the Gemini client in this package.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Composer assembles prompts and produces grounded answers.
type Composer struct {
	generator Generator
	logger    *slog.Logger
}

// New creates a Composer.
func New(generator Generator, logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{generator: generator, logger: logger}
}

// Compose builds the grounded prompt and returns the generated answer.
// Failures and blank responses are replaced by fixed messages; Compose
// never returns an error.
func (c *Composer) Compose(ctx context.Context, query string, passages []retriever.Passage, conversationContext string) string {
	prompt := BuildPrompt(query, passages, conversationContext)
	c.logger.Debug("composed prompt", "length", len(prompt), "passages", len(passages))

	answer, err := c.generator.Generate(ctx, prompt)
	if err != nil {
		c.logger.Warn("generation failed, returning fallback", "error", err)
		return GenerationFailureMessage
	}
	if strings.TrimSpace(answer) == "" {
		c.logger.Warn("generator returned a blank response")
		return EmptyResponseApology
	}
	return answer
}

// BuildPrompt renders the grounded prompt: conversation history (or the
// no-context marker), up to MaxPromptPassages excerpted passages, the
// question, and the instruction block constraining the generator.
func BuildPrompt(query string, passages []retriever.Passage, conversationContext string) string {
	history := conversationContext
	if strings.TrimSpace(history) == "" {
		history = NoContextMarker
	}

	articles := NoArticlesMarker
	if len(passages) > 0 {
		capped := passages
		if len(capped) > MaxPromptPassages {
			capped = capped[:MaxPromptPassages]
		}
		blocks := make([]string, len(capped))
		for i, p := range capped {
			blocks[i] = fmt.Sprintf("[Article %d] %s: %s...", i+1, p.Title, excerpt(p.Text))
		}
		articles = strings.Join(blocks, "\n\n")
	}

	prompt := fmt.Sprintf(`You are a helpful news assistant. Use the following news articles to answer the user's question.

CONVERSATION HISTORY (for context only):
%s

RELEVANT NEWS ARTICLES:
%s

USER'S CURRENT QUESTION: %s

INSTRUCTIONS:
1. Answer based ONLY on the news articles provided above
2. If the articles don't contain relevant information, say: "I don't have enough information about that from the current news sources."
3. Keep your response concise and factual
4. If the user asks for "more info" or "details", provide additional context from the articles
5. Do not make up information not present in the articles

ANSWER:`, history, articles, query)

	if len(prompt) > MaxPromptLen {
		prompt = prompt[:MaxPromptLen-len(TruncationMarker)] + TruncationMarker
	}
	return prompt
}

func excerpt(text string) string {
	runes := []rune(text)
	if len(runes) > MaxExcerptLen {
		return string(runes[:MaxExcerptLen])
	}
	return text
}
