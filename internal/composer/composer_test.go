package composer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/koopa0/newsrag/internal/log"
	"github.com/koopa0/newsrag/internal/retriever"
)

// fakeGenerator captures the prompt and returns a canned answer.
type fakeGenerator struct {
	lastPrompt string
	answer     string
	err        error
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.lastPrompt = prompt
	return f.answer, f.err
}

func passage(n int, textLen int) retriever.Passage {
	return retriever.Passage{
		Title: fmt.Sprintf("Article %c", 'A'+n),
		Text:  strings.Repeat("w", textLen),
		Score: 1 - float32(n)/10,
	}
}

func TestCompose_ReturnsGeneratedAnswer(t *testing.T) {
	gen := &fakeGenerator{answer: "grounded answer"}
	c := New(gen, log.NewNop())

	got := c.Compose(context.Background(), "what happened?", []retriever.Passage{passage(0, 50)}, "")
	if got != "grounded answer" {
		t.Errorf("Compose = %q", got)
	}
}

func TestCompose_GenerationFailure(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("quota exceeded")}
	c := New(gen, log.NewNop())

	got := c.Compose(context.Background(), "q", nil, "")
	if got != GenerationFailureMessage {
		t.Errorf("Compose on failure = %q, want fixed failure message", got)
	}
}

func TestCompose_BlankResponseApology(t *testing.T) {
	gen := &fakeGenerator{answer: "  \n "}
	c := New(gen, log.NewNop())

	got := c.Compose(context.Background(), "q", nil, "")
	if got != EmptyResponseApology {
		t.Errorf("Compose on blank response = %q, want apology", got)
	}
}

func TestBuildPrompt_NoContextMarker(t *testing.T) {
	prompt := BuildPrompt("q", nil, "")
	if !strings.Contains(prompt, NoContextMarker) {
		t.Error("prompt missing no-previous-conversation marker")
	}
	if !strings.Contains(prompt, NoArticlesMarker) {
		t.Error("prompt missing no-articles marker")
	}
}

func TestBuildPrompt_IncludesContext(t *testing.T) {
	prompt := BuildPrompt("q", nil, "earlier assistant answers")
	if !strings.Contains(prompt, "earlier assistant answers") {
		t.Error("prompt missing conversation context")
	}
	if strings.Contains(prompt, NoContextMarker) {
		t.Error("no-context marker present despite context")
	}
}

func TestBuildPrompt_CapsPassagesAtThree(t *testing.T) {
	passages := []retriever.Passage{
		passage(0, 50), passage(1, 50), passage(2, 50), passage(3, 50), passage(4, 50),
	}
	prompt := BuildPrompt("q", passages, "")

	for n := 1; n <= 3; n++ {
		if !strings.Contains(prompt, fmt.Sprintf("[Article %d]", n)) {
			t.Errorf("prompt missing [Article %d]", n)
		}
	}
	if strings.Contains(prompt, "[Article 4]") {
		t.Error("prompt includes a fourth passage")
	}
}

func TestBuildPrompt_TruncatesExcerpts(t *testing.T) {
	long := passage(0, 2000)
	prompt := BuildPrompt("q", []retriever.Passage{long}, "")

	// The excerpt is capped at MaxExcerptLen and closed with an ellipsis.
	excerptStart := strings.Index(prompt, "[Article 1]")
	if excerptStart < 0 {
		t.Fatal("passage block missing")
	}
	block := prompt[excerptStart:]
	if !strings.Contains(block, strings.Repeat("w", MaxExcerptLen)+"...") {
		t.Error("excerpt not truncated to MaxExcerptLen with ellipsis")
	}
	if strings.Contains(block, strings.Repeat("w", MaxExcerptLen+1)) {
		t.Error("excerpt longer than MaxExcerptLen")
	}
}

func TestBuildPrompt_InstructionBlock(t *testing.T) {
	prompt := BuildPrompt("the question", nil, "")
	if !strings.Contains(prompt, "USER'S CURRENT QUESTION: the question") {
		t.Error("prompt missing the user question")
	}
	if !strings.Contains(prompt, "I don't have enough information about that from the current news sources.") {
		t.Error("prompt missing the insufficient-information instruction")
	}
}

func TestBuildPrompt_CapsTotalLength(t *testing.T) {
	// A pathological query pushes the prompt past the cap.
	query := strings.Repeat("q", 2*MaxPromptLen)
	prompt := BuildPrompt(query, nil, "")

	if len(prompt) != MaxPromptLen {
		t.Errorf("prompt length = %d, want %d", len(prompt), MaxPromptLen)
	}
	if !strings.HasSuffix(prompt, TruncationMarker) {
		t.Error("truncated prompt missing marker")
	}
}

func TestCompose_PromptReachesGenerator(t *testing.T) {
	gen := &fakeGenerator{answer: "ok"}
	c := New(gen, log.NewNop())

	c.Compose(context.Background(), "what about the merger?", []retriever.Passage{passage(0, 50)}, "ctx")
	if !strings.Contains(gen.lastPrompt, "what about the merger?") {
		t.Error("generator did not receive the composed prompt")
	}
}
