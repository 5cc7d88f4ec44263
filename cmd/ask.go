package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/koopa0/newsrag/internal/composer"
	"github.com/koopa0/newsrag/internal/config"
	"github.com/koopa0/newsrag/internal/retriever"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a one-shot question against the index",
	Long: `Retrieve relevant article passages and generate a grounded answer,
without creating a session or storing any history.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAsk(cmd.Context(), strings.Join(args, " "))
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(ctx context.Context, question string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	// A one-shot question needs generation, so serve-level validation
	// applies, minus the server and Redis checks.
	if cfg.GeminiAPIKey() == "" {
		return config.ErrMissingGeminiKey
	}
	if err := cfg.ValidateIngest(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	logger := initLogger()

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}

	store, err := buildVectorStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating vector store: %w", err)
	}

	generator, err := composer.NewGeminiGenerator(ctx, composer.GeminiConfig{
		APIKey: cfg.GeminiAPIKey(),
		Model:  cfg.GeminiModel,
	})
	if err != nil {
		return fmt.Errorf("creating generator: %w", err)
	}

	ret := retriever.New(embedder, store, cfg.TopK, logger.With("component", "retriever"))
	comp := composer.New(generator, logger.With("component", "composer"))

	passages := ret.Retrieve(ctx, question, "", 0)
	answer := comp.Compose(ctx, question, passages, "")

	fmt.Println(answer)
	if len(passages) > 0 {
		fmt.Println("\nSources:")
		for i, p := range passages {
			if i >= 3 {
				break
			}
			fmt.Printf("  [%d] %s (%s)\n", i+1, p.Title, p.URL)
		}
	}
	return nil
}
