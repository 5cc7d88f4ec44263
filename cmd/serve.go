package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/koopa0/newsrag/api"
	"github.com/koopa0/newsrag/internal/chat"
	"github.com/koopa0/newsrag/internal/composer"
	"github.com/koopa0/newsrag/internal/config"
	"github.com/koopa0/newsrag/internal/retriever"
	"github.com/koopa0/newsrag/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the chat API server.

The server answers questions over the indexed news articles, maintaining
per-session conversation history with a 24 hour retention window.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.ValidateServe(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := initLogger()
	logger.Info("starting newsrag", "version", Version, "backend", cfg.Backend)

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}

	store, err := buildVectorStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating vector store: %w", err)
	}

	sessions, err := session.NewRedisStore(ctx, session.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, logger.With("component", "session"))
	if err != nil {
		return fmt.Errorf("connecting to Redis: %w", err)
	}
	defer func() {
		if closeErr := sessions.Close(); closeErr != nil {
			logger.Warn("closing session store", "error", closeErr)
		}
	}()

	generator, err := composer.NewGeminiGenerator(ctx, composer.GeminiConfig{
		APIKey: cfg.GeminiAPIKey(),
		Model:  cfg.GeminiModel,
	})
	if err != nil {
		return fmt.Errorf("creating generator: %w", err)
	}

	ret := retriever.New(embedder, store, cfg.TopK, logger.With("component", "retriever"))
	comp := composer.New(generator, logger.With("component", "composer"))
	svc := chat.New(sessions, ret, comp, cfg.ContextMessages, logger.With("component", "chat"))

	srv := api.NewServer(svc, sessions, store, embedder, logger)
	return srv.Run(ctx, cfg.ServerAddr)
}
