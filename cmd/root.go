// Package cmd contains the newsrag CLI: serve, ingest, ask, version.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/koopa0/newsrag/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "newsrag",
	Short: "newsrag - retrieval-augmented news chatbot",
	Long: `newsrag serves a news question-answering API backed by a vector index.

Articles are chunked, embedded and indexed by the ingest command; the
serve command answers questions grounded in the indexed articles while
keeping short-lived per-session conversation history.`,
	SilenceUsage: true,
}

// Execute runs the root command. Called from main.
func Execute() error {
	return rootCmd.Execute()
}

// initLogger builds the process logger. DEBUG in the environment enables
// debug-level output.
func initLogger() log.Logger {
	cfg := log.Config{}
	if os.Getenv("DEBUG") != "" {
		cfg.Level = slog.LevelDebug
	}
	return log.New(cfg)
}
