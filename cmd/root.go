// Package cmd implements the lectern command line interface.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lectern-ai/lectern/internal/log"
)

// Version information (injected at build time via ldflags).
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "lectern",
	Short: "Lectern - course materials chatbot",
	Long: `Lectern answers questions about ingested course materials using
retrieval-augmented generation: semantic search over chunked course
documents feeds a tool-calling chat model.

Run "lectern serve" to start the HTTP API, "lectern ingest" to load
course documents, or "lectern ask" for a one-shot question.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// newLogger builds the process logger. DEBUG in the environment switches to
// debug level; logs go to stderr so stdout stays clean for command output.
func newLogger() log.Logger {
	cfg := log.Config{Level: slog.LevelInfo}
	if os.Getenv("DEBUG") != "" {
		cfg.Level = slog.LevelDebug
	}
	return log.New(cfg)
}
