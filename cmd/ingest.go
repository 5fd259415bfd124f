package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lectern-ai/lectern/internal/app"
	"github.com/lectern-ai/lectern/internal/config"
)

var ingestClear bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Ingest course documents into the catalog",
	Long: `Parse course documents (.txt, .md) from a directory, chunk and embed
their content, and store everything in the catalog. Courses whose title
already exists are skipped unless --clear is given.

Without an argument, the configured docs directory is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		dir := cfg.DocsDir
		if len(args) > 0 {
			dir = args[0]
		}
		if dir == "" {
			return fmt.Errorf("no directory given and docs_dir not configured")
		}

		logger := newLogger()
		a, err := app.Setup(cmd.Context(), cfg, logger)
		if err != nil {
			return fmt.Errorf("initializing application: %w", err)
		}
		defer func() {
			if closeErr := a.Close(); closeErr != nil {
				logger.Warn("shutdown error", "error", closeErr)
			}
		}()

		result, err := a.Ingestor.AddFolder(cmd.Context(), dir, ingestClear)
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", dir, err)
		}

		fmt.Printf("Ingested %d courses (%d chunks), skipped %d already present.\n",
			result.CoursesAdded, result.ChunksAdded, result.Skipped)
		return nil
	},
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestClear, "clear", false,
		"wipe the catalog before ingesting")
	rootCmd.AddCommand(ingestCmd)
}
