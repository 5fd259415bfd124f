package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lectern-ai/lectern/internal/app"
	"github.com/lectern-ai/lectern/internal/config"
)

var askSession string

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a one-shot question about course materials",
	Long: `Ask a single question and print the answer with its sources.

Pass --session to continue a previous conversation; without it the
question runs without history and nothing is recorded.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
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

		question := strings.Join(args, " ")
		answer, err := a.RAG.Query(cmd.Context(), question, askSession)
		if err != nil {
			return fmt.Errorf("answering question: %w", err)
		}

		fmt.Println(answer.Text)
		if len(answer.Sources) > 0 {
			fmt.Println()
			fmt.Println("Sources:")
			for _, src := range answer.Sources {
				fmt.Printf("  - %s\n", src)
			}
		}
		return nil
	},
}

func init() {
	askCmd.Flags().StringVar(&askSession, "session", "",
		"session ID to continue a conversation")
	rootCmd.AddCommand(askCmd)
}
