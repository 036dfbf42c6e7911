package cmd

import (
	"os"

	"github.com/producthunt/apiserver/config"
	"github.com/producthunt/apiserver/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "producthunt",
	Short: "Product listing backend",
	Long: `Backend for a crowd-voted product listing site: submissions,
moderation, votes, reviews and featured-listing payments.`,
	SilenceUsage: true,
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) *zap.Logger {
	return logging.Must(cfg.Env, cfg.LogLevel)
}
