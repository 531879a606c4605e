package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:           "gamercard",
	Short:         "gamercard - Steam library analysis and gamer cards",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the Telegram bot (if configured) and the janitor",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run only the Telegram bot",
	Args:  cobra.NoArgs,
	RunE:  runBot,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <profile>",
	Short: "Analyse one Steam profile and write the card to disk",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable development logging")

	analyzeCmd.Flags().StringVarP(&analyzeFlags.cardPath, "out", "o", "gamer-card.png", "where to write the card")
	analyzeCmd.Flags().StringVar(&analyzeFlags.portraitPath, "portrait", "", "where to write the portrait (skipped when empty)")
	analyzeCmd.Flags().BoolVar(&analyzeFlags.printJSON, "json", false, "print the analysis as JSON")

	rootCmd.AddCommand(serveCmd, botCmd, analyzeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger, _ := zap.NewProduction()
		logger.Error("Command failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
