package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/xaenox/gamer-card/internal/models"
	"github.com/xaenox/gamer-card/internal/pipeline"
)

type analyzeOptions struct {
	cardPath     string
	portraitPath string
	printJSON    bool
}

var analyzeFlags analyzeOptions

// analysisRunner is satisfied by *pipeline.Runner
type analysisRunner interface {
	Run(ctx context.Context, reference string, observe pipeline.Observer) (*models.Analysis, error)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, a.cfg.HTTP.AnalysisTimeout)
	defer cancel()

	return analyzeProfile(ctx, a.runner, args[0], analyzeFlags, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

func analyzeProfile(ctx context.Context, runner analysisRunner, profile string, opts analyzeOptions, stdout, stderr io.Writer) error {
	result, err := runner.Run(ctx, profile, func(p models.Progress) {
		if p.Stage == models.StageEnrich && p.Total > 0 {
			fmt.Fprintf(stderr, "  %s %d/%d\n", p.Stage, p.Done, p.Total)
			return
		}
		fmt.Fprintf(stderr, "%s\n", p.Stage)
	})
	if err != nil {
		message, guidance := pipeline.Describe(err)
		fmt.Fprintf(stderr, "\n%s\n", guidance)
		return fmt.Errorf("%s: %w", message, err)
	}

	if err := os.WriteFile(opts.cardPath, result.Card, 0o644); err != nil {
		return fmt.Errorf("failed to write card: %w", err)
	}
	if opts.portraitPath != "" {
		if err := os.WriteFile(opts.portraitPath, result.Portrait, 0o644); err != nil {
			return fmt.Errorf("failed to write portrait: %w", err)
		}
	}

	if opts.printJSON {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, string(out))
		return nil
	}

	p := result.Personality
	fmt.Fprintf(stdout, "%s %s (tier %s)\n", p.GamerType, p.GamerTypeEmoji, p.Tier)
	fmt.Fprintf(stdout, "%q\n", p.OneLineSummary)
	for _, rec := range result.Recommendations {
		fmt.Fprintf(stdout, "- %s: %s\n", rec.Name, rec.SteamURL)
	}
	fmt.Fprintf(stdout, "Card written to %s\n", opts.cardPath)
	return nil
}
