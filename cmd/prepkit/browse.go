package main

import (
	"go.uber.org/zap"

	"github.com/spf13/cobra"

	"prepkit/internal/browse"
	"prepkit/internal/lint"
	"prepkit/internal/snippet"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse the corpus in the terminal",
	Long: `Opens a two pane terminal UI: notes on the left, the rendered note
on the right. Findings from an offline lint pass are shown per note.`,
	Args: cobra.NoArgs,
	RunE: runBrowse,
}

func runBrowse(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	corpus, err := scanCorpus(ctx)
	if err != nil {
		return err
	}

	validator := snippet.NewValidator()
	defer validator.Close()

	// Badge counts come from an offline pass; the UI still opens if it fails.
	var report *lint.Report
	runner, err := buildRunner(validator, false)
	if err == nil {
		report, err = runner.Run(ctx, corpus)
	}
	if err != nil {
		logger.Warn("lint pass for browse failed", zap.Error(err))
		report = nil
	}

	return browse.Run(corpus, report)
}
