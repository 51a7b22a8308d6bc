package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"prepkit/internal/browse"
	"prepkit/internal/catalog"
	"prepkit/internal/lint"
	"prepkit/internal/snippet"
	"prepkit/internal/watch"
)

var watchOnline bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-lint the corpus on every save",
	Long: `Watches the note roots for Markdown changes and re-runs the full
rule set after each batch of edits settles. Runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchOnline, "online", false, "Also check external links over HTTP")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	validator := snippet.NewValidator()
	defer validator.Close()

	runner, err := buildRunner(validator, watchOnline || cfg.Links.Online)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	styles := browse.DefaultStyles()
	handler := func(corpus *catalog.Corpus, report *lint.Report) {
		fmt.Fprintf(out, "\n--- %s", time.Now().Format("15:04:05"))
		if n := len(corpus.Changed) + len(corpus.Deleted); n > 0 {
			fmt.Fprintf(out, " (%d notes changed)", n)
		}
		fmt.Fprint(out, " ---\n")
		printReportText(out, report, styles)
	}

	w, err := watch.New(cfg.Docs.Roots, newScanner(), runner, handler, cfg.GetDebounce(), logger)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}

	fmt.Fprintf(out, "watching %v (ctrl-c to stop)\n", cfg.Docs.Roots)
	w.Relint(ctx)

	<-ctx.Done()
	w.Stop()

	stats := w.Stats()
	fmt.Fprintf(out, "\n%d relints (%d created, %d modified, %d removed)\n",
		stats.Relints, stats.Created, stats.Modified, stats.Removed)
	return nil
}
