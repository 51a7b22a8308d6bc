package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"prepkit/internal/browse"
	"prepkit/internal/roadmap"
)

var topicsFormat string

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "Diff the README topic index against the notes on disk",
	Long: `Parses the Available Topics and Coming Soon lists out of the README and
compares them with the corpus: dead entries, stale titles, notes missing
from the index, and roadmap items that already shipped.`,
	Args: cobra.NoArgs,
	RunE: runTopics,
}

func init() {
	topicsCmd.Flags().StringVar(&topicsFormat, "format", "text", "Output format: text or json")
}

func runTopics(cmd *cobra.Command, args []string) error {
	ctx, cancel := newContext()
	defer cancel()

	corpus, err := scanCorpus(ctx)
	if err != nil {
		return err
	}

	readme, ok := corpus.Readme(cfg.Docs.Readme)
	if !ok {
		return fmt.Errorf("no README found under %v", cfg.Docs.Roots)
	}

	rm := roadmap.Parse(readme)
	if !rm.HasIndex {
		return fmt.Errorf("%s has no Available Topics section", readme.Path)
	}

	diff := rm.DiffCorpus(corpus)

	if topicsFormat == "json" {
		return printJSON(cmd.OutOrStdout(), diff)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d available, %d coming soon\n\n",
		readme.Path, len(rm.Available), len(rm.Coming))
	printDiffText(out, diff, browse.DefaultStyles())
	return nil
}
