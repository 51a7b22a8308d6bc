package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"prepkit/internal/catalog"
	"prepkit/internal/lint"
	"prepkit/internal/store"
)

var statsFormat string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Corpus totals: notes, sections, snippets, links, words",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsFormat, "format", "text", "Output format: text or json")
}

// statsOutput is the combined corpus and index view for --format json.
type statsOutput struct {
	Corpus catalog.Stats `json:"corpus"`
	Index  *store.Stats  `json:"index,omitempty"`
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx, cancel := newContext()
	defer cancel()

	corpus, err := scanCorpus(ctx)
	if err != nil {
		return err
	}

	out := statsOutput{Corpus: corpus.Stats()}

	// The index is optional; stats works straight off the corpus.
	var lastRun *lint.Report
	if _, err := os.Stat(cfg.Store.DatabasePath); err == nil {
		st, err := store.Open(cfg.Store.DatabasePath, logger)
		if err != nil {
			return err
		}
		defer st.Close()
		if out.Index, err = st.Stats(ctx); err != nil {
			return err
		}
		if lastRun, err = st.LastRun(ctx); err != nil {
			return err
		}
	}

	if statsFormat == "json" {
		return printJSON(cmd.OutOrStdout(), out)
	}

	w := cmd.OutOrStdout()
	cs := out.Corpus
	fmt.Fprintf(w, "Corpus (%s)\n", strings.Join(cfg.Docs.Roots, ", "))
	fmt.Fprintf(w, "  notes:    %d\n", cs.Notes)
	fmt.Fprintf(w, "  sections: %d\n", cs.Sections)
	fmt.Fprintf(w, "  snippets: %d%s\n", cs.Snippets, langBreakdown(cs.SnippetsByLang))
	fmt.Fprintf(w, "  links:    %d (%d internal, %d external)\n",
		cs.Links, cs.InternalLinks, cs.ExternalLinks)
	fmt.Fprintf(w, "  words:    %d\n", cs.Words)
	if cs.ParseErrors > 0 {
		fmt.Fprintf(w, "  parse errors: %d\n", cs.ParseErrors)
	}

	if out.Index != nil {
		is := out.Index
		fmt.Fprintf(w, "Index (%s)\n", cfg.Store.DatabasePath)
		fmt.Fprintf(w, "  notes:    %d\n", is.Notes)
		if is.Snippets > 0 {
			fmt.Fprintf(w, "  valid snippets: %d/%d (%.0f%%)\n",
				is.ValidSnippets, is.Snippets,
				100*float64(is.ValidSnippets)/float64(is.Snippets))
		}
		if is.DeadLinks > 0 {
			fmt.Fprintf(w, "  dead links: %d\n", is.DeadLinks)
		}
		fmt.Fprintf(w, "  lint runs: %d\n", is.Runs)
		if !is.LastIndexed.IsZero() {
			fmt.Fprintf(w, "  last indexed: %s\n", is.LastIndexed.Format("2006-01-02 15:04:05 MST"))
		}
		if lastRun != nil {
			fmt.Fprintf(w, "  last lint: %d errors, %d warnings, %d infos (%s)\n",
				lastRun.Errors, lastRun.Warnings, lastRun.Infos,
				lastRun.FinishedAt.Format("2006-01-02 15:04:05 MST"))
		}
	}
	return nil
}

// langBreakdown formats snippet counts per language, biggest first.
func langBreakdown(byLang map[string]int) string {
	if len(byLang) == 0 {
		return ""
	}
	langs := make([]string, 0, len(byLang))
	for lang := range byLang {
		langs = append(langs, lang)
	}
	sort.Slice(langs, func(i, j int) bool {
		if byLang[langs[i]] != byLang[langs[j]] {
			return byLang[langs[i]] > byLang[langs[j]]
		}
		return langs[i] < langs[j]
	})
	parts := make([]string, len(langs))
	for i, lang := range langs {
		parts[i] = fmt.Sprintf("%s %d", lang, byLang[lang])
	}
	return " (" + strings.Join(parts, ", ") + ")"
}
