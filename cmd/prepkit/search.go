package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"prepkit/internal/browse"
	"prepkit/internal/search"
	"prepkit/internal/store"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <query...>",
	Short: "Search sections and snippet symbols in the index",
	Long: `Ranks indexed sections and code symbols against the query. Symbol-shaped
terms (useEffect, Array.prototype.map) weigh more than plain words, and
quoted phrases are matched whole.

The search runs against the SQLite index; run 'prepkit index' first.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "Maximum hits (default from config)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, cancel := newContext()
	defer cancel()

	st, err := store.Open(cfg.Store.DatabasePath, logger)
	if err != nil {
		return fmt.Errorf("open index (run 'prepkit index' first): %w", err)
	}
	defer st.Close()

	stats, err := st.Stats(ctx)
	if err != nil {
		return err
	}
	if stats.Notes == 0 {
		return fmt.Errorf("the index is empty, run 'prepkit index' first")
	}

	searcher := search.NewSearcher(st, logger)
	searcher.SetCache(cfg.Search.CacheSize, cfg.GetCacheTTL())

	limit := searchLimit
	if limit <= 0 {
		limit = cfg.Search.Limit
	}

	query := strings.Join(args, " ")
	hits, err := searcher.Search(ctx, query, limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	styles := browse.DefaultStyles()

	if len(hits) == 0 {
		fmt.Fprintf(out, "no hits for %q\n", query)
		return nil
	}

	for _, h := range hits {
		loc := fmt.Sprintf("%s:%d", h.Path, h.Line)
		fmt.Fprintf(out, "%5.2f  %s  %s %s\n",
			h.Score, loc, h.Heading,
			styles.Muted.Render("["+strings.Join(h.Terms, " ")+"]"))
	}
	return nil
}
