package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"prepkit/internal/snippet"
	"prepkit/internal/store"
)

var indexChanged bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build or refresh the search index",
	Long: `Index parses every note in the corpus, validates its snippets,
extracts code symbols, and writes the result to the SQLite index used
by prepkit search. With --changed only notes whose content hash moved
since the last run are re-indexed.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexChanged, "changed", false, "Only re-index notes whose content changed")
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx, cancel := newContext()
	defer cancel()

	start := time.Now()

	st, err := store.Open(cfg.Store.DatabasePath, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	corpus, err := scanCorpus(ctx)
	if err != nil {
		return err
	}

	validator := snippet.NewValidator()
	defer validator.Close()

	var indexed, skipped int
	for _, n := range corpus.Notes {
		if indexChanged {
			hash, ok, err := st.NoteHash(ctx, n.Path)
			if err != nil {
				return err
			}
			if ok && hash == n.Hash {
				skipped++
				continue
			}
		}

		meta := make(map[int]store.SnippetMeta, len(n.Snippets))
		for _, sn := range n.Snippets {
			valid := true
			res, err := validator.Validate(ctx, sn.Lang, sn.Content)
			if err != nil {
				return err
			}
			if res.Checked && len(res.Issues) > 0 {
				valid = false
			}
			syms, err := validator.ExtractSymbols(ctx, sn.Lang, sn.Content)
			if err != nil {
				return err
			}
			meta[sn.Line] = store.SnippetMeta{Valid: valid, Symbols: syms}
		}

		if err := st.IndexNote(ctx, n, meta); err != nil {
			return fmt.Errorf("index %s: %w", n.Path, err)
		}
		indexed++
	}

	// Drop index rows for notes that no longer exist on disk.
	var removed int
	paths, err := st.Paths(ctx)
	if err != nil {
		return err
	}
	for _, p := range paths {
		if _, ok := corpus.ByPath[p]; ok {
			continue
		}
		if err := st.DeleteNote(ctx, p); err != nil {
			return err
		}
		removed++
	}

	logger.Info("Index refreshed",
		zap.Int("indexed", indexed),
		zap.Int("skipped", skipped),
		zap.Int("removed", removed))
	fmt.Fprintf(cmd.OutOrStdout(), "indexed %d notes (%d skipped, %d removed) in %s\n",
		indexed, skipped, removed, time.Since(start).Round(time.Millisecond))
	return nil
}
