package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"prepkit/internal/browse"
	"prepkit/internal/notes"
)

var tocCmd = &cobra.Command{
	Use:   "toc [file]",
	Short: "Print the heading outline of a note or the whole corpus",
	Long: `Prints the heading tree with anchors and line numbers. With a file
argument only that note's outline is shown, otherwise every note in the
corpus gets one.

Example:
  prepkit toc JS-Prep.md`,
	Args: cobra.MaximumNArgs(1),
	RunE: runToc,
}

func runToc(cmd *cobra.Command, args []string) error {
	ctx, cancel := newContext()
	defer cancel()

	corpus, err := scanCorpus(ctx)
	if err != nil {
		return err
	}

	styles := browse.DefaultStyles()
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		n, ok := corpus.Note(args[0])
		if !ok {
			return fmt.Errorf("no note %q in the corpus", args[0])
		}
		printOutline(out, n, styles)
		return nil
	}

	for i, n := range corpus.Notes {
		if i > 0 {
			fmt.Fprintln(out)
		}
		printOutline(out, n, styles)
	}
	return nil
}

func printOutline(w io.Writer, n *notes.Note, styles browse.Styles) {
	fmt.Fprintf(w, "%s (%d words)\n", styles.Title.Render(n.Path), n.WordCount)
	for _, sec := range n.Sections {
		indent := strings.Repeat("  ", sec.Level-1)
		anchor := styles.Muted.Render(fmt.Sprintf("#%s :%d", sec.Anchor, sec.Line))
		fmt.Fprintf(w, "%s%s  %s\n", indent, sec.Title, anchor)
	}
}
