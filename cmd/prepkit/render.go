package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

var renderWidth int

var renderCmd = &cobra.Command{
	Use:   "render <note>",
	Short: "Render a note to the terminal",
	Long: `Renders one Markdown note with terminal styling. The argument is a
file path or a corpus-relative path like JS-Prep.md.`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().IntVar(&renderWidth, "width", 100, "Wrap width")
}

func runRender(cmd *cobra.Command, args []string) error {
	src, err := os.ReadFile(args[0])
	if err != nil {
		// Not a file on disk; try it as a corpus-relative path.
		ctx, cancel := newContext()
		defer cancel()
		corpus, scanErr := scanCorpus(ctx)
		if scanErr != nil {
			return scanErr
		}
		n, ok := corpus.Note(args[0])
		if !ok {
			return fmt.Errorf("no note %q on disk or in the corpus", args[0])
		}
		if src, err = os.ReadFile(n.AbsPath); err != nil {
			return err
		}
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(renderWidth),
	)
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}
	out, err := r.Render(string(src))
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", args[0], err)
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}
