package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"prepkit/internal/browse"
	"prepkit/internal/lint"
	"prepkit/internal/roadmap"
)

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printReportText writes findings the way compilers report diagnostics,
// one per line with a summary at the end.
func printReportText(w io.Writer, report *lint.Report, styles browse.Styles) {
	for _, f := range report.Findings {
		loc := f.Path
		if f.Line > 0 {
			loc = fmt.Sprintf("%s:%d", f.Path, f.Line)
		}
		sev := styles.Severity(f.Severity).Render(f.Severity.String())
		fmt.Fprintf(w, "%s  %s  %s  %s\n", loc, sev, f.Rule, f.Message)
		if f.Detail != "" {
			fmt.Fprintf(w, "    %s\n", styles.Muted.Render(f.Detail))
		}
	}
	if len(report.Findings) > 0 {
		fmt.Fprintln(w)
	}

	summary := fmt.Sprintf("checked %d notes in %s: %d errors, %d warnings, %d infos",
		report.CheckedNotes, report.Duration().Round(time.Millisecond),
		report.Errors, report.Warnings, report.Infos)
	if report.Errors == 0 && report.Warnings == 0 {
		summary = styles.Success.Render(summary)
	}
	fmt.Fprintln(w, summary)
}

// printDiffText writes the roadmap diff section by section.
func printDiffText(w io.Writer, d *roadmap.Diff, styles browse.Styles) {
	if d.Empty() {
		fmt.Fprintln(w, styles.Success.Render("README topic index matches the corpus"))
		return
	}

	if len(d.DeadEntries) > 0 {
		fmt.Fprintln(w, styles.Error.Render("Dead entries"))
		for _, m := range d.DeadEntries {
			fmt.Fprintf(w, "  line %d: %s -> %s (%s)\n",
				m.Entry.Line, m.Entry.Title, m.Entry.Target, m.Reason)
			if m.Want != "" {
				fmt.Fprintf(w, "    %s\n", styles.Muted.Render(m.Want))
			}
		}
	}

	if len(d.TitleMismatches) > 0 {
		fmt.Fprintln(w, styles.Warning.Render("Title mismatches"))
		for _, m := range d.TitleMismatches {
			fmt.Fprintf(w, "  line %d: %q\n", m.Entry.Line, m.Entry.Title)
			if m.Want != "" {
				fmt.Fprintf(w, "    %s\n", styles.Muted.Render(m.Want))
			}
		}
	}

	if len(d.Unlisted) > 0 {
		fmt.Fprintln(w, styles.Warning.Render("Notes missing from Available Topics"))
		for _, p := range d.Unlisted {
			fmt.Fprintf(w, "  %s\n", p)
		}
	}

	if len(d.Premature) > 0 {
		fmt.Fprintln(w, styles.Info.Render("Coming Soon entries that already have a note"))
		for _, e := range d.Premature {
			fmt.Fprintf(w, "  line %d: %s\n", e.Line, e.Title)
		}
	}
}
