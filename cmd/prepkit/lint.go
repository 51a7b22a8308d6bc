package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"prepkit/internal/browse"
	"prepkit/internal/lint"
	"prepkit/internal/lint/external"
	"prepkit/internal/snippet"
	"prepkit/internal/store"
)

var (
	lintFormat string
	lintOnline bool
	lintFailOn string
)

var lintCmd = &cobra.Command{
	Use:   "lint [paths...]",
	Short: "Check snippets, links, headings, and the topic index",
	Long: `Runs every rule over the corpus: snippet syntax against real language
grammars, internal link and anchor resolution, heading structure, and
the README topic index against the notes on disk.

Checks always cover the whole corpus because links and the topic index
cross file boundaries. Path arguments restrict which findings are
reported, not which are computed.

External links are only checked with --online (or links.online in
.prepkit.yaml); the default run needs no network.`,
	RunE: runLint,
}

func init() {
	lintCmd.Flags().StringVar(&lintFormat, "format", "text", "Output format: text or json")
	lintCmd.Flags().BoolVar(&lintOnline, "online", false, "Also check external links over HTTP")
	lintCmd.Flags().StringVar(&lintFailOn, "fail-on", "", "Severity that fails the run: error, warning, info")
}

func runLint(cmd *cobra.Command, args []string) error {
	ctx, cancel := newContext()
	defer cancel()

	corpus, err := scanCorpus(ctx)
	if err != nil {
		return err
	}

	validator := snippet.NewValidator()
	defer validator.Close()

	online := lintOnline || cfg.Links.Online
	if online {
		logger.Info("Checking external links", zap.Int("links", external.RemoteLinkCount(corpus)))
	}

	runner, err := buildRunner(validator, online)
	if err != nil {
		return err
	}
	report, err := runner.Run(ctx, corpus)
	if err != nil {
		return err
	}

	recordRun(ctx, report)

	if len(args) > 0 {
		report = filterReport(report, args)
	}

	switch lintFormat {
	case "json":
		if err := printJSON(cmd.OutOrStdout(), report); err != nil {
			return err
		}
	default:
		printReportText(cmd.OutOrStdout(), report, browse.DefaultStyles())
	}

	failOn := cfg.Lint.FailOn
	if lintFailOn != "" {
		failOn = lintFailOn
	}
	threshold, err := lint.ParseSeverity(failOn)
	if err != nil {
		return fmt.Errorf("--fail-on: %w", err)
	}
	if report.Failed(threshold) {
		return fmt.Errorf("lint failed: %d errors, %d warnings, %d infos",
			report.Errors, report.Warnings, report.Infos)
	}
	return nil
}

// buildRunner assembles the configured rule set: builtins, the external
// link checker when online, and any plugins from the rules directory.
func buildRunner(validator *snippet.Validator, online bool) (*lint.Runner, error) {
	rules := lint.BuiltinRules(validator, lint.RuleOptions{
		AllowedLangs: cfg.Lint.AllowedLangs,
		Readme:       cfg.Docs.Readme,
	})

	if online {
		rules = append(rules, external.NewChecker(external.Options{
			Timeout:      cfg.GetLinkTimeout(),
			Concurrency:  cfg.Links.Concurrency,
			ExcludeHosts: cfg.Links.ExcludeHosts,
		}, logger))
	}

	if cfg.Lint.PluginsDir != "" {
		plugins, err := lint.LoadPlugins(cfg.Lint.PluginsDir, cfg.GetPluginTimeout(), logger)
		if err != nil {
			return nil, err
		}
		rules = append(rules, plugins...)
	}

	overrides, err := ruleOverrides()
	if err != nil {
		return nil, err
	}
	return lint.NewRunner(rules, overrides, logger), nil
}

// recordRun stores the report for prepkit stats. Lint works without the
// index, so a missing database is skipped and failures only log.
func recordRun(ctx context.Context, report *lint.Report) {
	if _, err := os.Stat(cfg.Store.DatabasePath); err != nil {
		return
	}
	st, err := store.Open(cfg.Store.DatabasePath, logger)
	if err != nil {
		logger.Warn("open index for run history", zap.Error(err))
		return
	}
	defer st.Close()
	if err := st.RecordRun(ctx, report); err != nil {
		logger.Warn("record lint run", zap.Error(err))
	}
}

// filterReport keeps findings under the given paths and recounts.
func filterReport(report *lint.Report, paths []string) *lint.Report {
	keep := func(p string) bool {
		for _, want := range paths {
			want = strings.TrimSuffix(want, "/")
			if p == want || strings.HasPrefix(p, want+"/") {
				return true
			}
		}
		return false
	}

	out := *report
	out.Findings = nil
	out.Errors, out.Warnings, out.Infos = 0, 0, 0
	for _, f := range report.Findings {
		if !keep(f.Path) {
			continue
		}
		out.Findings = append(out.Findings, f)
		switch f.Severity {
		case lint.SeverityError:
			out.Errors++
		case lint.SeverityWarning:
			out.Warnings++
		default:
			out.Infos++
		}
	}
	return &out
}
