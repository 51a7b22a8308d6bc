package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"prepkit/internal/catalog"
	"prepkit/internal/config"
	"prepkit/internal/lint"
	"prepkit/internal/logging"
)

var (
	// Global flags
	cfgPath   string
	docsRoots []string
	verbose   bool
	quiet     bool
	timeout   time.Duration

	// Shared state built in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "prepkit",
	Short: "prepkit - keeps a Markdown study-notes corpus honest",
	Long: `prepkit lints, indexes, and browses a directory of interview-prep notes.

Every note is parsed into sections, fenced snippets, and links. Snippets
are checked against real language grammars, internal links and anchors
are resolved, and the README topic index is diffed against the notes on
disk. A SQLite index feeds search and stats; watch mode re-lints on
every save.

Run 'prepkit lint' inside a notes directory to get started.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// An explicit --config wins; otherwise look for one in the first
		// note root named on the command line.
		if !cmd.Flags().Changed("config") && len(docsRoots) > 0 {
			cfgPath = config.Resolve(docsRoots[0])
		}
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		if len(docsRoots) > 0 {
			cfg.Docs.Roots = docsRoots
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if quiet {
			logger = logging.Quiet()
			return nil
		}
		logger, err = logging.New(cfg.Logging, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultPath, "Config file path")
	rootCmd.PersistentFlags().StringSliceVar(&docsRoots, "docs", nil, "Note roots (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress log output")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Operation timeout")

	rootCmd.AddCommand(lintCmd)
	rootCmd.AddCommand(topicsCmd)
	rootCmd.AddCommand(tocCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newContext returns a timeout context cancelled on SIGINT/SIGTERM.
func newContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// signalContext is newContext without the deadline, for commands that run
// until interrupted.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// newScanner builds a scanner over the configured note roots.
func newScanner() *catalog.Scanner {
	return catalog.NewScanner(catalog.ScanConfig{
		Roots:    cfg.Docs.Roots,
		Ignore:   cfg.Docs.Ignore,
		CacheDir: cfg.Store.CacheDir,
	}, logger)
}

// scanCorpus walks the configured note roots.
func scanCorpus(ctx context.Context) (*catalog.Corpus, error) {
	return newScanner().Scan(ctx)
}

// ruleOverrides converts the config rule table into runner overrides.
func ruleOverrides() (map[string]lint.Override, error) {
	if len(cfg.Lint.Rules) == 0 {
		return nil, nil
	}
	overrides := make(map[string]lint.Override, len(cfg.Lint.Rules))
	for id, o := range cfg.Lint.Rules {
		ov := lint.Override{Disabled: o.Disabled}
		if o.Severity != "" {
			sev, err := lint.ParseSeverity(o.Severity)
			if err != nil {
				return nil, fmt.Errorf("rule %s: %w", id, err)
			}
			ov.Severity = &sev
		}
		overrides[id] = ov
	}
	return overrides, nil
}
