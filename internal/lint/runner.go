package lint

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"prepkit/internal/catalog"
)

// Override adjusts one rule from config: disable it or remap its severity.
type Override struct {
	Severity *Severity
	Disabled bool
}

// Runner executes a rule set over a corpus.
type Runner struct {
	rules     []Rule
	overrides map[string]Override
	log       *zap.Logger
}

func NewRunner(rules []Rule, overrides map[string]Override, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{rules: rules, overrides: overrides, log: log.Named("lint")}
}

// Run checks the corpus with every rule concurrently and folds the results
// into a sorted report. Parse failures recorded by the scanner surface as
// note-parse findings so a broken file cannot silently pass.
func (r *Runner) Run(ctx context.Context, corpus *catalog.Corpus) (*Report, error) {
	report := &Report{
		RunID:        uuid.NewString(),
		StartedAt:    time.Now(),
		CheckedNotes: len(corpus.Notes),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, rule := range r.rules {
		g.Go(func() error {
			start := time.Now()
			findings := rule.Check(gctx, corpus)
			r.log.Debug("rule finished",
				zap.String("rule", rule.ID()),
				zap.Int("findings", len(findings)),
				zap.Duration("took", time.Since(start)))
			mu.Lock()
			report.Findings = append(report.Findings, findings...)
			mu.Unlock()
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, pe := range corpus.Errors {
		report.Findings = append(report.Findings, Finding{
			Rule:     "note-parse",
			Severity: SeverityError,
			Path:     pe.Path,
			Message:  "note could not be parsed",
			Detail:   pe.Err.Error(),
		})
	}

	report.Findings = r.applyOverrides(report.Findings)

	sort.Slice(report.Findings, func(i, j int) bool {
		a, b := report.Findings[i], report.Findings[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		return a.Message < b.Message
	})

	for _, f := range report.Findings {
		switch f.Severity {
		case SeverityError:
			report.Errors++
		case SeverityWarning:
			report.Warnings++
		default:
			report.Infos++
		}
	}

	report.FinishedAt = time.Now()
	r.log.Info("lint run complete",
		zap.String("run_id", report.RunID),
		zap.Int("notes", report.CheckedNotes),
		zap.Int("errors", report.Errors),
		zap.Int("warnings", report.Warnings),
		zap.Int("infos", report.Infos),
		zap.Duration("took", report.Duration()))
	return report, nil
}

func (r *Runner) applyOverrides(findings []Finding) []Finding {
	if len(r.overrides) == 0 {
		return findings
	}
	kept := findings[:0]
	for _, f := range findings {
		ov, ok := r.overrides[f.Rule]
		if !ok {
			kept = append(kept, f)
			continue
		}
		if ov.Disabled {
			continue
		}
		if ov.Severity != nil {
			f.Severity = *ov.Severity
		}
		kept = append(kept, f)
	}
	return kept
}
