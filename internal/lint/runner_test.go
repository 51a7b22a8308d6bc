package lint

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prepkit/internal/catalog"
)

type stubRule struct {
	id       string
	findings []Finding
}

func (s stubRule) ID() string { return s.id }

func (s stubRule) Check(context.Context, *catalog.Corpus) []Finding {
	return s.findings
}

func TestRunnerSortsAndCounts(t *testing.T) {
	rules := []Rule{
		stubRule{id: "b-rule", findings: []Finding{
			{Rule: "b-rule", Severity: SeverityWarning, Path: "REACT-Prep.md", Line: 12, Message: "later"},
			{Rule: "b-rule", Severity: SeverityError, Path: "JS-Prep.md", Line: 8, Message: "mid"},
		}},
		stubRule{id: "a-rule", findings: []Finding{
			{Rule: "a-rule", Severity: SeverityInfo, Path: "JS-Prep.md", Line: 3, Message: "early"},
		}},
	}

	r := NewRunner(rules, nil, nil)
	report, err := r.Run(context.Background(), &catalog.Corpus{})
	require.NoError(t, err)

	var order []string
	for _, f := range report.Findings {
		order = append(order, f.Message)
	}
	if diff := cmp.Diff([]string{"early", "mid", "later"}, order); diff != "" {
		t.Errorf("finding order mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 1, report.Errors)
	assert.Equal(t, 1, report.Warnings)
	assert.Equal(t, 1, report.Infos)
	assert.NotEmpty(t, report.RunID)
	assert.False(t, report.FinishedAt.Before(report.StartedAt))
}

func TestRunnerOverrides(t *testing.T) {
	rules := []Rule{
		stubRule{id: "noisy", findings: []Finding{
			{Rule: "noisy", Severity: SeverityWarning, Path: "JS-Prep.md", Message: "drop me"},
		}},
		stubRule{id: "strict", findings: []Finding{
			{Rule: "strict", Severity: SeverityError, Path: "JS-Prep.md", Message: "soften me"},
		}},
	}
	warn := SeverityWarning
	overrides := map[string]Override{
		"noisy":  {Disabled: true},
		"strict": {Severity: &warn},
	}

	r := NewRunner(rules, overrides, nil)
	report, err := r.Run(context.Background(), &catalog.Corpus{})
	require.NoError(t, err)

	require.Len(t, report.Findings, 1)
	assert.Equal(t, "strict", report.Findings[0].Rule)
	assert.Equal(t, SeverityWarning, report.Findings[0].Severity)
	assert.Equal(t, 0, report.Errors)
	assert.Equal(t, 1, report.Warnings)
}

func TestRunnerParseErrors(t *testing.T) {
	corpus := &catalog.Corpus{
		Errors: []catalog.ParseError{
			{Path: "BROKEN-Prep.md", Err: errors.New("unterminated front matter")},
		},
	}

	r := NewRunner(nil, nil, nil)
	report, err := r.Run(context.Background(), corpus)
	require.NoError(t, err)

	require.Len(t, report.Findings, 1)
	f := report.Findings[0]
	assert.Equal(t, "note-parse", f.Rule)
	assert.Equal(t, SeverityError, f.Severity)
	assert.Equal(t, "BROKEN-Prep.md", f.Path)
	assert.Equal(t, "unterminated front matter", f.Detail)
	assert.True(t, report.Failed(SeverityError))
}

func TestRunnerCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner([]Rule{stubRule{id: "any"}}, nil, nil)
	_, err := r.Run(ctx, &catalog.Corpus{})
	assert.ErrorIs(t, err, context.Canceled)
}
