package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"prepkit/internal/lint"
)

// RecordRun stores a lint report and its findings for later comparison.
func (s *Store) RecordRun(ctx context.Context, report *lint.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin run transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, notes, errors, warnings, infos)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		report.RunID, report.StartedAt.UTC(), report.FinishedAt.UTC(),
		report.CheckedNotes, report.Errors, report.Warnings, report.Infos,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, f := range report.Findings {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO findings (run_id, rule, severity, path, line, message, detail)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			report.RunID, f.Rule, f.Severity.String(), f.Path, f.Line, f.Message, f.Detail,
		); err != nil {
			return fmt.Errorf("insert finding: %w", err)
		}
	}

	// Link findings double as per-link health; each run re-grades from
	// scratch so the links table reflects the latest check.
	if _, err := tx.ExecContext(ctx, "UPDATE links SET ok = 1"); err != nil {
		return fmt.Errorf("reset link health: %w", err)
	}
	for _, f := range report.Findings {
		switch f.Rule {
		case "link-resolve", "link-external", "link-external-anchor":
			if _, err := tx.ExecContext(ctx,
				"UPDATE links SET ok = 0 WHERE note_path = ? AND line = ?",
				f.Path, f.Line); err != nil {
				return fmt.Errorf("mark dead link: %w", err)
			}
		}
	}
	return tx.Commit()
}

// LastRun loads the most recent report, nil when none has been recorded.
func (s *Store) LastRun(ctx context.Context) (*lint.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report := &lint.Report{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, notes, errors, warnings, infos
		FROM runs ORDER BY started_at DESC LIMIT 1`,
	).Scan(&report.RunID, &report.StartedAt, &report.FinishedAt,
		&report.CheckedNotes, &report.Errors, &report.Warnings, &report.Infos)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load last run: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT rule, severity, path, line, message, detail
		FROM findings WHERE run_id = ? ORDER BY path, line, rule`, report.RunID)
	if err != nil {
		return nil, fmt.Errorf("load findings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var f lint.Finding
		var severity string
		if err := rows.Scan(&f.Rule, &severity, &f.Path, &f.Line, &f.Message, &f.Detail); err != nil {
			return nil, err
		}
		if sev, err := lint.ParseSeverity(severity); err == nil {
			f.Severity = sev
		}
		report.Findings = append(report.Findings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return report, nil
}
