package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/lockverify/internal/detect"
)

// Run is one archived verification run.
type Run struct {
	ID           string
	CreatedAt    time.Time
	LocksChecked int
	Errors       int
	Suppressed   int
}

// CycleRecord is one archived cycle finding.
type CycleRecord struct {
	RunID   string
	Idx     int
	Witness string
	Length  int
	Report  string
}

// RecordRun archives a detection result and returns the new run's id.
// reported are the cycles that counted as errors; suppressed is how many
// findings a suppression rule filtered out.
func (s *Store) RecordRun(ctx context.Context, res *detect.Result, reported []*detect.Cycle, suppressed int) (string, error) {
	runID := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, created_at, locks_checked, errors, suppressed)
		VALUES (?, ?, ?, ?, ?)
	`, runID, time.Now().Unix(), res.LocksChecked, len(reported), suppressed)
	if err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}

	for i, c := range reported {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO cycles (run_id, idx, witness, length, report)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING
		`, runID, i, c.Witness.ID.String(), c.Length(), c.Render())
		if err != nil {
			return "", fmt.Errorf("record cycle %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}
	return runID, nil
}

// ListRuns returns all archived runs, newest first, id as tiebreaker for
// runs recorded in the same second.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, locks_checked, errors, suppressed
		FROM runs
		ORDER BY created_at DESC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		var created int64
		if err := rows.Scan(&r.ID, &created, &r.LocksChecked, &r.Errors, &r.Suppressed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.CreatedAt = time.Unix(created, 0).UTC()
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// RunCycles returns the archived cycles of one run in report order.
func (s *Store) RunCycles(ctx context.Context, runID string) ([]CycleRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, idx, witness, length, report
		FROM cycles
		WHERE run_id = ?
		ORDER BY idx ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query cycles: %w", err)
	}
	defer rows.Close()

	recs := []CycleRecord{}
	for rows.Next() {
		var c CycleRecord
		if err := rows.Scan(&c.RunID, &c.Idx, &c.Witness, &c.Length, &c.Report); err != nil {
			return nil, fmt.Errorf("scan cycle: %w", err)
		}
		recs = append(recs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cycles: %w", err)
	}
	return recs, nil
}
