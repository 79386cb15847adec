package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cyberscoundrel/jobbossutils/internal/failure"
	"github.com/cyberscoundrel/jobbossutils/internal/report"
)

// timeLayout stores UTC timestamps at fixed width so text order is time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Run modes.
const (
	ModeUpdate  = "update"
	ModeExecute = "execute"
)

// Entry is one finished run to record.
type Entry struct {
	Mode       string
	BatchID    string // manifest batch, execute mode only
	ReasonID   string
	FinishedAt time.Time
	Summary    *report.Summary
}

// Run is a recorded run as read back from the journal.
type Run struct {
	RunID        string          `json:"run_id"`
	Mode         string          `json:"mode"`
	BatchID      string          `json:"batch_id,omitempty"`
	ReasonID     string          `json:"reason_id,omitempty"`
	FinishedAt   time.Time       `json:"finished_at"`
	DryRun       bool            `json:"dry_run"`
	Planned      int             `json:"planned"`
	Succeeded    int             `json:"succeeded"`
	Failed       int             `json:"failed"`
	NetApplied   int64           `json:"net_applied"`
	FatalKind    failure.Code    `json:"fatal_kind,omitempty"`
	FatalMessage string          `json:"fatal_message,omitempty"`
	Failures     []report.Failed `json:"failures"`
}

// RecordRun appends e in a single transaction.
// Recording the same run ID twice is an error.
func (j *Journal) RecordRun(ctx context.Context, e Entry) error {
	s := e.Summary
	if s == nil || s.RunID == "" {
		return fmt.Errorf("record run: missing run ID")
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record run: begin: %w", err)
	}
	defer tx.Rollback()

	var fatalKind, fatalMessage string
	if s.Fatal != nil {
		fatalKind, fatalMessage = string(s.Fatal.Kind), s.Fatal.Message
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, mode, batch_id, reason_id, finished_at, dry_run,
			planned, succeeded, failed, net_applied, fatal_kind, fatal_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.RunID, e.Mode, e.BatchID, e.ReasonID, e.FinishedAt.UTC().Format(timeLayout),
		s.DryRun, len(s.Planned), s.Succeeded, s.Failed, s.NetApplied, fatalKind, fatalMessage)
	if err != nil {
		return fmt.Errorf("record run %s: %w", s.RunID, err)
	}

	for _, f := range s.Failures {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO run_failures (run_id, item_id, quantity, kind, reason)
			VALUES (?, ?, ?, ?, ?)
		`, s.RunID, f.ID, f.Quantity, string(f.Kind), f.Reason)
		if err != nil {
			return fmt.Errorf("record failure %s/%s: %w", s.RunID, f.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record run: commit: %w", err)
	}
	return nil
}

// ListRuns returns up to limit runs, newest first, each with its failures.
// A limit of zero or less returns every run.
// Ties on finished_at are broken by run ID, so results are deterministic.
func (j *Journal) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, mode, batch_id, reason_id, finished_at, dry_run,
			planned, succeeded, failed, net_applied, fatal_kind, fatal_message
		FROM runs
		ORDER BY finished_at DESC, run_id COLLATE BINARY ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	rows.Close()

	for i := range runs {
		failures, err := j.readFailures(ctx, runs[i].RunID)
		if err != nil {
			return nil, err
		}
		runs[i].Failures = failures
	}
	return runs, nil
}

func scanRun(rows *sql.Rows) (Run, error) {
	var (
		r        Run
		finished string
		kind     string
	)
	if err := rows.Scan(&r.RunID, &r.Mode, &r.BatchID, &r.ReasonID, &finished, &r.DryRun,
		&r.Planned, &r.Succeeded, &r.Failed, &r.NetApplied, &kind, &r.FatalMessage); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	t, err := time.Parse(timeLayout, finished)
	if err != nil {
		return Run{}, fmt.Errorf("run %s: finished_at: %w", r.RunID, err)
	}
	r.FinishedAt = t
	r.FatalKind = failure.Code(kind)
	return r, nil
}

func (j *Journal) readFailures(ctx context.Context, runID string) ([]report.Failed, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT item_id, quantity, kind, reason
		FROM run_failures
		WHERE run_id = ?
		ORDER BY item_id COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	defer rows.Close()

	failures := []report.Failed{}
	for rows.Next() {
		var (
			f    report.Failed
			kind string
		)
		if err := rows.Scan(&f.ID, &f.Quantity, &kind, &f.Reason); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		f.Kind = failure.Code(kind)
		failures = append(failures, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate failures: %w", err)
	}
	return failures, nil
}
