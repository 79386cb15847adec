package journal

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cyberscoundrel/jobbossutils/internal/failure"
	"github.com/cyberscoundrel/jobbossutils/internal/report"
	"github.com/cyberscoundrel/jobbossutils/internal/update"
)

// createTestJournal opens a journal in a temp dir, closed on cleanup.
func createTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func testSummary(runID string) *report.Summary {
	return &report.Summary{
		RunID:      runID,
		Planned:    []update.Item{{ID: "A", Delta: -3}, {ID: "B", Delta: -2}, {ID: "C", Delta: -1}},
		Succeeded:  1,
		Failed:     2,
		NetApplied: -3,
		Successes:  []report.Applied{{ID: "A", Quantity: -3}},
		Failures: []report.Failed{
			{ID: "C", Quantity: -1, Kind: failure.CodeConflict, Reason: "concurrency token mismatch: expected t2, submitted t1"},
			{ID: "B", Quantity: -2, Kind: failure.CodeNotFound, Reason: "not found"},
		},
	}
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer j.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("journal file was not created")
	}

	v, err := j.schemaVersion(context.Background())
	if err != nil {
		t.Fatalf("schemaVersion() failed: %v", err)
	}
	if v != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d", v, currentSchemaVersion)
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	for i := 0; i < 3; i++ {
		j, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		j.Close()
	}

	j, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer j.Close()

	for _, table := range []string{"runs", "run_failures"} {
		var name string
		err := j.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestOpen_Pragmas(t *testing.T) {
	j := createTestJournal(t)

	checks := map[string]string{
		"journal_mode": "wal",
		"foreign_keys": "1",
		"busy_timeout": "5000",
	}
	for name, want := range checks {
		var got string
		if err := j.db.QueryRow("PRAGMA " + name).Scan(&got); err != nil {
			t.Fatalf("PRAGMA %s: %v", name, err)
		}
		if got != want {
			t.Errorf("PRAGMA %s = %q, want %q", name, got, want)
		}
	}
}

func TestRecordRun_RoundTrip(t *testing.T) {
	ctx := context.Background()
	j := createTestJournal(t)
	finished := time.Date(2025, 6, 1, 12, 0, 0, 500, time.UTC)

	err := j.RecordRun(ctx, Entry{
		Mode:       ModeExecute,
		BatchID:    "batch-1",
		ReasonID:   "ADJUST",
		FinishedAt: finished,
		Summary:    testSummary("run-1"),
	})
	if err != nil {
		t.Fatalf("RecordRun() failed: %v", err)
	}

	runs, err := j.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}

	r := runs[0]
	if r.RunID != "run-1" || r.Mode != ModeExecute || r.BatchID != "batch-1" || r.ReasonID != "ADJUST" {
		t.Errorf("unexpected run header: %+v", r)
	}
	if !r.FinishedAt.Equal(finished) {
		t.Errorf("FinishedAt = %v, want %v", r.FinishedAt, finished)
	}
	if r.Planned != 3 || r.Succeeded != 1 || r.Failed != 2 || r.NetApplied != -3 {
		t.Errorf("unexpected counts: %+v", r)
	}
	if len(r.Failures) != 2 {
		t.Fatalf("got %d failures, want 2", len(r.Failures))
	}
	// Failures come back in identifier order.
	if r.Failures[0].ID != "B" || r.Failures[1].ID != "C" {
		t.Errorf("failures out of order: %+v", r.Failures)
	}
	if r.Failures[1].Kind != failure.CodeConflict {
		t.Errorf("Kind = %q, want CONFLICT", r.Failures[1].Kind)
	}
}

func TestRecordRun_Fatal(t *testing.T) {
	ctx := context.Background()
	j := createTestJournal(t)

	s := report.Summarize(&update.Result{RunID: "run-f"}, failure.Session("credentials rejected", nil))
	if err := j.RecordRun(ctx, Entry{Mode: ModeUpdate, FinishedAt: time.Now(), Summary: s}); err != nil {
		t.Fatalf("RecordRun() failed: %v", err)
	}

	runs, err := j.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if runs[0].FatalKind != failure.CodeSession {
		t.Errorf("FatalKind = %q, want SESSION", runs[0].FatalKind)
	}
	if len(runs[0].Failures) != 0 {
		t.Errorf("expected no failures, got %+v", runs[0].Failures)
	}
}

func TestRecordRun_DuplicateRejected(t *testing.T) {
	ctx := context.Background()
	j := createTestJournal(t)
	e := Entry{Mode: ModeUpdate, FinishedAt: time.Now(), Summary: testSummary("run-1")}

	if err := j.RecordRun(ctx, e); err != nil {
		t.Fatalf("first RecordRun() failed: %v", err)
	}
	if err := j.RecordRun(ctx, e); err == nil {
		t.Fatal("second RecordRun() should fail")
	}

	var count int
	if err := j.db.QueryRow("SELECT COUNT(*) FROM run_failures").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("run_failures count = %d, want 2 (failed insert must roll back)", count)
	}
}

func TestRecordRun_MissingRunID(t *testing.T) {
	j := createTestJournal(t)
	if err := j.RecordRun(context.Background(), Entry{Summary: &report.Summary{}}); err == nil {
		t.Fatal("expected error for missing run ID")
	}
}

func TestListRuns_NewestFirst(t *testing.T) {
	ctx := context.Background()
	j := createTestJournal(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	entries := []struct {
		id  string
		off time.Duration
	}{
		{"run-b", 0},
		{"run-c", 500 * time.Millisecond},
		{"run-a", 0},
		{"run-d", 2 * time.Second},
	}
	for _, e := range entries {
		err := j.RecordRun(ctx, Entry{Mode: ModeUpdate, FinishedAt: base.Add(e.off), Summary: &report.Summary{RunID: e.id}})
		if err != nil {
			t.Fatalf("RecordRun(%s) failed: %v", e.id, err)
		}
	}

	runs, err := j.ListRuns(ctx, 3)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}

	var got []string
	for _, r := range runs {
		got = append(got, r.RunID)
	}
	want := []string{"run-d", "run-c", "run-a"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestListRuns_Empty(t *testing.T) {
	j := createTestJournal(t)
	runs, err := j.ListRuns(context.Background(), 5)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if runs == nil || len(runs) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", runs)
	}
}
