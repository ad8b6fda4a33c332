package indexdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"runevale.gg/internal/sim/scene"
)

func TestRecordSessionUpsert(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}

	started := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	row := RowFromStats("sess-1", "p1", "Zezima", started, started.Add(time.Minute), scene.Stats{
		Frames:      3600,
		ReportsSent: 120,
		Anomalies:   2,
	})
	if !idx.RecordSession(row) {
		t.Fatal("RecordSession returned false")
	}

	// Later flush for the same session replaces the counters.
	row.EndedAt = started.Add(2 * time.Minute)
	row.Frames = 7200
	row.ReportsSent = 240
	if !idx.RecordSession(row) {
		t.Fatal("second RecordSession returned false")
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	idx, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx.Close()

	rows, err := idx.Sessions(context.Background(), 10)
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	got := rows[0]
	if got.ID != "sess-1" || got.PlayerName != "Zezima" {
		t.Fatalf("unexpected row: %+v", got)
	}
	if got.Frames != 7200 || got.ReportsSent != 240 || got.Anomalies != 2 {
		t.Fatalf("counters not upserted: %+v", got)
	}
	if !got.EndedAt.Equal(started.Add(2 * time.Minute)) {
		t.Fatalf("ended_at = %v", got.EndedAt)
	}
}

func TestRecordSessionAfterClose(t *testing.T) {
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if idx.RecordSession(SessionRow{ID: "late"}) {
		t.Fatal("RecordSession accepted a row after Close")
	}
}
