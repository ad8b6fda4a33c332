// Package indexdb keeps a local sqlite index of sync sessions: when the
// client ran, how many reports it sent, and how often the guard rails
// fired. It is telemetry only; world state never persists here.
package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"runevale.gg/internal/sim/scene"
)

// SessionRow is one client run.
type SessionRow struct {
	ID            string
	PlayerID      string
	PlayerName    string
	StartedAt     time.Time
	EndedAt       time.Time
	Frames        uint64
	ReportsSent   uint64
	Anomalies     uint64
	RejectedMoves uint64
	Placeholders  uint64
	DedupReleased uint64
}

// RowFromStats builds a session row from a scene counter snapshot.
func RowFromStats(id, playerID, playerName string, started, ended time.Time, st scene.Stats) SessionRow {
	return SessionRow{
		ID:            id,
		PlayerID:      playerID,
		PlayerName:    playerName,
		StartedAt:     started,
		EndedAt:       ended,
		Frames:        st.Frames,
		ReportsSent:   st.ReportsSent,
		Anomalies:     st.Anomalies,
		RejectedMoves: st.RejectedMoves,
		Placeholders:  st.Placeholders,
		DedupReleased: st.DedupReleased,
	}
}

// SQLiteIndex writes rows on a dedicated goroutine so the caller never
// blocks on disk.
type SQLiteIndex struct {
	db *sql.DB

	ch     chan SessionRow
	wg     sync.WaitGroup
	once   sync.Once
	closed atomic.Bool
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan SessionRow, 64),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			player_id TEXT NOT NULL,
			player_name TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			frames INTEGER NOT NULL,
			reports_sent INTEGER NOT NULL,
			anomalies INTEGER NOT NULL,
			rejected_moves INTEGER NOT NULL,
			placeholders INTEGER NOT NULL,
			dedup_released INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_player ON sessions(player_id, started_at);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// RecordSession queues a row. Repeated writes for the same session id
// upsert. Returns false when the index is closed or the queue is full.
func (s *SQLiteIndex) RecordSession(row SessionRow) bool {
	if s.closed.Load() {
		return false
	}
	select {
	case s.ch <- row:
		return true
	default:
		return false
	}
}

func (s *SQLiteIndex) loop() {
	for row := range s.ch {
		_, err := s.db.Exec(`
			INSERT INTO sessions (id, player_id, player_name, started_at, ended_at,
				frames, reports_sent, anomalies, rejected_moves, placeholders, dedup_released)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				ended_at = excluded.ended_at,
				frames = excluded.frames,
				reports_sent = excluded.reports_sent,
				anomalies = excluded.anomalies,
				rejected_moves = excluded.rejected_moves,
				placeholders = excluded.placeholders,
				dedup_released = excluded.dedup_released;`,
			row.ID, row.PlayerID, row.PlayerName,
			row.StartedAt.UTC().Format(time.RFC3339),
			row.EndedAt.UTC().Format(time.RFC3339),
			row.Frames, row.ReportsSent, row.Anomalies,
			row.RejectedMoves, row.Placeholders, row.DedupReleased,
		)
		_ = err // the index is advisory; a failed write is not fatal
	}
}

// Sessions returns the most recent rows, newest first.
func (s *SQLiteIndex) Sessions(ctx context.Context, limit int) ([]SessionRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, player_id, player_name, started_at, ended_at,
			frames, reports_sent, anomalies, rejected_moves, placeholders, dedup_released
		FROM sessions ORDER BY started_at DESC LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionRow
	for rows.Next() {
		var r SessionRow
		var started, ended string
		if err := rows.Scan(&r.ID, &r.PlayerID, &r.PlayerName, &started, &ended,
			&r.Frames, &r.ReportsSent, &r.Anomalies,
			&r.RejectedMoves, &r.Placeholders, &r.DedupReleased); err != nil {
			return nil, err
		}
		r.StartedAt, _ = time.Parse(time.RFC3339, started)
		r.EndedAt, _ = time.Parse(time.RFC3339, ended)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close drains queued rows and shuts the database.
func (s *SQLiteIndex) Close() error {
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
	})
	s.wg.Wait()
	return s.db.Close()
}
