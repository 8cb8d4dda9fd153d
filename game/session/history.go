package session

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/wricardo/blockbingo/game/service"
)

// HistoryStore keeps every plan record in a SQLite table
type HistoryStore struct {
	db *sql.DB
}

// Summary aggregates the stored plans
type Summary struct {
	Plans    int     `json:"plans"`
	Achieved int     `json:"achieved"`
	Sessions int     `json:"sessions"`
	AvgCost  float64 `json:"avg_cost"`
}

// OpenHistoryStore opens or creates the history database at path
func OpenHistoryStore(path string) (*HistoryStore, error) {
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

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS plans (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			commands TEXT NOT NULL,
			cost INTEGER NOT NULL,
			legs INTEGER NOT NULL,
			achieved INTEGER NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS plans_session ON plans(session_id, created_at);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return &HistoryStore{db: db}, nil
}

// Close closes the database
func (h *HistoryStore) Close() error {
	return h.db.Close()
}

// Record inserts a plan record
func (h *HistoryStore) Record(ctx context.Context, rec *service.PlanRecord) error {
	achieved := 0
	if rec.Achieved {
		achieved = 1
	}
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO plans (id, session_id, kind, commands, cost, legs, achieved, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SessionID, rec.Kind, rec.Commands, rec.Cost, rec.Legs, achieved,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to insert plan %s: %w", rec.ID, err)
	}
	return nil
}

// Recent returns the latest records of every session, newest first
func (h *HistoryStore) Recent(ctx context.Context, limit int) ([]*service.PlanRecord, error) {
	return h.query(ctx,
		`SELECT id, session_id, kind, commands, cost, legs, achieved, created_at
		 FROM plans ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
}

// BySession returns the records of one session, oldest first
func (h *HistoryStore) BySession(ctx context.Context, sessionID string) ([]*service.PlanRecord, error) {
	return h.query(ctx,
		`SELECT id, session_id, kind, commands, cost, legs, achieved, created_at
		 FROM plans WHERE session_id = ? ORDER BY created_at, rowid`, sessionID)
}

// Summarize aggregates every stored record
func (h *HistoryStore) Summarize(ctx context.Context) (*Summary, error) {
	var s Summary
	var avg sql.NullFloat64
	var achieved sql.NullInt64
	err := h.db.QueryRowContext(ctx,
		`SELECT COUNT(*), SUM(achieved), COUNT(DISTINCT NULLIF(session_id, '')), AVG(cost) FROM plans`).
		Scan(&s.Plans, &achieved, &s.Sessions, &avg)
	if err != nil {
		return nil, err
	}
	s.Achieved = int(achieved.Int64)
	s.AvgCost = avg.Float64
	return &s, nil
}

func (h *HistoryStore) query(ctx context.Context, q string, args ...any) ([]*service.PlanRecord, error) {
	rows, err := h.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*service.PlanRecord{}
	for rows.Next() {
		var rec service.PlanRecord
		var achieved int
		var created string
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Kind, &rec.Commands, &rec.Cost, &rec.Legs, &achieved, &created); err != nil {
			return nil, err
		}
		rec.Achieved = achieved != 0
		if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("plan %s: bad timestamp %q: %w", rec.ID, created, err)
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}
