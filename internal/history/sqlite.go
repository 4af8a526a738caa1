// Package history records pipeline runs in a local SQLite database so past
// enrichment batches can be listed and inspected.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// Run is one completed pipeline invocation.
type Run struct {
	ID         string         `json:"id"`
	Command    string         `json:"command"`
	Input      string         `json:"input"`
	Total      int            `json:"total"`
	Eligible   int            `json:"eligible"`
	Counts     map[string]int `json:"counts"`
	CostUSD    float64        `json:"cost_usd"`
	DurationMS int64          `json:"duration_ms"`
	StartedAt  time.Time      `json:"started_at"`
}

// Store persists runs with modernc.org/sqlite.
type Store struct {
	db *sql.DB
}

// Open opens the database at path and configures WAL mode.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "history: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "history: exec %s", pragma)
		}
	}
	return &Store{db: db}, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	command     TEXT NOT NULL,
	input       TEXT NOT NULL,
	total       INTEGER NOT NULL,
	eligible    INTEGER NOT NULL,
	counts      TEXT NOT NULL,
	cost_usd    REAL NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	started_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_command ON runs(command);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// Migrate creates the schema if needed.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "history: migrate")
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts a run, assigning it a fresh ID.
func (s *Store) Record(ctx context.Context, run Run) (string, error) {
	id := uuid.New().String()
	counts, err := json.Marshal(run.Counts)
	if err != nil {
		return "", eris.Wrap(err, "history: marshal counts")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, command, input, total, eligible, counts, cost_usd, duration_ms, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, run.Command, run.Input, run.Total, run.Eligible, string(counts),
		run.CostUSD, run.DurationMS, run.StartedAt.UTC(),
	)
	if err != nil {
		return "", eris.Wrap(err, "history: insert run")
	}
	return id, nil
}

// List returns runs newest first, optionally filtered by command.
func (s *Store) List(ctx context.Context, command string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, command, input, total, eligible, counts, cost_usd, duration_ms, started_at
		FROM runs`
	args := []any{}
	if command != "" {
		query += ` WHERE command = ?`
		args = append(args, command)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "history: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "history: list runs")
}

// Get returns one run by ID.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, command, input, total, eligible, counts, cost_usd, duration_ms, started_at
		 FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, eris.Errorf("history: run %s not found", id)
		}
		return nil, err
	}
	return &run, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var run Run
	var counts string
	if err := sc.Scan(&run.ID, &run.Command, &run.Input, &run.Total, &run.Eligible,
		&counts, &run.CostUSD, &run.DurationMS, &run.StartedAt); err != nil {
		return run, eris.Wrap(err, "history: scan run")
	}
	if err := json.Unmarshal([]byte(counts), &run.Counts); err != nil {
		return run, eris.Wrap(err, "history: parse counts")
	}
	return run, nil
}
