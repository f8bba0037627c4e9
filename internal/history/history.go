// Package history persists capacity analysis runs in SQLite.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"gridcapacity/internal/capacity"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	case_name   TEXT NOT NULL,
	started_at  TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	feasible    INTEGER NOT NULL,
	total       INTEGER NOT NULL,
	power_flows INTEGER NOT NULL,
	config      TEXT NOT NULL,
	headroom    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_started_at ON runs (started_at DESC);
`

// Run is one stored capacity analysis run. Feasible counts buses with a
// nonzero load headroom. Config is the request that produced the run, so
// a stored run can be reproduced. Config and the headroom payload are kept
// as raw JSON; they are written once and served verbatim.
type Run struct {
	ID         int64
	CaseName   string
	StartedAt  time.Time
	Duration   time.Duration
	Feasible   int
	Total      int
	PowerFlows int
	Config     json.RawMessage
	Headroom   json.RawMessage
}

// MarshalHeadroom prepares a headroom payload for Insert.
func MarshalHeadroom(headroom capacity.Headroom) (json.RawMessage, error) {
	raw, err := json.Marshal(headroom)
	if err != nil {
		return nil, fmt.Errorf("marshal headroom: %w", err)
	}
	return raw, nil
}

// Store wraps the runs database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the store at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	// SQLite works best with a single writer.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

// Insert stores a run and returns its id.
func (s *Store) Insert(ctx context.Context, run Run) (int64, error) {
	headroom := run.Headroom
	if headroom == nil {
		headroom = json.RawMessage("[]")
	}
	config := run.Config
	if config == nil {
		config = json.RawMessage("{}")
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (case_name, started_at, duration_ms, feasible, total, power_flows, config, headroom)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.CaseName,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.Duration.Milliseconds(),
		run.Feasible,
		run.Total,
		run.PowerFlows,
		string(config),
		string(headroom),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	return res.LastInsertId()
}

// List returns the newest runs first, without their config and headroom
// payloads.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, case_name, started_at, duration_ms, feasible, total, power_flows
		 FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows, false)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// Get returns one run including its config and headroom payloads.
func (s *Store) Get(ctx context.Context, id int64) (Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, case_name, started_at, duration_ms, feasible, total, power_flows, config, headroom
		 FROM runs WHERE id = ?`, id)
	return scanRun(row, true)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner, withPayloads bool) (Run, error) {
	var run Run
	var startedAt string
	var durationMS int64
	dest := []any{
		&run.ID, &run.CaseName, &startedAt, &durationMS,
		&run.Feasible, &run.Total, &run.PowerFlows,
	}
	var config, headroom string
	if withPayloads {
		dest = append(dest, &config, &headroom)
	}
	if err := row.Scan(dest...); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return Run{}, fmt.Errorf("parse run timestamp: %w", err)
	}
	run.StartedAt = ts
	run.Duration = time.Duration(durationMS) * time.Millisecond
	if withPayloads {
		run.Config = json.RawMessage(config)
		run.Headroom = json.RawMessage(headroom)
	}
	return run, nil
}
