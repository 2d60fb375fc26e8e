package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"Q8-Frobenius/frob"
	"Q8-Frobenius/quat"
)

// DB is the sqlite results store for streaming sweeps. One experiment
// row per case run, one prime_results row per classified prime, and a
// checkpoints table for resumption. Writes are serialized through a
// single connection in WAL mode; every chunk goes in as one
// transaction.
type DB struct {
	sql    *sql.DB
	path   string
	nodeID string
	mu     sync.Mutex
}

const dbSchema = `
CREATE TABLE IF NOT EXISTS experiments (
	id INTEGER PRIMARY KEY,
	case_name TEXT NOT NULL,
	status TEXT NOT NULL,
	start_time TIMESTAMP,
	end_time TIMESTAMP,
	result_path TEXT
);

CREATE TABLE IF NOT EXISTS prime_results (
	id INTEGER PRIMARY KEY,
	case_name TEXT NOT NULL,
	prime INTEGER NOT NULL,
	frobenius_element TEXT NOT NULL,
	chunk_id INTEGER NOT NULL,
	node_id TEXT NOT NULL,
	timestamp TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_prime_results_case_prime
	ON prime_results(case_name, prime);

CREATE TABLE IF NOT EXISTS checkpoints (
	id INTEGER PRIMARY KEY,
	case_name TEXT NOT NULL,
	chunk_id INTEGER NOT NULL,
	progress REAL NOT NULL,
	data_path TEXT,
	timestamp TIMESTAMP
);
`

// NewNodeID returns the short node identifier stamped on every result
// row, the first 8 hex digits of a fresh UUID.
func NewNodeID() string {
	return uuid.NewString()[:8]
}

// OpenDB opens (or creates) the results database at path. nodeID tags
// every row this process writes; pass NewNodeID() unless resuming a
// named node.
func OpenDB(path, nodeID string) (*DB, error) {
	if nodeID == "" {
		return nil, fmt.Errorf("store: empty node id")
	}
	handle, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	// modernc's driver multiplexes badly across connections; keep one
	// and serialize writers above it.
	handle.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	} {
		if _, err := handle.Exec(pragma); err != nil {
			handle.Close()
			return nil, fmt.Errorf("store: %s: %w", pragma, err)
		}
	}
	if _, err := handle.Exec(dbSchema); err != nil {
		handle.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}
	return &DB{sql: handle, path: path, nodeID: nodeID}, nil
}

// Close releases the underlying handle.
func (s *DB) Close() error { return s.sql.Close() }

// Path returns the database file path.
func (s *DB) Path() string { return s.path }

// NodeID returns the identifier stamped on this process's rows.
func (s *DB) NodeID() string { return s.nodeID }

// BeginExperiment records a running experiment and returns its row id.
func (s *DB) BeginExperiment(ctx context.Context, caseName string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.sql.ExecContext(ctx,
		`INSERT INTO experiments (case_name, status, start_time) VALUES (?, ?, ?)`,
		caseName, "running", time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("store: begin experiment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: experiment id: %w", err)
	}
	return id, nil
}

// FinishExperiment closes an experiment row with its final status and
// result artifact path.
func (s *DB) FinishExperiment(ctx context.Context, id int64, status, resultPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.sql.ExecContext(ctx,
		`UPDATE experiments SET status = ?, end_time = ?, result_path = ? WHERE id = ?`,
		status, time.Now().UTC(), resultPath, id)
	if err != nil {
		return fmt.Errorf("store: finish experiment %d: %w", id, err)
	}
	return nil
}

// InsertChunk lands one classified chunk in a single transaction.
func (s *DB) InsertChunk(ctx context.Context, caseName string, chunkID uint64, recs []frob.Record) error {
	if len(recs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin chunk tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO prime_results (case_name, prime, frobenius_element, chunk_id, node_id, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("store: prepare insert: %w", err)
	}
	now := time.Now().UTC()
	for _, r := range recs {
		if _, err := stmt.ExecContext(ctx, caseName, int64(r.Prime), r.Label.String(),
			int64(chunkID), s.nodeID, now); err != nil {
			stmt.Close()
			tx.Rollback()
			return fmt.Errorf("store: insert p=%d: %w", r.Prime, err)
		}
	}
	stmt.Close()
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit chunk %d: %w", chunkID, err)
	}
	return nil
}

// SaveCheckpoint records sweep progress for resumption.
func (s *DB) SaveCheckpoint(ctx context.Context, caseName string, chunkID uint64, progress float64, dataPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.sql.ExecContext(ctx,
		`INSERT INTO checkpoints (case_name, chunk_id, progress, data_path, timestamp)
		 VALUES (?, ?, ?, ?, ?)`,
		caseName, int64(chunkID), progress, dataPath, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store: save checkpoint: %w", err)
	}
	return nil
}

// LatestCheckpoint returns the most recent checkpoint for a case.
// ok is false when the case has none.
func (s *DB) LatestCheckpoint(ctx context.Context, caseName string) (chunkID uint64, progress float64, ok bool, err error) {
	var cid int64
	row := s.sql.QueryRowContext(ctx,
		`SELECT chunk_id, progress FROM checkpoints WHERE case_name = ? ORDER BY id DESC LIMIT 1`,
		caseName)
	switch err := row.Scan(&cid, &progress); {
	case errors.Is(err, sql.ErrNoRows):
		return 0, 0, false, nil
	case err != nil:
		return 0, 0, false, fmt.Errorf("store: latest checkpoint: %w", err)
	}
	return uint64(cid), progress, true, nil
}

// CountResults returns the number of stored classifications for a case.
func (s *DB) CountResults(ctx context.Context, caseName string) (uint64, error) {
	var n int64
	err := s.sql.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM prime_results WHERE case_name = ?`, caseName).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: count results: %w", err)
	}
	return uint64(n), nil
}

// MaxPrime returns the largest stored prime for a case, the resume
// point of an interrupted sweep. ok is false when the case has no rows.
func (s *DB) MaxPrime(ctx context.Context, caseName string) (uint64, bool, error) {
	var p sql.NullInt64
	err := s.sql.QueryRowContext(ctx,
		`SELECT MAX(prime) FROM prime_results WHERE case_name = ?`, caseName).Scan(&p)
	if err != nil {
		return 0, false, fmt.Errorf("store: max prime: %w", err)
	}
	if !p.Valid {
		return 0, false, nil
	}
	return uint64(p.Int64), true, nil
}

// CaseRecords consolidates a case's rows into records ordered by
// prime. Duplicate rows from retried chunks collapse silently; rows
// that disagree about a prime's label are corruption and error out.
func (s *DB) CaseRecords(ctx context.Context, caseName string) ([]frob.Record, error) {
	rows, err := s.sql.QueryContext(ctx,
		`SELECT prime, frobenius_element FROM prime_results WHERE case_name = ? ORDER BY prime`,
		caseName)
	if err != nil {
		return nil, fmt.Errorf("store: query results: %w", err)
	}
	defer rows.Close()

	var out []frob.Record
	for rows.Next() {
		var (
			prime int64
			name  string
		)
		if err := rows.Scan(&prime, &name); err != nil {
			return nil, fmt.Errorf("store: scan result row: %w", err)
		}
		label, err := quat.ParseElementName(name)
		if err != nil {
			return nil, fmt.Errorf("store: %s p=%d: %w", caseName, prime, err)
		}
		rec := frob.Record{
			Prime:  uint64(prime),
			Label:  label,
			Class:  label.Class(),
			Method: frob.MethodImported,
		}
		if n := len(out); n > 0 && out[n-1].Prime == rec.Prime {
			if out[n-1].Label != rec.Label {
				return nil, fmt.Errorf("store: %s p=%d stored with labels %s and %s",
					caseName, prime, out[n-1].Label, rec.Label)
			}
			continue
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate results: %w", err)
	}
	return out, nil
}
