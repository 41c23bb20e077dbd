// Package state persists build state between runs: the output-path content
// hashes backing the no-op-on-no-change guarantee, the dependency graph of
// the previous build, source file signatures, and per-build records.
package state

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/sitegen/internal/graph"
)

// Store is the SQLite-backed build-state store. Use ":memory:" for tests.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens (and initializes) the store at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize state schema: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS output_hashes (
		path TEXT PRIMARY KEY,
		hash TEXT NOT NULL,
		updated INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS graph_edges (
		artifact TEXT NOT NULL,
		input TEXT NOT NULL,
		PRIMARY KEY (artifact, input)
	);
	CREATE TABLE IF NOT EXISTS source_signatures (
		input_id TEXT PRIMARY KEY,
		path TEXT NOT NULL,
		hash TEXT NOT NULL,
		size INTEGER NOT NULL,
		mtime INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS builds (
		id TEXT PRIMARY KEY,
		started INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		kind TEXT NOT NULL,
		documents INTEGER NOT NULL,
		rendered INTEGER NOT NULL,
		written INTEGER NOT NULL,
		skipped INTEGER NOT NULL,
		warnings INTEGER NOT NULL,
		status TEXT NOT NULL,
		error TEXT
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// OutputHash returns the last recorded content hash for an output path, or
// "" if none is known.
func (s *Store) OutputHash(ctx context.Context, path string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hash string
	err := s.db.QueryRowContext(ctx, "SELECT hash FROM output_hashes WHERE path = ?", path).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query output hash: %w", err)
	}
	return hash, nil
}

// SetOutputHash records the content hash for an output path.
func (s *Store) SetOutputHash(ctx context.Context, path, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO output_hashes (path, hash, updated) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET hash = excluded.hash, updated = excluded.updated`,
		path, hash, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("record output hash: %w", err)
	}
	return nil
}

// SaveGraph replaces the persisted dependency graph with the given edges.
func (s *Store) SaveGraph(ctx context.Context, edges []graph.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin graph transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM graph_edges"); err != nil {
		return fmt.Errorf("clear graph edges: %w", err)
	}
	for _, e := range edges {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO graph_edges (artifact, input) VALUES (?, ?)", e.Artifact, e.Input); err != nil {
			return fmt.Errorf("insert graph edge: %w", err)
		}
	}
	return tx.Commit()
}

// LoadGraph returns the persisted dependency graph edges in deterministic
// order.
func (s *Store) LoadGraph(ctx context.Context) ([]graph.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT artifact, input FROM graph_edges ORDER BY artifact, input")
	if err != nil {
		return nil, fmt.Errorf("query graph edges: %w", err)
	}
	defer rows.Close()

	var edges []graph.Edge
	for rows.Next() {
		var e graph.Edge
		if err := rows.Scan(&e.Artifact, &e.Input); err != nil {
			return nil, fmt.Errorf("scan graph edge: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// Signature identifies one source file's content at a point in time.
type Signature struct {
	Path  string
	Hash  string
	Size  int64
	MTime int64
}

// LoadSignatures returns all recorded source signatures keyed by dependency
// graph input ID.
func (s *Store) LoadSignatures(ctx context.Context) (map[string]Signature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT input_id, path, hash, size, mtime FROM source_signatures")
	if err != nil {
		return nil, fmt.Errorf("query source signatures: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Signature)
	for rows.Next() {
		var (
			id  string
			sig Signature
		)
		if err := rows.Scan(&id, &sig.Path, &sig.Hash, &sig.Size, &sig.MTime); err != nil {
			return nil, fmt.Errorf("scan source signature: %w", err)
		}
		out[id] = sig
	}
	return out, rows.Err()
}

// SaveSignatures replaces all recorded source signatures.
func (s *Store) SaveSignatures(ctx context.Context, sigs map[string]Signature) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin signature transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM source_signatures"); err != nil {
		return fmt.Errorf("clear source signatures: %w", err)
	}
	for id, sig := range sigs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO source_signatures (input_id, path, hash, size, mtime) VALUES (?, ?, ?, ?, ?)",
			id, sig.Path, sig.Hash, sig.Size, sig.MTime); err != nil {
			return fmt.Errorf("insert source signature: %w", err)
		}
	}
	return tx.Commit()
}

// BuildRecord summarizes one completed (or failed) build.
type BuildRecord struct {
	ID        string
	Started   time.Time
	Duration  time.Duration
	Kind      string // "full" or "incremental"
	Documents int
	Rendered  int
	Written   int
	Skipped   int
	Warnings  int
	Status    string // "ok" or "failed"
	Error     string
}

// RecordBuild appends a build record.
func (s *Store) RecordBuild(ctx context.Context, r BuildRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO builds (id, started, duration_ms, kind, documents, rendered, written, skipped, warnings, status, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Started.Unix(), r.Duration.Milliseconds(), r.Kind,
		r.Documents, r.Rendered, r.Written, r.Skipped, r.Warnings, r.Status, r.Error)
	if err != nil {
		return fmt.Errorf("record build: %w", err)
	}
	return nil
}

// LastBuild returns the most recent build record, or nil if none exist.
func (s *Store) LastBuild(ctx context.Context) (*BuildRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		r          BuildRecord
		started    int64
		durationMS int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, started, duration_ms, kind, documents, rendered, written, skipped, warnings, status, COALESCE(error, '')
		 FROM builds ORDER BY started DESC, id DESC LIMIT 1`).
		Scan(&r.ID, &started, &durationMS, &r.Kind, &r.Documents, &r.Rendered,
			&r.Written, &r.Skipped, &r.Warnings, &r.Status, &r.Error)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query last build: %w", err)
	}
	r.Started = time.Unix(started, 0)
	r.Duration = time.Duration(durationMS) * time.Millisecond
	return &r, nil
}

// ForgetOutputs removes hash records for output paths no longer produced and
// returns the forgotten paths, so the caller can delete the stale files.
func (s *Store) ForgetOutputs(ctx context.Context, keep map[string]struct{}) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, "SELECT path FROM output_hashes")
	if err != nil {
		return nil, fmt.Errorf("query output paths: %w", err)
	}
	var stale []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan output path: %w", err)
		}
		if _, ok := keep[path]; !ok {
			stale = append(stale, path)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, path := range stale {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM output_hashes WHERE path = ?", path); err != nil {
			return nil, fmt.Errorf("forget output %s: %w", path, err)
		}
	}
	return stale, nil
}
