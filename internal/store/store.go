// Package store persists query results in SQLite so that unchanged
// documents are not evaluated again.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS results (
	doc_hash   TEXT    NOT NULL,
	query      TEXT    NOT NULL,
	kind       TEXT    NOT NULL,
	output     TEXT    NOT NULL,
	error      TEXT    NOT NULL DEFAULT '',
	run_id     TEXT    NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (doc_hash, query)
);
CREATE INDEX IF NOT EXISTS results_run ON results (run_id);
`

// Record is one stored query result.
type Record struct {
	DocHash   string
	Query     string
	Kind      string
	Output    string
	Err       string
	RunID     string
	CreatedAt time.Time
}

// Store is a SQLite backed result cache. It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path. ":memory:" gives a
// private in-memory store.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", path, err)
	}
	if path == ":memory:" {
		// every pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing store %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Lookup returns the stored result of query for the document hash.
func (s *Store) Lookup(ctx context.Context, docHash, query string) (Record, bool, error) {
	r := Record{DocHash: docHash, Query: query}
	var created int64
	err := s.db.QueryRowContext(ctx,
		`SELECT kind, output, error, run_id, created_at FROM results WHERE doc_hash = ? AND query = ?`,
		docHash, query,
	).Scan(&r.Kind, &r.Output, &r.Err, &r.RunID, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("looking up %s: %w", query, err)
	}
	r.CreatedAt = time.Unix(0, created).UTC()
	return r, true, nil
}

// Save inserts or replaces a result.
func (s *Store) Save(ctx context.Context, r Record) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO results (doc_hash, query, kind, output, error, run_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.DocHash, r.Query, r.Kind, r.Output, r.Err, r.RunID, r.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("saving %s: %w", r.Query, err)
	}
	return nil
}

// Run lists the results written by one run, in query order.
func (s *Store) Run(ctx context.Context, runID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc_hash, query, kind, output, error, created_at FROM results WHERE run_id = ? ORDER BY query`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r := Record{RunID: runID}
		var created int64
		if err := rows.Scan(&r.DocHash, &r.Query, &r.Kind, &r.Output, &r.Err, &created); err != nil {
			return nil, fmt.Errorf("listing run %s: %w", runID, err)
		}
		r.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// Forget drops every result stored for a document.
func (s *Store) Forget(ctx context.Context, docHash string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM results WHERE doc_hash = ?`, docHash)
	if err != nil {
		return 0, fmt.Errorf("forgetting %s: %w", docHash, err)
	}
	return res.RowsAffected()
}
