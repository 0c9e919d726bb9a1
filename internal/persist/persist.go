// Package persist keeps twin state snapshots in a SQLite file so a twin can
// pick up where it left off after a restart.
package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS snapshots (
	name     TEXT PRIMARY KEY,
	body     BLOB NOT NULL,
	saved_at TIMESTAMP NOT NULL
)`

// Store is a SQLite-backed snapshot table.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the snapshot database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating %s: %w", path, err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save upserts the snapshot stored under name.
func (s *Store) Save(ctx context.Context, name string, body []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (name, body, saved_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET body = excluded.body, saved_at = excluded.saved_at`,
		name, body, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving snapshot %s: %w", name, err)
	}
	return nil
}

// Load returns the snapshot stored under name. ok is false when none exists.
func (s *Store) Load(ctx context.Context, name string) (body []byte, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT body FROM snapshots WHERE name = ?`, name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("loading snapshot %s: %w", name, err)
	}
	return body, true, nil
}

// State is the part of a twin store a Binding saves and restores.
type State interface {
	Snapshot() any
	LoadState(data []byte) error
}

// Binding ties one twin's state to a named snapshot row. It satisfies the
// admin plane's Persister.
type Binding struct {
	store *Store
	name  string
	state State
}

// Bind returns a Binding for state under name.
func (s *Store) Bind(name string, state State) *Binding {
	return &Binding{store: s, name: name, state: state}
}

// Persist writes the current state.
func (b *Binding) Persist() error {
	body, err := json.Marshal(b.state.Snapshot())
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	return b.store.Save(context.Background(), b.name, body)
}

// Restore loads the saved state, if any. It reports whether a snapshot was
// found.
func (b *Binding) Restore(ctx context.Context) (bool, error) {
	body, ok, err := b.store.Load(ctx, b.name)
	if err != nil || !ok {
		return false, err
	}
	if err := b.state.LoadState(body); err != nil {
		return false, fmt.Errorf("restoring %s: %w", b.name, err)
	}
	return true, nil
}
