// Package store persists the last-known state document of every device.
//
// Each device owns exactly one record, keyed by device name, holding the
// full merged state document as JSON. Writes replace the whole document;
// the shallow merge happens in memory before the write (see the device
// package). Concurrent writers to the same record race last-write-wins.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when no state record exists for a device name.
var ErrNotFound = errors.New("store: state not found")

// Store is the persistence contract for device state documents.
type Store interface {
	// Load returns the stored state document for a device name.
	// Returns ErrNotFound if the device has never persisted state.
	Load(ctx context.Context, name string) (map[string]any, error)

	// Save replaces the whole state document for a device name.
	// The record is created on first save.
	Save(ctx context.Context, name string, doc map[string]any) error

	// Names returns all device names with a stored state record.
	Names(ctx context.Context) ([]string, error)

	// Delete removes a device's state record. Deleting a missing
	// record is not an error.
	Delete(ctx context.Context, name string) error
}

// SQLiteStore implements Store on a SQLite table with one row per device.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a SQLite-backed store and ensures its schema exists.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	const schema = `
		CREATE TABLE IF NOT EXISTS device_state (
			name       TEXT PRIMARY KEY,
			doc        TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("creating device_state table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Load returns the stored state document for a device name.
func (s *SQLiteStore) Load(ctx context.Context, name string) (map[string]any, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM device_state WHERE name = ?`, name,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying state for %s: %w", name, err)
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decoding state for %s: %w", name, err)
	}
	return doc, nil
}

// Save replaces the whole state document for a device name.
func (s *SQLiteStore) Save(ctx context.Context, name string, doc map[string]any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding state for %s: %w", name, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO device_state (name, doc, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			doc = excluded.doc,
			updated_at = excluded.updated_at`,
		name, string(raw), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving state for %s: %w", name, err)
	}
	return nil
}

// Names returns all device names with a stored state record.
func (s *SQLiteStore) Names(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM device_state ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing state records: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only cursor

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning state record: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating state records: %w", err)
	}
	return names, nil
}

// Delete removes a device's state record.
func (s *SQLiteStore) Delete(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM device_state WHERE name = ?`, name); err != nil {
		return fmt.Errorf("deleting state for %s: %w", name, err)
	}
	return nil
}
