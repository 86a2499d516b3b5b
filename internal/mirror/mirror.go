// Package mirror keeps a local SQLite copy of the last-known collections so
// reports still work when the backend is unreachable.
package mirror

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Mirror is a SQLite-backed snapshot store.
type Mirror struct {
	db *sql.DB
}

// Snapshot describes one stored collection.
type Snapshot struct {
	Collection string
	Items      int
	UpdatedAt  time.Time
}

// SyncRun records one refresh attempt.
type SyncRun struct {
	StartedAt  time.Time
	FinishedAt time.Time
	OK         bool
	Message    string
}

// Open opens (creating if needed) the mirror database at dbPath and runs
// pending migrations.
func Open(dbPath string) (*Mirror, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create mirror directory: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open mirror database: %w", err)
	}
	// Stores snapshot from concurrent fetches; SQLite allows one writer.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mirror database: %w", err)
	}
	return &Mirror{db: db}, nil
}

// dsn adds the pragmas every mirror connection needs: writers wait on a
// held lock instead of failing with SQLITE_BUSY, and readers do not block
// the writer.
func dsn(dbPath string) string {
	return dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// Close releases the database.
func (m *Mirror) Close() error {
	return m.db.Close()
}

// SaveSnapshot stores data, a JSON array, as the latest copy of collection.
func (m *Mirror) SaveSnapshot(ctx context.Context, collection string, data []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("snapshot %s is not a JSON array: %w", collection, err)
	}
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO snapshots (collection, data, item_count, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(collection) DO UPDATE SET
			data = excluded.data,
			item_count = excluded.item_count,
			updated_at = excluded.updated_at`,
		collection, data, len(items), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("saving %s snapshot: %w", collection, err)
	}
	return nil
}

// LoadSnapshot returns the stored copy of collection. The bool is false when
// nothing has been stored yet.
func (m *Mirror) LoadSnapshot(ctx context.Context, collection string) ([]byte, bool, error) {
	var data []byte
	err := m.db.QueryRowContext(ctx,
		`SELECT data FROM snapshots WHERE collection = ?`, collection).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("loading %s snapshot: %w", collection, err)
	}
	return data, true, nil
}

// Snapshots lists every stored collection by name.
func (m *Mirror) Snapshots(ctx context.Context) ([]Snapshot, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT collection, item_count, updated_at FROM snapshots ORDER BY collection`)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var s Snapshot
		var updated string
		if err := rows.Scan(&s.Collection, &s.Items, &updated); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		s.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Clear drops every snapshot, e.g. on logout.
func (m *Mirror) Clear(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, `DELETE FROM snapshots`); err != nil {
		return fmt.Errorf("clearing snapshots: %w", err)
	}
	return nil
}

// RecordSync appends a refresh attempt.
func (m *Mirror) RecordSync(ctx context.Context, run SyncRun) error {
	ok := 0
	if run.OK {
		ok = 1
	}
	_, err := m.db.ExecContext(ctx,
		`INSERT INTO sync_runs (started_at, finished_at, ok, message) VALUES (?, ?, ?, ?)`,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		ok, run.Message)
	if err != nil {
		return fmt.Errorf("recording sync run: %w", err)
	}
	return nil
}

// LastSync returns the most recent refresh attempt, if any.
func (m *Mirror) LastSync(ctx context.Context) (SyncRun, bool, error) {
	var run SyncRun
	var started, finished string
	var ok int
	err := m.db.QueryRowContext(ctx,
		`SELECT started_at, finished_at, ok, message FROM sync_runs ORDER BY id DESC LIMIT 1`).
		Scan(&started, &finished, &ok, &run.Message)
	if errors.Is(err, sql.ErrNoRows) {
		return SyncRun{}, false, nil
	}
	if err != nil {
		return SyncRun{}, false, fmt.Errorf("loading last sync: %w", err)
	}
	run.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
	run.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
	run.OK = ok == 1
	return run, true, nil
}
