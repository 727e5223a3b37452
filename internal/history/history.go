// Package history persists a transfer audit log to SQLite. The catalog
// itself is in-memory and lives only as long as the process; the history
// survives restarts so the host can see what moved across the LAN and when.
package history

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/google/uuid"
)

// Event types recorded in the log.
const (
	EventUpload   = "upload"
	EventDownload = "download"
	EventRemove   = "remove"
)

// Event is one recorded transfer operation.
type Event struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
	Size     int64  `json:"size"`
	Peer     string `json:"peer,omitempty"`
	At       int64  `json:"at"`
}

// DB wraps a sql.DB connection to the history database.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and runs migrations.
func Open(path string) (*DB, error) {
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	d := &DB{db: sqlDB}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return d, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) migrate() error {
	schema := `
CREATE TABLE IF NOT EXISTS transfer_events (
    id TEXT PRIMARY KEY,
    type TEXT NOT NULL,
    file_id TEXT NOT NULL,
    file_name TEXT NOT NULL,
    size INTEGER NOT NULL,
    peer TEXT,
    at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transfer_events_at ON transfer_events(at);
CREATE INDEX IF NOT EXISTS idx_transfer_events_file ON transfer_events(file_id);`
	_, err := d.db.Exec(schema)
	return err
}

// Record inserts a new transfer event. The event id is assigned here if empty.
func (d *DB) Record(e *Event) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	_, err := d.db.Exec(
		`INSERT INTO transfer_events (id, type, file_id, file_name, size, peer, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Type, e.FileID, e.FileName, e.Size, e.Peer, e.At,
	)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// ListRecent returns up to limit events, newest first.
func (d *DB) ListRecent(limit int) ([]Event, error) {
	rows, err := d.db.Query(
		`SELECT id, type, file_id, file_name, size, peer, at
		 FROM transfer_events ORDER BY at DESC, id LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var peer sql.NullString
		if err := rows.Scan(&e.ID, &e.Type, &e.FileID, &e.FileName, &e.Size, &peer, &e.At); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Peer = peer.String
		events = append(events, e)
	}
	return events, rows.Err()
}

// Prune deletes events recorded before the given unix timestamp. Returns the
// number of rows removed.
func (d *DB) Prune(before int64) (int, error) {
	res, err := d.db.Exec(`DELETE FROM transfer_events WHERE at < ?`, before)
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune rows affected: %w", err)
	}
	return int(n), nil
}
