// history.go persists dispatch records in a SQLite table. This is the
// queryable form of the observability record emitted on every firing; the
// recency store and recipient registry stay in-memory by design.
package scheduler

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Record is one scheduled firing's outcome.
type Record struct {
	ID         string
	SlotID     string
	Text       string
	FiredAt    time.Time
	Recipients int
	Failures   int
}

// DispatchLog persists dispatch records.
type DispatchLog interface {
	// Record persists one firing.
	Record(rec *Record) error

	// Recent returns the latest records, newest first.
	Recent(limit int) ([]*Record, error)

	// Close releases the underlying storage.
	Close() error
}

// SQLiteDispatchLog implements DispatchLog on a SQLite database file.
type SQLiteDispatchLog struct {
	db *sql.DB
}

// OpenSQLiteDispatchLog opens (creating if needed) the dispatch log at path.
func OpenSQLiteDispatchLog(path string) (*SQLiteDispatchLog, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating dispatch log directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening dispatch log: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS dispatches (
			id         TEXT PRIMARY KEY,
			slot_id    TEXT NOT NULL,
			text       TEXT NOT NULL,
			fired_at   TEXT NOT NULL,
			recipients INTEGER NOT NULL,
			failures   INTEGER NOT NULL
		)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating dispatches table: %w", err)
	}

	return &SQLiteDispatchLog{db: db}, nil
}

// Record persists one firing.
func (l *SQLiteDispatchLog) Record(rec *Record) error {
	_, err := l.db.Exec(`
		INSERT INTO dispatches (id, slot_id, text, fired_at, recipients, failures)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.SlotID,
		rec.Text,
		rec.FiredAt.UTC().Format(time.RFC3339),
		rec.Recipients,
		rec.Failures,
	)
	if err != nil {
		return fmt.Errorf("record dispatch %q: %w", rec.SlotID, err)
	}
	return nil
}

// Recent returns the latest records, newest first.
func (l *SQLiteDispatchLog) Recent(limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := l.db.Query(`
		SELECT id, slot_id, text, fired_at, recipients, failures
		FROM dispatches
		ORDER BY fired_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("load dispatches: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var (
			r       Record
			firedAt string
		)
		if err := rows.Scan(&r.ID, &r.SlotID, &r.Text, &firedAt, &r.Recipients, &r.Failures); err != nil {
			return nil, fmt.Errorf("scan dispatch: %w", err)
		}
		r.FiredAt, _ = time.Parse(time.RFC3339, firedAt)
		records = append(records, &r)
	}

	return records, rows.Err()
}

// Close closes the database.
func (l *SQLiteDispatchLog) Close() error {
	return l.db.Close()
}
