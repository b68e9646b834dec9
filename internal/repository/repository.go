// Package repository stores the backing records of repository-origin
// resources in SQLite and answers activation-status lookups for them.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrRecordNotFound is returned when no record exists for a key.
var ErrRecordNotFound = errors.New("record not found")

// Activation status codes of a record.
const (
	StatusNotActivated = 0
	StatusModified     = 1
	StatusActivated    = 2
)

// StatusLabel returns a display label for an activation status code.
func StatusLabel(code int) string {
	switch code {
	case StatusNotActivated:
		return "not activated"
	case StatusModified:
		return "modified"
	case StatusActivated:
		return "activated"
	default:
		return fmt.Sprintf("status %d", code)
	}
}

// Record is one stored resource. Path doubles as the record key.
type Record struct {
	Path             string
	Content          []byte
	ActivationStatus int
	ModifiedAt       time.Time
}

// Repository is a SQLite-backed record store.
type Repository struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	closed bool
}

const schema = `
CREATE TABLE IF NOT EXISTS resources (
	path TEXT PRIMARY KEY,
	content BLOB,
	activation_status INTEGER NOT NULL DEFAULT 0,
	modified_at INTEGER
);`

// Open opens (creating if needed) the repository database at path.
func Open(path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", path, err)
	}
	db.SetMaxOpenConns(4)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create resources table: %w", err)
	}
	return &Repository{db: db, path: path}, nil
}

// Path returns the database file path.
func (r *Repository) Path() string {
	return r.path
}

// Put inserts or replaces a record. Record paths are stored in their
// absolute form, e.g. "/moduleA/templates/page.ftl".
func (r *Repository) Put(ctx context.Context, rec Record) error {
	if rec.ModifiedAt.IsZero() {
		rec.ModifiedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO resources (path, content, activation_status, modified_at) VALUES (?, ?, ?, ?)",
		normalize(rec.Path), rec.Content, rec.ActivationStatus, rec.ModifiedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("put record %s: %w", rec.Path, err)
	}
	return nil
}

// Records streams every record ordered by path, calling fn for each one.
// Content is not loaded.
func (r *Repository) Records(ctx context.Context, fn func(Record) error) error {
	rows, err := r.db.QueryContext(ctx, "SELECT path, activation_status, modified_at FROM resources ORDER BY path")
	if err != nil {
		return fmt.Errorf("query records: %w", err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	for rows.Next() {
		var (
			rec      Record
			modified sql.NullInt64
		)
		if err := rows.Scan(&rec.Path, &rec.ActivationStatus, &modified); err != nil {
			return fmt.Errorf("scan record: %w", err)
		}
		if modified.Valid {
			rec.ModifiedAt = time.Unix(0, modified.Int64)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

// ActivationStatus returns the activation status of the record stored under key.
func (r *Repository) ActivationStatus(ctx context.Context, key string) (int, error) {
	var status int
	err := r.db.QueryRowContext(ctx, "SELECT activation_status FROM resources WHERE path = ?", normalize(key)).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%s: %w", key, ErrRecordNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("read activation status of %s: %w", key, err)
	}
	return status, nil
}

// Close closes the database. Safe to call more than once.
func (r *Repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.db.Close()
}

func normalize(key string) string {
	return "/" + strings.Trim(key, "/")
}
