// Package history persists terminal download outcomes so the extension can
// offer redownload of past items. Recording failures are logged by callers
// and never affect the download result itself.
package history

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// Entry is one finished download.
type Entry struct {
	ID         string    `json:"id"`
	DownloadID string    `json:"downloadId"`
	URL        string    `json:"url"`
	OutputPath string    `json:"outputPath,omitempty"`
	MediaType  string    `json:"mediaType,omitempty"`
	Outcome    string    `json:"outcome"`
	Bytes      int64     `json:"bytes,omitempty"`
	Elapsed    float64   `json:"elapsed,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Store is a SQLite-backed history log.
type Store struct {
	db *sql.DB
}

// Open creates or opens the history database under dataDir.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", filepath.Join(dataDir, "history.db"))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	// WAL and a busy timeout keep the single writer responsive.
	if _, err := db.Exec(`
		PRAGMA busy_timeout = 5000;
		PRAGMA journal_mode = WAL;
	`); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.initTable(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initTable() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS downloads (
		id TEXT PRIMARY KEY,
		download_id TEXT NOT NULL,
		url TEXT NOT NULL,
		output_path TEXT,
		media_type TEXT,
		outcome TEXT NOT NULL,
		bytes INTEGER,
		elapsed REAL,
		created_time DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_downloads_created ON downloads(created_time);
	`)
	return err
}

// Record inserts one entry. A zero ID and CreatedAt are filled in.
func (s *Store) Record(e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(
		`INSERT INTO downloads (id, download_id, url, output_path, media_type, outcome, bytes, elapsed, created_time)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.DownloadID, e.URL, e.OutputPath, e.MediaType, e.Outcome, e.Bytes, e.Elapsed, e.CreatedAt,
	)
	return err
}

// List returns the most recent entries, newest first.
func (s *Store) List(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(
		`SELECT id, download_id, url, output_path, media_type, outcome, bytes, elapsed, created_time
		 FROM downloads ORDER BY created_time DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.DownloadID, &e.URL, &e.OutputPath, &e.MediaType, &e.Outcome, &e.Bytes, &e.Elapsed, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Clear removes all entries.
func (s *Store) Clear() error {
	_, err := s.db.Exec(`DELETE FROM downloads`)
	return err
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }
