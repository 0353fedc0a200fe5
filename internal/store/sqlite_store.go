// file: internal/store/sqlite_store.go
// version: 1.0.0
// guid: 0b1c2d3e-4f5a-6b7c-8d9e-0f1a2b3c4d5e

package store

import (
	"database/sql"
	"fmt"
	"math/rand"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"
)

// Status values recorded for a processed message.
const (
	StatusFiled   = "filed"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// LogEntry is one row of the processing log: what happened to one email.
// Mirrors the columns of the CSV audit log this system replaces.
type LogEntry struct {
	ID          string
	MessageID   string
	Subject     string
	Sender      string
	Company     string
	MatchKind   string
	Filenames   []string
	Status      string
	Detail      string
	ProcessedAt time.Time
}

// SQLiteStore is the durable processing log. It backs idempotent ingestion:
// a message whose ID is already logged as filed is never processed twice.
type SQLiteStore struct {
	db      *sql.DB
	entropy *ulid.MonotonicEntropy
}

// NewSQLiteStore opens (or creates) the log database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	store := &SQLiteStore{
		db:      db,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}

	if err := store.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS processing_log (
		id TEXT PRIMARY KEY,
		message_id TEXT NOT NULL,
		subject TEXT,
		sender TEXT,
		company TEXT,
		match_kind TEXT,
		filenames TEXT,
		status TEXT NOT NULL,
		detail TEXT,
		processed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_log_message ON processing_log(message_id);
	CREATE INDEX IF NOT EXISTS idx_log_status ON processing_log(status);
	CREATE INDEX IF NOT EXISTS idx_log_company ON processing_log(company);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// Append writes one log row. The entry's ID is assigned here.
func (s *SQLiteStore) Append(entry LogEntry) (string, error) {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()

	if entry.ProcessedAt.IsZero() {
		entry.ProcessedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(`
		INSERT INTO processing_log
			(id, message_id, subject, sender, company, match_kind, filenames, status, detail, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, entry.MessageID, entry.Subject, entry.Sender, entry.Company,
		entry.MatchKind, joinFilenames(entry.Filenames), entry.Status, entry.Detail,
		entry.ProcessedAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to append log entry: %w", err)
	}
	return id, nil
}

// IsProcessed reports whether a message ID has already been filed. Skipped
// and failed messages stay eligible for a rerun.
func (s *SQLiteStore) IsProcessed(messageID string) (bool, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(1) FROM processing_log
		WHERE message_id = ? AND status = ?`,
		messageID, StatusFiled,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to query processing log: %w", err)
	}
	return count > 0, nil
}

// ProcessedMessageIDs returns the set of message IDs already filed.
func (s *SQLiteStore) ProcessedMessageIDs() (map[string]bool, error) {
	rows, err := s.db.Query(`
		SELECT DISTINCT message_id FROM processing_log WHERE status = ?`,
		StatusFiled,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query processing log: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan message id: %w", err)
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// Recent returns the newest n log entries for operator inspection.
func (s *SQLiteStore) Recent(n int) ([]LogEntry, error) {
	if n <= 0 {
		n = 50
	}
	rows, err := s.db.Query(`
		SELECT id, message_id, subject, sender, company, match_kind, filenames, status, detail, processed_at
		FROM processing_log
		ORDER BY processed_at DESC, id DESC
		LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query processing log: %w", err)
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var e LogEntry
		var filenames string
		if err := rows.Scan(&e.ID, &e.MessageID, &e.Subject, &e.Sender, &e.Company,
			&e.MatchKind, &filenames, &e.Status, &e.Detail, &e.ProcessedAt); err != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", err)
		}
		e.Filenames = splitFilenames(filenames)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Generated filenames never contain newlines, so a plain join is
// unambiguous as the column encoding.
func joinFilenames(names []string) string {
	return strings.Join(names, "\n")
}

func splitFilenames(joined string) []string {
	if joined == "" {
		return nil
	}
	return strings.Split(joined, "\n")
}
