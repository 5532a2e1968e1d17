// Package audit persists policy outcomes and pipeline anomalies in a local
// SQLite database: retracted flagged messages, safety-service failures,
// verdicts without an anchor, and failed reply generations. The transcript
// itself is never persisted here; this is a diagnostic trail, not
// conversation state.
package audit

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Kind classifies an audit entry.
type Kind string

const (
	KindFlaggedContent    Kind = "flagged_content"
	KindSafetyFailure     Kind = "safety_service_failure"
	KindDecisionAnomaly   Kind = "decision_parse_anomaly"
	KindGenerationFailure Kind = "generation_failure"
)

// maxContentLen bounds stored message content; enough to diagnose, not
// enough to mirror the channel.
const maxContentLen = 512

// Entry is one audit row.
type Entry struct {
	ID         string
	Kind       Kind
	EventID    string
	ChannelID  string
	AuthorID   string
	AuthorName string
	Content    string
	Detail     string
	At         time.Time
}

// Log is a SQLite-backed audit log.
type Log struct {
	db *sql.DB
}

// Open opens (creating if needed) the audit database at path.
func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening audit db: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_entries (
			id          TEXT PRIMARY KEY,
			kind        TEXT NOT NULL,
			event_id    TEXT NOT NULL,
			channel_id  TEXT NOT NULL,
			author_id   TEXT NOT NULL,
			author_name TEXT NOT NULL,
			content     TEXT NOT NULL,
			detail      TEXT NOT NULL,
			at          TEXT NOT NULL
		)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating audit table: %w", err)
	}

	return &Log{db: db}, nil
}

// Record inserts an entry, filling in ID and timestamp when absent.
func (l *Log) Record(e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}

	_, err := l.db.Exec(`
		INSERT INTO audit_entries
			(id, kind, event_id, channel_id, author_id, author_name, content, detail, at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		string(e.Kind),
		e.EventID,
		e.ChannelID,
		e.AuthorID,
		e.AuthorName,
		truncate(e.Content, maxContentLen),
		e.Detail,
		e.At.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("recording audit entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (l *Log) Recent(limit int) ([]Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, kind, event_id, channel_id, author_id, author_name, content, detail, at
		FROM audit_entries ORDER BY at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e    Entry
			kind string
			at   string
		)
		if err := rows.Scan(&e.ID, &kind, &e.EventID, &e.ChannelID,
			&e.AuthorID, &e.AuthorName, &e.Content, &e.Detail, &at); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		e.Kind = Kind(kind)
		if ts, err := time.Parse(time.RFC3339, at); err == nil {
			e.At = ts
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the underlying database.
func (l *Log) Close() error {
	return l.db.Close()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
