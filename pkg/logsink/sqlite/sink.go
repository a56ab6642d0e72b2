// Package sqlite implements the delivery log sink on an embedded SQLite
// database, for single-binary deployments that still want queryable logs.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/AllWayChat/chat-plugin/pkg/logsink/record"
)

// SQLiteSink persists delivery log entries in a local SQLite file.
type SQLiteSink struct {
	db   *sql.DB
	path string
}

// NewSQLiteSink creates a SQLite-backed sink at path.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required for SQLite sink")
	}

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// modernc.org/sqlite is not safe for concurrent writers on one handle.
	db.SetMaxOpenConns(1)

	return &SQLiteSink{db: db, path: path}, nil
}

// Connect ensures the directory exists and creates the schema.
func (s *SQLiteSink) Connect(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS delivery_logs (
			id                TEXT PRIMARY KEY,
			account_id        INTEGER NOT NULL,
			to_contact        TEXT NOT NULL,
			content           TEXT NOT NULL DEFAULT '',
			conversation_id   INTEGER,
			allway_message_id INTEGER,
			error             TEXT,
			sent_at           TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_delivery_logs_account_sent
			ON delivery_logs (account_id, sent_at DESC);
		CREATE INDEX IF NOT EXISTS idx_delivery_logs_sent_at
			ON delivery_logs (sent_at);`)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteSink) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping checks if the database is reachable.
func (s *SQLiteSink) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Record inserts one entry.
func (s *SQLiteSink) Record(ctx context.Context, entry record.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO delivery_logs (id, account_id, to_contact, content, conversation_id, allway_message_id, error, sent_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.AccountID, entry.ToContact, entry.Content,
		entry.ConversationID, entry.MessageID, nullString(entry.Error), entry.SentAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert delivery log: %w", err)
	}
	return nil
}

// List returns the account's entries, newest first.
func (s *SQLiteSink) List(ctx context.Context, accountID int64, limit int) ([]record.Entry, error) {
	query := `
		SELECT id, account_id, to_contact, content, conversation_id, allway_message_id, error, sent_at
		FROM delivery_logs
		WHERE account_id = ?
		ORDER BY sent_at DESC`
	args := []any{accountID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query delivery logs: %w", err)
	}
	defer rows.Close()

	var entries []record.Entry
	for rows.Next() {
		var e record.Entry
		var errMsg sql.NullString
		if err := rows.Scan(&e.ID, &e.AccountID, &e.ToContact, &e.Content, &e.ConversationID, &e.MessageID, &errMsg, &e.SentAt); err != nil {
			return nil, fmt.Errorf("failed to scan delivery log: %w", err)
		}
		e.Error = errMsg.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Purge deletes entries older than the cutoff.
func (s *SQLiteSink) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM delivery_logs WHERE sent_at < ?`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to purge delivery logs: %w", err)
	}
	return res.RowsAffected()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
