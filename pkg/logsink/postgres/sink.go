// Package postgres implements the delivery log sink on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/AllWayChat/chat-plugin/pkg/logsink/record"
)

// PostgresSink persists delivery log entries in a delivery_logs table.
type PostgresSink struct {
	db *sql.DB
}

// NewPostgresSink creates a PostgreSQL-backed sink.
func NewPostgresSink(databaseURL string, sslEnabled bool, maxIdleConns, maxOpenConns int, maxLifetime time.Duration) (*PostgresSink, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required for PostgreSQL sink")
	}

	// Add sslmode only when the connection string doesn't pin one already.
	if !strings.Contains(databaseURL, "sslmode=") {
		sep := "?"
		if strings.Contains(databaseURL, "?") {
			sep = "&"
		}
		if sslEnabled {
			databaseURL += sep + "sslmode=require"
		} else {
			databaseURL += sep + "sslmode=disable"
		}
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL connection: %w", err)
	}

	if maxIdleConns > 0 {
		db.SetMaxIdleConns(maxIdleConns)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if maxLifetime > 0 {
		db.SetConnMaxLifetime(maxLifetime)
	}

	return &PostgresSink{db: db}, nil
}

// Connect verifies the connection and runs migrations.
func (s *PostgresSink) Connect(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	if err := RunMigrations(s.db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *PostgresSink) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping checks if the database connection is alive.
func (s *PostgresSink) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Record inserts one entry.
func (s *PostgresSink) Record(ctx context.Context, entry record.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO delivery_logs (id, account_id, to_contact, content, conversation_id, allway_message_id, error, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.AccountID, entry.ToContact, entry.Content,
		entry.ConversationID, entry.MessageID, nullString(entry.Error), entry.SentAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert delivery log: %w", err)
	}
	return nil
}

// List returns the account's entries, newest first.
func (s *PostgresSink) List(ctx context.Context, accountID int64, limit int) ([]record.Entry, error) {
	query := `
		SELECT id, account_id, to_contact, content, conversation_id, allway_message_id, error, sent_at
		FROM delivery_logs
		WHERE account_id = $1
		ORDER BY sent_at DESC`
	args := []any{accountID}
	if limit > 0 {
		query += " LIMIT $2"
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
func (s *PostgresSink) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM delivery_logs WHERE sent_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to purge delivery logs: %w", err)
	}
	return res.RowsAffected()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
