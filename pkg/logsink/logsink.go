// Package logsink persists one delivery log entry per dispatch attempt. The
// sink is pluggable: file-backed JSONL for single-node setups, PostgreSQL or
// SQLite for anything that needs to be queried.
package logsink

import (
	"context"
	"time"

	"github.com/AllWayChat/chat-plugin/pkg/logsink/record"
)

// Entry is one delivery attempt. See record.Entry.
type Entry = record.Entry

// NewEntry stamps a fresh entry with an id and the current time.
func NewEntry(accountID int64, toContact, content string) Entry {
	return record.NewEntry(accountID, toContact, content)
}

// Sink is the delivery log abstraction.
type Sink interface {
	// Record appends one entry. Every dispatch attempt that got past inbox
	// resolution produces exactly one Record call.
	Record(ctx context.Context, entry Entry) error

	// List returns the most recent entries for an account, newest first.
	// limit <= 0 means no limit.
	List(ctx context.Context, accountID int64, limit int) ([]Entry, error)

	// Purge deletes entries older than the cutoff and reports how many were
	// removed.
	Purge(ctx context.Context, olderThan time.Time) (int64, error)

	// Lifecycle management
	Connect(ctx context.Context) error
	Close() error

	// Health check
	Ping(ctx context.Context) error
}

// Config holds sink configuration for the different backends.
type Config struct {
	Type         string        `json:"type"`           // "file", "postgres", "sqlite"
	FilePath     string        `json:"file_path"`      // For file-based sinks (JSONL path)
	DatabaseURL  string        `json:"database_url"`   // For PostgreSQL (connection string)
	DatabasePath string        `json:"database_path"`  // For SQLite (database file path)
	SSLEnabled   bool          `json:"ssl_enabled"`    // Enable SSL for PostgreSQL
	MaxIdleConns int           `json:"max_idle_conns"` // Connection pool - max idle connections
	MaxOpenConns int           `json:"max_open_conns"` // Connection pool - max open connections
	MaxLifetime  time.Duration `json:"max_lifetime"`   // Connection pool - max lifetime
}

// DefaultConfig returns a default sink configuration.
func DefaultConfig(sinkType string) Config {
	return Config{
		Type:         sinkType,
		MaxIdleConns: 5,
		MaxOpenConns: 25,
		MaxLifetime:  5 * time.Minute,
	}
}
