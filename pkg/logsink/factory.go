package logsink

import (
	"fmt"

	"github.com/AllWayChat/chat-plugin/pkg/logsink/file"
	"github.com/AllWayChat/chat-plugin/pkg/logsink/postgres"
	"github.com/AllWayChat/chat-plugin/pkg/logsink/sqlite"
)

// NewSink creates a Sink implementation based on the provided configuration.
// Supported types: "file", "postgres", "sqlite"
func NewSink(cfg Config) (Sink, error) {
	switch cfg.Type {
	case "file":
		return file.NewFileSink(cfg.FilePath)
	case "postgres":
		return postgres.NewPostgresSink(cfg.DatabaseURL, cfg.SSLEnabled, cfg.MaxIdleConns, cfg.MaxOpenConns, cfg.MaxLifetime)
	case "sqlite":
		return sqlite.NewSQLiteSink(cfg.DatabasePath)
	default:
		return nil, fmt.Errorf("unsupported sink type: %s (supported: file, postgres, sqlite)", cfg.Type)
	}
}
