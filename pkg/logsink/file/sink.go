// Package file implements the delivery log sink as an append-only JSONL file.
package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/AllWayChat/chat-plugin/pkg/logsink/record"
)

// FileSink persists entries as one JSON object per line. Writes are appended
// under a mutex; Purge rewrites the file atomically.
type FileSink struct {
	path string
	mu   sync.Mutex
}

// NewFileSink creates a file-based sink writing to path.
func NewFileSink(path string) (*FileSink, error) {
	if path == "" {
		return nil, fmt.Errorf("file path is required for file-based sink")
	}
	return &FileSink{path: path}, nil
}

// Connect ensures the parent directory exists.
func (s *FileSink) Connect(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

// Close is a no-op; the file is opened per operation.
func (s *FileSink) Close() error {
	return nil
}

// Ping checks that the parent directory is writable.
func (s *FileSink) Ping(ctx context.Context) error {
	dir := filepath.Dir(s.path)
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}

// Record appends one entry to the log file.
func (s *FileSink) Record(ctx context.Context, entry record.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal log entry: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append log entry: %w", err)
	}
	return nil
}

// List returns the account's entries, newest first.
func (s *FileSink) List(ctx context.Context, accountID int64, limit int) ([]record.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readAll()
	if err != nil {
		return nil, err
	}

	var out []record.Entry
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].AccountID != accountID {
			continue
		}
		out = append(out, entries[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Purge drops entries older than the cutoff, rewriting the file atomically.
func (s *FileSink) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readAll()
	if err != nil {
		return 0, err
	}

	var kept []record.Entry
	for _, e := range entries {
		if !e.SentAt.Before(olderThan) {
			kept = append(kept, e)
		}
	}
	removed := int64(len(entries) - len(kept))
	if removed == 0 {
		return 0, nil
	}

	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to create temp log file: %w", err)
	}
	w := bufio.NewWriter(f)
	for _, e := range kept {
		line, err := json.Marshal(e)
		if err != nil {
			f.Close()
			os.Remove(tmp)
			return 0, fmt.Errorf("failed to marshal log entry: %w", err)
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			f.Close()
			os.Remove(tmp)
			return 0, fmt.Errorf("failed to write log entry: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return 0, err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return 0, err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("failed to replace log file: %w", err)
	}
	return removed, nil
}

func (s *FileSink) readAll() ([]record.Entry, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	var entries []record.Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e record.Entry
		if err := json.Unmarshal(line, &e); err != nil {
			// Skip corrupted lines rather than failing the whole read.
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}
	return entries, nil
}
