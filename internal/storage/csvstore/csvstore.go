// Package csvstore implements the Storage interface over flat CSV files,
// one file per entity, read and rewritten wholesale. It is the lightweight
// backend for installs without a database; durability is whatever the file
// system provides, and a process-wide mutex serializes access so overlapping
// requests cannot interleave a read-modify-write cycle.
package csvstore

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var fileHeaders = map[string][]string{
	"transactions": {"id", "hash", "date", "description", "merchant", "category",
		"amount", "type", "owner", "account_id", "group_id", "recurring_id",
		"receipt_image", "created_at"},
	"recurring": {"id", "owner", "description", "merchant", "category", "amount",
		"type", "account_id", "group_id", "frequency", "next_date", "active", "created_at"},
	"budgets":       {"id", "owner", "category", "limit", "period", "start_date", "created_at"},
	"groups":        {"id", "name", "members"},
	"splits":        {"transaction_id", "member", "percent"},
	"notifications": {"id", "owner", "kind", "title", "message", "reference",
		"period", "read", "email_sent", "created_at"},
}

// Store is a CSV-file-backed Storage implementation.
type Store struct {
	dir string
	mu  sync.Mutex
}

// New creates a CSV store rooted at dir, creating the directory and any
// missing entity files.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("csv store directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create csv directory: %w", err)
	}

	s := &Store{dir: dir}
	if err := s.ensureFiles(); err != nil {
		return nil, err
	}
	return s, nil
}

// Migrate ensures every entity file exists with its header row. The CSV
// backend has no schema versions; new columns require a manual migration.
func (s *Store) Migrate(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureFiles()
}

// Close is a no-op; files are opened per operation.
func (s *Store) Close() error {
	return nil
}

func (s *Store) ensureFiles() error {
	for name, headers := range fileHeaders {
		path := s.path(name)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		w := csv.NewWriter(f)
		if err := w.Write(headers); err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to write header for %s: %w", name, err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to flush header for %s: %w", name, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to close %s: %w", path, err)
		}
	}
	return nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".csv")
}

// readAll returns every data row of the named file, header excluded.
// Callers must hold s.mu.
func (s *Store) readAll(name string) ([][]string, error) {
	f, err := os.Open(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			if err := s.ensureFiles(); err != nil {
				return nil, err
			}
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(fileHeaders[name])
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if len(records) <= 1 {
		return nil, nil
	}
	return records[1:], nil
}

// appendRow appends a single row. Callers must hold s.mu.
func (s *Store) appendRow(name string, row []string) error {
	f, err := os.OpenFile(s.path(name), os.O_APPEND|os.O_WRONLY, 0640)
	if err != nil {
		return fmt.Errorf("failed to open %s for append: %w", name, err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.Write(row); err != nil {
		return fmt.Errorf("failed to append to %s: %w", name, err)
	}
	w.Flush()
	return w.Error()
}

// rewriteAll replaces the file contents with the header plus rows, writing
// through a temp file and rename so a crash never leaves a half-written file.
// Callers must hold s.mu.
func (s *Store) rewriteAll(name string, rows [][]string) error {
	tmp, err := os.CreateTemp(s.dir, name+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}
	tmpPath := tmp.Name()

	w := csv.NewWriter(tmp)
	if err := w.Write(fileHeaders[name]); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write header for %s: %w", name, err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
			return fmt.Errorf("failed to write row for %s: %w", name, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to flush %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file for %s: %w", name, err)
	}
	if err := os.Rename(tmpPath, s.path(name)); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	return t.Format(time.RFC3339)
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
