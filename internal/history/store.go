// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history keeps a local log of applied conversion outcomes in a
// SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/markitdown-web/pkg/types"
)

const defaultMaxResults = 20

// Entry is one recorded outcome. Kind is "success" for conversions that
// produced an artifact.
type Entry struct {
	ID           string    `json:"id" yaml:"id"`
	SourceName   string    `json:"source_name" yaml:"source_name"`
	Filename     string    `json:"filename,omitempty" yaml:"filename,omitempty"`
	OriginalSize int64     `json:"original_size" yaml:"original_size"`
	Kind         string    `json:"kind" yaml:"kind"`
	Message      string    `json:"message,omitempty" yaml:"message,omitempty"`
	ConvertedAt  time.Time `json:"converted_at" yaml:"converted_at"`
}

// Succeeded reports whether the entry records a successful conversion.
func (e Entry) Succeeded() bool { return e.Kind == kindSuccess }

const kindSuccess = "success"

// Store manages the history database.
type Store struct {
	db         *sql.DB
	maxResults int
}

// Open opens or creates the history database at cfg.DBPath, creating
// the parent directory and schema as needed.
func Open(cfg types.HistoryConfig) (*Store, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("history database path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	s := &Store{db: db, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS conversions (
			id TEXT PRIMARY KEY,
			source_name TEXT NOT NULL,
			filename TEXT,
			original_size INTEGER NOT NULL,
			kind TEXT NOT NULL,
			message TEXT,
			converted_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversions_converted_at ON conversions(converted_at)`,
		`CREATE INDEX IF NOT EXISTS idx_conversions_kind ON conversions(kind)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores an outcome. It satisfies workflow.Recorder.
func (s *Store) Record(ctx context.Context, source types.CandidateFile, out types.Outcome, at time.Time) error {
	e := Entry{
		ID:           uuid.NewString(),
		SourceName:   source.Name,
		OriginalSize: source.SizeBytes,
		Kind:         kindSuccess,
		ConvertedAt:  at.UTC(),
	}
	if out.OK() {
		e.Filename = out.Filename
	} else {
		e.Kind = string(out.Failure.Kind)
		e.Message = out.Failure.Message
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversions (id, source_name, filename, original_size, kind, message, converted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SourceName, e.Filename, e.OriginalSize, e.Kind, e.Message, e.ConvertedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting history entry for %s: %w", source.Name, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. A non-positive limit
// uses the configured default.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = s.maxResults
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_name, COALESCE(filename, ''), original_size, kind, COALESCE(message, ''), converted_at
		 FROM conversions ORDER BY converted_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var at string
		if err := rows.Scan(&e.ID, &e.SourceName, &e.Filename, &e.OriginalSize, &e.Kind, &e.Message, &at); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		e.ConvertedAt, err = time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("parsing timestamp for %s: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Counts returns the number of recorded outcomes per kind.
func (s *Store) Counts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT kind, count(*) FROM conversions GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("counting history: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scanning count row: %w", err)
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}

// ExportYAML writes the most recent entries to w as a YAML list.
func (s *Store) ExportYAML(ctx context.Context, w io.Writer, limit int) error {
	entries, err := s.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []Entry{}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return enc.Close()
}
