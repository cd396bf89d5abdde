// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger keeps a SQLite history of document runs so past outcomes can
// be listed with "scanocr history".
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/scanocr/pkg/types"
)

// DefaultLimit is the number of runs Recent returns for a non-positive limit.
const DefaultLimit = 20

// Run is one recorded document outcome.
type Run struct {
	ID     string               `json:"id" yaml:"id"`
	Result types.DocumentResult `json:"result" yaml:"result"`
}

// Store manages the history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path, creating its parent
// directory and schema as needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// DefaultPath returns the history location under the user's data directory.
func DefaultPath() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "scanocr", "history.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".scanocr", "history.db")
	}
	return filepath.Join(home, ".local", "share", "scanocr", "history.db")
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			source_path TEXT NOT NULL,
			base TEXT NOT NULL,
			status TEXT NOT NULL,
			pdf_path TEXT,
			text_path TEXT,
			pages INTEGER NOT NULL DEFAULT 0,
			pages_ocred INTEGER NOT NULL DEFAULT 0,
			failed_pages TEXT,
			used_fallback INTEGER NOT NULL DEFAULT 0,
			error TEXT,
			notes TEXT,
			started_at TEXT NOT NULL,
			duration_ms INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_base ON runs(base)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores res under a new run ID.
func (s *Store) Record(ctx context.Context, res types.DocumentResult) error {
	failed, err := json.Marshal(res.FailedPages)
	if err != nil {
		return fmt.Errorf("encoding failed pages: %w", err)
	}
	notes, err := json.Marshal(res.Notes)
	if err != nil {
		return fmt.Errorf("encoding notes: %w", err)
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, source_path, base, status, pdf_path, text_path, pages, pages_ocred,
			failed_pages, used_fallback, error, notes, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, res.Document.Path, res.Document.Base, string(res.Status), res.PDFPath, res.TextPath,
		res.Pages, res.PagesOCRed, string(failed), boolToInt(res.UsedFallback), res.Error, string(notes),
		res.StartedAt.UTC().Format(time.RFC3339Nano), res.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("recording run for %s: %w", res.Document.Base, err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_path, base, status, pdf_path, text_path, pages, pages_ocred,
			failed_pages, used_fallback, error, notes, started_at, duration_ms
		FROM runs ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run                    Run
			status, started        string
			failed, notes          sql.NullString
			pdfPath, textPath, msg sql.NullString
			fallback               int
			durationMS             int64
		)
		r := &run.Result
		if err := rows.Scan(&run.ID, &r.Document.Path, &r.Document.Base, &status, &pdfPath, &textPath,
			&r.Pages, &r.PagesOCRed, &failed, &fallback, &msg, &notes, &started, &durationMS); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Status = types.DocumentStatus(status)
		r.PDFPath, r.TextPath, r.Error = pdfPath.String, textPath.String, msg.String
		r.UsedFallback = fallback != 0
		r.Duration = time.Duration(durationMS) * time.Millisecond
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("parsing start time of run %s: %w", run.ID, err)
		}
		if err := decodeList(failed, &r.FailedPages); err != nil {
			return nil, fmt.Errorf("decoding failed pages of run %s: %w", run.ID, err)
		}
		if err := decodeList(notes, &r.Notes); err != nil {
			return nil, fmt.Errorf("decoding notes of run %s: %w", run.ID, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func decodeList[T any](s sql.NullString, dst *[]T) error {
	if !s.Valid || s.String == "" || s.String == "null" {
		return nil
	}
	return json.Unmarshal([]byte(s.String), dst)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
