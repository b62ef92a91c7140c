package archive

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/001_history.sql
var migrationV1 string

// timeLayout has fixed width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore keeps the archive in a SQLite database.
type SQLiteStore struct {
	path   string
	db     *sql.DB // write connection
	readDB *sql.DB // read-only connection

	maxRetries    int
	baseRetryWait time.Duration
}

// NewSQLiteStore opens or creates the database at path and migrates it.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	s := &SQLiteStore{
		path:          path,
		maxRetries:    5,
		baseRetryWait: 100 * time.Millisecond,
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening write database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	s.db = db

	// Migrate before opening the read-only side so the file exists.
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	readDB, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&mode=ro&_pragma=busy_timeout(1000)")
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("opening read database: %w", err)
	}
	readDB.SetMaxOpenConns(4)
	readDB.SetMaxIdleConns(2)
	readDB.SetConnMaxLifetime(5 * time.Minute)
	s.readDB = readDB

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS archive_schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	var current int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM archive_schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("checking schema version: %w", err)
	}

	for i, migration := range []string{migrationV1} {
		version := i + 1
		if version <= current {
			continue
		}
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration transaction: %w", err)
		}
		for _, stmt := range splitStatements(migration) {
			if _, err := tx.Exec(stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("executing migration v%d: %w", version, err)
			}
		}
		if _, err := tx.Exec(
			"INSERT INTO archive_schema_migrations (version, applied_at) VALUES (?, ?)",
			version, time.Now().UTC().Format(time.RFC3339),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("recording migration v%d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration v%d: %w", version, err)
		}
	}
	return nil
}

// splitStatements splits a SQL script on semicolons, dropping comment lines.
func splitStatements(script string) []string {
	var statements []string
	for _, stmt := range strings.Split(script, ";") {
		var lines []string
		for _, line := range strings.Split(stmt, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed != "" && !strings.HasPrefix(trimmed, "--") {
				lines = append(lines, line)
			}
		}
		if len(lines) > 0 {
			statements = append(statements, strings.Join(lines, "\n"))
		}
	}
	return statements
}

// retryWrite retries fn while SQLite reports the database busy.
func (s *SQLiteStore) retryWrite(ctx context.Context, operation string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !isSQLiteBusy(err) {
			return err
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.baseRetryWait * time.Duration(1<<attempt)):
		}
	}
	return fmt.Errorf("%s failed after %d retries: %w", operation, s.maxRetries, lastErr)
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "SQLITE_LOCKED")
}

// Append inserts r. Re-archiving an ID is ignored.
func (s *SQLiteStore) Append(ctx context.Context, r Record) error {
	return s.retryWrite(ctx, "Append", func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO history_entries (id, session_id, label, model, output, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`,
			r.ID,
			r.SessionID,
			r.Label,
			r.Model,
			r.Output,
			r.CreatedAt.UTC().Format(timeLayout),
		)
		return err
	})
}

// List returns records newest first.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.readDB.QueryContext(ctx, `
		SELECT id, session_id, label, model, output, created_at
		FROM history_entries
		ORDER BY created_at DESC, seq DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying archive: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var model sql.NullString
		var createdAt string
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Label, &model, &r.Output, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		r.Model = model.String
		r.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes both connections.
func (s *SQLiteStore) Close() error {
	var errs []error
	if s.readDB != nil {
		if err := s.readDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing read connection: %w", err))
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing write connection: %w", err))
		}
	}
	return errors.Join(errs...)
}
