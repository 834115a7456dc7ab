package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"podarchive/internal/failure"
	"podarchive/internal/fileutil"
	"podarchive/internal/logging"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped when schema.sql changes incompatibly.
const schemaVersion = 1

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// ErrSchemaMismatch indicates the database was written by an incompatible version.
var ErrSchemaMismatch = errors.New("ledger schema version mismatch")

// Record is one archived episode.
type Record struct {
	OvercastID string
	MarkedAt   time.Time
}

// Ledger is the durable set of episode identifiers whose archive entry has
// been fully written. The database is opened lazily: lookups against a
// missing file never create it, and the first Mark bootstraps file and schema.
type Ledger struct {
	path   string
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	db       *sql.DB
	readOnly bool
	schemaOK bool
}

// access is what a caller needs from the database handle.
type access int

const (
	// accessRead opens an existing file read-only and never creates it.
	accessRead access = iota
	// accessWrite opens an existing file read-write and never creates it.
	accessWrite
	// accessCreate opens read-write, creating the file and schema if needed.
	accessCreate
)

// Option customizes a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source used for marked_at.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// New returns a ledger backed by the SQLite file at path.
func New(path string, logger *slog.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		path:   path,
		logger: logging.NewComponentLogger(logger, "ledger"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Path returns the database file location.
func (l *Ledger) Path() string {
	return l.path
}

// Close releases the database handle if one was opened.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	l.readOnly = false
	l.schemaOK = false
	return err
}

// Lookup reports whether id was marked. A missing database or table is a
// clean "no"; other failures are failure.ErrLedgerUnavailable.
func (l *Ledger) Lookup(ctx context.Context, id string) (bool, error) {
	db, err := l.handle(ctx, accessRead)
	if err != nil {
		return false, err
	}
	if db == nil {
		return false, nil
	}

	var one int
	err = retryOnBusy(ctx, func() error {
		return db.QueryRowContext(ctx, "SELECT 1 FROM episodes WHERE overcast_id = ?", id).Scan(&one)
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, sql.ErrNoRows), isMissingTable(err):
		return false, nil
	default:
		return false, failure.Wrap(failure.ErrLedgerUnavailable, "ledger", "lookup", id, err)
	}
}

// Has is Lookup for the skip check: any failure is logged and reported as
// "not archived" so the episode is re-verified against the filesystem.
func (l *Ledger) Has(ctx context.Context, id string) bool {
	found, err := l.Lookup(ctx, id)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, l.logger), "ledger lookup failed; treating episode as not archived", "ledger_lookup_failed",
			logging.String(logging.FieldOvercastID, id),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on "+l.path),
			logging.String(logging.FieldImpact, "episode is re-checked on disk instead of skipped"),
		)
		return false
	}
	return found
}

// Mark records id, creating the database and schema on first use. Marking
// an id twice is not an error. Failures always surface.
func (l *Ledger) Mark(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return failure.Wrap(failure.ErrInvalidEpisode, "ledger", "mark", "empty overcast id", nil)
	}
	db, err := l.handle(ctx, accessCreate)
	if err != nil {
		return err
	}
	markedAt := l.now().UTC().Format(time.RFC3339)
	err = retryOnBusy(ctx, func() error {
		_, execErr := db.ExecContext(ctx, "INSERT OR IGNORE INTO episodes (overcast_id, marked_at) VALUES (?, ?)", id, markedAt)
		return execErr
	})
	if err != nil {
		return failure.Wrap(failure.ErrLedgerUnavailable, "ledger", "mark", id, err)
	}
	return nil
}

// Forget removes id and reports whether it was present.
func (l *Ledger) Forget(ctx context.Context, id string) (bool, error) {
	db, err := l.handle(ctx, accessWrite)
	if err != nil || db == nil {
		return false, err
	}
	var res sql.Result
	err = retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = db.ExecContext(ctx, "DELETE FROM episodes WHERE overcast_id = ?", id)
		return execErr
	})
	if err != nil {
		if isMissingTable(err) {
			return false, nil
		}
		return false, failure.Wrap(failure.ErrLedgerUnavailable, "ledger", "forget", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, failure.Wrap(failure.ErrLedgerUnavailable, "ledger", "forget", id, err)
	}
	return affected > 0, nil
}

// Count returns the number of marked episodes.
func (l *Ledger) Count(ctx context.Context) (int, error) {
	db, err := l.handle(ctx, accessRead)
	if err != nil || db == nil {
		return 0, err
	}
	var count int
	err = retryOnBusy(ctx, func() error {
		return db.QueryRowContext(ctx, "SELECT COUNT(1) FROM episodes").Scan(&count)
	})
	if err != nil {
		if isMissingTable(err) {
			return 0, nil
		}
		return 0, failure.Wrap(failure.ErrLedgerUnavailable, "ledger", "count", "", err)
	}
	return count, nil
}

// List returns every record ordered by mark time, oldest first.
func (l *Ledger) List(ctx context.Context) ([]Record, error) {
	db, err := l.handle(ctx, accessRead)
	if err != nil || db == nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, "SELECT overcast_id, marked_at FROM episodes ORDER BY marked_at, overcast_id")
	if err != nil {
		if isMissingTable(err) {
			return nil, nil
		}
		return nil, failure.Wrap(failure.ErrLedgerUnavailable, "ledger", "list", "", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			id       string
			markedAt string
		)
		if err := rows.Scan(&id, &markedAt); err != nil {
			return nil, failure.Wrap(failure.ErrLedgerUnavailable, "ledger", "list", "scan", err)
		}
		record := Record{OvercastID: id}
		if ts, err := time.Parse(time.RFC3339, markedAt); err == nil {
			record.MarkedAt = ts
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, failure.Wrap(failure.ErrLedgerUnavailable, "ledger", "list", "", err)
	}
	return records, nil
}

// handle returns the open database. Unless mode is accessCreate, a missing
// file yields nil without creating anything. Reads use a read-only
// connection so inspecting the ledger never changes it; a read-only handle is
// reopened read-write the first time a write is needed.
func (l *Ledger) handle(ctx context.Context, mode access) (*sql.DB, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.db != nil && l.readOnly && mode != accessRead {
		if err := l.db.Close(); err != nil {
			l.logger.Debug("closing read-only handle failed", logging.Error(err))
		}
		l.db = nil
		l.readOnly = false
	}

	if l.db == nil {
		exists, err := fileutil.Exists(l.path)
		if err != nil {
			return nil, failure.Wrap(failure.ErrLedgerUnavailable, "ledger", "stat", l.path, err)
		}
		if !exists && mode != accessCreate {
			return nil, nil
		}
		if mode == accessCreate {
			if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
				return nil, failure.Wrap(failure.ErrLedgerUnavailable, "ledger", "create directory", l.path, err)
			}
		}
		readOnly := mode == accessRead
		db, err := open(l.path, readOnly)
		if err != nil {
			return nil, failure.Wrap(failure.ErrLedgerUnavailable, "ledger", "open", l.path, err)
		}
		l.db = db
		l.readOnly = readOnly
	}

	if mode == accessCreate && !l.schemaOK {
		if err := initSchema(ctx, l.db); err != nil {
			return nil, failure.Wrap(failure.ErrLedgerUnavailable, "ledger", "init schema", l.path, err)
		}
		l.schemaOK = true
	}
	return l.db, nil
}

// open connects to the database. Read-only connections go through a SQLite
// URI with mode=ro and skip the journal mode switch, which would write.
func open(path string, readOnly bool) (*sql.DB, error) {
	dsn := path
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	if readOnly {
		uri, err := readOnlyURI(path)
		if err != nil {
			return nil, err
		}
		dsn = uri
		pragmas = pragmas[1:]
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	return db, nil
}

func readOnlyURI(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve ledger path: %w", err)
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs), RawQuery: "mode=ro"}
	return u.String(), nil
}

func initSchema(ctx context.Context, db *sql.DB) error {
	return retryOnBusy(ctx, func() error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin schema tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}

		var version int
		err = tx.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
				return fmt.Errorf("record schema version: %w", err)
			}
		case err != nil:
			return fmt.Errorf("read schema version: %w", err)
		case version != schemaVersion:
			return fmt.Errorf("%w: database has version %d, expected %d", ErrSchemaMismatch, version, schemaVersion)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit schema: %w", err)
		}
		return nil
	})
}

func isMissingTable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil || !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
