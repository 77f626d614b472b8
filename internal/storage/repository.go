package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"fintrack/internal/core"
)

// SQLiteRepository is the record store. It owns the database handle and is
// the only writer of users, categories, transactions and insights.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	version uint

	// writeMu serializes writes so check-then-insert sequences are atomic
	// against every other writer of this repository.
	writeMu sync.Mutex
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// migrates it to SchemaVersion. Opening an already migrated database is a
// no-op beyond acquiring the handle. Every failure wraps
// core.ErrStorageUnavailable.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("%w: create db directory: %w", core.ErrStorageUnavailable, err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrStorageUnavailable, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite database: %w", core.ErrStorageUnavailable, err)
	}
	// SQLite allows a single writer; one pooled connection keeps every
	// statement of this process in one queue.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping database: %w", core.ErrStorageUnavailable, err)
	}

	slog.Info("Record store ready", "path", dbPath, "schema_version", version)

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		version: version,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the underlying handle is still usable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", core.ErrStorageUnavailable, err)
	}
	return nil
}

// SchemaVersion returns the migration version the store was opened at.
func (r *SQLiteRepository) SchemaVersion() uint {
	return r.version
}

// inTx runs fn inside one SQL transaction holding the write lock.
func (r *SQLiteRepository) inTx(ctx context.Context, fn func(q *Queries) error) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// exec runs a single write statement holding the write lock.
func (r *SQLiteRepository) exec(fn func(q *Queries) error) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return fn(r.queries)
}

// classify maps driver errors onto the core taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE,
			sqlite3.SQLITE_CONSTRAINT_CHECK,
			sqlite3.SQLITE_CONSTRAINT_NOTNULL,
			sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %w", core.ErrConstraintViolation, err)
		}
	}
	return err
}

// violation wraps a validation failure as a constraint violation.
func violation(err error) error {
	return fmt.Errorf("%w: %w", core.ErrConstraintViolation, err)
}
