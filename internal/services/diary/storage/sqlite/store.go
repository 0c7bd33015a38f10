// Package sqlite provides a SQLite-backed diary storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists diary state in a single SQLite file.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// toNullMillis maps optional domain times to sql.NullInt64 for nullable columns.
func toNullMillis(value *time.Time) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*value), Valid: true}
}

// fromNullMillis maps nullable SQL timestamps back into optional time values.
func fromNullMillis(value sql.NullInt64) *time.Time {
	if !value.Valid {
		return nil
	}
	t := fromMillis(value.Int64)
	return &t
}

// toNullID maps a zero-means-unset id to a nullable column value.
func toNullID(id int64) sql.NullInt64 {
	if id == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: id, Valid: true}
}

func fromNullID(value sql.NullInt64) int64 {
	if !value.Valid {
		return 0
	}
	return value.Int64
}

// Open opens the diary SQLite store at the provided path and brings the
// schema up to the current shape. The returned bool reports whether the
// database file was freshly created by this call.
func Open(ctx context.Context, path string) (*Store, bool, error) {
	if strings.TrimSpace(path) == "" {
		return nil, false, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	created := false
	if _, err := os.Stat(cleanPath); err != nil {
		if !os.IsNotExist(err) {
			return nil, false, fmt.Errorf("stat storage path: %w", err)
		}
		created = true
	}

	// The _pragma form is the one this driver honors; it applies the
	// pragmas on every pooled connection.
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, false, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, false, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := ensureForeignKeysEnabled(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, false, err
	}

	if err := ensureSchema(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, false, fmt.Errorf("ensure schema: %w", err)
	}

	return &Store{sqlDB: sqlDB}, created, nil
}

// Close closes the underlying SQLite database.
//
// Close is intentionally nil-safe so callers can defer it in all startup paths.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// ensureForeignKeysEnabled verifies the foreign_keys pragma actually took;
// cascade deletes depend on it.
func ensureForeignKeysEnabled(ctx context.Context, sqlDB *sql.DB) error {
	var enabled int
	if err := sqlDB.QueryRowContext(ctx, `PRAGMA foreign_keys`).Scan(&enabled); err != nil {
		return fmt.Errorf("check foreign_keys pragma: %w", err)
	}
	if enabled != 1 {
		return fmt.Errorf("foreign_keys pragma is disabled")
	}
	return nil
}

// isUniqueViolation detects SQLite uniqueness constraint failures.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
