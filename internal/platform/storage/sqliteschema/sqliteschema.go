// Package sqliteschema brings a SQLite database up to a declared target shape
// with additive-only, idempotent schema changes.
//
// The engine diffs a static target schema against the live catalog and applies
// only create-table and add-column operations. It never drops, renames, or
// retypes anything, so re-running it against an up-to-date database is a
// no-op. Newly required unique token columns are backfilled once for legacy
// rows that lack a value.
package sqliteschema

import (
	"context"
	"database/sql"
	"strings"
)

// Column describes one required column of the target schema.
type Column struct {
	Name    string
	Type    string // SQLite type, e.g. "TEXT", "INTEGER"
	NotNull bool
	Default string // SQL literal default, empty when none
}

// Table describes one required table: name, ordered columns, and any
// table-level constraint clauses emitted verbatim into CREATE TABLE.
type Table struct {
	Name        string
	Columns     []Column
	Constraints []string
}

// Schema is the versionless target shape of the database. It is append-only
// across releases: columns are only ever added, never removed or retyped.
type Schema struct {
	Tables []Table
}

// Table returns the declared table with the given name.
func (s Schema) Table(name string) (Table, bool) {
	for _, t := range s.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// CatalogTable is one live table: its name and the column names present.
type CatalogTable struct {
	Name    string
	Columns []string
}

// Catalog is a snapshot of the live schema taken at engine start. It is
// recomputed on every invocation and never cached across invocations.
type Catalog struct {
	Tables []CatalogTable
}

// HasTable reports whether the live catalog contains the table.
func (c Catalog) HasTable(name string) bool {
	for _, t := range c.Tables {
		if t.Name == name {
			return true
		}
	}
	return false
}

// HasColumn reports whether the live catalog contains the column.
func (c Catalog) HasColumn(table, column string) bool {
	for _, t := range c.Tables {
		if t.Name != table {
			continue
		}
		for _, col := range t.Columns {
			if col == column {
				return true
			}
		}
	}
	return false
}

// Querier is the read-side handle the inspector needs. Both *sql.DB and
// *sql.Tx satisfy it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Conn is the handle the engine needs for structural changes and backfills.
// Both *sql.DB and *sql.Tx satisfy it.
type Conn interface {
	Querier
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// IsAlreadyExistsError reports whether err indicates idempotent DDL success:
// a racing bootstrap already created the table or column.
func IsAlreadyExistsError(err error) bool {
	if err == nil {
		return false
	}
	value := strings.ToLower(err.Error())
	return strings.Contains(value, "already exists") || strings.Contains(value, "duplicate column name")
}
