package sqliteschema

import (
	"fmt"
	"strings"
)

// OpKind identifies one additive operation kind.
type OpKind int

const (
	// OpCreateTable creates a missing table with all of its declared columns.
	OpCreateTable OpKind = iota
	// OpAddColumn adds a single missing column to an existing table.
	OpAddColumn
)

// Op is one additive structural operation in a migration plan.
type Op struct {
	Kind   OpKind
	Table  string
	Column string // set for OpAddColumn only
	SQL    string
}

// Plan diffs the target schema against the live catalog and returns the
// additive operations needed to close the gap. Plan is a pure function.
//
// Order is stable: tables in declaration order, then columns in declaration
// order. A table emitted as create-table never also receives add-column
// operations; the CREATE TABLE statement carries every declared column.
func Plan(target Schema, live Catalog) []Op {
	var ops []Op
	for _, table := range target.Tables {
		if !live.HasTable(table.Name) {
			ops = append(ops, Op{
				Kind:  OpCreateTable,
				Table: table.Name,
				SQL:   createTableSQL(table),
			})
			continue
		}
		for _, column := range table.Columns {
			if live.HasColumn(table.Name, column.Name) {
				continue
			}
			ops = append(ops, Op{
				Kind:   OpAddColumn,
				Table:  table.Name,
				Column: column.Name,
				SQL:    addColumnSQL(table.Name, column),
			})
		}
	}
	return ops
}

func createTableSQL(table Table) string {
	var defs []string
	for _, column := range table.Columns {
		defs = append(defs, columnDef(column))
	}
	defs = append(defs, table.Constraints...)
	return fmt.Sprintf("CREATE TABLE %s (\n    %s\n)", table.Name, strings.Join(defs, ",\n    "))
}

func addColumnSQL(table string, column Column) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", table, columnDef(column))
}

func columnDef(column Column) string {
	def := column.Name + " " + column.Type
	if column.NotNull {
		def += " NOT NULL"
	}
	if column.Default != "" {
		def += " DEFAULT " + column.Default
	}
	return def
}
