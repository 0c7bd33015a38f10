package sqliteschema

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/clinarc/ediary/internal/platform/errors"
)

// Inspect reads the live catalog from the current transactional view.
//
// Callers re-run Inspect after structural changes rather than reusing an
// earlier snapshot; PRAGMA results reflect DDL applied inside the same
// transaction.
func Inspect(ctx context.Context, q Querier) (Catalog, error) {
	rows, err := q.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return Catalog{}, errors.Wrap(errors.CodeStorageUnavailable, "list tables", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return Catalog{}, errors.Wrap(errors.CodeStorageUnavailable, "scan table name", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return Catalog{}, errors.Wrap(errors.CodeStorageUnavailable, "read table names", err)
	}

	var catalog Catalog
	for _, name := range names {
		columns, err := tableColumns(ctx, q, name)
		if err != nil {
			return Catalog{}, err
		}
		catalog.Tables = append(catalog.Tables, CatalogTable{Name: name, Columns: columns})
	}
	return catalog, nil
}

// tableColumns lists column names for one table via PRAGMA table_info.
func tableColumns(ctx context.Context, q Querier, table string) ([]string, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return nil, errors.Wrap(errors.CodeStorageUnavailable, fmt.Sprintf("inspect table %s", table), err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var cid int
		var name string
		var colType string
		var notNull int
		var defaultValue sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultValue, &pk); err != nil {
			return nil, errors.Wrap(errors.CodeStorageUnavailable, fmt.Sprintf("scan table info for %s", table), err)
		}
		columns = append(columns, name)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.CodeStorageUnavailable, fmt.Sprintf("read table info for %s", table), err)
	}
	return columns, nil
}
