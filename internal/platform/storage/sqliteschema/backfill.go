package sqliteschema

import (
	"context"
	"fmt"

	"github.com/clinarc/ediary/internal/platform/errors"
)

// TokenBackfill designates one table/column pair whose rows need a generated
// unique token when none is present.
type TokenBackfill struct {
	Table    string
	Key      string // primary key column used to address rows
	Column   string // token column to fill
	Generate func() (string, error)
}

// Backfill assigns a freshly generated token to every row whose token column
// is null or empty. Rows that already hold a non-empty token are never
// rewritten; that is what makes repeated bootstrap runs safe.
//
// Uniqueness is not enforced here. Token entropy plus a unique constraint on
// the column make collisions unreachable in practice.
func Backfill(ctx context.Context, conn Conn, fills []TokenBackfill) error {
	for _, fill := range fills {
		if err := backfillOne(ctx, conn, fill); err != nil {
			return err
		}
	}
	return nil
}

func backfillOne(ctx context.Context, conn Conn, fill TokenBackfill) error {
	selectSQL := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s IS NULL OR %s = ''",
		fill.Key, fill.Table, fill.Column, fill.Column,
	)
	rows, err := conn.QueryContext(ctx, selectSQL)
	if err != nil {
		return errors.Wrap(errors.CodeMigrationConflict, fmt.Sprintf("select rows missing %s.%s", fill.Table, fill.Column), err)
	}
	var keys []int64
	for rows.Next() {
		var key int64
		if err := rows.Scan(&key); err != nil {
			rows.Close()
			return errors.Wrap(errors.CodeMigrationConflict, fmt.Sprintf("scan key for %s.%s backfill", fill.Table, fill.Column), err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return errors.Wrap(errors.CodeMigrationConflict, fmt.Sprintf("read keys for %s.%s backfill", fill.Table, fill.Column), err)
	}
	rows.Close()

	// The guard in the UPDATE repeats the null-or-empty condition so a row
	// that gained a token since the SELECT is left untouched.
	updateSQL := fmt.Sprintf(
		"UPDATE %s SET %s = ? WHERE %s = ? AND (%s IS NULL OR %s = '')",
		fill.Table, fill.Column, fill.Key, fill.Column, fill.Column,
	)
	for _, key := range keys {
		value, err := fill.Generate()
		if err != nil {
			return errors.Wrap(errors.CodeMigrationConflict, fmt.Sprintf("generate token for %s.%s", fill.Table, fill.Column), err)
		}
		if _, err := conn.ExecContext(ctx, updateSQL, value, key); err != nil {
			return errors.Wrap(errors.CodeMigrationConflict, fmt.Sprintf("backfill %s.%s", fill.Table, fill.Column), err)
		}
	}
	return nil
}
