package sqliteschema

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/clinarc/ediary/internal/platform/errors"
)

// EnsureReady brings the database up to the target schema inside a single
// transaction: inspect, plan, apply, re-inspect, backfill, commit.
//
// It returns the structural operations it planned; an up-to-date database
// yields an empty plan. Any failure rolls the whole transaction back so a
// partial migration is never visible, and the error is fatal to bootstrap:
// a failed additive migration usually means the schema was changed by hand
// and an operator has to reconcile it.
//
// EnsureReady is safe to run concurrently from multiple process instances.
// The transaction opens with BEGIN IMMEDIATE so racing bootstraps serialize
// on the write lock instead of failing a deferred read-to-write upgrade, and
// a losing instance's duplicate DDL that still slips through fails with an
// already-exists condition, which is treated as success.
func EnsureReady(ctx context.Context, sqlDB *sql.DB, target Schema, fills []TokenBackfill) ([]Op, error) {
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStorageUnavailable, "acquire connection", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return nil, errors.Wrap(errors.CodeStorageUnavailable, "begin schema transaction", err)
	}

	ops, err := ensureReadyIn(ctx, conn, target, fills)
	if err != nil {
		_, _ = conn.ExecContext(ctx, "ROLLBACK")
		return nil, err
	}
	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		_, _ = conn.ExecContext(ctx, "ROLLBACK")
		return nil, errors.Wrap(errors.CodeMigrationConflict, "commit schema transaction", err)
	}
	return ops, nil
}

func ensureReadyIn(ctx context.Context, conn Conn, target Schema, fills []TokenBackfill) ([]Op, error) {
	live, err := Inspect(ctx, conn)
	if err != nil {
		return nil, err
	}

	ops := Plan(target, live)
	for _, op := range ops {
		if _, err := conn.ExecContext(ctx, op.SQL); err != nil {
			if IsAlreadyExistsError(err) {
				continue
			}
			return nil, errors.Wrap(errors.CodeMigrationConflict, fmt.Sprintf("apply %s", opLabel(op)), err)
		}
	}

	// Re-inspect after structural changes; the backfill must see the columns
	// the plan just added, and a still-missing column means the DDL silently
	// failed and the migration cannot be trusted.
	if len(ops) > 0 {
		live, err = Inspect(ctx, conn)
		if err != nil {
			return nil, err
		}
		if remaining := Plan(target, live); len(remaining) > 0 {
			return nil, errors.New(errors.CodeMigrationConflict, fmt.Sprintf("schema still missing %s after apply", opLabel(remaining[0])))
		}
	}

	if err := Backfill(ctx, conn, fills); err != nil {
		return nil, err
	}
	return ops, nil
}

func opLabel(op Op) string {
	if op.Kind == OpAddColumn {
		return fmt.Sprintf("column %s.%s", op.Table, op.Column)
	}
	return fmt.Sprintf("table %s", op.Table)
}
