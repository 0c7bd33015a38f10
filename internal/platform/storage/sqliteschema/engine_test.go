package sqliteschema

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/clinarc/ediary/internal/platform/errors"
	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T, path string) *sql.DB {
	t.Helper()
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return sqlDB
}

func fixedTokens(tokens ...string) func() (string, error) {
	i := 0
	return func() (string, error) {
		if i >= len(tokens) {
			return "", stderrors.New("token fixture exhausted")
		}
		token := tokens[i]
		i++
		return token, nil
	}
}

func testFills(generate func() (string, error)) []TokenBackfill {
	return []TokenBackfill{
		{Table: "projects", Key: "id", Column: "admin_key", Generate: generate},
	}
}

func TestEnsureReadyCreatesSchemaFromEmpty(t *testing.T) {
	t.Parallel()

	sqlDB := openTestDB(t, filepath.Join(t.TempDir(), "diary.db"))
	ops, err := EnsureReady(context.Background(), sqlDB, testTarget(), nil)
	if err != nil {
		t.Fatalf("ensure ready: %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("ops = %d, want 2 create-table ops", len(ops))
	}

	live, err := Inspect(context.Background(), sqlDB)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	for _, table := range []string{"projects", "entries"} {
		if !live.HasTable(table) {
			t.Fatalf("table %s missing after ensure ready", table)
		}
	}
	if !live.HasColumn("projects", "admin_key") {
		t.Fatal("projects.admin_key missing after ensure ready")
	}
}

func TestEnsureReadyIsIdempotent(t *testing.T) {
	t.Parallel()

	sqlDB := openTestDB(t, filepath.Join(t.TempDir(), "diary.db"))
	if _, err := EnsureReady(context.Background(), sqlDB, testTarget(), nil); err != nil {
		t.Fatalf("first ensure ready: %v", err)
	}
	first, err := Inspect(context.Background(), sqlDB)
	if err != nil {
		t.Fatalf("inspect after first run: %v", err)
	}

	ops, err := EnsureReady(context.Background(), sqlDB, testTarget(), nil)
	if err != nil {
		t.Fatalf("second ensure ready: %v", err)
	}
	if len(ops) != 0 {
		t.Fatalf("second run planned %d structural ops, want 0", len(ops))
	}
	second, err := Inspect(context.Background(), sqlDB)
	if err != nil {
		t.Fatalf("inspect after second run: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("catalog changed between runs:\n%+v\n%+v", first, second)
	}
}

func TestEnsureReadyAddsColumnWithoutDataLoss(t *testing.T) {
	t.Parallel()

	sqlDB := openTestDB(t, filepath.Join(t.TempDir(), "diary.db"))

	// Legacy shape: projects without admin_key, with one existing row.
	if _, err := sqlDB.Exec("CREATE TABLE projects (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL)"); err != nil {
		t.Fatalf("create legacy table: %v", err)
	}
	if _, err := sqlDB.Exec("INSERT INTO projects (name) VALUES ('Ring Study')"); err != nil {
		t.Fatalf("insert legacy row: %v", err)
	}

	if _, err := EnsureReady(context.Background(), sqlDB, testTarget(), testFills(fixedTokens("generated-key"))); err != nil {
		t.Fatalf("ensure ready: %v", err)
	}

	var name, adminKey string
	row := sqlDB.QueryRow("SELECT name, admin_key FROM projects WHERE id = 1")
	if err := row.Scan(&name, &adminKey); err != nil {
		t.Fatalf("read migrated row: %v", err)
	}
	if name != "Ring Study" {
		t.Fatalf("name = %q, want pre-existing value preserved", name)
	}
	if adminKey != "generated-key" {
		t.Fatalf("admin_key = %q, want backfilled token", adminKey)
	}
}

func TestBackfillOnlyTouchesNullOrEmptyTokens(t *testing.T) {
	t.Parallel()

	sqlDB := openTestDB(t, filepath.Join(t.TempDir(), "diary.db"))
	if _, err := EnsureReady(context.Background(), sqlDB, testTarget(), nil); err != nil {
		t.Fatalf("ensure ready: %v", err)
	}
	if _, err := sqlDB.Exec(`INSERT INTO projects (name, admin_key) VALUES
		('keyed', 'existing-key'),
		('null-key', NULL),
		('empty-key', '')`); err != nil {
		t.Fatalf("seed rows: %v", err)
	}

	if _, err := EnsureReady(context.Background(), sqlDB, testTarget(), testFills(fixedTokens("fill-1", "fill-2"))); err != nil {
		t.Fatalf("ensure ready with backfill: %v", err)
	}

	keys := map[string]string{}
	rows, err := sqlDB.Query("SELECT name, admin_key FROM projects")
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name, key string
		if err := rows.Scan(&name, &key); err != nil {
			t.Fatalf("scan row: %v", err)
		}
		keys[name] = key
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("iterate rows: %v", err)
	}

	if keys["keyed"] != "existing-key" {
		t.Fatalf("keyed row rewritten to %q", keys["keyed"])
	}
	if keys["null-key"] == "" || keys["empty-key"] == "" {
		t.Fatalf("backfill skipped rows: %v", keys)
	}
	if keys["null-key"] == keys["empty-key"] {
		t.Fatalf("backfill reused token %q for two rows", keys["null-key"])
	}

	// A second run with a fresh generator must not rewrite anything.
	if _, err := EnsureReady(context.Background(), sqlDB, testTarget(), testFills(fixedTokens("late-1", "late-2"))); err != nil {
		t.Fatalf("repeat ensure ready: %v", err)
	}
	var key string
	if err := sqlDB.QueryRow("SELECT admin_key FROM projects WHERE name = 'null-key'").Scan(&key); err != nil {
		t.Fatalf("re-read row: %v", err)
	}
	if key != keys["null-key"] {
		t.Fatalf("token rewritten on repeat run: %q -> %q", keys["null-key"], key)
	}
}

func TestEnsureReadyRollsBackOnBackfillFailure(t *testing.T) {
	t.Parallel()

	sqlDB := openTestDB(t, filepath.Join(t.TempDir(), "diary.db"))
	if _, err := sqlDB.Exec("CREATE TABLE projects (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL)"); err != nil {
		t.Fatalf("create legacy table: %v", err)
	}
	if _, err := sqlDB.Exec("INSERT INTO projects (name) VALUES ('Ring Study')"); err != nil {
		t.Fatalf("insert legacy row: %v", err)
	}

	failing := func() (string, error) { return "", stderrors.New("entropy source down") }
	_, err := EnsureReady(context.Background(), sqlDB, testTarget(), testFills(failing))
	if err == nil {
		t.Fatal("expected ensure ready to fail")
	}
	if errors.CodeOf(err) != errors.CodeMigrationConflict {
		t.Fatalf("error code = %v, want %v", errors.CodeOf(err), errors.CodeMigrationConflict)
	}

	// The structural change must have rolled back with the failed backfill.
	live, inspectErr := Inspect(context.Background(), sqlDB)
	if inspectErr != nil {
		t.Fatalf("inspect: %v", inspectErr)
	}
	if live.HasColumn("projects", "admin_key") {
		t.Fatal("partial migration visible after rollback")
	}
}

func TestEnsureReadyConcurrentBootstrap(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "diary.db")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		handle := openTestDB(t, path)
		wg.Add(1)
		go func(i int, sqlDB *sql.DB) {
			defer wg.Done()
			_, errs[i] = EnsureReady(context.Background(), sqlDB, testTarget(), nil)
		}(i, handle)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("bootstrap %d failed: %v", i, err)
		}
	}

	got, err := Inspect(context.Background(), openTestDB(t, path))
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}

	// Compare against a single sequential run on a fresh database.
	ref := openTestDB(t, filepath.Join(dir, "reference.db"))
	if _, err := EnsureReady(context.Background(), ref, testTarget(), nil); err != nil {
		t.Fatalf("reference ensure ready: %v", err)
	}
	want, err := Inspect(context.Background(), ref)
	if err != nil {
		t.Fatalf("inspect reference: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("concurrent bootstrap schema differs from sequential run:\n%+v\n%+v", got, want)
	}
}

func TestIsAlreadyExistsError(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want bool
	}{
		{stderrors.New("table projects already exists"), true},
		{stderrors.New("duplicate column name: admin_key"), true},
		{fmt.Errorf("exec: %w", stderrors.New("SQL logic error: table projects already exists")), true},
		{stderrors.New("no such table: projects"), false},
		{nil, false},
	}
	for _, tc := range cases {
		if got := IsAlreadyExistsError(tc.err); got != tc.want {
			t.Fatalf("IsAlreadyExistsError(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
