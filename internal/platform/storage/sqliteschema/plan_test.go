package sqliteschema

import (
	"reflect"
	"strings"
	"testing"
)

func testTarget() Schema {
	return Schema{Tables: []Table{
		{
			Name: "projects",
			Columns: []Column{
				{Name: "id", Type: "INTEGER PRIMARY KEY AUTOINCREMENT"},
				{Name: "name", Type: "TEXT", NotNull: true},
				{Name: "admin_key", Type: "TEXT"},
			},
			Constraints: []string{"UNIQUE (name)", "UNIQUE (admin_key)"},
		},
		{
			Name: "entries",
			Columns: []Column{
				{Name: "id", Type: "INTEGER PRIMARY KEY AUTOINCREMENT"},
				{Name: "project_id", Type: "INTEGER"},
				{Name: "answers", Type: "TEXT", NotNull: true, Default: "'{}'"},
			},
		},
	}}
}

func TestPlanCreatesAllTablesAgainstEmptyCatalog(t *testing.T) {
	t.Parallel()

	ops := Plan(testTarget(), Catalog{})
	if len(ops) != 2 {
		t.Fatalf("ops = %d, want 2", len(ops))
	}
	for i, want := range []string{"projects", "entries"} {
		if ops[i].Kind != OpCreateTable {
			t.Fatalf("op %d kind = %v, want create-table", i, ops[i].Kind)
		}
		if ops[i].Table != want {
			t.Fatalf("op %d table = %q, want %q", i, ops[i].Table, want)
		}
	}
	if !strings.Contains(ops[0].SQL, "UNIQUE (admin_key)") {
		t.Fatalf("create table SQL missing unique constraint: %s", ops[0].SQL)
	}
}

func TestPlanAddsOnlyMissingColumns(t *testing.T) {
	t.Parallel()

	live := Catalog{Tables: []CatalogTable{
		{Name: "projects", Columns: []string{"id", "name"}},
		{Name: "entries", Columns: []string{"id", "project_id", "answers"}},
	}}
	ops := Plan(testTarget(), live)
	if len(ops) != 1 {
		t.Fatalf("ops = %d, want 1", len(ops))
	}
	op := ops[0]
	if op.Kind != OpAddColumn || op.Table != "projects" || op.Column != "admin_key" {
		t.Fatalf("op = %+v, want add-column projects.admin_key", op)
	}
	if !strings.HasPrefix(op.SQL, "ALTER TABLE projects ADD COLUMN admin_key TEXT") {
		t.Fatalf("unexpected add column SQL: %s", op.SQL)
	}
}

func TestPlanNeverAddsColumnsToFreshlyCreatedTables(t *testing.T) {
	t.Parallel()

	live := Catalog{Tables: []CatalogTable{
		{Name: "entries", Columns: []string{"id"}},
	}}
	ops := Plan(testTarget(), live)
	for _, op := range ops {
		if op.Table == "projects" && op.Kind == OpAddColumn {
			t.Fatalf("missing table received add-column op: %+v", op)
		}
	}
	if ops[0].Kind != OpCreateTable || ops[0].Table != "projects" {
		t.Fatalf("op 0 = %+v, want create-table projects", ops[0])
	}
}

func TestPlanEmptyWhenLiveMatchesTarget(t *testing.T) {
	t.Parallel()

	live := Catalog{Tables: []CatalogTable{
		{Name: "projects", Columns: []string{"id", "name", "admin_key"}},
		{Name: "entries", Columns: []string{"id", "project_id", "answers"}},
	}}
	if ops := Plan(testTarget(), live); len(ops) != 0 {
		t.Fatalf("ops = %v, want empty plan", ops)
	}
}

func TestPlanIgnoresExtraLiveTablesAndColumns(t *testing.T) {
	t.Parallel()

	live := Catalog{Tables: []CatalogTable{
		{Name: "projects", Columns: []string{"id", "name", "admin_key", "legacy_notes"}},
		{Name: "entries", Columns: []string{"id", "project_id", "answers"}},
		{Name: "abandoned_experiment", Columns: []string{"id"}},
	}}
	if ops := Plan(testTarget(), live); len(ops) != 0 {
		t.Fatalf("ops = %v, want empty plan with no destructive ops", ops)
	}
}

func TestPlanIsDeterministic(t *testing.T) {
	t.Parallel()

	live := Catalog{Tables: []CatalogTable{
		{Name: "projects", Columns: []string{"id"}},
	}}
	first := Plan(testTarget(), live)
	second := Plan(testTarget(), live)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("plans differ:\n%v\n%v", first, second)
	}
	// Column order follows declaration order within the table.
	if first[0].Column != "name" || first[1].Column != "admin_key" {
		t.Fatalf("column order = %q, %q; want name, admin_key", first[0].Column, first[1].Column)
	}
}

func TestColumnDefRendering(t *testing.T) {
	t.Parallel()

	got := columnDef(Column{Name: "answers", Type: "TEXT", NotNull: true, Default: "'{}'"})
	want := "answers TEXT NOT NULL DEFAULT '{}'"
	if got != want {
		t.Fatalf("column def = %q, want %q", got, want)
	}
}
