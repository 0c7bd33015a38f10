package sqlite

import (
	"context"
	"database/sql"

	"github.com/clinarc/ediary/internal/platform/storage/sqliteschema"
	"github.com/clinarc/ediary/internal/platform/token"
)

// targetSchema is the current required shape of the diary database. It is
// append-only: release over release, columns are only ever added here, never
// removed or retyped. Databases created before a column existed pick it up
// through the additive plan on the next startup.
func targetSchema() sqliteschema.Schema {
	return sqliteschema.Schema{Tables: []sqliteschema.Table{
		{
			Name: "projects",
			Columns: []sqliteschema.Column{
				{Name: "id", Type: "INTEGER PRIMARY KEY AUTOINCREMENT"},
				{Name: "name", Type: "TEXT", NotNull: true},
				{Name: "admin_key", Type: "TEXT"},
				{Name: "created_at", Type: "INTEGER", NotNull: true, Default: "0"},
			},
			Constraints: []string{
				"UNIQUE (name)",
				"UNIQUE (admin_key)",
			},
		},
		{
			Name: "users",
			Columns: []sqliteschema.Column{
				{Name: "id", Type: "INTEGER PRIMARY KEY AUTOINCREMENT"},
				{Name: "email", Type: "TEXT", NotNull: true},
				{Name: "name", Type: "TEXT", NotNull: true},
				{Name: "participant_code", Type: "TEXT"},
				{Name: "role", Type: "TEXT", NotNull: true, Default: "'participant'"},
				{Name: "is_active", Type: "INTEGER", NotNull: true, Default: "1"},
				{Name: "project_id", Type: "INTEGER"},
				{Name: "created_at", Type: "INTEGER", NotNull: true, Default: "0"},
			},
			Constraints: []string{
				"UNIQUE (email)",
				"UNIQUE (participant_code)",
			},
		},
		{
			Name: "questionnaires",
			Columns: []sqliteschema.Column{
				{Name: "id", Type: "INTEGER PRIMARY KEY AUTOINCREMENT"},
				{Name: "name", Type: "TEXT", NotNull: true},
				{Name: "description", Type: "TEXT", NotNull: true, Default: "''"},
				{Name: "version", Type: "TEXT", NotNull: true, Default: "'1.0'"},
				{Name: "is_active", Type: "INTEGER", NotNull: true, Default: "1"},
				{Name: "assignment_key", Type: "TEXT"},
				{Name: "project_id", Type: "INTEGER"},
				{Name: "created_at", Type: "INTEGER", NotNull: true, Default: "0"},
			},
			Constraints: []string{
				"UNIQUE (assignment_key)",
			},
		},
		{
			Name: "questions",
			Columns: []sqliteschema.Column{
				{Name: "id", Type: "INTEGER PRIMARY KEY AUTOINCREMENT"},
				{Name: "questionnaire_id", Type: "INTEGER", NotNull: true},
				{Name: "text", Type: "TEXT", NotNull: true},
				{Name: "type", Type: "TEXT", NotNull: true, Default: "'text'"},
				{Name: "required", Type: "INTEGER", NotNull: true, Default: "1"},
				{Name: "position", Type: "INTEGER", NotNull: true, Default: "0"},
			},
			Constraints: []string{
				"FOREIGN KEY (questionnaire_id) REFERENCES questionnaires(id) ON DELETE CASCADE",
			},
		},
		{
			Name: "choices",
			Columns: []sqliteschema.Column{
				{Name: "id", Type: "INTEGER PRIMARY KEY AUTOINCREMENT"},
				{Name: "question_id", Type: "INTEGER", NotNull: true},
				{Name: "text", Type: "TEXT", NotNull: true},
				{Name: "value", Type: "TEXT", NotNull: true},
				{Name: "position", Type: "INTEGER", NotNull: true, Default: "0"},
			},
			Constraints: []string{
				"FOREIGN KEY (question_id) REFERENCES questions(id) ON DELETE CASCADE",
			},
		},
		{
			Name: "assignments",
			Columns: []sqliteschema.Column{
				{Name: "id", Type: "INTEGER PRIMARY KEY AUTOINCREMENT"},
				{Name: "user_id", Type: "INTEGER", NotNull: true},
				{Name: "questionnaire_id", Type: "INTEGER", NotNull: true},
				{Name: "due_at", Type: "INTEGER"},
				{Name: "active", Type: "INTEGER", NotNull: true, Default: "1"},
			},
			Constraints: []string{
				"FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE",
				"FOREIGN KEY (questionnaire_id) REFERENCES questionnaires(id) ON DELETE CASCADE",
			},
		},
		{
			Name: "entries",
			Columns: []sqliteschema.Column{
				{Name: "id", Type: "INTEGER PRIMARY KEY AUTOINCREMENT"},
				{Name: "user_id", Type: "INTEGER", NotNull: true},
				{Name: "questionnaire_id", Type: "INTEGER", NotNull: true},
				{Name: "project_id", Type: "INTEGER"},
				{Name: "submitted_at", Type: "INTEGER", NotNull: true},
				{Name: "answers", Type: "TEXT", NotNull: true, Default: "'{}'"},
			},
			Constraints: []string{
				"FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE",
				"FOREIGN KEY (questionnaire_id) REFERENCES questionnaires(id) ON DELETE CASCADE",
			},
		},
		{
			Name: "tasks",
			Columns: []sqliteschema.Column{
				{Name: "id", Type: "INTEGER PRIMARY KEY AUTOINCREMENT"},
				{Name: "user_id", Type: "INTEGER", NotNull: true},
				{Name: "questionnaire_id", Type: "INTEGER"},
				{Name: "task_type", Type: "TEXT", NotNull: true},
				{Name: "title", Type: "TEXT", NotNull: true, Default: "''"},
				{Name: "due_at", Type: "INTEGER"},
				{Name: "is_completed", Type: "INTEGER", NotNull: true, Default: "0"},
				{Name: "completed_at", Type: "INTEGER"},
			},
			Constraints: []string{
				"FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE",
			},
		},
	}}
}

// tokenBackfills lists the unique token columns assigned once to legacy rows
// that lack one. Rows holding a non-empty token are never rewritten.
func tokenBackfills() []sqliteschema.TokenBackfill {
	return []sqliteschema.TokenBackfill{
		{Table: "projects", Key: "id", Column: "admin_key", Generate: token.NewKey},
		{Table: "questionnaires", Key: "id", Column: "assignment_key", Generate: token.NewKey},
	}
}

// ensureSchema runs the schema evolution engine once for this handle.
func ensureSchema(ctx context.Context, sqlDB *sql.DB) error {
	_, err := sqliteschema.EnsureReady(ctx, sqlDB, targetSchema(), tokenBackfills())
	return err
}
