package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/clinarc/ediary/internal/platform/token"
	"github.com/clinarc/ediary/internal/services/diary/storage"
)

// CreateProject inserts one project. When the admin key is empty a fresh one
// is generated; a caller-supplied key is kept as-is and never regenerated.
func (s *Store) CreateProject(ctx context.Context, project storage.Project) (storage.Project, error) {
	if err := ctx.Err(); err != nil {
		return storage.Project{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Project{}, fmt.Errorf("storage is not configured")
	}
	name := strings.TrimSpace(project.Name)
	if name == "" {
		return storage.Project{}, fmt.Errorf("project name is required")
	}
	adminKey := strings.TrimSpace(project.AdminKey)
	if adminKey == "" {
		generated, err := token.NewKey()
		if err != nil {
			return storage.Project{}, fmt.Errorf("generate admin key: %w", err)
		}
		adminKey = generated
	}
	createdAt := project.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO projects (name, admin_key, created_at) VALUES (?, ?, ?)`,
		name,
		adminKey,
		toMillis(createdAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.Project{}, storage.ErrAlreadyExists
		}
		return storage.Project{}, fmt.Errorf("create project: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return storage.Project{}, fmt.Errorf("read project id: %w", err)
	}

	return storage.Project{ID: id, Name: name, AdminKey: adminKey, CreatedAt: createdAt}, nil
}

// GetProject returns one project by id.
func (s *Store) GetProject(ctx context.Context, id int64) (storage.Project, error) {
	if err := ctx.Err(); err != nil {
		return storage.Project{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Project{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, name, admin_key, created_at FROM projects WHERE id = ?`,
		id,
	)
	return scanProject(row)
}

// ListProjects returns every project ordered by id.
func (s *Store) ListProjects(ctx context.Context) ([]storage.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, name, admin_key, created_at FROM projects ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []storage.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read projects: %w", err)
	}
	return projects, nil
}

// ListProjectIDs returns the ids of every project ordered by id.
func (s *Store) ListProjectIDs(ctx context.Context) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `SELECT id FROM projects ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list project ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan project id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read project ids: %w", err)
	}
	return ids, nil
}

// ProjectIDsByAdminKey returns the ids of every project whose admin key
// equals adminKey. Admin keys are unique so the result normally holds one id.
func (s *Store) ProjectIDsByAdminKey(ctx context.Context, adminKey string) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if adminKey == "" {
		return nil, nil
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id FROM projects WHERE admin_key = ? ORDER BY id`,
		adminKey,
	)
	if err != nil {
		return nil, fmt.Errorf("resolve admin key: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan project id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read project ids: %w", err)
	}
	return ids, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (storage.Project, error) {
	var project storage.Project
	var adminKey sql.NullString
	var createdAt int64
	if err := row.Scan(&project.ID, &project.Name, &adminKey, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Project{}, storage.ErrNotFound
		}
		return storage.Project{}, fmt.Errorf("scan project: %w", err)
	}
	project.AdminKey = adminKey.String
	project.CreatedAt = fromMillis(createdAt)
	return project, nil
}

var _ storage.ProjectStore = (*Store)(nil)
