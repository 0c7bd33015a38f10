package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/clinarc/ediary/internal/services/diary/storage"
)

const assignmentColumns = `id, user_id, questionnaire_id, due_at, active`

// CreateAssignment links a user to a questionnaire.
func (s *Store) CreateAssignment(ctx context.Context, assignment storage.Assignment) (storage.Assignment, error) {
	if err := ctx.Err(); err != nil {
		return storage.Assignment{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Assignment{}, fmt.Errorf("storage is not configured")
	}
	if assignment.UserID == 0 || assignment.QuestionnaireID == 0 {
		return storage.Assignment{}, fmt.Errorf("assignment user and questionnaire are required")
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO assignments (user_id, questionnaire_id, due_at, active) VALUES (?, ?, ?, ?)`,
		assignment.UserID,
		assignment.QuestionnaireID,
		toNullMillis(assignment.DueAt),
		boolToInt(assignment.Active),
	)
	if err != nil {
		return storage.Assignment{}, fmt.Errorf("create assignment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return storage.Assignment{}, fmt.Errorf("read assignment id: %w", err)
	}
	assignment.ID = id
	return assignment, nil
}

// GetAssignment returns one assignment.
func (s *Store) GetAssignment(ctx context.Context, id int64) (storage.Assignment, error) {
	if err := ctx.Err(); err != nil {
		return storage.Assignment{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Assignment{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE id = ?`, id)
	assignment, err := scanAssignment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Assignment{}, storage.ErrNotFound
		}
		return storage.Assignment{}, err
	}
	return assignment, nil
}

// ListAssignments returns every assignment ordered by id.
func (s *Store) ListAssignments(ctx context.Context) ([]storage.Assignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	return s.queryAssignments(ctx, `SELECT `+assignmentColumns+` FROM assignments ORDER BY id`)
}

// ListActiveAssignmentsForUser returns the user's active assignments ordered
// by id.
func (s *Store) ListActiveAssignmentsForUser(ctx context.Context, userID int64) ([]storage.Assignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	return s.queryAssignments(
		ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE user_id = ? AND active = 1 ORDER BY id`,
		userID,
	)
}

// DeleteAssignment removes one assignment.
func (s *Store) DeleteAssignment(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM assignments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check delete: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) queryAssignments(ctx context.Context, query string, args ...any) ([]storage.Assignment, error) {
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var out []storage.Assignment
	for rows.Next() {
		assignment, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, assignment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read assignments: %w", err)
	}
	return out, nil
}

func scanAssignment(row rowScanner) (storage.Assignment, error) {
	var assignment storage.Assignment
	var dueAt sql.NullInt64
	var active int
	if err := row.Scan(
		&assignment.ID,
		&assignment.UserID,
		&assignment.QuestionnaireID,
		&dueAt,
		&active,
	); err != nil {
		return storage.Assignment{}, fmt.Errorf("scan assignment: %w", err)
	}
	assignment.DueAt = fromNullMillis(dueAt)
	assignment.Active = active != 0
	return assignment, nil
}

var _ storage.AssignmentStore = (*Store)(nil)
