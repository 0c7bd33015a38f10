package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/clinarc/ediary/internal/services/diary/storage"
)

const taskColumns = `id, user_id, questionnaire_id, task_type, title, due_at, is_completed, completed_at`

// CreateTask adds one task to a participant's list.
func (s *Store) CreateTask(ctx context.Context, task storage.Task) (storage.Task, error) {
	if err := ctx.Err(); err != nil {
		return storage.Task{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Task{}, fmt.Errorf("storage is not configured")
	}
	if task.UserID == 0 {
		return storage.Task{}, fmt.Errorf("task user is required")
	}
	if task.Type != storage.TaskReminder && task.Type != storage.TaskFillForm {
		return storage.Task{}, fmt.Errorf("invalid task type %q", task.Type)
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO tasks (user_id, questionnaire_id, task_type, title, due_at, is_completed, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		task.UserID,
		toNullID(task.QuestionnaireID),
		string(task.Type),
		task.Title,
		toNullMillis(task.DueAt),
		boolToInt(task.IsCompleted),
		toNullMillis(task.CompletedAt),
	)
	if err != nil {
		return storage.Task{}, fmt.Errorf("create task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return storage.Task{}, fmt.Errorf("read task id: %w", err)
	}
	task.ID = id
	return task, nil
}

// ListOpenTasksForUser returns the user's incomplete tasks ordered by due
// date, undated tasks last.
func (s *Store) ListOpenTasksForUser(ctx context.Context, userID int64) ([]storage.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE user_id = ? AND is_completed = 0
		 ORDER BY due_at IS NULL, due_at, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []storage.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read tasks: %w", err)
	}
	return out, nil
}

// CompleteTask marks one task done. Already-completed tasks are left as they
// are.
func (s *Store) CompleteTask(ctx context.Context, id int64, completedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE tasks SET is_completed = 1, completed_at = ? WHERE id = ? AND is_completed = 0`,
		toMillis(completedAt),
		id,
	)
	if err != nil {
		return fmt.Errorf("complete task: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check complete: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// CompleteFillFormTasks closes every open fill-form task the user has for the
// given questionnaire. Closing zero tasks is not an error.
func (s *Store) CompleteFillFormTasks(ctx context.Context, userID, questionnaireID int64, completedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	if _, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE tasks SET is_completed = 1, completed_at = ?
		 WHERE user_id = ? AND questionnaire_id = ? AND task_type = ? AND is_completed = 0`,
		toMillis(completedAt),
		userID,
		questionnaireID,
		string(storage.TaskFillForm),
	); err != nil {
		return fmt.Errorf("complete fill-form tasks: %w", err)
	}
	return nil
}

func scanTask(row rowScanner) (storage.Task, error) {
	var task storage.Task
	var questionnaireID sql.NullInt64
	var taskType string
	var dueAt sql.NullInt64
	var isCompleted int
	var completedAt sql.NullInt64
	if err := row.Scan(
		&task.ID,
		&task.UserID,
		&questionnaireID,
		&taskType,
		&task.Title,
		&dueAt,
		&isCompleted,
		&completedAt,
	); err != nil {
		return storage.Task{}, fmt.Errorf("scan task: %w", err)
	}
	task.QuestionnaireID = fromNullID(questionnaireID)
	task.Type = storage.TaskType(taskType)
	task.DueAt = fromNullMillis(dueAt)
	task.IsCompleted = isCompleted != 0
	task.CompletedAt = fromNullMillis(completedAt)
	return task, nil
}

var _ storage.TaskStore = (*Store)(nil)
