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

const questionnaireColumns = `id, name, description, version, is_active, assignment_key, project_id, created_at`

// CreateQuestionnaire inserts one questionnaire with its questions and
// choices atomically. When the assignment key is empty a fresh one is
// generated; a supplied key is kept and never regenerated.
func (s *Store) CreateQuestionnaire(ctx context.Context, q storage.Questionnaire) (storage.Questionnaire, error) {
	if err := ctx.Err(); err != nil {
		return storage.Questionnaire{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Questionnaire{}, fmt.Errorf("storage is not configured")
	}
	name := strings.TrimSpace(q.Name)
	if name == "" {
		return storage.Questionnaire{}, fmt.Errorf("questionnaire name is required")
	}
	for _, question := range q.Questions {
		if question.Type != "" && !storage.ValidQuestionType(question.Type) {
			return storage.Questionnaire{}, fmt.Errorf("invalid question type %q", question.Type)
		}
	}
	assignmentKey := strings.TrimSpace(q.AssignmentKey)
	if assignmentKey == "" {
		generated, err := token.NewKey()
		if err != nil {
			return storage.Questionnaire{}, fmt.Errorf("generate assignment key: %w", err)
		}
		assignmentKey = generated
	}
	version := strings.TrimSpace(q.Version)
	if version == "" {
		version = "1.0"
	}
	createdAt := q.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return storage.Questionnaire{}, fmt.Errorf("begin create questionnaire: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(
		ctx,
		`INSERT INTO questionnaires (name, description, version, is_active, assignment_key, project_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		name,
		q.Description,
		version,
		boolToInt(q.IsActive),
		assignmentKey,
		toNullID(q.ProjectID),
		toMillis(createdAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.Questionnaire{}, storage.ErrAlreadyExists
		}
		return storage.Questionnaire{}, fmt.Errorf("create questionnaire: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return storage.Questionnaire{}, fmt.Errorf("read questionnaire id: %w", err)
	}

	for i, question := range q.Questions {
		if question.Position == 0 {
			question.Position = i
		}
		if _, err := insertQuestion(ctx, tx, id, question); err != nil {
			return storage.Questionnaire{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return storage.Questionnaire{}, fmt.Errorf("commit create questionnaire: %w", err)
	}
	return s.GetQuestionnaire(ctx, id)
}

// GetQuestionnaire returns one questionnaire with questions and choices.
func (s *Store) GetQuestionnaire(ctx context.Context, id int64) (storage.Questionnaire, error) {
	if err := ctx.Err(); err != nil {
		return storage.Questionnaire{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Questionnaire{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+questionnaireColumns+` FROM questionnaires WHERE id = ?`, id)
	q, err := scanQuestionnaire(row)
	if err != nil {
		return storage.Questionnaire{}, err
	}
	q.Questions, err = s.loadQuestions(ctx, q.ID)
	if err != nil {
		return storage.Questionnaire{}, err
	}
	return q, nil
}

// GetQuestionnaireByName returns one questionnaire by its unique name. Used
// by the idempotent seed loader.
func (s *Store) GetQuestionnaireByName(ctx context.Context, name string) (storage.Questionnaire, error) {
	if err := ctx.Err(); err != nil {
		return storage.Questionnaire{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Questionnaire{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+questionnaireColumns+` FROM questionnaires WHERE name = ?`, strings.TrimSpace(name))
	q, err := scanQuestionnaire(row)
	if err != nil {
		return storage.Questionnaire{}, err
	}
	q.Questions, err = s.loadQuestions(ctx, q.ID)
	if err != nil {
		return storage.Questionnaire{}, err
	}
	return q, nil
}

// ListQuestionnaires returns every questionnaire with questions and choices,
// ordered by id.
func (s *Store) ListQuestionnaires(ctx context.Context) ([]storage.Questionnaire, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `SELECT `+questionnaireColumns+` FROM questionnaires ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list questionnaires: %w", err)
	}
	defer rows.Close()

	var out []storage.Questionnaire
	for rows.Next() {
		q, err := scanQuestionnaire(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read questionnaires: %w", err)
	}
	for i := range out {
		out[i].Questions, err = s.loadQuestions(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// UpdateQuestionnaire replaces the scalar fields of one questionnaire. The
// assignment key is not touched; keys are never silently regenerated.
func (s *Store) UpdateQuestionnaire(ctx context.Context, q storage.Questionnaire) (storage.Questionnaire, error) {
	if err := ctx.Err(); err != nil {
		return storage.Questionnaire{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Questionnaire{}, fmt.Errorf("storage is not configured")
	}
	name := strings.TrimSpace(q.Name)
	if name == "" {
		return storage.Questionnaire{}, fmt.Errorf("questionnaire name is required")
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE questionnaires SET name = ?, description = ?, version = ?, is_active = ?, project_id = ?
		 WHERE id = ?`,
		name,
		q.Description,
		q.Version,
		boolToInt(q.IsActive),
		toNullID(q.ProjectID),
		q.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.Questionnaire{}, storage.ErrAlreadyExists
		}
		return storage.Questionnaire{}, fmt.Errorf("update questionnaire: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storage.Questionnaire{}, fmt.Errorf("check update: %w", err)
	}
	if affected == 0 {
		return storage.Questionnaire{}, storage.ErrNotFound
	}
	return s.GetQuestionnaire(ctx, q.ID)
}

// DeleteQuestionnaire removes one questionnaire; questions and choices go
// with it through cascading keys.
func (s *Store) DeleteQuestionnaire(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM questionnaires WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete questionnaire: %w", err)
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

// AddQuestion appends one question (with choices) to a questionnaire.
func (s *Store) AddQuestion(ctx context.Context, questionnaireID int64, question storage.Question) (storage.Question, error) {
	if err := ctx.Err(); err != nil {
		return storage.Question{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Question{}, fmt.Errorf("storage is not configured")
	}
	if question.Type != "" && !storage.ValidQuestionType(question.Type) {
		return storage.Question{}, fmt.Errorf("invalid question type %q", question.Type)
	}
	if _, err := s.GetQuestionnaire(ctx, questionnaireID); err != nil {
		return storage.Question{}, err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return storage.Question{}, fmt.Errorf("begin add question: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	id, err := insertQuestion(ctx, tx, questionnaireID, question)
	if err != nil {
		return storage.Question{}, err
	}
	if err := tx.Commit(); err != nil {
		return storage.Question{}, fmt.Errorf("commit add question: %w", err)
	}
	return s.getQuestion(ctx, id)
}

// UpdateQuestion replaces one question's fields. A non-nil Choices slice
// replaces the stored choices wholesale; nil leaves them untouched.
func (s *Store) UpdateQuestion(ctx context.Context, question storage.Question) (storage.Question, error) {
	if err := ctx.Err(); err != nil {
		return storage.Question{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Question{}, fmt.Errorf("storage is not configured")
	}
	if !storage.ValidQuestionType(question.Type) {
		return storage.Question{}, fmt.Errorf("invalid question type %q", question.Type)
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return storage.Question{}, fmt.Errorf("begin update question: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(
		ctx,
		`UPDATE questions SET text = ?, type = ?, required = ?, position = ? WHERE id = ?`,
		question.Text,
		string(question.Type),
		boolToInt(question.Required),
		question.Position,
		question.ID,
	)
	if err != nil {
		return storage.Question{}, fmt.Errorf("update question: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storage.Question{}, fmt.Errorf("check update: %w", err)
	}
	if affected == 0 {
		return storage.Question{}, storage.ErrNotFound
	}

	if question.Choices != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM choices WHERE question_id = ?`, question.ID); err != nil {
			return storage.Question{}, fmt.Errorf("replace choices: %w", err)
		}
		for i, choice := range question.Choices {
			if choice.Position == 0 {
				choice.Position = i
			}
			if err := insertChoice(ctx, tx, question.ID, choice); err != nil {
				return storage.Question{}, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return storage.Question{}, fmt.Errorf("commit update question: %w", err)
	}
	return s.getQuestion(ctx, question.ID)
}

// DeleteQuestion removes one question and its choices.
func (s *Store) DeleteQuestion(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM questions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
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

// QuestionnaireIDForQuestion returns the owning questionnaire of a question.
// Used to scope question mutations addressed by bare question id.
func (s *Store) QuestionnaireIDForQuestion(ctx context.Context, questionID int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx, `SELECT questionnaire_id FROM questions WHERE id = ?`, questionID)
	var questionnaireID int64
	if err := row.Scan(&questionnaireID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, storage.ErrNotFound
		}
		return 0, fmt.Errorf("scan question owner: %w", err)
	}
	return questionnaireID, nil
}

func insertQuestion(ctx context.Context, tx *sql.Tx, questionnaireID int64, question storage.Question) (int64, error) {
	questionType := question.Type
	if questionType == "" {
		questionType = storage.QuestionText
	}
	result, err := tx.ExecContext(
		ctx,
		`INSERT INTO questions (questionnaire_id, text, type, required, position) VALUES (?, ?, ?, ?, ?)`,
		questionnaireID,
		question.Text,
		string(questionType),
		boolToInt(question.Required),
		question.Position,
	)
	if err != nil {
		return 0, fmt.Errorf("insert question: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read question id: %w", err)
	}
	for i, choice := range question.Choices {
		if choice.Position == 0 {
			choice.Position = i
		}
		if err := insertChoice(ctx, tx, id, choice); err != nil {
			return 0, err
		}
	}
	return id, nil
}

func insertChoice(ctx context.Context, tx *sql.Tx, questionID int64, choice storage.Choice) error {
	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO choices (question_id, text, value, position) VALUES (?, ?, ?, ?)`,
		questionID,
		choice.Text,
		choice.Value,
		choice.Position,
	); err != nil {
		return fmt.Errorf("insert choice: %w", err)
	}
	return nil
}

func (s *Store) getQuestion(ctx context.Context, id int64) (storage.Question, error) {
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, text, type, required, position FROM questions WHERE id = ?`,
		id,
	)
	var question storage.Question
	var questionType string
	var required int
	if err := row.Scan(&question.ID, &question.Text, &questionType, &required, &question.Position); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Question{}, storage.ErrNotFound
		}
		return storage.Question{}, fmt.Errorf("scan question: %w", err)
	}
	question.Type = storage.QuestionType(questionType)
	question.Required = required != 0
	choices, err := s.loadChoices(ctx, question.ID)
	if err != nil {
		return storage.Question{}, err
	}
	question.Choices = choices
	return question, nil
}

func (s *Store) loadQuestions(ctx context.Context, questionnaireID int64) ([]storage.Question, error) {
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, text, type, required, position FROM questions WHERE questionnaire_id = ? ORDER BY position, id`,
		questionnaireID,
	)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var questions []storage.Question
	for rows.Next() {
		var question storage.Question
		var questionType string
		var required int
		if err := rows.Scan(&question.ID, &question.Text, &questionType, &required, &question.Position); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		question.Type = storage.QuestionType(questionType)
		question.Required = required != 0
		questions = append(questions, question)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}
	for i := range questions {
		choices, err := s.loadChoices(ctx, questions[i].ID)
		if err != nil {
			return nil, err
		}
		questions[i].Choices = choices
	}
	return questions, nil
}

func (s *Store) loadChoices(ctx context.Context, questionID int64) ([]storage.Choice, error) {
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, text, value, position FROM choices WHERE question_id = ? ORDER BY position, id`,
		questionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list choices: %w", err)
	}
	defer rows.Close()

	var choices []storage.Choice
	for rows.Next() {
		var choice storage.Choice
		if err := rows.Scan(&choice.ID, &choice.Text, &choice.Value, &choice.Position); err != nil {
			return nil, fmt.Errorf("scan choice: %w", err)
		}
		choices = append(choices, choice)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read choices: %w", err)
	}
	return choices, nil
}

func scanQuestionnaire(row rowScanner) (storage.Questionnaire, error) {
	var q storage.Questionnaire
	var description string
	var isActive int
	var assignmentKey sql.NullString
	var projectID sql.NullInt64
	var createdAt int64
	err := row.Scan(
		&q.ID,
		&q.Name,
		&description,
		&q.Version,
		&isActive,
		&assignmentKey,
		&projectID,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Questionnaire{}, storage.ErrNotFound
		}
		return storage.Questionnaire{}, fmt.Errorf("scan questionnaire: %w", err)
	}
	q.Description = description
	q.IsActive = isActive != 0
	q.AssignmentKey = assignmentKey.String
	q.ProjectID = fromNullID(projectID)
	q.CreatedAt = fromMillis(createdAt)
	return q, nil
}

var _ storage.QuestionnaireStore = (*Store)(nil)
