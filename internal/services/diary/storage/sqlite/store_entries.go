package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/clinarc/ediary/internal/services/diary/storage"
)

const entryColumns = `id, user_id, questionnaire_id, project_id, submitted_at, answers`

// CreateEntry records one submitted diary entry. Answers is stored exactly as
// given.
func (s *Store) CreateEntry(ctx context.Context, entry storage.Entry) (storage.Entry, error) {
	if err := ctx.Err(); err != nil {
		return storage.Entry{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Entry{}, fmt.Errorf("storage is not configured")
	}
	if entry.UserID == 0 || entry.QuestionnaireID == 0 {
		return storage.Entry{}, fmt.Errorf("entry user and questionnaire are required")
	}
	submittedAt := entry.SubmittedAt.UTC()
	if submittedAt.IsZero() {
		submittedAt = time.Now().UTC()
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO entries (user_id, questionnaire_id, project_id, submitted_at, answers)
		 VALUES (?, ?, ?, ?, ?)`,
		entry.UserID,
		entry.QuestionnaireID,
		toNullID(entry.ProjectID),
		toMillis(submittedAt),
		entry.Answers,
	)
	if err != nil {
		return storage.Entry{}, fmt.Errorf("create entry: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return storage.Entry{}, fmt.Errorf("read entry id: %w", err)
	}
	entry.ID = id
	entry.SubmittedAt = submittedAt
	return entry, nil
}

// ListEntries returns every entry, newest first.
func (s *Store) ListEntries(ctx context.Context) ([]storage.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT `+entryColumns+` FROM entries ORDER BY submitted_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var out []storage.Entry
	for rows.Next() {
		var entry storage.Entry
		var projectID sql.NullInt64
		var submittedAt int64
		if err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.QuestionnaireID,
			&projectID,
			&submittedAt,
			&entry.Answers,
		); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entry.ProjectID = fromNullID(projectID)
		entry.SubmittedAt = fromMillis(submittedAt)
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read entries: %w", err)
	}
	return out, nil
}

var _ storage.EntryStore = (*Store)(nil)
