package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/clinarc/ediary/internal/services/diary/storage"
)

const userColumns = `id, email, name, participant_code, role, is_active, project_id, created_at`

// CreateUser inserts one user account.
func (s *Store) CreateUser(ctx context.Context, user storage.User) (storage.User, error) {
	if err := ctx.Err(); err != nil {
		return storage.User{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.User{}, fmt.Errorf("storage is not configured")
	}
	email := strings.TrimSpace(user.Email)
	if email == "" {
		return storage.User{}, fmt.Errorf("user email is required")
	}
	name := strings.TrimSpace(user.Name)
	if name == "" {
		return storage.User{}, fmt.Errorf("user name is required")
	}
	role := user.Role
	if role == "" {
		role = storage.RoleParticipant
	}
	createdAt := user.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO users (email, name, participant_code, role, is_active, project_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		email,
		name,
		nullString(user.ParticipantCode),
		string(role),
		boolToInt(user.IsActive),
		toNullID(user.ProjectID),
		toMillis(createdAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.User{}, storage.ErrAlreadyExists
		}
		return storage.User{}, fmt.Errorf("create user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return storage.User{}, fmt.Errorf("read user id: %w", err)
	}

	user.ID = id
	user.Email = email
	user.Name = name
	user.Role = role
	user.CreatedAt = createdAt
	return user, nil
}

// GetUser returns one user by id.
func (s *Store) GetUser(ctx context.Context, id int64) (storage.User, error) {
	if err := ctx.Err(); err != nil {
		return storage.User{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.User{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByParticipantCode returns the user holding the participant code.
func (s *Store) GetUserByParticipantCode(ctx context.Context, code string) (storage.User, error) {
	if err := ctx.Err(); err != nil {
		return storage.User{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.User{}, fmt.Errorf("storage is not configured")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return storage.User{}, storage.ErrNotFound
	}

	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE participant_code = ?`, code)
	return scanUser(row)
}

// ListUsers returns every user ordered by id.
func (s *Store) ListUsers(ctx context.Context) ([]storage.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []storage.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read users: %w", err)
	}
	return users, nil
}

// UpdateUser replaces the mutable fields of one user.
func (s *Store) UpdateUser(ctx context.Context, user storage.User) (storage.User, error) {
	if err := ctx.Err(); err != nil {
		return storage.User{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.User{}, fmt.Errorf("storage is not configured")
	}
	email := strings.TrimSpace(user.Email)
	if email == "" {
		return storage.User{}, fmt.Errorf("user email is required")
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE users SET email = ?, name = ?, participant_code = ?, role = ?, is_active = ?, project_id = ?
		 WHERE id = ?`,
		email,
		strings.TrimSpace(user.Name),
		nullString(user.ParticipantCode),
		string(user.Role),
		boolToInt(user.IsActive),
		toNullID(user.ProjectID),
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.User{}, storage.ErrAlreadyExists
		}
		return storage.User{}, fmt.Errorf("update user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storage.User{}, fmt.Errorf("check update: %w", err)
	}
	if affected == 0 {
		return storage.User{}, storage.ErrNotFound
	}
	return s.GetUser(ctx, user.ID)
}

// DeleteUser removes one user and, through cascading keys, its assignments,
// entries, and tasks.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
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

func scanUser(row rowScanner) (storage.User, error) {
	var user storage.User
	var participantCode sql.NullString
	var role string
	var isActive int
	var projectID sql.NullInt64
	var createdAt int64
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&participantCode,
		&role,
		&isActive,
		&projectID,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.User{}, storage.ErrNotFound
		}
		return storage.User{}, fmt.Errorf("scan user: %w", err)
	}
	user.ParticipantCode = participantCode.String
	user.Role = storage.Role(role)
	user.IsActive = isActive != 0
	user.ProjectID = fromNullID(projectID)
	user.CreatedAt = fromMillis(createdAt)
	return user, nil
}

func nullString(value string) sql.NullString {
	value = strings.TrimSpace(value)
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

var _ storage.UserStore = (*Store)(nil)
