// Package storage defines persistence contracts for clinical diary state.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
	ErrAlreadyExists = errors.New("record already exists")
)

// Role identifies what a user account is for.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleParticipant Role = "participant"
)

// QuestionType identifies how a question is answered.
type QuestionType string

const (
	QuestionText         QuestionType = "text"
	QuestionNumber       QuestionType = "number"
	QuestionDate         QuestionType = "date"
	QuestionTime         QuestionType = "time"
	QuestionSingleChoice QuestionType = "single_choice"
	QuestionMultiChoice  QuestionType = "multi_choice"
	QuestionLikert       QuestionType = "likert"
)

// ValidQuestionType reports whether value is a known question type.
func ValidQuestionType(value QuestionType) bool {
	switch value {
	case QuestionText, QuestionNumber, QuestionDate, QuestionTime,
		QuestionSingleChoice, QuestionMultiChoice, QuestionLikert:
		return true
	}
	return false
}

// TaskType identifies what a participant task asks for.
type TaskType string

const (
	// TaskReminder is informational and completes itself when fetched.
	TaskReminder TaskType = "reminder"
	// TaskFillForm asks for a diary submission and completes on submit.
	TaskFillForm TaskType = "fill_form"
)

// Project is one isolated trial: its users, questionnaires, and entries.
// AdminKey is the opaque credential granting admin scope over this project.
type Project struct {
	ID        int64
	Name      string
	AdminKey  string
	CreatedAt time.Time
}

// User is a trial participant or project staff account. ProjectID is zero for
// accounts predating project separation.
type User struct {
	ID              int64
	Email           string
	Name            string
	ParticipantCode string
	Role            Role
	IsActive        bool
	ProjectID       int64
	CreatedAt       time.Time
}

// Choice is one selectable answer of a choice question.
type Choice struct {
	ID       int64
	Text     string
	Value    string
	Position int
}

// Question is one entry of a questionnaire, ordered by Position.
type Question struct {
	ID       int64
	Text     string
	Type     QuestionType
	Required bool
	Position int
	Choices  []Choice
}

// Questionnaire is a versioned form participants fill in. AssignmentKey is an
// opaque token identifying the questionnaire for external assignment.
type Questionnaire struct {
	ID            int64
	Name          string
	Description   string
	Version       string
	IsActive      bool
	AssignmentKey string
	ProjectID     int64
	CreatedAt     time.Time
	Questions     []Question
}

// Assignment links a user to a questionnaire they should fill in.
type Assignment struct {
	ID              int64
	UserID          int64
	QuestionnaireID int64
	DueAt           *time.Time
	Active          bool
}

// Entry is one submitted diary record. Answers holds the raw JSON object as
// submitted.
type Entry struct {
	ID              int64
	UserID          int64
	QuestionnaireID int64
	ProjectID       int64
	SubmittedAt     time.Time
	Answers         string
}

// Task is one open item on a participant's list.
type Task struct {
	ID              int64
	UserID          int64
	QuestionnaireID int64
	Type            TaskType
	Title           string
	DueAt           *time.Time
	IsCompleted     bool
	CompletedAt     *time.Time
}

// ProjectStore persists projects and resolves admin keys to project scope.
type ProjectStore interface {
	CreateProject(ctx context.Context, project Project) (Project, error)
	GetProject(ctx context.Context, id int64) (Project, error)
	ListProjects(ctx context.Context) ([]Project, error)
	ListProjectIDs(ctx context.Context) ([]int64, error)
	ProjectIDsByAdminKey(ctx context.Context, adminKey string) ([]int64, error)
}

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user User) (User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	GetUserByParticipantCode(ctx context.Context, code string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	UpdateUser(ctx context.Context, user User) (User, error)
	DeleteUser(ctx context.Context, id int64) error
}

// QuestionnaireStore persists questionnaires with their questions and choices.
type QuestionnaireStore interface {
	CreateQuestionnaire(ctx context.Context, q Questionnaire) (Questionnaire, error)
	GetQuestionnaire(ctx context.Context, id int64) (Questionnaire, error)
	GetQuestionnaireByName(ctx context.Context, name string) (Questionnaire, error)
	ListQuestionnaires(ctx context.Context) ([]Questionnaire, error)
	UpdateQuestionnaire(ctx context.Context, q Questionnaire) (Questionnaire, error)
	DeleteQuestionnaire(ctx context.Context, id int64) error

	AddQuestion(ctx context.Context, questionnaireID int64, question Question) (Question, error)
	UpdateQuestion(ctx context.Context, question Question) (Question, error)
	DeleteQuestion(ctx context.Context, id int64) error
	QuestionnaireIDForQuestion(ctx context.Context, questionID int64) (int64, error)
}

// AssignmentStore persists questionnaire assignments.
type AssignmentStore interface {
	CreateAssignment(ctx context.Context, assignment Assignment) (Assignment, error)
	GetAssignment(ctx context.Context, id int64) (Assignment, error)
	ListAssignments(ctx context.Context) ([]Assignment, error)
	ListActiveAssignmentsForUser(ctx context.Context, userID int64) ([]Assignment, error)
	DeleteAssignment(ctx context.Context, id int64) error
}

// EntryStore persists submitted diary entries.
type EntryStore interface {
	CreateEntry(ctx context.Context, entry Entry) (Entry, error)
	ListEntries(ctx context.Context) ([]Entry, error)
}

// TaskStore persists participant tasks.
type TaskStore interface {
	CreateTask(ctx context.Context, task Task) (Task, error)
	ListOpenTasksForUser(ctx context.Context, userID int64) ([]Task, error)
	CompleteTask(ctx context.Context, id int64, completedAt time.Time) error
	CompleteFillFormTasks(ctx context.Context, userID, questionnaireID int64, completedAt time.Time) error
}
