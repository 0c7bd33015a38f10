package app

import (
	"encoding/json"
	"time"

	"github.com/clinarc/ediary/internal/services/diary/storage"
)

type projectView struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	AdminKey  string    `json:"admin_key,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type userView struct {
	ID              int64     `json:"id"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	ParticipantCode string    `json:"participant_code,omitempty"`
	Role            string    `json:"role"`
	IsActive        bool      `json:"is_active"`
	ProjectID       int64     `json:"project_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type choiceView struct {
	ID       int64  `json:"id"`
	Text     string `json:"text"`
	Value    string `json:"value"`
	Position int    `json:"position"`
}

type questionView struct {
	ID       int64        `json:"id"`
	Text     string       `json:"text"`
	Type     string       `json:"type"`
	Required bool         `json:"required"`
	Position int          `json:"position"`
	Choices  []choiceView `json:"choices,omitempty"`
}

type questionnaireView struct {
	ID            int64          `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Version       string         `json:"version"`
	IsActive      bool           `json:"is_active"`
	AssignmentKey string         `json:"assignment_key,omitempty"`
	ProjectID     int64          `json:"project_id,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	Questions     []questionView `json:"questions"`
}

type assignmentView struct {
	ID              int64      `json:"id"`
	UserID          int64      `json:"user_id"`
	QuestionnaireID int64      `json:"questionnaire_id"`
	DueAt           *time.Time `json:"due_at,omitempty"`
	Active          bool       `json:"active"`
}

type entryView struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"user_id"`
	QuestionnaireID int64           `json:"questionnaire_id"`
	ProjectID       int64           `json:"project_id,omitempty"`
	SubmittedAt     time.Time       `json:"submitted_at"`
	Answers         json.RawMessage `json:"answers"`
}

type taskView struct {
	ID              int64      `json:"id"`
	UserID          int64      `json:"user_id"`
	QuestionnaireID int64      `json:"questionnaire_id,omitempty"`
	Type            string     `json:"type"`
	Title           string     `json:"title"`
	DueAt           *time.Time `json:"due_at,omitempty"`
	IsCompleted     bool       `json:"is_completed"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

func projectToView(p storage.Project) projectView {
	return projectView{ID: p.ID, Name: p.Name, AdminKey: p.AdminKey, CreatedAt: p.CreatedAt}
}

func userToView(u storage.User) userView {
	return userView{
		ID:              u.ID,
		Email:           u.Email,
		Name:            u.Name,
		ParticipantCode: u.ParticipantCode,
		Role:            string(u.Role),
		IsActive:        u.IsActive,
		ProjectID:       u.ProjectID,
		CreatedAt:       u.CreatedAt,
	}
}

func choiceToView(c storage.Choice) choiceView {
	return choiceView{ID: c.ID, Text: c.Text, Value: c.Value, Position: c.Position}
}

func questionToView(q storage.Question) questionView {
	view := questionView{
		ID:       q.ID,
		Text:     q.Text,
		Type:     string(q.Type),
		Required: q.Required,
		Position: q.Position,
	}
	for _, choice := range q.Choices {
		view.Choices = append(view.Choices, choiceToView(choice))
	}
	return view
}

func questionnaireToView(q storage.Questionnaire) questionnaireView {
	view := questionnaireView{
		ID:            q.ID,
		Name:          q.Name,
		Description:   q.Description,
		Version:       q.Version,
		IsActive:      q.IsActive,
		AssignmentKey: q.AssignmentKey,
		ProjectID:     q.ProjectID,
		CreatedAt:     q.CreatedAt,
		Questions:     []questionView{},
	}
	for _, question := range q.Questions {
		view.Questions = append(view.Questions, questionToView(question))
	}
	return view
}

func assignmentToView(a storage.Assignment) assignmentView {
	return assignmentView{
		ID:              a.ID,
		UserID:          a.UserID,
		QuestionnaireID: a.QuestionnaireID,
		DueAt:           a.DueAt,
		Active:          a.Active,
	}
}

func entryToView(e storage.Entry) entryView {
	answers := json.RawMessage(e.Answers)
	if len(answers) == 0 {
		answers = json.RawMessage("{}")
	}
	return entryView{
		ID:              e.ID,
		UserID:          e.UserID,
		QuestionnaireID: e.QuestionnaireID,
		ProjectID:       e.ProjectID,
		SubmittedAt:     e.SubmittedAt,
		Answers:         answers,
	}
}

func taskToView(t storage.Task) taskView {
	return taskView{
		ID:              t.ID,
		UserID:          t.UserID,
		QuestionnaireID: t.QuestionnaireID,
		Type:            string(t.Type),
		Title:           t.Title,
		DueAt:           t.DueAt,
		IsCompleted:     t.IsCompleted,
		CompletedAt:     t.CompletedAt,
	}
}
