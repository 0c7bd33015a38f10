package app

import (
	"net/http"
	"strconv"
	"time"

	"github.com/clinarc/ediary/internal/services/diary/auth"
	"github.com/clinarc/ediary/internal/services/diary/storage"
)

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

type createProjectRequest struct {
	Name string `json:"name"`
}

func (h handlers) handleCreateProject(w http.ResponseWriter, r *http.Request, scope auth.Scope) {
	if err := auth.RequireSuperAdmin(scope); err != nil {
		writeError(w, err)
		return
	}
	var req createProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Name == "" {
		writeInvalid(w, "project name is required")
		return
	}
	project, err := h.store.CreateProject(r.Context(), storage.Project{Name: req.Name})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, projectToView(project))
}

func (h handlers) handleListProjects(w http.ResponseWriter, r *http.Request, scope auth.Scope) {
	projects, err := h.store.ListProjects(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	views := []projectView{}
	for _, project := range projects {
		if !scope.Allows(project.ID) {
			continue
		}
		views = append(views, projectToView(project))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h handlers) handleGetProject(w http.ResponseWriter, r *http.Request, scope auth.Scope) {
	id, ok := pathID(r, "projectID")
	if !ok {
		writeInvalid(w, "invalid project id")
		return
	}
	if err := auth.RequireProject(scope, id); err != nil {
		writeError(w, err)
		return
	}
	project, err := h.store.GetProject(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projectToView(project))
}

type userRequest struct {
	Email           string `json:"email"`
	Name            string `json:"name"`
	ParticipantCode string `json:"participant_code"`
	Role            string `json:"role"`
	IsActive        *bool  `json:"is_active"`
	ProjectID       int64  `json:"project_id"`
}

func (req userRequest) toRecord() storage.User {
	user := storage.User{
		Email:           req.Email,
		Name:            req.Name,
		ParticipantCode: req.ParticipantCode,
		Role:            storage.Role(req.Role),
		IsActive:        true,
		ProjectID:       req.ProjectID,
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	return user
}

func (h handlers) handleCreateUser(w http.ResponseWriter, r *http.Request, scope auth.Scope) {
	var req userRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Email == "" || req.Name == "" {
		writeInvalid(w, "user email and name are required")
		return
	}
	if err := auth.RequireProject(scope, req.ProjectID); err != nil {
		writeError(w, err)
		return
	}
	user, err := h.store.CreateUser(r.Context(), req.toRecord())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, userToView(user))
}

func (h handlers) handleListUsers(w http.ResponseWriter, r *http.Request, scope auth.Scope) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	views := []userView{}
	for _, user := range users {
		if !scope.Allows(user.ProjectID) {
			continue
		}
		views = append(views, userToView(user))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h handlers) handleGetUser(w http.ResponseWriter, r *http.Request, scope auth.Scope) {
	id, ok := pathID(r, "userID")
	if !ok {
		writeInvalid(w, "invalid user id")
		return
	}
	user, err := h.store.GetUser(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := auth.RequireProject(scope, user.ProjectID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userToView(user))
}

func (h handlers) handleUpdateUser(w http.ResponseWriter, r *http.Request, scope auth.Scope) {
	id, ok := pathID(r, "userID")
	if !ok {
		writeInvalid(w, "invalid user id")
		return
	}
	existing, err := h.store.GetUser(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := auth.RequireProject(scope, existing.ProjectID); err != nil {
		writeError(w, err)
		return
	}
	var req userRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := auth.RequireProject(scope, req.ProjectID); err != nil {
		writeError(w, err)
		return
	}
	record := req.toRecord()
	record.ID = id
	user, err := h.store.UpdateUser(r.Context(), record)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userToView(user))
}

func (h handlers) handleDeleteUser(w http.ResponseWriter, r *http.Request, scope auth.Scope) {
	id, ok := pathID(r, "userID")
	if !ok {
		writeInvalid(w, "invalid user id")
		return
	}
	existing, err := h.store.GetUser(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := auth.RequireProject(scope, existing.ProjectID); err != nil {
		writeError(w, err)
		return
	}
	if err := h.store.DeleteUser(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type choiceRequest struct {
	Text     string `json:"text"`
	Value    string `json:"value"`
	Position int    `json:"position"`
}

type questionRequest struct {
	Text     string          `json:"text"`
	Type     string          `json:"type"`
	Required bool            `json:"required"`
	Position int             `json:"position"`
	Choices  []choiceRequest `json:"choices"`
}

func (req questionRequest) valid() bool {
	if req.Text == "" {
		return false
	}
	return req.Type == "" || storage.ValidQuestionType(storage.QuestionType(req.Type))
}

func (req questionRequest) toRecord() storage.Question {
	question := storage.Question{
		Text:     req.Text,
		Type:     storage.QuestionType(req.Type),
		Required: req.Required,
		Position: req.Position,
	}
	for _, choice := range req.Choices {
		question.Choices = append(question.Choices, storage.Choice{
			Text:     choice.Text,
			Value:    choice.Value,
			Position: choice.Position,
		})
	}
	return question
}

type questionnaireRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Version     string            `json:"version"`
	IsActive    bool              `json:"is_active"`
	ProjectID   int64             `json:"project_id"`
	Questions   []questionRequest `json:"questions"`
}

func (h handlers) handleCreateQuestionnaire(w http.ResponseWriter, r *http.Request, scope auth.Scope) {
	var req questionnaireRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Name == "" {
		writeInvalid(w, "questionnaire name is required")
		return
	}
	for _, question := range req.Questions {
		if !question.valid() {
			writeInvalid(w, "invalid question")
			return
		}
	}
	if err := auth.RequireProject(scope, req.ProjectID); err != nil {
		writeError(w, err)
		return
	}
	record := storage.Questionnaire{
		Name:        req.Name,
		Description: req.Description,
		Version:     req.Version,
		IsActive:    req.IsActive,
		ProjectID:   req.ProjectID,
	}
	for _, question := range req.Questions {
		record.Questions = append(record.Questions, question.toRecord())
	}
	created, err := h.store.CreateQuestionnaire(r.Context(), record)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, questionnaireToView(created))
}

func (h handlers) handleListQuestionnaires(w http.ResponseWriter, r *http.Request, scope auth.Scope) {
	questionnaires, err := h.store.ListQuestionnaires(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	views := []questionnaireView{}
	for _, q := range questionnaires {
		if !scope.Allows(q.ProjectID) {
			continue
		}
		views = append(views, questionnaireToView(q))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h handlers) questionnaireInScope(w http.ResponseWriter, r *http.Request, scope auth.Scope) (storage.Questionnaire, bool) {
	id, ok := pathID(r, "questionnaireID")
	if !ok {
		writeInvalid(w, "invalid questionnaire id")
		return storage.Questionnaire{}, false
	}
	q, err := h.store.GetQuestionnaire(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return storage.Questionnaire{}, false
	}
	if err := auth.RequireProject(scope, q.ProjectID); err != nil {
		writeError(w, err)
		return storage.Questionnaire{}, false
	}
	return q, true
}

func (h handlers) handleGetQuestionnaire(w http.ResponseWriter, r *http.Request, scope auth.Scope) {
	q, ok := h.questionnaireInScope(w, r, scope)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, questionnaireToView(q))
}

func (h handlers) handleUpdateQuestionnaire(w http.ResponseWriter, r *http.Request, scope auth.Scope) {
	existing, ok := h.questionnaireInScope(w, r, scope)
	if !ok {
		return
	}
	var req questionnaireRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := auth.RequireProject(scope, req.ProjectID); err != nil {
		writeError(w, err)
		return
	}
	updated, err := h.store.UpdateQuestionnaire(r.Context(), storage.Questionnaire{
		ID:          existing.ID,
		Name:        req.Name,
		Description: req.Description,
		Version:     req.Version,
		IsActive:    req.IsActive,
		ProjectID:   req.ProjectID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questionnaireToView(updated))
}

func (h handlers) handleDeleteQuestionnaire(w http.ResponseWriter, r *http.Request, scope auth.Scope) {
	existing, ok := h.questionnaireInScope(w, r, scope)
	if !ok {
		return
	}
	if err := h.store.DeleteQuestionnaire(r.Context(), existing.ID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h handlers) handleAddQuestion(w http.ResponseWriter, r *http.Request, scope auth.Scope) {
	existing, ok := h.questionnaireInScope(w, r, scope)
	if !ok {
		return
	}
	var req questionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if !req.valid() {
		writeInvalid(w, "invalid question")
		return
	}
	question, err := h.store.AddQuestion(r.Context(), existing.ID, req.toRecord())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, questionToView(question))
}

// questionOwnerInScope gates mutations addressed by bare question id on the
// owning questionnaire's project.
func (h handlers) questionOwnerInScope(w http.ResponseWriter, r *http.Request, scope auth.Scope, questionID int64) bool {
	questionnaireID, err := h.store.QuestionnaireIDForQuestion(r.Context(), questionID)
	if err != nil {
		writeError(w, err)
		return false
	}
	q, err := h.store.GetQuestionnaire(r.Context(), questionnaireID)
	if err != nil {
		writeError(w, err)
		return false
	}
	if err := auth.RequireProject(scope, q.ProjectID); err != nil {
		writeError(w, err)
		return false
	}
	return true
}

func (h handlers) handleUpdateQuestion(w http.ResponseWriter, r *http.Request, scope auth.Scope) {
	id, ok := pathID(r, "questionID")
	if !ok {
		writeInvalid(w, "invalid question id")
		return
	}
	if !h.questionOwnerInScope(w, r, scope, id) {
		return
	}
	var req questionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if !req.valid() || req.Type == "" {
		writeInvalid(w, "invalid question")
		return
	}
	record := req.toRecord()
	record.ID = id
	question, err := h.store.UpdateQuestion(r.Context(), record)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questionToView(question))
}

func (h handlers) handleDeleteQuestion(w http.ResponseWriter, r *http.Request, scope auth.Scope) {
	id, ok := pathID(r, "questionID")
	if !ok {
		writeInvalid(w, "invalid question id")
		return
	}
	if !h.questionOwnerInScope(w, r, scope, id) {
		return
	}
	if err := h.store.DeleteQuestion(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type assignmentRequest struct {
	UserID          int64      `json:"user_id"`
	QuestionnaireID int64      `json:"questionnaire_id"`
	DueAt           *time.Time `json:"due_at"`
	Active          *bool      `json:"active"`
}

func (h handlers) handleCreateAssignment(w http.ResponseWriter, r *http.Request, scope auth.Scope) {
	var req assignmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.UserID <= 0 || req.QuestionnaireID <= 0 {
		writeInvalid(w, "assignment user and questionnaire are required")
		return
	}
	user, err := h.store.GetUser(r.Context(), req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := auth.RequireProject(scope, user.ProjectID); err != nil {
		writeError(w, err)
		return
	}
	record := storage.Assignment{
		UserID:          req.UserID,
		QuestionnaireID: req.QuestionnaireID,
		DueAt:           req.DueAt,
		Active:          true,
	}
	if req.Active != nil {
		record.Active = *req.Active
	}
	assignment, err := h.store.CreateAssignment(r.Context(), record)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, assignmentToView(assignment))
}

func (h handlers) handleListAssignments(w http.ResponseWriter, r *http.Request, scope auth.Scope) {
	assignments, err := h.store.ListAssignments(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	projectByUser, err := h.userProjects(r)
	if err != nil {
		writeError(w, err)
		return
	}
	views := []assignmentView{}
	for _, assignment := range assignments {
		if !scope.Allows(projectByUser[assignment.UserID]) {
			continue
		}
		views = append(views, assignmentToView(assignment))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h handlers) handleDeleteAssignment(w http.ResponseWriter, r *http.Request, scope auth.Scope) {
	id, ok := pathID(r, "assignmentID")
	if !ok {
		writeInvalid(w, "invalid assignment id")
		return
	}
	assignment, err := h.store.GetAssignment(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	user, err := h.store.GetUser(r.Context(), assignment.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := auth.RequireProject(scope, user.ProjectID); err != nil {
		writeError(w, err)
		return
	}
	if err := h.store.DeleteAssignment(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h handlers) handleListEntries(w http.ResponseWriter, r *http.Request, scope auth.Scope) {
	entries, err := h.store.ListEntries(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	views := []entryView{}
	for _, entry := range entries {
		if !scope.Allows(entry.ProjectID) {
			continue
		}
		views = append(views, entryToView(entry))
	}
	writeJSON(w, http.StatusOK, views)
}

type taskRequest struct {
	UserID          int64      `json:"user_id"`
	QuestionnaireID int64      `json:"questionnaire_id"`
	Type            string     `json:"type"`
	Title           string     `json:"title"`
	DueAt           *time.Time `json:"due_at"`
}

func (h handlers) handleCreateTask(w http.ResponseWriter, r *http.Request, scope auth.Scope) {
	var req taskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	taskType := storage.TaskType(req.Type)
	if taskType != storage.TaskReminder && taskType != storage.TaskFillForm {
		writeInvalid(w, "invalid task type")
		return
	}
	user, err := h.store.GetUser(r.Context(), req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := auth.RequireProject(scope, user.ProjectID); err != nil {
		writeError(w, err)
		return
	}
	task, err := h.store.CreateTask(r.Context(), storage.Task{
		UserID:          req.UserID,
		QuestionnaireID: req.QuestionnaireID,
		Type:            taskType,
		Title:           req.Title,
		DueAt:           req.DueAt,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, taskToView(task))
}

func (h handlers) userProjects(r *http.Request) (map[int64]int64, error) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		return nil, err
	}
	out := make(map[int64]int64, len(users))
	for _, user := range users {
		out[user.ID] = user.ProjectID
	}
	return out, nil
}
