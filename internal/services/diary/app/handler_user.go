package app

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/clinarc/ediary/internal/platform/errors"
	"github.com/clinarc/ediary/internal/services/diary/storage"
)

// participantCodeParam identifies the participant on the user plane. The
// code is an opaque handle handed out by trial staff, not a secret.
const participantCodeParam = "code"

func (h handlers) participantFromQuery(w http.ResponseWriter, r *http.Request) (storage.User, bool) {
	return h.participant(w, r, r.URL.Query().Get(participantCodeParam))
}

func (h handlers) participant(w http.ResponseWriter, r *http.Request, code string) (storage.User, bool) {
	if code == "" {
		writeInvalid(w, "participant code is required")
		return storage.User{}, false
	}
	user, err := h.store.GetUserByParticipantCode(r.Context(), code)
	if err != nil {
		writeError(w, err)
		return storage.User{}, false
	}
	if !user.IsActive {
		writeError(w, errors.New(errors.CodeForbidden, "participant account is inactive"))
		return storage.User{}, false
	}
	return user, true
}

// handleUserQuestionnaires lists the active questionnaires assigned to the
// participant.
func (h handlers) handleUserQuestionnaires(w http.ResponseWriter, r *http.Request) {
	user, ok := h.participantFromQuery(w, r)
	if !ok {
		return
	}
	assignments, err := h.store.ListActiveAssignmentsForUser(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	views := []questionnaireView{}
	for _, assignment := range assignments {
		q, err := h.store.GetQuestionnaire(r.Context(), assignment.QuestionnaireID)
		if err != nil {
			writeError(w, err)
			return
		}
		if !q.IsActive {
			continue
		}
		view := questionnaireToView(q)
		// Assignment keys are staff-facing; participants never see them.
		view.AssignmentKey = ""
		views = append(views, view)
	}
	writeJSON(w, http.StatusOK, views)
}

// handleUserTasks returns the participant's open tasks. Reminder tasks are
// informational and complete on this fetch; they are still included in the
// response so the client can show them once.
func (h handlers) handleUserTasks(w http.ResponseWriter, r *http.Request) {
	user, ok := h.participantFromQuery(w, r)
	if !ok {
		return
	}
	tasks, err := h.store.ListOpenTasksForUser(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	now := time.Now().UTC()
	views := []taskView{}
	for _, task := range tasks {
		if task.Type == storage.TaskReminder {
			if err := h.store.CompleteTask(r.Context(), task.ID, now); err != nil {
				writeError(w, err)
				return
			}
			task.IsCompleted = true
			task.CompletedAt = &now
		}
		views = append(views, taskToView(task))
	}
	writeJSON(w, http.StatusOK, views)
}

type submitRequest struct {
	ParticipantCode string          `json:"participant_code"`
	QuestionnaireID int64           `json:"questionnaire_id"`
	Answers         json.RawMessage `json:"answers"`
}

// handleUserSubmit records one diary entry and closes any open fill-form
// tasks for the same questionnaire.
func (h handlers) handleUserSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.QuestionnaireID <= 0 {
		writeInvalid(w, "questionnaire id is required")
		return
	}
	if len(req.Answers) == 0 {
		writeInvalid(w, "answers are required")
		return
	}
	user, ok := h.participant(w, r, req.ParticipantCode)
	if !ok {
		return
	}
	q, err := h.store.GetQuestionnaire(r.Context(), req.QuestionnaireID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !q.IsActive {
		writeError(w, errors.New(errors.CodeInvalidArgument, "questionnaire is not active"))
		return
	}

	now := time.Now().UTC()
	entry, err := h.store.CreateEntry(r.Context(), storage.Entry{
		UserID:          user.ID,
		QuestionnaireID: q.ID,
		ProjectID:       user.ProjectID,
		SubmittedAt:     now,
		Answers:         string(req.Answers),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.store.CompleteFillFormTasks(r.Context(), user.ID, q.ID, now); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entryToView(entry))
}
