package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/clinarc/ediary/internal/services/diary/routepath"
	"github.com/clinarc/ediary/internal/services/diary/storage/sqlite"
)

const testSuperKey = "super-secret"

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	store, _, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "diary.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	handler, err := NewHandler(Config{SuperAdminKey: testSuperKey, Store: store})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	return handler
}

func doJSON(t *testing.T, handler http.Handler, method, target, adminKey string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	if adminKey != "" {
		req.Header.Set(adminKeyHeader, adminKey)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func createProject(t *testing.T, handler http.Handler, name string) projectView {
	t.Helper()
	rec := doJSON(t, handler, http.MethodPost, routepath.AdminProjects, testSuperKey, map[string]string{"name": name})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create project status = %d, body %s", rec.Code, rec.Body)
	}
	return decodeBody[projectView](t, rec)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t)
	rec := doJSON(t, handler, http.MethodGet, routepath.Health, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
}

func TestAdminPlaneRejectsMissingAndUnknownKeys(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t)
	for _, key := range []string{"", "bogus"} {
		rec := doJSON(t, handler, http.MethodGet, routepath.AdminProjects, key, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("list projects with key %q status = %d, want 401", key, rec.Code)
		}
	}
}

func TestCreateProjectRequiresSuperAdmin(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t)
	ring := createProject(t, handler, "Ring Study")
	if len(ring.AdminKey) != 32 {
		t.Fatalf("project admin key length = %d, want 32", len(ring.AdminKey))
	}

	rec := doJSON(t, handler, http.MethodPost, routepath.AdminProjects, ring.AdminKey, map[string]string{"name": "Halo Study"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("tenant create project status = %d, want 403", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, routepath.AdminProjects, testSuperKey, map[string]string{"name": "Ring Study"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate project status = %d, want 409", rec.Code)
	}
}

func TestTenantScopeIsolation(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t)
	ring := createProject(t, handler, "Ring Study")
	halo := createProject(t, handler, "Halo Study")

	rec := doJSON(t, handler, http.MethodGet, routepath.AdminProjects, ring.AdminKey, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("tenant list projects status = %d", rec.Code)
	}
	visible := decodeBody[[]projectView](t, rec)
	if len(visible) != 1 || visible[0].ID != ring.ID {
		t.Fatalf("tenant sees projects %+v, want only its own", visible)
	}

	rec = doJSON(t, handler, http.MethodGet, fmt.Sprintf("/api/admin/projects/%d", halo.ID), ring.AdminKey, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("cross-tenant project get status = %d, want 403", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, fmt.Sprintf("/api/admin/projects/%d", ring.ID), ring.AdminKey, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("own project get status = %d, want 200", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, fmt.Sprintf("/api/admin/projects/%d", halo.ID), testSuperKey, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("super project get status = %d, want 200", rec.Code)
	}
}

func TestCrossTenantQuestionAndAssignmentMutations(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t)
	ring := createProject(t, handler, "Ring Study")
	halo := createProject(t, handler, "Halo Study")

	rec := doJSON(t, handler, http.MethodPost, routepath.AdminQuestionnaires, halo.AdminKey, map[string]any{
		"name":       "Halo Daily",
		"is_active":  true,
		"project_id": halo.ID,
		"questions": []map[string]any{
			{"text": "How do you feel?", "type": "text", "required": true},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create questionnaire status = %d, body %s", rec.Code, rec.Body)
	}
	questionnaire := decodeBody[questionnaireView](t, rec)
	question := questionnaire.Questions[0]

	rec = doJSON(t, handler, http.MethodPost, routepath.AdminUsers, halo.AdminKey, map[string]any{
		"email":      "pt-100@example.org",
		"name":       "Halo Participant",
		"project_id": halo.ID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create user status = %d, body %s", rec.Code, rec.Body)
	}
	user := decodeBody[userView](t, rec)

	rec = doJSON(t, handler, http.MethodPost, routepath.AdminAssignments, halo.AdminKey, map[string]any{
		"user_id":          user.ID,
		"questionnaire_id": questionnaire.ID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create assignment status = %d, body %s", rec.Code, rec.Body)
	}
	assignment := decodeBody[assignmentView](t, rec)

	rec = doJSON(t, handler, http.MethodPut, fmt.Sprintf("/api/admin/questions/%d", question.ID), ring.AdminKey, map[string]any{
		"text":     "Hijacked",
		"type":     "text",
		"required": true,
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("cross-tenant question update status = %d, want 403", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodDelete, fmt.Sprintf("/api/admin/questions/%d", question.ID), ring.AdminKey, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("cross-tenant question delete status = %d, want 403", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodDelete, fmt.Sprintf("/api/admin/assignments/%d", assignment.ID), ring.AdminKey, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("cross-tenant assignment delete status = %d, want 403", rec.Code)
	}

	// The owning tenant still can.
	rec = doJSON(t, handler, http.MethodDelete, fmt.Sprintf("/api/admin/questions/%d", question.ID), halo.AdminKey, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("own question delete status = %d, want 204", rec.Code)
	}
	rec = doJSON(t, handler, http.MethodDelete, fmt.Sprintf("/api/admin/assignments/%d", assignment.ID), halo.AdminKey, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("own assignment delete status = %d, want 204", rec.Code)
	}
}

func TestUserScopedToProject(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t)
	ring := createProject(t, handler, "Ring Study")
	halo := createProject(t, handler, "Halo Study")

	rec := doJSON(t, handler, http.MethodPost, routepath.AdminUsers, ring.AdminKey, map[string]any{
		"email":      "pt-001@example.org",
		"name":       "Participant One",
		"project_id": ring.ID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create user status = %d, body %s", rec.Code, rec.Body)
	}
	user := decodeBody[userView](t, rec)

	rec = doJSON(t, handler, http.MethodPost, routepath.AdminUsers, ring.AdminKey, map[string]any{
		"email":      "pt-002@example.org",
		"name":       "Participant Two",
		"project_id": halo.ID,
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("cross-tenant create user status = %d, want 403", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, fmt.Sprintf("/api/admin/users/%d", user.ID), halo.AdminKey, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("cross-tenant get user status = %d, want 403", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, routepath.AdminUsers, halo.AdminKey, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list users status = %d", rec.Code)
	}
	if users := decodeBody[[]userView](t, rec); len(users) != 0 {
		t.Fatalf("cross-tenant list users = %+v, want empty", users)
	}
}

func TestCreateQuestionnaireValidation(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t)
	rec := doJSON(t, handler, http.MethodPost, routepath.AdminQuestionnaires, testSuperKey, map[string]any{
		"name": "Broken",
		"questions": []map[string]any{
			{"text": "?", "type": "slider"},
		},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid question type status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, routepath.AdminQuestionnaires, testSuperKey, map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing name status = %d, want 400", rec.Code)
	}
}

func TestParticipantFlow(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t)
	ring := createProject(t, handler, "Ring Study")

	rec := doJSON(t, handler, http.MethodPost, routepath.AdminUsers, testSuperKey, map[string]any{
		"email":            "pt-001@example.org",
		"name":             "Participant One",
		"participant_code": "PT-001",
		"project_id":       ring.ID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create user status = %d, body %s", rec.Code, rec.Body)
	}
	user := decodeBody[userView](t, rec)

	rec = doJSON(t, handler, http.MethodPost, routepath.AdminQuestionnaires, testSuperKey, map[string]any{
		"name":       "Daily Symptoms",
		"is_active":  true,
		"project_id": ring.ID,
		"questions": []map[string]any{
			{"text": "How do you feel?", "type": "text", "required": true},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create questionnaire status = %d, body %s", rec.Code, rec.Body)
	}
	questionnaire := decodeBody[questionnaireView](t, rec)

	rec = doJSON(t, handler, http.MethodPost, routepath.AdminAssignments, testSuperKey, map[string]any{
		"user_id":          user.ID,
		"questionnaire_id": questionnaire.ID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create assignment status = %d, body %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, handler, http.MethodPost, routepath.AdminTasks, testSuperKey, map[string]any{
		"user_id":          user.ID,
		"questionnaire_id": questionnaire.ID,
		"type":             "fill_form",
		"title":            "Fill in Daily Symptoms",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create fill-form task status = %d, body %s", rec.Code, rec.Body)
	}
	rec = doJSON(t, handler, http.MethodPost, routepath.AdminTasks, testSuperKey, map[string]any{
		"user_id": user.ID,
		"type":    "reminder",
		"title":   "Visit the clinic",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create reminder task status = %d, body %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, handler, http.MethodGet, routepath.UserQuestionnaires+"?code=PT-001", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("user questionnaires status = %d, body %s", rec.Code, rec.Body)
	}
	assigned := decodeBody[[]questionnaireView](t, rec)
	if len(assigned) != 1 || assigned[0].ID != questionnaire.ID {
		t.Fatalf("user questionnaires = %+v, want the assigned one", assigned)
	}
	if assigned[0].AssignmentKey != "" {
		t.Fatal("participant response leaked the assignment key")
	}

	rec = doJSON(t, handler, http.MethodGet, routepath.UserTasks+"?code=PT-001", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("user tasks status = %d, body %s", rec.Code, rec.Body)
	}
	tasks := decodeBody[[]taskView](t, rec)
	if len(tasks) != 2 {
		t.Fatalf("open tasks = %d, want fill-form plus reminder", len(tasks))
	}

	// Reminders complete on fetch; only the fill-form task stays open.
	rec = doJSON(t, handler, http.MethodGet, routepath.UserTasks+"?code=PT-001", "", nil)
	tasks = decodeBody[[]taskView](t, rec)
	if len(tasks) != 1 || tasks[0].Type != "fill_form" {
		t.Fatalf("second fetch tasks = %+v, want only fill-form", tasks)
	}

	rec = doJSON(t, handler, http.MethodPost, routepath.UserSubmit, "", map[string]any{
		"participant_code": "PT-001",
		"questionnaire_id": questionnaire.ID,
		"answers":          map[string]string{"1": "Feeling fine"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit status = %d, body %s", rec.Code, rec.Body)
	}
	entry := decodeBody[entryView](t, rec)
	if entry.ProjectID != ring.ID {
		t.Fatalf("entry project = %d, want %d", entry.ProjectID, ring.ID)
	}

	rec = doJSON(t, handler, http.MethodGet, routepath.UserTasks+"?code=PT-001", "", nil)
	if tasks = decodeBody[[]taskView](t, rec); len(tasks) != 0 {
		t.Fatalf("tasks after submit = %+v, want none", tasks)
	}

	rec = doJSON(t, handler, http.MethodGet, routepath.AdminEntries, ring.AdminKey, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list entries status = %d", rec.Code)
	}
	if entries := decodeBody[[]entryView](t, rec); len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
}

func TestSubmitValidation(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t)
	rec := doJSON(t, handler, http.MethodPost, routepath.UserSubmit, "", map[string]any{
		"participant_code": "PT-404",
		"questionnaire_id": 1,
		"answers":          map[string]string{"1": "x"},
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("submit for unknown participant status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, routepath.UserSubmit, "", map[string]any{
		"participant_code": "PT-404",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("submit without questionnaire status = %d, want 400", rec.Code)
	}
}
