// Package routepath stores canonical HTTP paths for the diary service.
package routepath

const (
	Health = "/healthz"

	AdminProjects       = "/api/admin/projects"
	AdminProjectPattern = "/api/admin/projects/{projectID}"

	AdminUsers       = "/api/admin/users"
	AdminUserPattern = "/api/admin/users/{userID}"

	AdminQuestionnaires                = "/api/admin/questionnaires"
	AdminQuestionnairePattern          = "/api/admin/questionnaires/{questionnaireID}"
	AdminQuestionnaireQuestionsPattern = "/api/admin/questionnaires/{questionnaireID}/questions"
	AdminQuestionPattern               = "/api/admin/questions/{questionID}"

	AdminAssignments       = "/api/admin/assignments"
	AdminAssignmentPattern = "/api/admin/assignments/{assignmentID}"

	AdminEntries = "/api/admin/entries"
	AdminTasks   = "/api/admin/tasks"

	UserQuestionnaires = "/api/user/questionnaires"
	UserTasks          = "/api/user/tasks"
	UserSubmit         = "/api/user/submit"
)
