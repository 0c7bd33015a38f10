// Package app hosts the diary HTTP surface and lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/clinarc/ediary/internal/platform/timeouts"
	"github.com/clinarc/ediary/internal/services/diary/auth"
	"github.com/clinarc/ediary/internal/services/diary/routepath"
	"github.com/clinarc/ediary/internal/services/diary/storage"
)

// Store is the persistence surface the handlers consume.
type Store interface {
	storage.ProjectStore
	storage.UserStore
	storage.QuestionnaireStore
	storage.AssignmentStore
	storage.EntryStore
	storage.TaskStore
}

// Config defines startup inputs for the diary service.
type Config struct {
	HTTPAddr      string
	SuperAdminKey string
	Store         Store
}

// Server hosts the diary HTTP surface.
type Server struct {
	httpServer *http.Server
}

type handlers struct {
	store    Store
	resolver *auth.Resolver
}

// NewHandler builds the root handler with admin and participant routes wired.
func NewHandler(cfg Config) (http.Handler, error) {
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	h := handlers{
		store:    cfg.Store,
		resolver: auth.NewResolver(cfg.Store, cfg.SuperAdminKey),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(http.MethodGet+" "+routepath.Health, h.handleHealth)

	mux.HandleFunc(http.MethodGet+" "+routepath.AdminProjects, h.admin(h.handleListProjects))
	mux.HandleFunc(http.MethodPost+" "+routepath.AdminProjects, h.admin(h.handleCreateProject))
	mux.HandleFunc(http.MethodGet+" "+routepath.AdminProjectPattern, h.admin(h.handleGetProject))

	mux.HandleFunc(http.MethodGet+" "+routepath.AdminUsers, h.admin(h.handleListUsers))
	mux.HandleFunc(http.MethodPost+" "+routepath.AdminUsers, h.admin(h.handleCreateUser))
	mux.HandleFunc(http.MethodGet+" "+routepath.AdminUserPattern, h.admin(h.handleGetUser))
	mux.HandleFunc(http.MethodPut+" "+routepath.AdminUserPattern, h.admin(h.handleUpdateUser))
	mux.HandleFunc(http.MethodDelete+" "+routepath.AdminUserPattern, h.admin(h.handleDeleteUser))

	mux.HandleFunc(http.MethodGet+" "+routepath.AdminQuestionnaires, h.admin(h.handleListQuestionnaires))
	mux.HandleFunc(http.MethodPost+" "+routepath.AdminQuestionnaires, h.admin(h.handleCreateQuestionnaire))
	mux.HandleFunc(http.MethodGet+" "+routepath.AdminQuestionnairePattern, h.admin(h.handleGetQuestionnaire))
	mux.HandleFunc(http.MethodPut+" "+routepath.AdminQuestionnairePattern, h.admin(h.handleUpdateQuestionnaire))
	mux.HandleFunc(http.MethodDelete+" "+routepath.AdminQuestionnairePattern, h.admin(h.handleDeleteQuestionnaire))
	mux.HandleFunc(http.MethodPost+" "+routepath.AdminQuestionnaireQuestionsPattern, h.admin(h.handleAddQuestion))
	mux.HandleFunc(http.MethodPut+" "+routepath.AdminQuestionPattern, h.admin(h.handleUpdateQuestion))
	mux.HandleFunc(http.MethodDelete+" "+routepath.AdminQuestionPattern, h.admin(h.handleDeleteQuestion))

	mux.HandleFunc(http.MethodGet+" "+routepath.AdminAssignments, h.admin(h.handleListAssignments))
	mux.HandleFunc(http.MethodPost+" "+routepath.AdminAssignments, h.admin(h.handleCreateAssignment))
	mux.HandleFunc(http.MethodDelete+" "+routepath.AdminAssignmentPattern, h.admin(h.handleDeleteAssignment))

	mux.HandleFunc(http.MethodGet+" "+routepath.AdminEntries, h.admin(h.handleListEntries))
	mux.HandleFunc(http.MethodPost+" "+routepath.AdminTasks, h.admin(h.handleCreateTask))

	mux.HandleFunc(http.MethodGet+" "+routepath.UserQuestionnaires, h.handleUserQuestionnaires)
	mux.HandleFunc(http.MethodGet+" "+routepath.UserTasks, h.handleUserTasks)
	mux.HandleFunc(http.MethodPost+" "+routepath.UserSubmit, h.handleUserSubmit)

	return traceRequests(mux), nil
}

// NewServer validates config and constructs a diary server.
func NewServer(cfg Config) (*Server, error) {
	httpAddr := strings.TrimSpace(cfg.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	handler, err := NewHandler(cfg)
	if err != nil {
		return nil, fmt.Errorf("compose diary handler: %w", err)
	}
	return &Server{
		httpServer: &http.Server{
			Addr:              httpAddr,
			Handler:           handler,
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
	}, nil
}

// ListenAndServe serves HTTP traffic until context cancellation or server stop.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("diary server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown diary http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve diary http: %w", err)
	}
}

// Close closes open server resources.
func (s *Server) Close() {
	if s == nil || s.httpServer == nil {
		return
	}
	_ = s.httpServer.Close()
}

func (h handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
