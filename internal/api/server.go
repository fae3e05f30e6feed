// Package api serves the task store and the authentication endpoints over
// HTTP/JSON.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"taskdeck/internal/auth"
	"taskdeck/internal/backend"
	"taskdeck/internal/task"
)

// Authenticator is the part of auth.Service the API needs.
type Authenticator interface {
	Register(ctx context.Context, email, password string) (auth.Identity, error)
	Login(ctx context.Context, email, password string) (auth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error)
	Resolve(ctx context.Context, accessToken string) (auth.Identity, error)
	User(ctx context.Context, id string) (auth.Identity, error)
}

// TaskService is the part of backend.Service the API needs.
type TaskService interface {
	List(ctx context.Context, owner string) ([]task.Task, error)
	Create(ctx context.Context, owner string, in task.CreateInput) (task.Task, error)
	Update(ctx context.Context, owner string, id int64, p task.Patch) error
	Delete(ctx context.Context, owner string, id int64) error
}

var (
	_ Authenticator = (*auth.Service)(nil)
	_ TaskService   = (*backend.Service)(nil)
)

type Server struct {
	auth   Authenticator
	tasks  TaskService
	logger *slog.Logger
}

func NewServer(a Authenticator, tasks TaskService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{auth: a, tasks: tasks, logger: logger}
}

// Handler returns the routed handler with logging and panic recovery.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(s.recoverPanics, s.logRequests)

	router.HandleFunc("/health", s.health).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/register", s.register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", s.login).Methods(http.MethodPost)
	api.HandleFunc("/auth/refresh", s.refresh).Methods(http.MethodPost)

	private := api.NewRoute().Subrouter()
	private.Use(s.requireAuth)
	private.HandleFunc("/me", s.me).Methods(http.MethodGet)
	private.HandleFunc("/tasks", s.listTasks).Methods(http.MethodGet)
	private.HandleFunc("/tasks", s.createTask).Methods(http.MethodPost)
	private.HandleFunc("/tasks/{taskID:[0-9]+}", s.updateTask).Methods(http.MethodPatch)
	private.HandleFunc("/tasks/{taskID:[0-9]+}", s.deleteTask).Methods(http.MethodDelete)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return router
}
