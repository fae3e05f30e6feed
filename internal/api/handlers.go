package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"taskdeck/internal/auth"
	"taskdeck/internal/task"
)

const maxBodyBytes = 1 << 20

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type messageResponse struct {
	Message string     `json:"message"`
	Task    *task.Task `json:"task,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decode(w, r, &req) {
		return
	}
	id, err := s.auth.Register(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrPasswordTooLong):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrEmailTaken):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		s.logger.Error("register failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
	default:
		writeJSON(w, http.StatusCreated, id)
	}
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decode(w, r, &req) {
		return
	}
	pair, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decode(w, r, &req) {
		return
	}
	pair, err := s.auth.Refresh(r.Context(), req.RefreshToken)
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken) || errors.Is(err, auth.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("refresh failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	user, err := s.auth.User(r.Context(), id.ID)
	if err != nil {
		s.writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	tasks, err := s.tasks.List(r.Context(), id.ID)
	if err != nil {
		s.writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var in task.CreateInput
	if !decode(w, r, &in) {
		return
	}
	id, _ := identityFrom(r.Context())
	created, err := s.tasks.Create(r.Context(), id.ID, in)
	if err != nil {
		s.writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Task added successfully!", Task: &created})
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathID(w, r)
	if !ok {
		return
	}
	var p task.Patch
	if !decode(w, r, &p) {
		return
	}
	id, _ := identityFrom(r.Context())
	if err := s.tasks.Update(r.Context(), id.ID, taskID, p); err != nil {
		s.writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Task updated successfully!"})
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathID(w, r)
	if !ok {
		return
	}
	id, _ := identityFrom(r.Context())
	if err := s.tasks.Delete(r.Context(), id.ID, taskID); err != nil {
		s.writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Task deleted successfully!"})
}

// writeTaskError maps the task error classes onto status codes.
func (s *Server) writeTaskError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, task.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, task.ErrAuth):
		writeError(w, http.StatusUnauthorized, "Invalid or expired token")
	case errors.Is(err, task.ErrNotFound):
		writeError(w, http.StatusNotFound, "Task not found")
	default:
		s.logger.Error("task request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["taskID"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
