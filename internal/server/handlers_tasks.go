package server

import (
	"net/http"
	"strings"

	"github.com/meltforce/fitcoach/internal/daily"
)

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.tasks.Tasks(r.Context(), userIDFromContext(r), s.now())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(tasks))
}

func (s *Server) handleIncompleteTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.tasks.IncompleteTasks(r.Context(), userIDFromContext(r), s.now())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(tasks))
}

type createTaskRequest struct {
	Title string `json:"title"`
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeErr(w, http.StatusBadRequest, "title is required")
		return
	}
	task, err := s.tasks.Create(r.Context(), userIDFromContext(r), req.Title)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleToggleTask(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	task, err := s.tasks.Toggle(r.Context(), userIDFromContext(r), id, s.now())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.tasks.Delete(r.Context(), userIDFromContext(r), id); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResetTasks(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromContext(r)
	if err := s.tasks.ResetNow(r.Context(), uid, s.now()); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	tasks, err := s.tasks.Tasks(r.Context(), uid, s.now())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(tasks))
}

type taskStatsResponse struct {
	Tasks   []daily.TaskStats `json:"tasks"`
	Summary daily.Summary     `json:"summary"`
}

func (s *Server) handleTaskStats(w http.ResponseWriter, r *http.Request) {
	stats, summary, err := s.tasks.Stats(r.Context(), userIDFromContext(r), s.now())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, taskStatsResponse{Tasks: nonNil(stats), Summary: summary})
}

func (s *Server) handleSingleTaskStats(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	st, err := s.tasks.TaskStats(r.Context(), userIDFromContext(r), id, s.now())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleTaskHistory(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 30)
	records, err := s.tasks.History(r.Context(), userIDFromContext(r), days, s.now())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(records))
}

// nonNil makes empty lists encode as [] rather than null.
func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
