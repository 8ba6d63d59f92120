package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleSchedulerLast(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		writeErr(w, http.StatusServiceUnavailable, "scheduler disabled")
		return
	}
	writeJSON(w, http.StatusOK, s.scheduler.Last())
}

// handleSchedulerRun runs one tick kind, or all of them, at ?at (RFC 3339) or now.
func (s *Server) handleSchedulerRun(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		writeErr(w, http.StatusServiceUnavailable, "scheduler disabled")
		return
	}

	at := s.now()
	if v := r.URL.Query().Get("at"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeErr(w, http.StatusBadRequest, "invalid 'at' time, use RFC 3339")
			return
		}
		at = t
	}

	kind := chi.URLParam(r, "kind")
	if kind == "all" {
		writeJSON(w, http.StatusOK, s.scheduler.RunAll(r.Context(), at))
		return
	}
	report, err := s.scheduler.Run(r.Context(), kind, at)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleDeliveries(w http.ResponseWriter, r *http.Request) {
	if s.deliveries == nil {
		writeErr(w, http.StatusServiceUnavailable, "delivery journal disabled")
		return
	}
	entries, err := s.deliveries.Recent(r.Context(), queryInt(r, "limit", 50))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(entries))
}
