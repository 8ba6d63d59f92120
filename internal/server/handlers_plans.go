package server

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/meltforce/fitcoach/internal/models"
	"github.com/meltforce/fitcoach/internal/plantext"
)

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	archived := r.URL.Query().Get("archived") == "true"
	list, err := s.store.ListPlans(r.Context(), userIDFromContext(r), archived)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

// planID resolves the {id} parameter, mapping "active" to the concrete active plan ID.
func (s *Server) planID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := parsePlanID(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return uuid.Nil, false
	}
	if id != uuid.Nil {
		return id, true
	}
	p, err := s.plans.Plan(r.Context(), userIDFromContext(r), uuid.Nil)
	if err != nil {
		s.writeStoreError(w, r, err)
		return uuid.Nil, false
	}
	return p.ID, true
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	id, err := parsePlanID(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := s.plans.Plan(r.Context(), userIDFromContext(r), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleNextWorkout(w http.ResponseWriter, r *http.Request) {
	id, err := parsePlanID(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	wo, err := s.plans.NextWorkout(r.Context(), userIDFromContext(r), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wo)
}

type planDaysResponse struct {
	PlanID   uuid.UUID             `json:"plan_id"`
	PlanName string                `json:"plan_name"`
	Days     []plantext.DaySection `json:"days"`
}

func (s *Server) handlePlanDays(w http.ResponseWriter, r *http.Request) {
	id, err := parsePlanID(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	p, days, err := s.plans.Days(r.Context(), userIDFromContext(r), id, queryInt(r, "max_days", 0))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, planDaysResponse{PlanID: p.ID, PlanName: p.Name, Days: days})
}

type createPlanRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	PlanText    string `json:"plan_text"`
	PreviewHour *int   `json:"preview_hour"`
	Activate    bool   `json:"activate"`
}

func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var req createPlanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeErr(w, http.StatusBadRequest, "name is required")
		return
	}
	if !validHour(req.PreviewHour) {
		writeErr(w, http.StatusBadRequest, "preview_hour must be between 0 and 23")
		return
	}

	uid := userIDFromContext(r)
	p, err := s.store.CreatePlan(r.Context(), models.Plan{
		UserID:      uid,
		Name:        req.Name,
		Description: req.Description,
		PlanText:    req.PlanText,
		PreviewHour: req.PreviewHour,
	})
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if req.Activate {
		if p, err = s.store.ActivatePlan(r.Context(), uid, p.ID); err != nil {
			s.writeStoreError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusCreated, p)
}

type planTextRequest struct {
	PlanText string `json:"plan_text"`
}

func (s *Server) handleUpdatePlanText(w http.ResponseWriter, r *http.Request) {
	id, ok := s.planID(w, r)
	if !ok {
		return
	}
	var req planTextRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := s.store.UpdatePlanText(r.Context(), userIDFromContext(r), id, req.PlanText)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type exerciseWeightRequest struct {
	ExerciseName string `json:"exercise_name"`
	NewWeight    string `json:"new_weight"`
}

func (s *Server) handleUpdateExerciseWeight(w http.ResponseWriter, r *http.Request) {
	id, err := parsePlanID(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	var req exerciseWeightRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.ExerciseName) == "" {
		writeErr(w, http.StatusBadRequest, "exercise_name is required")
		return
	}
	res, err := s.plans.UpdateExerciseWeight(r.Context(), userIDFromContext(r), id, req.ExerciseName, req.NewWeight)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type previewHourRequest struct {
	Hour *int `json:"hour"`
}

// handleSetPreviewHour sets or, with a null hour, disables the daily preview.
func (s *Server) handleSetPreviewHour(w http.ResponseWriter, r *http.Request) {
	id, ok := s.planID(w, r)
	if !ok {
		return
	}
	var req previewHourRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	if !validHour(req.Hour) {
		writeErr(w, http.StatusBadRequest, "hour must be between 0 and 23")
		return
	}
	p, err := s.store.SetPreviewHour(r.Context(), userIDFromContext(r), id, req.Hour)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleActivatePlan(w http.ResponseWriter, r *http.Request) {
	id, ok := s.planID(w, r)
	if !ok {
		return
	}
	p, err := s.store.ActivatePlan(r.Context(), userIDFromContext(r), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleArchivePlan(w http.ResponseWriter, r *http.Request) {
	id, ok := s.planID(w, r)
	if !ok {
		return
	}
	p, err := s.store.ArchivePlan(r.Context(), userIDFromContext(r), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
