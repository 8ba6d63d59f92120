package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/meltforce/fitcoach/internal/models"
	"github.com/meltforce/fitcoach/internal/notify"
	"github.com/meltforce/fitcoach/internal/schedule"
	"github.com/meltforce/fitcoach/internal/storage"
)

type reminderConfigResponse struct {
	*models.ReminderConfig
	TelegramConfigured bool  `json:"telegram_configured"`
	Schedule           []int `json:"schedule"`
}

func reminderResponse(cfg *models.ReminderConfig) reminderConfigResponse {
	return reminderConfigResponse{
		ReminderConfig:     cfg,
		TelegramConfigured: cfg.HasTelegram(),
		Schedule:           schedule.ReminderHours(schedule.StartHour(*cfg)),
	}
}

func (s *Server) handleGetReminderConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.store.GetReminderConfig(r.Context(), userIDFromContext(r))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reminderResponse(cfg))
}

type putReminderConfigRequest struct {
	BotToken  string `json:"bot_token"`
	ChatID    string `json:"chat_id"`
	StartHour *int   `json:"start_hour"`
}

func (s *Server) handlePutReminderConfig(w http.ResponseWriter, r *http.Request) {
	var req putReminderConfigRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	req.ChatID = strings.TrimSpace(req.ChatID)
	if req.ChatID == "" {
		writeErr(w, http.StatusBadRequest, "chat_id is required")
		return
	}
	if !validHour(req.StartHour) {
		writeErr(w, http.StatusBadRequest, "start_hour must be between 0 and 23")
		return
	}

	cfg, err := s.store.SaveReminderConfig(r.Context(), models.ReminderConfig{
		UserID:    userIDFromContext(r),
		BotToken:  strings.TrimSpace(req.BotToken),
		ChatID:    req.ChatID,
		StartHour: req.StartHour,
	})
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reminderResponse(cfg))
}

func (s *Server) handleDeleteReminderConfig(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteReminderConfig(r.Context(), userIDFromContext(r)); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type scheduleSlot struct {
	Hour int    `json:"hour"`
	Tier string `json:"tier"`
}

type scheduleResponse struct {
	StartHour int            `json:"start_hour"`
	Slots     []scheduleSlot `json:"slots"`
}

// handleReminderSchedule previews the reminder hours for ?start_hour, or for
// the caller's configured start hour.
func (s *Server) handleReminderSchedule(w http.ResponseWriter, r *http.Request) {
	start := schedule.DefaultStartHour
	if v := r.URL.Query().Get("start_hour"); v != "" {
		h, err := strconv.Atoi(v)
		if err != nil || !validHour(&h) {
			writeErr(w, http.StatusBadRequest, "start_hour must be between 0 and 23")
			return
		}
		start = h
	} else {
		cfg, err := s.store.GetReminderConfig(r.Context(), userIDFromContext(r))
		switch {
		case err == nil:
			start = schedule.StartHour(*cfg)
		case !errors.Is(err, storage.ErrNotFound):
			s.writeStoreError(w, r, err)
			return
		}
	}

	resp := scheduleResponse{StartHour: start}
	for _, h := range schedule.ReminderHours(start) {
		resp.Slots = append(resp.Slots, scheduleSlot{Hour: h, Tier: notify.TierForHour(h).String()})
	}
	writeJSON(w, http.StatusOK, resp)
}
