package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"medsched/internal/events"
	"medsched/internal/gateway"
	"medsched/internal/model"
	"medsched/internal/timerange"
)

// handleGetSchedule returns all seven days of the weekly template.
// GET /api/doctors/{doctorID}/schedule
func (s *HTTPServer) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	doctorID := chi.URLParam(r, "doctorID")
	tpl, err := s.store.GetWeeklySchedule(r.Context(), doctorID)
	if err != nil {
		s.log.Error().Err(err).Str("doctor_id", doctorID).Msg("failed to load schedule")
		writeError(w, http.StatusInternalServerError, "failed to load schedule")
		return
	}
	writeJSON(w, http.StatusOK, gateway.ScheduleBody{Schedule: tpl.List()})
}

// handlePutSchedule upserts the received days. Only active days may be sent;
// days not in the body keep their stored values, so nothing is ever turned off.
// PUT /api/doctors/{doctorID}/schedule
func (s *HTTPServer) handlePutSchedule(w http.ResponseWriter, r *http.Request) {
	doctorID := chi.URLParam(r, "doctorID")

	var body gateway.ScheduleBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	days, err := activeDays(body.Schedule)
	if err != nil {
		writeErrorDetails(w, http.StatusBadRequest, "invalid schedule", err.Error())
		return
	}
	if err := s.store.UpsertWeeklyDays(r.Context(), doctorID, days); err != nil {
		s.log.Error().Err(err).Str("doctor_id", doctorID).Msg("failed to save schedule")
		writeError(w, http.StatusInternalServerError, "failed to save schedule")
		return
	}

	s.log.Info().Str("doctor_id", doctorID).Int("days", len(days)).Msg("weekly schedule updated")
	s.publish(events.TypeTemplateSaved, doctorID, events.DatesPayload{})
	writeJSON(w, http.StatusOK, gateway.MessageBody{Message: "Schedule updated successfully"})
}

// activeDays turns a request body into validated active days, filling a
// missing slot duration with the default.
func activeDays(received []model.DaySchedule) ([]model.DaySchedule, error) {
	patch, err := model.ParseActiveDaysPatch(received)
	if err != nil {
		return nil, err
	}
	days := patch.Days()
	for i := range days {
		d := &days[i]
		if d.SlotDuration == 0 {
			d.SlotDuration = model.DefaultScheduleConfig.SlotDuration
		}
		if err := timerange.ValidateDay(d.StartTime, d.EndTime, d.SlotDuration, d.BreakTimes); err != nil {
			return nil, fmt.Errorf("day_of_week %d: %w", d.DayOfWeek, err)
		}
	}
	return days, nil
}

func (s *HTTPServer) publish(eventType, doctorID string, payload any) {
	if err := s.bus.PublishJSON(eventType, doctorID, payload); err != nil {
		s.log.Warn().Err(err).Str("event", eventType).Msg("event handler failed")
	}
}
