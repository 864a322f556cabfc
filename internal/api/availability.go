package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"medsched/internal/database"
	"medsched/internal/events"
	"medsched/internal/gateway"
	"medsched/internal/model"
	"medsched/internal/timerange"
)

// MaxRangeDays bounds the range of an availability read.
const MaxRangeDays = 366

// handleListAvailability returns overrides in a date range.
// GET /api/doctors/{doctorID}/availability?start_date=YYYY-MM-DD&end_date=YYYY-MM-DD&include_unavailable=true
func (s *HTTPServer) handleListAvailability(w http.ResponseWriter, r *http.Request) {
	doctorID := chi.URLParam(r, "doctorID")
	q := r.URL.Query()

	if q.Get(gateway.ParamStartDate) == "" || q.Get(gateway.ParamEndDate) == "" {
		writeError(w, http.StatusBadRequest, "start_date and end_date are required")
		return
	}
	from, err := model.ParseDate(q.Get(gateway.ParamStartDate))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_date format; expected YYYY-MM-DD")
		return
	}
	to, err := model.ParseDate(q.Get(gateway.ParamEndDate))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end_date format; expected YYYY-MM-DD")
		return
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "start_date must be before or equal to end_date")
		return
	}
	if from.AddDays(MaxRangeDays).Before(to) {
		writeError(w, http.StatusBadRequest, "date range too large")
		return
	}

	includeUnavailable := false
	if raw := q.Get(gateway.ParamIncludeUnavailable); raw != "" {
		if includeUnavailable, err = strconv.ParseBool(raw); err != nil {
			writeError(w, http.StatusBadRequest, "include_unavailable must be true or false")
			return
		}
	}

	list, err := s.store.ListOverrides(r.Context(), doctorID, model.OverrideQuery{
		From: from, To: to, IncludeUnavailable: includeUnavailable,
	})
	if err != nil {
		s.log.Error().Err(err).Str("doctor_id", doctorID).Msg("failed to list availability")
		writeError(w, http.StatusInternalServerError, "failed to list availability")
		return
	}
	writeJSON(w, http.StatusOK, gateway.OverridesBody{Overrides: list})
}

// handleCreateAvailability stores a new override.
// POST /api/doctors/{doctorID}/availability
func (s *HTTPServer) handleCreateAvailability(w http.ResponseWriter, r *http.Request) {
	doctorID := chi.URLParam(r, "doctorID")
	o, ok := s.decodeOverride(w, r)
	if !ok {
		return
	}

	saved, err := s.store.CreateOverride(r.Context(), doctorID, o)
	switch {
	case errors.Is(err, database.ErrDuplicateDate):
		writeErrorDetails(w, http.StatusConflict, "Availability already exists for this date", o.Date.String())
		return
	case err != nil:
		s.log.Error().Err(err).Str("doctor_id", doctorID).Str("date", o.Date.String()).Msg("failed to create availability")
		writeError(w, http.StatusInternalServerError, "failed to create availability")
		return
	}

	s.respondSaved(w, r, http.StatusCreated, doctorID, "Availability created", saved)
}

// handleUpdateAvailability replaces an override.
// PUT /api/doctors/{doctorID}/availability/{id}
func (s *HTTPServer) handleUpdateAvailability(w http.ResponseWriter, r *http.Request) {
	doctorID := chi.URLParam(r, "doctorID")
	id := chi.URLParam(r, "id")
	o, ok := s.decodeOverride(w, r)
	if !ok {
		return
	}

	saved, err := s.store.UpdateOverride(r.Context(), doctorID, id, o)
	switch {
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, "availability not found")
		return
	case errors.Is(err, database.ErrDuplicateDate):
		writeErrorDetails(w, http.StatusConflict, "Availability already exists for this date", o.Date.String())
		return
	case err != nil:
		s.log.Error().Err(err).Str("doctor_id", doctorID).Str("id", id).Msg("failed to update availability")
		writeError(w, http.StatusInternalServerError, "failed to update availability")
		return
	}

	s.respondSaved(w, r, http.StatusOK, doctorID, "Availability updated", saved)
}

func (s *HTTPServer) decodeOverride(w http.ResponseWriter, r *http.Request) (model.DayOverride, bool) {
	var o model.DayOverride
	if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return o, false
	}
	if o.Date.IsZero() {
		writeError(w, http.StatusBadRequest, "date is required")
		return o, false
	}
	if o.SlotDuration == 0 {
		o.SlotDuration = model.DefaultScheduleConfig.SlotDuration
	}
	if !o.IsAvailable && o.StartTime == 0 && o.EndTime == 0 {
		o.StartTime = model.DefaultScheduleConfig.StartTime
		o.EndTime = model.DefaultScheduleConfig.EndTime
	}
	if o.IsAvailable {
		if err := timerange.ValidateDay(o.StartTime, o.EndTime, o.SlotDuration, o.BreakTimes); err != nil {
			writeErrorDetails(w, http.StatusBadRequest, "invalid availability", err.Error())
			return o, false
		}
	}
	if o.BreakTimes == nil {
		o.BreakTimes = []model.BreakInterval{}
	}
	return o, true
}

func (s *HTTPServer) respondSaved(w http.ResponseWriter, r *http.Request, status int, doctorID, msg string, saved model.DayOverride) {
	res := model.OverrideSaveResult{Message: msg, Availability: &saved}

	booked, err := s.store.BookedAppointments(r.Context(), doctorID, saved.Date)
	if err != nil {
		s.log.Warn().Err(err).Str("date", saved.Date.String()).Msg("appointment check skipped")
	} else {
		res.Warning = appointmentWarning(saved, booked)
	}

	s.log.Info().
		Str("doctor_id", doctorID).
		Str("date", saved.Date.String()).
		Bool("available", saved.IsAvailable).
		Bool("warning", res.Warning != "").
		Msg("availability saved")
	s.publish(events.TypeOverrideSaved, doctorID, events.DatesPayload{Dates: []string{saved.Date.String()}})
	writeJSON(w, status, res)
}
