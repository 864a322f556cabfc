// Package scheduling ties the weekly template, day overrides and the
// customized-dates index to the schedule API.
package scheduling

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"medsched/internal/customdates"
	"medsched/internal/export"
	"medsched/internal/gateway"
	"medsched/internal/metrics"
	"medsched/internal/model"
	"medsched/internal/override"
	"medsched/internal/resolve"
	"medsched/internal/timerange"
	"medsched/internal/weekly"
)

var (
	// ErrBusy is returned when a save for the same target is already in flight.
	ErrBusy = override.ErrBusy
	// ErrNotLoaded is returned before the first successful Load.
	ErrNotLoaded = errors.New("schedule not loaded")
)

// Gateway is the remote schedule store.
type Gateway interface {
	override.Store
	GetWeeklyTemplate(ctx context.Context) (model.FullTemplate, error)
	SaveWeeklyTemplate(ctx context.Context, patch model.ActiveDaysPatch) (*model.TemplateSaveResult, error)
}

// Options configures a Service.
type Options struct {
	Gateway     Gateway
	Logger      *zerolog.Logger
	Location    *time.Location
	HorizonDays int
	// Now defaults to time.Now.
	Now func() time.Time
}

// Service is the configuration engine of one doctor.
type Service struct {
	gw          Gateway
	logger      *zerolog.Logger
	loc         *time.Location
	horizonDays int
	now         func() time.Time
	session     *override.Session

	mu     sync.Mutex
	loaded bool
	stored model.FullTemplate
	work   *weekly.Template
	saving bool
	index  customdates.Index
}

// NewService creates a service; call Load before editing.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		gw:          opts.Gateway,
		logger:      logger,
		loc:         loc,
		horizonDays: opts.HorizonDays,
		now:         now,
		session:     override.NewSession(opts.Gateway),
		work:        weekly.New(),
	}
}

// Load reads the weekly template and refreshes the customized-dates index.
// Only a template failure is returned.
func (s *Service) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.saving {
		s.mu.Unlock()
		return ErrBusy
	}
	s.mu.Unlock()

	tpl, err := s.gw.GetWeeklyTemplate(ctx)
	if err != nil {
		s.gatewayFailed("GetWeeklyTemplate", err)
		return fmt.Errorf("load template: %w", err)
	}

	s.mu.Lock()
	s.stored = tpl.Clone()
	s.work = weekly.FromFull(tpl)
	s.loaded = true
	s.mu.Unlock()

	_ = s.RefreshCustomizedDates(ctx)
	return nil
}

// Template returns the working copy of the weekly template.
func (s *Service) Template() (model.FullTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return model.FullTemplate{}, ErrNotLoaded
	}
	return s.work.Full(), nil
}

// EditTemplate applies fn to a copy of the working template. The copy
// replaces the working template only when fn succeeds.
func (s *Service) EditTemplate(fn func(*weekly.Template) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return ErrNotLoaded
	}

	next := s.work.Clone()
	if err := fn(next); err != nil {
		s.rejected(err)
		return err
	}
	s.work = next
	return nil
}

// SaveTemplate validates the working template and sends its active days.
// Days that are inactive are not sent and keep whatever the server has.
func (s *Service) SaveTemplate(ctx context.Context) (*model.TemplateSaveResult, error) {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return nil, ErrNotLoaded
	}
	if s.saving {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	if err := s.work.Validate(); err != nil {
		s.mu.Unlock()
		s.rejected(err)
		metrics.IncTemplateSave("invalid")
		return nil, err
	}
	snapshot := s.work.Full()
	s.saving = true
	s.mu.Unlock()

	res, err := s.gw.SaveWeeklyTemplate(ctx, snapshot.ActivePatch())

	s.mu.Lock()
	s.saving = false
	if err == nil {
		s.stored = mergeActive(s.stored, snapshot)
	}
	s.mu.Unlock()

	if err != nil {
		s.gatewayFailed("SaveWeeklyTemplate", err)
		metrics.IncTemplateSave("error")
		return nil, fmt.Errorf("save template: %w", err)
	}
	metrics.IncTemplateSave("ok")
	s.logger.Info().Int("active_days", snapshot.ActivePatch().Len()).Msg("weekly template saved")
	return res, nil
}

// Saving reports whether a template save is in flight.
func (s *Service) Saving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saving
}

// OpenOverride starts editing the override of date, seeded from the stored
// override or from the template day.
func (s *Service) OpenOverride(ctx context.Context, date model.Date) error {
	var seed *model.DaySchedule
	s.mu.Lock()
	if s.loaded {
		day := s.stored.Day(date.Weekday())
		seed = &day
	}
	s.mu.Unlock()

	if err := s.session.Open(ctx, date, seed); err != nil {
		if !errors.Is(err, override.ErrSuperseded) {
			s.gatewayFailed("ListOverrides", err)
		}
		return err
	}
	return nil
}

func (s *Service) EditOverride(fn func(*override.Draft) error) error {
	err := s.session.Edit(fn)
	if err != nil {
		s.rejected(err)
	}
	return err
}

// SaveOverride writes the open override. A warning in the result is advisory.
func (s *Service) SaveOverride(ctx context.Context) (*model.OverrideSaveResult, error) {
	date := s.session.State().Date
	res, err := s.session.Save(ctx)
	if err != nil {
		switch {
		case timerange.IsValidation(err):
			s.rejected(err)
			metrics.IncOverrideSave("invalid")
		case gateway.IsGatewayError(err):
			s.gatewayFailed("SaveOverride", err)
			metrics.IncOverrideSave("error")
		}
		return nil, err
	}

	if res.HasWarning() {
		metrics.IncOverrideSave("warning")
		s.logger.Warn().Str("date", date.String()).Str("warning", res.Warning).Msg("override saved with warning")
	} else {
		metrics.IncOverrideSave("ok")
		s.logger.Info().Str("date", date.String()).Msg("override saved")
	}

	_ = s.RefreshCustomizedDates(ctx)
	return res, nil
}

// CloseOverride discards the open draft.
func (s *Service) CloseOverride() error {
	return s.session.Close()
}

func (s *Service) OverrideSession() override.Snapshot {
	return s.session.State()
}

// Resolve returns the schedule governing date: its override when one
// exists, otherwise the weekly template day.
func (s *Service) Resolve(ctx context.Context, date model.Date) (model.EffectiveSchedule, error) {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return model.EffectiveSchedule{}, ErrNotLoaded
	}
	tpl := s.stored.Clone()
	s.mu.Unlock()

	list, err := s.gw.ListOverrides(ctx, model.SingleDate(date))
	if err != nil {
		s.gatewayFailed("ListOverrides", err)
		return model.EffectiveSchedule{}, fmt.Errorf("resolve %s: %w", date, err)
	}
	var found *model.DayOverride
	for i := range list {
		if list[i].Date == date {
			found = &list[i]
			break
		}
	}
	return resolve.Resolve(tpl, date, found), nil
}

// Horizon is the window of dates starting today.
func (s *Service) Horizon() model.Horizon {
	return model.NewHorizon(model.DateOf(s.now().In(s.loc)), s.horizonDays)
}

// CustomizedDates returns the dates of the horizon that have an available override.
func (s *Service) CustomizedDates() customdates.Index {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// RefreshCustomizedDates rebuilds the index. On failure the previous index
// is kept and the error is only logged and returned.
func (s *Service) RefreshCustomizedDates(ctx context.Context) error {
	list, err := s.gw.ListOverrides(ctx, s.Horizon().Query(false))
	if err != nil {
		s.gatewayFailed("ListOverrides", err)
		s.logger.Warn().Err(err).Msg("customized dates not refreshed")
		return err
	}
	idx := customdates.Rebuild(list)

	s.mu.Lock()
	s.index = idx
	s.mu.Unlock()
	return nil
}

// EffectiveHorizon resolves every date of the horizon.
func (s *Service) EffectiveHorizon(ctx context.Context) ([]model.EffectiveSchedule, error) {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return nil, ErrNotLoaded
	}
	tpl := s.stored.Clone()
	s.mu.Unlock()

	h := s.Horizon()
	list, err := s.gw.ListOverrides(ctx, h.Query(true))
	if err != nil {
		s.gatewayFailed("ListOverrides", err)
		return nil, fmt.Errorf("list overrides: %w", err)
	}
	return resolve.ResolveHorizon(tpl, h, list), nil
}

// ExportHorizon writes the effective schedule of the horizon as a spreadsheet.
func (s *Service) ExportHorizon(ctx context.Context, w io.Writer) error {
	days, err := s.EffectiveHorizon(ctx)
	if err != nil {
		return err
	}
	return export.WriteSchedule(w, days)
}

func (s *Service) rejected(err error) {
	if code := timerange.Code(err); code != "" {
		metrics.IncValidationRejection(code)
		s.logger.Debug().Str("code", code).Msg("edit rejected")
	}
}

func (s *Service) gatewayFailed(op string, err error) {
	if !gateway.IsGatewayError(err) {
		return
	}
	metrics.IncGatewayError(op)
	s.logger.Error().Err(err).Str("op", op).Msg("schedule api call failed")
}

// mergeActive mirrors the server upsert: active days replace stored days,
// all other stored days stay.
func mergeActive(stored, sent model.FullTemplate) model.FullTemplate {
	out := stored.Clone()
	for _, day := range sent.ActivePatch().Days() {
		out.Days[day.DayOfWeek] = day.Clone()
	}
	return out
}
