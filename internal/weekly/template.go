// Package weekly holds the doctor's recurring weekly template while it is being edited.
package weekly

import (
	"errors"
	"fmt"

	"medsched/internal/model"
	"medsched/internal/timerange"
)

var (
	ErrUnknownDay  = errors.New("unknown day of week")
	ErrNoSuchBreak = errors.New("no such break")
)

// Template is a working draft of the seven day schedules.
// Every operation either succeeds or leaves the day exactly as it was.
type Template struct {
	full model.FullTemplate
}

// New returns a template with all days inactive.
func New() *Template {
	return &Template{full: model.NewFullTemplate()}
}

// FromFull starts a draft from a loaded template.
func FromFull(full model.FullTemplate) *Template {
	return &Template{full: full.Clone()}
}

// Full returns a deep copy of the draft.
func (t *Template) Full() model.FullTemplate {
	return t.full.Clone()
}

// Clone returns an independent draft.
func (t *Template) Clone() *Template {
	return FromFull(t.full)
}

// Day returns a copy of one day.
func (t *Template) Day(dow int) (model.DaySchedule, error) {
	if !model.ValidDay(dow) {
		return model.DaySchedule{}, fmt.Errorf("%w: %d", ErrUnknownDay, dow)
	}
	return t.full.Days[dow].Clone(), nil
}

func (t *Template) day(dow int) (*model.DaySchedule, error) {
	if !model.ValidDay(dow) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownDay, dow)
	}
	return &t.full.Days[dow], nil
}

// ToggleDay flips the active flag. Hours and breaks are kept so that
// re-enabling a day restores its previous configuration. A day is only
// enabled when that configuration is valid.
func (t *Template) ToggleDay(dow int) error {
	d, err := t.day(dow)
	if err != nil {
		return err
	}
	return setActive(d, !d.IsActive)
}

// SetActive sets the active flag explicitly.
func (t *Template) SetActive(dow int, active bool) error {
	d, err := t.day(dow)
	if err != nil {
		return err
	}
	return setActive(d, active)
}

func setActive(d *model.DaySchedule, active bool) error {
	if active && !d.IsActive {
		if err := timerange.ValidateDay(d.StartTime, d.EndTime, d.SlotDuration, d.BreakTimes); err != nil {
			return fmt.Errorf("%s: %w", d.DayName, err)
		}
	}
	d.IsActive = active
	return nil
}

// SetWindow changes working hours. Existing breaks must still fit the new
// window, otherwise the change is rejected.
func (t *Template) SetWindow(dow int, start, end model.Clock) error {
	d, err := t.day(dow)
	if err != nil {
		return err
	}
	if err := timerange.ValidateWindow(start, end); err != nil {
		return err
	}
	if err := timerange.ValidateBreaks(start, end, d.BreakTimes); err != nil {
		return fmt.Errorf("existing breaks do not fit %s-%s: %w", start, end, err)
	}
	d.StartTime, d.EndTime = start, end
	return nil
}

func (t *Template) SetSlotDuration(dow int, duration model.SlotDuration) error {
	d, err := t.day(dow)
	if err != nil {
		return err
	}
	if err := timerange.ValidateSlotDuration(duration); err != nil {
		return err
	}
	d.SlotDuration = duration
	return nil
}

// AddBreak appends a break after validating it against the day.
func (t *Template) AddBreak(dow int, candidate model.BreakInterval) error {
	d, err := t.day(dow)
	if err != nil {
		return err
	}
	if err := timerange.ValidateBreak(candidate, d.StartTime, d.EndTime, d.BreakTimes); err != nil {
		return err
	}
	d.BreakTimes = append(model.CloneBreaks(d.BreakTimes), candidate)
	return nil
}

// RemoveBreak drops the break at index.
func (t *Template) RemoveBreak(dow, index int) error {
	d, err := t.day(dow)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(d.BreakTimes) {
		return fmt.Errorf("%w: day %d index %d", ErrNoSuchBreak, dow, index)
	}
	breaks := make([]model.BreakInterval, 0, len(d.BreakTimes)-1)
	breaks = append(breaks, d.BreakTimes[:index]...)
	d.BreakTimes = append(breaks, d.BreakTimes[index+1:]...)
	return nil
}

// CopyToWeekdays copies the source day's configuration onto Monday..Friday.
// Saturday and Sunday are never touched.
func (t *Template) CopyToWeekdays(src int) error {
	source, err := t.day(src)
	if err != nil {
		return err
	}
	if source.IsActive {
		if err := timerange.ValidateDay(source.StartTime, source.EndTime, source.SlotDuration, source.BreakTimes); err != nil {
			return fmt.Errorf("%s: %w", source.DayName, err)
		}
	}
	for dow := 1; dow <= 5; dow++ {
		if dow == src {
			continue
		}
		d := &t.full.Days[dow]
		d.IsActive = source.IsActive
		d.StartTime = source.StartTime
		d.EndTime = source.EndTime
		d.SlotDuration = source.SlotDuration
		d.BreakTimes = model.CloneBreaks(source.BreakTimes)
	}
	return nil
}

// Validate checks every active day.
func (t *Template) Validate() error {
	for _, d := range t.full.Days {
		if !d.IsActive {
			continue
		}
		if err := timerange.ValidateDay(d.StartTime, d.EndTime, d.SlotDuration, d.BreakTimes); err != nil {
			return fmt.Errorf("%s: %w", d.DayName, err)
		}
	}
	return nil
}

// ActivePatch returns the payload for a template save.
func (t *Template) ActivePatch() model.ActiveDaysPatch {
	return t.full.ActivePatch()
}
