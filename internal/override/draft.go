// Package override edits single-date exceptions to the weekly template.
package override

import (
	"errors"
	"fmt"

	"medsched/internal/model"
	"medsched/internal/timerange"
)

var ErrNoSuchBreak = errors.New("no such break")

// Draft is an unsaved override for one date.
type Draft struct {
	id     string
	date   model.Date
	record model.DayOverride
}

// SeedFromOverride starts a draft from a stored override.
func SeedFromOverride(o model.DayOverride) *Draft {
	rec := o.Clone()
	return &Draft{id: o.ID, date: o.Date, record: rec}
}

// SeedFromTemplate starts a draft from the template day for the date's weekday.
// Without a template day the draft gets the default hours and is available.
func SeedFromTemplate(date model.Date, day *model.DaySchedule) *Draft {
	rec := model.DayOverride{
		Date:         date,
		IsAvailable:  true,
		StartTime:    model.DefaultScheduleConfig.StartTime,
		EndTime:      model.DefaultScheduleConfig.EndTime,
		SlotDuration: model.DefaultScheduleConfig.SlotDuration,
	}
	if day != nil {
		rec.IsAvailable = day.IsActive
		rec.StartTime = day.StartTime
		rec.EndTime = day.EndTime
		rec.SlotDuration = day.SlotDuration
		rec.BreakTimes = model.CloneBreaks(day.BreakTimes)
	}
	return &Draft{date: date, record: rec}
}

func (d *Draft) Date() model.Date { return d.date }

// ID is the stored record's id, empty when the draft was seeded from the template.
func (d *Draft) ID() string { return d.id }

// Override returns a copy of the draft content.
func (d *Draft) Override() model.DayOverride {
	o := d.record.Clone()
	o.ID = d.id
	o.Date = d.date
	return o
}

// SetAvailable opens or blocks the date. Opening it requires the current
// hours and breaks to be valid.
func (d *Draft) SetAvailable(available bool) error {
	if available && !d.record.IsAvailable {
		r := d.record
		if err := timerange.ValidateDay(r.StartTime, r.EndTime, r.SlotDuration, r.BreakTimes); err != nil {
			return err
		}
	}
	d.record.IsAvailable = available
	return nil
}

func (d *Draft) SetReason(reason string) {
	d.record.Reason = reason
}

// SetWindow changes the hours. Rules are only enforced while the date is available.
func (d *Draft) SetWindow(start, end model.Clock) error {
	if d.record.IsAvailable {
		if err := timerange.ValidateWindow(start, end); err != nil {
			return err
		}
		if err := timerange.ValidateBreaks(start, end, d.record.BreakTimes); err != nil {
			return fmt.Errorf("existing breaks do not fit %s-%s: %w", start, end, err)
		}
	}
	d.record.StartTime, d.record.EndTime = start, end
	return nil
}

func (d *Draft) SetSlotDuration(duration model.SlotDuration) error {
	if err := timerange.ValidateSlotDuration(duration); err != nil {
		return err
	}
	d.record.SlotDuration = duration
	return nil
}

func (d *Draft) AddBreak(candidate model.BreakInterval) error {
	if err := timerange.ValidateBreak(candidate, d.record.StartTime, d.record.EndTime, d.record.BreakTimes); err != nil {
		return err
	}
	d.record.BreakTimes = append(model.CloneBreaks(d.record.BreakTimes), candidate)
	return nil
}

func (d *Draft) RemoveBreak(index int) error {
	if index < 0 || index >= len(d.record.BreakTimes) {
		return fmt.Errorf("%w: index %d", ErrNoSuchBreak, index)
	}
	breaks := make([]model.BreakInterval, 0, len(d.record.BreakTimes)-1)
	breaks = append(breaks, d.record.BreakTimes[:index]...)
	d.record.BreakTimes = append(breaks, d.record.BreakTimes[index+1:]...)
	return nil
}

// Validate checks the draft before it is sent anywhere.
func (d *Draft) Validate() error {
	if !d.record.IsAvailable {
		return nil
	}
	return timerange.ValidateDay(d.record.StartTime, d.record.EndTime, d.record.SlotDuration, d.record.BreakTimes)
}

func (d *Draft) clone() *Draft {
	return &Draft{id: d.id, date: d.date, record: d.record.Clone()}
}
