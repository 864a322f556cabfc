// Package resolve decides the effective schedule of a date: a date override
// wins outright, otherwise the weekly template applies.
package resolve

import (
	"medsched/internal/model"
)

// Resolve returns the effective schedule for date. An override dated another
// day is ignored. The result shares no memory with the inputs.
func Resolve(tpl model.FullTemplate, date model.Date, o *model.DayOverride) model.EffectiveSchedule {
	if o != nil && o.Date == date {
		return model.EffectiveSchedule{
			Date:         date,
			Source:       model.SourceOverride,
			IsAvailable:  o.IsAvailable,
			StartTime:    o.StartTime,
			EndTime:      o.EndTime,
			SlotDuration: o.SlotDuration,
			BreakTimes:   model.CloneBreaks(o.BreakTimes),
		}
	}

	day := tpl.Day(date.Weekday())
	return model.EffectiveSchedule{
		Date:         date,
		Source:       model.SourceTemplate,
		IsAvailable:  day.IsActive,
		StartTime:    day.StartTime,
		EndTime:      day.EndTime,
		SlotDuration: day.SlotDuration,
		BreakTimes:   day.BreakTimes,
	}
}

// ResolveHorizon resolves every date of h. When several overrides share a
// date the last one wins.
func ResolveHorizon(tpl model.FullTemplate, h model.Horizon, overrides []model.DayOverride) []model.EffectiveSchedule {
	byDate := make(map[model.Date]model.DayOverride, len(overrides))
	for _, o := range overrides {
		byDate[o.Date] = o
	}

	dates := h.Dates()
	out := make([]model.EffectiveSchedule, 0, len(dates))
	for _, d := range dates {
		var ovr *model.DayOverride
		if o, ok := byDate[d]; ok {
			ovr = &o
		}
		out = append(out, Resolve(tpl, d, ovr))
	}
	return out
}
