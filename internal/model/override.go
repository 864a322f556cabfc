package model

// DayOverride replaces the weekly template for one calendar date.
// Hours, slot duration and breaks only matter when IsAvailable is set.
type DayOverride struct {
	ID           string          `json:"id,omitempty"`
	Date         Date            `json:"date"`
	IsAvailable  bool            `json:"is_available"`
	StartTime    Clock           `json:"start_time"`
	EndTime      Clock           `json:"end_time"`
	SlotDuration SlotDuration    `json:"slot_duration"`
	BreakTimes   []BreakInterval `json:"break_times"`
	Reason       string          `json:"reason,omitempty"`
}

func (o DayOverride) Clone() DayOverride {
	o.BreakTimes = CloneBreaks(o.BreakTimes)
	return o
}

// OverrideQuery selects overrides in an inclusive date range.
type OverrideQuery struct {
	From               Date
	To                 Date
	IncludeUnavailable bool
}

// SingleDate queries one date, blocked days included.
func SingleDate(d Date) OverrideQuery {
	return OverrideQuery{From: d, To: d, IncludeUnavailable: true}
}

// OverrideSaveResult is the remote answer to an override create or update.
// Warning is advisory: the save succeeded regardless.
type OverrideSaveResult struct {
	Message      string       `json:"message"`
	Warning      string       `json:"warning,omitempty"`
	Availability *DayOverride `json:"availability,omitempty"`
}

func (r *OverrideSaveResult) HasWarning() bool {
	return r != nil && r.Warning != ""
}

// ScheduleSource tells where an effective schedule came from.
type ScheduleSource string

const (
	SourceTemplate ScheduleSource = "template"
	SourceOverride ScheduleSource = "override"
)

// EffectiveSchedule is what governs bookability on a date.
type EffectiveSchedule struct {
	Date         Date            `json:"date"`
	Source       ScheduleSource  `json:"source"`
	IsAvailable  bool            `json:"is_available"`
	StartTime    Clock           `json:"start_time"`
	EndTime      Clock           `json:"end_time"`
	SlotDuration SlotDuration    `json:"slot_duration"`
	BreakTimes   []BreakInterval `json:"break_times"`
}
