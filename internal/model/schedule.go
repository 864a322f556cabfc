package model

import (
	"fmt"
	"time"
)

// DaysPerWeek is the number of entries in a weekly template.
const DaysPerWeek = 7

// SlotDuration is the appointment granularity in minutes.
type SlotDuration int

const (
	Slot15 SlotDuration = 15
	Slot30 SlotDuration = 30
	Slot45 SlotDuration = 45
	Slot60 SlotDuration = 60
)

// SlotDurations lists the allowed granularities in ascending order.
var SlotDurations = []SlotDuration{Slot15, Slot30, Slot45, Slot60}

func (d SlotDuration) Valid() bool {
	switch d {
	case Slot15, Slot30, Slot45, Slot60:
		return true
	}
	return false
}

// DefaultScheduleConfig provides default values for a day that was never configured.
var DefaultScheduleConfig = struct {
	StartTime    Clock
	EndTime      Clock
	SlotDuration SlotDuration
}{
	StartTime:    NewClock(9, 0),
	EndTime:      NewClock(17, 0),
	SlotDuration: Slot30,
}

var (
	dayNames  = [DaysPerWeek]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}
	dayShorts = [DaysPerWeek]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
)

// ValidDay reports whether dow is a day-of-week index (Sunday=0).
func ValidDay(dow int) bool {
	return dow >= 0 && dow < DaysPerWeek
}

// BreakInterval is a pause inside a working window.
type BreakInterval struct {
	StartTime Clock `json:"start_time"`
	EndTime   Clock `json:"end_time"`
}

func (b BreakInterval) String() string {
	return b.StartTime.String() + "-" + b.EndTime.String()
}

// CloneBreaks returns an independent copy; nil stays nil.
func CloneBreaks(in []BreakInterval) []BreakInterval {
	if in == nil {
		return nil
	}
	out := make([]BreakInterval, len(in))
	copy(out, in)
	return out
}

// DaySchedule is the recurring configuration of one weekday.
type DaySchedule struct {
	DayOfWeek    int             `json:"day_of_week"` // 0-6 (Sunday-Saturday)
	DayName      string          `json:"day_name"`
	DayShort     string          `json:"day_short"`
	IsActive     bool            `json:"is_active"`
	StartTime    Clock           `json:"start_time"`
	EndTime      Clock           `json:"end_time"`
	SlotDuration SlotDuration    `json:"slot_duration"` // minutes
	BreakTimes   []BreakInterval `json:"break_times"`
}

// DefaultDay returns an inactive day with default hours.
func DefaultDay(dow int) DaySchedule {
	return DaySchedule{
		DayOfWeek:    dow,
		DayName:      dayNames[dow],
		DayShort:     dayShorts[dow],
		StartTime:    DefaultScheduleConfig.StartTime,
		EndTime:      DefaultScheduleConfig.EndTime,
		SlotDuration: DefaultScheduleConfig.SlotDuration,
	}
}

func (d DaySchedule) Clone() DaySchedule {
	d.BreakTimes = CloneBreaks(d.BreakTimes)
	return d
}

// FullTemplate is the read shape of a weekly template: always all seven days.
type FullTemplate struct {
	Days [DaysPerWeek]DaySchedule
}

// NewFullTemplate returns a template with every day inactive.
func NewFullTemplate() FullTemplate {
	var t FullTemplate
	for dow := 0; dow < DaysPerWeek; dow++ {
		t.Days[dow] = DefaultDay(dow)
	}
	return t
}

// FullTemplateFromDays builds a template from a server list.
// Days missing from the list keep their defaults.
func FullTemplateFromDays(days []DaySchedule) (FullTemplate, error) {
	t := NewFullTemplate()
	var seen [DaysPerWeek]bool
	for _, d := range days {
		if !ValidDay(d.DayOfWeek) {
			return FullTemplate{}, fmt.Errorf("day_of_week %d out of range", d.DayOfWeek)
		}
		if seen[d.DayOfWeek] {
			return FullTemplate{}, fmt.Errorf("day_of_week %d listed twice", d.DayOfWeek)
		}
		seen[d.DayOfWeek] = true

		d = d.Clone()
		d.DayName = dayNames[d.DayOfWeek]
		d.DayShort = dayShorts[d.DayOfWeek]
		if d.SlotDuration == 0 {
			d.SlotDuration = DefaultScheduleConfig.SlotDuration
		}
		t.Days[d.DayOfWeek] = d
	}
	return t, nil
}

// Day returns a copy of the schedule for a weekday.
func (t FullTemplate) Day(weekday time.Weekday) DaySchedule {
	return t.Days[int(weekday)].Clone()
}

func (t FullTemplate) Clone() FullTemplate {
	for i := range t.Days {
		t.Days[i] = t.Days[i].Clone()
	}
	return t
}

// List returns the seven days ordered Sunday..Saturday.
func (t FullTemplate) List() []DaySchedule {
	out := make([]DaySchedule, 0, DaysPerWeek)
	for _, d := range t.Days {
		out = append(out, d.Clone())
	}
	return out
}

// ActivePatch returns the write payload: the active days only.
func (t FullTemplate) ActivePatch() ActiveDaysPatch {
	var p ActiveDaysPatch
	for _, d := range t.Days {
		if d.IsActive {
			p.days = append(p.days, d.Clone())
		}
	}
	return p
}

// ActiveDaysPatch is the write shape of a weekly template. It carries only
// active days; days absent from it must be left untouched by the receiver.
type ActiveDaysPatch struct {
	days []DaySchedule
}

// ParseActiveDaysPatch checks a received list before treating it as a patch.
func ParseActiveDaysPatch(days []DaySchedule) (ActiveDaysPatch, error) {
	var p ActiveDaysPatch
	var seen [DaysPerWeek]bool
	for _, d := range days {
		if !ValidDay(d.DayOfWeek) {
			return ActiveDaysPatch{}, fmt.Errorf("day_of_week %d out of range", d.DayOfWeek)
		}
		if seen[d.DayOfWeek] {
			return ActiveDaysPatch{}, fmt.Errorf("day_of_week %d listed twice", d.DayOfWeek)
		}
		if !d.IsActive {
			return ActiveDaysPatch{}, fmt.Errorf("day_of_week %d is not active", d.DayOfWeek)
		}
		seen[d.DayOfWeek] = true
		d = d.Clone()
		d.DayName = dayNames[d.DayOfWeek]
		d.DayShort = dayShorts[d.DayOfWeek]
		p.days = append(p.days, d)
	}
	return p, nil
}

// Days returns a copy of the patched days.
func (p ActiveDaysPatch) Days() []DaySchedule {
	out := make([]DaySchedule, 0, len(p.days))
	for _, d := range p.days {
		out = append(out, d.Clone())
	}
	return out
}

func (p ActiveDaysPatch) Len() int { return len(p.days) }

// Has reports whether the patch touches dow.
func (p ActiveDaysPatch) Has(dow int) bool {
	for _, d := range p.days {
		if d.DayOfWeek == dow {
			return true
		}
	}
	return false
}

// TemplateSaveResult is the remote answer to a template save.
type TemplateSaveResult struct {
	Message string `json:"message"`
}
