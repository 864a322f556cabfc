package model

import (
	"time"

	"github.com/teambition/rrule-go"
)

// DefaultHorizonDays is the length of the rolling horizon.
const DefaultHorizonDays = 30

// Horizon is a window of consecutive dates starting at From.
type Horizon struct {
	From Date
	Days int
}

// NewHorizon returns the window from..from+days-1. Non-positive days fall back to the default.
func NewHorizon(from Date, days int) Horizon {
	if days <= 0 {
		days = DefaultHorizonDays
	}
	return Horizon{From: from, Days: days}
}

// To is the last date inside the horizon.
func (h Horizon) To() Date {
	return h.From.AddDays(h.Days - 1)
}

func (h Horizon) Contains(d Date) bool {
	return !d.Before(h.From) && !d.After(h.To())
}

// Query returns the override range query covering the horizon.
func (h Horizon) Query(includeUnavailable bool) OverrideQuery {
	return OverrideQuery{From: h.From, To: h.To(), IncludeUnavailable: includeUnavailable}
}

// Dates enumerates the horizon day by day.
func (h Horizon) Dates() []Date {
	if h.Days <= 0 {
		return nil
	}
	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Count:   h.Days,
		Dtstart: h.From.Time(time.UTC),
	})
	if err != nil {
		return nil
	}
	occurrences := rule.All()
	dates := make([]Date, 0, len(occurrences))
	for _, t := range occurrences {
		dates = append(dates, DateOf(t))
	}
	return dates
}
