package api

import (
	"fmt"
	"strings"

	"medsched/internal/database"
	"medsched/internal/model"
	"medsched/internal/timerange"
)

// appointmentWarning describes booked visits the saved override conflicts
// with. It returns "" when there is no conflict.
func appointmentWarning(o model.DayOverride, booked []database.Appointment) string {
	if len(booked) == 0 {
		return ""
	}
	if !o.IsAvailable {
		return fmt.Sprintf("%s booked on a date that is now unavailable", countAppointments(len(booked)))
	}

	var outside, inBreak int
	for _, a := range booked {
		visit := model.BreakInterval{StartTime: a.StartTime, EndTime: a.EndTime}
		if a.StartTime < o.StartTime || a.EndTime > o.EndTime {
			outside++
			continue
		}
		for _, b := range o.BreakTimes {
			if timerange.Overlaps(visit, b) {
				inBreak++
				break
			}
		}
	}

	var parts []string
	if outside > 0 {
		parts = append(parts, fmt.Sprintf("%s outside the new working hours", countAppointments(outside)))
	}
	if inBreak > 0 {
		parts = append(parts, fmt.Sprintf("%s during a break", countAppointments(inBreak)))
	}
	return strings.Join(parts, "; ")
}

func countAppointments(n int) string {
	if n == 1 {
		return "1 appointment"
	}
	return fmt.Sprintf("%d appointments", n)
}
