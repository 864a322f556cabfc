// Package timerange validates working windows and break intervals.
package timerange

import (
	"errors"
	"fmt"

	"medsched/internal/model"
)

// MaxBreaks is the number of breaks a single day may hold.
const MaxBreaks = 2

// ValidationError is a local rule violation. It blocks an action before any
// network call and is never retried.
type ValidationError struct {
	code string
	msg  string
}

func (e *ValidationError) Error() string { return e.msg }

// Code is a stable identifier suitable for API payloads and metric labels.
func (e *ValidationError) Code() string { return e.code }

var (
	ErrInvalidWindow       = &ValidationError{code: "invalid_window", msg: "start time must be before end time"}
	ErrBreakOutsideWindow  = &ValidationError{code: "break_outside_window", msg: "break must lie within working hours"}
	ErrBreakOverlap        = &ValidationError{code: "break_overlap", msg: "break overlaps another break"}
	ErrTooManyBreaks       = &ValidationError{code: "too_many_breaks", msg: fmt.Sprintf("at most %d breaks per day", MaxBreaks)}
	ErrInvalidSlotDuration = &ValidationError{code: "invalid_slot_duration", msg: "slot duration must be 15, 30, 45 or 60 minutes"}
)

// IsValidation reports whether err belongs to the validation taxonomy.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// Code returns the validation code of err, or "" for other errors.
func Code(err error) string {
	var v *ValidationError
	if errors.As(err, &v) {
		return v.code
	}
	return ""
}

// ValidateWindow fails when start is not strictly before end.
func ValidateWindow(start, end model.Clock) error {
	if start >= end {
		return fmt.Errorf("%w: %s-%s", ErrInvalidWindow, start, end)
	}
	return nil
}

// Overlaps is the open-interval overlap test: touching intervals do not overlap.
func Overlaps(a, b model.BreakInterval) bool {
	return a.StartTime < b.EndTime && b.StartTime < a.EndTime
}

// ValidateBreak checks a candidate break against the working window and the
// breaks already present on the day.
func ValidateBreak(candidate model.BreakInterval, windowStart, windowEnd model.Clock, existing []model.BreakInterval) error {
	if candidate.StartTime >= candidate.EndTime {
		return fmt.Errorf("%w: break %s", ErrInvalidWindow, candidate)
	}
	if candidate.StartTime < windowStart || candidate.EndTime > windowEnd {
		return fmt.Errorf("%w: break %s outside %s-%s", ErrBreakOutsideWindow, candidate, windowStart, windowEnd)
	}
	for _, other := range existing {
		if Overlaps(candidate, other) {
			return fmt.Errorf("%w: %s overlaps %s", ErrBreakOverlap, candidate, other)
		}
	}
	if len(existing) >= MaxBreaks {
		return ErrTooManyBreaks
	}
	return nil
}

// ValidateBreaks checks a whole break list as if each break had been added in order.
func ValidateBreaks(windowStart, windowEnd model.Clock, breaks []model.BreakInterval) error {
	for i, b := range breaks {
		if err := ValidateBreak(b, windowStart, windowEnd, breaks[:i]); err != nil {
			return err
		}
	}
	return nil
}

// ValidateSlotDuration fails for values outside the allowed set.
func ValidateSlotDuration(d model.SlotDuration) error {
	if !d.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidSlotDuration, int(d))
	}
	return nil
}

// ValidateDay checks window, slot duration and breaks of a working day.
func ValidateDay(start, end model.Clock, slot model.SlotDuration, breaks []model.BreakInterval) error {
	if err := ValidateWindow(start, end); err != nil {
		return err
	}
	if err := ValidateSlotDuration(slot); err != nil {
		return err
	}
	return ValidateBreaks(start, end, breaks)
}
