package model

import (
	"fmt"
	"strconv"
)

// Clock is a wall-clock time of day in minutes since midnight.
// It has no timezone and is read in the doctor's local day.
type Clock int

// EndOfDay is the latest value a working window may end on.
const EndOfDay Clock = 24 * 60

// NewClock builds a Clock from hour and minute.
func NewClock(hour, minute int) Clock {
	return Clock(hour*60 + minute)
}

// ParseClock parses zero-padded "HH:MM" in 24h notation. "24:00" is
// accepted as end of day.
func ParseClock(s string) (Clock, error) {
	if len(s) != 5 || s[2] != ':' || !digits(s[:2]) || !digits(s[3:]) {
		return 0, fmt.Errorf("invalid time format: %q, expected HH:MM", s)
	}

	hour, _ := strconv.Atoi(s[:2])
	minute, _ := strconv.Atoi(s[3:])

	if hour == 24 && minute == 0 {
		return EndOfDay, nil
	}
	if hour > 23 || minute > 59 {
		return 0, fmt.Errorf("time out of range: %q", s)
	}
	return NewClock(hour, minute), nil
}

func digits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// MustClock is ParseClock for constants; it panics on bad input.
func MustClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Clock) Hour() int   { return int(c) / 60 }
func (c Clock) Minute() int { return int(c) % 60 }

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

func (c Clock) MarshalText() ([]byte, error) {
	if c < 0 || c > EndOfDay {
		return nil, fmt.Errorf("clock out of range: %d", int(c))
	}
	return []byte(c.String()), nil
}

func (c *Clock) UnmarshalText(text []byte) error {
	parsed, err := ParseClock(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
