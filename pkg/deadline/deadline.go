// Package deadline finds the most recent occurrence of a weekly cadence.
package deadline

import (
	"errors"
	"fmt"
	"time"

	"github.com/smith3v/focusdesk/pkg/clock"
)

var ErrInvalidCadence = errors.New("invalid cadence")

// Deadline is one cadence occurrence, as the user sees it and as an instant.
type Deadline struct {
	Local clock.LocalTime
	At    time.Time
}

// ValidateCadence checks day in [0,6] (0 is Sunday) and hour in [0,23].
func ValidateCadence(day, hour int) error {
	if day < 0 || day > 6 {
		return fmt.Errorf("%w: day of week %d", ErrInvalidCadence, day)
	}
	if hour < 0 || hour > 23 {
		return fmt.Errorf("%w: hour %d", ErrInvalidCadence, hour)
	}
	return nil
}

// Calculate returns the current deadline for the cadence in tz. An unknown
// timezone is not an error: the cadence is evaluated in UTC instead.
func Calculate(now time.Time, tz string, day, hour int) (Deadline, error) {
	return CalculateIn(now, clock.LocationOrUTC(tz), day, hour)
}

// CalculateIn returns the latest instant not after now whose local wall clock
// in loc reads day at hour:00:00.
func CalculateIn(now time.Time, loc *time.Location, day, hour int) (Deadline, error) {
	if err := ValidateCadence(day, hour); err != nil {
		return Deadline{}, err
	}

	localNow := clock.LocalIn(now, loc)
	candidate := localNow.AtHour(hour)

	diff := int(localNow.Weekday()) - day
	switch {
	case diff < 0:
		candidate = candidate.AddDays(-(7 + diff))
	case diff > 0:
		candidate = candidate.AddDays(-diff)
	case localNow.Before(candidate):
		// today's occurrence has not arrived yet
		candidate = candidate.AddDays(-7)
	}

	return Deadline{Local: candidate, At: clock.AbsoluteIn(candidate, loc)}, nil
}

// Next returns the first occurrence strictly after the current deadline.
func Next(now time.Time, loc *time.Location, day, hour int) (Deadline, error) {
	current, err := CalculateIn(now, loc, day, hour)
	if err != nil {
		return Deadline{}, err
	}
	local := current.Local.AddDays(7)
	return Deadline{Local: local, At: clock.AbsoluteIn(local, loc)}, nil
}
