// Package clock converts between absolute instants and a user's local wall
// clock. Instants are plain time.Time values; wall-clock readings are
// LocalTime values that carry no zone and never mutate in place.
package clock

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smith3v/focusdesk/pkg/logger"
)

var ErrInvalidTimezone = errors.New("invalid timezone")

// LocalTime is a wall-clock reading with no attached zone.
type LocalTime struct {
	Year   int
	Month  time.Month
	Day    int
	Hour   int
	Minute int
	Second int
}

// civil renders l on a fixed UTC scale. It is only used for calendar
// arithmetic and ordering, never as an instant.
func (l LocalTime) civil() time.Time {
	return time.Date(l.Year, l.Month, l.Day, l.Hour, l.Minute, l.Second, 0, time.UTC)
}

// fromCivil reads the wall clock of t in whatever zone t carries.
func fromCivil(t time.Time) LocalTime {
	return LocalTime{
		Year:   t.Year(),
		Month:  t.Month(),
		Day:    t.Day(),
		Hour:   t.Hour(),
		Minute: t.Minute(),
		Second: t.Second(),
	}
}

func (l LocalTime) Weekday() time.Weekday {
	return l.civil().Weekday()
}

// AddDays moves the calendar date by n days keeping the time of day.
func (l LocalTime) AddDays(n int) LocalTime {
	return fromCivil(l.civil().AddDate(0, 0, n))
}

// AtHour returns the same date at hour:00:00.
func (l LocalTime) AtHour(hour int) LocalTime {
	return LocalTime{Year: l.Year, Month: l.Month, Day: l.Day, Hour: hour}
}

func (l LocalTime) Before(other LocalTime) bool {
	return l.civil().Before(other.civil())
}

func (l LocalTime) Equal(other LocalTime) bool {
	return l == other
}

func (l LocalTime) String() string {
	return l.civil().Format("2006-01-02T15:04:05")
}

// LoadLocation resolves an IANA identifier. An empty identifier means UTC.
func LoadLocation(tz string) (*time.Location, error) {
	name := strings.TrimSpace(tz)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidTimezone, name, err)
	}
	return loc, nil
}

// LocationOrUTC never fails: unknown identifiers resolve to UTC.
func LocationOrUTC(tz string) *time.Location {
	loc, err := LoadLocation(tz)
	if err != nil {
		logger.Warn("falling back to UTC", "timezone", tz, "error", err)
		return time.UTC
	}
	return loc
}

func LocalIn(instant time.Time, loc *time.Location) LocalTime {
	if loc == nil {
		loc = time.UTC
	}
	return fromCivil(instant.In(loc))
}

// AbsoluteIn resolves a wall-clock reading in loc. A reading that falls into
// a DST gap does not exist; it is moved forward by the size of the gap, so
// 02:30 on a spring-forward night becomes 03:30.
func AbsoluteIn(local LocalTime, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t := time.Date(local.Year, local.Month, local.Day, local.Hour, local.Minute, local.Second, 0, loc)
	if d := local.civil().Sub(LocalIn(t, loc).civil()); d > 0 {
		t = t.Add(d)
	}
	return t
}

func ToLocal(instant time.Time, tz string) (LocalTime, error) {
	loc, err := LoadLocation(tz)
	if err != nil {
		return LocalTime{}, err
	}
	return LocalIn(instant, loc), nil
}

func ToAbsolute(local LocalTime, tz string) (time.Time, error) {
	loc, err := LoadLocation(tz)
	if err != nil {
		return time.Time{}, err
	}
	return AbsoluteIn(local, loc), nil
}

// CivilNoon is the storage marker for a calendar day: 12:00 UTC on that date.
// No zone offset in use is large enough to move it to another date.
func CivilNoon(local LocalTime) time.Time {
	return time.Date(local.Year, local.Month, local.Day, 12, 0, 0, 0, time.UTC)
}

// StartOfDay and EndOfDay bound the local calendar day containing instant.
func StartOfDay(instant time.Time, loc *time.Location) time.Time {
	return AbsoluteIn(LocalIn(instant, loc).AtHour(0), loc)
}

func EndOfDay(instant time.Time, loc *time.Location) time.Time {
	return AbsoluteIn(LocalIn(instant, loc).AtHour(0).AddDays(1), loc)
}
