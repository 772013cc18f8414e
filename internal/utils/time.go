package utils

import (
	"fmt"
	"time"

	"github.com/julianstephens/routinely/internal/constants"
	"github.com/julianstephens/routinely/internal/models"
)

// LoadLocation loads a timezone location from an IANA timezone name.
// If the timezone is "Local" or empty, it returns the system's local timezone.
func LoadLocation(timezone string) (*time.Location, error) {
	if timezone == "" || timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return loc, nil
}

// ValidateTimezone checks if the timezone name is valid.
func ValidateTimezone(timezone string) bool {
	_, err := LoadLocation(timezone)
	return err == nil
}

// DateIn returns the calendar date of t as observed in loc.
func DateIn(t time.Time, loc *time.Location) models.Date {
	if loc == nil {
		loc = time.Local
	}
	return models.DateOf(t.In(loc))
}

// ParseTime parses a time string in the standard format (HH:MM).
func ParseTime(timeStr string) (time.Time, error) {
	return time.Parse(constants.TimeFormat, timeStr)
}

// ValidateTimeFormat checks if the string matches the standard time format.
func ValidateTimeFormat(timeStr string) bool {
	_, err := ParseTime(timeStr)
	return err == nil
}

// TimeOfDay builds a routine start/end instant from an HH:MM string. The date
// part is anchor's calendar date in loc; only the biweekly anchor week reads it.
func TimeOfDay(timeStr string, anchor models.Date, loc *time.Location) (time.Time, error) {
	t, err := ParseTime(timeStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q (expected HH:MM): %w", timeStr, err)
	}
	if loc == nil {
		loc = time.Local
	}
	return time.Date(anchor.Year, anchor.Month, anchor.Day, t.Hour(), t.Minute(), 0, 0, loc), nil
}

// MinuteOfDay is the wall-clock position of t in loc, ignoring its date.
func MinuteOfDay(t time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	return t.Hour()*60 + t.Minute()
}

// FormatClock renders the time-of-day part of t in loc as HH:MM.
func FormatClock(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(constants.TimeFormat)
}
