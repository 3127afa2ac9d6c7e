// Package timeutil provides wall-clock arithmetic over "HH:MM" strings and
// weekday conversions. It is the single source of truth for time math in the
// scheduling core; other packages must not reparse or recompute on their own.
package timeutil

import (
	"fmt"
	"strconv"
	"strings"
)

// MinutesPerDay is the number of minutes in a single wall-clock day.
const MinutesPerDay = 24 * 60

// Day is a weekday ordinal, 0 = Sunday through 6 = Saturday.
type Day int

const (
	Sunday Day = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

var dayNames = [7]string{
	"Sunday",
	"Monday",
	"Tuesday",
	"Wednesday",
	"Thursday",
	"Friday",
	"Saturday",
}

// ParseDay resolves a weekday name to its ordinal. The name set is closed:
// anything outside the seven canonical names is an error, never a default.
func ParseDay(name string) (Day, error) {
	trimmed := strings.TrimSpace(name)
	for i, candidate := range dayNames {
		if strings.EqualFold(candidate, trimmed) {
			return Day(i), nil
		}
	}
	return 0, fmt.Errorf("unknown day name %q", name)
}

// Valid reports whether the ordinal falls inside the 0-6 range.
func (d Day) Valid() bool {
	return d >= Sunday && d <= Saturday
}

// String returns the canonical weekday name, or "Invalid" out of range.
func (d Day) String() string {
	if !d.Valid() {
		return "Invalid"
	}
	return dayNames[d]
}

// ToMinutes parses a zero-padded 24-hour "HH:MM" string into minutes since
// midnight (0-1439). Malformed input is an error.
func ToMinutes(clock string) (int, error) {
	parts := strings.Split(clock, ":")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("malformed time %q, expected HH:MM", clock)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("malformed time %q: %w", clock, err)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("malformed time %q: %w", clock, err)
	}
	if hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("time %q out of range", clock)
	}
	return hours*60 + minutes, nil
}

// FromMinutes renders minutes since midnight as a zero-padded "HH:MM"
// string. Values outside a single day are clamped to its edges.
func FromMinutes(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	if minutes >= MinutesPerDay {
		minutes = MinutesPerDay - 1
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// AddMinutes computes the end time reached from start after duration minutes.
func AddMinutes(start string, duration int) (string, error) {
	base, err := ToMinutes(start)
	if err != nil {
		return "", err
	}
	return FromMinutes(base + duration), nil
}

// DurationBetween returns end minus start in minutes. The result is negative
// when the range is inverted; callers must treat <= 0 as invalid.
func DurationBetween(start, end string) (int, error) {
	s, err := ToMinutes(start)
	if err != nil {
		return 0, err
	}
	e, err := ToMinutes(end)
	if err != nil {
		return 0, err
	}
	return e - s, nil
}

// FormatRange renders a day plus time range for human-readable messages,
// e.g. "Monday 10:00-11:00".
func FormatRange(day Day, start, end string) string {
	return fmt.Sprintf("%s %s-%s", day, start, end)
}
