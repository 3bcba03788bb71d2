// Package clock holds the wall-clock helpers used by availability: "HH:mm" parsing,
// composing a time of day onto a date, and week/day boundaries. Every function takes
// "now" and locations explicitly.
package clock

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// FormatError reports a time-of-day string that is not "HH:mm".
type FormatError struct {
	Value string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("clock: invalid time of day %q (want HH:mm)", e.Value)
}

// ParseClock accepts exactly two colon-separated integers with hour in 0..23 and minute
// in 0..59.
func ParseClock(s string) (hour, minute int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, &FormatError{Value: s}
	}
	hour, ok := parseField(parts[0], 23)
	if !ok {
		return 0, 0, &FormatError{Value: s}
	}
	minute, ok = parseField(parts[1], 59)
	if !ok {
		return 0, 0, &FormatError{Value: s}
	}
	return hour, minute, nil
}

func parseField(s string, max int) (int, bool) {
	if len(s) == 0 || len(s) > 2 {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n > max {
		return 0, false
	}
	return n, true
}

// ComposeDateTime places hour:minute on date's calendar day in date's location.
func ComposeDateTime(date time.Time, hour, minute int) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, date.Location())
}

// At parses hhmm and composes it onto date.
func At(date time.Time, hhmm string) (time.Time, error) {
	h, m, err := ParseClock(hhmm)
	if err != nil {
		return time.Time{}, err
	}
	return ComposeDateTime(date, h, m), nil
}

// IsPast reports whether hhmm on date is strictly before now.
func IsPast(date time.Time, hhmm string, now time.Time) (bool, error) {
	t, err := At(date, hhmm)
	if err != nil {
		return false, err
	}
	return Passed(t, now), nil
}

// Passed reports whether the instant t is strictly before now. A slot starting exactly
// at now is still bookable.
func Passed(t, now time.Time) bool {
	return t.Before(now)
}

func FormatClock(t time.Time) string {
	return t.Format(ClockLayout)
}

func StartOfDay(t time.Time) time.Time {
	return ComposeDateTime(t, 0, 0)
}

// StartOfWeek returns midnight of the Monday on or before t.
func StartOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return StartOfDay(t).AddDate(0, 0, -offset)
}

func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate reads a "YYYY-MM-DD" key as midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, loc)
}

// SameDay compares calendar days in a's location.
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
