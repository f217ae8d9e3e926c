package utils

import (
	"fmt"
	"time"
)

// DayFormat is the calendar-date layout used across config files, CLI flags
// and report metadata.
const DayFormat = "2006-01-02"

// NowUTC returns current time in UTC timezone.
// Used throughout the codebase for consistent timestamp handling.
// This centralized function simplifies mocking in tests and ensures
// consistent UTC usage across all components.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// DayUTC truncates a timestamp to midnight UTC of the same calendar day.
func DayUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD string into a midnight-UTC timestamp.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DayFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", s, err)
	}
	return DayUTC(t), nil
}
