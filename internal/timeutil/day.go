package timeutil

import (
	"fmt"
	"math"
	"time"
)

const DayFormat = "2006-01-02"

// FormatDay renders t as a calendar day in its own location.
func FormatDay(t time.Time) string {
	return t.Format(DayFormat)
}

// ParseDay accepts a bare calendar day or a full RFC3339 timestamp and
// truncates the result to midnight UTC of that day.
func ParseDay(s string) (time.Time, error) {
	if t, err := time.Parse(DayFormat, s); err == nil {
		return t, nil
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	}

	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	}

	return time.Time{}, fmt.Errorf("timeutil.ParseDay: could not parse %q as a day", s)
}

// FloorDays is the number of whole days from b to a, rounded towards negative
// infinity.
func FloorDays(a, b time.Time) int {
	return int(math.Floor(a.Sub(b).Hours() / 24))
}
