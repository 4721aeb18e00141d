package occupancy

import (
	"fmt"
	"time"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// Day truncates t to its calendar date at UTC midnight. Occupancy dates are calendar
// dates; the wall-clock date of t is kept regardless of its location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

func dayPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := Day(*t)
	return &d
}

// daysBetween counts whole calendar days from a to b.
func daysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

func describeRange(start time.Time, end *time.Time) string {
	if end == nil {
		return fmt.Sprintf("from %s (indefinite)", start.Format(DateLayout))
	}
	return fmt.Sprintf("from %s to %s", start.Format(DateLayout), end.Format(DateLayout))
}
