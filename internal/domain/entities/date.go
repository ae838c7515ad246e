package entities

import (
	"fmt"
	"time"
)

// DateFormat is the canonical wire format for all dates: ISO-8601 with
// millisecond precision and a Z suffix. Dates are always rendered in UTC,
// so the lexicographic order of formatted dates matches chronological order.
const DateFormat = "2006-01-02T15:04:05.000Z"

// FormatDate renders t in the canonical format.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateFormat)
}

// ParseDate parses a date in the canonical format, falling back to RFC 3339.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateFormat, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, ErrBadRequest)
	}
	return t.UTC(), nil
}
