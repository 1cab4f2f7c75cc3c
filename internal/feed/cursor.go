package feed

import (
	"fmt"
	"time"
)

// cursorEpsilon makes the pagination boundary exclusive: the next page
// asks for entries strictly older than cursor − 1µs, so ties at the
// boundary are never re-emitted.
const cursorEpsilon = time.Microsecond

// FormatCursor renders an ordering timestamp as an opaque cursor.
func FormatCursor(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseCursor accepts the cursors this service hands out.
func ParseCursor(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cursor %q: %w", s, err)
	}
	return t.UTC(), nil
}

// beforeBoundary reports whether t falls on the page requested by the
// cursor boundary.
func beforeBoundary(t, boundary time.Time) bool {
	return t.Before(boundary.Add(-cursorEpsilon))
}
