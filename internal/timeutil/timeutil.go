package timeutil

import "time"

// Layout is a fixed-width UTC timestamp format. Fixed width keeps string
// comparison equivalent to chronological comparison, which listing code
// relies on for newest-first ordering.
const Layout = "2006-01-02T15:04:05.000Z"

// Now returns the current UTC time formatted with Layout.
func Now() string {
	return time.Now().UTC().Format(Layout)
}

// Format renders t in UTC using Layout.
func Format(t time.Time) string {
	return t.UTC().Format(Layout)
}
