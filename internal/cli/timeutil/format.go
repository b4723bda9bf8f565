// Package timeutil formats timestamps for CLI output.
package timeutil

import "time"

const (
	// LocalTimeFormat is used by `stat`-style detail views.
	LocalTimeFormat = "Mon Jan 2 15:04:05 2006"

	recentFormat = "Jan _2 15:04"
	olderFormat  = "Jan _2  2006"
)

// sixMonths matches the window ls(1) uses to decide between showing the
// time of day and the year.
const sixMonths = 182 * 24 * time.Hour

// FormatModTime renders t the way `ls -l` does, relative to now. The zero
// time renders as "-".
func FormatModTime(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	t = t.Local()
	if d := now.Sub(t); d < sixMonths && d > -time.Hour {
		return t.Format(recentFormat)
	}
	return t.Format(olderFormat)
}

// FormatTime renders t in LocalTimeFormat, or "-" when zero.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(LocalTimeFormat)
}
