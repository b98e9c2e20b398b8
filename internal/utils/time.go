package utils

import (
	"fmt"
	"time"
)

// FormatTimeAgo returns a human-readable string representing how long before now a time was.
func FormatTimeAgo(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}

	return FormatDuration(now.Sub(t)) + " ago"
}

// FormatTimeUntil returns a human-readable string representing how long after now a time is.
func FormatTimeUntil(t, now time.Time) string {
	if t.IsZero() {
		return "unknown"
	}

	return "in " + FormatDuration(t.Sub(now))
}

// FormatDuration converts a duration to a human-readable string.
// Only the largest whole unit is kept.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}

	seconds := int(d.Seconds())

	if seconds < 60 {
		return "moments"
	}

	minutes := seconds / 60
	if minutes < 60 {
		return plural(minutes, "minute")
	}

	hours := minutes / 60
	if hours < 24 {
		return plural(hours, "hour")
	}

	return plural(hours/24, "day")
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
