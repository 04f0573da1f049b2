package practice

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// FormatDuration renders d as minutes and zero-padded seconds, e.g. "3:07".
func FormatDuration(d time.Duration) string {
	secs := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// FormatMinutes renders a minute count as "45m", "1h 5m" or "2h".
func FormatMinutes(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	hours, mins := minutes/60, minutes%60
	if mins > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	return fmt.Sprintf("%dh", hours)
}

// FormatAgo renders when a session started relative to now, e.g.
// "3 hours ago".
func FormatAgo(start, now time.Time) string {
	return humanize.RelTime(start, now, "ago", "from now")
}
