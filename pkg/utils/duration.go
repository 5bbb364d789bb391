package utils

import (
	"fmt"
	"time"
)

// FormatDuration renders d the way reports show it: "2d 3h 15m" from a day up,
// "3h 15m" from an hour up and "15m 30s" below that. Negative durations are
// shown as zero.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	days := int(d / (24 * time.Hour))
	hours := int(d/time.Hour) % 24
	minutes := int(d/time.Minute) % 60
	seconds := int(d/time.Second) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
}

// Percent renders a ratio already scaled to 0..100 with one decimal.
func Percent(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}
