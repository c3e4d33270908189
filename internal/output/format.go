package output

import (
	"fmt"
	"time"
)

// FormatCost renders a dollar amount. Small per-message costs keep four
// decimal places; larger totals use two.
func FormatCost(v float64) string {
	if v >= 10 {
		return fmt.Sprintf("$%.2f", v)
	}
	return fmt.Sprintf("$%.4f", v)
}

// FormatDuration renders a duration as HH:MM:SS.
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "00:00:00"
	}
	seconds := int(d.Seconds())
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// FormatTime renders a timestamp for table cells, or a dash when unset.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

// Truncate shortens s to at most max runes, appending an ellipsis when it
// had to cut.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return string(runes[:max-1]) + "…"
}
