package output

import "strings"

// Bar renders a proportional bar for value relative to max.
// Example: "████████░░░░░░░░░░░░"
func Bar(value, max float64, width int) string {
	if width <= 0 {
		width = 20
	}

	filled := 0
	if max > 0 && value > 0 {
		filled = int((value / max) * float64(width))
		if filled > width {
			filled = width
		}
	}

	return StyleBold.Render(strings.Repeat("█", filled)) +
		StyleMuted.Render(strings.Repeat("░", width-filled))
}
