// Package output provides styled terminal rendering helpers for claudetrail.
package output

import "github.com/charmbracelet/lipgloss"

// Color constants for consistent styling across the CLI.
var (
	// ColorPrimary is used for headers and emphasis.
	ColorPrimary = lipgloss.Color("#64b5f6")

	// ColorSuccess is used for completed runs and created files.
	ColorSuccess = lipgloss.Color("#66bb6a")

	// ColorError is used for failures, tool errors, and deleted files.
	ColorError = lipgloss.Color("#ef5350")

	// ColorWarning is used for parse warnings and modified files.
	ColorWarning = lipgloss.Color("#fff59d")

	// ColorMuted is used for secondary text and borders.
	ColorMuted = lipgloss.Color("#888888")
)

// Styles provides reusable lipgloss styles.
var (
	// StyleHeader is used for section headers.
	StyleHeader = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	// StyleSuccess is used for positive values.
	StyleSuccess = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	// StyleError is used for failures.
	StyleError = lipgloss.NewStyle().
			Foreground(ColorError)

	// StyleWarning is used for cautionary values.
	StyleWarning = lipgloss.NewStyle().
			Foreground(ColorWarning)

	// StyleMuted is used for de-emphasized text.
	StyleMuted = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// StyleBold is used for emphasized text.
	StyleBold = lipgloss.NewStyle().
			Bold(true)

	// StyleLabel is used for the label column of summary blocks.
	StyleLabel = lipgloss.NewStyle().
			Width(18)
)

// noColor tracks whether color output is disabled.
var noColor bool

// SetNoColor disables or enables color output globally.
// When disabled, all package-level styles are reassigned to unstyled renderers.
func SetNoColor(disabled bool) {
	noColor = disabled
	if disabled {
		plain := lipgloss.NewStyle()
		StyleHeader = plain
		StyleSuccess = plain
		StyleError = plain
		StyleWarning = plain
		StyleMuted = plain
		StyleBold = plain
		StyleLabel = plain.Width(18)
	}
}

// IsNoColor returns whether color output is currently disabled.
func IsNoColor() bool {
	return noColor
}
