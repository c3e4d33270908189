package output

import (
	"encoding/json"
	"io"
	"os"

	"golang.org/x/term"
)

// WriteJSON writes v to w as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrintJSON writes v to stdout as indented JSON.
func PrintJSON(v any) error {
	return WriteJSON(os.Stdout, v)
}

// TerminalWidth returns the stdout terminal width, or fallback when stdout
// is not a terminal.
func TerminalWidth(fallback int) int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return fallback
}
