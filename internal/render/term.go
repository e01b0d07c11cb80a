package render

import (
	"os"

	"golang.org/x/term"
)

// FallbackWidth is used when the output is not a terminal.
const FallbackWidth = 80

// Width reports the column count of the terminal behind f.
func Width(f *os.File) (int, bool) {
	if f == nil {
		return 0, false
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return 0, false
	}
	return w, true
}

// TerminalWidth returns the stdout width, or FallbackWidth.
func TerminalWidth() int {
	if w, ok := Width(os.Stdout); ok {
		return w
	}
	return FallbackWidth
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// ColorEnabled decides whether styled output goes to f. NO_COLOR wins,
// then an explicit setting, then terminal detection.
func ColorEnabled(setting *bool, f *os.File) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if setting != nil {
		return *setting
	}
	return IsTerminal(f)
}
