// Package ui holds the small interactive pieces shown while an action runs.
package ui

import (
	"os"

	"golang.org/x/term"
)

// IsTerminal reports whether v is an *os.File attached to a terminal.
// Readers and writers of any other type never are.
func IsTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
