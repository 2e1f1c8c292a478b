package tui

import (
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// Renderer turns markdown into terminal output.
type Renderer func(string) (string, error)

// NewRenderer returns a glamour markdown renderer when stdout is a terminal,
// and a pass-through otherwise.
func NewRenderer() Renderer {
	if !IsTerminal(os.Stdout) {
		return Plain
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return Plain
	}
	return r.Render
}

// Plain returns markdown unchanged.
func Plain(markdown string) (string, error) {
	return markdown, nil
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
