package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the startup banner.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	name := p.String(" autoshell ").Bold().Foreground(p.Color("#0f172a")).Background(p.Color("#34d399"))
	ver := p.String(version).Foreground(p.Color("#94a3b8"))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s\n", name, ver)
	fmt.Fprintln(w)
}
