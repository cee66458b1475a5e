package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the startup banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	// Teal to green, one shade per line.
	lines := []struct{ text, color string }{
		{"  ___  ___ _ __(_) |__   ___ ", "#2dd4bf"},
		{" / __|/ __| '__| | '_ \\ / _ \\", "#34d399"},
		{" \\__ \\ (__| |  | | |_) |  __/", "#4ade80"},
		{" |___/\\___|_|  |_|_.__/ \\___|", "#a3e635"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
