package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the picloud banner and version to w.
// Colors are dropped when w is not a terminal.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	lines := []struct {
		text  string
		color string
	}{
		{"        _      _                 _ ", "#38bdf8"},
		{"  _ __ (_) ___| | ___  _   _  __| |", "#60a5fa"},
		{" | '_ \\| |/ __| |/ _ \\| | | |/ _` |", "#818cf8"},
		{" | |_) | | (__| | (_) | |_| | (_| |", "#a78bfa"},
		{" | .__/|_|\\___|_|\\___/ \\__,_|\\__,_|", "#c084fc"},
		{" |_|", "#e879f9"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w, out.String(" "+version).Faint())
	fmt.Fprintln(w)
}
