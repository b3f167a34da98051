package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// Success writes msg in bold green.
func Success(w io.Writer, format string, args ...any) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w, out.String(fmt.Sprintf(format, args...)).Foreground(out.Color("2")).Bold())
}

// Warn writes msg in yellow.
func Warn(w io.Writer, format string, args ...any) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w, out.String(fmt.Sprintf(format, args...)).Foreground(out.Color("3")))
}
