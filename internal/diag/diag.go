// Package diag renders diagnostics and other CLI-facing output,
// colorizing when the output stream is a terminal.
package diag

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"fblego/internal/fblerr"
)

// Sink writes to an underlying writer, colorizing diagnostics when it is
// attached to a terminal.
type Sink struct {
	W      io.Writer
	Color  bool
}

// NewStderr builds a Sink over os.Stderr, auto-detecting color support.
func NewStderr() *Sink {
	color := false
	if f, ok := interface{}(os.Stderr).(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Sink{W: os.Stderr, Color: color}
}

const (
	red    = "\x1b[31m"
	yellow = "\x1b[33m"
	reset  = "\x1b[0m"
)

// Error prints a single diagnostic.
func (s *Sink) Error(d *fblerr.Diagnostic) {
	if s.Color {
		fmt.Fprintf(s.W, "%s%s%s\n", red, d.Error(), reset)
		return
	}
	fmt.Fprintln(s.W, d.Error())
}

// Warning prints a non-fatal message ("file:line:col: warning: msg"),
// used for the checker's unused-variable warnings (spec §4.C "Scope").
func (s *Sink) Warning(file string, line, col int, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	line1 := fmt.Sprintf("%s:%d:%d: warning: %s", file, line, col, msg)
	if s.Color {
		fmt.Fprintf(s.W, "%s%s%s\n", yellow, line1, reset)
		return
	}
	fmt.Fprintln(s.W, line1)
}
