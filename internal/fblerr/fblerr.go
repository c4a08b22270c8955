// Package fblerr defines the error kinds of spec §7 and a Sink that
// accumulates diagnostics the way fble's compilation units do: errors
// pile up per unit, get printed with a "file:line:col:" prefix, and
// surface as a single "compilation failed" at the boundary.
package fblerr

import (
	"fmt"
	"io"

	"github.com/pkg/errors"

	"fblego/internal/kind"
)

// Kind is the producer-tagged error kind of spec §7.
type Kind string

const (
	ParseError   Kind = "ParseError"   // out of scope to produce; kept for completeness
	LoadError    Kind = "LoadError"
	TypeError    Kind = "TypeError"
	RuntimeError Kind = "RuntimeError"
)

// Diagnostic is a single accumulated error.
type Diagnostic struct {
	Kind    Kind
	Loc     kind.Loc
	Message string
	Cause   error
}

func (d *Diagnostic) Error() string {
	if d.Loc.File != "" {
		return fmt.Sprintf("%s:%d:%d: %s: %s", d.Loc.File, d.Loc.Line, d.Loc.Col, d.Kind, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Kind, d.Message)
}

func (d *Diagnostic) Unwrap() error { return d.Cause }

// New creates a diagnostic with no wrapped cause.
func New(k Kind, loc kind.Loc, format string, args ...any) *Diagnostic {
	return &Diagnostic{Kind: k, Loc: loc, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a diagnostic around a lower-level error (e.g. a failed
// os.Open in the module loader), preserving its stack via pkg/errors so
// %+v printing shows where the underlying failure originated.
func Wrap(k Kind, loc kind.Loc, cause error, format string, args ...any) *Diagnostic {
	return &Diagnostic{Kind: k, Loc: loc, Message: fmt.Sprintf(format, args...), Cause: errors.WithStack(cause)}
}

// Sink accumulates diagnostics for a compilation unit.
type Sink struct {
	Diagnostics []*Diagnostic
}

// Add appends a diagnostic.
func (s *Sink) Add(d *Diagnostic) { s.Diagnostics = append(s.Diagnostics, d) }

// Failed reports whether any diagnostic has been recorded.
func (s *Sink) Failed() bool { return len(s.Diagnostics) > 0 }

// Print writes every diagnostic to w, one per line, "file:line:col:
// Kind: message".
func (s *Sink) Print(w io.Writer) {
	for _, d := range s.Diagnostics {
		fmt.Fprintln(w, d.Error())
	}
}

// CompilationFailed is the single error surfaced at the compilation
// boundary once any diagnostic has accumulated.
func (s *Sink) CompilationFailed() error {
	if !s.Failed() {
		return nil
	}
	return errors.Errorf("compilation failed: %d error(s)", len(s.Diagnostics))
}
