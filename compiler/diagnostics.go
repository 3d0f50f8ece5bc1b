package compiler

import (
	"fmt"
	"io"
)

// Reporter receives errors found while scanning, parsing, resolving and
// interpreting. Static errors come through Report; runtime errors through
// ReportRuntime.
type Reporter interface {
	Report(line int, where, message string)
	ReportRuntime(tok Token, message string)
}

// Diagnostic is a single reported error.
type Diagnostic struct {
	Line    int
	Where   string // " at 'x'", " at end", or empty
	Message string
	Runtime bool
}

func (d Diagnostic) String() string {
	if d.Runtime {
		return fmt.Sprintf("%s\n[line %d]", d.Message, d.Line)
	}
	return fmt.Sprintf("[line %d] Error%s: %s", d.Line, d.Where, d.Message)
}

// Diagnostics is the Reporter used by a run. It writes each diagnostic to
// its writer as it arrives, keeps them for later inspection, and tracks the
// two flags that decide the process exit code.
type Diagnostics struct {
	out             io.Writer
	entries         []Diagnostic
	hadError        bool
	hadRuntimeError bool
}

// NewDiagnostics creates a Diagnostics writing to w. A nil writer only
// collects.
func NewDiagnostics(w io.Writer) *Diagnostics {
	if w == nil {
		w = io.Discard
	}
	return &Diagnostics{out: w}
}

// Report records a static (lexical, syntax or resolution) error.
func (d *Diagnostics) Report(line int, where, message string) {
	d.add(Diagnostic{Line: line, Where: where, Message: message})
	d.hadError = true
}

// ReportRuntime records an uncaught runtime error.
func (d *Diagnostics) ReportRuntime(tok Token, message string) {
	d.add(Diagnostic{Line: tok.Line, Message: message, Runtime: true})
	d.hadRuntimeError = true
}

func (d *Diagnostics) add(diag Diagnostic) {
	d.entries = append(d.entries, diag)
	fmt.Fprintln(d.out, diag.String())
}

// HadError reports whether any static error was recorded since the last Reset.
func (d *Diagnostics) HadError() bool { return d.hadError }

// HadRuntimeError reports whether a runtime error was recorded since the last Reset.
func (d *Diagnostics) HadRuntimeError() bool { return d.hadRuntimeError }

// Entries returns the diagnostics recorded since the last Reset.
func (d *Diagnostics) Entries() []Diagnostic { return d.entries }

// Reset clears both flags and the recorded entries.
func (d *Diagnostics) Reset() {
	d.entries = nil
	d.hadError = false
	d.hadRuntimeError = false
}

// reportAt reports message at tok, using the location format shared by the
// parser and resolver.
func reportAt(r Reporter, tok Token, message string) {
	if tok.Type == TokenEOF {
		r.Report(tok.Line, " at end", message)
		return
	}
	r.Report(tok.Line, " at '"+tok.Lexeme+"'", message)
}
