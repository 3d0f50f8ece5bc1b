// Package lox runs Lox programs: it drives the scanner, parser and resolver
// from package compiler and the tree-walking interpreter from package
// interpreter, and maps the outcome to a process exit code.
package lox

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/tliron/commonlog"

	"github.com/chazu/lox/compiler"
	"github.com/chazu/lox/interpreter"
)

// Exit codes, following sysexits.h.
const (
	ExitOK       = 0
	ExitUsage    = 64 // bad command line
	ExitDataErr  = 65 // static error in the program
	ExitNoInput  = 66 // script could not be read
	ExitSoftware = 70 // uncaught runtime error
)

var log = commonlog.GetLogger("lox")

// Result describes one run.
type Result struct {
	Diagnostics     []compiler.Diagnostic
	HadError        bool // scanner, parser or resolver reported
	HadRuntimeError bool
	Statements      int
	Elapsed         time.Duration
}

// ExitCode maps the result to the exit code of the command-line runner.
func (r Result) ExitCode() int {
	switch {
	case r.HadError:
		return ExitDataErr
	case r.HadRuntimeError:
		return ExitSoftware
	}
	return ExitOK
}

// OK reports whether the run finished without any error.
func (r Result) OK() bool { return !r.HadError && !r.HadRuntimeError }

// Option configures a Runner.
type Option func(*Runner)

// WithStdout sets where `print` writes.
func WithStdout(w io.Writer) Option {
	return func(r *Runner) { r.stdout = w }
}

// WithStderr sets where diagnostics are written.
func WithStderr(w io.Writer) Option {
	return func(r *Runner) { r.stderr = w }
}

// WithInterpreterOptions passes options through to the interpreter, e.g.
// interpreter.WithMaxDepth.
func WithInterpreterOptions(opts ...interpreter.Option) Option {
	return func(r *Runner) { r.interpOpts = append(r.interpOpts, opts...) }
}

// Runner holds the state of a session: one interpreter whose globals persist
// across Run calls, and the diagnostics of the latest run.
type Runner struct {
	stdout     io.Writer
	stderr     io.Writer
	interpOpts []interpreter.Option

	interp *interpreter.Interpreter
	diags  *compiler.Diagnostics
}

// NewRunner creates a Runner writing to standard output and standard error
// unless configured otherwise.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{stdout: os.Stdout, stderr: os.Stderr}
	for _, opt := range opts {
		opt(r)
	}
	r.diags = compiler.NewDiagnostics(r.stderr)
	r.Reset()
	return r
}

// Reset discards all globals and starts over with a fresh interpreter.
func (r *Runner) Reset() {
	opts := append([]interpreter.Option{interpreter.WithOutput(r.stdout)}, r.interpOpts...)
	r.interp = interpreter.New(opts...)
	r.diags.Reset()
}

// Run scans, parses, resolves and executes source. Execution does not start
// if any static error was reported. Both error flags are cleared first, so a
// REPL can keep going after a failed line.
func (r *Runner) Run(source string) Result {
	return r.RunContext(context.Background(), source)
}

// RunContext is Run, but execution stops with a runtime error once ctx is
// done, so a runaway program cannot hold its caller forever.
func (r *Runner) RunContext(ctx context.Context, source string) Result {
	start := time.Now()
	r.diags.Reset()

	stmts, locals := r.analyze(source)
	if r.diags.HadError() {
		return r.result(len(stmts), start)
	}

	r.interp.Resolve(locals)
	if err := r.interp.InterpretContext(ctx, stmts, r.diags); err != nil {
		log.Debugf("runtime error: %s", err)
	}
	res := r.result(len(stmts), start)
	log.Debugf("ran %d statements in %s", res.Statements, res.Elapsed)
	return res
}

// Check runs the static phases only and never executes anything.
func (r *Runner) Check(source string) Result {
	start := time.Now()
	r.diags.Reset()
	stmts, _ := r.analyze(source)
	return r.result(len(stmts), start)
}

// Globals lists the names currently defined in the global environment.
func (r *Runner) Globals() []string {
	return r.interp.Globals().Names()
}

func (r *Runner) analyze(source string) ([]compiler.Stmt, compiler.Locals) {
	tokens := compiler.Scan(source, r.diags)
	stmts := compiler.NewParser(tokens, r.diags).Parse()
	log.Debugf("scanned %d tokens, parsed %d statements", len(tokens), len(stmts))
	if r.diags.HadError() {
		return stmts, nil
	}
	return stmts, compiler.Resolve(stmts, r.diags)
}

func (r *Runner) result(statements int, start time.Time) Result {
	entries := r.diags.Entries()
	diags := make([]compiler.Diagnostic, len(entries))
	copy(diags, entries)
	return Result{
		Diagnostics:     diags,
		HadError:        r.diags.HadError(),
		HadRuntimeError: r.diags.HadRuntimeError(),
		Statements:      statements,
		Elapsed:         time.Since(start),
	}
}

// Check runs the static phases on source and returns the diagnostics,
// without an interpreter.
func Check(source string) []compiler.Diagnostic {
	diags := compiler.NewDiagnostics(nil)
	stmts := compiler.Parse(source, diags)
	if !diags.HadError() {
		compiler.Resolve(stmts, diags)
	}
	return diags.Entries()
}
