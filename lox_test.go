package lox

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/chazu/lox/interpreter"
)

func newTestRunner(opts ...Option) (*Runner, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	opts = append([]Option{WithStdout(&stdout), WithStderr(&stderr)}, opts...)
	return NewRunner(opts...), &stdout, &stderr
}

func TestRunExitCodes(t *testing.T) {
	tests := []struct {
		name       string
		source     string
		wantCode   int
		wantStdout string
		wantStderr string
	}{
		{"ok", `print "hi";`, ExitOK, "hi\n", ""},
		{"syntax error", "print 1", ExitDataErr, "", "[line 1] Error at end: Expect ';' after value.\n"},
		{"scan error", "print 1; @", ExitDataErr, "", "[line 1] Error: Unexpected character.\n"},
		{
			"resolve error blocks execution",
			"print 1; return 2;",
			ExitDataErr, "",
			"[line 1] Error at 'return': Can't return from top-level code.\n",
		},
		{
			"return value in init",
			"class Foo { init() { return 1; } }",
			ExitDataErr, "",
			"[line 1] Error at 'return': Can't return a value from an initializer.\n",
		},
		{
			"syntax error inside block",
			"{ var x = ; print 1; }\nprint 2;",
			ExitDataErr, "",
			"[line 1] Error at ';': Expect expression.\n",
		},
		{"runtime error", "print 1; print -nil;", ExitSoftware, "1\n", "Operand must be a number.\n[line 1]\n"},
		{
			"arity",
			"fun add(a, b, c) {}\nadd(1, 2, 3, 4);",
			ExitSoftware, "",
			"Expected 3 arguments but got 4.\n[line 2]\n",
		},
	}

	for _, tc := range tests {
		r, stdout, stderr := newTestRunner()
		res := r.Run(tc.source)
		if got := res.ExitCode(); got != tc.wantCode {
			t.Errorf("%s: exit code = %d, want %d", tc.name, got, tc.wantCode)
		}
		if stdout.String() != tc.wantStdout {
			t.Errorf("%s: stdout = %q, want %q", tc.name, stdout.String(), tc.wantStdout)
		}
		if stderr.String() != tc.wantStderr {
			t.Errorf("%s: stderr = %q, want %q", tc.name, stderr.String(), tc.wantStderr)
		}
	}
}

func TestRunSessionKeepsGlobals(t *testing.T) {
	r, stdout, _ := newTestRunner()

	lines := []struct {
		source string
		ok     bool
	}{
		{"var a = 1;", true},
		{"fun bump() { a = a + 1; return a; }", true},
		{"print bump();", true},
		{"print nope;", false},
		{"print (;", false},
		{"print bump();", true},
	}
	for _, line := range lines {
		res := r.Run(line.source)
		if res.OK() != line.ok {
			t.Errorf("Run(%q): OK = %v, want %v (%v)", line.source, res.OK(), line.ok, res.Diagnostics)
		}
	}

	if stdout.String() != "2\n3\n" {
		t.Errorf("stdout = %q, want %q", stdout.String(), "2\n3\n")
	}
}

func TestRunResolvedLocalsSurviveLaterLines(t *testing.T) {
	r, stdout, _ := newTestRunner()
	r.Run("fun makeCounter() { var i = 0; fun count() { i = i + 1; return i; } return count; }")
	r.Run("var c = makeCounter();")
	r.Run("c();")
	r.Run("print c();")
	if stdout.String() != "2\n" {
		t.Errorf("stdout = %q, want 2", stdout.String())
	}
}

func TestRunnerReset(t *testing.T) {
	r, _, stderr := newTestRunner()
	r.Run("var a = 1;")
	r.Reset()
	res := r.Run("print a;")
	if !res.HadRuntimeError {
		t.Fatalf("after Reset, a should be undefined")
	}
	if stderr.String() != "Undefined variable 'a'.\n[line 1]\n" {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestRunnerCheck(t *testing.T) {
	r, stdout, _ := newTestRunner()
	res := r.Check(`print "never";`)
	if !res.OK() || res.Statements != 1 {
		t.Errorf("Check: %+v", res)
	}
	if stdout.Len() != 0 {
		t.Errorf("Check executed code: %q", stdout.String())
	}

	res = r.Check("{ var a = a; }")
	if !res.HadError || len(res.Diagnostics) != 1 {
		t.Errorf("Check: %+v", res)
	}
}

func TestRunnerMaxDepth(t *testing.T) {
	r, _, stderr := newTestRunner(WithInterpreterOptions(interpreter.WithMaxDepth(50)))
	res := r.Run("fun f(n) { return f(n + 1); } f(0);")
	if res.ExitCode() != ExitSoftware {
		t.Errorf("exit code = %d, want %d", res.ExitCode(), ExitSoftware)
	}
	if stderr.String() != "Stack overflow.\n[line 1]\n" {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestRunnerGlobals(t *testing.T) {
	r, _, _ := newTestRunner()
	r.Run("var zed = 1; class Alpha {}")
	got := r.Globals()
	want := []string{"Alpha", "clock", "zed"}
	if len(got) != len(want) {
		t.Fatalf("Globals() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Globals() = %v, want %v", got, want)
			break
		}
	}
}

func TestCheck(t *testing.T) {
	if diags := Check("var a = 1; print a;"); len(diags) != 0 {
		t.Errorf("Check: unexpected %v", diags)
	}
	diags := Check("print this;\nreturn;")
	if len(diags) != 2 || diags[1].Line != 2 {
		t.Errorf("Check: got %v", diags)
	}
}

func TestRunContextStopsRunawayProgram(t *testing.T) {
	r, stdout, stderr := newTestRunner()
	r.Run("var n = 0;")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	res := r.RunContext(ctx, "while (true) { n = n + 1; }")
	if res.ExitCode() != ExitSoftware {
		t.Errorf("exit code = %d, want %d", res.ExitCode(), ExitSoftware)
	}
	if stderr.String() != "Interrupted.\n[line 1]\n" {
		t.Errorf("stderr = %q", stderr.String())
	}

	// Globals survive, and later runs are not interrupted.
	if res := r.Run("print n > 0;"); !res.OK() || stdout.String() != "true\n" {
		t.Errorf("after interrupt: ok %v, stdout %q", res.OK(), stdout.String())
	}
}
