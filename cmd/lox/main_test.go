package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/lox"
)

// writeLoxFile writes a .lox source file into the given directory and returns
// its path.
func writeLoxFile(t *testing.T, dir, name, source string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(source), 0644); err != nil {
		t.Fatalf("writing %s: %v", p, err)
	}
	return p
}

func runCLI(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunScript(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name       string
		source     string
		wantCode   int
		wantStdout string
		wantStderr string
	}{
		{
			"fibonacci",
			`var a = 0;
var temp;
for (var b = 1; a < 100; b = temp + b) {
  print a;
  temp = a;
  a = b;
}`,
			lox.ExitOK, "0\n1\n1\n2\n3\n5\n8\n13\n21\n34\n55\n89\n", "",
		},
		{
			"static error",
			"print 1;\nvar = 2;",
			lox.ExitDataErr, "", "[line 2] Error at '=': Expect variable name.\n",
		},
		{
			"closures",
			`var a = "global";
{
  fun showA() { print a; }
  showA();
  var a = "block";
  showA();
}`,
			lox.ExitOK, "global\nglobal\n", "",
		},
		{
			"init bare return",
			`class Foo { init() { return; } }
print Foo();`,
			lox.ExitOK, "Foo instance\n", "",
		},
		{
			"arity",
			`fun add(a, b, c) { print a + b + c; }
add(1, 2, 3, 4);`,
			lox.ExitSoftware, "", "Expected 3 arguments but got 4.\n[line 2]\n",
		},
	}

	for _, tc := range tests {
		path := writeLoxFile(t, dir, tc.name+".lox", tc.source)
		code, stdout, stderr := runCLI(path)
		if code != tc.wantCode {
			t.Errorf("%s: exit = %d, want %d (stderr %q)", tc.name, code, tc.wantCode, stderr)
		}
		if stdout != tc.wantStdout {
			t.Errorf("%s: stdout = %q, want %q", tc.name, stdout, tc.wantStdout)
		}
		if tc.wantStderr != "" && stderr != tc.wantStderr {
			t.Errorf("%s: stderr = %q, want %q", tc.name, stderr, tc.wantStderr)
		}
	}
}

func TestRunMissingScript(t *testing.T) {
	code, _, stderr := runCLI(filepath.Join(t.TempDir(), "nope.lox"))
	if code != lox.ExitNoInput {
		t.Errorf("exit = %d, want %d", code, lox.ExitNoInput)
	}
	if !strings.Contains(stderr, "cannot read") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestRunUsage(t *testing.T) {
	if code, _, _ := runCLI("a.lox", "b.lox"); code != lox.ExitUsage {
		t.Errorf("two scripts: exit = %d, want %d", code, lox.ExitUsage)
	}
	if code, _, _ := runCLI("-no-such-flag"); code != lox.ExitUsage {
		t.Errorf("unknown flag: exit = %d, want %d", code, lox.ExitUsage)
	}
}

func TestDumpTokens(t *testing.T) {
	path := writeLoxFile(t, t.TempDir(), "t.lox", "var x = 1;")
	code, stdout, _ := runCLI("-tokens", path)
	if code != lox.ExitOK {
		t.Fatalf("exit = %d", code)
	}
	want := "VAR var\nIDENTIFIER x\nEQUAL =\nNUMBER 1 1\nSEMICOLON ;\nEOF \n"
	if stdout != want {
		t.Errorf("tokens = %q, want %q", stdout, want)
	}
}

func TestDumpAST(t *testing.T) {
	path := writeLoxFile(t, t.TempDir(), "t.lox", "print -123 * (45.67);")
	code, stdout, _ := runCLI("-ast", path)
	if code != lox.ExitOK {
		t.Fatalf("exit = %d", code)
	}
	if stdout != "(print (* (- 123.0) (group 45.67)))\n" {
		t.Errorf("ast = %q", stdout)
	}

	path = writeLoxFile(t, t.TempDir(), "bad.lox", "print ;")
	if code, _, _ := runCLI("-ast", path); code != lox.ExitDataErr {
		t.Errorf("bad ast: exit = %d, want %d", code, lox.ExitDataErr)
	}
}

func TestCheckDoesNotRun(t *testing.T) {
	path := writeLoxFile(t, t.TempDir(), "t.lox", `print "side effect"; print -nil;`)
	code, stdout, _ := runCLI("-check", path)
	if code != lox.ExitOK || stdout != "" {
		t.Errorf("check: exit = %d, stdout = %q", code, stdout)
	}
}

func TestManifestEntryAndDepth(t *testing.T) {
	dir := t.TempDir()
	writeLoxFile(t, dir, "lox.toml", "[project]\nentry = \"main.lox\"\n\n[interpreter]\nmax-call-depth = 20\n")
	writeLoxFile(t, dir, "main.lox", "fun f(n) { if (n > 0) f(n - 1); }\nf(50);\n")

	// The manifest is found from the script's directory.
	code, _, stderr := runCLI(filepath.Join(dir, "main.lox"))
	if code != lox.ExitSoftware || !strings.HasPrefix(stderr, "Stack overflow.") {
		t.Errorf("exit = %d, stderr = %q", code, stderr)
	}

	// A flag overrides the manifest.
	code, _, stderr = runCLI("-max-depth", "100", filepath.Join(dir, "main.lox"))
	if code != lox.ExitOK {
		t.Errorf("with -max-depth: exit = %d, stderr = %q", code, stderr)
	}
}

func TestInvalidManifest(t *testing.T) {
	dir := t.TempDir()
	writeLoxFile(t, dir, "lox.toml", "[interpreter]\nmax-call-depth = -1\n")
	path := writeLoxFile(t, dir, "main.lox", "print 1;")

	code, _, stderr := runCLI(path)
	if code != lox.ExitUsage {
		t.Errorf("exit = %d, want %d", code, lox.ExitUsage)
	}
	if !strings.Contains(stderr, "invalid manifest") {
		t.Errorf("stderr = %q", stderr)
	}
}
