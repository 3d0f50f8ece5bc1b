package interpreter

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chazu/lox/compiler"
)

// runSource parses, resolves and interprets source on in, returning what was
// printed and what was reported.
func runSource(t *testing.T, in *Interpreter, out *bytes.Buffer, source string) (string, string, error) {
	t.Helper()
	var errs bytes.Buffer
	diags := compiler.NewDiagnostics(&errs)

	stmts := compiler.Parse(source, diags)
	locals := compiler.Resolve(stmts, diags)
	if diags.HadError() {
		t.Fatalf("static errors in %q: %s", source, errs.String())
	}
	in.Resolve(locals)

	out.Reset()
	err := in.Interpret(stmts, diags)
	return out.String(), errs.String(), err
}

func interpret(t *testing.T, source string, opts ...Option) (string, string, error) {
	t.Helper()
	var out bytes.Buffer
	in := New(append([]Option{WithOutput(&out)}, opts...)...)
	return runSource(t, in, &out, source)
}

func assertOutput(t *testing.T, source, want string) {
	t.Helper()
	got, errs, err := interpret(t, source)
	if err != nil {
		t.Errorf("%q: unexpected error %v (%s)", source, err, errs)
		return
	}
	if got != want {
		t.Errorf("%q: got %q, want %q", source, got, want)
	}
}

func TestExpressions(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"print 1 == 1;", "true\n"},
		{"print 1 == 2;", "false\n"},
		{`print "1" == "1";`, "true\n"},
		{`print 1 == "1";`, "false\n"},
		{`print 1 != "1";`, "true\n"},
		{"print nil == nil;", "true\n"},
		{"print nil == false;", "false\n"},
		{"print 2 > 1;", "true\n"},
		{"print 1 >= 1;", "true\n"},
		{"print 1 < 1;", "false\n"},
		{"print 0 <= 1;", "true\n"},
		{"print 1 + 2;", "3\n"},
		{"print 1 - 2;", "-1\n"},
		{"print 1.5 + 1;", "2.5\n"},
		{"print 0.5 * 3;", "1.5\n"},
		{"print 6 / 2;", "3\n"},
		{"print 5 / 2;", "2.5\n"},
		{"print (4 / 2) + 5;", "7\n"},
		{"print -(3);", "-3\n"},
		{`print "con" + "cat";`, "concat\n"},
		{"print nil;", "nil\n"},
		{"print 1.75;", "1.75\n"},
		{"print !nil;", "true\n"},
		{"print !0;", "false\n"},
		{`print !"";`, "false\n"},
		{`print "hi" or 2;`, "hi\n"},
		{`print nil or "yes";`, "yes\n"},
		{"print false and 1;", "false\n"},
		{"print 1 and 2;", "2\n"},
		{"print true or false and true;", "true\n"},
	}

	for _, tc := range tests {
		assertOutput(t, tc.source, tc.want)
	}
}

func TestFloatingPoint(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"print 1 / 0;", "Infinity\n"},
		{"print -1 / 0;", "-Infinity\n"},
		{"print 0 / 0;", "NaN\n"},
		{"var n = 0 / 0; print n == n;", "false\n"},
		{"print 0.1 + 0.2;", "0.30000000000000004\n"},
		{"print 1000000 * 1000000;", "1000000000000\n"},
	}

	for _, tc := range tests {
		assertOutput(t, tc.source, tc.want)
	}
}

func TestShortCircuit(t *testing.T) {
	source := `
var called = false;
fun f() { called = true; return true; }
print false and f();
print true or f();
print called;`
	assertOutput(t, source, "false\ntrue\nfalse\n")
}

func TestBlockScope(t *testing.T) {
	source := `
var a = "global a";
var b = "global b";
var c = "global c";
{
  var a = "outer a";
  var b = "outer b";
  {
    var a = "inner a";
    print a;
    print b;
    print c;
  }
  print a;
  print b;
  print c;
}
print a;
print b;
print c;`
	want := "inner a\nouter b\nglobal c\nouter a\nouter b\nglobal c\nglobal a\nglobal b\nglobal c\n"
	assertOutput(t, source, want)
}

func TestControlFlow(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{`if (true) print "yes"; else print "no";`, "yes\n"},
		{`if (false) print "yes"; else print "no";`, "no\n"},
		{`if (nil) print "yes";`, ""},
		{"var i = 0; while (i < 5) i = i + 1; print i;", "5\n"},
		{"for (var i = 0; i < 3; i = i + 1) print i;", "0\n1\n2\n"},
		{"var a = 1; { a = a + 2; } print a;", "3\n"},
	}

	for _, tc := range tests {
		assertOutput(t, tc.source, tc.want)
	}
}

func TestForFibonacci(t *testing.T) {
	source := `
var a = 0;
var temp;

for (var b = 1; a < 10000; b = temp + b) {
  print a;
  temp = a;
  a = b;
}`
	want := "0\n1\n1\n2\n3\n5\n8\n13\n21\n34\n55\n89\n144\n233\n377\n610\n987\n1597\n2584\n4181\n6765\n"
	assertOutput(t, source, want)
}

func TestFunctions(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"fun add(a, b) { return a + b; } print add(1, 2);", "3\n"},
		{"fun f() {} print f();", "nil\n"},
		{"fun f() { return; } print f();", "nil\n"},
		{"fun f() {} print f;", "<fn f>\n"},
		{"print clock;", "<native fn>\n"},
		{
			"fun fib(n) { if (n < 2) return n; return fib(n - 1) + fib(n - 2); } print fib(15);",
			"610\n",
		},
		{
			"fun f() { while (true) { return 1; } } print f();",
			"1\n",
		},
		{
			"fun f() { for (var i = 0; ; i = i + 1) { if (i == 3) return i; } } print f();",
			"3\n",
		},
	}

	for _, tc := range tests {
		assertOutput(t, tc.source, tc.want)
	}
}

func TestClosures(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{
			name: "static binding",
			source: `
var a = "global";
{
  fun showA() {
    print a;
  }

  showA();
  var a = "block";
  showA();
}`,
			want: "global\nglobal\n",
		},
		{
			name: "counter",
			source: `
fun makeCounter() {
  var i = 0;
  fun count() {
    i = i + 1;
    print i;
  }
  return count;
}

var counter = makeCounter();
counter();
counter();`,
			want: "1\n2\n",
		},
		{
			name: "shared environment",
			source: `
var get;
var set;
{
  var x = "before";
  fun g() { return x; }
  fun s(v) { x = v; }
  get = g;
  set = s;
}
set("after");
print get();`,
			want: "after\n",
		},
	}

	for _, tc := range tests {
		got, errs, err := interpret(t, tc.source)
		if err != nil {
			t.Errorf("%s: unexpected error %v (%s)", tc.name, err, errs)
			continue
		}
		if got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestClasses(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"class prints by name", "class Foo {} print Foo;", "Foo\n"},
		{"instance", "class Foo {} print Foo();", "Foo instance\n"},
		{
			"fields",
			"class Box {} var b = Box(); b.value = 3; print b.value;",
			"3\n",
		},
		{
			"methods and this",
			`class Cake {
  taste() {
    var adjective = "delicious";
    print "The " + this.flavor + " cake is " + adjective + "!";
  }
}
var cake = Cake();
cake.flavor = "German chocolate";
cake.taste();`,
			"The German chocolate cake is delicious!\n",
		},
		{
			"bound method keeps this",
			`class Person {
  init(name) { this.name = name; }
  sayName() { print this.name; }
}
var jane = Person("Jane");
var method = jane.sayName;
method();`,
			"Jane\n",
		},
		{
			"init bare return",
			`class Foo {
  init() { return; }
}
print Foo();`,
			"Foo instance\n",
		},
		{
			"calling init again returns this",
			`class Foo {
  init() { this.x = 1; }
}
var foo = Foo();
print foo.init();`,
			"Foo instance\n",
		},
		{
			"fields shadow methods",
			`class A { m() { return "method"; } }
var a = A();
a.m = "field";
print a.m;`,
			"field\n",
		},
		{
			"class arity",
			`class Point { init(x, y) { this.x = x; this.y = y; } }
var p = Point(1, 2);
print p.x + p.y;`,
			"3\n",
		},
	}

	for _, tc := range tests {
		got, errs, err := interpret(t, tc.source)
		if err != nil {
			t.Errorf("%s: unexpected error %v (%s)", tc.name, err, errs)
			continue
		}
		if got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestInheritance(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{
			"inherited method",
			`class Doughnut {
  cook() { print "Fry until golden brown."; }
}
class BostonCream < Doughnut {}
BostonCream().cook();`,
			"Fry until golden brown.\n",
		},
		{
			"super call",
			`class Doughnut {
  cook() { print "Fry until golden brown."; }
}
class BostonCream < Doughnut {
  cook() {
    super.cook();
    print "Pipe full of custard and coat with chocolate.";
  }
}
BostonCream().cook();`,
			"Fry until golden brown.\nPipe full of custard and coat with chocolate.\n",
		},
		{
			"super binds statically",
			`class A {
  method() { print "A method"; }
}
class B < A {
  method() { print "B method"; }
  test() { super.method(); }
}
class C < B {}
C().test();`,
			"A method\n",
		},
		{
			"inherited init",
			`class A { init(x) { this.x = x; } }
class B < A {}
print B(7).x;`,
			"7\n",
		},
		{
			"super init",
			`class A { init(x) { this.x = x; } }
class B < A { init() { super.init(5); this.y = 6; } }
var b = B();
print b.x + b.y;`,
			"11\n",
		},
	}

	for _, tc := range tests {
		got, errs, err := interpret(t, tc.source)
		if err != nil {
			t.Errorf("%s: unexpected error %v (%s)", tc.name, err, errs)
			continue
		}
		if got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestRuntimeErrors(t *testing.T) {
	tests := []struct {
		source  string
		wantOut string
		wantErr string
	}{
		{`5 > "string";`, "", "Operands must be numbers.\n[line 1]\n"},
		{`1 + "1";`, "", "Operands must be two numbers or two strings.\n[line 1]\n"},
		{`-"a";`, "", "Operand must be a number.\n[line 1]\n"},
		{"print x;", "", "Undefined variable 'x'.\n[line 1]\n"},
		{"x = 1;", "", "Undefined variable 'x'.\n[line 1]\n"},
		{`"a"();`, "", "Can only call functions and classes.\n[line 1]\n"},
		{"var a = 1; a.b;", "", "Only instances have properties.\n[line 1]\n"},
		{"var a = 1; a.b = 2;", "", "Only instances have fields.\n[line 1]\n"},
		{"class A {} A().x;", "", "Undefined property 'x'.\n[line 1]\n"},
		{"var B = 1; class A < B {}", "", "Superclass must be a class.\n[line 1]\n"},
		{
			"class A {} class B < A { m() { return super.m(); } } B().m();",
			"", "Undefined property 'm'.\n[line 1]\n",
		},
		{
			"fun add(a, b, c) { print a + b + c; }\nadd(1, 2, 3, 4);",
			"", "Expected 3 arguments but got 4.\n[line 2]\n",
		},
		{"class A {} A(1);", "", "Expected 0 arguments but got 1.\n[line 1]\n"},
		{"print 1;\n\nprint nil + 1;\nprint 2;", "1\n", "Operands must be two numbers or two strings.\n[line 3]\n"},
	}

	for _, tc := range tests {
		out, errs, err := interpret(t, tc.source)
		var rerr *RuntimeError
		if !errors.As(err, &rerr) {
			t.Errorf("%q: got error %v, want *RuntimeError", tc.source, err)
			continue
		}
		if out != tc.wantOut {
			t.Errorf("%q: stdout = %q, want %q", tc.source, out, tc.wantOut)
		}
		if errs != tc.wantErr {
			t.Errorf("%q: stderr = %q, want %q", tc.source, errs, tc.wantErr)
		}
	}
}

func TestStackOverflow(t *testing.T) {
	_, errs, err := interpret(t, "fun f() { f(); }\nf();", WithMaxDepth(100))
	if !errors.Is(err, ErrStackOverflow) {
		t.Fatalf("got %v, want ErrStackOverflow", err)
	}
	if errs != "Stack overflow.\n[line 1]\n" {
		t.Errorf("stderr = %q", errs)
	}
}

func TestDeepRecursionWithinLimit(t *testing.T) {
	source := "fun count(n) { if (n == 0) return 0; return 1 + count(n - 1); } print count(500);"
	got, _, err := interpret(t, source, WithMaxDepth(1000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "500\n" {
		t.Errorf("got %q", got)
	}
}

func TestClockNative(t *testing.T) {
	fixed := Clock(func() time.Time { return time.Unix(1660338499, 0) })
	got, _, err := interpret(t, "print clock();", WithNatives(fixed))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "1660338499\n" {
		t.Errorf("got %q", got)
	}
}

func TestNativeError(t *testing.T) {
	failing := &Native{
		Name: "fail",
		Fn: func([]Value) (Value, error) {
			return nil, errors.New("native failure")
		},
	}
	_, errs, err := interpret(t, "\nfail();", WithNatives(failing))
	var rerr *RuntimeError
	if !errors.As(err, &rerr) {
		t.Fatalf("got %v, want *RuntimeError", err)
	}
	if errs != "native failure\n[line 2]\n" {
		t.Errorf("stderr = %q", errs)
	}
}

func TestGlobalsPersistAcrossRuns(t *testing.T) {
	var out bytes.Buffer
	in := New(WithOutput(&out))

	if _, _, err := runSource(t, in, &out, "var a = 1; fun inc() { a = a + 1; }"); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, _, err := runSource(t, in, &out, "inc(); print undefined;"); err == nil {
		t.Fatalf("second run: want runtime error")
	}
	got, _, err := runSource(t, in, &out, "inc(); print a;")
	if err != nil {
		t.Fatalf("third run: %v", err)
	}
	if got != "3\n" {
		t.Errorf("got %q, want 3", got)
	}

	names := in.Globals().Names()
	want := []string{"a", "clock", "inc"}
	if len(names) != len(want) {
		t.Fatalf("globals = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("globals = %v, want %v", names, want)
			break
		}
	}
}

func TestStringify(t *testing.T) {
	class := &Class{Name: "Foo"}
	tests := []struct {
		value Value
		want  string
	}{
		{nil, "nil"},
		{true, "true"},
		{3.0, "3"},
		{-0.5, "-0.5"},
		{"text", "text"},
		{class, "Foo"},
		{&Instance{Class: class}, "Foo instance"},
	}

	for _, tc := range tests {
		if got := Stringify(tc.value); got != tc.want {
			t.Errorf("Stringify(%v) = %q, want %q", tc.value, got, tc.want)
		}
	}
}

func TestInterpretContextInterrupts(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		ctx     func() (context.Context, context.CancelFunc)
		wantErr error
		wantLog string
	}{
		{
			name:   "cancelled loop",
			source: "while (true) {}",
			ctx: func() (context.Context, context.CancelFunc) {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx, cancel
			},
			wantErr: context.Canceled,
			wantLog: "Interrupted.\n[line 1]\n",
		},
		{
			name:   "deadline in for loop",
			source: "var i = 0;\nfor (;;) { i = i + 1; }",
			ctx: func() (context.Context, context.CancelFunc) {
				return context.WithTimeout(context.Background(), 20*time.Millisecond)
			},
			wantErr: context.DeadlineExceeded,
			wantLog: "Interrupted.\n[line 2]\n",
		},
		{
			name:   "cancelled call",
			source: "fun f() {}\nf();",
			ctx: func() (context.Context, context.CancelFunc) {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx, cancel
			},
			wantErr: context.Canceled,
			wantLog: "Interrupted.\n[line 2]\n",
		},
	}

	for _, tc := range tests {
		var out, errs bytes.Buffer
		in := New(WithOutput(&out))
		diags := compiler.NewDiagnostics(&errs)
		stmts := compiler.Parse(tc.source, diags)
		in.Resolve(compiler.Resolve(stmts, diags))

		ctx, cancel := tc.ctx()
		err := in.InterpretContext(ctx, stmts, diags)
		cancel()

		if !errors.Is(err, ErrInterrupted) || !errors.Is(err, tc.wantErr) {
			t.Errorf("%s: got %v, want ErrInterrupted wrapping %v", tc.name, err, tc.wantErr)
		}
		if errs.String() != tc.wantLog {
			t.Errorf("%s: stderr = %q, want %q", tc.name, errs.String(), tc.wantLog)
		}
		if !diags.HadRuntimeError() {
			t.Errorf("%s: HadRuntimeError = false", tc.name)
		}

		// The interpreter is usable again with a fresh context.
		got, _, err := runSource(t, in, &out, "print 1;")
		if err != nil || got != "1\n" {
			t.Errorf("%s: after interrupt got %q, %v", tc.name, got, err)
		}
	}
}
