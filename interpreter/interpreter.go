package interpreter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/chazu/lox/compiler"
)

// DefaultMaxDepth is the default limit on nested calls.
const DefaultMaxDepth = 10000

// flow is the completion of a statement: either normal, or a `return`
// unwinding to the nearest call with its value.
type flow struct {
	returning bool
	value     Value
}

var normal = flow{}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithOutput directs `print` to w instead of standard output.
func WithOutput(w io.Writer) Option {
	return func(in *Interpreter) { in.out = w }
}

// WithMaxDepth limits nested calls; deeper calls fail with "Stack overflow.".
// Values below one are ignored.
func WithMaxDepth(depth int) Option {
	return func(in *Interpreter) {
		if depth > 0 {
			in.maxDepth = depth
		}
	}
}

// WithNatives defines additional native functions as globals, after the
// built-in ones.
func WithNatives(natives ...*Native) Option {
	return func(in *Interpreter) {
		for _, n := range natives {
			in.globals.Define(n.Name, n)
		}
	}
}

// Interpreter executes resolved Lox programs. Globals persist across calls to
// Interpret, so one Interpreter can serve a whole REPL session.
type Interpreter struct {
	globals  *Environment
	env      *Environment
	locals   compiler.Locals
	out      io.Writer
	maxDepth int
	depth    int
	ctx      context.Context
}

// New creates an interpreter with the built-in natives defined.
func New(opts ...Option) *Interpreter {
	globals := NewEnvironment(nil)
	in := &Interpreter{
		globals:  globals,
		env:      globals,
		locals:   make(compiler.Locals),
		out:      os.Stdout,
		maxDepth: DefaultMaxDepth,
		ctx:      context.Background(),
	}
	for _, n := range builtins() {
		globals.Define(n.Name, n)
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Globals returns the global environment.
func (in *Interpreter) Globals() *Environment { return in.globals }

// Resolve adds resolver output to the interpreter's side table. Entries from
// earlier programs stay valid because they are keyed by node identity.
func (in *Interpreter) Resolve(locals compiler.Locals) {
	in.locals.Merge(locals)
}

// Interpret executes stmts in order. The first runtime error stops
// execution; it is reported to reporter (when non-nil) and returned.
func (in *Interpreter) Interpret(stmts []compiler.Stmt, reporter compiler.Reporter) error {
	return in.InterpretContext(context.Background(), stmts, reporter)
}

// InterpretContext is Interpret, but stops with "Interrupted." once ctx is
// done. Cancellation is checked on every loop iteration and call.
func (in *Interpreter) InterpretContext(ctx context.Context, stmts []compiler.Stmt, reporter compiler.Reporter) error {
	in.ctx = ctx
	defer func() { in.ctx = context.Background() }()

	for _, stmt := range stmts {
		if _, err := in.execute(stmt); err != nil {
			in.env = in.globals
			in.depth = 0

			var rerr *RuntimeError
			if !errors.As(err, &rerr) {
				return err
			}
			if reporter != nil {
				reporter.ReportRuntime(rerr.Token, rerr.Message)
			}
			return rerr
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (in *Interpreter) execute(stmt compiler.Stmt) (flow, error) {
	switch s := stmt.(type) {
	case *compiler.Block:
		return in.executeBlock(s.Statements, NewEnvironment(in.env))

	case *compiler.Class:
		return normal, in.executeClass(s)

	case *compiler.Expression:
		_, err := in.evaluate(s.Expression)
		return normal, err

	case *compiler.Function:
		fn := &Function{Declaration: s, Closure: in.env}
		in.env.Define(s.Name.Lexeme, fn)
		return normal, nil

	case *compiler.If:
		cond, err := in.evaluate(s.Condition)
		if err != nil {
			return normal, err
		}
		if IsTruthy(cond) {
			return in.execute(s.Then)
		}
		if s.Else != nil {
			return in.execute(s.Else)
		}
		return normal, nil

	case *compiler.Print:
		v, err := in.evaluate(s.Expression)
		if err != nil {
			return normal, err
		}
		fmt.Fprintln(in.out, Stringify(v))
		return normal, nil

	case *compiler.Return:
		var value Value
		if s.Value != nil {
			v, err := in.evaluate(s.Value)
			if err != nil {
				return normal, err
			}
			value = v
		}
		return flow{returning: true, value: value}, nil

	case *compiler.Var:
		var value Value
		if s.Initializer != nil {
			v, err := in.evaluate(s.Initializer)
			if err != nil {
				return normal, err
			}
			value = v
		}
		in.env.Define(s.Name.Lexeme, value)
		return normal, nil

	case *compiler.While:
		for {
			if err := in.interrupted(s.Keyword); err != nil {
				return normal, err
			}
			cond, err := in.evaluate(s.Condition)
			if err != nil {
				return normal, err
			}
			if !IsTruthy(cond) {
				return normal, nil
			}
			result, err := in.execute(s.Body)
			if err != nil || result.returning {
				return result, err
			}
		}
	}
	panic(fmt.Sprintf("interpreter: unexpected statement %T", stmt))
}

// interrupted reports a cancelled context as a runtime error at tok.
func (in *Interpreter) interrupted(tok compiler.Token) error {
	if err := in.ctx.Err(); err != nil {
		return &RuntimeError{Token: tok, Message: "Interrupted.", cause: fmt.Errorf("%w: %w", ErrInterrupted, err)}
	}
	return nil
}

// executeBlock runs stmts in env and restores the current environment
// afterwards, whether the block completes, returns or fails.
func (in *Interpreter) executeBlock(stmts []compiler.Stmt, env *Environment) (flow, error) {
	previous := in.env
	in.env = env
	defer func() { in.env = previous }()

	for _, stmt := range stmts {
		result, err := in.execute(stmt)
		if err != nil || result.returning {
			return result, err
		}
	}
	return normal, nil
}

func (in *Interpreter) executeClass(s *compiler.Class) error {
	var superclass *Class
	if s.Superclass != nil {
		v, err := in.evaluate(s.Superclass)
		if err != nil {
			return err
		}
		sc, ok := v.(*Class)
		if !ok {
			return NewRuntimeError(s.Superclass.Name, "Superclass must be a class.")
		}
		superclass = sc
	}

	in.env.Define(s.Name.Lexeme, nil)

	// Methods of a subclass close over an extra scope holding `super`.
	closure := in.env
	if superclass != nil {
		closure = NewEnvironment(in.env)
		closure.Define("super", superclass)
	}

	methods := make(map[string]*Function, len(s.Methods))
	for _, m := range s.Methods {
		methods[m.Name.Lexeme] = &Function{
			Declaration:   m,
			Closure:       closure,
			IsInitializer: m.Name.Lexeme == "init",
		}
	}

	class := &Class{Name: s.Name.Lexeme, Superclass: superclass, Methods: methods}
	return in.env.Assign(s.Name, class)
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (in *Interpreter) evaluate(expr compiler.Expr) (Value, error) {
	switch e := expr.(type) {
	case *compiler.Literal:
		return e.Value, nil

	case *compiler.Grouping:
		return in.evaluate(e.Expression)

	case *compiler.Variable:
		return in.lookUpVariable(e.Name, e)

	case *compiler.Assign:
		value, err := in.evaluate(e.Value)
		if err != nil {
			return nil, err
		}
		if distance, ok := in.locals[e]; ok {
			in.env.AssignAt(distance, e.Name, value)
			return value, nil
		}
		if err := in.globals.Assign(e.Name, value); err != nil {
			return nil, err
		}
		return value, nil

	case *compiler.Unary:
		return in.evaluateUnary(e)

	case *compiler.Binary:
		return in.evaluateBinary(e)

	case *compiler.Logical:
		left, err := in.evaluate(e.Left)
		if err != nil {
			return nil, err
		}
		if e.Operator.Type == compiler.TokenOr {
			if IsTruthy(left) {
				return left, nil
			}
		} else if !IsTruthy(left) {
			return left, nil
		}
		return in.evaluate(e.Right)

	case *compiler.Call:
		return in.evaluateCall(e)

	case *compiler.Get:
		object, err := in.evaluate(e.Object)
		if err != nil {
			return nil, err
		}
		instance, ok := object.(*Instance)
		if !ok {
			return nil, NewRuntimeError(e.Name, "Only instances have properties.")
		}
		return instance.Get(e.Name)

	case *compiler.Set:
		object, err := in.evaluate(e.Object)
		if err != nil {
			return nil, err
		}
		instance, ok := object.(*Instance)
		if !ok {
			return nil, NewRuntimeError(e.Name, "Only instances have fields.")
		}
		value, err := in.evaluate(e.Value)
		if err != nil {
			return nil, err
		}
		instance.Set(e.Name, value)
		return value, nil

	case *compiler.This:
		return in.lookUpVariable(e.Keyword, e)

	case *compiler.Super:
		return in.evaluateSuper(e)
	}
	panic(fmt.Sprintf("interpreter: unexpected expression %T", expr))
}

func (in *Interpreter) lookUpVariable(name compiler.Token, expr compiler.Expr) (Value, error) {
	if distance, ok := in.locals[expr]; ok {
		return in.env.GetAt(distance, name.Lexeme), nil
	}
	return in.globals.Get(name)
}

func (in *Interpreter) evaluateUnary(e *compiler.Unary) (Value, error) {
	right, err := in.evaluate(e.Right)
	if err != nil {
		return nil, err
	}
	switch e.Operator.Type {
	case compiler.TokenBang:
		return !IsTruthy(right), nil
	case compiler.TokenMinus:
		n, ok := right.(float64)
		if !ok {
			return nil, NewRuntimeError(e.Operator, "Operand must be a number.")
		}
		return -n, nil
	}
	return nil, NewRuntimeError(e.Operator, "Unknown unary operator.")
}

func (in *Interpreter) evaluateBinary(e *compiler.Binary) (Value, error) {
	left, err := in.evaluate(e.Left)
	if err != nil {
		return nil, err
	}
	right, err := in.evaluate(e.Right)
	if err != nil {
		return nil, err
	}

	switch e.Operator.Type {
	case compiler.TokenEqualEqual:
		return IsEqual(left, right), nil
	case compiler.TokenBangEqual:
		return !IsEqual(left, right), nil
	case compiler.TokenPlus:
		switch l := left.(type) {
		case float64:
			if r, ok := right.(float64); ok {
				return l + r, nil
			}
		case string:
			if r, ok := right.(string); ok {
				return l + r, nil
			}
		}
		return nil, NewRuntimeError(e.Operator, "Operands must be two numbers or two strings.")
	}

	l, lok := left.(float64)
	r, rok := right.(float64)
	if !lok || !rok {
		return nil, NewRuntimeError(e.Operator, "Operands must be numbers.")
	}
	switch e.Operator.Type {
	case compiler.TokenMinus:
		return l - r, nil
	case compiler.TokenStar:
		return l * r, nil
	case compiler.TokenSlash:
		return l / r, nil
	case compiler.TokenGreater:
		return l > r, nil
	case compiler.TokenGreaterEqual:
		return l >= r, nil
	case compiler.TokenLess:
		return l < r, nil
	case compiler.TokenLessEqual:
		return l <= r, nil
	}
	return nil, NewRuntimeError(e.Operator, "Unknown binary operator.")
}

func (in *Interpreter) evaluateCall(e *compiler.Call) (Value, error) {
	callee, err := in.evaluate(e.Callee)
	if err != nil {
		return nil, err
	}
	args := make([]Value, 0, len(e.Arguments))
	for _, arg := range e.Arguments {
		v, err := in.evaluate(arg)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}

	fn, ok := callee.(Callable)
	if !ok {
		return nil, NewRuntimeError(e.Paren, "Can only call functions and classes.")
	}
	if len(args) != fn.Arity() {
		return nil, NewRuntimeError(e.Paren, "Expected %d arguments but got %d.", fn.Arity(), len(args))
	}

	if err := in.interrupted(e.Paren); err != nil {
		return nil, err
	}
	if in.depth >= in.maxDepth {
		return nil, &RuntimeError{Token: e.Paren, Message: "Stack overflow.", cause: ErrStackOverflow}
	}
	in.depth++
	defer func() { in.depth-- }()

	result, err := fn.Call(in, args)
	if err != nil {
		var rerr *RuntimeError
		if errors.As(err, &rerr) {
			return nil, err
		}
		// Natives may fail with plain errors; pin them to the call site.
		return nil, &RuntimeError{Token: e.Paren, Message: err.Error(), cause: err}
	}
	return result, nil
}

func (in *Interpreter) evaluateSuper(e *compiler.Super) (Value, error) {
	distance, ok := in.locals[e]
	if !ok {
		return nil, NewRuntimeError(e.Keyword, "Can't use 'super' outside of a class.")
	}
	superclass, _ := in.env.GetAt(distance, "super").(*Class)
	// `this` is always bound one scope inside `super`.
	instance, _ := in.env.GetAt(distance-1, "this").(*Instance)
	if superclass == nil || instance == nil {
		return nil, NewRuntimeError(e.Keyword, "Can't use 'super' outside of a class.")
	}

	method := superclass.FindMethod(e.Method.Lexeme)
	if method == nil {
		return nil, NewRuntimeError(e.Method, "Undefined property '%s'.", e.Method.Lexeme)
	}
	return method.Bind(instance), nil
}
