package compiler

// ---------------------------------------------------------------------------
// Resolver: static scope resolution
// ---------------------------------------------------------------------------

// Locals maps each resolved Variable, Assign, This and Super node to the
// number of environments between its use and its declaration. Nodes absent
// from the table are globals.
type Locals map[Expr]int

// Merge copies every entry of other into l.
func (l Locals) Merge(other Locals) {
	for expr, depth := range other {
		l[expr] = depth
	}
}

type functionKind int

const (
	functionNone functionKind = iota
	functionFunction
	functionInitializer
	functionMethod
)

type classKind int

const (
	classNone classKind = iota
	classClass
	classSubclass
)

// Resolver walks the AST once, before execution, computing Locals and
// reporting static errors. It never executes code and continues past errors.
type Resolver struct {
	reporter Reporter
	locals   Locals

	// Innermost scope last. A false value means declared but not yet
	// initialized.
	scopes []map[string]bool

	currentFunction functionKind
	currentClass    classKind
}

// NewResolver creates a resolver reporting to reporter. A nil reporter
// discards errors.
func NewResolver(reporter Reporter) *Resolver {
	if reporter == nil {
		reporter = NewDiagnostics(nil)
	}
	return &Resolver{reporter: reporter, locals: make(Locals)}
}

// Resolve resolves stmts and returns the side table accumulated so far.
func (r *Resolver) Resolve(stmts []Stmt) Locals {
	for _, stmt := range stmts {
		r.resolveStmt(stmt)
	}
	return r.locals
}

// Resolve is a convenience wrapper around NewResolver(reporter).Resolve(stmts).
func Resolve(stmts []Stmt, reporter Reporter) Locals {
	return NewResolver(reporter).Resolve(stmts)
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (r *Resolver) resolveStmt(stmt Stmt) {
	switch s := stmt.(type) {
	case *Block:
		r.beginScope()
		r.Resolve(s.Statements)
		r.endScope()

	case *Class:
		r.resolveClass(s)

	case *Expression:
		r.resolveExpr(s.Expression)

	case *Function:
		// Declared and defined before the body so it can recurse.
		r.declare(s.Name)
		r.define(s.Name)
		r.resolveFunction(s, functionFunction)

	case *If:
		r.resolveExpr(s.Condition)
		r.resolveStmt(s.Then)
		if s.Else != nil {
			r.resolveStmt(s.Else)
		}

	case *Print:
		r.resolveExpr(s.Expression)

	case *Return:
		if r.currentFunction == functionNone {
			reportAt(r.reporter, s.Keyword, "Can't return from top-level code.")
		}
		if s.Value != nil {
			if r.currentFunction == functionInitializer {
				reportAt(r.reporter, s.Keyword, "Can't return a value from an initializer.")
			}
			r.resolveExpr(s.Value)
		}

	case *Var:
		r.declare(s.Name)
		if s.Initializer != nil {
			r.resolveExpr(s.Initializer)
		}
		r.define(s.Name)

	case *While:
		r.resolveExpr(s.Condition)
		r.resolveStmt(s.Body)
	}
}

func (r *Resolver) resolveClass(c *Class) {
	enclosingClass := r.currentClass
	r.currentClass = classClass
	defer func() { r.currentClass = enclosingClass }()

	r.declare(c.Name)
	r.define(c.Name)

	if c.Superclass != nil {
		if c.Superclass.Name.Lexeme == c.Name.Lexeme {
			reportAt(r.reporter, c.Superclass.Name, "A class can't inherit from itself.")
		}
		r.currentClass = classSubclass
		r.resolveExpr(c.Superclass)

		r.beginScope()
		r.peekScope()["super"] = true
		defer r.endScope()
	}

	r.beginScope()
	r.peekScope()["this"] = true
	for _, method := range c.Methods {
		kind := functionMethod
		if method.Name.Lexeme == "init" {
			kind = functionInitializer
		}
		r.resolveFunction(method, kind)
	}
	r.endScope()
}

func (r *Resolver) resolveFunction(fn *Function, kind functionKind) {
	enclosing := r.currentFunction
	r.currentFunction = kind

	r.beginScope()
	for _, param := range fn.Params {
		r.declare(param)
		r.define(param)
	}
	r.Resolve(fn.Body)
	r.endScope()

	r.currentFunction = enclosing
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (r *Resolver) resolveExpr(expr Expr) {
	switch e := expr.(type) {
	case *Assign:
		r.resolveExpr(e.Value)
		r.resolveLocal(e, e.Name)

	case *Binary:
		r.resolveExpr(e.Left)
		r.resolveExpr(e.Right)

	case *Call:
		r.resolveExpr(e.Callee)
		for _, arg := range e.Arguments {
			r.resolveExpr(arg)
		}

	case *Get:
		// Properties are looked up dynamically.
		r.resolveExpr(e.Object)

	case *Grouping:
		r.resolveExpr(e.Expression)

	case *Literal:

	case *Logical:
		r.resolveExpr(e.Left)
		r.resolveExpr(e.Right)

	case *Set:
		r.resolveExpr(e.Value)
		r.resolveExpr(e.Object)

	case *Super:
		switch r.currentClass {
		case classNone:
			reportAt(r.reporter, e.Keyword, "Can't use 'super' outside of a class.")
		case classClass:
			reportAt(r.reporter, e.Keyword, "Can't use 'super' in a class with no superclass.")
		}
		r.resolveLocal(e, e.Keyword)

	case *This:
		if r.currentClass == classNone {
			reportAt(r.reporter, e.Keyword, "Can't use 'this' outside of a class.")
			return
		}
		r.resolveLocal(e, e.Keyword)

	case *Unary:
		r.resolveExpr(e.Right)

	case *Variable:
		if len(r.scopes) > 0 {
			if ready, ok := r.peekScope()[e.Name.Lexeme]; ok && !ready {
				reportAt(r.reporter, e.Name, "Can't read local variable in its own initializer.")
			}
		}
		r.resolveLocal(e, e.Name)
	}
}

// resolveLocal records the depth of the innermost scope declaring name.
// Names found in no scope are left for the globals.
func (r *Resolver) resolveLocal(expr Expr, name Token) {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if _, ok := r.scopes[i][name.Lexeme]; ok {
			r.locals[expr] = len(r.scopes) - 1 - i
			return
		}
	}
}

// ---------------------------------------------------------------------------
// Scopes
// ---------------------------------------------------------------------------

func (r *Resolver) beginScope() {
	r.scopes = append(r.scopes, make(map[string]bool))
}

func (r *Resolver) endScope() {
	r.scopes = r.scopes[:len(r.scopes)-1]
}

func (r *Resolver) peekScope() map[string]bool {
	return r.scopes[len(r.scopes)-1]
}

func (r *Resolver) declare(name Token) {
	if len(r.scopes) == 0 {
		return
	}
	scope := r.peekScope()
	if _, ok := scope[name.Lexeme]; ok {
		reportAt(r.reporter, name, "Already a variable with this name in this scope.")
	}
	scope[name.Lexeme] = false
}

func (r *Resolver) define(name Token) {
	if len(r.scopes) == 0 {
		return
	}
	r.peekScope()[name.Lexeme] = true
}
