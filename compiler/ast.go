package compiler

// ---------------------------------------------------------------------------
// AST: Abstract Syntax Tree for Lox
// ---------------------------------------------------------------------------

// Node is the interface implemented by all AST nodes.
type Node interface {
	node() // marker method
}

// Nodes are compared by pointer identity: the resolver keys its side table
// on the *Variable, *Assign, *This and *Super values the parser created, so
// two textually identical references stay distinct.

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr() // marker method
}

// Assign represents `name = value`.
type Assign struct {
	Name  Token
	Value Expr
}

func (n *Assign) node() {}
func (n *Assign) expr() {}

// Binary represents an arithmetic, comparison or equality operation.
type Binary struct {
	Left     Expr
	Operator Token
	Right    Expr
}

func (n *Binary) node() {}
func (n *Binary) expr() {}

// Call represents a call. Paren is the closing parenthesis, used to locate
// runtime errors.
type Call struct {
	Callee    Expr
	Paren     Token
	Arguments []Expr
}

func (n *Call) node() {}
func (n *Call) expr() {}

// Get represents a property access `object.name`.
type Get struct {
	Object Expr
	Name   Token
}

func (n *Get) node() {}
func (n *Get) expr() {}

// Grouping represents a parenthesized expression.
type Grouping struct {
	Expression Expr
}

func (n *Grouping) node() {}
func (n *Grouping) expr() {}

// Literal holds nil, a bool, a float64 or a string.
type Literal struct {
	Value any
}

func (n *Literal) node() {}
func (n *Literal) expr() {}

// Logical represents a short-circuiting `and` / `or`.
type Logical struct {
	Left     Expr
	Operator Token
	Right    Expr
}

func (n *Logical) node() {}
func (n *Logical) expr() {}

// Set represents a property assignment `object.name = value`.
type Set struct {
	Object Expr
	Name   Token
	Value  Expr
}

func (n *Set) node() {}
func (n *Set) expr() {}

// Super represents `super.method`.
type Super struct {
	Keyword Token
	Method  Token
}

func (n *Super) node() {}
func (n *Super) expr() {}

// This represents the `this` keyword.
type This struct {
	Keyword Token
}

func (n *This) node() {}
func (n *This) expr() {}

// Unary represents `!x` or `-x`.
type Unary struct {
	Operator Token
	Right    Expr
}

func (n *Unary) node() {}
func (n *Unary) expr() {}

// Variable represents a variable reference.
type Variable struct {
	Name Token
}

func (n *Variable) node() {}
func (n *Variable) expr() {}

// ---------------------------------------------------------------------------
// Statement nodes
// ---------------------------------------------------------------------------

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmt() // marker method
}

// Block represents `{ ... }`.
type Block struct {
	Statements []Stmt
}

func (n *Block) node() {}
func (n *Block) stmt() {}

// Class represents a class declaration.
type Class struct {
	Name       Token
	Superclass *Variable // nil without `<`
	Methods    []*Function
}

func (n *Class) node() {}
func (n *Class) stmt() {}

// Expression represents an expression evaluated for its side effects.
type Expression struct {
	Expression Expr
}

func (n *Expression) node() {}
func (n *Expression) stmt() {}

// Function represents a function declaration or a method.
type Function struct {
	Name   Token
	Params []Token
	Body   []Stmt
}

func (n *Function) node() {}
func (n *Function) stmt() {}

// If represents an if statement. Else is nil when absent.
type If struct {
	Condition Expr
	Then      Stmt
	Else      Stmt
}

func (n *If) node() {}
func (n *If) stmt() {}

// Print represents `print expr;`.
type Print struct {
	Expression Expr
}

func (n *Print) node() {}
func (n *Print) stmt() {}

// Return represents a return statement. Value is nil for a bare `return;`.
type Return struct {
	Keyword Token
	Value   Expr
}

func (n *Return) node() {}
func (n *Return) stmt() {}

// Var represents a variable declaration. Initializer is nil when absent.
type Var struct {
	Name        Token
	Initializer Expr
}

func (n *Var) node() {}
func (n *Var) stmt() {}

// While represents a while loop. `for` loops are desugared into While.
type While struct {
	Keyword   Token // `while` or `for`
	Condition Expr
	Body      Stmt
}

func (n *While) node() {}
func (n *While) stmt() {}
