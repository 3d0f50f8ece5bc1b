package compiler

// Inspect traverses the tree rooted at node in depth-first order, calling f
// for each node before its children. If f returns false the children of
// that node are skipped. Nil children are not visited.
func Inspect(node Node, f func(Node) bool) {
	if node == nil || !f(node) {
		return
	}

	switch n := node.(type) {
	// Expressions
	case *Assign:
		inspectExpr(n.Value, f)
	case *Binary:
		inspectExpr(n.Left, f)
		inspectExpr(n.Right, f)
	case *Call:
		inspectExpr(n.Callee, f)
		for _, arg := range n.Arguments {
			inspectExpr(arg, f)
		}
	case *Get:
		inspectExpr(n.Object, f)
	case *Grouping:
		inspectExpr(n.Expression, f)
	case *Logical:
		inspectExpr(n.Left, f)
		inspectExpr(n.Right, f)
	case *Set:
		inspectExpr(n.Object, f)
		inspectExpr(n.Value, f)
	case *Unary:
		inspectExpr(n.Right, f)
	case *Literal, *Super, *This, *Variable:

	// Statements
	case *Block:
		InspectAll(n.Statements, f)
	case *Class:
		if n.Superclass != nil {
			Inspect(n.Superclass, f)
		}
		for _, method := range n.Methods {
			Inspect(method, f)
		}
	case *Expression:
		inspectExpr(n.Expression, f)
	case *Function:
		InspectAll(n.Body, f)
	case *If:
		inspectExpr(n.Condition, f)
		inspectStmt(n.Then, f)
		inspectStmt(n.Else, f)
	case *Print:
		inspectExpr(n.Expression, f)
	case *Return:
		inspectExpr(n.Value, f)
	case *Var:
		inspectExpr(n.Initializer, f)
	case *While:
		inspectExpr(n.Condition, f)
		inspectStmt(n.Body, f)
	}
}

// InspectAll calls Inspect on each statement in order.
func InspectAll(stmts []Stmt, f func(Node) bool) {
	for _, stmt := range stmts {
		inspectStmt(stmt, f)
	}
}

// A nil Expr or Stmt wrapped in Node would not compare equal to nil, so the
// optional children are checked before conversion.
func inspectExpr(expr Expr, f func(Node) bool) {
	if expr != nil {
		Inspect(expr, f)
	}
}

func inspectStmt(stmt Stmt, f func(Node) bool) {
	if stmt != nil {
		Inspect(stmt, f)
	}
}
