package compiler

import (
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Printer: parenthesized rendering of the AST
// ---------------------------------------------------------------------------

// PrintStmts renders statements one per line in a Lisp-like form, e.g.
// `(print (+ 1.0 2.0))`. Expression statements print as their expression.
func PrintStmts(stmts []Stmt) string {
	parts := make([]string, len(stmts))
	for i, stmt := range stmts {
		parts[i] = PrintStmt(stmt)
	}
	return strings.Join(parts, "\n")
}

// PrintStmt renders a single statement.
func PrintStmt(stmt Stmt) string {
	switch s := stmt.(type) {
	case *Block:
		parts := make([]string, len(s.Statements))
		for i, inner := range s.Statements {
			parts[i] = PrintStmt(inner)
		}
		return group("block", parts...)

	case *Class:
		head := "class " + s.Name.Lexeme
		if s.Superclass != nil {
			head += " < " + s.Superclass.Name.Lexeme
		}
		parts := make([]string, len(s.Methods))
		for i, method := range s.Methods {
			parts[i] = PrintStmt(method)
		}
		return group(head, parts...)

	case *Expression:
		return PrintExpr(s.Expression)

	case *Function:
		params := make([]string, len(s.Params))
		for i, param := range s.Params {
			params[i] = param.Lexeme
		}
		parts := []string{"(" + strings.Join(params, " ") + ")"}
		for _, inner := range s.Body {
			parts = append(parts, PrintStmt(inner))
		}
		return group("fun "+s.Name.Lexeme, parts...)

	case *If:
		parts := []string{PrintExpr(s.Condition), PrintStmt(s.Then)}
		if s.Else != nil {
			parts = append(parts, PrintStmt(s.Else))
		}
		return group("if", parts...)

	case *Print:
		return group("print", PrintExpr(s.Expression))

	case *Return:
		if s.Value == nil {
			return "(return)"
		}
		return group("return", PrintExpr(s.Value))

	case *Var:
		if s.Initializer == nil {
			return "(var " + s.Name.Lexeme + ")"
		}
		return group("var "+s.Name.Lexeme, PrintExpr(s.Initializer))

	case *While:
		return group("while", PrintExpr(s.Condition), PrintStmt(s.Body))
	}
	return "(?)"
}

// PrintExpr renders a single expression.
func PrintExpr(expr Expr) string {
	switch e := expr.(type) {
	case *Assign:
		return group(e.Name.Lexeme, PrintExpr(e.Value))

	case *Binary:
		return group(e.Operator.Lexeme, PrintExpr(e.Left), PrintExpr(e.Right))

	case *Call:
		parts := []string{PrintExpr(e.Callee)}
		for _, arg := range e.Arguments {
			parts = append(parts, PrintExpr(arg))
		}
		return group("call", parts...)

	case *Get:
		return group(".", PrintExpr(e.Object), e.Name.Lexeme)

	case *Grouping:
		return group("group", PrintExpr(e.Expression))

	case *Literal:
		return printLiteral(e.Value)

	case *Logical:
		return group(e.Operator.Lexeme, PrintExpr(e.Left), PrintExpr(e.Right))

	case *Set:
		return group("=", PrintExpr(e.Object), e.Name.Lexeme, PrintExpr(e.Value))

	case *Super:
		return group("super", e.Method.Lexeme)

	case *This:
		return "this"

	case *Unary:
		return group(e.Operator.Lexeme, PrintExpr(e.Right))

	case *Variable:
		return e.Name.Lexeme
	}
	return "?"
}

// printLiteral renders numbers with at least one decimal place and strings
// quoted.
func printLiteral(v any) string {
	switch v := v.(type) {
	case nil:
		return "nil"
	case bool:
		return strconv.FormatBool(v)
	case float64:
		s := strconv.FormatFloat(v, 'f', -1, 64)
		if !strings.ContainsAny(s, ".IN") {
			s += ".0"
		}
		return s
	case string:
		return strconv.Quote(v)
	}
	return "?"
}

func group(name string, parts ...string) string {
	var b strings.Builder
	b.WriteByte('(')
	b.WriteString(name)
	for _, part := range parts {
		b.WriteByte(' ')
		b.WriteString(part)
	}
	b.WriteByte(')')
	return b.String()
}
