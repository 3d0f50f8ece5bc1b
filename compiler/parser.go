package compiler

import "errors"

// ---------------------------------------------------------------------------
// Parser: Recursive descent parser for Lox
// ---------------------------------------------------------------------------

// maxArgs is the limit on parameters and call arguments.
const maxArgs = 255

// errParse unwinds a failed declaration back to declaration, which
// synchronizes. The diagnostic itself has already been reported.
var errParse = errors.New("parse error")

// Parser turns a token slice into a list of statements.
type Parser struct {
	tokens   []Token
	current  int
	reporter Reporter
}

// NewParser creates a parser over tokens, which must end with an EOF token.
// A nil reporter discards errors.
func NewParser(tokens []Token, reporter Reporter) *Parser {
	if reporter == nil {
		reporter = NewDiagnostics(nil)
	}
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != TokenEOF {
		line := 1
		if len(tokens) > 0 {
			line = tokens[len(tokens)-1].Line
		}
		tokens = append(tokens, Token{Type: TokenEOF, Line: line})
	}
	return &Parser{tokens: tokens, reporter: reporter}
}

// Parse parses the whole program. Declarations that fail to parse are
// reported, skipped, and left out of the result.
func (p *Parser) Parse() []Stmt {
	var stmts []Stmt
	for !p.atEnd() {
		if stmt := p.declaration(); stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// ParseExpression parses a single expression followed by end of input.
// It returns nil if anything was reported.
func (p *Parser) ParseExpression() Expr {
	expr, err := p.expression()
	if err != nil {
		return nil
	}
	if !p.atEnd() {
		p.errorAt(p.peek(), "Expect end of expression.")
		return nil
	}
	return expr
}

// Parse scans and parses source in one step.
func Parse(source string, reporter Reporter) []Stmt {
	if reporter == nil {
		reporter = NewDiagnostics(nil)
	}
	return NewParser(Scan(source, reporter), reporter).Parse()
}

// ---------------------------------------------------------------------------
// Declarations
// ---------------------------------------------------------------------------

// declaration parses one declaration. On a syntax error it skips to the
// next statement boundary and returns nil.
func (p *Parser) declaration() Stmt {
	stmt, err := p.parseDeclaration()
	if err != nil {
		p.synchronize()
		return nil
	}
	return stmt
}

func (p *Parser) parseDeclaration() (Stmt, error) {
	switch {
	case p.match(TokenClass):
		return p.classDeclaration()
	case p.match(TokenFun):
		return p.function()
	case p.match(TokenVar):
		return p.varDeclaration()
	}
	return p.statement()
}

func (p *Parser) classDeclaration() (Stmt, error) {
	name, err := p.consume(TokenIdentifier, "Expect class name.")
	if err != nil {
		return nil, err
	}

	var superclass *Variable
	if p.match(TokenLess) {
		if _, err := p.consume(TokenIdentifier, "Expect superclass name."); err != nil {
			return nil, err
		}
		superclass = &Variable{Name: p.previous()}
	}

	if _, err := p.consume(TokenLeftBrace, "Expect '{' before class body."); err != nil {
		return nil, err
	}
	var methods []*Function
	for !p.check(TokenRightBrace) && !p.atEnd() {
		method, err := p.function()
		if err != nil {
			return nil, err
		}
		methods = append(methods, method)
	}
	if _, err := p.consume(TokenRightBrace, "Expect '}' after class body."); err != nil {
		return nil, err
	}
	return &Class{Name: name, Superclass: superclass, Methods: methods}, nil
}

// function parses a function declaration or method, after `fun` if any.
func (p *Parser) function() (*Function, error) {
	name, err := p.consume(TokenIdentifier, "Expect function name.")
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(TokenLeftParen, "Expect '(' after function name."); err != nil {
		return nil, err
	}

	var params []Token
	if !p.check(TokenRightParen) {
		for {
			if len(params) >= maxArgs {
				p.errorAt(p.peek(), "Can't have more than 255 parameters.")
			}
			param, err := p.consume(TokenIdentifier, "Expect parameter name.")
			if err != nil {
				return nil, err
			}
			params = append(params, param)
			if !p.match(TokenComma) {
				break
			}
		}
	}
	if _, err := p.consume(TokenRightParen, "Expect ')' after parameters."); err != nil {
		return nil, err
	}

	if _, err := p.consume(TokenLeftBrace, "Expect '{' before function body."); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return &Function{Name: name, Params: params, Body: body}, nil
}

func (p *Parser) varDeclaration() (Stmt, error) {
	name, err := p.consume(TokenIdentifier, "Expect variable name.")
	if err != nil {
		return nil, err
	}

	var init Expr
	if p.match(TokenEqual) {
		if init, err = p.expression(); err != nil {
			return nil, err
		}
	}
	if _, err := p.consume(TokenSemicolon, "Expect ';' after variable declaration."); err != nil {
		return nil, err
	}
	return &Var{Name: name, Initializer: init}, nil
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (p *Parser) statement() (Stmt, error) {
	switch {
	case p.match(TokenFor):
		return p.forStatement()
	case p.match(TokenIf):
		return p.ifStatement()
	case p.match(TokenPrint):
		return p.printStatement()
	case p.match(TokenReturn):
		return p.returnStatement()
	case p.match(TokenWhile):
		return p.whileStatement()
	case p.match(TokenLeftBrace):
		stmts, err := p.block()
		if err != nil {
			return nil, err
		}
		return &Block{Statements: stmts}, nil
	}
	return p.expressionStatement()
}

// forStatement desugars `for (init; cond; incr) body` into
// { init; while (cond) { body; incr; } }.
func (p *Parser) forStatement() (Stmt, error) {
	keyword := p.previous()
	if _, err := p.consume(TokenLeftParen, "Expect '(' after 'for'."); err != nil {
		return nil, err
	}

	var (
		init Stmt
		err  error
	)
	switch {
	case p.match(TokenSemicolon):
	case p.match(TokenVar):
		init, err = p.varDeclaration()
	default:
		init, err = p.expressionStatement()
	}
	if err != nil {
		return nil, err
	}

	var cond Expr
	if !p.check(TokenSemicolon) {
		if cond, err = p.expression(); err != nil {
			return nil, err
		}
	}
	if _, err := p.consume(TokenSemicolon, "Expect ';' after loop condition."); err != nil {
		return nil, err
	}

	var incr Expr
	if !p.check(TokenRightParen) {
		if incr, err = p.expression(); err != nil {
			return nil, err
		}
	}
	if _, err := p.consume(TokenRightParen, "Expect ')' after for clauses."); err != nil {
		return nil, err
	}

	body, err := p.statement()
	if err != nil {
		return nil, err
	}

	if incr != nil {
		body = &Block{Statements: []Stmt{body, &Expression{Expression: incr}}}
	}
	if cond == nil {
		cond = &Literal{Value: true}
	}
	body = &While{Keyword: keyword, Condition: cond, Body: body}
	if init != nil {
		body = &Block{Statements: []Stmt{init, body}}
	}
	return body, nil
}

func (p *Parser) ifStatement() (Stmt, error) {
	if _, err := p.consume(TokenLeftParen, "Expect '(' after 'if'."); err != nil {
		return nil, err
	}
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(TokenRightParen, "Expect ')' after if condition."); err != nil {
		return nil, err
	}

	then, err := p.statement()
	if err != nil {
		return nil, err
	}
	var els Stmt
	if p.match(TokenElse) {
		if els, err = p.statement(); err != nil {
			return nil, err
		}
	}
	return &If{Condition: cond, Then: then, Else: els}, nil
}

func (p *Parser) printStatement() (Stmt, error) {
	value, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(TokenSemicolon, "Expect ';' after value."); err != nil {
		return nil, err
	}
	return &Print{Expression: value}, nil
}

func (p *Parser) returnStatement() (Stmt, error) {
	keyword := p.previous()
	var (
		value Expr
		err   error
	)
	if !p.check(TokenSemicolon) {
		if value, err = p.expression(); err != nil {
			return nil, err
		}
	}
	if _, err := p.consume(TokenSemicolon, "Expect ';' after return value."); err != nil {
		return nil, err
	}
	return &Return{Keyword: keyword, Value: value}, nil
}

func (p *Parser) whileStatement() (Stmt, error) {
	keyword := p.previous()
	if _, err := p.consume(TokenLeftParen, "Expect '(' after 'while'."); err != nil {
		return nil, err
	}
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(TokenRightParen, "Expect ')' after condition."); err != nil {
		return nil, err
	}
	body, err := p.statement()
	if err != nil {
		return nil, err
	}
	return &While{Keyword: keyword, Condition: cond, Body: body}, nil
}

// block parses declarations up to the closing brace. The opening brace has
// already been consumed.
func (p *Parser) block() ([]Stmt, error) {
	var stmts []Stmt
	for !p.check(TokenRightBrace) && !p.atEnd() {
		if stmt := p.declaration(); stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	if _, err := p.consume(TokenRightBrace, "Expect '}' after block."); err != nil {
		return nil, err
	}
	return stmts, nil
}

func (p *Parser) expressionStatement() (Stmt, error) {
	expr, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(TokenSemicolon, "Expect ';' after expression."); err != nil {
		return nil, err
	}
	return &Expression{Expression: expr}, nil
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (p *Parser) expression() (Expr, error) {
	return p.assignment()
}

func (p *Parser) assignment() (Expr, error) {
	expr, err := p.or()
	if err != nil {
		return nil, err
	}
	if !p.match(TokenEqual) {
		return expr, nil
	}

	equals := p.previous()
	value, err := p.assignment()
	if err != nil {
		return nil, err
	}
	switch target := expr.(type) {
	case *Variable:
		return &Assign{Name: target.Name, Value: value}, nil
	case *Get:
		return &Set{Object: target.Object, Name: target.Name, Value: value}, nil
	}
	// Reported, but the parser is not confused; no need to synchronize.
	p.errorAt(equals, "Invalid assignment target.")
	return expr, nil
}

func (p *Parser) or() (Expr, error) {
	expr, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.match(TokenOr) {
		op := p.previous()
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		expr = &Logical{Left: expr, Operator: op, Right: right}
	}
	return expr, nil
}

func (p *Parser) and() (Expr, error) {
	expr, err := p.equality()
	if err != nil {
		return nil, err
	}
	for p.match(TokenAnd) {
		op := p.previous()
		right, err := p.equality()
		if err != nil {
			return nil, err
		}
		expr = &Logical{Left: expr, Operator: op, Right: right}
	}
	return expr, nil
}

func (p *Parser) equality() (Expr, error) {
	return p.binary(p.comparison, TokenBangEqual, TokenEqualEqual)
}

func (p *Parser) comparison() (Expr, error) {
	return p.binary(p.term, TokenGreater, TokenGreaterEqual, TokenLess, TokenLessEqual)
}

func (p *Parser) term() (Expr, error) {
	return p.binary(p.factor, TokenMinus, TokenPlus)
}

func (p *Parser) factor() (Expr, error) {
	return p.binary(p.unary, TokenSlash, TokenStar)
}

// binary parses one left-associative precedence level whose operands are
// parsed by next.
func (p *Parser) binary(next func() (Expr, error), ops ...TokenType) (Expr, error) {
	expr, err := next()
	if err != nil {
		return nil, err
	}
	for p.match(ops...) {
		op := p.previous()
		right, err := next()
		if err != nil {
			return nil, err
		}
		expr = &Binary{Left: expr, Operator: op, Right: right}
	}
	return expr, nil
}

func (p *Parser) unary() (Expr, error) {
	if p.match(TokenBang, TokenMinus) {
		op := p.previous()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &Unary{Operator: op, Right: right}, nil
	}
	return p.call()
}

func (p *Parser) call() (Expr, error) {
	expr, err := p.primary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.match(TokenLeftParen):
			if expr, err = p.finishCall(expr); err != nil {
				return nil, err
			}
		case p.match(TokenDot):
			name, err := p.consume(TokenIdentifier, "Expect property name after '.'.")
			if err != nil {
				return nil, err
			}
			expr = &Get{Object: expr, Name: name}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) finishCall(callee Expr) (Expr, error) {
	var args []Expr
	if !p.check(TokenRightParen) {
		for {
			if len(args) >= maxArgs {
				p.errorAt(p.peek(), "Can't have more than 255 arguments.")
			}
			arg, err := p.expression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if !p.match(TokenComma) {
				break
			}
		}
	}
	paren, err := p.consume(TokenRightParen, "Expect ')' after arguments.")
	if err != nil {
		return nil, err
	}
	return &Call{Callee: callee, Paren: paren, Arguments: args}, nil
}

func (p *Parser) primary() (Expr, error) {
	switch {
	case p.match(TokenFalse):
		return &Literal{Value: false}, nil
	case p.match(TokenTrue):
		return &Literal{Value: true}, nil
	case p.match(TokenNil):
		return &Literal{Value: nil}, nil
	case p.match(TokenNumber, TokenString):
		return &Literal{Value: p.previous().Literal}, nil
	case p.match(TokenSuper):
		keyword := p.previous()
		if _, err := p.consume(TokenDot, "Expect '.' after 'super'."); err != nil {
			return nil, err
		}
		method, err := p.consume(TokenIdentifier, "Expect superclass method name.")
		if err != nil {
			return nil, err
		}
		return &Super{Keyword: keyword, Method: method}, nil
	case p.match(TokenThis):
		return &This{Keyword: p.previous()}, nil
	case p.match(TokenIdentifier):
		return &Variable{Name: p.previous()}, nil
	case p.match(TokenLeftParen):
		expr, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(TokenRightParen, "Expect ')' after expression."); err != nil {
			return nil, err
		}
		return &Grouping{Expression: expr}, nil
	}
	return nil, p.errorAt(p.peek(), "Expect expression.")
}

// ---------------------------------------------------------------------------
// Token helpers
// ---------------------------------------------------------------------------

// match consumes the current token if it has any of the given types.
func (p *Parser) match(types ...TokenType) bool {
	for _, t := range types {
		if p.check(t) {
			p.advance()
			return true
		}
	}
	return false
}

// consume advances past a token of type t, or reports message at the
// current token.
func (p *Parser) consume(t TokenType, message string) (Token, error) {
	if p.check(t) {
		return p.advance(), nil
	}
	return Token{}, p.errorAt(p.peek(), message)
}

func (p *Parser) check(t TokenType) bool {
	if p.atEnd() {
		return false
	}
	return p.peek().Type == t
}

func (p *Parser) advance() Token {
	if !p.atEnd() {
		p.current++
	}
	return p.previous()
}

func (p *Parser) atEnd() bool {
	return p.peek().Type == TokenEOF
}

func (p *Parser) peek() Token {
	return p.tokens[p.current]
}

func (p *Parser) previous() Token {
	return p.tokens[p.current-1]
}

// errorAt reports message at tok and returns errParse for the caller to
// propagate.
func (p *Parser) errorAt(tok Token, message string) error {
	reportAt(p.reporter, tok, message)
	return errParse
}

// synchronize discards tokens until the start of the next statement.
func (p *Parser) synchronize() {
	p.advance()
	for !p.atEnd() {
		if p.previous().Type == TokenSemicolon {
			return
		}
		switch p.peek().Type {
		case TokenClass, TokenFun, TokenVar, TokenFor, TokenIf, TokenWhile, TokenPrint, TokenReturn:
			return
		}
		p.advance()
	}
}
