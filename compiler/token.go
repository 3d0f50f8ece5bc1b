package compiler

import (
	"fmt"
	"sort"
)

// ---------------------------------------------------------------------------
// Token types for the Lox scanner
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Single-character tokens
	TokenLeftParen TokenType = iota
	TokenRightParen
	TokenLeftBrace
	TokenRightBrace
	TokenComma
	TokenDot
	TokenMinus
	TokenPlus
	TokenSemicolon
	TokenSlash
	TokenStar

	// One or two character tokens
	TokenBang
	TokenBangEqual
	TokenEqual
	TokenEqualEqual
	TokenGreater
	TokenGreaterEqual
	TokenLess
	TokenLessEqual

	// Literals
	TokenIdentifier
	TokenString
	TokenNumber

	// Keywords
	TokenAnd
	TokenClass
	TokenElse
	TokenFalse
	TokenFun
	TokenFor
	TokenIf
	TokenNil
	TokenOr
	TokenPrint
	TokenReturn
	TokenSuper
	TokenThis
	TokenTrue
	TokenVar
	TokenWhile

	TokenEOF
)

var tokenNames = map[TokenType]string{
	TokenLeftParen:    "LEFT_PAREN",
	TokenRightParen:   "RIGHT_PAREN",
	TokenLeftBrace:    "LEFT_BRACE",
	TokenRightBrace:   "RIGHT_BRACE",
	TokenComma:        "COMMA",
	TokenDot:          "DOT",
	TokenMinus:        "MINUS",
	TokenPlus:         "PLUS",
	TokenSemicolon:    "SEMICOLON",
	TokenSlash:        "SLASH",
	TokenStar:         "STAR",
	TokenBang:         "BANG",
	TokenBangEqual:    "BANG_EQUAL",
	TokenEqual:        "EQUAL",
	TokenEqualEqual:   "EQUAL_EQUAL",
	TokenGreater:      "GREATER",
	TokenGreaterEqual: "GREATER_EQUAL",
	TokenLess:         "LESS",
	TokenLessEqual:    "LESS_EQUAL",
	TokenIdentifier:   "IDENTIFIER",
	TokenString:       "STRING",
	TokenNumber:       "NUMBER",
	TokenAnd:          "AND",
	TokenClass:        "CLASS",
	TokenElse:         "ELSE",
	TokenFalse:        "FALSE",
	TokenFun:          "FUN",
	TokenFor:          "FOR",
	TokenIf:           "IF",
	TokenNil:          "NIL",
	TokenOr:           "OR",
	TokenPrint:        "PRINT",
	TokenReturn:       "RETURN",
	TokenSuper:        "SUPER",
	TokenThis:         "THIS",
	TokenTrue:         "TRUE",
	TokenVar:          "VAR",
	TokenWhile:        "WHILE",
	TokenEOF:          "EOF",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Token represents a lexical token. Tokens are created once by the scanner
// and never modified.
type Token struct {
	Type    TokenType
	Lexeme  string // exact source text
	Literal any    // float64 for NUMBER, string for STRING, nil otherwise
	Line    int    // 1-based line number
	Offset  int    // byte offset of Lexeme in the source
}

func (t Token) String() string {
	if t.Literal != nil {
		return fmt.Sprintf("%s %s %v", t.Type, t.Lexeme, t.Literal)
	}
	return fmt.Sprintf("%s %s", t.Type, t.Lexeme)
}

// keywords maps reserved words to their token types.
var keywords = map[string]TokenType{
	"and":    TokenAnd,
	"class":  TokenClass,
	"else":   TokenElse,
	"false":  TokenFalse,
	"for":    TokenFor,
	"fun":    TokenFun,
	"if":     TokenIf,
	"nil":    TokenNil,
	"or":     TokenOr,
	"print":  TokenPrint,
	"return": TokenReturn,
	"super":  TokenSuper,
	"this":   TokenThis,
	"true":   TokenTrue,
	"var":    TokenVar,
	"while":  TokenWhile,
}

// IsKeyword reports whether name is one of the reserved words.
func IsKeyword(name string) bool {
	_, ok := keywords[name]
	return ok
}

// Keywords returns the reserved words in alphabetical order.
func Keywords() []string {
	names := make([]string, 0, len(keywords))
	for name := range keywords {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
