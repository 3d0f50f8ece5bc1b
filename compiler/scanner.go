package compiler

import (
	"strconv"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Scanner: Tokenizer for Lox source
// ---------------------------------------------------------------------------

// Scanner turns Lox source text into tokens. Lexical errors are reported
// through the Reporter and scanning continues with the next character.
type Scanner struct {
	source   string
	tokens   []Token
	start    int // offset of the first character of the current lexeme
	current  int // offset of the character being considered
	line     int // current line (1-based)
	reporter Reporter
}

// NewScanner creates a scanner for source. A nil reporter discards errors.
func NewScanner(source string, reporter Reporter) *Scanner {
	if reporter == nil {
		reporter = NewDiagnostics(nil)
	}
	return &Scanner{source: source, line: 1, reporter: reporter}
}

// ScanTokens scans the whole source. The result always ends with exactly one
// EOF token carrying the final line number.
func (s *Scanner) ScanTokens() []Token {
	for !s.atEnd() {
		s.start = s.current
		s.scanToken()
	}
	s.tokens = append(s.tokens, Token{Type: TokenEOF, Line: s.line, Offset: len(s.source)})
	return s.tokens
}

// Scan is a convenience wrapper around NewScanner(...).ScanTokens().
func Scan(source string, reporter Reporter) []Token {
	return NewScanner(source, reporter).ScanTokens()
}

func (s *Scanner) scanToken() {
	c := s.advance()
	switch c {
	case '(':
		s.addToken(TokenLeftParen)
	case ')':
		s.addToken(TokenRightParen)
	case '{':
		s.addToken(TokenLeftBrace)
	case '}':
		s.addToken(TokenRightBrace)
	case ',':
		s.addToken(TokenComma)
	case '.':
		s.addToken(TokenDot)
	case '-':
		s.addToken(TokenMinus)
	case '+':
		s.addToken(TokenPlus)
	case ';':
		s.addToken(TokenSemicolon)
	case '*':
		s.addToken(TokenStar)
	case '!':
		s.addToken(s.choose('=', TokenBangEqual, TokenBang))
	case '=':
		s.addToken(s.choose('=', TokenEqualEqual, TokenEqual))
	case '<':
		s.addToken(s.choose('=', TokenLessEqual, TokenLess))
	case '>':
		s.addToken(s.choose('=', TokenGreaterEqual, TokenGreater))
	case '/':
		if s.match('/') {
			// Line comment runs to the end of the line.
			for s.peek() != '\n' && !s.atEnd() {
				s.advance()
			}
		} else {
			s.addToken(TokenSlash)
		}
	case ' ', '\r', '\t':
	case '\n':
		s.line++
	case '"':
		s.scanString()
	default:
		switch {
		case isDigit(c):
			s.scanNumber()
		case isAlpha(c):
			s.scanIdentifier()
		default:
			s.reporter.Report(s.line, "", "Unexpected character.")
		}
	}
}

func (s *Scanner) scanString() {
	for s.peek() != '"' && !s.atEnd() {
		if s.peek() == '\n' {
			s.line++
		}
		s.advance()
	}
	if s.atEnd() {
		s.reporter.Report(s.line, "", "Unterminated string.")
		return
	}
	s.advance() // closing quote

	// The token gets the line of its closing quote.
	value := s.source[s.start+1 : s.current-1]
	s.addLiteral(TokenString, value)
}

func (s *Scanner) scanNumber() {
	for isDigit(s.peek()) {
		s.advance()
	}
	// A fractional part needs at least one digit after the dot.
	if s.peek() == '.' && isDigit(s.peekNext()) {
		s.advance()
		for isDigit(s.peek()) {
			s.advance()
		}
	}
	value, _ := strconv.ParseFloat(s.source[s.start:s.current], 64)
	s.addLiteral(TokenNumber, value)
}

func (s *Scanner) scanIdentifier() {
	for isAlphaNumeric(s.peek()) {
		s.advance()
	}
	text := s.source[s.start:s.current]
	if typ, ok := keywords[text]; ok {
		s.addToken(typ)
		return
	}
	s.addToken(TokenIdentifier)
}

// advance consumes and returns the next character.
func (s *Scanner) advance() rune {
	r, size := utf8.DecodeRuneInString(s.source[s.current:])
	s.current += size
	return r
}

// match consumes the next character only if it is expected.
func (s *Scanner) match(expected rune) bool {
	if s.atEnd() || s.peek() != expected {
		return false
	}
	s.current++
	return true
}

func (s *Scanner) choose(next rune, two, one TokenType) TokenType {
	if s.match(next) {
		return two
	}
	return one
}

func (s *Scanner) peek() rune {
	if s.atEnd() {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(s.source[s.current:])
	return r
}

func (s *Scanner) peekNext() rune {
	if s.current+1 >= len(s.source) {
		return 0
	}
	return rune(s.source[s.current+1])
}

func (s *Scanner) atEnd() bool {
	return s.current >= len(s.source)
}

func (s *Scanner) addToken(typ TokenType) {
	s.addLiteral(typ, nil)
}

func (s *Scanner) addLiteral(typ TokenType, literal any) {
	s.tokens = append(s.tokens, Token{
		Type:    typ,
		Lexeme:  s.source[s.start:s.current],
		Literal: literal,
		Line:    s.line,
		Offset:  s.start,
	})
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}

func isAlpha(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isAlphaNumeric(c rune) bool {
	return isAlpha(c) || isDigit(c)
}
