package interpreter

import (
	"errors"
	"fmt"

	"github.com/chazu/lox/compiler"
)

// ErrStackOverflow is wrapped by the RuntimeError raised when calls nest
// deeper than the interpreter's limit.
var ErrStackOverflow = errors.New("stack overflow")

// ErrInterrupted is wrapped, together with the context's error, by the
// RuntimeError raised when InterpretContext's context is done.
var ErrInterrupted = errors.New("interrupted")

// RuntimeError is an error raised while executing a program. Token locates
// the construct that failed.
type RuntimeError struct {
	Token   compiler.Token
	Message string
	cause   error
}

// NewRuntimeError creates a RuntimeError at tok with a formatted message.
func NewRuntimeError(tok compiler.Token, format string, args ...any) *RuntimeError {
	return &RuntimeError{Token: tok, Message: fmt.Sprintf(format, args...)}
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s\n[line %d]", e.Message, e.Token.Line)
}

func (e *RuntimeError) Unwrap() error { return e.cause }
