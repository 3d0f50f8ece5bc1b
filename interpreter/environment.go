package interpreter

import (
	"sort"

	"github.com/chazu/lox/compiler"
)

// Environment is one scope of name → value bindings. Environments form a
// chain through enclosing and are shared by pointer: closures hold on to the
// environment they were created in.
type Environment struct {
	values    map[string]Value
	enclosing *Environment
}

// NewEnvironment creates an empty environment inside enclosing, which is nil
// for the globals.
func NewEnvironment(enclosing *Environment) *Environment {
	return &Environment{values: make(map[string]Value), enclosing: enclosing}
}

// Define binds name in this environment, replacing any existing binding.
func (e *Environment) Define(name string, value Value) {
	e.values[name] = value
}

// Get looks name up through the chain.
func (e *Environment) Get(name compiler.Token) (Value, error) {
	for env := e; env != nil; env = env.enclosing {
		if v, ok := env.values[name.Lexeme]; ok {
			return v, nil
		}
	}
	return nil, undefinedVariable(name)
}

// Assign updates an existing binding found through the chain.
func (e *Environment) Assign(name compiler.Token, value Value) error {
	for env := e; env != nil; env = env.enclosing {
		if _, ok := env.values[name.Lexeme]; ok {
			env.values[name.Lexeme] = value
			return nil
		}
	}
	return undefinedVariable(name)
}

// GetAt reads name from the environment exactly distance links up.
func (e *Environment) GetAt(distance int, name string) Value {
	return e.ancestor(distance).values[name]
}

// AssignAt writes name in the environment exactly distance links up.
func (e *Environment) AssignAt(distance int, name compiler.Token, value Value) {
	e.ancestor(distance).values[name.Lexeme] = value
}

func (e *Environment) ancestor(distance int) *Environment {
	env := e
	for i := 0; i < distance; i++ {
		env = env.enclosing
	}
	return env
}

// Names returns the names bound directly in this environment, sorted.
func (e *Environment) Names() []string {
	names := make([]string, 0, len(e.values))
	for name := range e.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func undefinedVariable(name compiler.Token) error {
	return NewRuntimeError(name, "Undefined variable '%s'.", name.Lexeme)
}
