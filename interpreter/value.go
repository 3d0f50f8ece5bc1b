package interpreter

import (
	"math"
	"strconv"

	"github.com/chazu/lox/compiler"
)

// Value is any Lox runtime value: nil, bool, float64, string, *Function,
// *Native, *Class or *Instance.
type Value = any

// Callable is implemented by values that can appear before `(`.
type Callable interface {
	Arity() int
	Call(in *Interpreter, args []Value) (Value, error)
}

// ---------------------------------------------------------------------------
// Functions
// ---------------------------------------------------------------------------

// Function is a user-defined function or method together with the
// environment it closes over.
type Function struct {
	Declaration   *compiler.Function
	Closure       *Environment
	IsInitializer bool
}

// Name returns the declared name.
func (f *Function) Name() string { return f.Declaration.Name.Lexeme }

func (f *Function) Arity() int { return len(f.Declaration.Params) }

// Bind returns a copy of f whose closure defines `this` as instance.
func (f *Function) Bind(instance *Instance) *Function {
	env := NewEnvironment(f.Closure)
	env.Define("this", instance)
	return &Function{Declaration: f.Declaration, Closure: env, IsInitializer: f.IsInitializer}
}

func (f *Function) Call(in *Interpreter, args []Value) (Value, error) {
	env := NewEnvironment(f.Closure)
	for i, param := range f.Declaration.Params {
		env.Define(param.Lexeme, args[i])
	}

	result, err := in.executeBlock(f.Declaration.Body, env)
	if err != nil {
		return nil, err
	}
	// Initializers always produce the instance, even after a bare return.
	if f.IsInitializer {
		return f.Closure.GetAt(0, "this"), nil
	}
	if result.returning {
		return result.value, nil
	}
	return nil, nil
}

func (f *Function) String() string { return "<fn " + f.Name() + ">" }

// Native is a callable implemented in Go.
type Native struct {
	Name   string
	Params int
	Fn     func(args []Value) (Value, error)
}

func (n *Native) Arity() int { return n.Params }

func (n *Native) Call(_ *Interpreter, args []Value) (Value, error) {
	return n.Fn(args)
}

func (n *Native) String() string { return "<native fn>" }

// ---------------------------------------------------------------------------
// Classes and instances
// ---------------------------------------------------------------------------

// Class is a Lox class. Methods holds only the methods declared on this
// class; lookups continue through Superclass.
type Class struct {
	Name       string
	Superclass *Class
	Methods    map[string]*Function
}

// FindMethod looks name up on c and then its ancestors.
func (c *Class) FindMethod(name string) *Function {
	for class := c; class != nil; class = class.Superclass {
		if m, ok := class.Methods[name]; ok {
			return m
		}
	}
	return nil
}

// Arity is the arity of init, or zero without one.
func (c *Class) Arity() int {
	if init := c.FindMethod("init"); init != nil {
		return init.Arity()
	}
	return 0
}

// Call creates an instance and runs its initializer, if any.
func (c *Class) Call(in *Interpreter, args []Value) (Value, error) {
	instance := &Instance{Class: c, Fields: make(map[string]Value)}
	if init := c.FindMethod("init"); init != nil {
		if _, err := init.Bind(instance).Call(in, args); err != nil {
			return nil, err
		}
	}
	return instance, nil
}

func (c *Class) String() string { return c.Name }

// Instance is an object created by calling a class.
type Instance struct {
	Class  *Class
	Fields map[string]Value
}

// Get returns a field, or a method bound to the instance. Fields shadow
// methods.
func (i *Instance) Get(name compiler.Token) (Value, error) {
	if v, ok := i.Fields[name.Lexeme]; ok {
		return v, nil
	}
	if m := i.Class.FindMethod(name.Lexeme); m != nil {
		return m.Bind(i), nil
	}
	return nil, NewRuntimeError(name, "Undefined property '%s'.", name.Lexeme)
}

// Set writes a field, creating it on first assignment.
func (i *Instance) Set(name compiler.Token, value Value) {
	i.Fields[name.Lexeme] = value
}

func (i *Instance) String() string { return i.Class.Name + " instance" }

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// IsTruthy reports whether v counts as true: everything except nil and false.
func IsTruthy(v Value) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	}
	return true
}

// IsEqual compares two values without coercion. Numbers follow IEEE-754, so
// NaN is not equal to itself; objects compare by identity.
func IsEqual(a, b Value) bool {
	return a == b
}

// Stringify renders v the way `print` shows it.
func Stringify(v Value) string {
	switch v := v.(type) {
	case nil:
		return "nil"
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return formatNumber(v)
	case string:
		return v
	case interface{ String() string }:
		return v.String()
	}
	return "?"
}

func formatNumber(n float64) string {
	switch {
	case math.IsNaN(n):
		return "NaN"
	case math.IsInf(n, 1):
		return "Infinity"
	case math.IsInf(n, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}
