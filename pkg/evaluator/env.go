package evaluator

import (
	"sort"

	"github.com/thomasrohde/rlux/pkg/diagnostics"
	"github.com/thomasrohde/rlux/pkg/token"
	"github.com/thomasrohde/rlux/pkg/value"
)

const msgUndefinedVariable = "undefined variable"

// Env is a scoped environment for variable bindings.
// It supports enclosing-chained lookup for lexical scoping.
type Env struct {
	bindings  map[string]value.Value
	enclosing *Env
}

// NewEnv creates a new environment with an optional enclosing scope.
func NewEnv(enclosing *Env) *Env {
	return &Env{
		bindings:  make(map[string]value.Value),
		enclosing: enclosing,
	}
}

// Child creates a new child scope whose enclosing scope is this environment.
func (e *Env) Child() *Env {
	return NewEnv(e)
}

// Enclosing returns the enclosing scope, or nil for the global scope.
func (e *Env) Enclosing() *Env {
	return e.enclosing
}

// Depth is 0 for the global scope and grows by one per nested block.
func (e *Env) Depth() int {
	d := 0
	for s := e.enclosing; s != nil; s = s.enclosing {
		d++
	}
	return d
}

// Define binds name in this scope, overwriting any existing binding here.
func (e *Env) Define(name string, val value.Value) {
	e.bindings[name] = val
}

// Lookup finds the nearest binding of name.
func (e *Env) Lookup(name string) (value.Value, bool) {
	for s := e; s != nil; s = s.enclosing {
		if val, ok := s.bindings[name]; ok {
			return val, true
		}
	}
	return nil, false
}

// Get is Lookup reporting a missing binding as a runtime error at name.
func (e *Env) Get(name token.Token) (value.Value, error) {
	if val, ok := e.Lookup(name.Lexeme); ok {
		return val, nil
	}
	return nil, undefined(name)
}

// Assign overwrites the nearest existing binding of name. It never creates
// a binding.
func (e *Env) Assign(name token.Token, val value.Value) error {
	for s := e; s != nil; s = s.enclosing {
		if _, ok := s.bindings[name.Lexeme]; ok {
			s.bindings[name.Lexeme] = val
			return nil
		}
	}
	return undefined(name)
}

// Names lists the names bound directly in this scope, sorted.
func (e *Env) Names() []string {
	names := make([]string, 0, len(e.bindings))
	for name := range e.bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func undefined(name token.Token) *RuntimeError {
	return &RuntimeError{
		Code:    diagnostics.EUndefined,
		Message: msgUndefinedVariable,
		Token:   name,
	}
}
