package typechecker

import "untagged/checker-go/pkg/ast"

// Environment represents a lexical scope of value bindings.
type Environment struct {
	parent  *Environment
	symbols map[string]Type
}

// NewEnvironment creates a new environment with an optional parent.
func NewEnvironment(parent *Environment) *Environment {
	return &Environment{
		parent:  parent,
		symbols: make(map[string]Type),
	}
}

// Define binds a name to a type in the current scope.
func (e *Environment) Define(name string, typ Type) {
	e.symbols[name] = typ
}

// Lookup searches for a name in the current scope chain.
func (e *Environment) Lookup(name string) (Type, bool) {
	if typ, ok := e.symbols[name]; ok {
		return typ, true
	}
	if e.parent != nil {
		return e.parent.Lookup(name)
	}
	return nil, false
}

// Extend returns a child environment.
func (e *Environment) Extend() *Environment {
	return NewEnvironment(e)
}

// InferenceMap tracks the resolved type of each AST node.
type InferenceMap map[ast.Node]Type

// set records a type for a node.
func (m InferenceMap) set(node ast.Node, typ Type) {
	if node == nil || typ == nil {
		return
	}
	m[node] = typ
}

// get retrieves a type for a node.
func (m InferenceMap) get(node ast.Node) (Type, bool) {
	typ, ok := m[node]
	return typ, ok
}
