package typechecker

import (
	"fmt"

	"untagged/checker-go/pkg/ast"
)

func (c *Checker) inUnsafeContext() bool {
	return c.unsafeDepth > 0
}

// gatePattern requires an unsafe context for any pattern that names an
// untagged union variant: matching without a tag assumes the active variant.
func (c *Checker) gatePattern(site string, pattern ast.Pattern, info PatternInfo) []Diagnostic {
	if !info.NamesUnion || c.inUnsafeContext() {
		return nil
	}
	what := "destructuring"
	if info.Refutable {
		what = "matching"
	}
	return []Diagnostic{{
		Message: fmt.Sprintf("typechecker: unsafe operation outside unsafe context: %s untagged union %s with pattern %s in %s", what, unionLabel(info), ast.Describe(pattern), site),
		Node:    pattern,
	}}
}

// gateFieldRead requires an unsafe context to read a native union field.
func (c *Checker) gateFieldRead(expr *ast.MemberAccessExpression, u *UnionType, field string) []Diagnostic {
	if c.inUnsafeContext() {
		return nil
	}
	return []Diagnostic{{
		Message: fmt.Sprintf("typechecker: unsafe operation outside unsafe context: reading field '%s' of union %s", field, u.UnionName),
		Node:    expr,
	}}
}

func (c *Checker) gateRawDeref(expr *ast.UnaryExpression, ptr PointerType) []Diagnostic {
	if c.inUnsafeContext() {
		return nil
	}
	return []Diagnostic{{
		Message: fmt.Sprintf("typechecker: unsafe operation outside unsafe context: dereference of raw pointer %s", ptr.Name()),
		Node:    expr,
	}}
}

func (c *Checker) gateUnsafeCall(call *ast.FunctionCall, name string) []Diagnostic {
	if c.inUnsafeContext() {
		return nil
	}
	return []Diagnostic{{
		Message: fmt.Sprintf("typechecker: unsafe operation outside unsafe context: call to unsafe function %s", name),
		Node:    call,
	}}
}

func unionLabel(info PatternInfo) string {
	if info.Union != nil {
		return info.Union.UnionName
	}
	if len(info.Variants) > 0 {
		return info.Variants[0]
	}
	return "value"
}
