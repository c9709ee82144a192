package typechecker

import (
	"fmt"
	"strings"

	"untagged/checker-go/pkg/ast"
)

func (c *Checker) checkExpression(env *Environment, expr ast.Expression) ([]Diagnostic, Type) {
	diags, typ := c.checkExpressionInner(env, expr)
	if expr != nil && typ != nil {
		c.infer.set(expr, typ)
	}
	return diags, typ
}

func (c *Checker) checkExpressionInner(env *Environment, expr ast.Expression) ([]Diagnostic, Type) {
	switch e := expr.(type) {
	case nil:
		return nil, unitType
	case *ast.IntegerLiteral:
		if kind, ok := primitiveKinds[e.Suffix]; ok {
			return nil, PrimitiveType{Kind: kind}
		}
		return nil, PrimitiveType{Kind: PrimitiveI32}
	case *ast.FloatLiteral:
		if e.Suffix == "f32" {
			return nil, PrimitiveType{Kind: PrimitiveF32}
		}
		return nil, PrimitiveType{Kind: PrimitiveF64}
	case *ast.BooleanLiteral:
		return nil, PrimitiveType{Kind: PrimitiveBool}
	case *ast.CharLiteral:
		return nil, PrimitiveType{Kind: PrimitiveChar}
	case *ast.StringLiteral:
		return nil, ReferenceType{Elem: PrimitiveType{Kind: PrimitiveStr}}
	case *ast.Identifier:
		return c.checkIdentifier(env, e)
	case *ast.PathExpression:
		return c.checkPathExpression(e)
	case *ast.FunctionCall:
		return c.checkFunctionCall(env, e)
	case *ast.StructLiteral:
		return c.checkStructLiteral(env, e)
	case *ast.MemberAccessExpression:
		return c.checkMemberAccess(env, e, true)
	case *ast.UnaryExpression:
		return c.checkUnaryExpression(env, e)
	case *ast.BinaryExpression:
		return c.checkBinaryExpression(env, e)
	case *ast.AssignmentExpression:
		return c.checkAssignment(env, e)
	case *ast.TupleExpression:
		var diags []Diagnostic
		elems := make([]Type, len(e.Elements))
		for i, el := range e.Elements {
			elDiags, typ := c.checkExpression(env, el)
			diags = append(diags, elDiags...)
			elems[i] = typ
		}
		return diags, TupleType{Elements: elems}
	case *ast.BlockExpression:
		return c.checkBlock(env.Extend(), e)
	case *ast.UnsafeBlockExpression:
		c.unsafeDepth++
		defer func() { c.unsafeDepth-- }()
		if e.Block == nil {
			return nil, unitType
		}
		return c.checkExpression(env, e.Block)
	case *ast.IfExpression:
		return c.checkIfExpression(env, e)
	case *ast.LetCondition:
		diags, _ := c.checkCondition(env, e, SiteIfLet)
		return diags, PrimitiveType{Kind: PrimitiveBool}
	case *ast.WhileLoop:
		var diags []Diagnostic
		site := SiteWhileLet
		condDiags, bodyEnv := c.checkCondition(env, e.Condition, site)
		diags = append(diags, condDiags...)
		if e.Body != nil {
			bodyDiags, _ := c.checkExpression(bodyEnv, e.Body)
			diags = append(diags, bodyDiags...)
		}
		return diags, unitType
	case *ast.LoopExpression:
		if e.Body == nil {
			return nil, unitType
		}
		diags, _ := c.checkExpression(env, e.Body)
		return diags, UnknownType{}
	case *ast.MatchExpression:
		return c.checkMatchExpression(env, e)
	case *ast.ReturnStatement:
		if e.Argument == nil {
			return nil, PrimitiveType{Kind: PrimitiveNever}
		}
		diags, _ := c.checkExpression(env, e.Argument)
		return diags, PrimitiveType{Kind: PrimitiveNever}
	case *ast.BreakStatement:
		if e.Value == nil {
			return nil, PrimitiveType{Kind: PrimitiveNever}
		}
		diags, _ := c.checkExpression(env, e.Value)
		return diags, PrimitiveType{Kind: PrimitiveNever}
	case *ast.OpaqueExpression:
		var diags []Diagnostic
		for _, child := range e.Children {
			childDiags, _ := c.checkExpression(env, child)
			diags = append(diags, childDiags...)
		}
		return diags, UnknownType{}
	default:
		return nil, UnknownType{}
	}
}

func (c *Checker) checkBlock(env *Environment, block *ast.BlockExpression) ([]Diagnostic, Type) {
	var diags []Diagnostic
	result := Type(unitType)
	for i, stmt := range block.Body {
		if expr, ok := stmt.(ast.Expression); ok && i == len(block.Body)-1 {
			exprDiags, typ := c.checkExpression(env, expr)
			diags = append(diags, exprDiags...)
			result = typ
			continue
		}
		diags = append(diags, c.checkStatement(env, stmt)...)
	}
	return diags, result
}

func (c *Checker) checkIdentifier(env *Environment, id *ast.Identifier) ([]Diagnostic, Type) {
	if typ, ok := env.Lookup(id.Name); ok {
		return nil, typ
	}
	if id.Name == "None" {
		return nil, BuiltinType{Kind: BuiltinOption, Args: []Type{UnknownType{}}}
	}
	if unions := c.unionVariants[id.Name]; len(unions) == 1 {
		v := unions[0].Variant(id.Name)
		if v.Kind == ast.FieldKindUnit {
			return nil, unions[0]
		}
		return nil, c.variantConstructorType(unions[0], v)
	}
	if enums := c.enumVariants[id.Name]; len(enums) == 1 {
		return nil, enums[0]
	}
	return nil, UnknownType{}
}

// checkPathExpression types `U::A` used as a value: a unit variant
// constructs the union, any other variant is its constructor function.
func (c *Checker) checkPathExpression(path *ast.PathExpression) ([]Diagnostic, Type) {
	if len(path.Segments) < 2 {
		if last := path.Last(); last != nil {
			return c.checkIdentifier(c.global, last)
		}
		return nil, UnknownType{}
	}
	owner := path.Segments[len(path.Segments)-2].Name
	name := path.Last().Name
	switch ty := c.lookupOwner(owner).(type) {
	case *UnionType:
		v := ty.Variant(name)
		if v == nil || ty.Native {
			return []Diagnostic{{
				Message: fmt.Sprintf("typechecker: no variant '%s' in untagged union %s", name, ty.UnionName),
				Node:    path,
			}}, UnknownType{}
		}
		if v.Kind == ast.FieldKindUnit {
			return nil, ty
		}
		return nil, c.variantConstructorType(ty, v)
	case *EnumType:
		v := ty.Variant(name)
		if v == nil {
			return []Diagnostic{{
				Message: fmt.Sprintf("typechecker: no variant '%s' in enum %s", name, ty.EnumName),
				Node:    path,
			}}, UnknownType{}
		}
		return nil, ty
	}
	return nil, UnknownType{}
}

func (c *Checker) lookupOwner(name string) Type {
	if name == "Self" && c.selfType != nil {
		return c.selfType
	}
	return c.types[name]
}

func (c *Checker) variantConstructorType(u *UnionType, v *VariantType) FunctionType {
	params := make([]Type, len(v.Fields))
	for i, f := range v.Fields {
		params[i] = f.Type
	}
	return FunctionType{Params: params, Return: u}
}

var builtinConstructors = map[BuiltinKind]bool{
	BuiltinBox:          true,
	BuiltinRc:           true,
	BuiltinArc:          true,
	BuiltinCell:         true,
	BuiltinRefCell:      true,
	BuiltinManuallyDrop: true,
}

func (c *Checker) checkFunctionCall(env *Environment, call *ast.FunctionCall) ([]Diagnostic, Type) {
	var diags []Diagnostic
	argTypes := make([]Type, len(call.Arguments))
	for i, arg := range call.Arguments {
		argDiags, typ := c.checkExpression(env, arg)
		diags = append(diags, argDiags...)
		argTypes[i] = typ
	}

	switch callee := call.Callee.(type) {
	case *ast.PathExpression:
		if len(callee.Segments) >= 2 {
			owner := callee.Segments[len(callee.Segments)-2].Name
			name := callee.Last().Name
			if builtinConstructors[BuiltinKind(owner)] && name == "new" && len(argTypes) == 1 {
				return diags, BuiltinType{Kind: BuiltinKind(owner), Args: argTypes}
			}
			if owner == "String" && (name == "new" || name == "from") {
				return diags, BuiltinType{Kind: BuiltinString}
			}
			if owner == "Vec" && name == "new" {
				return diags, BuiltinType{Kind: BuiltinVec, Args: []Type{UnknownType{}}}
			}
			switch ty := c.lookupOwner(owner).(type) {
			case *UnionType:
				v := ty.Variant(name)
				if v == nil || ty.Native {
					return append(diags, Diagnostic{
						Message: fmt.Sprintf("typechecker: no variant '%s' in untagged union %s", name, ty.UnionName),
						Node:    callee,
					}), UnknownType{}
				}
				return append(diags, c.checkPositionalConstruction(call, ty, v)...), ty
			case *EnumType:
				return diags, ty
			}
		}
	case *ast.Identifier:
		if typ, ok := env.Lookup(callee.Name); ok {
			if fn, ok := typ.(FunctionType); ok {
				if fn.IsUnsafe {
					diags = append(diags, c.gateUnsafeCall(call, callee.Name)...)
				}
				return diags, fn.Return
			}
			return diags, UnknownType{}
		}
		if callee.Name == "Some" && len(argTypes) == 1 {
			return diags, BuiltinType{Kind: BuiltinOption, Args: argTypes}
		}
		if s, ok := c.types[callee.Name].(*StructType); ok {
			return diags, s
		}
		if unions := c.unionVariants[callee.Name]; len(unions) > 0 {
			if len(unions) > 1 {
				names := make([]string, len(unions))
				for i, u := range unions {
					names[i] = u.UnionName
				}
				return append(diags, Diagnostic{
					Message: fmt.Sprintf("typechecker: variant '%s' is ambiguous between %s; qualify the path", callee.Name, strings.Join(names, " and ")),
					Node:    callee,
				}), UnknownType{}
			}
			u := unions[0]
			return append(diags, c.checkPositionalConstruction(call, u, u.Variant(callee.Name))...), u
		}
		if enums := c.enumVariants[callee.Name]; len(enums) == 1 {
			return diags, enums[0]
		}
		return diags, UnknownType{}
	}
	calleeDiags, calleeType := c.checkExpression(env, call.Callee)
	diags = append(diags, calleeDiags...)
	if fn, ok := calleeType.(FunctionType); ok {
		return diags, fn.Return
	}
	return diags, UnknownType{}
}

// checkPositionalConstruction validates `U::A(x, y)`. Construction never
// needs an unsafe context.
func (c *Checker) checkPositionalConstruction(call *ast.FunctionCall, u *UnionType, v *VariantType) []Diagnostic {
	label := u.UnionName + "::" + v.VariantName
	switch v.Kind {
	case ast.FieldKindUnit:
		return []Diagnostic{{
			Message: fmt.Sprintf("typechecker: unit variant %s takes no payload; write %s without parentheses", label, label),
			Node:    call,
		}}
	case ast.FieldKindNamed:
		return []Diagnostic{{
			Message: fmt.Sprintf("typechecker: variant %s has named fields; construct it with %s { ... }", label, label),
			Node:    call,
		}}
	}
	if len(call.Arguments) != len(v.Fields) {
		return []Diagnostic{{
			Message: fmt.Sprintf("typechecker: variant %s expects %d payload value(s), got %d", label, len(v.Fields), len(call.Arguments)),
			Node:    call,
		}}
	}
	return nil
}

func (c *Checker) checkStructLiteral(env *Environment, lit *ast.StructLiteral) ([]Diagnostic, Type) {
	var diags []Diagnostic
	for _, f := range lit.Fields {
		if f == nil {
			continue
		}
		fieldDiags, _ := c.checkExpression(env, f.Value)
		diags = append(diags, fieldDiags...)
	}

	var segments []*ast.Identifier
	switch p := lit.Path.(type) {
	case *ast.PathExpression:
		segments = p.Segments
	case *ast.Identifier:
		segments = []*ast.Identifier{p}
	}
	if len(segments) == 0 {
		return diags, UnknownType{}
	}
	name := segments[len(segments)-1].Name
	if len(segments) >= 2 {
		owner := segments[len(segments)-2].Name
		switch ty := c.lookupOwner(owner).(type) {
		case *UnionType:
			v := ty.Variant(name)
			if v == nil || ty.Native {
				return append(diags, Diagnostic{
					Message: fmt.Sprintf("typechecker: no variant '%s' in untagged union %s", name, ty.UnionName),
					Node:    lit,
				}), UnknownType{}
			}
			return append(diags, c.checkNamedConstruction(lit, ty, v)...), ty
		case *EnumType:
			return diags, ty
		}
		return diags, UnknownType{}
	}
	switch ty := c.lookupOwner(name).(type) {
	case *UnionType:
		if ty.Native {
			if len(lit.Fields) != 1 {
				return append(diags, Diagnostic{
					Message: fmt.Sprintf("typechecker: union expressions must initialize exactly one field of %s", ty.UnionName),
					Node:    lit,
				}), ty
			}
			if f := lit.Fields[0]; f != nil && f.Name != nil && ty.Variant(f.Name.Name) == nil {
				diags = append(diags, Diagnostic{
					Message: fmt.Sprintf("typechecker: union %s has no field '%s'", ty.UnionName, f.Name.Name),
					Node:    f,
				})
			}
		}
		return diags, ty
	case *StructType:
		return diags, ty
	}
	if unions := c.unionVariants[name]; len(unions) == 1 {
		u := unions[0]
		return append(diags, c.checkNamedConstruction(lit, u, u.Variant(name))...), u
	}
	return diags, UnknownType{}
}

func (c *Checker) checkNamedConstruction(lit *ast.StructLiteral, u *UnionType, v *VariantType) []Diagnostic {
	label := u.UnionName + "::" + v.VariantName
	if v.Kind != ast.FieldKindNamed {
		return []Diagnostic{{
			Message: fmt.Sprintf("typechecker: variant %s does not have named fields", label),
			Node:    lit,
		}}
	}
	var diags []Diagnostic
	seen := make(map[string]bool, len(lit.Fields))
	for _, f := range lit.Fields {
		if f == nil || f.Name == nil {
			continue
		}
		if seen[f.Name.Name] {
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf("typechecker: field '%s' initialized more than once in %s", f.Name.Name, label),
				Node:    f,
			})
			continue
		}
		seen[f.Name.Name] = true
		if _, ok := v.Field(f.Name.Name); !ok {
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf("typechecker: variant %s has no field '%s'", label, f.Name.Name),
				Node:    f,
			})
		}
	}
	for _, field := range v.Fields {
		if !seen[field.Name] {
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf("typechecker: missing field '%s' in %s", field.Name, label),
				Node:    lit,
			})
		}
	}
	return diags
}

// checkMemberAccess types `value.field`. Reading a native union field
// requires an unsafe context; writes go through checkAssignment with read unset.
func (c *Checker) checkMemberAccess(env *Environment, expr *ast.MemberAccessExpression, read bool) ([]Diagnostic, Type) {
	diags, objectType := c.checkExpression(env, expr.Object)
	if expr.Member == nil {
		return diags, UnknownType{}
	}
	member := expr.Member.Name
	base := derefType(objectType)
	if ptr, ok := base.(BuiltinType); ok && (ptr.Kind == BuiltinBox || ptr.Kind == BuiltinRc || ptr.Kind == BuiltinArc || ptr.Kind == BuiltinManuallyDrop) {
		base = derefType(ptr.Arg())
	}
	switch ty := base.(type) {
	case *UnionType:
		if !ty.Native {
			return append(diags, Diagnostic{
				Message: fmt.Sprintf("typechecker: untagged union %s has no fields; destructure a variant with a pattern inside unsafe", ty.UnionName),
				Node:    expr,
			}), UnknownType{}
		}
		v := ty.Variant(member)
		if v == nil {
			return append(diags, Diagnostic{
				Message: fmt.Sprintf("typechecker: union %s has no field '%s'", ty.UnionName, member),
				Node:    expr,
			}), UnknownType{}
		}
		if read {
			diags = append(diags, c.gateFieldRead(expr, ty, member)...)
		}
		return diags, v.Fields[0].Type
	case *StructType:
		for _, f := range ty.Fields {
			if f.Name == member {
				return diags, f.Type
			}
		}
		var idx int
		if _, err := fmt.Sscanf(member, "%d", &idx); err == nil && idx >= 0 && idx < len(ty.Fields) {
			return diags, ty.Fields[idx].Type
		}
		return append(diags, Diagnostic{
			Message: fmt.Sprintf("typechecker: struct %s has no field '%s'", ty.StructName, member),
			Node:    expr,
		}), UnknownType{}
	case TupleType:
		var idx int
		if _, err := fmt.Sscanf(member, "%d", &idx); err == nil && idx >= 0 && idx < len(ty.Elements) {
			return diags, ty.Elements[idx]
		}
	}
	return diags, UnknownType{}
}

func (c *Checker) checkUnaryExpression(env *Environment, expr *ast.UnaryExpression) ([]Diagnostic, Type) {
	diags, operand := c.checkExpression(env, expr.Operand)
	switch expr.Operator {
	case "&":
		return diags, ReferenceType{Elem: operand}
	case "&mut":
		return diags, ReferenceType{Elem: operand, Mutable: true}
	case "*":
		switch ty := operand.(type) {
		case ReferenceType:
			return diags, ty.Elem
		case PointerType:
			return append(diags, c.gateRawDeref(expr, ty)...), ty.Elem
		case BuiltinType:
			return diags, ty.Arg()
		}
		return diags, UnknownType{}
	case "!":
		return diags, operand
	case "-":
		return diags, operand
	default:
		return diags, UnknownType{}
	}
}

var comparisonOperators = map[string]bool{
	"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true, "&&": true, "||": true,
}

func (c *Checker) checkBinaryExpression(env *Environment, expr *ast.BinaryExpression) ([]Diagnostic, Type) {
	leftDiags, left := c.checkExpression(env, expr.Left)
	rightDiags, right := c.checkExpression(env, expr.Right)
	diags := append(leftDiags, rightDiags...)
	if comparisonOperators[expr.Operator] {
		return diags, PrimitiveType{Kind: PrimitiveBool}
	}
	if isUnknown(left) {
		return diags, right
	}
	return diags, left
}

func (c *Checker) checkAssignment(env *Environment, expr *ast.AssignmentExpression) ([]Diagnostic, Type) {
	var diags []Diagnostic
	if member, ok := expr.Left.(*ast.MemberAccessExpression); ok {
		// Plain writes to a union field are safe; compound assignment reads first.
		leftDiags, typ := c.checkMemberAccess(env, member, expr.Operator != "=")
		diags = append(diags, leftDiags...)
		c.infer.set(member, typ)
	} else {
		leftDiags, _ := c.checkExpression(env, expr.Left)
		diags = append(diags, leftDiags...)
	}
	rightDiags, _ := c.checkExpression(env, expr.Right)
	diags = append(diags, rightDiags...)
	return diags, unitType
}

func (c *Checker) checkIfExpression(env *Environment, expr *ast.IfExpression) ([]Diagnostic, Type) {
	var diags []Diagnostic
	condDiags, bodyEnv := c.checkCondition(env, expr.Condition, SiteIfLet)
	diags = append(diags, condDiags...)
	var branches []Type
	if expr.Consequent != nil {
		bodyDiags, typ := c.checkExpression(bodyEnv, expr.Consequent)
		diags = append(diags, bodyDiags...)
		branches = append(branches, typ)
	}
	if expr.Alternative != nil {
		altDiags, typ := c.checkExpression(env, expr.Alternative)
		diags = append(diags, altDiags...)
		branches = append(branches, typ)
	} else {
		branches = append(branches, unitType)
	}
	return diags, mergeBranchTypes(branches)
}

// checkCondition checks an `if`/`while` condition, including `let`
// conditions and `&&` chains of them, and returns the environment holding
// their bindings.
func (c *Checker) checkCondition(env *Environment, cond ast.Expression, site Site) ([]Diagnostic, *Environment) {
	bodyEnv := env.Extend()
	var walk func(ast.Expression) []Diagnostic
	walk = func(e ast.Expression) []Diagnostic {
		switch node := e.(type) {
		case *ast.LetCondition:
			diags, valueType := c.checkExpression(bodyEnv, node.Value)
			patternDiags, info := c.checkSingleBranchPattern(site, node.Pattern, valueType)
			diags = append(diags, patternDiags...)
			for name, typ := range info.Bindings {
				bodyEnv.Define(name, typ)
			}
			c.infer.set(node, PrimitiveType{Kind: PrimitiveBool})
			return diags
		case *ast.BinaryExpression:
			if node.Operator == "&&" {
				diags := walk(node.Left)
				diags = append(diags, walk(node.Right)...)
				c.infer.set(node, PrimitiveType{Kind: PrimitiveBool})
				return diags
			}
		}
		diags, typ := c.checkExpression(bodyEnv, e)
		if !isUnknown(typ) && !isBool(typ) {
			diags = append(diags, Diagnostic{
				Message: "typechecker: condition must be bool",
				Node:    e,
			})
		}
		return diags
	}
	if cond == nil {
		return nil, bodyEnv
	}
	return walk(cond), bodyEnv
}
