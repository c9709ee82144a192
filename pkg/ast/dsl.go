package ast

import "math/big"

// Identifier and literal helpers.

func ID(name string) *Identifier {
	return NewIdentifier(name)
}

func Str(value string) *StringLiteral {
	return NewStringLiteral(value)
}

func Int(value int64) *IntegerLiteral {
	return NewIntegerLiteral(big.NewInt(value), "")
}

func IntTyped(value int64, suffix string) *IntegerLiteral {
	return NewIntegerLiteral(big.NewInt(value), suffix)
}

func Flt(value float64) *FloatLiteral {
	return NewFloatLiteral(value, "")
}

func Bool(value bool) *BooleanLiteral {
	return NewBooleanLiteral(value)
}

func Chr(value string) *CharLiteral {
	return NewCharLiteral(value)
}

// Path builds `a::b::c`.
func Path(segments ...string) *PathExpression {
	ids := make([]*Identifier, len(segments))
	for i, seg := range segments {
		ids[i] = ID(seg)
	}
	return NewPathExpression(ids)
}

func Attr(name string, args ...string) *Attribute {
	return NewAttribute(name, args)
}

func ReprC() *Attribute {
	return Attr("repr", "C")
}

func Derive(names ...string) *Attribute {
	return Attr("derive", names...)
}

func UnsafeEnumAttr() *Attribute {
	return Attr("unsafe_enum")
}

// Type expression helpers.

func Ty(name string) *SimpleTypeExpression {
	return NewSimpleTypeExpression(ID(name))
}

func Gen(base string, args ...TypeExpression) *GenericTypeExpression {
	return NewGenericTypeExpression(Ty(base), args)
}

func PtrTy(inner TypeExpression, mutable bool) *PointerTypeExpression {
	return NewPointerTypeExpression(inner, mutable)
}

func RefTy(inner TypeExpression, mutable bool) *ReferenceTypeExpression {
	return NewReferenceTypeExpression(inner, mutable)
}

func ArrTy(element TypeExpression, length int64) *ArrayTypeExpression {
	return NewArrayTypeExpression(element, Int(length))
}

func TupleTy(elements ...TypeExpression) *TupleTypeExpression {
	return NewTupleTypeExpression(elements)
}

// Expression helpers.

func Call(callee Expression, args ...Expression) *FunctionCall {
	return NewFunctionCall(callee, args)
}

func Member(object Expression, member string) *MemberAccessExpression {
	return NewMemberAccessExpression(object, ID(member))
}

func Bin(op string, left, right Expression) *BinaryExpression {
	return NewBinaryExpression(op, left, right)
}

func Un(op string, operand Expression) *UnaryExpression {
	return NewUnaryExpression(op, operand)
}

func Assign(left, right Expression) *AssignmentExpression {
	return NewAssignmentExpression("=", left, right)
}

func Block(stmts ...Statement) *BlockExpression {
	return NewBlockExpression(stmts)
}

func Unsafe(stmts ...Statement) *UnsafeBlockExpression {
	return NewUnsafeBlockExpression(Block(stmts...))
}

func If(cond Expression, consequent *BlockExpression, alt Expression) *IfExpression {
	return NewIfExpression(cond, consequent, alt)
}

func LetCond(pattern Pattern, value Expression) *LetCondition {
	return NewLetCondition(pattern, value)
}

func IfLet(pattern Pattern, value Expression, consequent *BlockExpression, alt Expression) *IfExpression {
	return NewIfExpression(LetCond(pattern, value), consequent, alt)
}

func WhileLet(pattern Pattern, value Expression, body *BlockExpression) *WhileLoop {
	return NewWhileLoop(LetCond(pattern, value), body)
}

func Match(subject Expression, clauses ...*MatchClause) *MatchExpression {
	return NewMatchExpression(subject, clauses)
}

func Clause(pattern Pattern, body Expression) *MatchClause {
	return NewMatchClause(pattern, body, nil)
}

func ClauseIf(pattern Pattern, guard Expression, body Expression) *MatchClause {
	return NewMatchClause(pattern, body, guard)
}

func Ret(arg Expression) *ReturnStatement {
	return NewReturnStatement(arg)
}

func FieldInit(name string, value Expression) *StructFieldInitializer {
	return NewStructFieldInitializer(ID(name), value)
}

func StructLit(path Expression, fields ...*StructFieldInitializer) *StructLiteral {
	return NewStructLiteral(path, fields)
}

// Statement helpers.

func Let(pattern Pattern, value Expression) *LetStatement {
	return NewLetStatement(pattern, nil, value, nil)
}

func LetTyped(pattern Pattern, typeExpr TypeExpression, value Expression) *LetStatement {
	return NewLetStatement(pattern, typeExpr, value, nil)
}

func LetElse(pattern Pattern, value Expression, elseBlock *BlockExpression) *LetStatement {
	return NewLetStatement(pattern, nil, value, elseBlock)
}

// Pattern helpers.

func Wc() *WildcardPattern {
	return NewWildcardPattern()
}

func Rest() *RestPattern {
	return NewRestPattern()
}

func LitP(literal Literal) *LiteralPattern {
	return NewLiteralPattern(literal)
}

func RangeP(start, end Literal, inclusive bool) *RangePattern {
	return NewRangePattern(start, end, inclusive)
}

// Bind is a plain `name` binding.
func Bind(name string) *Identifier {
	return ID(name)
}

func RefBind(name string) *BindingPattern {
	return NewBindingPattern(ID(name), true, false, nil)
}

func MutBind(name string) *BindingPattern {
	return NewBindingPattern(ID(name), false, true, nil)
}

func At(name string, sub Pattern) *BindingPattern {
	return NewBindingPattern(ID(name), false, false, sub)
}

func splitPath(path string) []*Identifier {
	var ids []*Identifier
	start := 0
	for i := 0; i+1 < len(path); i++ {
		if path[i] == ':' && path[i+1] == ':' {
			ids = append(ids, ID(path[start:i]))
			start = i + 2
			i++
		}
	}
	return append(ids, ID(path[start:]))
}

// VariantP builds a positional pattern such as `U::A(x, _)`.
func VariantP(path string, elements ...Pattern) *StructPattern {
	return NewStructPattern(splitPath(path), elements, nil, true, false, false)
}

// VariantUnitP builds a unit variant pattern such as `U::Empty`.
func VariantUnitP(path string) *StructPattern {
	return NewStructPattern(splitPath(path), nil, nil, false, true, false)
}

// VariantNamedP builds `U::A { f: p, .. }`.
func VariantNamedP(path string, hasRest bool, fields ...*StructPatternField) *StructPattern {
	return NewStructPattern(splitPath(path), nil, fields, false, false, hasRest)
}

func FieldP(name string, pattern Pattern) *StructPatternField {
	return NewStructPatternField(ID(name), pattern)
}

func TupleP(elements ...Pattern) *TuplePattern {
	return NewTuplePattern(elements)
}

func RefP(inner Pattern) *ReferencePattern {
	return NewReferencePattern(inner, false)
}

func OrP(alternatives ...Pattern) *OrPattern {
	return NewOrPattern(alternatives)
}

// Definition helpers.

func Field(name string, typeExpr TypeExpression) *FieldDefinition {
	return NewFieldDefinition(typeExpr, ID(name))
}

func PosField(typeExpr TypeExpression) *FieldDefinition {
	return NewFieldDefinition(typeExpr, nil)
}

// Variant builds a positional variant `A(T1, T2)`; no payload yields a unit variant.
func Variant(name string, payload ...TypeExpression) *VariantDefinition {
	if len(payload) == 0 {
		return NewVariantDefinition(ID(name), FieldKindUnit, nil)
	}
	fields := make([]*FieldDefinition, len(payload))
	for i, p := range payload {
		fields[i] = PosField(p)
	}
	return NewVariantDefinition(ID(name), FieldKindPositional, fields)
}

func VariantNamed(name string, fields ...*FieldDefinition) *VariantDefinition {
	return NewVariantDefinition(ID(name), FieldKindNamed, fields)
}

// UnionDef builds `#[unsafe_enum] enum name { ... }` with optional extra attributes.
func UnionDef(name string, attrs []*Attribute, variants ...*VariantDefinition) *UnionDefinition {
	all := append([]*Attribute{UnsafeEnumAttr()}, attrs...)
	return NewUnionDefinition(ID(name), variants, all, false, false)
}

// NativeUnionDef builds `union name { field: T, ... }`.
func NativeUnionDef(name string, attrs []*Attribute, fields ...*FieldDefinition) *UnionDefinition {
	variants := make([]*VariantDefinition, len(fields))
	for i, f := range fields {
		variants[i] = NewVariantDefinition(f.Name, FieldKindPositional, []*FieldDefinition{PosField(f.Type)})
	}
	return NewUnionDefinition(ID(name), variants, attrs, true, false)
}

func StructDef(name string, attrs []*Attribute, fields ...*FieldDefinition) *StructDefinition {
	return NewStructDefinition(ID(name), FieldKindNamed, fields, attrs, false)
}

func EnumDef(name string, attrs []*Attribute, variants ...*VariantDefinition) *EnumDefinition {
	return NewEnumDefinition(ID(name), variants, attrs, false)
}

func Param(pattern Pattern, typeExpr TypeExpression) *FunctionParameter {
	return NewFunctionParameter(pattern, typeExpr)
}

func Fn(name string, params []*FunctionParameter, body ...Statement) *FunctionDefinition {
	return NewFunctionDefinition(ID(name), params, nil, Block(body...), false, false)
}

func UnsafeFn(name string, params []*FunctionParameter, body ...Statement) *FunctionDefinition {
	return NewFunctionDefinition(ID(name), params, nil, Block(body...), true, false)
}

func Impl(trait string, target TypeExpression, methods ...*FunctionDefinition) *ImplementationDefinition {
	return NewImplementationDefinition(ID(trait), target, methods, false, false)
}

func NegImpl(trait string, target TypeExpression) *ImplementationDefinition {
	return NewImplementationDefinition(ID(trait), target, nil, true, false)
}

func UnsafeImpl(trait string, target TypeExpression) *ImplementationDefinition {
	return NewImplementationDefinition(ID(trait), target, nil, false, true)
}

func Mod(body ...Statement) *Module {
	return NewModule(body)
}
