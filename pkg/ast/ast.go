package ast

import "math/big"

type NodeType string

const (
	NodeIdentifier               NodeType = "Identifier"
	NodePathExpression           NodeType = "PathExpression"
	NodeStringLiteral            NodeType = "StringLiteral"
	NodeIntegerLiteral           NodeType = "IntegerLiteral"
	NodeFloatLiteral             NodeType = "FloatLiteral"
	NodeBooleanLiteral           NodeType = "BooleanLiteral"
	NodeCharLiteral              NodeType = "CharLiteral"
	NodeAttribute                NodeType = "Attribute"
	NodeSimpleTypeExpression     NodeType = "SimpleTypeExpression"
	NodeGenericTypeExpression    NodeType = "GenericTypeExpression"
	NodePointerTypeExpression    NodeType = "PointerTypeExpression"
	NodeReferenceTypeExpression  NodeType = "ReferenceTypeExpression"
	NodeArrayTypeExpression      NodeType = "ArrayTypeExpression"
	NodeTupleTypeExpression      NodeType = "TupleTypeExpression"
	NodeWildcardPattern          NodeType = "WildcardPattern"
	NodeRestPattern              NodeType = "RestPattern"
	NodeLiteralPattern           NodeType = "LiteralPattern"
	NodeRangePattern             NodeType = "RangePattern"
	NodeBindingPattern           NodeType = "BindingPattern"
	NodeStructPatternField       NodeType = "StructPatternField"
	NodeStructPattern            NodeType = "StructPattern"
	NodeTuplePattern             NodeType = "TuplePattern"
	NodeReferencePattern         NodeType = "ReferencePattern"
	NodeOrPattern                NodeType = "OrPattern"
	NodeUnaryExpression          NodeType = "UnaryExpression"
	NodeBinaryExpression         NodeType = "BinaryExpression"
	NodeAssignmentExpression     NodeType = "AssignmentExpression"
	NodeFunctionCall             NodeType = "FunctionCall"
	NodeMemberAccessExpression   NodeType = "MemberAccessExpression"
	NodeTupleExpression          NodeType = "TupleExpression"
	NodeBlockExpression          NodeType = "BlockExpression"
	NodeUnsafeBlockExpression    NodeType = "UnsafeBlockExpression"
	NodeIfExpression             NodeType = "IfExpression"
	NodeLetCondition             NodeType = "LetCondition"
	NodeMatchClause              NodeType = "MatchClause"
	NodeMatchExpression          NodeType = "MatchExpression"
	NodeWhileLoop                NodeType = "WhileLoop"
	NodeLoopExpression           NodeType = "LoopExpression"
	NodeBreakStatement           NodeType = "BreakStatement"
	NodeReturnStatement          NodeType = "ReturnStatement"
	NodeStructFieldInitializer   NodeType = "StructFieldInitializer"
	NodeStructLiteral            NodeType = "StructLiteral"
	NodeOpaqueExpression         NodeType = "OpaqueExpression"
	NodeLetStatement             NodeType = "LetStatement"
	NodeFieldDefinition          NodeType = "FieldDefinition"
	NodeVariantDefinition        NodeType = "VariantDefinition"
	NodeStructDefinition         NodeType = "StructDefinition"
	NodeEnumDefinition           NodeType = "EnumDefinition"
	NodeUnionDefinition          NodeType = "UnionDefinition"
	NodeFunctionParameter        NodeType = "FunctionParameter"
	NodeFunctionDefinition       NodeType = "FunctionDefinition"
	NodeImplementationDefinition NodeType = "ImplementationDefinition"
	NodeUseDeclaration           NodeType = "UseDeclaration"
	NodeModule                   NodeType = "Module"
)

type Node interface {
	NodeType() NodeType
	Span() Span
	isNode()
}

type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type Span struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

type nodeImpl struct {
	Type NodeType `json:"type"`
	span Span
}

func newNodeImpl(kind NodeType) nodeImpl {
	return nodeImpl{Type: kind}
}

func (n nodeImpl) NodeType() NodeType { return n.Type }
func (n nodeImpl) Span() Span         { return n.span }
func (nodeImpl) isNode()              {}
func (n *nodeImpl) setSpan(span Span) { n.span = span }

// Marker interfaces.

type Expression interface {
	Node
	expressionNode()
	statementNode()
}

type expressionMarker struct{}

func (expressionMarker) expressionNode() {}

type Statement interface {
	Node
	statementNode()
}

type statementMarker struct{}

func (statementMarker) statementNode() {}

type TypeExpression interface {
	Node
	typeExpressionNode()
}

type typeExpressionMarker struct{}

func (typeExpressionMarker) typeExpressionNode() {}

type Literal interface {
	Expression
	literalNode()
}

type literalMarker struct{}

func (literalMarker) literalNode() {}

// Identifier

type Identifier struct {
	nodeImpl
	expressionMarker
	statementMarker
	patternMarker

	Name string `json:"name"`
}

func NewIdentifier(name string) *Identifier {
	return &Identifier{nodeImpl: newNodeImpl(NodeIdentifier), Name: name}
}

// PathExpression is a `::`-separated path such as `U::A`.
type PathExpression struct {
	nodeImpl
	expressionMarker
	statementMarker

	Segments []*Identifier `json:"segments"`
}

func NewPathExpression(segments []*Identifier) *PathExpression {
	return &PathExpression{nodeImpl: newNodeImpl(NodePathExpression), Segments: segments}
}

// Last returns the final path segment.
func (p *PathExpression) Last() *Identifier {
	if p == nil || len(p.Segments) == 0 {
		return nil
	}
	return p.Segments[len(p.Segments)-1]
}

// Literals

type StringLiteral struct {
	nodeImpl
	expressionMarker
	statementMarker
	literalMarker

	Value string `json:"value"`
}

func NewStringLiteral(value string) *StringLiteral {
	return &StringLiteral{nodeImpl: newNodeImpl(NodeStringLiteral), Value: value}
}

type IntegerLiteral struct {
	nodeImpl
	expressionMarker
	statementMarker
	literalMarker

	Value  *big.Int `json:"value"`
	Suffix string   `json:"suffix,omitempty"`
}

func NewIntegerLiteral(value *big.Int, suffix string) *IntegerLiteral {
	return &IntegerLiteral{nodeImpl: newNodeImpl(NodeIntegerLiteral), Value: value, Suffix: suffix}
}

type FloatLiteral struct {
	nodeImpl
	expressionMarker
	statementMarker
	literalMarker

	Value  float64 `json:"value"`
	Suffix string  `json:"suffix,omitempty"`
}

func NewFloatLiteral(value float64, suffix string) *FloatLiteral {
	return &FloatLiteral{nodeImpl: newNodeImpl(NodeFloatLiteral), Value: value, Suffix: suffix}
}

type BooleanLiteral struct {
	nodeImpl
	expressionMarker
	statementMarker
	literalMarker

	Value bool `json:"value"`
}

func NewBooleanLiteral(value bool) *BooleanLiteral {
	return &BooleanLiteral{nodeImpl: newNodeImpl(NodeBooleanLiteral), Value: value}
}

type CharLiteral struct {
	nodeImpl
	expressionMarker
	statementMarker
	literalMarker

	Value string `json:"value"`
}

func NewCharLiteral(value string) *CharLiteral {
	return &CharLiteral{nodeImpl: newNodeImpl(NodeCharLiteral), Value: value}
}

// Attributes

// Attribute is an outer attribute such as `#[repr(C)]`. Arguments holds the
// top-level comma separated items inside the parentheses, verbatim.
type Attribute struct {
	nodeImpl

	Name      string   `json:"name"`
	Arguments []string `json:"arguments,omitempty"`
}

func NewAttribute(name string, arguments []string) *Attribute {
	return &Attribute{nodeImpl: newNodeImpl(NodeAttribute), Name: name, Arguments: arguments}
}

// HasAttribute reports whether attrs contains an attribute with the given name.
func HasAttribute(attrs []*Attribute, name string) bool {
	for _, attr := range attrs {
		if attr != nil && attr.Name == name {
			return true
		}
	}
	return false
}

// Type expressions

type SimpleTypeExpression struct {
	nodeImpl
	typeExpressionMarker

	Name *Identifier `json:"name"`
}

func NewSimpleTypeExpression(name *Identifier) *SimpleTypeExpression {
	return &SimpleTypeExpression{nodeImpl: newNodeImpl(NodeSimpleTypeExpression), Name: name}
}

type GenericTypeExpression struct {
	nodeImpl
	typeExpressionMarker

	Base      *SimpleTypeExpression `json:"base"`
	Arguments []TypeExpression      `json:"arguments"`
}

func NewGenericTypeExpression(base *SimpleTypeExpression, args []TypeExpression) *GenericTypeExpression {
	return &GenericTypeExpression{nodeImpl: newNodeImpl(NodeGenericTypeExpression), Base: base, Arguments: args}
}

type PointerTypeExpression struct {
	nodeImpl
	typeExpressionMarker

	Mutable bool           `json:"mutable"`
	Inner   TypeExpression `json:"inner"`
}

func NewPointerTypeExpression(inner TypeExpression, mutable bool) *PointerTypeExpression {
	return &PointerTypeExpression{nodeImpl: newNodeImpl(NodePointerTypeExpression), Mutable: mutable, Inner: inner}
}

type ReferenceTypeExpression struct {
	nodeImpl
	typeExpressionMarker

	Mutable bool           `json:"mutable"`
	Inner   TypeExpression `json:"inner"`
}

func NewReferenceTypeExpression(inner TypeExpression, mutable bool) *ReferenceTypeExpression {
	return &ReferenceTypeExpression{nodeImpl: newNodeImpl(NodeReferenceTypeExpression), Mutable: mutable, Inner: inner}
}

// ArrayTypeExpression is `[T; N]`, or a slice `[T]` when Length is nil.
type ArrayTypeExpression struct {
	nodeImpl
	typeExpressionMarker

	Element TypeExpression  `json:"element"`
	Length  *IntegerLiteral `json:"length,omitempty"`
}

func NewArrayTypeExpression(element TypeExpression, length *IntegerLiteral) *ArrayTypeExpression {
	return &ArrayTypeExpression{nodeImpl: newNodeImpl(NodeArrayTypeExpression), Element: element, Length: length}
}

// TupleTypeExpression with no elements is the unit type.
type TupleTypeExpression struct {
	nodeImpl
	typeExpressionMarker

	Elements []TypeExpression `json:"elements"`
}

func NewTupleTypeExpression(elements []TypeExpression) *TupleTypeExpression {
	return &TupleTypeExpression{nodeImpl: newNodeImpl(NodeTupleTypeExpression), Elements: elements}
}

// Expressions

type UnaryExpression struct {
	nodeImpl
	expressionMarker
	statementMarker

	Operator string     `json:"operator"`
	Operand  Expression `json:"operand"`
}

func NewUnaryExpression(operator string, operand Expression) *UnaryExpression {
	return &UnaryExpression{nodeImpl: newNodeImpl(NodeUnaryExpression), Operator: operator, Operand: operand}
}

type BinaryExpression struct {
	nodeImpl
	expressionMarker
	statementMarker

	Operator string     `json:"operator"`
	Left     Expression `json:"left"`
	Right    Expression `json:"right"`
}

func NewBinaryExpression(operator string, left, right Expression) *BinaryExpression {
	return &BinaryExpression{nodeImpl: newNodeImpl(NodeBinaryExpression), Operator: operator, Left: left, Right: right}
}

type AssignmentExpression struct {
	nodeImpl
	expressionMarker
	statementMarker

	Operator string     `json:"operator"`
	Left     Expression `json:"left"`
	Right    Expression `json:"right"`
}

func NewAssignmentExpression(operator string, left, right Expression) *AssignmentExpression {
	return &AssignmentExpression{nodeImpl: newNodeImpl(NodeAssignmentExpression), Operator: operator, Left: left, Right: right}
}

type FunctionCall struct {
	nodeImpl
	expressionMarker
	statementMarker

	Callee    Expression   `json:"callee"`
	Arguments []Expression `json:"arguments"`
}

func NewFunctionCall(callee Expression, args []Expression) *FunctionCall {
	return &FunctionCall{nodeImpl: newNodeImpl(NodeFunctionCall), Callee: callee, Arguments: args}
}

type MemberAccessExpression struct {
	nodeImpl
	expressionMarker
	statementMarker

	Object Expression  `json:"object"`
	Member *Identifier `json:"member"`
}

func NewMemberAccessExpression(object Expression, member *Identifier) *MemberAccessExpression {
	return &MemberAccessExpression{nodeImpl: newNodeImpl(NodeMemberAccessExpression), Object: object, Member: member}
}

type TupleExpression struct {
	nodeImpl
	expressionMarker
	statementMarker

	Elements []Expression `json:"elements"`
}

func NewTupleExpression(elements []Expression) *TupleExpression {
	return &TupleExpression{nodeImpl: newNodeImpl(NodeTupleExpression), Elements: elements}
}

type BlockExpression struct {
	nodeImpl
	expressionMarker
	statementMarker

	Body []Statement `json:"body"`
}

func NewBlockExpression(body []Statement) *BlockExpression {
	return &BlockExpression{nodeImpl: newNodeImpl(NodeBlockExpression), Body: body}
}

// UnsafeBlockExpression is `unsafe { ... }`.
type UnsafeBlockExpression struct {
	nodeImpl
	expressionMarker
	statementMarker

	Block *BlockExpression `json:"block"`
}

func NewUnsafeBlockExpression(block *BlockExpression) *UnsafeBlockExpression {
	return &UnsafeBlockExpression{nodeImpl: newNodeImpl(NodeUnsafeBlockExpression), Block: block}
}

// LetCondition is the `let PAT = EXPR` condition of `if let` / `while let`.
type LetCondition struct {
	nodeImpl
	expressionMarker
	statementMarker

	Pattern Pattern    `json:"pattern"`
	Value   Expression `json:"value"`
}

func NewLetCondition(pattern Pattern, value Expression) *LetCondition {
	return &LetCondition{nodeImpl: newNodeImpl(NodeLetCondition), Pattern: pattern, Value: value}
}

type IfExpression struct {
	nodeImpl
	expressionMarker
	statementMarker

	Condition   Expression       `json:"condition"`
	Consequent  *BlockExpression `json:"consequent"`
	Alternative Expression       `json:"alternative,omitempty"`
}

func NewIfExpression(condition Expression, consequent *BlockExpression, alternative Expression) *IfExpression {
	return &IfExpression{nodeImpl: newNodeImpl(NodeIfExpression), Condition: condition, Consequent: consequent, Alternative: alternative}
}

type MatchClause struct {
	nodeImpl

	Pattern Pattern    `json:"pattern"`
	Guard   Expression `json:"guard,omitempty"`
	Body    Expression `json:"body"`
}

func NewMatchClause(pattern Pattern, body Expression, guard Expression) *MatchClause {
	return &MatchClause{nodeImpl: newNodeImpl(NodeMatchClause), Pattern: pattern, Body: body, Guard: guard}
}

type MatchExpression struct {
	nodeImpl
	expressionMarker
	statementMarker

	Subject Expression     `json:"subject"`
	Clauses []*MatchClause `json:"clauses"`
}

func NewMatchExpression(subject Expression, clauses []*MatchClause) *MatchExpression {
	return &MatchExpression{nodeImpl: newNodeImpl(NodeMatchExpression), Subject: subject, Clauses: clauses}
}

type WhileLoop struct {
	nodeImpl
	expressionMarker
	statementMarker

	Condition Expression       `json:"condition"`
	Body      *BlockExpression `json:"body"`
}

func NewWhileLoop(condition Expression, body *BlockExpression) *WhileLoop {
	return &WhileLoop{nodeImpl: newNodeImpl(NodeWhileLoop), Condition: condition, Body: body}
}

type LoopExpression struct {
	nodeImpl
	expressionMarker
	statementMarker

	Body *BlockExpression `json:"body"`
}

func NewLoopExpression(body *BlockExpression) *LoopExpression {
	return &LoopExpression{nodeImpl: newNodeImpl(NodeLoopExpression), Body: body}
}

type BreakStatement struct {
	nodeImpl
	expressionMarker
	statementMarker

	Value Expression `json:"value,omitempty"`
}

func NewBreakStatement(value Expression) *BreakStatement {
	return &BreakStatement{nodeImpl: newNodeImpl(NodeBreakStatement), Value: value}
}

type ReturnStatement struct {
	nodeImpl
	expressionMarker
	statementMarker

	Argument Expression `json:"argument,omitempty"`
}

func NewReturnStatement(argument Expression) *ReturnStatement {
	return &ReturnStatement{nodeImpl: newNodeImpl(NodeReturnStatement), Argument: argument}
}

type StructFieldInitializer struct {
	nodeImpl

	Name  *Identifier `json:"name"`
	Value Expression  `json:"value"`
}

func NewStructFieldInitializer(name *Identifier, value Expression) *StructFieldInitializer {
	return &StructFieldInitializer{nodeImpl: newNodeImpl(NodeStructFieldInitializer), Name: name, Value: value}
}

// StructLiteral is `Path { field: value, .. }`; Path is an Identifier or a PathExpression.
type StructLiteral struct {
	nodeImpl
	expressionMarker
	statementMarker

	Path   Expression                `json:"path"`
	Fields []*StructFieldInitializer `json:"fields"`
}

func NewStructLiteral(path Expression, fields []*StructFieldInitializer) *StructLiteral {
	return &StructLiteral{nodeImpl: newNodeImpl(NodeStructLiteral), Path: path, Fields: fields}
}

// OpaqueExpression stands for host syntax the checker does not model (macros,
// casts, closures, ...). Nested expressions are kept so they are still visited.
type OpaqueExpression struct {
	nodeImpl
	expressionMarker
	statementMarker

	Kind     string       `json:"kind"`
	Children []Expression `json:"children,omitempty"`
}

func NewOpaqueExpression(kind string, children []Expression) *OpaqueExpression {
	return &OpaqueExpression{nodeImpl: newNodeImpl(NodeOpaqueExpression), Kind: kind, Children: children}
}

// Statements

type LetStatement struct {
	nodeImpl
	statementMarker

	Pattern        Pattern          `json:"pattern"`
	TypeAnnotation TypeExpression   `json:"typeAnnotation,omitempty"`
	Value          Expression       `json:"value,omitempty"`
	Else           *BlockExpression `json:"else,omitempty"`
}

func NewLetStatement(pattern Pattern, typeAnnotation TypeExpression, value Expression, elseBlock *BlockExpression) *LetStatement {
	return &LetStatement{nodeImpl: newNodeImpl(NodeLetStatement), Pattern: pattern, TypeAnnotation: typeAnnotation, Value: value, Else: elseBlock}
}

// Definitions

type FieldKind string

const (
	FieldKindUnit       FieldKind = "unit"
	FieldKindPositional FieldKind = "positional"
	FieldKindNamed      FieldKind = "named"
)

// FieldDefinition is a struct or variant field; Name is nil for positional fields.
type FieldDefinition struct {
	nodeImpl

	Name *Identifier    `json:"name,omitempty"`
	Type TypeExpression `json:"fieldType"`
}

func NewFieldDefinition(fieldType TypeExpression, name *Identifier) *FieldDefinition {
	return &FieldDefinition{nodeImpl: newNodeImpl(NodeFieldDefinition), Type: fieldType, Name: name}
}

type VariantDefinition struct {
	nodeImpl

	ID     *Identifier        `json:"id"`
	Kind   FieldKind          `json:"kind"`
	Fields []*FieldDefinition `json:"fields"`
}

func NewVariantDefinition(id *Identifier, kind FieldKind, fields []*FieldDefinition) *VariantDefinition {
	return &VariantDefinition{nodeImpl: newNodeImpl(NodeVariantDefinition), ID: id, Kind: kind, Fields: fields}
}

type StructDefinition struct {
	nodeImpl
	statementMarker

	ID         *Identifier        `json:"id"`
	Kind       FieldKind          `json:"kind"`
	Fields     []*FieldDefinition `json:"fields"`
	Attributes []*Attribute       `json:"attributes,omitempty"`
	IsPublic   bool               `json:"isPublic"`
}

func NewStructDefinition(id *Identifier, kind FieldKind, fields []*FieldDefinition, attrs []*Attribute, isPublic bool) *StructDefinition {
	return &StructDefinition{nodeImpl: newNodeImpl(NodeStructDefinition), ID: id, Kind: kind, Fields: fields, Attributes: attrs, IsPublic: isPublic}
}

// EnumDefinition is an ordinary tagged enum.
type EnumDefinition struct {
	nodeImpl
	statementMarker

	ID         *Identifier          `json:"id"`
	Variants   []*VariantDefinition `json:"variants"`
	Attributes []*Attribute         `json:"attributes,omitempty"`
	IsPublic   bool                 `json:"isPublic"`
}

func NewEnumDefinition(id *Identifier, variants []*VariantDefinition, attrs []*Attribute, isPublic bool) *EnumDefinition {
	return &EnumDefinition{nodeImpl: newNodeImpl(NodeEnumDefinition), ID: id, Variants: variants, Attributes: attrs, IsPublic: isPublic}
}

// UnionDefinition declares an untagged union: either an `#[unsafe_enum] enum`
// or a native `union` item (Native), whose fields become single-payload variants.
type UnionDefinition struct {
	nodeImpl
	statementMarker

	ID         *Identifier          `json:"id"`
	Variants   []*VariantDefinition `json:"variants"`
	Attributes []*Attribute         `json:"attributes,omitempty"`
	Native     bool                 `json:"native"`
	IsPublic   bool                 `json:"isPublic"`
}

func NewUnionDefinition(id *Identifier, variants []*VariantDefinition, attrs []*Attribute, native bool, isPublic bool) *UnionDefinition {
	return &UnionDefinition{nodeImpl: newNodeImpl(NodeUnionDefinition), ID: id, Variants: variants, Attributes: attrs, Native: native, IsPublic: isPublic}
}

type FunctionParameter struct {
	nodeImpl

	Pattern Pattern        `json:"pattern"`
	Type    TypeExpression `json:"paramType"`
}

func NewFunctionParameter(pattern Pattern, paramType TypeExpression) *FunctionParameter {
	return &FunctionParameter{nodeImpl: newNodeImpl(NodeFunctionParameter), Pattern: pattern, Type: paramType}
}

type FunctionDefinition struct {
	nodeImpl
	statementMarker

	ID         *Identifier          `json:"id"`
	Params     []*FunctionParameter `json:"params"`
	ReturnType TypeExpression       `json:"returnType,omitempty"`
	Body       *BlockExpression     `json:"body,omitempty"`
	IsUnsafe   bool                 `json:"isUnsafe"`
	IsPublic   bool                 `json:"isPublic"`
}

func NewFunctionDefinition(id *Identifier, params []*FunctionParameter, returnType TypeExpression, body *BlockExpression, isUnsafe bool, isPublic bool) *FunctionDefinition {
	return &FunctionDefinition{nodeImpl: newNodeImpl(NodeFunctionDefinition), ID: id, Params: params, ReturnType: returnType, Body: body, IsUnsafe: isUnsafe, IsPublic: isPublic}
}

// ImplementationDefinition is `impl Trait for Type { ... }`. Negative impls
// (`impl !Send for T {}`) set Negative; `unsafe impl` sets IsUnsafe.
type ImplementationDefinition struct {
	nodeImpl
	statementMarker

	Trait    *Identifier           `json:"trait,omitempty"`
	Target   TypeExpression        `json:"target"`
	Methods  []*FunctionDefinition `json:"methods,omitempty"`
	Negative bool                  `json:"negative"`
	IsUnsafe bool                  `json:"isUnsafe"`
}

func NewImplementationDefinition(trait *Identifier, target TypeExpression, methods []*FunctionDefinition, negative bool, isUnsafe bool) *ImplementationDefinition {
	return &ImplementationDefinition{nodeImpl: newNodeImpl(NodeImplementationDefinition), Trait: trait, Target: target, Methods: methods, Negative: negative, IsUnsafe: isUnsafe}
}

// UseDeclaration is `use a::b::C;`. Grouped imports (`use a::{B, C}`) are
// flattened into one declaration per leaf by the parser.
type UseDeclaration struct {
	nodeImpl
	statementMarker

	Path     []*Identifier `json:"path"`
	Wildcard bool          `json:"wildcard,omitempty"`
}

func NewUseDeclaration(path []*Identifier, wildcard bool) *UseDeclaration {
	return &UseDeclaration{nodeImpl: newNodeImpl(NodeUseDeclaration), Path: path, Wildcard: wildcard}
}

type Module struct {
	nodeImpl

	Body []Statement `json:"body"`
}

func NewModule(body []Statement) *Module {
	return &Module{nodeImpl: newNodeImpl(NodeModule), Body: body}
}
