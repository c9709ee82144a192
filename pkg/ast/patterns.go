package ast

// Patterns

type Pattern interface {
	Node
	patternNode()
}

type patternMarker struct{}

func (patternMarker) patternNode() {}

type WildcardPattern struct {
	nodeImpl
	patternMarker
}

func NewWildcardPattern() *WildcardPattern {
	return &WildcardPattern{nodeImpl: newNodeImpl(NodeWildcardPattern)}
}

// RestPattern is `..` inside a tuple or struct pattern.
type RestPattern struct {
	nodeImpl
	patternMarker
}

func NewRestPattern() *RestPattern {
	return &RestPattern{nodeImpl: newNodeImpl(NodeRestPattern)}
}

type LiteralPattern struct {
	nodeImpl
	patternMarker

	Literal Literal `json:"literal"`
}

func NewLiteralPattern(literal Literal) *LiteralPattern {
	return &LiteralPattern{nodeImpl: newNodeImpl(NodeLiteralPattern), Literal: literal}
}

// RangePattern is `lo..=hi`, `lo..hi`, `lo..` or `..=hi`; open ends are nil.
type RangePattern struct {
	nodeImpl
	patternMarker

	Start     Literal `json:"start,omitempty"`
	End       Literal `json:"end,omitempty"`
	Inclusive bool    `json:"inclusive"`
}

func NewRangePattern(start, end Literal, inclusive bool) *RangePattern {
	return &RangePattern{nodeImpl: newNodeImpl(NodeRangePattern), Start: start, End: end, Inclusive: inclusive}
}

// BindingPattern covers `ref x`, `mut x` and `x @ sub`.
type BindingPattern struct {
	nodeImpl
	patternMarker

	Name       *Identifier `json:"name"`
	ByRef      bool        `json:"byRef"`
	Mutable    bool        `json:"mutable"`
	Subpattern Pattern     `json:"subpattern,omitempty"`
}

func NewBindingPattern(name *Identifier, byRef, mutable bool, sub Pattern) *BindingPattern {
	return &BindingPattern{nodeImpl: newNodeImpl(NodeBindingPattern), Name: name, ByRef: byRef, Mutable: mutable, Subpattern: sub}
}

// StructPatternField is `name: pattern`; shorthand `name` uses the identifier as pattern.
type StructPatternField struct {
	nodeImpl

	FieldName *Identifier `json:"fieldName"`
	Pattern   Pattern     `json:"pattern"`
}

func NewStructPatternField(fieldName *Identifier, pattern Pattern) *StructPatternField {
	return &StructPatternField{nodeImpl: newNodeImpl(NodeStructPatternField), FieldName: fieldName, Pattern: pattern}
}

// StructPattern matches a struct or variant by path: `A(x)`, `U::A { x, .. }`, `U::A`.
type StructPattern struct {
	nodeImpl
	patternMarker

	Path         []*Identifier         `json:"path"`
	Elements     []Pattern             `json:"elements,omitempty"`
	Fields       []*StructPatternField `json:"fields,omitempty"`
	IsPositional bool                  `json:"isPositional"`
	IsUnit       bool                  `json:"isUnit"`
	HasRest      bool                  `json:"hasRest"`
}

func NewStructPattern(path []*Identifier, elements []Pattern, fields []*StructPatternField, isPositional, isUnit, hasRest bool) *StructPattern {
	return &StructPattern{
		nodeImpl:     newNodeImpl(NodeStructPattern),
		Path:         path,
		Elements:     elements,
		Fields:       fields,
		IsPositional: isPositional,
		IsUnit:       isUnit,
		HasRest:      hasRest,
	}
}

// Name returns the final path segment, i.e. the struct or variant name.
func (p *StructPattern) Name() string {
	if p == nil || len(p.Path) == 0 || p.Path[len(p.Path)-1] == nil {
		return ""
	}
	return p.Path[len(p.Path)-1].Name
}

// Qualifier returns the path segment before the name (`U` in `U::A`), if any.
func (p *StructPattern) Qualifier() string {
	if p == nil || len(p.Path) < 2 || p.Path[len(p.Path)-2] == nil {
		return ""
	}
	return p.Path[len(p.Path)-2].Name
}

type TuplePattern struct {
	nodeImpl
	patternMarker

	Elements []Pattern `json:"elements"`
}

func NewTuplePattern(elements []Pattern) *TuplePattern {
	return &TuplePattern{nodeImpl: newNodeImpl(NodeTuplePattern), Elements: elements}
}

type ReferencePattern struct {
	nodeImpl
	patternMarker

	Mutable bool    `json:"mutable"`
	Inner   Pattern `json:"inner"`
}

func NewReferencePattern(inner Pattern, mutable bool) *ReferencePattern {
	return &ReferencePattern{nodeImpl: newNodeImpl(NodeReferencePattern), Inner: inner, Mutable: mutable}
}

type OrPattern struct {
	nodeImpl
	patternMarker

	Alternatives []Pattern `json:"alternatives"`
}

func NewOrPattern(alternatives []Pattern) *OrPattern {
	return &OrPattern{nodeImpl: newNodeImpl(NodeOrPattern), Alternatives: alternatives}
}
