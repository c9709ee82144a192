package typechecker

import (
	"fmt"
	"strings"

	"untagged/checker-go/pkg/ast"
)

// PatternInfo is the classifier's summary of one pattern.
type PatternInfo struct {
	// Refutable is set when the pattern may fail to match; Reason says why.
	Refutable bool
	Reason    string
	// CatchAll marks `_` and plain bindings of the whole value.
	CatchAll bool
	// NamesUnion is set when an untagged union variant is named at any depth.
	NamesUnion bool
	// ReadsPayload is set when a binding or literal sits under a union variant.
	ReadsPayload bool
	// Union is the union whose variants the pattern names, when there is exactly one.
	Union *UnionType
	// Variants lists the qualified variants (`U::A`) the pattern names.
	Variants []string
	Bindings map[string]Type
}

// Irrefutable reports the complement of Refutable.
func (p PatternInfo) Irrefutable() bool { return !p.Refutable }

// NamesVariant reports whether the qualified variant is named by the pattern.
func (p PatternInfo) NamesVariant(qualified string) bool {
	for _, v := range p.Variants {
		if v == qualified {
			return true
		}
	}
	return false
}

type patternResult struct {
	refutable  bool
	reason     string
	catchAll   bool
	namesUnion bool
	reads      bool
	unions     []*UnionType
	variants   []string
}

func (r *patternResult) absorb(child patternResult) {
	if child.refutable && !r.refutable {
		r.refutable = true
		r.reason = child.reason
	}
	r.namesUnion = r.namesUnion || child.namesUnion
	r.reads = r.reads || child.reads
	for _, u := range child.unions {
		r.addUnion(u)
	}
	for _, v := range child.variants {
		r.addVariant(v)
	}
}

func (r *patternResult) addUnion(u *UnionType) {
	for _, existing := range r.unions {
		if existing == u {
			return
		}
	}
	r.unions = append(r.unions, u)
}

func (r *patternResult) addVariant(v string) {
	for _, existing := range r.variants {
		if existing == v {
			return
		}
	}
	r.variants = append(r.variants, v)
}

func (r *patternResult) markRefutable(reason string) {
	if !r.refutable {
		r.refutable = true
		r.reason = reason
	}
}

type classifyState struct {
	bindings     map[string]Type
	diags        []Diagnostic
	underVariant bool
	refMode      bool
}

// ClassifyPattern classifies pattern against a value of type expected.
func (c *Checker) ClassifyPattern(pattern ast.Pattern, expected Type) (PatternInfo, []Diagnostic) {
	st := &classifyState{bindings: make(map[string]Type)}
	res := c.classify(pattern, expected, st)
	info := PatternInfo{
		Refutable:    res.refutable,
		Reason:       res.reason,
		CatchAll:     res.catchAll,
		NamesUnion:   res.namesUnion,
		ReadsPayload: res.reads,
		Variants:     res.variants,
		Bindings:     st.bindings,
	}
	if len(res.unions) == 1 {
		info.Union = res.unions[0]
	}
	return info, st.diags
}

func (c *Checker) classify(pattern ast.Pattern, expected Type, st *classifyState) patternResult {
	switch p := pattern.(type) {
	case nil:
		return patternResult{}
	case *ast.WildcardPattern:
		return patternResult{catchAll: true}
	case *ast.RestPattern:
		return patternResult{catchAll: true}
	case *ast.Identifier:
		if target, ok := c.lookupUnitVariant(p.Name, expected); ok {
			return c.classifyVariantTarget(p, target, nil, nil, expected, st)
		}
		c.bindName(p, p.Name, expected, false, st)
		return patternResult{catchAll: true, reads: st.underVariant}
	case *ast.BindingPattern:
		name := ""
		if p.Name != nil {
			name = p.Name.Name
		}
		c.bindName(p.Name, name, expected, p.ByRef, st)
		if p.Subpattern == nil {
			return patternResult{catchAll: true, reads: st.underVariant}
		}
		res := c.classify(p.Subpattern, expected, st)
		res.reads = res.reads || st.underVariant
		return res
	case *ast.LiteralPattern:
		c.checkLiteralPattern(p.Literal, expected, p, st)
		return patternResult{refutable: true, reason: fmt.Sprintf("literal %s", ast.DescribeLiteral(p.Literal)), reads: st.underVariant}
	case *ast.RangePattern:
		if p.Start != nil {
			c.checkLiteralPattern(p.Start, expected, p, st)
		}
		if p.End != nil {
			c.checkLiteralPattern(p.End, expected, p, st)
		}
		return patternResult{refutable: true, reason: fmt.Sprintf("range %s", ast.Describe(p)), reads: st.underVariant}
	case *ast.ReferencePattern:
		inner := Type(UnknownType{})
		if ref, ok := expected.(ReferenceType); ok {
			inner = ref.Elem
		} else if !isUnknown(expected) {
			st.diags = append(st.diags, Diagnostic{
				Message: fmt.Sprintf("typechecker: reference pattern %s does not match non-reference type %s", ast.Describe(p), typeName(expected)),
				Node:    p,
			})
		}
		saved := st.refMode
		st.refMode = false
		res := c.classify(p.Inner, inner, st)
		st.refMode = saved
		res.catchAll = false
		return res
	case *ast.TuplePattern:
		return c.classifyTuple(p, expected, st)
	case *ast.OrPattern:
		return c.classifyOr(p, expected, st)
	case *ast.StructPattern:
		return c.classifyStructPattern(p, expected, st)
	default:
		return patternResult{}
	}
}

func (c *Checker) bindName(node ast.Node, name string, expected Type, byRef bool, st *classifyState) {
	if name == "" {
		return
	}
	typ := expected
	if typ == nil {
		typ = UnknownType{}
	}
	if (byRef || st.refMode) && !isUnknown(typ) {
		typ = ReferenceType{Elem: typ}
	}
	st.bindings[name] = typ
	if node != nil {
		c.infer.set(node, typ)
	}
}

func (c *Checker) checkLiteralPattern(lit ast.Literal, expected Type, node ast.Node, st *classifyState) {
	prim, ok := derefType(expected).(PrimitiveType)
	if !ok {
		if !isUnknown(expected) {
			if _, isStr := lit.(*ast.StringLiteral); isStr && isStringLike(expected) {
				return
			}
			st.diags = append(st.diags, Diagnostic{
				Message: fmt.Sprintf("typechecker: literal pattern %s cannot match type %s", ast.DescribeLiteral(lit), typeName(expected)),
				Node:    node,
			})
		}
		return
	}
	var fits bool
	switch lit.(type) {
	case *ast.IntegerLiteral:
		fits = prim.IsInteger()
	case *ast.FloatLiteral:
		fits = prim.IsFloat()
	case *ast.BooleanLiteral:
		fits = prim.Kind == PrimitiveBool
	case *ast.CharLiteral:
		fits = prim.Kind == PrimitiveChar
	case *ast.StringLiteral:
		fits = prim.Kind == PrimitiveStr
	default:
		fits = true
	}
	if !fits {
		st.diags = append(st.diags, Diagnostic{
			Message: fmt.Sprintf("typechecker: literal pattern %s cannot match type %s", ast.DescribeLiteral(lit), typeName(expected)),
			Node:    node,
		})
	}
}

func isStringLike(t Type) bool {
	switch ty := derefType(t).(type) {
	case BuiltinType:
		return ty.Kind == BuiltinString
	case PrimitiveType:
		return ty.Kind == PrimitiveStr
	}
	return false
}

func (c *Checker) classifyTuple(p *ast.TuplePattern, expected Type, st *classifyState) patternResult {
	base, peeled := peelReferences(expected)
	saved := st.refMode
	st.refMode = st.refMode || peeled
	defer func() { st.refMode = saved }()

	tuple, isTuple := base.(TupleType)
	if !isTuple && !isUnknown(base) {
		st.diags = append(st.diags, Diagnostic{
			Message: fmt.Sprintf("typechecker: tuple pattern %s cannot match type %s", ast.Describe(p), typeName(expected)),
			Node:    p,
		})
	}
	restIndex := -1
	for i, el := range p.Elements {
		if _, ok := el.(*ast.RestPattern); ok {
			restIndex = i
			break
		}
	}
	fixed := len(p.Elements)
	if restIndex >= 0 {
		fixed--
	}
	if isTuple && ((restIndex < 0 && fixed != len(tuple.Elements)) || fixed > len(tuple.Elements)) {
		st.diags = append(st.diags, Diagnostic{
			Message: fmt.Sprintf("typechecker: tuple pattern %s has %d element(s) but the value has %d", ast.Describe(p), fixed, len(tuple.Elements)),
			Node:    p,
		})
		isTuple = false
	}
	var res patternResult
	for i, el := range p.Elements {
		elemType := Type(UnknownType{})
		if isTuple && i != restIndex {
			idx := i
			if restIndex >= 0 && i > restIndex {
				idx = len(tuple.Elements) - (len(p.Elements) - i)
			}
			if idx >= 0 && idx < len(tuple.Elements) {
				elemType = tuple.Elements[idx]
			}
		}
		res.absorb(c.classify(el, elemType, st))
	}
	return res
}

func (c *Checker) classifyOr(p *ast.OrPattern, expected Type, st *classifyState) patternResult {
	var res patternResult
	catchAll := false
	for _, alt := range p.Alternatives {
		child := c.classify(alt, expected, st)
		if child.catchAll {
			catchAll = true
		}
		res.absorb(child)
	}
	if len(res.variants) > 1 {
		res.markRefutable(fmt.Sprintf("or-pattern over variants %s", strings.Join(res.variants, ", ")))
	}
	if catchAll {
		res.refutable = false
		res.reason = ""
		res.catchAll = true
	}
	return res
}

func peelReferences(t Type) (Type, bool) {
	peeled := false
	for {
		ref, ok := t.(ReferenceType)
		if !ok {
			return t, peeled
		}
		t = ref.Elem
		peeled = true
	}
}

// patternTarget is what a pattern path resolves to.
type patternTarget struct {
	union    *UnionType
	enum     *EnumType
	builtin  BuiltinKind
	strct    *StructType
	variant  *VariantType
	expected Type
}

func (c *Checker) classifyStructPattern(p *ast.StructPattern, expected Type, st *classifyState) patternResult {
	target, ok := c.resolvePatternPath(p, expected, st)
	if !ok {
		var res patternResult
		saved := st.underVariant
		for _, el := range p.Elements {
			res.absorb(c.classify(el, UnknownType{}, st))
		}
		for _, f := range p.Fields {
			if f != nil {
				res.absorb(c.classify(f.Pattern, UnknownType{}, st))
			}
		}
		st.underVariant = saved
		return res
	}
	return c.classifyVariantTarget(p, target, p.Elements, p.Fields, expected, st)
}

// classifyVariantTarget classifies a variant or struct pattern once its path
// has been resolved. Unit patterns pass nil elements and fields.
func (c *Checker) classifyVariantTarget(node ast.Pattern, target patternTarget, elements []ast.Pattern, fields []*ast.StructPatternField, expected Type, st *classifyState) patternResult {
	_, peeled := peelReferences(expected)
	savedRef := st.refMode
	savedUnder := st.underVariant
	st.refMode = st.refMode || peeled
	defer func() {
		st.refMode = savedRef
		st.underVariant = savedUnder
	}()

	var res patternResult
	var payload []FieldType
	shape := ast.FieldKindNamed
	owner := ""
	switch {
	case target.union != nil:
		res.namesUnion = true
		res.addUnion(target.union)
		res.addVariant(target.union.UnionName + "::" + target.variant.VariantName)
		payload = target.variant.Fields
		shape = target.variant.Kind
		owner = target.union.UnionName + "::" + target.variant.VariantName
		st.underVariant = true
		if target.union.Native {
			shape = ast.FieldKindNamed
			payload = []FieldType{{Name: target.variant.VariantName, Type: target.variant.Fields[0].Type}}
		}
	case target.enum != nil:
		payload = target.variant.Fields
		shape = target.variant.Kind
		owner = target.enum.EnumName + "::" + target.variant.VariantName
		if len(target.enum.Variants) > 1 {
			res.markRefutable(fmt.Sprintf("tagged enum variant %s", owner))
		}
	case target.builtin != "":
		payload = target.variant.Fields
		shape = target.variant.Kind
		owner = target.variant.VariantName
		res.markRefutable(fmt.Sprintf("tagged enum variant %s", owner))
	case target.strct != nil:
		payload = target.strct.Fields
		shape = target.strct.Kind
		owner = target.strct.StructName
	}

	sp, _ := node.(*ast.StructPattern)
	switch {
	case sp == nil || sp.IsUnit:
		if shape != ast.FieldKindUnit && !(target.union != nil && len(payload) == 0) {
			st.diags = append(st.diags, Diagnostic{
				Message: fmt.Sprintf("typechecker: %s carries a payload; use a tuple or struct pattern", owner),
				Node:    node,
			})
		}
	case sp.IsPositional:
		if shape != ast.FieldKindPositional {
			st.diags = append(st.diags, Diagnostic{
				Message: fmt.Sprintf("typechecker: %s does not have positional fields", owner),
				Node:    node,
			})
		}
		res.absorb(c.classifyPositionalPayload(sp, elements, payload, owner, st))
	default:
		if target.union != nil && target.union.Native {
			if len(fields) != 1 || sp.HasRest {
				st.diags = append(st.diags, Diagnostic{
					Message: fmt.Sprintf("typechecker: union patterns must name exactly one field of %s", target.union.UnionName),
					Node:    node,
				})
			}
		} else if shape == ast.FieldKindPositional && len(fields) > 0 {
			st.diags = append(st.diags, Diagnostic{
				Message: fmt.Sprintf("typechecker: %s has positional fields; use a tuple pattern", owner),
				Node:    node,
			})
		}
		res.absorb(c.classifyNamedPayload(sp, fields, payload, owner, st))
	}
	return res
}

func (c *Checker) classifyPositionalPayload(node *ast.StructPattern, elements []ast.Pattern, payload []FieldType, owner string, st *classifyState) patternResult {
	var res patternResult
	restIndex := -1
	for i, el := range elements {
		if _, ok := el.(*ast.RestPattern); ok {
			restIndex = i
			break
		}
	}
	fixed := len(elements)
	if restIndex >= 0 {
		fixed--
	}
	if (restIndex < 0 && fixed != len(payload)) || fixed > len(payload) {
		st.diags = append(st.diags, Diagnostic{
			Message: fmt.Sprintf("typechecker: pattern %s has %d field(s) but %s has %d", ast.Describe(node), fixed, owner, len(payload)),
			Node:    node,
		})
	}
	for i, el := range elements {
		elemType := Type(UnknownType{})
		if i != restIndex {
			idx := i
			if restIndex >= 0 && i > restIndex {
				idx = len(payload) - (len(elements) - i)
			}
			if idx >= 0 && idx < len(payload) {
				elemType = payload[idx].Type
			}
		}
		res.absorb(c.classify(el, elemType, st))
	}
	return res
}

func (c *Checker) classifyNamedPayload(node *ast.StructPattern, fields []*ast.StructPatternField, payload []FieldType, owner string, st *classifyState) patternResult {
	var res patternResult
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f == nil || f.FieldName == nil {
			continue
		}
		name := f.FieldName.Name
		if seen[name] {
			st.diags = append(st.diags, Diagnostic{
				Message: fmt.Sprintf("typechecker: field '%s' bound more than once in pattern %s", name, ast.Describe(node)),
				Node:    f,
			})
		}
		seen[name] = true
		fieldType := Type(UnknownType{})
		found := false
		for _, pf := range payload {
			if pf.Name == name {
				fieldType = pf.Type
				found = true
				break
			}
		}
		if !found {
			st.diags = append(st.diags, Diagnostic{
				Message: fmt.Sprintf("typechecker: %s has no field '%s'", owner, name),
				Node:    f,
			})
		}
		res.absorb(c.classify(f.Pattern, fieldType, st))
	}
	if !node.HasRest && !isNativeOwner(node, c) {
		for _, pf := range payload {
			if pf.Name != "" && !seen[pf.Name] {
				st.diags = append(st.diags, Diagnostic{
					Message: fmt.Sprintf("typechecker: pattern %s does not mention field '%s'; add it or use ..", ast.Describe(node), pf.Name),
					Node:    node,
				})
			}
		}
	}
	return res
}

func isNativeOwner(p *ast.StructPattern, c *Checker) bool {
	u, ok := c.types[p.Name()].(*UnionType)
	return ok && u.Native && p.Qualifier() == ""
}

// lookupUnitVariant resolves a bare identifier pattern to a unit variant.
func (c *Checker) lookupUnitVariant(name string, expected Type) (patternTarget, bool) {
	if name == "None" {
		return patternTarget{builtin: BuiltinOption, variant: &VariantType{VariantName: "None", Kind: ast.FieldKindUnit}}, true
	}
	base := derefType(expected)
	switch ty := base.(type) {
	case *UnionType:
		if v := ty.Variant(name); v != nil && !ty.Native && v.Kind == ast.FieldKindUnit {
			return patternTarget{union: ty, variant: v, expected: expected}, true
		}
	case *EnumType:
		if v := ty.Variant(name); v != nil && v.Kind == ast.FieldKindUnit {
			return patternTarget{enum: ty, variant: v, expected: expected}, true
		}
	}
	if unions := c.unionVariants[name]; len(unions) == 1 {
		if v := unions[0].Variant(name); v != nil && v.Kind == ast.FieldKindUnit {
			return patternTarget{union: unions[0], variant: v}, true
		}
	}
	if enums := c.enumVariants[name]; len(enums) == 1 {
		if v := enums[0].Variant(name); v != nil && v.Kind == ast.FieldKindUnit {
			return patternTarget{enum: enums[0], variant: v}, true
		}
	}
	return patternTarget{}, false
}

var builtinVariants = map[string]BuiltinKind{
	"Some": BuiltinOption,
	"None": BuiltinOption,
	"Ok":   "Result",
	"Err":  "Result",
}

// resolvePatternPath finds the union variant, enum variant or struct a
// struct-like pattern refers to.
func (c *Checker) resolvePatternPath(p *ast.StructPattern, expected Type, st *classifyState) (patternTarget, bool) {
	name := p.Name()
	qualifier := p.Qualifier()
	base := derefType(expected)
	fail := func(msg string) (patternTarget, bool) {
		st.diags = append(st.diags, Diagnostic{Message: msg, Node: p})
		return patternTarget{}, false
	}

	if qualifier != "" {
		owner, ok := c.types[qualifier]
		if qualifier == "Self" && c.selfType != nil {
			owner, ok = c.selfType, true
		}
		if !ok {
			return fail(fmt.Sprintf("typechecker: unknown type '%s' in pattern %s", qualifier, ast.Describe(p)))
		}
		switch ty := owner.(type) {
		case *UnionType:
			v := ty.Variant(name)
			if v == nil || ty.Native {
				return fail(fmt.Sprintf("typechecker: no variant '%s' in untagged union %s", name, ty.UnionName))
			}
			return c.checkPatternOwner(patternTarget{union: ty, variant: v}, base, p, st)
		case *EnumType:
			v := ty.Variant(name)
			if v == nil {
				return fail(fmt.Sprintf("typechecker: no variant '%s' in enum %s", name, ty.EnumName))
			}
			return c.checkPatternOwner(patternTarget{enum: ty, variant: v}, base, p, st)
		default:
			return fail(fmt.Sprintf("typechecker: '%s' is not an enum or union", qualifier))
		}
	}

	switch ty := c.types[name].(type) {
	case *UnionType:
		if ty.Native && !p.IsPositional && !p.IsUnit {
			if len(p.Fields) == 0 || p.Fields[0] == nil || p.Fields[0].FieldName == nil {
				return fail(fmt.Sprintf("typechecker: union patterns must name exactly one field of %s", ty.UnionName))
			}
			field := p.Fields[0].FieldName.Name
			v := ty.Variant(field)
			if v == nil {
				return fail(fmt.Sprintf("typechecker: union %s has no field '%s'", ty.UnionName, field))
			}
			return c.checkPatternOwner(patternTarget{union: ty, variant: v}, base, p, st)
		}
	case *StructType:
		return c.checkPatternOwner(patternTarget{strct: ty}, base, p, st)
	}

	switch ty := base.(type) {
	case *UnionType:
		if v := ty.Variant(name); v != nil && !ty.Native {
			return patternTarget{union: ty, variant: v}, true
		}
	case *EnumType:
		if v := ty.Variant(name); v != nil {
			return patternTarget{enum: ty, variant: v}, true
		}
	}
	if kind, ok := builtinVariants[name]; ok {
		v := &VariantType{VariantName: name, Kind: ast.FieldKindPositional}
		if name == "None" {
			v.Kind = ast.FieldKindUnit
		} else {
			payload := Type(UnknownType{})
			if opt, ok := base.(BuiltinType); ok && opt.Kind == BuiltinOption && name == "Some" {
				payload = opt.Arg()
			}
			v.Fields = []FieldType{{Type: payload}}
		}
		return patternTarget{builtin: kind, variant: v}, true
	}
	if unions := c.unionVariants[name]; len(unions) > 0 {
		if len(unions) > 1 {
			names := make([]string, len(unions))
			for i, u := range unions {
				names[i] = u.UnionName
			}
			return fail(fmt.Sprintf("typechecker: variant '%s' is ambiguous between %s; qualify the path", name, strings.Join(names, " and ")))
		}
		return c.checkPatternOwner(patternTarget{union: unions[0], variant: unions[0].Variant(name)}, base, p, st)
	}
	if enums := c.enumVariants[name]; len(enums) == 1 {
		return c.checkPatternOwner(patternTarget{enum: enums[0], variant: enums[0].Variant(name)}, base, p, st)
	}
	return fail(fmt.Sprintf("typechecker: unknown variant or struct '%s' in pattern", ast.Describe(p)))
}

// checkPatternOwner rejects a pattern whose resolved type differs from the value's type.
func (c *Checker) checkPatternOwner(target patternTarget, base Type, p *ast.StructPattern, st *classifyState) (patternTarget, bool) {
	if isUnknown(base) {
		return target, true
	}
	var owner Type
	switch {
	case target.union != nil:
		owner = target.union
	case target.enum != nil:
		owner = target.enum
	case target.strct != nil:
		owner = target.strct
	default:
		return target, true
	}
	if owner != base {
		st.diags = append(st.diags, Diagnostic{
			Message: fmt.Sprintf("typechecker: pattern %s expects %s but the value has type %s", ast.Describe(p), typeName(owner), typeName(base)),
			Node:    p,
		})
	}
	return target, true
}
