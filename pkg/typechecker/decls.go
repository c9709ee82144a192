package typechecker

import (
	"fmt"
	"strconv"
	"strings"

	"untagged/checker-go/pkg/ast"
)

const unsafeEnumAttribute = "unsafe_enum"

// collectDeclarations registers the module's types, impls and function
// signatures, then validates every untagged union declaration.
func (c *Checker) collectDeclarations(module *ast.Module) []Diagnostic {
	var diags []Diagnostic
	var unions []*UnionType
	var structs []*StructType
	var enums []*EnumType

	seen := make(map[string]ast.Node)
	register := func(name string, node ast.Node, typ Type) bool {
		if prev, ok := seen[name]; ok {
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf("typechecker: duplicate declaration '%s' (previous declaration at %s)", name, formatNodeLocation(prev, c.nodeOrigins)),
				Node:    node,
			})
			return false
		}
		seen[name] = node
		c.types[name] = typ
		return true
	}

	for _, stmt := range module.Body {
		switch def := stmt.(type) {
		case *ast.UnionDefinition:
			if def == nil || def.ID == nil {
				continue
			}
			u := &UnionType{
				UnionName: def.ID.Name,
				Native:    def.Native,
				Derives:   deriveNames(def.Attributes),
				Decl:      def,
				impls:     newDeclaredImpls(),
			}
			repr, reprDiags := parseRepr(def.Attributes, def)
			diags = append(diags, reprDiags...)
			u.Repr = repr
			if register(u.UnionName, def, u) {
				c.localUnions[u] = true
				unions = append(unions, u)
			}
		case *ast.EnumDefinition:
			if def == nil || def.ID == nil {
				continue
			}
			if ast.HasAttribute(def.Attributes, unsafeEnumAttribute) {
				union := ast.NewUnionDefinition(def.ID, def.Variants, def.Attributes, false, def.IsPublic)
				ast.SetSpan(union, def.Span())
				u := &UnionType{
					UnionName: def.ID.Name,
					Derives:   deriveNames(def.Attributes),
					Decl:      union,
					impls:     newDeclaredImpls(),
				}
				repr, reprDiags := parseRepr(def.Attributes, def)
				diags = append(diags, reprDiags...)
				u.Repr = repr
				if register(u.UnionName, def, u) {
					c.localUnions[u] = true
					unions = append(unions, u)
				}
				continue
			}
			e := &EnumType{
				EnumName: def.ID.Name,
				Derives:  deriveNames(def.Attributes),
				Decl:     def,
				impls:    newDeclaredImpls(),
			}
			repr, reprDiags := parseRepr(def.Attributes, def)
			diags = append(diags, reprDiags...)
			e.Repr = repr
			if register(e.EnumName, def, e) {
				enums = append(enums, e)
			}
		case *ast.StructDefinition:
			if def == nil || def.ID == nil {
				continue
			}
			s := &StructType{
				StructName: def.ID.Name,
				Kind:       def.Kind,
				Derives:    deriveNames(def.Attributes),
				Decl:       def,
				impls:      newDeclaredImpls(),
			}
			repr, reprDiags := parseRepr(def.Attributes, def)
			diags = append(diags, reprDiags...)
			s.Repr = repr
			if register(s.StructName, def, s) {
				structs = append(structs, s)
			}
		}
	}

	for _, s := range structs {
		fields, fieldDiags := c.resolveFields(s.Decl.Fields, fmt.Sprintf("struct %s", s.StructName))
		diags = append(diags, fieldDiags...)
		s.Fields = fields
	}
	for _, e := range enums {
		variants, variantDiags := c.resolveVariants(e.Decl.Variants, e.EnumName)
		diags = append(diags, variantDiags...)
		e.Variants = variants
		for _, v := range variants {
			c.enumVariants[v.VariantName] = append(c.enumVariants[v.VariantName], e)
		}
	}
	for _, u := range unions {
		diags = append(diags, c.collectUnion(u)...)
	}

	for _, stmt := range module.Body {
		switch def := stmt.(type) {
		case *ast.ImplementationDefinition:
			diags = append(diags, c.collectImplementation(def)...)
		case *ast.FunctionDefinition:
			if def == nil || def.ID == nil {
				continue
			}
			fnType, fnDiags := c.functionSignature(def)
			diags = append(diags, fnDiags...)
			c.global.Define(def.ID.Name, fnType)
		}
	}

	for _, u := range unions {
		diags = append(diags, c.validateUnion(u)...)
	}
	for _, u := range unions {
		diags = append(diags, c.ensureDerives(u)...)
		diags = append(diags, c.checkPayloadPolicy(u)...)
	}
	for _, u := range unions {
		desc, ok := c.descriptors[u]
		if !ok {
			continue
		}
		desc.Capabilities = c.capabilitiesOf(u).Names()
		c.layouts = append(c.layouts, desc)
	}
	return diags
}

// collectUnion resolves variant payloads and checks names and shapes.
func (c *Checker) collectUnion(u *UnionType) []Diagnostic {
	var diags []Diagnostic
	def := u.Decl
	if len(def.Variants) == 0 {
		kind := "unsafe enum"
		if u.Native {
			kind = "union"
		}
		diags = append(diags, Diagnostic{
			Message: fmt.Sprintf("typechecker: %s %s must declare at least one variant", kind, u.UnionName),
			Node:    def,
		})
	}
	variants, variantDiags := c.resolveVariants(def.Variants, u.UnionName)
	diags = append(diags, variantDiags...)
	u.Variants = variants
	if !u.Native {
		for _, v := range variants {
			c.unionVariants[v.VariantName] = append(c.unionVariants[v.VariantName], u)
		}
	}
	return diags
}

func (c *Checker) resolveVariants(defs []*ast.VariantDefinition, owner string) ([]*VariantType, []Diagnostic) {
	var diags []Diagnostic
	variants := make([]*VariantType, 0, len(defs))
	seen := make(map[string]bool, len(defs))
	for _, def := range defs {
		if def == nil || def.ID == nil {
			continue
		}
		name := def.ID.Name
		if seen[name] {
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf("typechecker: duplicate variant '%s' in %s", name, owner),
				Node:    def,
			})
			continue
		}
		seen[name] = true
		switch def.Kind {
		case ast.FieldKindUnit:
			if len(def.Fields) != 0 {
				diags = append(diags, Diagnostic{
					Message: fmt.Sprintf("typechecker: unit variant %s::%s cannot carry a payload", owner, name),
					Node:    def,
				})
			}
		case ast.FieldKindPositional, ast.FieldKindNamed:
		default:
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf("typechecker: variant %s::%s has malformed payload shape '%s'", owner, name, def.Kind),
				Node:    def,
			})
		}
		fields, fieldDiags := c.resolveFields(def.Fields, fmt.Sprintf("variant %s::%s", owner, name))
		diags = append(diags, fieldDiags...)
		if def.Kind == ast.FieldKindNamed {
			for _, f := range fields {
				if f.Name == "" {
					diags = append(diags, Diagnostic{
						Message: fmt.Sprintf("typechecker: named variant %s::%s has a field without a name", owner, name),
						Node:    def,
					})
				}
			}
		}
		variants = append(variants, &VariantType{
			VariantName: name,
			Kind:        def.Kind,
			Fields:      fields,
			Decl:        def,
		})
	}
	return variants, diags
}

func (c *Checker) resolveFields(defs []*ast.FieldDefinition, owner string) ([]FieldType, []Diagnostic) {
	var diags []Diagnostic
	fields := make([]FieldType, 0, len(defs))
	seen := make(map[string]bool, len(defs))
	for _, def := range defs {
		if def == nil {
			continue
		}
		name := ""
		if def.Name != nil {
			name = def.Name.Name
			if seen[name] {
				diags = append(diags, Diagnostic{
					Message: fmt.Sprintf("typechecker: duplicate field '%s' in %s", name, owner),
					Node:    def,
				})
				continue
			}
			seen[name] = true
		}
		typ, typeDiags := c.resolveTypeExpression(def.Type)
		diags = append(diags, typeDiags...)
		fields = append(fields, FieldType{Name: name, Type: typ, Decl: def})
	}
	return fields, diags
}

// collectImplementation records trait impls that affect capability sets.
func (c *Checker) collectImplementation(def *ast.ImplementationDefinition) []Diagnostic {
	if def == nil || def.Trait == nil {
		return nil
	}
	simple, ok := def.Target.(*ast.SimpleTypeExpression)
	if !ok || simple.Name == nil {
		return nil
	}
	target, ok := c.types[simple.Name.Name]
	if !ok {
		return nil
	}
	var impls *declaredImpls
	switch ty := target.(type) {
	case *StructType:
		impls = &ty.impls
	case *EnumType:
		impls = &ty.impls
	case *UnionType:
		impls = &ty.impls
	default:
		return nil
	}
	trait := def.Trait.Name
	if trait == "Drop" {
		if !def.Negative {
			impls.drop = true
		}
		return nil
	}
	capability, ok := LookupCapability(trait)
	if !ok {
		return nil
	}
	if def.Negative {
		impls.negative[capability] = true
		return nil
	}
	var diags []Diagnostic
	if autoTraits.Has(capability) && !def.IsUnsafe {
		diags = append(diags, Diagnostic{
			Message: fmt.Sprintf("typechecker: implementing %s for %s requires unsafe impl", trait, simple.Name.Name),
			Node:    def,
		})
	}
	impls.positive[capability] = true
	return diags
}

func (c *Checker) functionSignature(def *ast.FunctionDefinition) (FunctionType, []Diagnostic) {
	var diags []Diagnostic
	fn := FunctionType{Return: unitType, IsUnsafe: def.IsUnsafe}
	for _, param := range def.Params {
		if param == nil {
			continue
		}
		typ, typeDiags := c.resolveTypeExpression(param.Type)
		diags = append(diags, typeDiags...)
		fn.Params = append(fn.Params, typ)
	}
	if def.ReturnType != nil {
		ret, retDiags := c.resolveTypeExpression(def.ReturnType)
		diags = append(diags, retDiags...)
		fn.Return = ret
	}
	return fn, diags
}

// validateUnion computes the layout descriptor and checks fixed-layout payloads.
func (c *Checker) validateUnion(u *UnionType) []Diagnostic {
	_, diags, _ := c.describeUnion(u)
	if !u.Repr.C {
		return diags
	}
	for _, v := range u.Variants {
		for _, f := range v.Fields {
			if name, ok := unpinnedAggregate(f.Type); ok {
				diags = append(diags, Diagnostic{
					Severity: SeverityWarning,
					Message:  fmt.Sprintf("typechecker: payload type %s of variant %s::%s has no fixed layout; foreign code cannot rely on its field order", name, u.UnionName, v.VariantName),
					Node:     fieldNode(f, v),
				})
			}
		}
	}
	return diags
}

// unpinnedAggregate reports aggregates whose layout is not #[repr(C)].
func unpinnedAggregate(t Type) (string, bool) {
	switch ty := t.(type) {
	case *StructType:
		return ty.StructName, !ty.Repr.C
	case *EnumType:
		return ty.EnumName, !ty.Repr.C
	case *UnionType:
		return ty.UnionName, !ty.Repr.C
	case TupleType:
		return ty.Name(), len(ty.Elements) > 1
	case ArrayType:
		return unpinnedAggregate(ty.Elem)
	}
	return "", false
}

func fieldNode(f FieldType, v *VariantType) ast.Node {
	if f.Decl != nil {
		return f.Decl
	}
	if v != nil && v.Decl != nil {
		return v.Decl
	}
	return nil
}

func payloadNode(u *UnionType, v *VariantType) ast.Node {
	if v != nil && v.Decl != nil {
		return v.Decl
	}
	if u != nil && u.Decl != nil {
		return u.Decl
	}
	return nil
}

func deriveNames(attrs []*ast.Attribute) []string {
	var names []string
	for _, attr := range attrs {
		if attr == nil || attr.Name != "derive" {
			continue
		}
		for _, arg := range attr.Arguments {
			name := strings.TrimSpace(arg)
			if name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}

// parseRepr interprets `#[repr(C)]` and `#[repr(align(N))]`.
func parseRepr(attrs []*ast.Attribute, owner ast.Node) (ReprOptions, []Diagnostic) {
	var opts ReprOptions
	var diags []Diagnostic
	for _, attr := range attrs {
		if attr == nil || attr.Name != "repr" {
			continue
		}
		for _, arg := range attr.Arguments {
			arg = strings.TrimSpace(arg)
			switch {
			case arg == "C":
				opts.C = true
			case strings.HasPrefix(arg, "align(") && strings.HasSuffix(arg, ")"):
				raw := strings.TrimSpace(arg[len("align(") : len(arg)-1])
				n, err := strconv.Atoi(raw)
				if err != nil || n <= 0 || n&(n-1) != 0 {
					diags = append(diags, Diagnostic{
						Message: fmt.Sprintf("typechecker: invalid repr alignment '%s': must be a power of two", raw),
						Node:    attr,
					})
					continue
				}
				if n > opts.Align {
					opts.Align = n
				}
			default:
				if _, ok := owner.(*ast.EnumDefinition); ok && isIntegerRepr(arg) {
					continue
				}
				diags = append(diags, Diagnostic{
					Message: fmt.Sprintf("typechecker: unsupported repr hint '%s'", arg),
					Node:    attr,
				})
			}
		}
	}
	return opts, diags
}

func isIntegerRepr(arg string) bool {
	kind, ok := primitiveKinds[arg]
	return ok && PrimitiveType{Kind: kind}.IsInteger()
}

// resolveTypeExpression maps a type expression to a Type.
func (c *Checker) resolveTypeExpression(expr ast.TypeExpression) (Type, []Diagnostic) {
	switch t := expr.(type) {
	case nil:
		return UnknownType{}, nil
	case *ast.SimpleTypeExpression:
		if t.Name == nil {
			return UnknownType{}, nil
		}
		name := t.Name.Name
		if kind, ok := primitiveKinds[name]; ok {
			return PrimitiveType{Kind: kind}, nil
		}
		if name == "String" {
			return BuiltinType{Kind: BuiltinString}, nil
		}
		if name == "Self" && c.selfType != nil {
			return c.selfType, nil
		}
		if typ, ok := c.types[name]; ok {
			return typ, nil
		}
		if _, ok := builtinArity[BuiltinKind(name)]; ok {
			return UnknownType{}, []Diagnostic{{
				Message: fmt.Sprintf("typechecker: type '%s' expects %d type argument(s)", name, builtinArity[BuiltinKind(name)]),
				Node:    t,
			}}
		}
		return UnknownType{}, []Diagnostic{{
			Message: fmt.Sprintf("typechecker: unknown type '%s'", name),
			Node:    t,
		}}
	case *ast.GenericTypeExpression:
		base := ""
		if t.Base != nil && t.Base.Name != nil {
			base = t.Base.Name.Name
		}
		arity, ok := builtinArity[BuiltinKind(base)]
		if !ok {
			return UnknownType{}, []Diagnostic{{
				Message: fmt.Sprintf("typechecker: unknown generic type '%s'", base),
				Node:    t,
			}}
		}
		if len(t.Arguments) != arity {
			return UnknownType{}, []Diagnostic{{
				Message: fmt.Sprintf("typechecker: type '%s' expects %d type argument(s), got %d", base, arity, len(t.Arguments)),
				Node:    t,
			}}
		}
		var diags []Diagnostic
		args := make([]Type, len(t.Arguments))
		for i, arg := range t.Arguments {
			typ, argDiags := c.resolveTypeExpression(arg)
			diags = append(diags, argDiags...)
			args[i] = typ
		}
		return BuiltinType{Kind: BuiltinKind(base), Args: args}, diags
	case *ast.PointerTypeExpression:
		inner, diags := c.resolveTypeExpression(t.Inner)
		return PointerType{Elem: inner, Mutable: t.Mutable}, diags
	case *ast.ReferenceTypeExpression:
		inner, diags := c.resolveTypeExpression(t.Inner)
		return ReferenceType{Elem: inner, Mutable: t.Mutable}, diags
	case *ast.ArrayTypeExpression:
		elem, diags := c.resolveTypeExpression(t.Element)
		if t.Length == nil {
			return SliceType{Elem: elem}, diags
		}
		if t.Length.Value == nil || !t.Length.Value.IsInt64() || t.Length.Value.Sign() < 0 {
			diags = append(diags, Diagnostic{
				Message: "typechecker: array length must be a non-negative integer",
				Node:    t,
			})
			return ArrayType{Elem: elem}, diags
		}
		return ArrayType{Elem: elem, Length: t.Length.Value.Int64()}, diags
	case *ast.TupleTypeExpression:
		var diags []Diagnostic
		elems := make([]Type, len(t.Elements))
		for i, el := range t.Elements {
			typ, elDiags := c.resolveTypeExpression(el)
			diags = append(diags, elDiags...)
			elems[i] = typ
		}
		return TupleType{Elements: elems}, diags
	default:
		return UnknownType{}, nil
	}
}
