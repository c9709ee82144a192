package typechecker

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// TargetDataModel describes the sizes the layout engine assumes.
type TargetDataModel struct {
	PointerWidth int `json:"pointerWidth" yaml:"pointer_width"`
}

// DefaultTarget is a 64-bit target.
var DefaultTarget = TargetDataModel{PointerWidth: 8}

// Validate rejects unsupported data models.
func (m TargetDataModel) Validate() error {
	switch m.PointerWidth {
	case 4, 8:
		return nil
	default:
		return fmt.Errorf("typechecker: unsupported pointer width %d (expected 4 or 8)", m.PointerWidth)
	}
}

// maxObjectSize is the largest size in bytes a value may have on the target.
func (m TargetDataModel) maxObjectSize() int {
	if m.PointerWidth == 4 {
		return math.MaxInt32
	}
	return math.MaxInt
}

// ScalarKind tells storage code how to interpret a field's bytes.
type ScalarKind string

const (
	ScalarInt       ScalarKind = "int"
	ScalarUint      ScalarKind = "uint"
	ScalarFloat     ScalarKind = "float"
	ScalarBool      ScalarKind = "bool"
	ScalarChar      ScalarKind = "char"
	ScalarPointer   ScalarKind = "pointer"
	ScalarAggregate ScalarKind = "aggregate"
)

type FieldLayout struct {
	Name   string     `json:"name" yaml:"name"`
	Type   string     `json:"type" yaml:"type"`
	Kind   ScalarKind `json:"kind" yaml:"kind"`
	Offset int        `json:"offset" yaml:"offset"`
	Size   int        `json:"size" yaml:"size"`
	Align  int        `json:"align" yaml:"align"`
}

// VariantLayout places one variant's payload at offset 0 of the union.
type VariantLayout struct {
	Name   string        `json:"name" yaml:"name"`
	Size   int           `json:"size" yaml:"size"`
	Align  int           `json:"align" yaml:"align"`
	Fields []FieldLayout `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// LayoutDescriptor is the memory description handed to later stages.
// Discriminant and DropGlue are always false: no tag is stored and no drop
// glue is generated.
type LayoutDescriptor struct {
	Union        string          `json:"union" yaml:"union"`
	Size         int             `json:"size" yaml:"size"`
	Align        int             `json:"align" yaml:"align"`
	Fixed        bool            `json:"fixed" yaml:"fixed"`
	Native       bool            `json:"native" yaml:"native"`
	Discriminant bool            `json:"discriminant" yaml:"discriminant"`
	DropGlue     bool            `json:"dropGlue" yaml:"drop_glue"`
	CustomDrop   bool            `json:"customDrop" yaml:"custom_drop"`
	Capabilities []string        `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
	Variants     []VariantLayout `json:"variants" yaml:"variants"`
}

// Variant looks up a variant layout by name.
func (d *LayoutDescriptor) Variant(name string) (VariantLayout, bool) {
	if d == nil {
		return VariantLayout{}, false
	}
	for _, v := range d.Variants {
		if v.Name == name {
			return v, true
		}
	}
	return VariantLayout{}, false
}

var (
	errUnsized   = errors.New("size not known at compile time")
	errRecursive = errors.New("recursive type has infinite size")
	errTooLarge  = errors.New("type too large for target")
)

type typeLayout struct {
	size  int
	align int
}

func roundUp(n, align int) int {
	if align <= 1 {
		return n
	}
	return (n + align - 1) / align * align
}

// checkedRoundUp is roundUp for 0 <= n <= limit, failing past limit.
func checkedRoundUp(n, align, limit int) (int, error) {
	if align > 1 && n > limit-(align-1) {
		return 0, errTooLarge
	}
	return roundUp(n, align), nil
}

// checkedAdd adds two sizes in [0, limit], failing past limit.
func checkedAdd(a, b, limit int) (int, error) {
	if a > limit-b {
		return 0, errTooLarge
	}
	return a + b, nil
}

func primitiveLayout(kind PrimitiveKind, pointerWidth int) (typeLayout, error) {
	switch kind {
	case PrimitiveBool, PrimitiveI8, PrimitiveU8:
		return typeLayout{1, 1}, nil
	case PrimitiveI16, PrimitiveU16:
		return typeLayout{2, 2}, nil
	case PrimitiveI32, PrimitiveU32, PrimitiveF32, PrimitiveChar:
		return typeLayout{4, 4}, nil
	case PrimitiveI64, PrimitiveU64, PrimitiveF64:
		return typeLayout{8, 8}, nil
	case PrimitiveI128, PrimitiveU128:
		return typeLayout{16, 16}, nil
	case PrimitiveIsize, PrimitiveUsize:
		return typeLayout{pointerWidth, pointerWidth}, nil
	case PrimitiveNever:
		return typeLayout{0, 1}, nil
	default:
		return typeLayout{}, errUnsized
	}
}

func isUnsized(t Type) bool {
	switch ty := t.(type) {
	case SliceType:
		return true
	case PrimitiveType:
		return ty.Kind == PrimitiveStr
	}
	return false
}

func (c *Checker) pointerLayout(elem Type) typeLayout {
	w := c.opts.Target.PointerWidth
	if isUnsized(elem) {
		return typeLayout{2 * w, w}
	}
	return typeLayout{w, w}
}

// layoutOf computes size and alignment of t for the configured target.
func (c *Checker) layoutOf(t Type) (typeLayout, error) {
	w := c.opts.Target.PointerWidth
	switch ty := t.(type) {
	case PrimitiveType:
		return primitiveLayout(ty.Kind, w)
	case PointerType:
		return c.pointerLayout(ty.Elem), nil
	case ReferenceType:
		return c.pointerLayout(ty.Elem), nil
	case ArrayType:
		elem, err := c.layoutOf(ty.Elem)
		if err != nil {
			return typeLayout{}, err
		}
		if ty.Length < 0 {
			return typeLayout{}, errUnsized
		}
		if elem.size > 0 && ty.Length > int64(c.opts.Target.maxObjectSize()/elem.size) {
			return typeLayout{}, errTooLarge
		}
		return typeLayout{elem.size * int(ty.Length), elem.align}, nil
	case SliceType:
		return typeLayout{}, errUnsized
	case TupleType:
		layout, _, err := c.aggregateLayout(ty.Elements, true, 0)
		return layout, err
	case BuiltinType:
		return c.builtinLayout(ty)
	case *StructType:
		return c.namedLayout(ty, func() (typeLayout, error) {
			types := make([]Type, len(ty.Fields))
			for i, f := range ty.Fields {
				types[i] = f.Type
			}
			layout, _, err := c.aggregateLayout(types, !ty.Repr.C, ty.Repr.Align)
			return layout, err
		})
	case *EnumType:
		return c.namedLayout(ty, func() (typeLayout, error) {
			return c.taggedLayout(ty)
		})
	case *UnionType:
		return c.namedLayout(ty, func() (typeLayout, error) {
			desc, _, err := c.describeUnion(ty)
			if err != nil {
				return typeLayout{}, err
			}
			return typeLayout{desc.Size, desc.Align}, nil
		})
	default:
		return typeLayout{0, 1}, nil
	}
}

func (c *Checker) builtinLayout(t BuiltinType) (typeLayout, error) {
	w := c.opts.Target.PointerWidth
	switch t.Kind {
	case BuiltinString, BuiltinVec:
		return typeLayout{3 * w, w}, nil
	case BuiltinBox, BuiltinRc, BuiltinArc:
		return c.pointerLayout(t.Arg()), nil
	case BuiltinCell, BuiltinManuallyDrop:
		return c.layoutOf(t.Arg())
	case BuiltinRefCell:
		layout, _, err := c.aggregateLayout([]Type{PrimitiveType{Kind: PrimitiveIsize}, t.Arg()}, true, 0)
		return layout, err
	case BuiltinOption:
		if hasNullNiche(t.Arg()) {
			return c.layoutOf(t.Arg())
		}
		inner, err := c.layoutOf(t.Arg())
		if err != nil {
			return typeLayout{}, err
		}
		limit := c.opts.Target.maxObjectSize()
		size, err := checkedAdd(inner.align, inner.size, limit)
		if err != nil {
			return typeLayout{}, err
		}
		size, err = checkedRoundUp(size, inner.align, limit)
		if err != nil {
			return typeLayout{}, err
		}
		return typeLayout{size, inner.align}, nil
	default:
		return typeLayout{0, 1}, nil
	}
}

// hasNullNiche reports types whose all-zero bit pattern is invalid, letting
// Option<T> reuse it as None.
func hasNullNiche(t Type) bool {
	switch ty := t.(type) {
	case ReferenceType:
		return true
	case BuiltinType:
		switch ty.Kind {
		case BuiltinBox, BuiltinRc, BuiltinArc, BuiltinString, BuiltinVec:
			return true
		}
	}
	return false
}

func (c *Checker) namedLayout(t Type, compute func() (typeLayout, error)) (typeLayout, error) {
	if layout, ok := c.layoutCache[t]; ok {
		return layout, nil
	}
	if c.layoutInProgress[t] {
		return typeLayout{}, fmt.Errorf("%s: %w", typeName(t), errRecursive)
	}
	c.layoutInProgress[t] = true
	layout, err := compute()
	delete(c.layoutInProgress, t)
	if err != nil {
		return typeLayout{}, err
	}
	c.layoutCache[t] = layout
	return layout, nil
}

// aggregateLayout lays out fields as a struct. With reorder set, fields are
// placed by descending alignment (stable); otherwise declaration order with C
// padding rules. Offsets are returned in declaration order.
func (c *Checker) aggregateLayout(fields []Type, reorder bool, minAlign int) (typeLayout, []int, error) {
	layouts := make([]typeLayout, len(fields))
	for i, f := range fields {
		l, err := c.layoutOf(f)
		if err != nil {
			return typeLayout{}, nil, err
		}
		layouts[i] = l
	}
	order := make([]int, len(fields))
	for i := range order {
		order[i] = i
	}
	if reorder {
		sort.SliceStable(order, func(a, b int) bool {
			return layouts[order[a]].align > layouts[order[b]].align
		})
	}
	limit := c.opts.Target.maxObjectSize()
	offsets := make([]int, len(fields))
	cursor := 0
	align := 1
	if minAlign > align {
		align = minAlign
	}
	var err error
	for _, idx := range order {
		l := layouts[idx]
		if cursor, err = checkedRoundUp(cursor, l.align, limit); err != nil {
			return typeLayout{}, nil, err
		}
		offsets[idx] = cursor
		if cursor, err = checkedAdd(cursor, l.size, limit); err != nil {
			return typeLayout{}, nil, err
		}
		if l.align > align {
			align = l.align
		}
	}
	size, err := checkedRoundUp(cursor, align, limit)
	if err != nil {
		return typeLayout{}, nil, err
	}
	return typeLayout{size, align}, offsets, nil
}

// taggedLayout approximates a tagged enum: a tag followed by the largest
// variant payload.
func (c *Checker) taggedLayout(t *EnumType) (typeLayout, error) {
	tag := 1
	if t.Repr.C {
		tag = 4
	} else if len(t.Variants) > 256 {
		tag = 2
	}
	layout := typeLayout{tag, tag}
	for _, v := range t.Variants {
		types := make([]Type, 0, len(v.Fields)+1)
		types = append(types, PrimitiveType{Kind: tagPrimitive(tag)})
		for _, f := range v.Fields {
			types = append(types, f.Type)
		}
		vl, _, err := c.aggregateLayout(types, false, 0)
		if err != nil {
			return typeLayout{}, err
		}
		if vl.size > layout.size {
			layout.size = vl.size
		}
		if vl.align > layout.align {
			layout.align = vl.align
		}
	}
	if t.Repr.Align > layout.align {
		layout.align = t.Repr.Align
	}
	size, err := checkedRoundUp(layout.size, layout.align, c.opts.Target.maxObjectSize())
	if err != nil {
		return typeLayout{}, err
	}
	layout.size = size
	return layout, nil
}

func tagPrimitive(size int) PrimitiveKind {
	switch size {
	case 2:
		return PrimitiveU16
	case 4:
		return PrimitiveU32
	default:
		return PrimitiveU8
	}
}

func scalarKindOf(t Type) ScalarKind {
	switch ty := t.(type) {
	case PrimitiveType:
		switch {
		case ty.Kind == PrimitiveBool:
			return ScalarBool
		case ty.Kind == PrimitiveChar:
			return ScalarChar
		case ty.IsFloat():
			return ScalarFloat
		case ty.IsSigned():
			return ScalarInt
		case ty.IsInteger():
			return ScalarUint
		}
	case PointerType:
		if !isUnsized(ty.Elem) {
			return ScalarPointer
		}
	case ReferenceType:
		if !isUnsized(ty.Elem) {
			return ScalarPointer
		}
	case BuiltinType:
		switch ty.Kind {
		case BuiltinBox, BuiltinRc, BuiltinArc:
			if !isUnsized(ty.Arg()) {
				return ScalarPointer
			}
		case BuiltinCell, BuiltinManuallyDrop:
			return scalarKindOf(ty.Arg())
		}
	}
	return ScalarAggregate
}

// describeUnion computes (and caches) the layout descriptor of u. Payload
// problems are returned as diagnostics; the error is only set when u's own
// size cannot be determined.
func (c *Checker) describeUnion(u *UnionType) (*LayoutDescriptor, []Diagnostic, error) {
	if desc, ok := c.descriptors[u]; ok {
		return desc, nil, nil
	}
	var diags []Diagnostic
	desc := &LayoutDescriptor{
		Union:      u.UnionName,
		Align:      1,
		Fixed:      u.Repr.C,
		Native:     u.Native,
		CustomDrop: u.CustomDrop(),
	}
	var failure error
	for _, v := range u.Variants {
		types := make([]Type, len(v.Fields))
		for i, f := range v.Fields {
			types[i] = f.Type
		}
		vl, offsets, err := c.aggregateLayout(types, !u.Repr.C, 0)
		if err != nil {
			diags = append(diags, c.payloadLayoutDiagnostic(u, v, err))
			if failure == nil {
				failure = err
			}
			desc.Variants = append(desc.Variants, VariantLayout{Name: v.VariantName, Align: 1})
			continue
		}
		layout := VariantLayout{Name: v.VariantName, Size: vl.size, Align: vl.align}
		for i, f := range v.Fields {
			fl, _ := c.layoutOf(f.Type)
			name := f.Name
			if name == "" {
				name = fmt.Sprintf("%d", i)
			}
			layout.Fields = append(layout.Fields, FieldLayout{
				Name:   name,
				Type:   typeName(f.Type),
				Kind:   scalarKindOf(f.Type),
				Offset: offsets[i],
				Size:   fl.size,
				Align:  fl.align,
			})
		}
		desc.Variants = append(desc.Variants, layout)
		if vl.size > desc.Size {
			desc.Size = vl.size
		}
		if vl.align > desc.Align {
			desc.Align = vl.align
		}
	}
	round := u.Repr.C
	if u.Repr.Align > desc.Align {
		desc.Align = u.Repr.Align
		round = true
	}
	if round {
		size, err := checkedRoundUp(desc.Size, desc.Align, c.opts.Target.maxObjectSize())
		if err != nil {
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf("typechecker: untagged union %s is too large for the target (pointer width %d)", u.UnionName, c.opts.Target.PointerWidth),
				Node:    payloadNode(u, nil),
			})
		} else {
			desc.Size = size
		}
	}
	if failure != nil && errors.Is(failure, errRecursive) {
		return desc, diags, failure
	}
	c.descriptors[u] = desc
	return desc, diags, nil
}

func (c *Checker) payloadLayoutDiagnostic(u *UnionType, v *VariantType, err error) Diagnostic {
	node := payloadNode(u, v)
	switch {
	case errors.Is(err, errRecursive):
		return Diagnostic{
			Message: fmt.Sprintf("typechecker: recursive payload in variant %s::%s has infinite size; insert indirection such as Box or a raw pointer", u.UnionName, v.VariantName),
			Node:    node,
		}
	case errors.Is(err, errTooLarge):
		return Diagnostic{
			Message: fmt.Sprintf("typechecker: payload of variant %s::%s is too large for the target (pointer width %d)", u.UnionName, v.VariantName, c.opts.Target.PointerWidth),
			Node:    node,
		}
	case errors.Is(err, errUnsized):
		return Diagnostic{
			Message: fmt.Sprintf("typechecker: payload of variant %s::%s does not have a size known at compile time", u.UnionName, v.VariantName),
			Node:    node,
		}
	default:
		return Diagnostic{
			Message: fmt.Sprintf("typechecker: cannot lay out variant %s::%s: %v", u.UnionName, v.VariantName, err),
			Node:    node,
		}
	}
}
