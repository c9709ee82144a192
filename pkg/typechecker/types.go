package typechecker

import (
	"fmt"
	"strings"

	"untagged/checker-go/pkg/ast"
)

// Type is the semantic representation of a host-language type.
type Type interface {
	Name() string
}

type PrimitiveKind string

const (
	PrimitiveI8    PrimitiveKind = "i8"
	PrimitiveI16   PrimitiveKind = "i16"
	PrimitiveI32   PrimitiveKind = "i32"
	PrimitiveI64   PrimitiveKind = "i64"
	PrimitiveI128  PrimitiveKind = "i128"
	PrimitiveIsize PrimitiveKind = "isize"
	PrimitiveU8    PrimitiveKind = "u8"
	PrimitiveU16   PrimitiveKind = "u16"
	PrimitiveU32   PrimitiveKind = "u32"
	PrimitiveU64   PrimitiveKind = "u64"
	PrimitiveU128  PrimitiveKind = "u128"
	PrimitiveUsize PrimitiveKind = "usize"
	PrimitiveF32   PrimitiveKind = "f32"
	PrimitiveF64   PrimitiveKind = "f64"
	PrimitiveBool  PrimitiveKind = "bool"
	PrimitiveChar  PrimitiveKind = "char"
	PrimitiveStr   PrimitiveKind = "str"
	PrimitiveNever PrimitiveKind = "!"
)

type PrimitiveType struct {
	Kind PrimitiveKind
}

func (t PrimitiveType) Name() string { return string(t.Kind) }

func (t PrimitiveType) IsInteger() bool {
	switch t.Kind {
	case PrimitiveI8, PrimitiveI16, PrimitiveI32, PrimitiveI64, PrimitiveI128, PrimitiveIsize,
		PrimitiveU8, PrimitiveU16, PrimitiveU32, PrimitiveU64, PrimitiveU128, PrimitiveUsize:
		return true
	}
	return false
}

func (t PrimitiveType) IsSigned() bool {
	switch t.Kind {
	case PrimitiveI8, PrimitiveI16, PrimitiveI32, PrimitiveI64, PrimitiveI128, PrimitiveIsize:
		return true
	}
	return false
}

func (t PrimitiveType) IsFloat() bool {
	return t.Kind == PrimitiveF32 || t.Kind == PrimitiveF64
}

var primitiveKinds = map[string]PrimitiveKind{
	"i8": PrimitiveI8, "i16": PrimitiveI16, "i32": PrimitiveI32, "i64": PrimitiveI64, "i128": PrimitiveI128, "isize": PrimitiveIsize,
	"u8": PrimitiveU8, "u16": PrimitiveU16, "u32": PrimitiveU32, "u64": PrimitiveU64, "u128": PrimitiveU128, "usize": PrimitiveUsize,
	"f32": PrimitiveF32, "f64": PrimitiveF64, "bool": PrimitiveBool, "char": PrimitiveChar, "str": PrimitiveStr, "!": PrimitiveNever,
}

// PointerType is a raw pointer `*const T` / `*mut T`.
type PointerType struct {
	Elem    Type
	Mutable bool
}

func (t PointerType) Name() string {
	if t.Mutable {
		return "*mut " + typeName(t.Elem)
	}
	return "*const " + typeName(t.Elem)
}

type ReferenceType struct {
	Elem    Type
	Mutable bool
}

func (t ReferenceType) Name() string {
	if t.Mutable {
		return "&mut " + typeName(t.Elem)
	}
	return "&" + typeName(t.Elem)
}

type ArrayType struct {
	Elem   Type
	Length int64
}

func (t ArrayType) Name() string { return fmt.Sprintf("[%s; %d]", typeName(t.Elem), t.Length) }

// SliceType is the unsized `[T]`.
type SliceType struct {
	Elem Type
}

func (t SliceType) Name() string { return "[" + typeName(t.Elem) + "]" }

// TupleType with no elements is the unit type.
type TupleType struct {
	Elements []Type
}

func (t TupleType) Name() string {
	parts := make([]string, len(t.Elements))
	for i, el := range t.Elements {
		parts[i] = typeName(el)
	}
	if len(parts) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

type BuiltinKind string

const (
	BuiltinString       BuiltinKind = "String"
	BuiltinVec          BuiltinKind = "Vec"
	BuiltinBox          BuiltinKind = "Box"
	BuiltinRc           BuiltinKind = "Rc"
	BuiltinArc          BuiltinKind = "Arc"
	BuiltinCell         BuiltinKind = "Cell"
	BuiltinRefCell      BuiltinKind = "RefCell"
	BuiltinManuallyDrop BuiltinKind = "ManuallyDrop"
	BuiltinOption       BuiltinKind = "Option"
)

// builtinArity lists the library types the checker knows natively.
var builtinArity = map[BuiltinKind]int{
	BuiltinString:       0,
	BuiltinVec:          1,
	BuiltinBox:          1,
	BuiltinRc:           1,
	BuiltinArc:          1,
	BuiltinCell:         1,
	BuiltinRefCell:      1,
	BuiltinManuallyDrop: 1,
	BuiltinOption:       1,
}

// BuiltinType is a standard library type with known capabilities and layout.
type BuiltinType struct {
	Kind BuiltinKind
	Args []Type
}

func (t BuiltinType) Name() string {
	if len(t.Args) == 0 {
		return string(t.Kind)
	}
	parts := make([]string, len(t.Args))
	for i, a := range t.Args {
		parts[i] = typeName(a)
	}
	return string(t.Kind) + "<" + strings.Join(parts, ", ") + ">"
}

// Arg returns the single type argument, or UnknownType.
func (t BuiltinType) Arg() Type {
	if len(t.Args) == 0 || t.Args[0] == nil {
		return UnknownType{}
	}
	return t.Args[0]
}

// FieldType is a named or positional field of a struct or variant.
type FieldType struct {
	Name string
	Type Type
	Decl *ast.FieldDefinition
}

// ReprOptions captures `#[repr(...)]`.
type ReprOptions struct {
	C     bool
	Align int
}

// declaredImpls tracks trait impls written for a user type.
type declaredImpls struct {
	positive map[Capability]bool
	negative map[Capability]bool
	drop     bool
}

func newDeclaredImpls() declaredImpls {
	return declaredImpls{positive: make(map[Capability]bool), negative: make(map[Capability]bool)}
}

type StructType struct {
	StructName string
	Kind       ast.FieldKind
	Fields     []FieldType
	Repr       ReprOptions
	Derives    []string
	Decl       *ast.StructDefinition
	impls      declaredImpls
}

func (t *StructType) Name() string { return t.StructName }

// VariantType is one variant of a tagged enum or untagged union.
type VariantType struct {
	VariantName string
	Kind        ast.FieldKind
	Fields      []FieldType
	Decl        *ast.VariantDefinition
}

func (v *VariantType) Field(name string) (FieldType, bool) {
	for _, f := range v.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldType{}, false
}

// EnumType is an ordinary tagged enum.
type EnumType struct {
	EnumName string
	Variants []*VariantType
	Repr     ReprOptions
	Derives  []string
	Decl     *ast.EnumDefinition
	impls    declaredImpls
}

func (t *EnumType) Name() string { return t.EnumName }

func (t *EnumType) Variant(name string) *VariantType {
	for _, v := range t.Variants {
		if v.VariantName == name {
			return v
		}
	}
	return nil
}

// UnionType is an untagged union: an `#[unsafe_enum] enum` or a native `union`.
type UnionType struct {
	UnionName string
	Variants  []*VariantType
	Repr      ReprOptions
	Native    bool
	Derives   []string
	Decl      *ast.UnionDefinition
	impls     declaredImpls

	derived CapabilitySet
}

func (t *UnionType) Name() string { return t.UnionName }

func (t *UnionType) Variant(name string) *VariantType {
	for _, v := range t.Variants {
		if v.VariantName == name {
			return v
		}
	}
	return nil
}

// Fixed reports whether the union uses the C-compatible layout.
func (t *UnionType) Fixed() bool { return t.Repr.C }

// CustomDrop reports whether the user supplied `impl Drop` for the union.
func (t *UnionType) CustomDrop() bool { return t.impls.drop }

type FunctionType struct {
	Params   []Type
	Return   Type
	IsUnsafe bool
}

func (t FunctionType) Name() string {
	parts := make([]string, len(t.Params))
	for i, p := range t.Params {
		parts[i] = typeName(p)
	}
	prefix := "fn("
	if t.IsUnsafe {
		prefix = "unsafe fn("
	}
	return prefix + strings.Join(parts, ", ") + ") -> " + typeName(t.Return)
}

// UnknownType marks an unresolved or unmodelled type.
type UnknownType struct{}

func (UnknownType) Name() string { return "Unknown" }

func typeName(t Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.Name()
}

func isUnknown(t Type) bool {
	if t == nil {
		return true
	}
	_, ok := t.(UnknownType)
	return ok
}

var unitType = TupleType{}

// derefType strips reference layers.
func derefType(t Type) Type {
	for {
		ref, ok := t.(ReferenceType)
		if !ok {
			return t
		}
		t = ref.Elem
	}
}

func asUnion(t Type) (*UnionType, bool) {
	u, ok := derefType(t).(*UnionType)
	return u, ok && u != nil
}
