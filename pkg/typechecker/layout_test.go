package typechecker

import (
	"testing"

	"untagged/checker-go/pkg/ast"
)

func layoutFor(t *testing.T, opts Options, def ast.Statement, name string) *LayoutDescriptor {
	t.Helper()
	checker, diags := checkWith(t, opts, def)
	expectNoErrors(t, diags)
	desc, ok := checker.Layout(name)
	if !ok {
		t.Fatalf("no layout recorded for %s", name)
	}
	return desc
}

func TestLayoutTakesLargestVariant(t *testing.T) {
	desc := layoutFor(t, DefaultOptions(), ast.UnionDef("U", nil,
		ast.Variant("Small", ast.Ty("u8")),
		ast.Variant("Big", ast.Ty("u64")),
		ast.Variant("Empty"),
	), "U")
	if desc.Size != 8 || desc.Align != 8 {
		t.Fatalf("expected size 8 align 8, got size %d align %d", desc.Size, desc.Align)
	}
	if desc.Discriminant || desc.DropGlue {
		t.Fatalf("untagged layout must carry neither tag nor drop glue: %+v", desc)
	}
	empty, ok := desc.Variant("Empty")
	if !ok || empty.Size != 0 {
		t.Fatalf("expected zero-sized unit variant, got %+v", empty)
	}
}

func TestLayoutPlacesEveryVariantAtOffsetZero(t *testing.T) {
	desc := layoutFor(t, DefaultOptions(), ast.UnionDef("U", []*ast.Attribute{ast.ReprC()},
		ast.Variant("A", ast.Ty("u8"), ast.Ty("u16")),
		ast.Variant("B", ast.Ty("f32")),
	), "U")
	a, _ := desc.Variant("A")
	if a.Fields[0].Offset != 0 || a.Fields[1].Offset != 2 {
		t.Fatalf("expected C offsets 0 and 2, got %+v", a.Fields)
	}
	b, _ := desc.Variant("B")
	if b.Fields[0].Offset != 0 || b.Fields[0].Kind != ScalarFloat {
		t.Fatalf("expected float at offset 0, got %+v", b.Fields[0])
	}
	if a.Fields[0].Name != "0" || a.Fields[1].Name != "1" {
		t.Fatalf("positional fields should be numbered, got %+v", a.Fields)
	}
}

func TestDefaultLayoutReordersFields(t *testing.T) {
	desc := layoutFor(t, DefaultOptions(), ast.UnionDef("U", nil,
		ast.Variant("A", ast.Ty("u8"), ast.Ty("u32")),
	), "U")
	a, _ := desc.Variant("A")
	if a.Fields[1].Offset != 0 || a.Fields[0].Offset != 4 {
		t.Fatalf("expected the u32 first, got %+v", a.Fields)
	}
	if desc.Size != 8 || desc.Fixed {
		t.Fatalf("expected unfixed size 8, got %+v", desc)
	}
}

func TestReprCRoundsSizeToAlignment(t *testing.T) {
	variants := []*ast.VariantDefinition{
		ast.Variant("Bytes", ast.ArrTy(ast.Ty("u8"), 3)),
		ast.Variant("Half", ast.Ty("u16")),
	}
	fixed := layoutFor(t, DefaultOptions(), ast.UnionDef("Fixed", []*ast.Attribute{ast.ReprC()}, variants...), "Fixed")
	if fixed.Size != 4 || fixed.Align != 2 || !fixed.Fixed {
		t.Fatalf("expected fixed size 4 align 2, got %+v", fixed)
	}
	loose := layoutFor(t, DefaultOptions(), ast.UnionDef("Loose", nil, variants...), "Loose")
	if loose.Size != 3 || loose.Align != 2 {
		t.Fatalf("expected unrounded size 3 align 2, got %+v", loose)
	}
}

func TestReprAlignRaisesAlignment(t *testing.T) {
	desc := layoutFor(t, DefaultOptions(), ast.UnionDef("U", []*ast.Attribute{ast.Attr("repr", "C", "align(16)")},
		ast.Variant("A", ast.Ty("u32")),
	), "U")
	if desc.Size != 16 || desc.Align != 16 {
		t.Fatalf("expected size 16 align 16, got size %d align %d", desc.Size, desc.Align)
	}
}

func TestPointerWidthFollowsTarget(t *testing.T) {
	def := func() *ast.UnionDefinition {
		return ast.UnionDef("U", nil,
			ast.Variant("Ptr", ast.PtrTy(ast.Ty("u8"), false)),
			ast.Variant("Len", ast.Ty("usize")),
		)
	}
	wide := layoutFor(t, DefaultOptions(), def(), "U")
	if wide.Size != 8 {
		t.Fatalf("expected 8-byte pointers, got %d", wide.Size)
	}
	narrow := layoutFor(t, Options{Target: TargetDataModel{PointerWidth: 4}, Policy: PolicyNoDrop}, def(), "U")
	if narrow.Size != 4 || narrow.Align != 4 {
		t.Fatalf("expected 4-byte pointers, got size %d align %d", narrow.Size, narrow.Align)
	}
	ptr, _ := narrow.Variant("Ptr")
	if ptr.Fields[0].Kind != ScalarPointer {
		t.Fatalf("expected pointer kind, got %s", ptr.Fields[0].Kind)
	}
}

func TestNativeUnionLayout(t *testing.T) {
	desc := layoutFor(t, DefaultOptions(), ast.NativeUnionDef("Bits", []*ast.Attribute{ast.ReprC()},
		ast.Field("i", ast.Ty("u32")),
		ast.Field("f", ast.Ty("f32")),
	), "Bits")
	if !desc.Native || desc.Size != 4 {
		t.Fatalf("expected native 4-byte union, got %+v", desc)
	}
	f, ok := desc.Variant("f")
	if !ok || f.Fields[0].Name != "0" || f.Fields[0].Kind != ScalarFloat {
		t.Fatalf("unexpected field layout %+v", f)
	}
}

func TestRecursivePayloadIsRejected(t *testing.T) {
	_, diags := check(t, ast.UnionDef("List", nil,
		ast.Variant("Cons", ast.Ty("i32"), ast.Ty("List")),
		ast.Variant("Nil"),
	))
	expectDiagnostic(t, diags, "recursive payload in variant List::Cons has infinite size")
}

func TestUnsizedPayloadIsRejected(t *testing.T) {
	_, diags := check(t, ast.UnionDef("U", nil, ast.Variant("Text", ast.Ty("str"))))
	expectDiagnostic(t, diags, "payload of variant U::Text does not have a size known at compile time")
}

func TestBoxBreaksRecursion(t *testing.T) {
	desc := layoutFor(t, DefaultOptions(), ast.UnionDef("Tree", nil,
		ast.Variant("Node", ast.Gen("ManuallyDrop", ast.Gen("Box", ast.Ty("Tree")))),
		ast.Variant("Leaf", ast.Ty("u8")),
	), "Tree")
	if desc.Size != 8 {
		t.Fatalf("expected pointer-sized union, got %d", desc.Size)
	}
}

func TestLayoutRejectsPayloadsTooLargeForTarget(t *testing.T) {
	huge := ast.UnionDef("U", nil,
		ast.Variant("A", ast.ArrTy(ast.Ty("u64"), 1<<62)),
		ast.Variant("B", ast.Ty("u8")),
	)
	_, diags := check(t, huge)
	expectDiagnostic(t, diags, "payload of variant U::A is too large for the target (pointer width 8)")

	halves := func() *ast.UnionDefinition {
		return ast.UnionDef("V", nil,
			ast.Variant("A", ast.ArrTy(ast.Ty("u8"), 1<<30), ast.ArrTy(ast.Ty("u8"), 1<<30)),
		)
	}
	_, diags = checkWith(t, Options{Target: TargetDataModel{PointerWidth: 4}, Policy: PolicyNoDrop}, halves())
	expectDiagnostic(t, diags, "payload of variant V::A is too large for the target (pointer width 4)")

	desc := layoutFor(t, DefaultOptions(), halves(), "V")
	if int64(desc.Size) != 1<<31 {
		t.Fatalf("expected size 2147483648 on a 64-bit target, got %d", desc.Size)
	}
}
