package ast

import "testing"

func TestDescribePatterns(t *testing.T) {
	cases := []struct {
		pattern Pattern
		want    string
	}{
		{VariantP("U::A", Bind("x")), "U::A(x)"},
		{VariantP("A", LitP(Int(5))), "A(5)"},
		{VariantUnitP("U::Empty"), "U::Empty"},
		{VariantNamedP("U::P", true, FieldP("x", Bind("x")), FieldP("y", Wc())), "U::P { x, y: _, .. }"},
		{OrP(VariantP("A", Wc()), VariantP("B", Wc())), "A(_) | B(_)"},
		{At("n", RangeP(Int(1), Int(9), true)), "n @ 1..=9"},
		{TupleP(RefBind("a"), MutBind("b"), Rest()), "(ref a, mut b, ..)"},
		{RefP(Wc()), "&_"},
	}
	for _, tc := range cases {
		if got := Describe(tc.pattern); got != tc.want {
			t.Fatalf("Describe() = %q, want %q", got, tc.want)
		}
	}
}

func TestDescribeTypes(t *testing.T) {
	cases := []struct {
		expr TypeExpression
		want string
	}{
		{Ty("u32"), "u32"},
		{Gen("ManuallyDrop", Ty("String")), "ManuallyDrop<String>"},
		{PtrTy(Ty("u8"), false), "*const u8"},
		{RefTy(Ty("str"), true), "&mut str"},
		{ArrTy(Ty("u8"), 4), "[u8; 4]"},
		{TupleTy(Ty("i32"), Ty("u8")), "(i32, u8)"},
		{TupleTy(), "()"},
	}
	for _, tc := range cases {
		if got := DescribeType(tc.expr); got != tc.want {
			t.Fatalf("DescribeType() = %q, want %q", got, tc.want)
		}
	}
}

func TestSetSpan(t *testing.T) {
	id := ID("x")
	span := Span{Start: Position{Line: 2, Column: 3}, End: Position{Line: 2, Column: 4}}
	SetSpan(id, span)
	if id.Span() != span {
		t.Fatalf("expected span %+v, got %+v", span, id.Span())
	}
	if span.IsZero() || !ZeroSpan().IsZero() {
		t.Fatalf("unexpected IsZero results")
	}
	if !HasAttribute(UnionDef("U", nil).Attributes, "unsafe_enum") {
		t.Fatalf("expected unsafe_enum attribute")
	}
}
