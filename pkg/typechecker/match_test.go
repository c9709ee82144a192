package typechecker

import (
	"testing"

	"untagged/checker-go/pkg/ast"
)

func TestLetDestructureInsideUnsafeBindsPayload(t *testing.T) {
	x := ast.Bind("x")
	checker, diags := check(t,
		unionAB(),
		fnOverU(ast.Unsafe(ast.Let(ast.VariantP("A", x), ast.ID("u")))),
	)
	expectNoErrors(t, diags)
	typ, ok := checker.TypeOf(x)
	if !ok {
		t.Fatalf("expected a type for x")
	}
	if name := typeName(typ); name != "i32" {
		t.Fatalf("expected x: i32, got %s", name)
	}
	verdicts := checker.Verdicts()
	var found bool
	for _, v := range verdicts {
		if v.Site == SiteLet {
			found = true
			if v.Refutable || !v.RequiresUnsafe || !v.InUnsafe || !v.Accepted {
				t.Fatalf("unexpected let verdict %+v", v)
			}
		}
	}
	if !found {
		t.Fatalf("no let verdict recorded: %+v", verdicts)
	}
}

func TestLetDestructureOutsideUnsafeIsRejected(t *testing.T) {
	_, diags := check(t,
		unionAB(),
		fnOverU(ast.Let(ast.VariantP("A", ast.Bind("x")), ast.ID("u"))),
	)
	diag := expectDiagnostic(t, diags, "unsafe operation outside unsafe context: destructuring untagged union U")
	if !diag.IsError() {
		t.Fatalf("expected an error, got %+v", diag)
	}
}

func TestUnsafeFunctionBodyIsUnsafeContext(t *testing.T) {
	_, diags := check(t,
		unionAB(),
		ast.UnsafeFn("f", []*ast.FunctionParameter{ast.Param(ast.Bind("u"), ast.Ty("U"))},
			ast.Let(ast.VariantP("A", ast.Bind("x")), ast.ID("u")),
		),
	)
	expectNoErrors(t, diags)
}

func TestNestedFunctionDoesNotInheritUnsafeBlock(t *testing.T) {
	inner := ast.Fn("g", []*ast.FunctionParameter{ast.Param(ast.Bind("v"), ast.Ty("U"))},
		ast.Let(ast.VariantP("A", ast.Bind("x")), ast.ID("v")),
	)
	_, diags := check(t, unionAB(), fnOverU(ast.Unsafe(inner)))
	expectDiagnostic(t, diags, "unsafe operation outside unsafe context: destructuring untagged union U")

	after := ast.Let(ast.VariantP("B", ast.Bind("p")), ast.ID("u"))
	unsafeInner := ast.UnsafeFn("h", []*ast.FunctionParameter{ast.Param(ast.Bind("v"), ast.Ty("U"))},
		ast.Let(ast.VariantP("A", ast.Bind("x")), ast.ID("v")),
	)
	_, diags = check(t, unionAB(), fnOverU(ast.Unsafe(unsafeInner, after)))
	expectNoErrors(t, diags)
}

func TestMatchOfPlainBindingArmsIsRejected(t *testing.T) {
	_, diags := check(t,
		unionAB(),
		fnOverU(ast.Unsafe(ast.Match(ast.ID("u"),
			ast.Clause(ast.VariantP("A", ast.Bind("x")), ast.Int(1)),
			ast.Clause(ast.VariantP("B", ast.Bind("y")), ast.Int(2)),
		))),
	)
	expectDiagnostic(t, diags, "match arm 1 (A(x)) is irrefutable")
	expectDiagnostic(t, diags, "match arm 2 (B(y)) is irrefutable")
}

func TestMatchWithLiteralGuardAndFallbackIsAccepted(t *testing.T) {
	checker, diags := check(t,
		unionAB(),
		fnOverU(ast.Unsafe(ast.Match(ast.ID("u"),
			ast.Clause(ast.VariantP("A", ast.LitP(ast.Int(5))), ast.Int(1)),
			ast.ClauseIf(ast.VariantP("A", ast.Bind("x")), ast.Bin("<", ast.ID("x"), ast.Int(0)), ast.Int(2)),
			ast.Clause(ast.VariantP("A", ast.Bind("x")), ast.Int(3)),
		))),
	)
	expectNoErrors(t, diags)

	var arms []PatternVerdict
	for _, v := range checker.Verdicts() {
		if v.Site == SiteMatchArm {
			arms = append(arms, v)
		}
	}
	if len(arms) != 3 {
		t.Fatalf("expected 3 arm verdicts, got %+v", arms)
	}
	if arms[0].Reason != "literal 5" || arms[1].Reason != "guard" || !arms[2].Fallback {
		t.Fatalf("unexpected arm classification %+v", arms)
	}
	for _, arm := range arms {
		if !arm.Refutable || !arm.Accepted {
			t.Fatalf("expected refutable accepted arm, got %+v", arm)
		}
	}
}

func TestMatchArmsNeedUnsafe(t *testing.T) {
	_, diags := check(t,
		unionAB(),
		fnOverU(ast.Match(ast.ID("u"),
			ast.Clause(ast.VariantP("A", ast.LitP(ast.Int(5))), ast.Int(1)),
			ast.Clause(ast.VariantP("A", ast.Bind("x")), ast.Int(2)),
		)),
	)
	expectDiagnostic(t, diags, "matching untagged union U with pattern A(5) in match arm 1")
}

func TestCatchAllCannotJoinVariantArms(t *testing.T) {
	_, diags := check(t,
		unionAB(),
		fnOverU(ast.Unsafe(ast.Match(ast.ID("u"),
			ast.Clause(ast.VariantP("A", ast.LitP(ast.Int(5))), ast.Int(1)),
			ast.Clause(ast.Wc(), ast.Int(2)),
		))),
	)
	expectDiagnostic(t, diags, "catch-all arm 2 (_) cannot be combined")
}

func TestSingleArmMatchMustBeIrrefutable(t *testing.T) {
	_, diags := check(t,
		unionAB(),
		fnOverU(ast.Unsafe(ast.Match(ast.ID("u"),
			ast.Clause(ast.VariantP("A", ast.LitP(ast.Int(5))), ast.Int(1)),
		))),
	)
	expectDiagnostic(t, diags, "single-arm match over untagged union U must be irrefutable")

	_, diags = check(t,
		unionAB(),
		fnOverU(ast.Unsafe(ast.Match(ast.ID("u"),
			ast.Clause(ast.VariantP("A", ast.Bind("x")), ast.Int(1)),
		))),
	)
	expectNoErrors(t, diags)
}

func TestIfLetNeedsRefutablePattern(t *testing.T) {
	_, diags := check(t,
		unionAB(),
		fnOverU(ast.Unsafe(ast.IfLet(ast.VariantP("A", ast.Bind("x")), ast.ID("u"), ast.Block(), nil))),
	)
	expectDiagnostic(t, diags, "irrefutable pattern A(x) in if let over untagged union U")

	_, diags = check(t,
		unionAB(),
		fnOverU(ast.Unsafe(ast.IfLet(ast.VariantP("A", ast.LitP(ast.Int(5))), ast.ID("u"), ast.Block(), nil))),
	)
	expectNoErrors(t, diags)
}

func TestLetElseNeedsRefutablePattern(t *testing.T) {
	_, diags := check(t,
		unionAB(),
		fnOverU(ast.Unsafe(ast.LetElse(ast.VariantP("A", ast.Bind("x")), ast.ID("u"), ast.Block(ast.Ret(nil))))),
	)
	expectDiagnostic(t, diags, "in let else over untagged union U")
}

func TestRefutableLetIsRejected(t *testing.T) {
	_, diags := check(t,
		unionAB(),
		fnOverU(ast.Unsafe(ast.Let(ast.VariantP("A", ast.LitP(ast.Int(5))), ast.ID("u")))),
	)
	expectDiagnostic(t, diags, "refutable pattern in local binding: A(5) (literal 5)")
}

func TestNativeFieldReadNeedsUnsafe(t *testing.T) {
	bits := ast.NativeUnionDef("Bits", nil,
		ast.Field("i", ast.Ty("u32")),
		ast.Field("f", ast.Ty("f32")),
	)
	param := []*ast.FunctionParameter{ast.Param(ast.MutBind("b"), ast.Ty("Bits"))}

	_, diags := check(t, bits, ast.Fn("read", param,
		ast.Let(ast.Bind("v"), ast.Member(ast.ID("b"), "f")),
	))
	expectDiagnostic(t, diags, "reading field 'f' of union Bits")

	_, diags = check(t, bits, ast.Fn("read", param,
		ast.Unsafe(ast.Let(ast.Bind("v"), ast.Member(ast.ID("b"), "f"))),
	))
	expectNoErrors(t, diags)

	_, diags = check(t, bits, ast.Fn("write", param,
		ast.Assign(ast.Member(ast.ID("b"), "i"), ast.IntTyped(1, "u32")),
	))
	expectNoErrors(t, diags)
}

func TestClassifyPattern(t *testing.T) {
	checker, diags := check(t, unionAB())
	expectNoErrors(t, diags)
	u, ok := checker.LookupType("U")
	if !ok {
		t.Fatalf("U not declared")
	}

	cases := []struct {
		name       string
		pattern    ast.Pattern
		refutable  bool
		catchAll   bool
		namesUnion bool
	}{
		{"binding variant", ast.VariantP("A", ast.Bind("x")), false, false, true},
		{"wildcard payload", ast.VariantP("B", ast.Wc()), false, false, true},
		{"literal payload", ast.VariantP("A", ast.LitP(ast.Int(1))), true, false, true},
		{"range payload", ast.VariantP("U::A", ast.RangeP(ast.Int(0), ast.Int(9), true)), true, false, true},
		{"or over variants", ast.OrP(ast.VariantP("A", ast.Wc()), ast.VariantP("B", ast.Wc())), true, false, true},
		{"wildcard", ast.Wc(), false, true, false},
		{"binding", ast.Bind("whole"), false, true, false},
		{"at binding", ast.At("all", ast.VariantP("A", ast.LitP(ast.Int(3)))), true, false, true},
	}
	for _, tc := range cases {
		info, diags := checker.ClassifyPattern(tc.pattern, u)
		if len(diags) > 0 {
			t.Fatalf("%s: unexpected diagnostics %v", tc.name, messages(diags))
		}
		if info.Refutable != tc.refutable || info.CatchAll != tc.catchAll || info.NamesUnion != tc.namesUnion {
			t.Fatalf("%s: got %+v", tc.name, info)
		}
	}
}
