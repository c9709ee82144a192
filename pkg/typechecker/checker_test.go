package typechecker

import (
	"strings"
	"testing"

	"untagged/checker-go/pkg/ast"
)

func checkWith(t *testing.T, opts Options, body ...ast.Statement) (*Checker, []Diagnostic) {
	t.Helper()
	checker := NewWithOptions(opts)
	diags, err := checker.CheckModule(ast.Mod(body...))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return checker, diags
}

func check(t *testing.T, body ...ast.Statement) (*Checker, []Diagnostic) {
	t.Helper()
	return checkWith(t, DefaultOptions(), body...)
}

func errorsOf(diags []Diagnostic) []Diagnostic {
	var out []Diagnostic
	for _, d := range diags {
		if d.IsError() {
			out = append(out, d)
		}
	}
	return out
}

func expectNoErrors(t *testing.T, diags []Diagnostic) {
	t.Helper()
	if errs := errorsOf(diags); len(errs) > 0 {
		t.Fatalf("expected no errors, got %v", messages(errs))
	}
}

func expectDiagnostic(t *testing.T, diags []Diagnostic, fragment string) Diagnostic {
	t.Helper()
	for _, d := range diags {
		if strings.Contains(d.Message, fragment) {
			return d
		}
	}
	t.Fatalf("expected a diagnostic containing %q, got %v", fragment, messages(diags))
	return Diagnostic{}
}

func messages(diags []Diagnostic) []string {
	out := make([]string, len(diags))
	for i, d := range diags {
		out[i] = d.Message
	}
	return out
}

// unionAB is `#[unsafe_enum] enum U { A(i32), B(*mut u8) }`.
func unionAB() *ast.UnionDefinition {
	return ast.UnionDef("U", nil,
		ast.Variant("A", ast.Ty("i32")),
		ast.Variant("B", ast.PtrTy(ast.Ty("u8"), true)),
	)
}

// fnOverU wraps body in `fn f(u: U) { ... }`.
func fnOverU(body ...ast.Statement) *ast.FunctionDefinition {
	return ast.Fn("f", []*ast.FunctionParameter{ast.Param(ast.Bind("u"), ast.Ty("U"))}, body...)
}

func TestCheckModuleRejectsNilModule(t *testing.T) {
	if _, err := New().CheckModule(nil); err == nil {
		t.Fatalf("expected error for nil module")
	}
}

func TestDuplicateVariantIsRejected(t *testing.T) {
	_, diags := check(t, ast.UnionDef("U", nil,
		ast.Variant("A", ast.Ty("i32")),
		ast.Variant("A", ast.Ty("u8")),
	))
	expectDiagnostic(t, diags, "duplicate variant 'A' in U")
}

func TestEmptyUnionIsRejected(t *testing.T) {
	_, diags := check(t, ast.UnionDef("U", nil))
	expectDiagnostic(t, diags, "unsafe enum U must declare at least one variant")
}

func TestDuplicateDeclarationIsRejected(t *testing.T) {
	_, diags := check(t,
		unionAB(),
		ast.StructDef("U", nil, ast.Field("x", ast.Ty("i32"))),
	)
	expectDiagnostic(t, diags, "duplicate declaration 'U'")
}

func TestUnknownPayloadTypeIsReported(t *testing.T) {
	_, diags := check(t, ast.UnionDef("U", nil, ast.Variant("A", ast.Ty("Missing"))))
	expectDiagnostic(t, diags, "unknown type 'Missing'")
}

func TestInvalidReprAlignment(t *testing.T) {
	_, diags := check(t, ast.UnionDef("U", []*ast.Attribute{ast.Attr("repr", "align(3)")},
		ast.Variant("A", ast.Ty("i32")),
	))
	expectDiagnostic(t, diags, "invalid repr alignment '3'")
}

func TestConstructionIsSafe(t *testing.T) {
	_, diags := check(t,
		unionAB(),
		ast.Fn("make", nil,
			ast.Let(ast.Bind("u"), ast.Call(ast.Path("U", "A"), ast.Int(1))),
		),
	)
	expectNoErrors(t, diags)
}

func TestConstructionArityIsChecked(t *testing.T) {
	_, diags := check(t,
		unionAB(),
		ast.Fn("make", nil,
			ast.Let(ast.Bind("u"), ast.Call(ast.Path("U", "A"), ast.Int(1), ast.Int(2))),
		),
	)
	expectDiagnostic(t, diags, "variant U::A expects 1 payload value(s), got 2")
}

func TestUntaggedUnionHasNoFields(t *testing.T) {
	_, diags := check(t,
		unionAB(),
		fnOverU(ast.Unsafe(ast.Let(ast.Bind("v"), ast.Member(ast.ID("u"), "A")))),
	)
	expectDiagnostic(t, diags, "untagged union U has no fields")
}

func TestOptionsFallBackToDefaults(t *testing.T) {
	checker := NewWithOptions(Options{Target: TargetDataModel{PointerWidth: 3}, Policy: "bogus"})
	if got := checker.Options(); got != DefaultOptions() {
		t.Fatalf("expected default options, got %+v", got)
	}
}

func TestParsePayloadPolicy(t *testing.T) {
	cases := map[string]PayloadPolicy{
		"":           PolicyNoDrop,
		"no-drop":    PolicyNoDrop,
		"copy-only":  PolicyCopyOnly,
		"permissive": PolicyPermissive,
	}
	for raw, want := range cases {
		got, err := ParsePayloadPolicy(raw)
		if err != nil {
			t.Fatalf("ParsePayloadPolicy(%q): %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParsePayloadPolicy(%q) = %q, want %q", raw, got, want)
		}
	}
	if _, err := ParsePayloadPolicy("strict"); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}
