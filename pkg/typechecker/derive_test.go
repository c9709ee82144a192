package typechecker

import (
	"testing"

	"untagged/checker-go/pkg/ast"
)

func deriveVerdict(t *testing.T, checker *Checker, union, capability string) DeriveVerdict {
	t.Helper()
	for _, v := range checker.DeriveVerdicts() {
		if v.Union == union && v.Capability == capability {
			return v
		}
	}
	t.Fatalf("no derive verdict for %s on %s: %+v", capability, union, checker.DeriveVerdicts())
	return DeriveVerdict{}
}

func TestDeriveSendFollowsPayloads(t *testing.T) {
	checker, diags := check(t,
		ast.UnionDef("Plain", []*ast.Attribute{ast.Derive("Send", "Sync")},
			ast.Variant("I", ast.Ty("i32")),
			ast.Variant("F", ast.Ty("f64")),
		),
		ast.UnionDef("Raw", []*ast.Attribute{ast.Derive("Send")},
			ast.Variant("I", ast.Ty("i32")),
			ast.Variant("P", ast.PtrTy(ast.Ty("u8"), true)),
		),
	)
	if !deriveVerdict(t, checker, "Plain", "Send").Accepted || !deriveVerdict(t, checker, "Plain", "Sync").Accepted {
		t.Fatalf("expected Plain to derive Send and Sync")
	}
	raw := deriveVerdict(t, checker, "Raw", "Send")
	if raw.Accepted {
		t.Fatalf("expected Raw's Send derive to be rejected")
	}
	expectDiagnostic(t, diags, "cannot derive Send for untagged union Raw: payload type *mut u8 of variant P does not implement Send")

	plain, _ := checker.LookupType("Plain")
	if caps := checker.CapabilitiesOf(plain); !caps.Has(CapSend) || caps.Has(CapPartialEq) {
		t.Fatalf("unexpected Plain capabilities %s", caps)
	}
	rawType, _ := checker.LookupType("Raw")
	if checker.CapabilitiesOf(rawType).Has(CapSend) {
		t.Fatalf("Raw must not be Send")
	}
}

func TestDeriveNeedingActiveVariantIsRejected(t *testing.T) {
	for _, name := range []string{"PartialEq", "Eq", "Hash", "Debug", "Default", "PartialOrd"} {
		checker, diags := check(t, ast.UnionDef("U", []*ast.Attribute{ast.Derive(name)},
			ast.Variant("A", ast.Ty("i32")),
		))
		expectDiagnostic(t, diags, "cannot derive "+name+" for untagged union U: cannot determine active variant")
		if deriveVerdict(t, checker, "U", name).Accepted {
			t.Fatalf("%s must be rejected", name)
		}
	}
}

func TestDeriveCopyAndClone(t *testing.T) {
	checker, diags := check(t, ast.UnionDef("U", []*ast.Attribute{ast.Derive("Clone", "Copy")},
		ast.Variant("A", ast.Ty("i32")),
		ast.Variant("B", ast.RefTy(ast.Ty("u8"), false)),
	))
	expectNoErrors(t, diags)
	u, _ := checker.LookupType("U")
	caps := checker.CapabilitiesOf(u)
	if !caps.Has(CapCopy) || !caps.Has(CapClone) {
		t.Fatalf("expected Copy and Clone, got %s", caps)
	}

	_, diags = check(t, ast.UnionDef("U", []*ast.Attribute{ast.Derive("Clone")},
		ast.Variant("A", ast.Ty("i32")),
	))
	expectDiagnostic(t, diags, "cannot derive Clone for untagged union U: cannot determine active variant")

	_, diags = check(t, ast.UnionDef("U", []*ast.Attribute{ast.Derive("Copy")},
		ast.Variant("A", ast.Gen("ManuallyDrop", ast.Ty("String"))),
	))
	expectDiagnostic(t, diags, "does not implement Copy")
}

func TestDeriveDropIsRejected(t *testing.T) {
	_, diags := check(t, ast.UnionDef("U", []*ast.Attribute{ast.Derive("Drop")},
		ast.Variant("A", ast.Ty("i32")),
	))
	expectDiagnostic(t, diags, "cannot derive Drop for untagged union U")
}

func TestUnknownDeriveIsRejected(t *testing.T) {
	_, diags := check(t, ast.UnionDef("U", []*ast.Attribute{ast.Derive("Serialize")},
		ast.Variant("A", ast.Ty("i32")),
	))
	expectDiagnostic(t, diags, "unknown derivable capability 'Serialize' on U")
}

func TestManualImplsAdjustCapabilities(t *testing.T) {
	checker, diags := check(t,
		ast.UnionDef("U", nil,
			ast.Variant("P", ast.PtrTy(ast.Ty("u8"), true)),
		),
		ast.UnsafeImpl("Send", ast.Ty("U")),
	)
	expectNoErrors(t, diags)
	u, _ := checker.LookupType("U")
	if !checker.CapabilitiesOf(u).Has(CapSend) {
		t.Fatalf("unsafe impl Send should make U Send")
	}

	_, diags = check(t,
		ast.UnionDef("U", nil, ast.Variant("P", ast.PtrTy(ast.Ty("u8"), true))),
		ast.Impl("Send", ast.Ty("U")),
	)
	expectDiagnostic(t, diags, "implementing Send for U requires unsafe impl")

	checker, _ = check(t,
		ast.UnionDef("U", nil, ast.Variant("A", ast.Ty("i32"))),
		ast.NegImpl("Sync", ast.Ty("U")),
	)
	u, _ = checker.LookupType("U")
	if checker.CapabilitiesOf(u).Has(CapSync) {
		t.Fatalf("negative impl should remove Sync")
	}
}

func TestCopyAndDropConflict(t *testing.T) {
	_, diags := check(t,
		ast.UnionDef("U", []*ast.Attribute{ast.Derive("Copy")},
			ast.Variant("A", ast.Ty("i32")),
		),
		ast.Impl("Drop", ast.Ty("U")),
	)
	expectDiagnostic(t, diags, "cannot derive Copy because it implements Drop")
}

func TestPayloadPolicies(t *testing.T) {
	owning := func() *ast.UnionDefinition {
		return ast.UnionDef("U", nil,
			ast.Variant("Text", ast.Ty("String")),
			ast.Variant("Num", ast.Ty("u64")),
		)
	}

	_, diags := check(t, owning())
	expectDiagnostic(t, diags, "payload type String of variant U::Text needs drop; wrap it in ManuallyDrop<String>")

	_, diags = check(t, ast.UnionDef("U", nil,
		ast.Variant("Text", ast.Gen("ManuallyDrop", ast.Ty("String"))),
	))
	expectNoErrors(t, diags)

	_, diags = checkWith(t, Options{Target: DefaultTarget, Policy: PolicyPermissive}, owning())
	expectNoErrors(t, diags)
	warning := expectDiagnostic(t, diags, "needs drop but untagged unions never run drop glue")
	if warning.IsError() {
		t.Fatalf("permissive policy should only warn")
	}

	_, diags = checkWith(t, Options{Target: DefaultTarget, Policy: PolicyCopyOnly}, ast.UnionDef("U", nil,
		ast.Variant("Text", ast.Gen("ManuallyDrop", ast.Ty("String"))),
	))
	expectDiagnostic(t, diags, "is not Copy (payload policy copy-only)")
}
