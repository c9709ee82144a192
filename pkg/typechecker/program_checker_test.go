package typechecker

import (
	"strings"
	"testing"

	"untagged/checker-go/pkg/ast"
	"untagged/checker-go/pkg/driver"
)

func TestProgramCheckerSharesPublicUnions(t *testing.T) {
	bits := ast.UnionDef("Value", []*ast.Attribute{ast.ReprC()},
		ast.Variant("Int", ast.Ty("i32")),
		ast.Variant("Float", ast.Ty("f32")),
	)
	bits.IsPublic = true

	let := ast.Let(ast.VariantP("Int", ast.Bind("n")), ast.ID("v"))
	app := ast.Fn("read", []*ast.FunctionParameter{ast.Param(ast.Bind("v"), ast.Ty("Value"))}, let)

	program := &driver.Program{
		Modules: []*driver.Module{
			{Package: "app::bits", AST: ast.Mod(bits), Files: []string{"src/bits.rs"}},
			{
				Package:     "app",
				AST:         ast.Mod(app),
				Files:       []string{"src/lib.rs"},
				NodeOrigins: map[ast.Node]string{let.Pattern: "src/lib.rs"},
			},
		},
	}

	result, err := NewProgramChecker(DefaultOptions()).Check(program)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Layouts) != 1 || result.Layouts[0].Package != "app::bits" {
		t.Fatalf("expected one layout from app::bits, got %+v", result.Layouts)
	}
	if !result.HasErrors() {
		t.Fatalf("expected the destructuring outside unsafe to be rejected")
	}
	if len(result.Diagnostics) != 1 {
		t.Fatalf("expected one diagnostic, got %+v", result.Diagnostics)
	}
	diag := result.Diagnostics[0]
	if diag.Package != "app" || diag.Source.Path != "src/lib.rs" {
		t.Fatalf("unexpected diagnostic origin %+v", diag)
	}
	described := DescribeModuleDiagnostic(diag)
	if !strings.HasPrefix(described, "app: typechecker: unsafe operation outside unsafe context") || !strings.Contains(described, "(src/lib.rs") {
		t.Fatalf("unexpected description %q", described)
	}
	if verdicts := result.Verdicts["app"]; len(verdicts) == 0 {
		t.Fatalf("expected verdicts for app")
	}
}

func TestProgramCheckerHidesPrivateTypes(t *testing.T) {
	hidden := ast.UnionDef("Hidden", nil, ast.Variant("A", ast.Ty("i32")))
	user := ast.Fn("f", []*ast.FunctionParameter{ast.Param(ast.Bind("h"), ast.Ty("Hidden"))})

	pc := NewProgramChecker(DefaultOptions())
	result, err := pc.Check(&driver.Program{Modules: []*driver.Module{
		{Package: "dep", AST: ast.Mod(hidden)},
		{Package: "app", AST: ast.Mod(user)},
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pc.PackageExports("dep") != nil {
		t.Fatalf("private union should not be exported")
	}
	found := false
	for _, diag := range result.Diagnostics {
		if diag.Package == "app" && strings.Contains(diag.Diagnostic.Message, "unknown type 'Hidden'") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected unknown type diagnostic, got %+v", result.Diagnostics)
	}
}

func TestProgramCheckerRejectsNilProgram(t *testing.T) {
	if _, err := NewProgramChecker(DefaultOptions()).Check(nil); err == nil {
		t.Fatalf("expected error for nil program")
	}
}
