package driver

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"untagged/checker-go/pkg/ast"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(strings.TrimLeft(contents, "\n")), 0o644))
}

func newTestLoader(t *testing.T, searchPaths ...SearchPath) *Loader {
	t.Helper()
	loader, err := NewLoader(searchPaths, nil)
	require.NoError(t, err)
	t.Cleanup(loader.Close)
	return loader
}

func packageNames(program *Program) []string {
	names := make([]string, 0, len(program.Modules))
	for _, mod := range program.Modules {
		names = append(names, mod.Package)
	}
	return names
}

func TestLoaderOrdersPackagesByImports(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ManifestFileName), "name: app\n")
	writeFile(t, filepath.Join(root, "src", "lib.rs"), `
use crate::shapes::Value;
use std::mem::ManuallyDrop;

fn entry(v: Value) {}
`)
	writeFile(t, filepath.Join(root, "src", "shapes", "mod.rs"), `
use super::bits::Bits;

#[unsafe_enum]
pub enum Value { Int(i32), Float(f32) }
`)
	writeFile(t, filepath.Join(root, "src", "bits.rs"), `
pub union Bits { i: u32, f: f32 }
`)

	program, err := newTestLoader(t).Load(filepath.Join(root, "src", "lib.rs"))
	require.NoError(t, err)
	require.Equal(t, []string{"app::bits", "app::shapes", "app"}, packageNames(program))
	require.Equal(t, "app", program.Entry.Package)
	require.Equal(t, []string{"app::shapes"}, program.Entry.Imports)

	shapes, ok := program.Module("app::shapes")
	require.True(t, ok)
	require.Len(t, shapes.Files, 1)
	def := shapes.AST.Body[1].(*ast.UnionDefinition)
	require.Equal(t, shapes.Files[0], shapes.NodeOrigins[def])
}

func TestLoaderDirectoryLoadsEveryPackage(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.rs"), "pub struct A;\n")
	writeFile(t, filepath.Join(root, "b.rs"), "pub struct B;\n")
	writeFile(t, filepath.Join(root, "target", "skip.rs"), "this is not rust\n")

	program, err := newTestLoader(t).Load(root)
	require.NoError(t, err)
	base := sanitizeSegment(filepath.Base(root))
	require.ElementsMatch(t, []string{base + "::a", base + "::b"}, packageNames(program))
	require.Nil(t, program.Entry)
}

func TestLoaderIncludesSearchPathPackages(t *testing.T) {
	root := t.TempDir()
	depRoot := filepath.Join(root, "dep")
	writeFile(t, filepath.Join(depRoot, ManifestFileName), "name: geometry\n")
	writeFile(t, filepath.Join(depRoot, "src", "lib.rs"), "pub struct Point { x: f32, y: f32 }\n")

	appRoot := filepath.Join(root, "app")
	writeFile(t, filepath.Join(appRoot, ManifestFileName), "name: app\n")
	mainPath := filepath.Join(appRoot, "src", "main.rs")
	writeFile(t, mainPath, `
use geometry::Point;

#[unsafe_enum]
enum Shape { At(Point), Nothing }
`)

	program, err := newTestLoader(t, SearchPath{Path: depRoot}).Load(mainPath)
	require.NoError(t, err)
	require.Equal(t, []string{"geometry", "app"}, packageNames(program))
}

func TestLoaderDetectsImportCycles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ManifestFileName), "name: app\n")
	writeFile(t, filepath.Join(root, "src", "a.rs"), "use crate::b::B;\npub struct A;\n")
	writeFile(t, filepath.Join(root, "src", "b.rs"), "use crate::a::A;\npub struct B;\n")

	_, err := newTestLoader(t).Load(filepath.Join(root, "src", "a.rs"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "import cycle detected")
}

func TestLoaderReportsUnknownCratePackages(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ManifestFileName), "name: app\n")
	writeFile(t, filepath.Join(root, "src", "a.rs"), "use crate::missing::Thing;\n")

	_, err := newTestLoader(t).Load(filepath.Join(root, "src", "a.rs"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "imports unknown package app::missing")
}

func TestLoaderAggregatesParseErrors(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ManifestFileName), "name: app\n")
	writeFile(t, filepath.Join(root, "src", "one.rs"), "enum Broken {\n")
	writeFile(t, filepath.Join(root, "src", "two.rs"), "struct Fine;\nfn f( {\n")

	_, err := newTestLoader(t).Load(root)
	require.Error(t, err)
	require.Len(t, multierr.Errors(err), 2)

	diags := ParserDiagnostics(err)
	require.Len(t, diags, 2)
	require.True(t, strings.HasSuffix(diags[0].Location.Path, "one.rs"))
	require.Greater(t, diags[0].Location.Line, 0)
	require.True(t, strings.HasPrefix(DescribeParserDiagnostic(diags[1]), "parser: "))
}

func TestLoaderRejectsEntryOutsideSources(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ManifestFileName), "name: app\n")
	writeFile(t, filepath.Join(root, "src", "lib.rs"), "struct A;\n")
	stray := filepath.Join(root, "scripts", "tool.rs")
	writeFile(t, stray, "struct B;\n")

	_, err := newTestLoader(t).Load(stray)
	require.Error(t, err)
	require.Contains(t, err.Error(), "outside the sources")
}

func TestPackageSegments(t *testing.T) {
	cases := map[string]string{
		"lib.rs":              "app",
		"main.rs":             "app",
		"shapes.rs":           "app::shapes",
		"shapes/mod.rs":       "app::shapes",
		"shapes/main.rs":      "app::shapes::main",
		"ffi-bindings/raw.rs": "app::ffi_bindings::raw",
	}
	for rel, want := range cases {
		segments, err := packageSegments("app", "/src", filepath.Join("/src", filepath.FromSlash(rel)))
		require.NoError(t, err)
		require.Equal(t, want, strings.Join(segments, PackageSeparator), rel)
	}
}
