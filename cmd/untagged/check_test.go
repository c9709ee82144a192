package main

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const valueSource = `
#[unsafe_enum]
#[repr(C)]
pub enum Value {
    Int(i32),
    Ptr(*mut u8),
}

fn classify(v: Value) -> i32 {
    unsafe {
        match v {
            Value::Int(5) => 1,
            Value::Int(n) if n < 0 => 2,
            Value::Int(n) => 3,
        }
    }
}
`

func writeProject(t *testing.T, manifest, source string) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "untagged.yml"), manifest)
	writeFile(t, filepath.Join(root, "src", "lib.rs"), source)
	return root
}

func TestCheckAcceptsRefutableArms(t *testing.T) {
	root := writeProject(t, "name: app\n", valueSource)
	code, stdout, stderr := runCLI(t, "check", root)
	require.Equal(t, 0, code, stderr)
	require.Equal(t, "check: ok\n", stdout)
}

func TestCheckRejectsPlainBindingArms(t *testing.T) {
	root := writeProject(t, "name: app\n", `
#[unsafe_enum]
enum U { A(i32), B(*mut u8) }

fn f(u: U) -> i32 {
    unsafe {
        match u {
            A(x) => 1,
            B(y) => 2,
        }
    }
}
`)
	code, stdout, stderr := runCLI(t, "check", root)
	require.Equal(t, 1, code)
	require.Empty(t, stdout)
	require.Contains(t, stderr, "app: typechecker: match arm 1 (A(x)) is irrefutable")
	require.Contains(t, stderr, "match arm 2 (B(y)) is irrefutable")
	require.Contains(t, stderr, "lib.rs")
}

func TestCheckReportsParseErrors(t *testing.T) {
	root := writeProject(t, "name: app\n", "enum Broken {\n")
	code, _, stderr := runCLI(t, "check", root)
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "parser:")
}

func TestPolicyFlagOverridesManifest(t *testing.T) {
	root := writeProject(t, "name: app\npolicy:\n  payload: permissive\n", `
#[unsafe_enum]
enum Owned { Text(String), Num(u64) }
`)
	code, stdout, stderr := runCLI(t, "check", root)
	require.Equal(t, 0, code, stderr)
	require.Equal(t, "check: ok (1 warning(s))\n", stdout)
	require.Contains(t, stderr, "warning: typechecker: payload type String of variant Owned::Text needs drop")

	code, _, stderr = runCLI(t, "check", "--policy", "no-drop", root)
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "wrap it in ManuallyDrop<String>")

	code, _, stderr = runCLI(t, "check", "--policy", "strict", root)
	require.Equal(t, 1, code)
	require.Contains(t, stderr, `unknown payload policy "strict"`)
}

type layoutOutput struct {
	Modules []struct {
		Package string `json:"package" yaml:"package"`
		Layouts []struct {
			Union string `json:"union" yaml:"union"`
			Size  int    `json:"size" yaml:"size"`
			Align int    `json:"align" yaml:"align"`
			Fixed bool   `json:"fixed" yaml:"fixed"`
		} `json:"layouts" yaml:"layouts"`
	} `json:"modules" yaml:"modules"`
}

func TestLayoutJSONHonoursPointerWidth(t *testing.T) {
	root := writeProject(t, "name: app\ntarget:\n  pointer_width: 4\n", valueSource)

	code, stdout, stderr := runCLI(t, "layout", "--format", "json", root)
	require.Equal(t, 0, code, stderr)
	var out layoutOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	require.Len(t, out.Modules, 1)
	require.Equal(t, "app", out.Modules[0].Package)
	require.Len(t, out.Modules[0].Layouts, 1)
	value := out.Modules[0].Layouts[0]
	require.Equal(t, "Value", value.Union)
	require.Equal(t, 4, value.Size)
	require.Equal(t, 4, value.Align)
	require.True(t, value.Fixed)

	code, stdout, stderr = runCLI(t, "layout", "--pointer-width", "8", root)
	require.Equal(t, 0, code, stderr)
	out = layoutOutput{}
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &out))
	require.Equal(t, 8, out.Modules[0].Layouts[0].Size)
}

func TestLayoutRejectsUnknownFormat(t *testing.T) {
	root := writeProject(t, "name: app\n", valueSource)
	code, _, stderr := runCLI(t, "layout", "--format", "xml", root)
	require.Equal(t, 1, code)
	require.Contains(t, stderr, `unsupported format "xml"`)
}

func TestLayoutFailsOnCheckErrors(t *testing.T) {
	root := writeProject(t, "name: app\n", `
#[unsafe_enum]
enum Owned { Text(String) }
`)
	code, stdout, stderr := runCLI(t, "layout", root)
	require.Equal(t, 1, code)
	require.Empty(t, stdout)
	require.Contains(t, stderr, "needs drop")
}

func TestDecodeReinterpretsEveryVariant(t *testing.T) {
	root := writeProject(t, "name: app\ntarget:\n  pointer_width: 4\n", valueSource)
	code, stdout, stderr := runCLI(t, "decode", "--union", "Value", "--hex", "05 00 00 00", root)
	require.Equal(t, 0, code, stderr)
	require.Equal(t, "Value::Int(5)\nValue::Ptr(0x5)\n", stdout)

	code, _, stderr = runCLI(t, "decode", "--union", "Value", "--hex", "0500", root)
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "Value expects 4 bytes, got 2")

	code, _, stderr = runCLI(t, "decode", "--union", "Missing", "--hex", "00", root)
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "no untagged union named Missing")
}

func TestDecodeReportsInvalidBitPatterns(t *testing.T) {
	root := writeProject(t, "name: app\n", `
#[unsafe_enum]
enum Bits {
    Flag(bool),
    Byte(u8),
    Pair { lo: u8 },
}
`)
	code, stdout, stderr := runCLI(t, "decode", "--union", "Bits", "--hex", "02", root)
	require.Equal(t, 0, code, stderr)
	require.Contains(t, stdout, "Bits::Flag: runtime: Bits::Flag.0: runtime: invalid bit pattern: 0x2 is not a bool\n")
	require.Contains(t, stdout, "Bits::Byte(2)\n")
	require.Contains(t, stdout, "Bits::Pair { lo: 2 }\n")
}
