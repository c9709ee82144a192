package parser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"untagged/checker-go/pkg/ast"
)

func parseSource(t *testing.T, source string) *ast.Module {
	t.Helper()
	p, err := NewModuleParser()
	require.NoError(t, err)
	defer p.Close()

	mod, err := p.ParseModule([]byte(source))
	require.NoError(t, err)
	require.NotNil(t, mod)
	return mod
}

func TestParseUnsafeEnumDeclaration(t *testing.T) {
	mod := parseSource(t, `
#[unsafe_enum]
#[repr(C, align(8))]
#[derive(Clone, Copy)]
pub enum Value {
    Int(i32),
    Pair(u8, u16),
    Point { x: f32, y: f32 },
    Empty,
}
`)
	require.Len(t, mod.Body, 1)
	def, ok := mod.Body[0].(*ast.UnionDefinition)
	require.True(t, ok, "expected union definition, got %T", mod.Body[0])
	require.Equal(t, "Value", def.ID.Name)
	require.False(t, def.Native)
	require.True(t, def.IsPublic)
	require.True(t, ast.HasAttribute(def.Attributes, "unsafe_enum"))

	require.Len(t, def.Attributes, 3)
	require.Equal(t, "repr", def.Attributes[1].Name)
	require.Equal(t, []string{"C", "align(8)"}, def.Attributes[1].Arguments)
	require.Equal(t, []string{"Clone", "Copy"}, def.Attributes[2].Arguments)

	require.Len(t, def.Variants, 4)
	require.Equal(t, ast.FieldKindPositional, def.Variants[0].Kind)
	require.Equal(t, "i32", ast.DescribeType(def.Variants[0].Fields[0].Type))
	require.Len(t, def.Variants[1].Fields, 2)
	require.Equal(t, ast.FieldKindNamed, def.Variants[2].Kind)
	require.Equal(t, "y", def.Variants[2].Fields[1].Name.Name)
	require.Equal(t, ast.FieldKindUnit, def.Variants[3].Kind)

	span := def.Span()
	require.Equal(t, 5, span.Start.Line)
}

func TestParseNativeUnionAndTaggedEnum(t *testing.T) {
	mod := parseSource(t, `
union Bits { i: u32, f: f32 }
enum Shape { Circle(f64), Square(f64) }
struct Pair(u8, u8);
struct Unit;
`)
	require.Len(t, mod.Body, 4)

	bits, ok := mod.Body[0].(*ast.UnionDefinition)
	require.True(t, ok)
	require.True(t, bits.Native)
	require.Len(t, bits.Variants, 2)
	require.Equal(t, "f", bits.Variants[1].ID.Name)
	require.Equal(t, ast.FieldKindPositional, bits.Variants[1].Kind)
	require.Equal(t, "f32", ast.DescribeType(bits.Variants[1].Fields[0].Type))

	shape, ok := mod.Body[1].(*ast.EnumDefinition)
	require.True(t, ok)
	require.Len(t, shape.Variants, 2)

	pair, ok := mod.Body[2].(*ast.StructDefinition)
	require.True(t, ok)
	require.Equal(t, ast.FieldKindPositional, pair.Kind)
	require.Len(t, pair.Fields, 2)

	unit, ok := mod.Body[3].(*ast.StructDefinition)
	require.True(t, ok)
	require.Equal(t, ast.FieldKindUnit, unit.Kind)
}

func TestParseTypes(t *testing.T) {
	mod := parseSource(t, `
#[unsafe_enum]
enum Payload {
    Raw(*mut u8),
    Shared(&'static str),
    Buf([u8; 16]),
    Boxed(std::boxed::Box<u64>),
    Held(ManuallyDrop<String>),
    Pair((i8, bool)),
    Nothing(()),
}
`)
	def := mod.Body[0].(*ast.UnionDefinition)
	want := []string{"*mut u8", "&str", "[u8; 16]", "Box<u64>", "ManuallyDrop<String>", "(i8, bool)", "()"}
	require.Len(t, def.Variants, len(want))
	for i, w := range want {
		require.Equal(t, w, ast.DescribeType(def.Variants[i].Fields[0].Type), "variant %d", i)
	}
}

func TestParseMatchWithGuardsAndWildcard(t *testing.T) {
	mod := parseSource(t, `
fn read(v: Value) -> i32 {
    unsafe {
        match v {
            Value::Int(0) => 0,
            Value::Int(n) if n > 10 => n,
            Value::Point { x, y: _, .. } => 1,
            Value::Empty | Value::Pair(..) => 2,
            _ => 3,
        }
    }
}
`)
	fn, ok := mod.Body[0].(*ast.FunctionDefinition)
	require.True(t, ok)
	require.Len(t, fn.Params, 1)
	require.Equal(t, "Value", ast.DescribeType(fn.Params[0].Type))

	block, ok := fn.Body.Body[0].(*ast.UnsafeBlockExpression)
	require.True(t, ok, "got %T", fn.Body.Body[0])
	match, ok := block.Block.Body[0].(*ast.MatchExpression)
	require.True(t, ok, "got %T", block.Block.Body[0])
	require.Len(t, match.Clauses, 5)

	require.Equal(t, "Value::Int(0)", ast.Describe(match.Clauses[0].Pattern))
	require.Nil(t, match.Clauses[0].Guard)
	require.NotNil(t, match.Clauses[1].Guard)
	require.Equal(t, "Value::Point { x, y: _, .. }", ast.Describe(match.Clauses[2].Pattern))

	or, ok := match.Clauses[3].Pattern.(*ast.OrPattern)
	require.True(t, ok)
	require.Len(t, or.Alternatives, 2)
	unit, ok := or.Alternatives[0].(*ast.StructPattern)
	require.True(t, ok)
	require.True(t, unit.IsUnit)

	_, ok = match.Clauses[4].Pattern.(*ast.WildcardPattern)
	require.True(t, ok)
}

func TestParseLetFormsAndConditions(t *testing.T) {
	mod := parseSource(t, `
unsafe fn f(u: Value) {
    let Value::Int(x) = u;
    let Value::Int(y) = u else { return; };
    if let Value::Int(z) = u { }
    while let Value::Int(w) = u { break; }
    let mut count: u32 = 0xffu32;
    let r = &mut count;
}
`)
	fn := mod.Body[0].(*ast.FunctionDefinition)
	require.True(t, fn.IsUnsafe)
	stmts := fn.Body.Body
	require.Len(t, stmts, 6)

	plain := stmts[0].(*ast.LetStatement)
	require.Nil(t, plain.Else)
	require.Equal(t, "Value::Int(x)", ast.Describe(plain.Pattern))

	withElse := stmts[1].(*ast.LetStatement)
	require.NotNil(t, withElse.Else)

	ifLet := stmts[2].(*ast.IfExpression)
	cond, ok := ifLet.Condition.(*ast.LetCondition)
	require.True(t, ok)
	require.Equal(t, "Value::Int(z)", ast.Describe(cond.Pattern))

	loop := stmts[3].(*ast.WhileLoop)
	_, ok = loop.Condition.(*ast.LetCondition)
	require.True(t, ok)

	counter := stmts[4].(*ast.LetStatement)
	binding, ok := counter.Pattern.(*ast.BindingPattern)
	require.True(t, ok)
	require.True(t, binding.Mutable)
	lit := counter.Value.(*ast.IntegerLiteral)
	require.Equal(t, "u32", lit.Suffix)
	require.Equal(t, int64(255), lit.Value.Int64())

	ref := stmts[5].(*ast.LetStatement)
	un := ref.Value.(*ast.UnaryExpression)
	require.Equal(t, "&mut", un.Operator)
}

func TestParseImplsAndUses(t *testing.T) {
	mod := parseSource(t, `
use std::mem::ManuallyDrop;
use crate::shapes::{Shape, Bits as B};
unsafe impl Send for Value {}
impl !Sync for Value {}
impl Drop for Value {
    fn drop(&mut self) {}
}
`)
	require.Len(t, mod.Body, 6)

	use0 := mod.Body[0].(*ast.UseDeclaration)
	require.Len(t, use0.Path, 3)
	require.Equal(t, "ManuallyDrop", use0.Path[2].Name)
	use1 := mod.Body[1].(*ast.UseDeclaration)
	require.Equal(t, "crate", use1.Path[0].Name)
	require.Equal(t, "Shape", use1.Path[2].Name)
	use2 := mod.Body[2].(*ast.UseDeclaration)
	require.Equal(t, "Bits", use2.Path[2].Name)

	send := mod.Body[3].(*ast.ImplementationDefinition)
	require.True(t, send.IsUnsafe)
	require.False(t, send.Negative)
	require.Equal(t, "Send", send.Trait.Name)

	sync := mod.Body[4].(*ast.ImplementationDefinition)
	require.True(t, sync.Negative)

	drop := mod.Body[5].(*ast.ImplementationDefinition)
	require.Len(t, drop.Methods, 1)
	require.Equal(t, "&mut Self", ast.DescribeType(drop.Methods[0].Params[0].Type))
}

func TestParseConstructionsAndFieldAccess(t *testing.T) {
	mod := parseSource(t, `
fn build() {
    let a = Value::Int(-5);
    let b = Bits { f: 1.5f32 };
    let c = unsafe { b.i };
}
`)
	stmts := mod.Body[0].(*ast.FunctionDefinition).Body.Body
	call := stmts[0].(*ast.LetStatement).Value.(*ast.FunctionCall)
	path, ok := call.Callee.(*ast.PathExpression)
	require.True(t, ok)
	require.Equal(t, "Int", path.Last().Name)

	lit := stmts[1].(*ast.LetStatement).Value.(*ast.StructLiteral)
	require.Len(t, lit.Fields, 1)
	require.Equal(t, "f", lit.Fields[0].Name.Name)
	flt := lit.Fields[0].Value.(*ast.FloatLiteral)
	require.Equal(t, "f32", flt.Suffix)

	unsafeBlock := stmts[2].(*ast.LetStatement).Value.(*ast.UnsafeBlockExpression)
	member := unsafeBlock.Block.Body[0].(*ast.MemberAccessExpression)
	require.Equal(t, "i", member.Member.Name)
}

func TestParseSyntaxErrorReportsLocation(t *testing.T) {
	p, err := NewModuleParser()
	require.NoError(t, err)
	defer p.Close()

	_, err = p.ParseModule([]byte("enum Broken {\n    A(i32,\n"))
	require.Error(t, err)
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	require.Contains(t, parseErr.Message, "syntax error")
	require.Greater(t, parseErr.Location.Line, 0)
}

func TestSplitTopLevelArguments(t *testing.T) {
	require.Equal(t, []string{"C", "align(16)"}, splitTopLevel("C, align( 16 )"))
	require.Equal(t, []string{"Copy"}, splitTopLevel(" Copy "))
	require.Empty(t, splitTopLevel(""))
}

func TestSplitIntegerSuffix(t *testing.T) {
	cases := map[string][2]string{
		"255u8":    {"255", "u8"},
		"1_000i64": {"1_000", "i64"},
		"0x1F":     {"0x1F", ""},
		"7usize":   {"7", "usize"},
		"42":       {"42", ""},
	}
	for raw, want := range cases {
		digits, suffix := splitIntegerSuffix(raw)
		require.Equal(t, want[0], digits, raw)
		require.Equal(t, want[1], suffix, raw)
	}
	v, ok := parseIntegerDigits("0b1010")
	require.True(t, ok)
	require.Equal(t, int64(10), v.Int64())
	v, ok = parseIntegerDigits("007")
	require.True(t, ok)
	require.Equal(t, int64(7), v.Int64())
}
