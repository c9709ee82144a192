package runtime

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"untagged/checker-go/pkg/ast"
	"untagged/checker-go/pkg/typechecker"
)

func layoutFor(t *testing.T, def *ast.UnionDefinition) *typechecker.LayoutDescriptor {
	t.Helper()
	checker := typechecker.New()
	diags, err := checker.CheckModule(ast.Mod(def))
	require.NoError(t, err)
	for _, d := range diags {
		require.False(t, d.IsError(), "unexpected diagnostic: %s", d.Message)
	}
	layout, ok := checker.Layout(def.ID.Name)
	require.True(t, ok)
	return layout
}

func TestReinterpretFloatBitsAsInteger(t *testing.T) {
	layout := layoutFor(t, ast.NativeUnionDef("Bits", nil,
		ast.Field("i", ast.Ty("u32")),
		ast.Field("f", ast.Ty("f32")),
	))
	require.Equal(t, 4, layout.Size)

	s, err := Construct(layout, "f", Float(1.0))
	require.NoError(t, err)
	require.Equal(t, 4, s.Size())

	bits, err := s.UnsafeField("i", "0")
	require.NoError(t, err)
	require.Equal(t, Uint(0x3f800000), bits)

	require.NoError(t, s.Set("i", "0", Uint(0x40490fdb)))
	pi, err := s.UnsafeRead("f")
	require.NoError(t, err)
	require.Len(t, pi, 1)
	require.InDelta(t, 3.14159, pi[0].Float, 1e-5)
}

func TestFixedLayoutOverlapsVariants(t *testing.T) {
	layout := layoutFor(t, ast.UnionDef("Value", []*ast.Attribute{ast.ReprC()},
		ast.Variant("Int", ast.Ty("i32")),
		ast.Variant("Pair", ast.Ty("u8"), ast.Ty("u16")),
		ast.Variant("Wide", ast.Ty("i128")),
	))
	require.Equal(t, 16, layout.Size)
	require.Equal(t, 16, layout.Align)

	s, err := Construct(layout, "Pair", Uint(1), Uint(0x0203))
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x00, 0x03, 0x02}, s.Bytes()[:4])

	asInt, err := s.UnsafeField("Int", "0")
	require.NoError(t, err)
	require.Equal(t, Int(0x02030001), asInt)

	wide, err := Construct(layout, "Wide", Int(-2))
	require.NoError(t, err)
	for _, b := range wide.Bytes()[8:] {
		require.Equal(t, byte(0xff), b)
	}
	low, err := wide.UnsafeField("Int", "0")
	require.NoError(t, err)
	require.Equal(t, int64(-2), low.Int)
}

func TestConstructReportsEveryMismatch(t *testing.T) {
	layout := &typechecker.LayoutDescriptor{
		Union: "Value",
		Size:  4,
		Align: 2,
		Variants: []typechecker.VariantLayout{{
			Name: "Pair",
			Size: 4,
			Fields: []typechecker.FieldLayout{
				{Name: "0", Type: "u8", Kind: typechecker.ScalarUint, Offset: 0, Size: 1, Align: 1},
				{Name: "1", Type: "u16", Kind: typechecker.ScalarUint, Offset: 2, Size: 2, Align: 2},
			},
		}},
	}

	_, err := Construct(layout, "Pair", Float(1), Bool(true))
	require.Error(t, err)
	require.Len(t, multierr.Errors(err), 2)
	require.True(t, errors.Is(err, ErrKindMismatch))

	_, err = Construct(layout, "Pair", Uint(1))
	require.ErrorIs(t, err, ErrArity)

	_, err = Construct(layout, "Missing")
	require.ErrorIs(t, err, ErrUnknownVariant)

	s, err := New(layout)
	require.NoError(t, err)
	_, err = s.UnsafeField("Pair", "2")
	require.ErrorIs(t, err, ErrUnknownField)

	_, err = New(nil)
	require.ErrorIs(t, err, ErrNoLayout)
}

func TestInvalidBitPatterns(t *testing.T) {
	layout := layoutFor(t, ast.NativeUnionDef("Flag", nil,
		ast.Field("b", ast.Ty("bool")),
		ast.Field("n", ast.Ty("u8")),
	))
	s, err := Construct(layout, "n", Uint(2))
	require.NoError(t, err)
	_, err = s.UnsafeField("b", "0")
	require.ErrorIs(t, err, ErrInvalidBitPattern)

	require.NoError(t, s.Set("n", "0", Uint(1)))
	flag, err := s.UnsafeField("b", "0")
	require.NoError(t, err)
	require.True(t, flag.Bool)

	chars := layoutFor(t, ast.NativeUnionDef("Glyph", nil,
		ast.Field("c", ast.Ty("char")),
		ast.Field("n", ast.Ty("u32")),
	))
	g, err := Construct(chars, "n", Uint(0xD800))
	require.NoError(t, err)
	_, err = g.UnsafeField("c", "0")
	require.ErrorIs(t, err, ErrInvalidBitPattern)

	g, err = Construct(chars, "c", Char('λ'))
	require.NoError(t, err)
	code, err := g.UnsafeField("n", "0")
	require.NoError(t, err)
	require.Equal(t, uint64('λ'), code.Uint)
}

func TestFromBytesChecksSize(t *testing.T) {
	layout := layoutFor(t, ast.NativeUnionDef("Bits", nil,
		ast.Field("i", ast.Ty("u32")),
		ast.Field("f", ast.Ty("f32")),
	))
	_, err := FromBytes(layout, []byte{1, 2})
	require.Error(t, err)

	raw := []byte{0, 0, 0x80, 0x3f}
	s, err := FromBytes(layout, raw)
	require.NoError(t, err)
	raw[0] = 0xff
	f, err := s.UnsafeField("f", "0")
	require.NoError(t, err)
	require.Equal(t, 1.0, f.Float)
	require.Equal(t, "1", f.String())
}
