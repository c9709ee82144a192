package runtime

import (
	"fmt"
	"strconv"

	"untagged/checker-go/pkg/typechecker"
)

// Value is a decoded scalar payload. Only the member selected by Kind is
// meaningful; pointers are carried as addresses in Uint.
type Value struct {
	Kind  typechecker.ScalarKind
	Int   int64
	Uint  uint64
	Float float64
	Bool  bool
	Char  rune
	Bytes []byte
}

func Int(v int64) Value     { return Value{Kind: typechecker.ScalarInt, Int: v} }
func Uint(v uint64) Value   { return Value{Kind: typechecker.ScalarUint, Uint: v} }
func Float(v float64) Value { return Value{Kind: typechecker.ScalarFloat, Float: v} }
func Bool(v bool) Value     { return Value{Kind: typechecker.ScalarBool, Bool: v} }
func Char(v rune) Value     { return Value{Kind: typechecker.ScalarChar, Char: v} }

func Pointer(addr uint64) Value {
	return Value{Kind: typechecker.ScalarPointer, Uint: addr}
}

// Bytes wraps the raw bytes of an aggregate payload.
func Bytes(raw []byte) Value {
	return Value{Kind: typechecker.ScalarAggregate, Bytes: raw}
}

func (v Value) String() string {
	switch v.Kind {
	case typechecker.ScalarInt:
		return strconv.FormatInt(v.Int, 10)
	case typechecker.ScalarUint:
		return strconv.FormatUint(v.Uint, 10)
	case typechecker.ScalarFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case typechecker.ScalarBool:
		return strconv.FormatBool(v.Bool)
	case typechecker.ScalarChar:
		return strconv.QuoteRune(v.Char)
	case typechecker.ScalarPointer:
		return fmt.Sprintf("%#x", v.Uint)
	default:
		return fmt.Sprintf("% x", v.Bytes)
	}
}
