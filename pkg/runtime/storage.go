package runtime

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"unicode/utf8"

	"go.uber.org/multierr"

	"untagged/checker-go/pkg/typechecker"
)

var (
	ErrNoLayout          = errors.New("runtime: missing layout descriptor")
	ErrUnknownVariant    = errors.New("runtime: unknown variant")
	ErrUnknownField      = errors.New("runtime: unknown field")
	ErrArity             = errors.New("runtime: wrong number of payload values")
	ErrKindMismatch      = errors.New("runtime: value kind does not match field")
	ErrUnsupportedWidth  = errors.New("runtime: unsupported scalar width")
	ErrInvalidBitPattern = errors.New("runtime: invalid bit pattern")
)

// Storage is the overlapping memory of one union value. Every variant is
// placed at offset 0; no discriminant is kept, so reads reinterpret whatever
// was last written.
type Storage struct {
	layout *typechecker.LayoutDescriptor
	bytes  []byte
}

// New returns zeroed storage sized by layout.
func New(layout *typechecker.LayoutDescriptor) (*Storage, error) {
	if layout == nil {
		return nil, ErrNoLayout
	}
	if layout.Size < 0 {
		return nil, fmt.Errorf("runtime: %s has negative size %d", layout.Union, layout.Size)
	}
	return &Storage{layout: layout, bytes: make([]byte, layout.Size)}, nil
}

// FromBytes wraps an existing buffer, for example one received from foreign
// code. The buffer is copied.
func FromBytes(layout *typechecker.LayoutDescriptor, raw []byte) (*Storage, error) {
	s, err := New(layout)
	if err != nil {
		return nil, err
	}
	if len(raw) != layout.Size {
		return nil, fmt.Errorf("runtime: %s expects %d bytes, got %d", layout.Union, layout.Size, len(raw))
	}
	copy(s.bytes, raw)
	return s, nil
}

// Construct builds a value of the named variant. Construction is the safe
// direction: every payload value is checked against the variant's fields and
// all problems are reported together.
func Construct(layout *typechecker.LayoutDescriptor, variant string, values ...Value) (*Storage, error) {
	s, err := New(layout)
	if err != nil {
		return nil, err
	}
	v, err := s.variant(variant)
	if err != nil {
		return nil, err
	}
	if len(values) != len(v.Fields) {
		return nil, fmt.Errorf("%w: %s::%s takes %d, got %d", ErrArity, layout.Union, variant, len(v.Fields), len(values))
	}
	var errs error
	for i, field := range v.Fields {
		errs = multierr.Append(errs, s.write(variant, field, values[i]))
	}
	if errs != nil {
		return nil, errs
	}
	return s, nil
}

func (s *Storage) Layout() *typechecker.LayoutDescriptor { return s.layout }

func (s *Storage) Size() int { return len(s.bytes) }

// Bytes returns a copy of the raw memory.
func (s *Storage) Bytes() []byte {
	out := make([]byte, len(s.bytes))
	copy(out, s.bytes)
	return out
}

// Set writes one field of variant. Bytes outside the field keep their
// previous contents.
func (s *Storage) Set(variant, field string, value Value) error {
	v, err := s.variant(variant)
	if err != nil {
		return err
	}
	fl, err := s.field(v, field)
	if err != nil {
		return err
	}
	return s.write(variant, fl, value)
}

// UnsafeRead reinterprets the storage as variant and decodes every payload
// field. Nothing records which variant was written, so the caller vouches
// for the choice.
func (s *Storage) UnsafeRead(variant string) ([]Value, error) {
	v, err := s.variant(variant)
	if err != nil {
		return nil, err
	}
	values := make([]Value, 0, len(v.Fields))
	for _, field := range v.Fields {
		value, err := s.read(variant, field)
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, nil
}

// UnsafeField reinterprets a single payload field of variant.
func (s *Storage) UnsafeField(variant, field string) (Value, error) {
	v, err := s.variant(variant)
	if err != nil {
		return Value{}, err
	}
	fl, err := s.field(v, field)
	if err != nil {
		return Value{}, err
	}
	return s.read(variant, fl)
}

func (s *Storage) variant(name string) (typechecker.VariantLayout, error) {
	v, ok := s.layout.Variant(name)
	if !ok {
		return typechecker.VariantLayout{}, fmt.Errorf("%w: %s::%s", ErrUnknownVariant, s.layout.Union, name)
	}
	return v, nil
}

func (s *Storage) field(v typechecker.VariantLayout, name string) (typechecker.FieldLayout, error) {
	for _, f := range v.Fields {
		if f.Name == name {
			return f, nil
		}
	}
	return typechecker.FieldLayout{}, fmt.Errorf("%w: %s::%s.%s", ErrUnknownField, s.layout.Union, v.Name, name)
}

func (s *Storage) window(variant string, f typechecker.FieldLayout) ([]byte, error) {
	end := f.Offset + f.Size
	if f.Offset < 0 || end > len(s.bytes) {
		return nil, fmt.Errorf("runtime: %s::%s.%s spans bytes %d..%d outside size %d", s.layout.Union, variant, f.Name, f.Offset, end, len(s.bytes))
	}
	return s.bytes[f.Offset:end], nil
}

func (s *Storage) write(variant string, f typechecker.FieldLayout, value Value) error {
	buf, err := s.window(variant, f)
	if err != nil {
		return err
	}
	if err := encode(buf, f.Kind, value); err != nil {
		return fmt.Errorf("runtime: %s::%s.%s: %w", s.layout.Union, variant, f.Name, err)
	}
	return nil
}

func (s *Storage) read(variant string, f typechecker.FieldLayout) (Value, error) {
	buf, err := s.window(variant, f)
	if err != nil {
		return Value{}, err
	}
	value, err := decode(buf, f.Kind)
	if err != nil {
		return Value{}, fmt.Errorf("runtime: %s::%s.%s: %w", s.layout.Union, variant, f.Name, err)
	}
	return value, nil
}

func encode(buf []byte, kind typechecker.ScalarKind, v Value) error {
	if v.Kind != kind {
		return fmt.Errorf("%w: cannot store %s in %s field", ErrKindMismatch, v.Kind, kind)
	}
	switch kind {
	case typechecker.ScalarInt:
		var high uint64
		if v.Int < 0 {
			high = math.MaxUint64
		}
		return putUint(buf, uint64(v.Int), high)
	case typechecker.ScalarUint, typechecker.ScalarPointer:
		return putUint(buf, v.Uint, 0)
	case typechecker.ScalarFloat:
		switch len(buf) {
		case 4:
			binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(v.Float)))
		case 8:
			binary.LittleEndian.PutUint64(buf, math.Float64bits(v.Float))
		default:
			return fmt.Errorf("%w: float of %d bytes", ErrUnsupportedWidth, len(buf))
		}
		return nil
	case typechecker.ScalarBool:
		if len(buf) != 1 {
			return fmt.Errorf("%w: bool of %d bytes", ErrUnsupportedWidth, len(buf))
		}
		buf[0] = 0
		if v.Bool {
			buf[0] = 1
		}
		return nil
	case typechecker.ScalarChar:
		if !utf8.ValidRune(v.Char) {
			return fmt.Errorf("%w: %#x is not a char", ErrInvalidBitPattern, v.Char)
		}
		return putUint(buf, uint64(v.Char), 0)
	default:
		if len(v.Bytes) != len(buf) {
			return fmt.Errorf("runtime: aggregate needs %d bytes, got %d", len(buf), len(v.Bytes))
		}
		copy(buf, v.Bytes)
		return nil
	}
}

func decode(buf []byte, kind typechecker.ScalarKind) (Value, error) {
	switch kind {
	case typechecker.ScalarInt:
		u, err := getUint(buf)
		if err != nil {
			return Value{}, err
		}
		width := len(buf)
		if width > 8 {
			width = 8
		}
		shift := uint(64 - 8*width)
		return Int(int64(u<<shift) >> shift), nil
	case typechecker.ScalarUint:
		u, err := getUint(buf)
		if err != nil {
			return Value{}, err
		}
		return Uint(u), nil
	case typechecker.ScalarPointer:
		u, err := getUint(buf)
		if err != nil {
			return Value{}, err
		}
		return Pointer(u), nil
	case typechecker.ScalarFloat:
		switch len(buf) {
		case 4:
			return Float(float64(math.Float32frombits(binary.LittleEndian.Uint32(buf)))), nil
		case 8:
			return Float(math.Float64frombits(binary.LittleEndian.Uint64(buf))), nil
		default:
			return Value{}, fmt.Errorf("%w: float of %d bytes", ErrUnsupportedWidth, len(buf))
		}
	case typechecker.ScalarBool:
		if len(buf) != 1 {
			return Value{}, fmt.Errorf("%w: bool of %d bytes", ErrUnsupportedWidth, len(buf))
		}
		switch buf[0] {
		case 0:
			return Bool(false), nil
		case 1:
			return Bool(true), nil
		default:
			return Value{}, fmt.Errorf("%w: %#x is not a bool", ErrInvalidBitPattern, buf[0])
		}
	case typechecker.ScalarChar:
		u, err := getUint(buf)
		if err != nil {
			return Value{}, err
		}
		r := rune(u)
		if u > math.MaxInt32 || !utf8.ValidRune(r) {
			return Value{}, fmt.Errorf("%w: %#x is not a char", ErrInvalidBitPattern, u)
		}
		return Char(r), nil
	default:
		raw := make([]byte, len(buf))
		copy(raw, buf)
		return Bytes(raw), nil
	}
}

// putUint stores the low 64 bits of a scalar. 16-byte integers fill their
// upper half with high.
func putUint(buf []byte, low, high uint64) error {
	switch len(buf) {
	case 1:
		buf[0] = byte(low)
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(low))
	case 4:
		binary.LittleEndian.PutUint32(buf, uint32(low))
	case 8:
		binary.LittleEndian.PutUint64(buf, low)
	case 16:
		binary.LittleEndian.PutUint64(buf[:8], low)
		binary.LittleEndian.PutUint64(buf[8:], high)
	default:
		return fmt.Errorf("%w: integer of %d bytes", ErrUnsupportedWidth, len(buf))
	}
	return nil
}

// getUint reads the low 64 bits of a scalar.
func getUint(buf []byte) (uint64, error) {
	switch len(buf) {
	case 1:
		return uint64(buf[0]), nil
	case 2:
		return uint64(binary.LittleEndian.Uint16(buf)), nil
	case 4:
		return uint64(binary.LittleEndian.Uint32(buf)), nil
	case 8, 16:
		return binary.LittleEndian.Uint64(buf[:8]), nil
	default:
		return 0, fmt.Errorf("%w: integer of %d bytes", ErrUnsupportedWidth, len(buf))
	}
}
