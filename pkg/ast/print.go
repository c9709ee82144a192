package ast

import (
	"fmt"
	"strings"
)

// Describe renders a pattern back to host syntax for diagnostics.
func Describe(pattern Pattern) string {
	var b strings.Builder
	writePattern(&b, pattern)
	return b.String()
}

func writePattern(b *strings.Builder, pattern Pattern) {
	switch p := pattern.(type) {
	case nil:
		b.WriteString("<nil>")
	case *WildcardPattern:
		b.WriteString("_")
	case *RestPattern:
		b.WriteString("..")
	case *Identifier:
		b.WriteString(p.Name)
	case *LiteralPattern:
		b.WriteString(DescribeLiteral(p.Literal))
	case *RangePattern:
		if p.Start != nil {
			b.WriteString(DescribeLiteral(p.Start))
		}
		if p.Inclusive {
			b.WriteString("..=")
		} else {
			b.WriteString("..")
		}
		if p.End != nil {
			b.WriteString(DescribeLiteral(p.End))
		}
	case *BindingPattern:
		if p.ByRef {
			b.WriteString("ref ")
		}
		if p.Mutable {
			b.WriteString("mut ")
		}
		if p.Name != nil {
			b.WriteString(p.Name.Name)
		}
		if p.Subpattern != nil {
			b.WriteString(" @ ")
			writePattern(b, p.Subpattern)
		}
	case *StructPattern:
		b.WriteString(joinPath(p.Path))
		switch {
		case p.IsUnit:
		case p.IsPositional:
			b.WriteString("(")
			for i, el := range p.Elements {
				if i > 0 {
					b.WriteString(", ")
				}
				writePattern(b, el)
			}
			b.WriteString(")")
		default:
			b.WriteString(" { ")
			for i, f := range p.Fields {
				if i > 0 {
					b.WriteString(", ")
				}
				if f.FieldName != nil {
					b.WriteString(f.FieldName.Name)
				}
				if id, ok := f.Pattern.(*Identifier); ok && f.FieldName != nil && id.Name == f.FieldName.Name {
					continue
				}
				b.WriteString(": ")
				writePattern(b, f.Pattern)
			}
			if p.HasRest {
				if len(p.Fields) > 0 {
					b.WriteString(", ")
				}
				b.WriteString("..")
			}
			b.WriteString(" }")
		}
	case *TuplePattern:
		b.WriteString("(")
		for i, el := range p.Elements {
			if i > 0 {
				b.WriteString(", ")
			}
			writePattern(b, el)
		}
		b.WriteString(")")
	case *ReferencePattern:
		b.WriteString("&")
		if p.Mutable {
			b.WriteString("mut ")
		}
		writePattern(b, p.Inner)
	case *OrPattern:
		for i, alt := range p.Alternatives {
			if i > 0 {
				b.WriteString(" | ")
			}
			writePattern(b, alt)
		}
	default:
		b.WriteString(string(pattern.NodeType()))
	}
}

// DescribeLiteral renders a literal value.
func DescribeLiteral(lit Literal) string {
	switch l := lit.(type) {
	case *IntegerLiteral:
		if l.Value == nil {
			return "0" + l.Suffix
		}
		return l.Value.String() + l.Suffix
	case *FloatLiteral:
		return fmt.Sprintf("%g%s", l.Value, l.Suffix)
	case *BooleanLiteral:
		if l.Value {
			return "true"
		}
		return "false"
	case *StringLiteral:
		return fmt.Sprintf("%q", l.Value)
	case *CharLiteral:
		return "'" + l.Value + "'"
	case nil:
		return "<nil>"
	default:
		return string(lit.NodeType())
	}
}

// DescribeType renders a type expression.
func DescribeType(expr TypeExpression) string {
	switch t := expr.(type) {
	case nil:
		return "<nil>"
	case *SimpleTypeExpression:
		if t.Name == nil {
			return "<unnamed>"
		}
		return t.Name.Name
	case *GenericTypeExpression:
		args := make([]string, len(t.Arguments))
		for i, a := range t.Arguments {
			args[i] = DescribeType(a)
		}
		return DescribeType(t.Base) + "<" + strings.Join(args, ", ") + ">"
	case *PointerTypeExpression:
		if t.Mutable {
			return "*mut " + DescribeType(t.Inner)
		}
		return "*const " + DescribeType(t.Inner)
	case *ReferenceTypeExpression:
		if t.Mutable {
			return "&mut " + DescribeType(t.Inner)
		}
		return "&" + DescribeType(t.Inner)
	case *ArrayTypeExpression:
		if t.Length == nil {
			return "[" + DescribeType(t.Element) + "]"
		}
		return "[" + DescribeType(t.Element) + "; " + DescribeLiteral(t.Length) + "]"
	case *TupleTypeExpression:
		parts := make([]string, len(t.Elements))
		for i, el := range t.Elements {
			parts[i] = DescribeType(el)
		}
		if len(parts) == 1 {
			return "(" + parts[0] + ",)"
		}
		return "(" + strings.Join(parts, ", ") + ")"
	default:
		return string(expr.NodeType())
	}
}

func joinPath(path []*Identifier) string {
	parts := make([]string, 0, len(path))
	for _, seg := range path {
		if seg != nil {
			parts = append(parts, seg.Name)
		}
	}
	return strings.Join(parts, "::")
}
