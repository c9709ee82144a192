package parser

import (
	"math/big"
	"strconv"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"untagged/checker-go/pkg/ast"
)

var integerSuffixes = []string{
	"i128", "u128", "isize", "usize",
	"i64", "u64", "i32", "u32", "i16", "u16", "i8", "u8",
}

func (ctx *parseContext) parseIntegerLiteral(node *sitter.Node) (*ast.IntegerLiteral, error) {
	raw := strings.TrimSpace(ctx.text(node))
	digits, suffix := splitIntegerSuffix(raw)
	value, ok := parseIntegerDigits(digits)
	if !ok {
		return nil, &ParseError{
			Message:  "parser: invalid integer literal " + strconv.Quote(raw),
			Location: locationForNode(node),
		}
	}
	lit := ast.NewIntegerLiteral(value, suffix)
	annotateSpan(lit, node)
	return lit, nil
}

func parseIntegerDigits(digits string) (*big.Int, bool) {
	lower := strings.ToLower(digits)
	if len(digits) > 2 && (strings.HasPrefix(lower, "0x") || strings.HasPrefix(lower, "0o") || strings.HasPrefix(lower, "0b")) {
		return new(big.Int).SetString(lower[:2]+strings.ReplaceAll(digits[2:], "_", ""), 0)
	}
	return new(big.Int).SetString(strings.ReplaceAll(digits, "_", ""), 10)
}

// splitIntegerSuffix separates `255u8` into digits and suffix. Hex literals
// keep trailing hex digits that only look like a suffix.
func splitIntegerSuffix(raw string) (string, string) {
	isHex := strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X")
	for _, suffix := range integerSuffixes {
		if !strings.HasSuffix(raw, suffix) {
			continue
		}
		digits := raw[:len(raw)-len(suffix)]
		if digits == "" || (isHex && len(digits) <= 2) {
			continue
		}
		return digits, suffix
	}
	return raw, ""
}

func (ctx *parseContext) parseFloatLiteral(node *sitter.Node) (*ast.FloatLiteral, error) {
	raw := strings.TrimSpace(ctx.text(node))
	suffix := ""
	for _, s := range []string{"f32", "f64"} {
		if strings.HasSuffix(raw, s) {
			suffix = s
			raw = raw[:len(raw)-len(s)]
			break
		}
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(raw, "_", ""), 64)
	if err != nil {
		return nil, &ParseError{
			Message:  "parser: invalid float literal " + strconv.Quote(raw),
			Location: locationForNode(node),
		}
	}
	lit := ast.NewFloatLiteral(value, suffix)
	annotateSpan(lit, node)
	return lit, nil
}

// parseLiteral handles literal nodes shared by expressions and patterns.
func (ctx *parseContext) parseLiteral(node *sitter.Node) (ast.Literal, error) {
	switch node.Kind() {
	case "integer_literal":
		return ctx.parseIntegerLiteral(node)
	case "float_literal":
		return ctx.parseFloatLiteral(node)
	case "boolean_literal":
		lit := ast.NewBooleanLiteral(strings.TrimSpace(ctx.text(node)) == "true")
		annotateSpan(lit, node)
		return lit, nil
	case "char_literal":
		raw := strings.TrimSpace(ctx.text(node))
		raw = strings.TrimPrefix(raw, "b")
		lit := ast.NewCharLiteral(strings.TrimSuffix(strings.TrimPrefix(raw, "'"), "'"))
		annotateSpan(lit, node)
		return lit, nil
	case "string_literal", "raw_string_literal":
		var b strings.Builder
		for i := uint(0); i < node.NamedChildCount(); i++ {
			child := node.NamedChild(i)
			if child == nil {
				continue
			}
			switch child.Kind() {
			case "string_content", "escape_sequence":
				b.WriteString(ctx.text(child))
			}
		}
		lit := ast.NewStringLiteral(b.String())
		annotateSpan(lit, node)
		return lit, nil
	case "negative_literal":
		inner := firstNamedChild(node)
		if inner == nil {
			return nil, unsupported(node, "literal")
		}
		lit, err := ctx.parseLiteral(inner)
		if err != nil {
			return nil, err
		}
		switch l := lit.(type) {
		case *ast.IntegerLiteral:
			l.Value = new(big.Int).Neg(l.Value)
		case *ast.FloatLiteral:
			l.Value = -l.Value
		default:
			return nil, unsupported(node, "literal")
		}
		annotateSpan(lit, node)
		return lit, nil
	default:
		return nil, unsupported(node, "literal")
	}
}

func isLiteralKind(kind string) bool {
	switch kind {
	case "integer_literal", "float_literal", "boolean_literal", "char_literal",
		"string_literal", "raw_string_literal", "negative_literal":
		return true
	}
	return false
}
