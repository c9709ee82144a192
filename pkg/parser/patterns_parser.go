package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"untagged/checker-go/pkg/ast"
)

func (ctx *parseContext) parsePattern(node *sitter.Node) (ast.Pattern, error) {
	if node == nil {
		return nil, &ParseError{Message: "parser: missing pattern"}
	}
	if isLiteralKind(node.Kind()) {
		lit, err := ctx.parseLiteral(node)
		if err != nil {
			return nil, err
		}
		return annotatePattern(ast.LitP(lit), node), nil
	}
	switch node.Kind() {
	case "_":
		return annotatePattern(ast.Wc(), node), nil
	case "identifier", "self":
		id, err := ctx.identifier(node)
		if err != nil {
			return nil, err
		}
		return id, nil
	case "scoped_identifier":
		segments, err := ctx.pathSegments(node)
		if err != nil {
			return nil, wrapParseError(node, err)
		}
		return annotatePattern(ast.NewStructPattern(segments, nil, nil, false, true, false), node), nil
	case "tuple_struct_pattern":
		segments, err := ctx.pathSegments(node.ChildByFieldName("type"))
		if err != nil {
			return nil, wrapParseError(node, err)
		}
		elems, err := ctx.parsePatternList(node, "type")
		if err != nil {
			return nil, err
		}
		return annotatePattern(ast.NewStructPattern(segments, elems, nil, true, false, false), node), nil
	case "struct_pattern":
		return ctx.parseStructPattern(node)
	case "tuple_pattern":
		elems, err := ctx.parsePatternList(node, "")
		if err != nil {
			return nil, err
		}
		return annotatePattern(ast.NewTuplePattern(elems), node), nil
	case "remaining_field_pattern":
		return annotatePattern(ast.Rest(), node), nil
	case "ref_pattern":
		inner, err := ctx.parsePattern(firstPatternChild(node))
		if err != nil {
			return nil, err
		}
		return bindingFrom(inner, node, true, false), nil
	case "mut_pattern":
		inner, err := ctx.parsePattern(lastPatternChild(node))
		if err != nil {
			return nil, err
		}
		return markMutable(inner, node), nil
	case "reference_pattern":
		inner, err := ctx.parsePattern(lastPatternChild(node))
		if err != nil {
			return nil, err
		}
		return annotatePattern(ast.NewReferencePattern(inner, hasChildKind(node, "mutable_specifier")), node), nil
	case "captured_pattern":
		nameNode := firstPatternChild(node)
		name, err := ctx.identifier(nameNode)
		if err != nil {
			return nil, wrapParseError(node, err)
		}
		sub, err := ctx.parsePattern(lastPatternChild(node))
		if err != nil {
			return nil, err
		}
		return annotatePattern(ast.NewBindingPattern(name, false, false, sub), node), nil
	case "or_pattern":
		var alternatives []ast.Pattern
		for _, child := range patternChildren(node, "") {
			alt, err := ctx.parsePattern(child)
			if err != nil {
				return nil, err
			}
			if nested, ok := alt.(*ast.OrPattern); ok {
				alternatives = append(alternatives, nested.Alternatives...)
				continue
			}
			alternatives = append(alternatives, alt)
		}
		return annotatePattern(ast.NewOrPattern(alternatives), node), nil
	case "range_pattern":
		return ctx.parseRangePattern(node)
	default:
		return nil, unsupported(node, "pattern")
	}
}

func (ctx *parseContext) parseStructPattern(node *sitter.Node) (ast.Pattern, error) {
	segments, err := ctx.pathSegments(node.ChildByFieldName("type"))
	if err != nil {
		return nil, wrapParseError(node, err)
	}
	var fields []*ast.StructPatternField
	hasRest := false
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "remaining_field_pattern":
			hasRest = true
		case "field_pattern":
			field, err := ctx.parseFieldPattern(child)
			if err != nil {
				return nil, err
			}
			fields = append(fields, field)
		}
	}
	return annotatePattern(ast.NewStructPattern(segments, nil, fields, false, false, hasRest), node), nil
}

// parseFieldPattern handles `f: p` and the shorthand `ref mut f`.
func (ctx *parseContext) parseFieldPattern(node *sitter.Node) (*ast.StructPatternField, error) {
	nameNode := node.ChildByFieldName("name")
	name, err := ctx.identifier(nameNode)
	if err != nil {
		return nil, wrapParseError(node, err)
	}
	var pattern ast.Pattern
	if patternNode := node.ChildByFieldName("pattern"); patternNode != nil {
		if pattern, err = ctx.parsePattern(patternNode); err != nil {
			return nil, err
		}
	} else {
		binding := ast.ID(name.Name)
		annotateSpan(binding, nameNode)
		pattern = binding
		byRef := hasChildKind(node, "ref")
		mutable := hasChildKind(node, "mutable_specifier")
		if byRef || mutable {
			pattern = bindingFrom(binding, node, byRef, mutable)
		}
	}
	field := ast.NewStructPatternField(name, pattern)
	annotateSpan(field, node)
	return field, nil
}

// parseRangePattern reads `a..=b`, `a..`, and `..=b`. The operator position
// decides which side a lone endpoint belongs to.
func (ctx *parseContext) parseRangePattern(node *sitter.Node) (ast.Pattern, error) {
	var start, end ast.Literal
	inclusive := false
	seenOp := false
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "..=", "...":
			inclusive = true
			seenOp = true
			continue
		case "..":
			seenOp = true
			continue
		}
		if !child.IsNamed() || isIgnorableNode(child) {
			continue
		}
		if !isLiteralKind(child.Kind()) {
			return nil, unsupported(child, "range bound")
		}
		lit, err := ctx.parseLiteral(child)
		if err != nil {
			return nil, err
		}
		if seenOp {
			end = lit
		} else {
			start = lit
		}
	}
	return annotatePattern(ast.NewRangePattern(start, end, inclusive), node), nil
}

func (ctx *parseContext) parsePatternList(node *sitter.Node, skipField string) ([]ast.Pattern, error) {
	var elems []ast.Pattern
	for _, child := range patternChildren(node, skipField) {
		elem, err := ctx.parsePattern(child)
		if err != nil {
			return nil, err
		}
		elems = append(elems, elem)
	}
	return elems, nil
}

// patternChildren returns the sub-patterns of node. The wildcard `_` is an
// anonymous token in the grammar, so all children are scanned.
func patternChildren(node *sitter.Node, skipField string) []*sitter.Node {
	var out []*sitter.Node
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil || isIgnorableNode(child) || child.Kind() == "attribute_item" {
			continue
		}
		if skipField != "" && node.FieldNameForChild(uint32(i)) == skipField {
			continue
		}
		if child.IsNamed() || child.Kind() == "_" {
			out = append(out, child)
		}
	}
	return out
}

func firstPatternChild(node *sitter.Node) *sitter.Node {
	children := patternChildren(node, "")
	for _, child := range children {
		if child.Kind() != "mutable_specifier" {
			return child
		}
	}
	return nil
}

func lastPatternChild(node *sitter.Node) *sitter.Node {
	children := patternChildren(node, "")
	if len(children) == 0 {
		return nil
	}
	return children[len(children)-1]
}

func bindingFrom(inner ast.Pattern, node *sitter.Node, byRef, mutable bool) ast.Pattern {
	switch p := inner.(type) {
	case *ast.Identifier:
		return annotatePattern(ast.NewBindingPattern(p, byRef, mutable, nil), node)
	case *ast.BindingPattern:
		p.ByRef = p.ByRef || byRef
		p.Mutable = p.Mutable || mutable
		return annotatePattern(p, node)
	default:
		return inner
	}
}

func markMutable(pattern ast.Pattern, node *sitter.Node) ast.Pattern {
	return bindingFrom(pattern, node, false, true)
}
