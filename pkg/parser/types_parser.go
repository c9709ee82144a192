package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"untagged/checker-go/pkg/ast"
)

func (ctx *parseContext) parseType(node *sitter.Node) (ast.TypeExpression, error) {
	if node == nil {
		return nil, &ParseError{Message: "parser: missing type"}
	}
	switch node.Kind() {
	case "primitive_type", "type_identifier":
		return annotateTypeExpression(ast.Ty(ctx.text(node)), node), nil
	case "scoped_type_identifier":
		segments, err := ctx.pathSegments(node)
		if err != nil {
			return nil, wrapParseError(node, err)
		}
		return annotateTypeExpression(ast.NewSimpleTypeExpression(segments[len(segments)-1]), node), nil
	case "never_type":
		return annotateTypeExpression(ast.Ty("!"), node), nil
	case "unit_type":
		return annotateTypeExpression(ast.TupleTy(), node), nil
	case "generic_type":
		segments, err := ctx.pathSegments(node.ChildByFieldName("type"))
		if err != nil {
			return nil, wrapParseError(node, err)
		}
		base := ast.NewSimpleTypeExpression(segments[len(segments)-1])
		annotateSpan(base, node.ChildByFieldName("type"))
		var args []ast.TypeExpression
		if argsNode := node.ChildByFieldName("type_arguments"); argsNode != nil {
			for i := uint(0); i < argsNode.NamedChildCount(); i++ {
				child := argsNode.NamedChild(i)
				if child == nil || child.Kind() == "lifetime" || isIgnorableNode(child) {
					continue
				}
				arg, err := ctx.parseType(child)
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
			}
		}
		return annotateTypeExpression(ast.NewGenericTypeExpression(base, args), node), nil
	case "pointer_type":
		inner, err := ctx.parseType(node.ChildByFieldName("type"))
		if err != nil {
			return nil, err
		}
		return annotateTypeExpression(ast.PtrTy(inner, hasChildKind(node, "mutable_specifier")), node), nil
	case "reference_type":
		inner, err := ctx.parseType(node.ChildByFieldName("type"))
		if err != nil {
			return nil, err
		}
		return annotateTypeExpression(ast.RefTy(inner, hasChildKind(node, "mutable_specifier")), node), nil
	case "array_type":
		elem, err := ctx.parseType(node.ChildByFieldName("element"))
		if err != nil {
			return nil, err
		}
		var length *ast.IntegerLiteral
		if lengthNode := node.ChildByFieldName("length"); lengthNode != nil {
			if lengthNode.Kind() != "integer_literal" {
				return nil, &ParseError{
					Message:  "parser: array length must be an integer literal",
					Location: locationForNode(lengthNode),
				}
			}
			lit, err := ctx.parseIntegerLiteral(lengthNode)
			if err != nil {
				return nil, err
			}
			length = lit
		}
		return annotateTypeExpression(ast.NewArrayTypeExpression(elem, length), node), nil
	case "tuple_type":
		var elems []ast.TypeExpression
		for i := uint(0); i < node.NamedChildCount(); i++ {
			child := node.NamedChild(i)
			if child == nil || isIgnorableNode(child) {
				continue
			}
			elem, err := ctx.parseType(child)
			if err != nil {
				return nil, err
			}
			elems = append(elems, elem)
		}
		return annotateTypeExpression(ast.NewTupleTypeExpression(elems), node), nil
	default:
		return nil, unsupported(node, "type")
	}
}
