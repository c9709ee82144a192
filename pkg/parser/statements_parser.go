package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"untagged/checker-go/pkg/ast"
)

func (ctx *parseContext) parseBlock(node *sitter.Node) (*ast.BlockExpression, error) {
	if node == nil {
		return nil, &ParseError{Message: "parser: missing block"}
	}
	if node.Kind() != "block" {
		return nil, &ParseError{
			Message:  "parser: expected block, found " + node.Kind(),
			Location: locationForNode(node),
		}
	}
	var (
		body    = make([]ast.Statement, 0)
		pending []*ast.Attribute
	)
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil || isIgnorableNode(child) {
			continue
		}
		switch child.Kind() {
		case "label", "empty_statement":
			continue
		case "attribute_item":
			attr, err := ctx.parseAttribute(child)
			if err != nil {
				return nil, err
			}
			if attr != nil {
				pending = append(pending, attr)
			}
			continue
		case "let_declaration":
			stmt, err := ctx.parseLetDeclaration(child)
			if err != nil {
				return nil, err
			}
			body = append(body, stmt)
		case "expression_statement":
			inner := firstNamedChild(child)
			if inner == nil {
				continue
			}
			expr, err := ctx.parseExpression(inner)
			if err != nil {
				return nil, err
			}
			body = append(body, expr)
		case "enum_item", "union_item", "struct_item", "impl_item", "function_item",
			"use_declaration", "const_item", "static_item", "mod_item", "trait_item",
			"type_item", "macro_definition":
			stmts, err := ctx.parseItem(child, pending)
			if err != nil {
				return nil, err
			}
			body = append(body, stmts...)
		default:
			expr, err := ctx.parseExpression(child)
			if err != nil {
				return nil, err
			}
			body = append(body, expr)
		}
		pending = nil
	}
	block := ast.NewBlockExpression(body)
	annotateSpan(block, node)
	return block, nil
}

func (ctx *parseContext) parseLetDeclaration(node *sitter.Node) (ast.Statement, error) {
	pattern, err := ctx.parsePattern(node.ChildByFieldName("pattern"))
	if err != nil {
		return nil, err
	}
	if hasChildKind(node, "mutable_specifier") {
		pattern = markMutable(pattern, node.ChildByFieldName("pattern"))
	}
	var typ ast.TypeExpression
	if typeNode := node.ChildByFieldName("type"); typeNode != nil {
		if typ, err = ctx.parseType(typeNode); err != nil {
			return nil, err
		}
	}
	var value ast.Expression
	if valueNode := node.ChildByFieldName("value"); valueNode != nil {
		if value, err = ctx.parseExpression(valueNode); err != nil {
			return nil, err
		}
	}
	var elseBlock *ast.BlockExpression
	if altNode := node.ChildByFieldName("alternative"); altNode != nil {
		if elseBlock, err = ctx.parseBlock(altNode); err != nil {
			return nil, err
		}
	}
	stmt := ast.NewLetStatement(pattern, typ, value, elseBlock)
	annotateSpan(stmt, node)
	return stmt, nil
}
