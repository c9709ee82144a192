package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"untagged/checker-go/pkg/ast"
)

func (ctx *parseContext) parseExpression(node *sitter.Node) (ast.Expression, error) {
	if node == nil {
		return nil, &ParseError{Message: "parser: missing expression"}
	}
	if isLiteralKind(node.Kind()) {
		lit, err := ctx.parseLiteral(node)
		if err != nil {
			return nil, err
		}
		return lit, nil
	}
	switch node.Kind() {
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
		return annotateExpression(ast.NewPathExpression(segments), node), nil
	case "generic_function":
		return ctx.parseExpression(node.ChildByFieldName("function"))
	case "parenthesized_expression":
		return ctx.parseExpression(firstNamedChild(node))
	case "unit_expression":
		return annotateExpression(ast.NewTupleExpression(nil), node), nil
	case "tuple_expression":
		elems, err := ctx.parseExpressionList(node)
		if err != nil {
			return nil, err
		}
		return annotateExpression(ast.NewTupleExpression(elems), node), nil
	case "block":
		return ctx.parseBlock(node)
	case "unsafe_block":
		blockNode := firstNamedChild(node)
		block, err := ctx.parseBlock(blockNode)
		if err != nil {
			return nil, err
		}
		return annotateExpression(ast.NewUnsafeBlockExpression(block), node), nil
	case "unary_expression":
		operand, err := ctx.parseExpression(firstNamedChild(node))
		if err != nil {
			return nil, err
		}
		op := ""
		if first := node.Child(0); first != nil {
			op = ctx.text(first)
		}
		return annotateExpression(ast.Un(op, operand), node), nil
	case "reference_expression":
		value, err := ctx.parseExpression(node.ChildByFieldName("value"))
		if err != nil {
			return nil, err
		}
		op := "&"
		if hasChildKind(node, "mutable_specifier") {
			op = "&mut"
		}
		return annotateExpression(ast.Un(op, value), node), nil
	case "binary_expression":
		left, err := ctx.parseExpression(node.ChildByFieldName("left"))
		if err != nil {
			return nil, err
		}
		right, err := ctx.parseExpression(node.ChildByFieldName("right"))
		if err != nil {
			return nil, err
		}
		op := strings.TrimSpace(ctx.text(node.ChildByFieldName("operator")))
		return annotateExpression(ast.Bin(op, left, right), node), nil
	case "assignment_expression", "compound_assignment_expr":
		left, err := ctx.parseExpression(node.ChildByFieldName("left"))
		if err != nil {
			return nil, err
		}
		right, err := ctx.parseExpression(node.ChildByFieldName("right"))
		if err != nil {
			return nil, err
		}
		op := "="
		if opNode := node.ChildByFieldName("operator"); opNode != nil {
			op = strings.TrimSpace(ctx.text(opNode))
		}
		return annotateExpression(ast.NewAssignmentExpression(op, left, right), node), nil
	case "call_expression":
		callee, err := ctx.parseExpression(node.ChildByFieldName("function"))
		if err != nil {
			return nil, err
		}
		args, err := ctx.parseExpressionList(node.ChildByFieldName("arguments"))
		if err != nil {
			return nil, err
		}
		return annotateExpression(ast.NewFunctionCall(callee, args), node), nil
	case "field_expression":
		object, err := ctx.parseExpression(node.ChildByFieldName("value"))
		if err != nil {
			return nil, err
		}
		fieldNode := node.ChildByFieldName("field")
		member := ast.ID(ctx.text(fieldNode))
		annotateSpan(member, fieldNode)
		return annotateExpression(ast.NewMemberAccessExpression(object, member), node), nil
	case "struct_expression":
		return ctx.parseStructExpression(node)
	case "if_expression":
		return ctx.parseIfExpression(node)
	case "match_expression":
		return ctx.parseMatchExpression(node)
	case "while_expression":
		cond, err := ctx.parseCondition(node.ChildByFieldName("condition"))
		if err != nil {
			return nil, err
		}
		body, err := ctx.parseBlock(node.ChildByFieldName("body"))
		if err != nil {
			return nil, err
		}
		return annotateExpression(ast.NewWhileLoop(cond, body), node), nil
	case "loop_expression":
		body, err := ctx.parseBlock(node.ChildByFieldName("body"))
		if err != nil {
			return nil, err
		}
		return annotateExpression(ast.NewLoopExpression(body), node), nil
	case "return_expression":
		var arg ast.Expression
		if child := firstNamedChild(node); child != nil {
			var err error
			if arg, err = ctx.parseExpression(child); err != nil {
				return nil, err
			}
		}
		return annotateExpression(ast.NewReturnStatement(arg), node), nil
	case "break_expression":
		var value ast.Expression
		for i := uint(0); i < node.NamedChildCount(); i++ {
			child := node.NamedChild(i)
			if child == nil || child.Kind() == "label" || isIgnorableNode(child) {
				continue
			}
			var err error
			if value, err = ctx.parseExpression(child); err != nil {
				return nil, err
			}
		}
		return annotateExpression(ast.NewBreakStatement(value), node), nil
	case "let_condition", "let_chain":
		return ctx.parseCondition(node)
	case "closure_expression":
		return ctx.opaque(node, node.ChildByFieldName("body"))
	case "macro_invocation", "continue_expression", "range_expression", "index_expression",
		"type_cast_expression", "try_expression", "await_expression", "array_expression",
		"async_block", "const_block", "yield_expression", "gen_block", "try_block":
		return ctx.opaque(node, expressionChildren(node)...)
	default:
		return nil, unsupported(node, "expression")
	}
}

// opaque keeps the checkable sub-expressions of constructs the checker
// does not model.
func (ctx *parseContext) opaque(node *sitter.Node, children ...*sitter.Node) (ast.Expression, error) {
	var exprs []ast.Expression
	for _, child := range children {
		if child == nil {
			continue
		}
		expr, err := ctx.parseExpression(child)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, expr)
	}
	return annotateExpression(ast.NewOpaqueExpression(node.Kind(), exprs), node), nil
}

func expressionChildren(node *sitter.Node) []*sitter.Node {
	if node.Kind() == "macro_invocation" {
		return nil
	}
	var out []*sitter.Node
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil || isIgnorableNode(child) || !isExpressionKind(child.Kind()) {
			continue
		}
		out = append(out, child)
	}
	return out
}

func isExpressionKind(kind string) bool {
	if isLiteralKind(kind) {
		return true
	}
	switch kind {
	case "identifier", "self", "scoped_identifier", "parenthesized_expression", "unit_expression",
		"tuple_expression", "block", "unsafe_block", "unary_expression", "reference_expression",
		"binary_expression", "assignment_expression", "compound_assignment_expr", "call_expression",
		"field_expression", "struct_expression", "if_expression", "match_expression",
		"while_expression", "loop_expression", "return_expression", "break_expression",
		"closure_expression", "macro_invocation", "range_expression", "index_expression",
		"type_cast_expression", "try_expression", "await_expression", "array_expression",
		"generic_function":
		return true
	}
	return false
}

func (ctx *parseContext) parseExpressionList(node *sitter.Node) ([]ast.Expression, error) {
	if node == nil {
		return nil, nil
	}
	var out []ast.Expression
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil || isIgnorableNode(child) || child.Kind() == "attribute_item" {
			continue
		}
		expr, err := ctx.parseExpression(child)
		if err != nil {
			return nil, err
		}
		out = append(out, expr)
	}
	return out, nil
}

func (ctx *parseContext) parseStructExpression(node *sitter.Node) (ast.Expression, error) {
	nameNode := node.ChildByFieldName("name")
	segments, err := ctx.pathSegments(nameNode)
	if err != nil {
		return nil, wrapParseError(node, err)
	}
	var path ast.Expression
	if len(segments) == 1 {
		path = segments[0]
	} else {
		path = annotateExpression(ast.NewPathExpression(segments), nameNode)
	}
	var fields []*ast.StructFieldInitializer
	if body := node.ChildByFieldName("body"); body != nil {
		for i := uint(0); i < body.NamedChildCount(); i++ {
			child := body.NamedChild(i)
			if child == nil {
				continue
			}
			switch child.Kind() {
			case "shorthand_field_initializer":
				idNode := firstNamedChild(child)
				name, err := ctx.identifier(idNode)
				if err != nil {
					return nil, wrapParseError(child, err)
				}
				value := ast.ID(name.Name)
				annotateSpan(value, idNode)
				init := ast.NewStructFieldInitializer(name, value)
				annotateSpan(init, child)
				fields = append(fields, init)
			case "field_initializer":
				fieldNode := child.ChildByFieldName("field")
				name := ast.ID(ctx.text(fieldNode))
				annotateSpan(name, fieldNode)
				value, err := ctx.parseExpression(child.ChildByFieldName("value"))
				if err != nil {
					return nil, err
				}
				init := ast.NewStructFieldInitializer(name, value)
				annotateSpan(init, child)
				fields = append(fields, init)
			case "base_field_initializer":
				return nil, unsupported(child, "struct update syntax")
			}
		}
	}
	return annotateExpression(ast.NewStructLiteral(path, fields), node), nil
}

func (ctx *parseContext) parseIfExpression(node *sitter.Node) (ast.Expression, error) {
	cond, err := ctx.parseCondition(node.ChildByFieldName("condition"))
	if err != nil {
		return nil, err
	}
	consequent, err := ctx.parseBlock(node.ChildByFieldName("consequence"))
	if err != nil {
		return nil, err
	}
	var alternative ast.Expression
	if elseNode := node.ChildByFieldName("alternative"); elseNode != nil {
		inner := firstNamedChild(elseNode)
		if inner == nil {
			return nil, &ParseError{Message: "parser: empty else clause", Location: locationForNode(elseNode)}
		}
		if alternative, err = ctx.parseExpression(inner); err != nil {
			return nil, err
		}
	}
	return annotateExpression(ast.NewIfExpression(cond, consequent, alternative), node), nil
}

// parseCondition maps `let P = v` to a LetCondition and chains
// (`let P = v && c`) to `&&` binary expressions.
func (ctx *parseContext) parseCondition(node *sitter.Node) (ast.Expression, error) {
	if node == nil {
		return nil, &ParseError{Message: "parser: missing condition"}
	}
	switch node.Kind() {
	case "let_condition":
		pattern, err := ctx.parsePattern(node.ChildByFieldName("pattern"))
		if err != nil {
			return nil, err
		}
		value, err := ctx.parseExpression(node.ChildByFieldName("value"))
		if err != nil {
			return nil, err
		}
		return annotateExpression(ast.NewLetCondition(pattern, value), node), nil
	case "let_chain":
		var chain ast.Expression
		for i := uint(0); i < node.NamedChildCount(); i++ {
			child := node.NamedChild(i)
			if child == nil || isIgnorableNode(child) {
				continue
			}
			part, err := ctx.parseCondition(child)
			if err != nil {
				return nil, err
			}
			if chain == nil {
				chain = part
				continue
			}
			chain = ast.Bin("&&", chain, part)
		}
		if chain == nil {
			return nil, &ParseError{Message: "parser: empty let chain", Location: locationForNode(node)}
		}
		return annotateExpression(chain, node), nil
	default:
		return ctx.parseExpression(node)
	}
}

func (ctx *parseContext) parseMatchExpression(node *sitter.Node) (ast.Expression, error) {
	subject, err := ctx.parseExpression(node.ChildByFieldName("value"))
	if err != nil {
		return nil, err
	}
	var clauses []*ast.MatchClause
	if body := node.ChildByFieldName("body"); body != nil {
		for i := uint(0); i < body.NamedChildCount(); i++ {
			arm := body.NamedChild(i)
			if arm == nil || arm.Kind() != "match_arm" {
				continue
			}
			clause, err := ctx.parseMatchArm(arm)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, clause)
		}
	}
	return annotateExpression(ast.NewMatchExpression(subject, clauses), node), nil
}

func (ctx *parseContext) parseMatchArm(node *sitter.Node) (*ast.MatchClause, error) {
	patternNode := node.ChildByFieldName("pattern")
	if patternNode == nil {
		return nil, &ParseError{Message: "parser: match arm missing pattern", Location: locationForNode(node)}
	}
	candidates := patternChildren(patternNode, "condition")
	if len(candidates) == 0 {
		return nil, &ParseError{Message: "parser: match arm missing pattern", Location: locationForNode(patternNode)}
	}
	pattern, err := ctx.parsePattern(candidates[0])
	if err != nil {
		return nil, err
	}
	var guard ast.Expression
	if condNode := patternNode.ChildByFieldName("condition"); condNode != nil {
		if guard, err = ctx.parseCondition(condNode); err != nil {
			return nil, err
		}
	}
	body, err := ctx.parseExpression(node.ChildByFieldName("value"))
	if err != nil {
		return nil, wrapParseError(node, err)
	}
	clause := ast.NewMatchClause(pattern, body, guard)
	annotateSpan(clause, node)
	return clause, nil
}
