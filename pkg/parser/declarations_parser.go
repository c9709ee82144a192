package parser

import (
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"untagged/checker-go/pkg/ast"
)

func (ctx *parseContext) parseAttribute(node *sitter.Node) (*ast.Attribute, error) {
	attrNode := firstNamedChild(node)
	if attrNode == nil || attrNode.Kind() != "attribute" {
		return nil, nil
	}
	pathNode := firstNamedChild(attrNode)
	if pathNode == nil {
		return nil, &ParseError{Message: "parser: attribute missing name", Location: locationForNode(attrNode)}
	}
	name := strings.TrimSpace(ctx.text(pathNode))

	var args []string
	if argsNode := attrNode.ChildByFieldName("arguments"); argsNode != nil {
		raw := strings.TrimSpace(ctx.text(argsNode))
		if len(raw) >= 2 {
			raw = raw[1 : len(raw)-1]
		}
		args = splitTopLevel(raw)
	}
	attr := ast.NewAttribute(name, args)
	annotateSpan(attr, node)
	return attr, nil
}

func isPublic(node *sitter.Node) bool {
	return hasChildKind(node, "visibility_modifier")
}

// parseEnumItem maps `enum` items. Enums marked #[unsafe_enum] become
// untagged unions with the same variant shapes.
func (ctx *parseContext) parseEnumItem(node *sitter.Node, attrs []*ast.Attribute) (ast.Statement, error) {
	id, err := ctx.identifier(node.ChildByFieldName("name"))
	if err != nil {
		return nil, wrapParseError(node, err)
	}
	var variants []*ast.VariantDefinition
	if body := node.ChildByFieldName("body"); body != nil {
		for i := uint(0); i < body.NamedChildCount(); i++ {
			child := body.NamedChild(i)
			if child == nil || child.Kind() != "enum_variant" {
				continue
			}
			variant, err := ctx.parseEnumVariant(child)
			if err != nil {
				return nil, err
			}
			variants = append(variants, variant)
		}
	}
	if ast.HasAttribute(attrs, "unsafe_enum") {
		def := ast.NewUnionDefinition(id, variants, attrs, false, isPublic(node))
		annotateSpan(def, node)
		return def, nil
	}
	def := ast.NewEnumDefinition(id, variants, attrs, isPublic(node))
	annotateSpan(def, node)
	return def, nil
}

func (ctx *parseContext) parseEnumVariant(node *sitter.Node) (*ast.VariantDefinition, error) {
	id, err := ctx.identifier(node.ChildByFieldName("name"))
	if err != nil {
		return nil, wrapParseError(node, err)
	}
	kind, fields, err := ctx.parseFieldBody(node.ChildByFieldName("body"))
	if err != nil {
		return nil, err
	}
	variant := ast.NewVariantDefinition(id, kind, fields)
	annotateSpan(variant, node)
	return variant, nil
}

// parseFieldBody handles `{ a: T }`, `(T, U)` and the absent body of unit shapes.
func (ctx *parseContext) parseFieldBody(body *sitter.Node) (ast.FieldKind, []*ast.FieldDefinition, error) {
	if body == nil {
		return ast.FieldKindUnit, nil, nil
	}
	switch body.Kind() {
	case "field_declaration_list":
		fields, err := ctx.parseNamedFields(body)
		return ast.FieldKindNamed, fields, err
	case "ordered_field_declaration_list":
		var fields []*ast.FieldDefinition
		for _, typeNode := range childrenForField(body, "type") {
			typ, err := ctx.parseType(typeNode)
			if err != nil {
				return "", nil, err
			}
			field := ast.NewFieldDefinition(typ, nil)
			annotateSpan(field, typeNode)
			fields = append(fields, field)
		}
		return ast.FieldKindPositional, fields, nil
	default:
		return "", nil, unsupported(body, "field list")
	}
}

func (ctx *parseContext) parseNamedFields(body *sitter.Node) ([]*ast.FieldDefinition, error) {
	var fields []*ast.FieldDefinition
	for i := uint(0); i < body.NamedChildCount(); i++ {
		child := body.NamedChild(i)
		if child == nil || child.Kind() != "field_declaration" {
			continue
		}
		name, err := ctx.identifier(child.ChildByFieldName("name"))
		if err != nil {
			return nil, wrapParseError(child, err)
		}
		typ, err := ctx.parseType(child.ChildByFieldName("type"))
		if err != nil {
			return nil, err
		}
		field := ast.NewFieldDefinition(typ, name)
		annotateSpan(field, child)
		fields = append(fields, field)
	}
	return fields, nil
}

// parseUnionItem maps a native `union`: every field becomes a single-field
// positional variant named after the field.
func (ctx *parseContext) parseUnionItem(node *sitter.Node, attrs []*ast.Attribute) (ast.Statement, error) {
	id, err := ctx.identifier(node.ChildByFieldName("name"))
	if err != nil {
		return nil, wrapParseError(node, err)
	}
	var variants []*ast.VariantDefinition
	if body := node.ChildByFieldName("body"); body != nil {
		fields, err := ctx.parseNamedFields(body)
		if err != nil {
			return nil, err
		}
		for _, f := range fields {
			payload := ast.NewFieldDefinition(f.Type, nil)
			ast.SetSpan(payload, f.Span())
			variant := ast.NewVariantDefinition(f.Name, ast.FieldKindPositional, []*ast.FieldDefinition{payload})
			ast.SetSpan(variant, f.Span())
			variants = append(variants, variant)
		}
	}
	def := ast.NewUnionDefinition(id, variants, attrs, true, isPublic(node))
	annotateSpan(def, node)
	return def, nil
}

func (ctx *parseContext) parseStructItem(node *sitter.Node, attrs []*ast.Attribute) (ast.Statement, error) {
	id, err := ctx.identifier(node.ChildByFieldName("name"))
	if err != nil {
		return nil, wrapParseError(node, err)
	}
	kind, fields, err := ctx.parseFieldBody(node.ChildByFieldName("body"))
	if err != nil {
		return nil, err
	}
	def := ast.NewStructDefinition(id, kind, fields, attrs, isPublic(node))
	annotateSpan(def, node)
	return def, nil
}

func (ctx *parseContext) parseImplItem(node *sitter.Node) (ast.Statement, error) {
	target, err := ctx.parseType(node.ChildByFieldName("type"))
	if err != nil {
		return nil, err
	}
	var trait *ast.Identifier
	if traitNode := node.ChildByFieldName("trait"); traitNode != nil {
		segments, err := ctx.pathSegments(traitNode)
		if err != nil {
			return nil, wrapParseError(traitNode, err)
		}
		trait = segments[len(segments)-1]
	}
	var methods []*ast.FunctionDefinition
	if body := node.ChildByFieldName("body"); body != nil {
		for i := uint(0); i < body.NamedChildCount(); i++ {
			child := body.NamedChild(i)
			if child == nil || child.Kind() != "function_item" {
				continue
			}
			fn, err := ctx.parseFunctionItem(child)
			if err != nil {
				return nil, err
			}
			methods = append(methods, fn)
		}
	}
	def := ast.NewImplementationDefinition(trait, target, methods, hasChildKind(node, "!"), hasChildKind(node, "unsafe"))
	annotateSpan(def, node)
	return def, nil
}

func (ctx *parseContext) parseFunctionItem(node *sitter.Node) (*ast.FunctionDefinition, error) {
	id, err := ctx.identifier(node.ChildByFieldName("name"))
	if err != nil {
		return nil, wrapParseError(node, err)
	}
	isUnsafe := false
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child != nil && child.Kind() == "function_modifiers" && hasChildKind(child, "unsafe") {
			isUnsafe = true
		}
	}
	params, err := ctx.parseParameters(node.ChildByFieldName("parameters"))
	if err != nil {
		return nil, err
	}
	var returnType ast.TypeExpression
	if retNode := node.ChildByFieldName("return_type"); retNode != nil {
		returnType, err = ctx.parseType(retNode)
		if err != nil {
			return nil, err
		}
	}
	var body *ast.BlockExpression
	if bodyNode := node.ChildByFieldName("body"); bodyNode != nil {
		body, err = ctx.parseBlock(bodyNode)
		if err != nil {
			return nil, err
		}
	}
	fn := ast.NewFunctionDefinition(id, params, returnType, body, isUnsafe, isPublic(node))
	annotateSpan(fn, node)
	return fn, nil
}

func (ctx *parseContext) parseParameters(node *sitter.Node) ([]*ast.FunctionParameter, error) {
	if node == nil {
		return nil, nil
	}
	var params []*ast.FunctionParameter
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "parameter":
			pattern, err := ctx.parsePattern(child.ChildByFieldName("pattern"))
			if err != nil {
				return nil, err
			}
			if hasChildKind(child, "mutable_specifier") {
				pattern = markMutable(pattern, child)
			}
			typ, err := ctx.parseType(child.ChildByFieldName("type"))
			if err != nil {
				return nil, err
			}
			param := ast.NewFunctionParameter(pattern, typ)
			annotateSpan(param, child)
			params = append(params, param)
		case "self_parameter":
			var typ ast.TypeExpression = ast.Ty("Self")
			if hasChildKind(child, "&") {
				typ = ast.RefTy(typ, hasChildKind(child, "mutable_specifier"))
			}
			annotateTypeExpression(typ, child)
			self := ast.ID("self")
			annotateSpan(self, child)
			param := ast.NewFunctionParameter(self, typ)
			annotateSpan(param, child)
			params = append(params, param)
		case "attribute_item", "line_comment", "block_comment":
		default:
			return nil, unsupported(child, "parameter")
		}
	}
	return params, nil
}

func (ctx *parseContext) parseConstItem(node *sitter.Node) (ast.Statement, error) {
	id, err := ctx.identifier(node.ChildByFieldName("name"))
	if err != nil {
		return nil, wrapParseError(node, err)
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
	stmt := ast.NewLetStatement(id, typ, value, nil)
	annotateSpan(stmt, node)
	return stmt, nil
}

// parseUseDeclaration flattens grouped imports into one declaration per leaf.
func (ctx *parseContext) parseUseDeclaration(node *sitter.Node) ([]*ast.UseDeclaration, error) {
	arg := node.ChildByFieldName("argument")
	if arg == nil {
		return nil, &ParseError{Message: "parser: use declaration missing path", Location: locationForNode(node)}
	}
	var out []*ast.UseDeclaration
	var visit func(prefix []*ast.Identifier, n *sitter.Node) error
	visit = func(prefix []*ast.Identifier, n *sitter.Node) error {
		if n == nil {
			return nil
		}
		emit := func(segments []*ast.Identifier, wildcard bool) {
			path := append(append([]*ast.Identifier{}, prefix...), segments...)
			use := ast.NewUseDeclaration(path, wildcard)
			annotateSpan(use, n)
			out = append(out, use)
		}
		switch n.Kind() {
		case "use_as_clause":
			segments, err := ctx.pathSegments(n.ChildByFieldName("path"))
			if err != nil {
				return wrapParseError(n, err)
			}
			emit(segments, false)
		case "use_wildcard":
			var segments []*ast.Identifier
			if pathNode := firstNamedChild(n); pathNode != nil {
				var err error
				if segments, err = ctx.pathSegments(pathNode); err != nil {
					return wrapParseError(n, err)
				}
			}
			emit(segments, true)
		case "scoped_use_list":
			next := prefix
			if pathNode := n.ChildByFieldName("path"); pathNode != nil {
				segments, err := ctx.pathSegments(pathNode)
				if err != nil {
					return wrapParseError(n, err)
				}
				next = append(append([]*ast.Identifier{}, prefix...), segments...)
			}
			return visit(next, n.ChildByFieldName("list"))
		case "use_list":
			for i := uint(0); i < n.NamedChildCount(); i++ {
				if err := visit(prefix, n.NamedChild(i)); err != nil {
					return err
				}
			}
		case "line_comment", "block_comment":
		default:
			segments, err := ctx.pathSegments(n)
			if err != nil {
				return wrapParseError(n, fmt.Errorf("parser: unsupported use path %q", ctx.text(n)))
			}
			emit(segments, false)
		}
		return nil
	}
	if err := visit(nil, arg); err != nil {
		return nil, err
	}
	return out, nil
}
