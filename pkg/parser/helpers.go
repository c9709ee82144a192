package parser

import (
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"untagged/checker-go/pkg/ast"
)

// parseContext carries the module source so helpers share one view of the file.
type parseContext struct {
	source []byte
}

func newParseContext(source []byte) *parseContext {
	return &parseContext{source: source}
}

func (ctx *parseContext) text(node *sitter.Node) string {
	return sliceContent(node, ctx.source)
}

func sliceContent(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	start := int(node.StartByte())
	end := int(node.EndByte())
	if start < 0 || end < start || end > len(source) {
		return ""
	}
	return string(source[start:end])
}

func (ctx *parseContext) identifier(node *sitter.Node) (*ast.Identifier, error) {
	if node == nil {
		return nil, fmt.Errorf("parser: expected identifier")
	}
	switch node.Kind() {
	case "identifier", "type_identifier", "field_identifier", "shorthand_field_identifier",
		"primitive_type", "self", "super", "crate", "metavariable":
	default:
		return nil, &ParseError{
			Message:  fmt.Sprintf("parser: expected identifier, found %s", node.Kind()),
			Location: locationForNode(node),
		}
	}
	id := ast.ID(ctx.text(node))
	annotateSpan(id, node)
	return id, nil
}

// pathSegments flattens `a::b::C` (scoped_identifier / scoped_type_identifier)
// into its identifiers. Generic arguments in the path are dropped.
func (ctx *parseContext) pathSegments(node *sitter.Node) ([]*ast.Identifier, error) {
	if node == nil {
		return nil, fmt.Errorf("parser: expected path")
	}
	switch node.Kind() {
	case "scoped_identifier", "scoped_type_identifier":
		var segments []*ast.Identifier
		if prefix := node.ChildByFieldName("path"); prefix != nil {
			head, err := ctx.pathSegments(prefix)
			if err != nil {
				return nil, err
			}
			segments = append(segments, head...)
		}
		nameNode := node.ChildByFieldName("name")
		name, err := ctx.identifier(nameNode)
		if err != nil {
			return nil, wrapParseError(node, err)
		}
		return append(segments, name), nil
	case "generic_type", "generic_type_with_turbofish":
		return ctx.pathSegments(node.ChildByFieldName("type"))
	case "bracketed_type":
		return nil, unsupported(node, "qualified path")
	default:
		id, err := ctx.identifier(node)
		if err != nil {
			return nil, err
		}
		return []*ast.Identifier{id}, nil
	}
}

func isIgnorableNode(node *sitter.Node) bool {
	if node == nil {
		return false
	}
	switch node.Kind() {
	case "line_comment", "block_comment", "doc_comment", "inner_attribute_item":
		return true
	default:
		return false
	}
}

func hasChildKind(node *sitter.Node, kind string) bool {
	if node == nil {
		return false
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		if child := node.Child(i); child != nil && child.Kind() == kind {
			return true
		}
	}
	return false
}

func firstNamedChild(node *sitter.Node) *sitter.Node {
	if node == nil {
		return nil
	}
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child != nil && !isIgnorableNode(child) && child.Kind() != "attribute_item" {
			return child
		}
	}
	return nil
}

// childrenForField returns every child bound to a repeated field such as
// the `type` entries of an ordered field list.
func childrenForField(node *sitter.Node, field string) []*sitter.Node {
	if node == nil {
		return nil
	}
	var out []*sitter.Node
	for i := uint(0); i < node.ChildCount(); i++ {
		if node.FieldNameForChild(uint32(i)) != field {
			continue
		}
		if child := node.Child(i); child != nil {
			out = append(out, child)
		}
	}
	return out
}

func sameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Kind() == b.Kind() && a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte()
}

// splitTopLevel splits attribute arguments on commas that are not nested in
// parentheses or brackets.
func splitTopLevel(input string) []string {
	var parts []string
	depth := 0
	start := 0
	for i, r := range input {
		switch r {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, input[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, input[start:])
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.Join(strings.Fields(part), "")
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
