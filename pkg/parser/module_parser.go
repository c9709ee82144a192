package parser

import (
	"fmt"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"

	"untagged/checker-go/pkg/ast"
)

// ModuleParser wraps a tree-sitter parser configured for Rust source files.
type ModuleParser struct {
	parser *sitter.Parser
}

// NewModuleParser constructs a parser with the Rust grammar loaded.
func NewModuleParser() (*ModuleParser, error) {
	lang := sitter.NewLanguage(tree_sitter_rust.Language())
	if lang == nil {
		return nil, fmt.Errorf("parser: rust language not available")
	}

	p := sitter.NewParser()
	if err := p.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("parser: %w", err)
	}

	return &ModuleParser{parser: p}, nil
}

// Close releases parser resources.
func (p *ModuleParser) Close() {
	if p == nil || p.parser == nil {
		return
	}
	p.parser.Close()
	p.parser = nil
}

// ParseModule parses one source file into an AST module. Items the checker
// does not model (traits, macros, type aliases) are skipped.
func (p *ModuleParser) ParseModule(source []byte) (*ast.Module, error) {
	if p == nil || p.parser == nil {
		return nil, fmt.Errorf("parser: nil parser")
	}

	tree := p.parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("parser: parse failed")
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil || root.Kind() != "source_file" {
		if root != nil && root.HasError() {
			return nil, syntaxError(root)
		}
		return nil, fmt.Errorf("parser: unexpected root node")
	}
	if root.HasError() {
		return nil, syntaxError(root)
	}

	ctx := newParseContext(source)
	body, err := ctx.parseItems(root)
	if err != nil {
		return nil, err
	}

	module := ast.NewModule(body)
	annotateSpan(module, root)
	return module, nil
}

// parseItems walks an item container (the source file, a declaration list or
// an inline module body). Outer attributes precede their item as siblings.
func (ctx *parseContext) parseItems(container *sitter.Node) ([]ast.Statement, error) {
	var (
		body    = make([]ast.Statement, 0)
		pending []*ast.Attribute
	)
	for i := uint(0); i < container.NamedChildCount(); i++ {
		node := container.NamedChild(i)
		if node == nil || isIgnorableNode(node) {
			continue
		}
		if node.Kind() == "attribute_item" {
			attr, err := ctx.parseAttribute(node)
			if err != nil {
				return nil, err
			}
			if attr != nil {
				pending = append(pending, attr)
			}
			continue
		}
		stmts, err := ctx.parseItem(node, pending)
		pending = nil
		if err != nil {
			return nil, err
		}
		body = append(body, stmts...)
	}
	return body, nil
}

func (ctx *parseContext) parseItem(node *sitter.Node, attrs []*ast.Attribute) ([]ast.Statement, error) {
	switch node.Kind() {
	case "enum_item":
		def, err := ctx.parseEnumItem(node, attrs)
		if err != nil {
			return nil, err
		}
		return []ast.Statement{def}, nil
	case "union_item":
		def, err := ctx.parseUnionItem(node, attrs)
		if err != nil {
			return nil, err
		}
		return []ast.Statement{def}, nil
	case "struct_item":
		def, err := ctx.parseStructItem(node, attrs)
		if err != nil {
			return nil, err
		}
		return []ast.Statement{def}, nil
	case "impl_item":
		def, err := ctx.parseImplItem(node)
		if err != nil {
			return nil, err
		}
		return []ast.Statement{def}, nil
	case "function_item":
		fn, err := ctx.parseFunctionItem(node)
		if err != nil {
			return nil, err
		}
		return []ast.Statement{fn}, nil
	case "use_declaration":
		uses, err := ctx.parseUseDeclaration(node)
		if err != nil {
			return nil, err
		}
		out := make([]ast.Statement, len(uses))
		for i, use := range uses {
			out[i] = use
		}
		return out, nil
	case "const_item", "static_item":
		stmt, err := ctx.parseConstItem(node)
		if err != nil {
			return nil, err
		}
		return []ast.Statement{stmt}, nil
	case "mod_item":
		bodyNode := node.ChildByFieldName("body")
		if bodyNode == nil {
			return nil, nil
		}
		return ctx.parseItems(bodyNode)
	case "trait_item", "type_item", "macro_invocation", "macro_definition",
		"extern_crate_declaration", "foreign_mod_item", "function_signature_item",
		"associated_type", "empty_statement":
		return nil, nil
	default:
		return nil, unsupported(node, "item")
	}
}
