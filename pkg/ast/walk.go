package ast

// Walk visits node and its descendants depth-first. When visit returns false
// the children of that node are skipped.
func Walk(node Node, visit func(Node) bool) {
	if isNilNode(node) || !visit(node) {
		return
	}
	for _, child := range children(node) {
		Walk(child, visit)
	}
}

// AnnotateOrigins assigns the provided source path to every node reachable
// from root. Entries already present in table are kept.
func AnnotateOrigins(root Node, path string, table map[Node]string) {
	if root == nil || path == "" || table == nil {
		return
	}
	Walk(root, func(n Node) bool {
		if _, ok := table[n]; !ok {
			table[n] = path
		}
		return true
	})
}

func isNilNode(node Node) bool {
	if node == nil {
		return true
	}
	switch n := node.(type) {
	case *Identifier:
		return n == nil
	case *BlockExpression:
		return n == nil
	case *IntegerLiteral:
		return n == nil
	case *SimpleTypeExpression:
		return n == nil
	case *FunctionDefinition:
		return n == nil
	case *MatchClause:
		return n == nil
	case *StructFieldInitializer:
		return n == nil
	case *StructPatternField:
		return n == nil
	case *FieldDefinition:
		return n == nil
	case *VariantDefinition:
		return n == nil
	case *Attribute:
		return n == nil
	case *FunctionParameter:
		return n == nil
	}
	return false
}

func appendNodes[T Node](out []Node, items []T) []Node {
	for _, item := range items {
		out = append(out, item)
	}
	return out
}

func children(node Node) []Node {
	var out []Node
	add := func(nodes ...Node) {
		for _, n := range nodes {
			if !isNilNode(n) {
				out = append(out, n)
			}
		}
	}
	switch n := node.(type) {
	case *Module:
		out = appendNodes(out, n.Body)
	case *PathExpression:
		out = appendNodes(out, n.Segments)
	case *UseDeclaration:
		out = appendNodes(out, n.Path)
	case *GenericTypeExpression:
		add(n.Base)
		out = appendNodes(out, n.Arguments)
	case *SimpleTypeExpression:
		add(n.Name)
	case *PointerTypeExpression:
		add(n.Inner)
	case *ReferenceTypeExpression:
		add(n.Inner)
	case *ArrayTypeExpression:
		add(n.Element, n.Length)
	case *TupleTypeExpression:
		out = appendNodes(out, n.Elements)
	case *LiteralPattern:
		add(n.Literal)
	case *RangePattern:
		add(n.Start, n.End)
	case *BindingPattern:
		add(n.Name, n.Subpattern)
	case *StructPatternField:
		add(n.FieldName, n.Pattern)
	case *StructPattern:
		out = appendNodes(out, n.Path)
		out = appendNodes(out, n.Elements)
		out = appendNodes(out, n.Fields)
	case *TuplePattern:
		out = appendNodes(out, n.Elements)
	case *ReferencePattern:
		add(n.Inner)
	case *OrPattern:
		out = appendNodes(out, n.Alternatives)
	case *UnaryExpression:
		add(n.Operand)
	case *BinaryExpression:
		add(n.Left, n.Right)
	case *AssignmentExpression:
		add(n.Left, n.Right)
	case *FunctionCall:
		add(n.Callee)
		out = appendNodes(out, n.Arguments)
	case *MemberAccessExpression:
		add(n.Object, n.Member)
	case *TupleExpression:
		out = appendNodes(out, n.Elements)
	case *BlockExpression:
		out = appendNodes(out, n.Body)
	case *UnsafeBlockExpression:
		add(n.Block)
	case *LetCondition:
		add(n.Pattern, n.Value)
	case *IfExpression:
		add(n.Condition, n.Consequent, n.Alternative)
	case *MatchClause:
		add(n.Pattern, n.Guard, n.Body)
	case *MatchExpression:
		add(n.Subject)
		out = appendNodes(out, n.Clauses)
	case *WhileLoop:
		add(n.Condition, n.Body)
	case *LoopExpression:
		add(n.Body)
	case *BreakStatement:
		add(n.Value)
	case *ReturnStatement:
		add(n.Argument)
	case *StructFieldInitializer:
		add(n.Name, n.Value)
	case *StructLiteral:
		add(n.Path)
		out = appendNodes(out, n.Fields)
	case *OpaqueExpression:
		out = appendNodes(out, n.Children)
	case *LetStatement:
		add(n.Pattern, n.TypeAnnotation, n.Value, n.Else)
	case *FieldDefinition:
		add(n.Name, n.Type)
	case *VariantDefinition:
		add(n.ID)
		out = appendNodes(out, n.Fields)
	case *StructDefinition:
		out = appendNodes(out, n.Attributes)
		add(n.ID)
		out = appendNodes(out, n.Fields)
	case *EnumDefinition:
		out = appendNodes(out, n.Attributes)
		add(n.ID)
		out = appendNodes(out, n.Variants)
	case *UnionDefinition:
		out = appendNodes(out, n.Attributes)
		add(n.ID)
		out = appendNodes(out, n.Variants)
	case *FunctionParameter:
		add(n.Pattern, n.Type)
	case *FunctionDefinition:
		add(n.ID)
		out = appendNodes(out, n.Params)
		add(n.ReturnType, n.Body)
	case *ImplementationDefinition:
		add(n.Trait, n.Target)
		out = appendNodes(out, n.Methods)
	}
	filtered := out[:0]
	for _, n := range out {
		if !isNilNode(n) {
			filtered = append(filtered, n)
		}
	}
	return filtered
}
