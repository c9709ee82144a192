package typechecker

import "untagged/checker-go/pkg/ast"

func (c *Checker) checkStatement(env *Environment, stmt ast.Statement) []Diagnostic {
	switch s := stmt.(type) {
	case nil:
		return nil
	case *ast.LetStatement:
		return c.checkLetStatement(env, s)
	case *ast.FunctionDefinition:
		return c.checkFunctionDefinition(env, s)
	case *ast.ImplementationDefinition:
		return c.checkImplementation(env, s)
	case *ast.StructDefinition, *ast.EnumDefinition, *ast.UnionDefinition:
		return nil
	case ast.Expression:
		diags, _ := c.checkExpression(env, s)
		return diags
	default:
		return nil
	}
}

func (c *Checker) checkLetStatement(env *Environment, stmt *ast.LetStatement) []Diagnostic {
	var diags []Diagnostic
	valueType := Type(UnknownType{})
	if stmt.Value != nil {
		valueDiags, typ := c.checkExpression(env, stmt.Value)
		diags = append(diags, valueDiags...)
		valueType = typ
	}
	if stmt.TypeAnnotation != nil {
		declared, typeDiags := c.resolveTypeExpression(stmt.TypeAnnotation)
		diags = append(diags, typeDiags...)
		if !isUnknown(declared) {
			valueType = declared
		}
	}

	var info PatternInfo
	var patternDiags []Diagnostic
	if stmt.Else != nil {
		patternDiags, info = c.checkSingleBranchPattern(SiteLetElse, stmt.Pattern, valueType)
		elseDiags, _ := c.checkExpression(env.Extend(), stmt.Else)
		diags = append(diags, elseDiags...)
	} else {
		patternDiags, info = c.checkBindingPattern(SiteLet, stmt.Pattern, valueType)
	}
	diags = append(diags, patternDiags...)
	for name, typ := range info.Bindings {
		env.Define(name, typ)
	}
	return diags
}

func (c *Checker) checkFunctionDefinition(env *Environment, def *ast.FunctionDefinition) []Diagnostic {
	if def == nil {
		return nil
	}
	var diags []Diagnostic
	fnEnv := env.Extend()
	// A function item never inherits the unsafe context it is nested in.
	savedDepth := c.unsafeDepth
	c.unsafeDepth = 0
	if def.IsUnsafe {
		c.unsafeDepth = 1
	}
	defer func() { c.unsafeDepth = savedDepth }()
	for _, param := range def.Params {
		if param == nil {
			continue
		}
		paramType, typeDiags := c.resolveTypeExpression(param.Type)
		diags = append(diags, typeDiags...)
		patternDiags, info := c.checkBindingPattern(SiteParameter, param.Pattern, paramType)
		diags = append(diags, patternDiags...)
		for name, typ := range info.Bindings {
			fnEnv.Define(name, typ)
		}
	}
	if def.Body != nil {
		bodyDiags, _ := c.checkExpression(fnEnv, def.Body)
		diags = append(diags, bodyDiags...)
	}
	return diags
}

func (c *Checker) checkImplementation(env *Environment, def *ast.ImplementationDefinition) []Diagnostic {
	if def == nil {
		return nil
	}
	var diags []Diagnostic
	target, _ := c.resolveTypeExpression(def.Target)
	saved := c.selfType
	c.selfType = target
	defer func() { c.selfType = saved }()
	for _, method := range def.Methods {
		diags = append(diags, c.checkFunctionDefinition(env, method)...)
	}
	return diags
}
