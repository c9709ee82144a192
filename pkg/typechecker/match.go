package typechecker

import (
	"fmt"

	"untagged/checker-go/pkg/ast"
)

// Site names the construct a pattern appears in.
type Site string

const (
	SiteMatchArm  Site = "match arm"
	SiteLet       Site = "let"
	SiteLetElse   Site = "let else"
	SiteIfLet     Site = "if let"
	SiteWhileLet  Site = "while let"
	SiteParameter Site = "function parameter"
)

// PatternVerdict is the classification of one pattern site, exported for
// later compiler stages.
type PatternVerdict struct {
	Site           Site
	Arm            int
	Pattern        string
	Union          string
	Refutable      bool
	Reason         string
	Fallback       bool
	RequiresUnsafe bool
	InUnsafe       bool
	Accepted       bool
	Node           ast.Node
}

func (c *Checker) recordVerdict(site Site, arm int, pattern ast.Pattern, info PatternInfo, refutable bool, reason string, fallback bool, accepted bool) {
	union := ""
	if info.Union != nil {
		union = info.Union.UnionName
	}
	c.verdicts = append(c.verdicts, PatternVerdict{
		Site:           site,
		Arm:            arm,
		Pattern:        ast.Describe(pattern),
		Union:          union,
		Refutable:      refutable,
		Reason:         reason,
		Fallback:       fallback,
		RequiresUnsafe: info.NamesUnion,
		InUnsafe:       c.inUnsafeContext(),
		Accepted:       accepted,
		Node:           pattern,
	})
}

type armState struct {
	clause    *ast.MatchClause
	info      PatternInfo
	refutable bool
	reason    string
	fallback  bool
	catchAll  bool
}

func (c *Checker) checkMatchExpression(env *Environment, expr *ast.MatchExpression) ([]Diagnostic, Type) {
	var diags []Diagnostic
	if expr == nil {
		return nil, UnknownType{}
	}

	subjectDiags, subjectType := c.checkExpression(env, expr.Subject)
	diags = append(diags, subjectDiags...)

	arms := make([]armState, 0, len(expr.Clauses))
	branchTypes := make([]Type, 0, len(expr.Clauses))
	for _, clause := range expr.Clauses {
		if clause == nil {
			continue
		}
		clauseEnv := env.Extend()
		info, patternDiags := c.ClassifyPattern(clause.Pattern, subjectType)
		diags = append(diags, patternDiags...)
		for name, typ := range info.Bindings {
			clauseEnv.Define(name, typ)
		}
		arm := armState{
			clause:    clause,
			info:      info,
			refutable: info.Refutable,
			reason:    info.Reason,
			catchAll:  info.CatchAll && clause.Guard == nil,
		}
		if clause.Guard != nil {
			guardDiags, guardType := c.checkExpression(clauseEnv, clause.Guard)
			diags = append(diags, guardDiags...)
			if !isUnknown(guardType) && !isBool(guardType) {
				diags = append(diags, Diagnostic{
					Message: "typechecker: match guard must be bool",
					Node:    clause.Guard,
				})
			}
			if !arm.refutable {
				arm.refutable = true
				arm.reason = "guard"
			}
		}
		arms = append(arms, arm)

		bodyDiags, bodyType := c.checkExpression(clauseEnv, clause.Body)
		diags = append(diags, bodyDiags...)
		branchTypes = append(branchTypes, bodyType)
	}

	diags = append(diags, c.checkArmLegality(arms)...)

	resultType := mergeBranchTypes(branchTypes)
	c.infer.set(expr, resultType)
	return diags, resultType
}

// checkArmLegality enforces the multi-arm rule for matches over untagged
// unions: a single arm must be irrefutable; two or more arms must all be
// refutable and none may be a catch-all.
func (c *Checker) checkArmLegality(arms []armState) []Diagnostic {
	namesUnion := false
	var union *UnionType
	for _, arm := range arms {
		if arm.info.NamesUnion {
			namesUnion = true
			if union == nil {
				union = arm.info.Union
			}
		}
	}
	if !namesUnion {
		for i, arm := range arms {
			c.recordVerdict(SiteMatchArm, i+1, arm.clause.Pattern, arm.info, arm.refutable, arm.reason, false, true)
		}
		return nil
	}
	unionName := "value"
	if union != nil {
		unionName = union.UnionName
	}

	// An all-binding arm for a variant that an earlier refutable arm already
	// refined acts as that variant's fallback and counts as refutable.
	for i := range arms {
		if arms[i].refutable || arms[i].catchAll {
			continue
		}
		for _, variant := range arms[i].info.Variants {
			for j := 0; j < i; j++ {
				if arms[j].refutable && arms[j].info.NamesVariant(variant) {
					arms[i].refutable = true
					arms[i].fallback = true
					arms[i].reason = fmt.Sprintf("fallback after refined arm %d", j+1)
				}
			}
		}
	}

	var diags []Diagnostic
	if len(arms) == 1 {
		arm := arms[0]
		accepted := !arm.refutable
		if !accepted {
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf("typechecker: single-arm match over untagged union %s must be irrefutable; arm 1 (%s) is refutable (%s)", unionName, ast.Describe(arm.clause.Pattern), arm.reason),
				Node:    arm.clause,
			})
		}
		diags = append(diags, c.gatePattern(fmt.Sprintf("%s 1", SiteMatchArm), arm.clause.Pattern, arm.info)...)
		c.recordVerdict(SiteMatchArm, 1, arm.clause.Pattern, arm.info, arm.refutable, arm.reason, false, accepted)
		return diags
	}

	for i, arm := range arms {
		accepted := true
		switch {
		case arm.catchAll:
			accepted = false
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf("typechecker: catch-all arm %d (%s) cannot be combined with variant arms of untagged union %s", i+1, ast.Describe(arm.clause.Pattern), unionName),
				Node:    arm.clause,
			})
		case !arm.refutable:
			accepted = false
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf("typechecker: match arm %d (%s) is irrefutable; every arm of a multi-arm match over untagged union %s must be refutable", i+1, ast.Describe(arm.clause.Pattern), unionName),
				Node:    arm.clause,
			})
		}
		diags = append(diags, c.gatePattern(fmt.Sprintf("%s %d", SiteMatchArm, i+1), arm.clause.Pattern, arm.info)...)
		c.recordVerdict(SiteMatchArm, i+1, arm.clause.Pattern, arm.info, arm.refutable, arm.reason, arm.fallback, accepted)
	}
	return diags
}

// checkSingleBranchPattern handles `if let`, `while let` and `let ... else`,
// which need a refutable pattern.
func (c *Checker) checkSingleBranchPattern(site Site, pattern ast.Pattern, valueType Type) ([]Diagnostic, PatternInfo) {
	info, diags := c.ClassifyPattern(pattern, valueType)
	accepted := true
	switch {
	case info.NamesUnion && !info.Refutable:
		accepted = false
		diags = append(diags, Diagnostic{
			Message: fmt.Sprintf("typechecker: irrefutable pattern %s in %s over untagged union %s; %s requires a refutable pattern", ast.Describe(pattern), site, unionLabel(info), site),
			Node:    pattern,
		})
	case info.CatchAll:
		diags = append(diags, Diagnostic{
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("typechecker: irrefutable %s pattern %s always matches", site, ast.Describe(pattern)),
			Node:     pattern,
		})
	}
	diags = append(diags, c.gatePattern(string(site), pattern, info)...)
	c.recordVerdict(site, 0, pattern, info, info.Refutable, info.Reason, false, accepted)
	return diags, info
}

// checkBindingPattern handles plain `let` and parameters, which need an
// irrefutable pattern.
func (c *Checker) checkBindingPattern(site Site, pattern ast.Pattern, valueType Type) ([]Diagnostic, PatternInfo) {
	info, diags := c.ClassifyPattern(pattern, valueType)
	accepted := true
	if info.Refutable {
		accepted = false
		label := "local binding"
		if site == SiteParameter {
			label = "function parameter"
		}
		diags = append(diags, Diagnostic{
			Message: fmt.Sprintf("typechecker: refutable pattern in %s: %s (%s)", label, ast.Describe(pattern), info.Reason),
			Node:    pattern,
		})
	}
	diags = append(diags, c.gatePattern(string(site), pattern, info)...)
	c.recordVerdict(site, 0, pattern, info, info.Refutable, info.Reason, false, accepted)
	return diags, info
}

func isBool(t Type) bool {
	prim, ok := t.(PrimitiveType)
	return ok && prim.Kind == PrimitiveBool
}

func mergeBranchTypes(types []Type) Type {
	var result Type
	for _, t := range types {
		if isUnknown(t) {
			continue
		}
		if prim, ok := t.(PrimitiveType); ok && prim.Kind == PrimitiveNever {
			continue
		}
		if result == nil {
			result = t
			continue
		}
		if typeName(result) != typeName(t) {
			return UnknownType{}
		}
	}
	if result == nil {
		return UnknownType{}
	}
	return result
}
